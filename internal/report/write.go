package report

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/browser"
)

var openFile = browser.OpenFile

// DefaultDir is $XDG_DATA_HOME/viva/reports, or ~/.local/share/viva/reports.
func DefaultDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "viva", "reports"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for reports: %w", err)
	}
	return filepath.Join(home, ".local", "share", "viva", "reports"), nil
}

// Write compiles in and stores it under dir, returning the file path.
func Write(dir string, in Input, generatedAt time.Time) (string, error) {
	doc, err := Compile(in, generatedAt)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(dir, FileName(in, generatedAt))
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("write report %q: %w", path, err)
	}
	return path, nil
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

// FileName is viva-<candidate>-<timestamp>.html.
func FileName(in Input, generatedAt time.Time) string {
	who := in.Candidate.PunchID
	if who == "" {
		who = in.Candidate.Name
	}
	who = strings.Trim(unsafeName.ReplaceAllString(strings.ToLower(who), "-"), "-")
	if who == "" {
		who = "candidate"
	}
	return fmt.Sprintf("viva-%s-%s.html", who, generatedAt.Format("20060102-150405"))
}

// Open hands the report to the platform viewer for printing.
func Open(path string) error {
	if err := openFile(path); err != nil {
		return fmt.Errorf("open report %q: %w", path, err)
	}
	return nil
}

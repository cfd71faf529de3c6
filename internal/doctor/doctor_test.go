package doctor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rbright/viva/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_ENV", "/run/user/1000")

	check := checkEnv(
		"TEST_DOCTOR_ENV",
		func(v string) bool { return strings.HasPrefix(v, "/run") },
		"looks good",
		"unexpected",
	)

	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "host.tts_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-tts")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-tts", "--stdin"}, "host.tts_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "host.tts_cmd command is available")
}

func TestCheckDevicePath(t *testing.T) {
	device := filepath.Join(t.TempDir(), "video0")
	check := checkDevicePath(device)
	require.False(t, check.Pass)

	require.NoError(t, os.WriteFile(device, nil, 0o600))
	check = checkDevicePath(device)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "present")
}

func TestCheckBackendReadySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.API.BaseURL = server.URL
	cfg.API.HealthPath = "/health"

	check := checkBackendReady(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable at")
}

func TestCheckBackendReadyFailureStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.API.BaseURL = server.URL

	check := checkBackendReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "HTTP 503")
}

func TestCheckBackendReadyEmptyBaseURL(t *testing.T) {
	cfg := config.Default()
	cfg.API.BaseURL = ""

	check := checkBackendReady(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "base url is empty")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Contains(t, check.Name, "audio.device")
}

func checkNames(report Report) map[string]bool {
	names := make(map[string]bool, len(report.Checks))
	for _, check := range report.Checks {
		names[check.Name] = true
	}
	return names
}

func TestRunChecksConfiguredTools(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"fake-ffmpeg", "fake-tts"} {
		require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	cfg := config.Default()
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Video.FFmpeg = config.CommandConfig{Raw: "fake-ffmpeg", Argv: []string{"fake-ffmpeg"}}
	cfg.Host.TTS = config.CommandConfig{Raw: "fake-tts", Argv: []string{"fake-tts"}}

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.True(t, names["config"])
	require.True(t, names["XDG_RUNTIME_DIR"])
	require.True(t, names["api.ready"])
	require.True(t, names["audio.device"])
	require.True(t, names["fake-ffmpeg"])
	require.True(t, names["video.device"])
	require.True(t, names["fake-tts"])
	require.False(t, names["busctl"])
	require.False(t, report.OK())
}

func TestRunSkipsDisabledFeatures(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	cfg := config.Default()
	cfg.API.BaseURL = "http://127.0.0.1:1"
	cfg.Session.Video = false
	cfg.Host.Voice = false

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg})
	names := checkNames(report)
	require.False(t, names["video.device"])
	require.False(t, names["espeak-ng"])
	require.False(t, names["ffmpeg"])
}

// Package doctor runs runtime readiness diagnostics for config, backend,
// microphone, camera encoder and host voice.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/rbright/viva/internal/api"
	"github.com/rbright/viva/internal/audio"
	"github.com/rbright/viva/internal/config"
)

const readyTimeout = 3 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, loaded config.Loaded) Report {
	cfg := loaded.Config
	checks := []Check{{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", loaded.Path),
	}}

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "control socket directory available", "XDG_RUNTIME_DIR is empty; skip/record/answer from other terminals will not work"))

	checks = append(checks, checkBackendReady(ctx, cfg))
	checks = append(checks, checkAudioSelection(ctx, cfg))

	if cfg.Session.Video {
		checks = append(checks, checkCommand(cfg.Video.FFmpeg.Argv, "video.ffmpeg_cmd"))
		checks = append(checks, checkDevicePath(cfg.Video.Device))
	}
	if cfg.Host.Voice {
		checks = append(checks, checkCommand(cfg.Host.TTS.Argv, "host.tts_cmd"))
	}
	if cfg.Host.Notify {
		checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
	}

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

func checkDevicePath(device string) Check {
	if _, err := os.Stat(device); err != nil {
		return Check{Name: "video.device", Pass: false, Message: fmt.Sprintf("camera %s unavailable: %v", device, err)}
	}
	return Check{Name: "video.device", Pass: true, Message: fmt.Sprintf("camera %s present", device)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkBackendReady probes the configured health path of the training backend.
func checkBackendReady(ctx context.Context, cfg config.Config) Check {
	client, err := api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		HealthPath: cfg.API.HealthPath,
		Timeout:    readyTimeout,
	})
	if err != nil {
		return Check{Name: "api.ready", Pass: false, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	target := client.BaseURL() + cfg.API.HealthPath
	if err := client.Ready(ctx); err != nil {
		return Check{Name: "api.ready", Pass: false, Message: fmt.Sprintf("%s: %v", target, err)}
	}
	return Check{Name: "api.ready", Pass: true, Message: fmt.Sprintf("reachable at %s", target)}
}

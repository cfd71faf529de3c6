package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/rbright/viva/internal/model"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	base := strings.TrimSpace(cfg.API.BaseURL)
	if base == "" {
		return nil, fmt.Errorf("api.base_url must not be empty")
	}
	parsed, err := url.Parse(base)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, fmt.Errorf("api.base_url must be an absolute URL, got %q", base)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api.base_url scheme must be http or https, got %q", parsed.Scheme)
	}
	if cfg.API.TimeoutMS <= 0 {
		return nil, fmt.Errorf("api.timeout_ms must be > 0")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.API.HealthPath), "/") {
		return nil, fmt.Errorf("api.health_path must start with '/'")
	}

	if _, err := model.ParseLanguage(cfg.Session.Language); err != nil {
		return nil, fmt.Errorf("session.language must be Hindi or English: %w", err)
	}
	if cfg.Session.QuestionCount <= 0 {
		return nil, fmt.Errorf("session.question_count must be > 0")
	}
	if cfg.Session.MinTopicQuestions < 0 {
		return nil, fmt.Errorf("session.min_topic_questions must be >= 0")
	}
	switch cfg.Session.Identity {
	case "lookup", "freeform":
	default:
		return nil, fmt.Errorf("session.identity must be one of: lookup, freeform")
	}
	for key, value := range map[string]int{
		"session.welcome_delay_ms":    cfg.Session.WelcomeDelayMS,
		"session.generation_bound_ms": cfg.Session.GenerationBoundMS,
		"session.poll_interval_ms":    cfg.Session.PollIntervalMS,
	} {
		if value <= 0 {
			return nil, fmt.Errorf("%s must be > 0", key)
		}
	}
	if cfg.Session.GenerationRetries < 0 {
		return nil, fmt.Errorf("session.generation_retries must be >= 0")
	}
	if cfg.Session.AnswerTimeoutMS < 0 {
		return nil, fmt.Errorf("session.answer_timeout_ms must be >= 0")
	}
	wait := cfg.Session.Wait
	if wait.CorrectMS < 0 || wait.PartialMS < 0 || wait.WrongMS < 0 {
		return nil, fmt.Errorf("session.wait values must be >= 0")
	}
	if wait.CorrectMS > wait.PartialMS || wait.PartialMS > wait.WrongMS {
		return nil, fmt.Errorf("session.wait must satisfy correct_ms <= partial_ms <= wrong_ms")
	}
	if cfg.Session.WelcomeDelayMS > cfg.Session.GenerationBoundMS {
		warnings = append(warnings, Warning{Message: "session.welcome_delay_ms exceeds generation_bound_ms; sessions without questions end before the welcome finishes"})
	}

	if cfg.Session.Video {
		if len(cfg.Video.FFmpeg.Argv) == 0 {
			return nil, fmt.Errorf("video.ffmpeg_cmd must not be empty when session.video=true")
		}
		if strings.TrimSpace(cfg.Video.Device) == "" {
			return nil, fmt.Errorf("video.device must not be empty when session.video=true")
		}
		if cfg.Video.Width <= 0 || cfg.Video.Height <= 0 || cfg.Video.FrameRate <= 0 {
			return nil, fmt.Errorf("video width, height and frame_rate must be > 0")
		}
	}

	if cfg.Host.Voice {
		if len(cfg.Host.TTS.Argv) == 0 {
			return nil, fmt.Errorf("host.tts_cmd must not be empty when host.voice=true")
		}
		if !strings.Contains(cfg.Host.TTS.Raw, "{voice}") {
			warnings = append(warnings, Warning{Message: "host.tts_cmd has no {voice} placeholder; session language will not select a voice"})
		}
	}
	if cfg.Host.Notify && strings.TrimSpace(cfg.Host.AppName) == "" {
		return nil, fmt.Errorf("host.app_name must not be empty when host.notify=true")
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	return warnings, nil
}

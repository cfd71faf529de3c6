package config

import (
	"fmt"
	"strings"
)

// Parse decodes configuration content over base and validates the result.
//
// JSONC is selected when the first non-whitespace character is `{`;
// anything else is read as YAML.
func Parse(content string, base Config) (Config, []Warning, error) {
	cfg, warnings, err := decode(content, base)
	if err != nil {
		return Config{}, nil, err
	}
	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

func decode(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return base, nil, nil
	}

	var (
		payload fileConfig
		err     error
	)
	if strings.HasPrefix(trimmed, "{") {
		payload, err = parseJSONC(content)
	} else {
		payload, err = parseYAML(content)
	}
	if err != nil {
		return Config{}, nil, err
	}

	cfg := base
	warnings, err := payload.applyTo(&cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

// fileConfig is the on-disk schema shared by the JSONC and YAML readers.
// Every field is optional; nil leaves the base value untouched.
type fileConfig struct {
	API     *fileAPI     `json:"api" yaml:"api"`
	Session *fileSession `json:"session" yaml:"session"`
	Audio   *fileAudio   `json:"audio" yaml:"audio"`
	Video   *fileVideo   `json:"video" yaml:"video"`
	Host    *fileHost    `json:"host" yaml:"host"`
	Report  *fileReport  `json:"report" yaml:"report"`
	Metrics *fileMetrics `json:"metrics" yaml:"metrics"`
	Debug   *fileDebug   `json:"debug" yaml:"debug"`
}

type fileAPI struct {
	BaseURL    *string `json:"base_url" yaml:"base_url"`
	TimeoutMS  *int    `json:"timeout_ms" yaml:"timeout_ms"`
	HealthPath *string `json:"health_path" yaml:"health_path"`
}

type fileSession struct {
	Language          *string   `json:"language" yaml:"language"`
	QuestionCount     *int      `json:"question_count" yaml:"question_count"`
	MinTopicQuestions *int      `json:"min_topic_questions" yaml:"min_topic_questions"`
	Identity          *string   `json:"identity" yaml:"identity"`
	WelcomeDelayMS    *int      `json:"welcome_delay_ms" yaml:"welcome_delay_ms"`
	GenerationBoundMS *int      `json:"generation_bound_ms" yaml:"generation_bound_ms"`
	PollIntervalMS    *int      `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	GenerationRetries *int      `json:"generation_retries" yaml:"generation_retries"`
	AnswerTimeoutMS   *int      `json:"answer_timeout_ms" yaml:"answer_timeout_ms"`
	Wait              *fileWait `json:"wait" yaml:"wait"`
	Video             *bool     `json:"video" yaml:"video"`
}

type fileWait struct {
	CorrectMS *int `json:"correct_ms" yaml:"correct_ms"`
	PartialMS *int `json:"partial_ms" yaml:"partial_ms"`
	WrongMS   *int `json:"wrong_ms" yaml:"wrong_ms"`
}

type fileAudio struct {
	Input    *string `json:"input" yaml:"input"`
	Fallback *string `json:"fallback" yaml:"fallback"`
}

type fileVideo struct {
	FFmpegCmd        *string `json:"ffmpeg_cmd" yaml:"ffmpeg_cmd"`
	InputFormat      *string `json:"input_format" yaml:"input_format"`
	Device           *string `json:"device" yaml:"device"`
	Width            *int    `json:"width" yaml:"width"`
	Height           *int    `json:"height" yaml:"height"`
	FrameRate        *int    `json:"frame_rate" yaml:"frame_rate"`
	VideoBitrateKbps *int    `json:"video_bitrate_kbps" yaml:"video_bitrate_kbps"`
	AudioBitrateKbps *int    `json:"audio_bitrate_kbps" yaml:"audio_bitrate_kbps"`
	AudioDevice      *string `json:"audio_device" yaml:"audio_device"`
}

type fileHost struct {
	Voice   *bool   `json:"voice" yaml:"voice"`
	Cues    *bool   `json:"cues" yaml:"cues"`
	Notify  *bool   `json:"notify" yaml:"notify"`
	AppName *string `json:"app_name" yaml:"app_name"`
	TTSCmd  *string `json:"tts_cmd" yaml:"tts_cmd"`
}

type fileReport struct {
	Dir  *string `json:"dir" yaml:"dir"`
	Open *bool   `json:"open" yaml:"open"`
}

type fileMetrics struct {
	Listen *string `json:"listen" yaml:"listen"`
}

type fileDebug struct {
	AudioDump *bool `json:"audio_dump" yaml:"audio_dump"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setCommand(dst *CommandConfig, src *string, key string) error {
	if src == nil {
		return nil
	}
	argv, err := parseArgv(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *src, Argv: argv}
	return nil
}

func (payload fileConfig) applyTo(cfg *Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if api := payload.API; api != nil {
		setString(&cfg.API.BaseURL, api.BaseURL)
		set(&cfg.API.TimeoutMS, api.TimeoutMS)
		setString(&cfg.API.HealthPath, api.HealthPath)
	}

	if s := payload.Session; s != nil {
		setString(&cfg.Session.Language, s.Language)
		set(&cfg.Session.QuestionCount, s.QuestionCount)
		set(&cfg.Session.MinTopicQuestions, s.MinTopicQuestions)
		setString(&cfg.Session.Identity, s.Identity)
		set(&cfg.Session.WelcomeDelayMS, s.WelcomeDelayMS)
		set(&cfg.Session.GenerationBoundMS, s.GenerationBoundMS)
		set(&cfg.Session.PollIntervalMS, s.PollIntervalMS)
		set(&cfg.Session.GenerationRetries, s.GenerationRetries)
		set(&cfg.Session.AnswerTimeoutMS, s.AnswerTimeoutMS)
		set(&cfg.Session.Video, s.Video)
		if w := s.Wait; w != nil {
			set(&cfg.Session.Wait.CorrectMS, w.CorrectMS)
			set(&cfg.Session.Wait.PartialMS, w.PartialMS)
			set(&cfg.Session.Wait.WrongMS, w.WrongMS)
		}
	}

	if a := payload.Audio; a != nil {
		set(&cfg.Audio.Input, a.Input)
		set(&cfg.Audio.Fallback, a.Fallback)
	}

	if v := payload.Video; v != nil {
		if err := setCommand(&cfg.Video.FFmpeg, v.FFmpegCmd, "video.ffmpeg_cmd"); err != nil {
			return nil, err
		}
		setString(&cfg.Video.InputFormat, v.InputFormat)
		setString(&cfg.Video.Device, v.Device)
		set(&cfg.Video.Width, v.Width)
		set(&cfg.Video.Height, v.Height)
		set(&cfg.Video.FrameRate, v.FrameRate)
		set(&cfg.Video.VideoBitrateKbps, v.VideoBitrateKbps)
		set(&cfg.Video.AudioBitrateKbps, v.AudioBitrateKbps)
		setString(&cfg.Video.AudioDevice, v.AudioDevice)
	}

	if h := payload.Host; h != nil {
		set(&cfg.Host.Voice, h.Voice)
		set(&cfg.Host.Cues, h.Cues)
		set(&cfg.Host.Notify, h.Notify)
		setString(&cfg.Host.AppName, h.AppName)
		if err := setCommand(&cfg.Host.TTS, h.TTSCmd, "host.tts_cmd"); err != nil {
			return nil, err
		}
	}

	if r := payload.Report; r != nil {
		setString(&cfg.Report.Dir, r.Dir)
		set(&cfg.Report.Open, r.Open)
	}

	if m := payload.Metrics; m != nil {
		setString(&cfg.Metrics.Listen, m.Listen)
	}

	if d := payload.Debug; d != nil {
		set(&cfg.Debug.EnableAudioDump, d.AudioDump)
	}

	return warnings, nil
}

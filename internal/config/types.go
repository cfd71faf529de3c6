// Package config resolves, parses, validates, and defaults viva configuration.
package config

// Config is the fully materialized runtime configuration used by viva.
type Config struct {
	API     APIConfig
	Session SessionConfig
	Audio   AudioConfig
	Video   VideoConfig
	Host    HostConfig
	Report  ReportConfig
	Metrics MetricsConfig
	Debug   DebugConfig
}

// APIConfig points at the training backend.
type APIConfig struct {
	BaseURL    string
	TimeoutMS  int
	HealthPath string
}

// SessionConfig controls question flow and timing.
type SessionConfig struct {
	Language          string
	QuestionCount     int
	MinTopicQuestions int
	// Identity is "lookup" (verified punch ID) or "freeform" (typed name).
	Identity          string
	WelcomeDelayMS    int
	GenerationBoundMS int
	PollIntervalMS    int
	GenerationRetries int
	AnswerTimeoutMS   int
	Wait              WaitConfig
	Video             bool
}

// WaitConfig is how long feedback stays up per classification.
type WaitConfig struct {
	CorrectMS int
	PartialMS int
	WrongMS   int
}

// AudioConfig controls preferred and fallback input-source selection.
type AudioConfig struct {
	Input    string
	Fallback string
}

// VideoConfig controls the ffmpeg camera capture.
type VideoConfig struct {
	FFmpeg           CommandConfig
	InputFormat      string
	Device           string
	Width            int
	Height           int
	FrameRate        int
	VideoBitrateKbps int
	AudioBitrateKbps int
	AudioDevice      string
}

// HostConfig controls the spoken host, cues and desktop notifications.
type HostConfig struct {
	Voice   bool
	Cues    bool
	Notify  bool
	AppName string
	TTS     CommandConfig
}

type ReportConfig struct {
	Dir  string
	Open bool
}

type MetricsConfig struct {
	Listen string
}

// DebugConfig controls optional debug artifact output.
type DebugConfig struct {
	EnableAudioDump bool
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	tts := "espeak-ng -v {voice} -s 150 --stdin"
	ffmpeg := "ffmpeg"

	return Config{
		API: APIConfig{
			BaseURL:    "http://127.0.0.1:8000",
			TimeoutMS:  30000,
			HealthPath: "/",
		},
		Session: SessionConfig{
			Language:          "Hindi",
			QuestionCount:     10,
			MinTopicQuestions: 5,
			Identity:          "lookup",
			WelcomeDelayMS:    5000,
			GenerationBoundMS: 30000,
			PollIntervalMS:    1000,
			GenerationRetries: 1,
			AnswerTimeoutMS:   0,
			Wait: WaitConfig{
				CorrectMS: 5000,
				PartialMS: 20000,
				WrongMS:   30000,
			},
			Video: true,
		},
		Audio: AudioConfig{
			Input:    "default",
			Fallback: "default",
		},
		Video: VideoConfig{
			FFmpeg:           CommandConfig{Raw: ffmpeg, Argv: mustParseArgv(ffmpeg)},
			InputFormat:      "v4l2",
			Device:           "/dev/video0",
			Width:            320,
			Height:           240,
			FrameRate:        15,
			VideoBitrateKbps: 200,
			AudioBitrateKbps: 32,
		},
		Host: HostConfig{
			Voice:   true,
			Cues:    true,
			Notify:  false,
			AppName: "viva",
			TTS:     CommandConfig{Raw: tts, Argv: mustParseArgv(tts)},
		},
		Report: ReportConfig{Open: true},
	}
}

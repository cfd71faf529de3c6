package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/rbright/viva/internal/audio"
	"github.com/rbright/viva/internal/cli"
	"github.com/rbright/viva/internal/config"
	"github.com/rbright/viva/internal/host"
	"github.com/rbright/viva/internal/ipc"
	"github.com/rbright/viva/internal/media"
	"github.com/rbright/viva/internal/metrics"
	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/pipeline"
	"github.com/rbright/viva/internal/report"
	"github.com/rbright/viva/internal/video"
	"github.com/rbright/viva/internal/viva"
)

const notifyTimeout = 8 * time.Second

func sessionConfig(cfg config.Config, lang model.Language, opts cli.StartOptions) viva.Config {
	count := cfg.Session.QuestionCount
	if opts.Questions > 0 {
		count = opts.Questions
	}
	return viva.Config{
		Language:          lang,
		QuestionCount:     count,
		GenerationRetries: cfg.Session.GenerationRetries,
		Timing: viva.Timing{
			WelcomeDelay:    millis(cfg.Session.WelcomeDelayMS),
			PollInterval:    millis(cfg.Session.PollIntervalMS),
			GenerationBound: millis(cfg.Session.GenerationBoundMS),
			AnswerTimeout:   millis(cfg.Session.AnswerTimeoutMS),
		},
		Wait: viva.WaitPolicy{
			Correct: millis(cfg.Session.Wait.CorrectMS),
			Partial: millis(cfg.Session.Wait.PartialMS),
			Wrong:   millis(cfg.Session.Wait.WrongMS),
		},
		Video: cfg.Session.Video && !opts.NoVideo,
	}
}

func videoOptions(cfg config.Config, logger *slog.Logger) video.Options {
	command := "ffmpeg"
	if len(cfg.Video.FFmpeg.Argv) > 0 {
		command = cfg.Video.FFmpeg.Argv[0]
	}
	return video.Options{
		Command:          command,
		InputFormat:      cfg.Video.InputFormat,
		Device:           cfg.Video.Device,
		AudioDevice:      cfg.Video.AudioDevice,
		Width:            cfg.Video.Width,
		Height:           cfg.Video.Height,
		FrameRate:        cfg.Video.FrameRate,
		VideoBitrateKbps: cfg.Video.VideoBitrateKbps,
		AudioBitrateKbps: cfg.Video.AudioBitrateKbps,
		Logger:           logger,
	}
}

// acquireControlSocket claims the runtime socket so other viva processes can
// drive this session. Without XDG_RUNTIME_DIR the session runs terminal-only.
func (r Runner) acquireControlSocket(ctx context.Context, logger *slog.Logger) (net.Listener, func(), error) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: control socket disabled: %v\n", err)
		logger.Warn("control socket disabled", "error", err.Error())
		return nil, func() {}, nil
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}
	return listener, release, nil
}

func (r Runner) commandStart(ctx context.Context, cfg config.Config, opts cli.StartOptions, logger *slog.Logger, m *metrics.Metrics) int {
	lang, err := model.ParseLanguage(firstNonEmpty(opts.Language, cfg.Session.Language))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	client, err := newAPIClient(cfg, logger, m)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, release, err := r.acquireControlSocket(ctx, logger)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: a viva session is already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer release()

	sessionCtx, cancelSession := context.WithCancel(ctx)
	defer cancelSession()

	if cfg.Metrics.Listen != "" {
		go func() {
			if err := metrics.Serve(sessionCtx, cfg.Metrics.Listen, m, logger); err != nil {
				logger.Warn("metrics listener failed", "error", err.Error())
			}
		}()
	}

	hostVoice := host.New(host.Options{
		Speak:      cfg.Host.Voice,
		Cues:       cfg.Host.Cues,
		Notify:     cfg.Host.Notify,
		TTSCommand: cfg.Host.TTS.Argv,
		AppName:    cfg.Host.AppName,
		Logger:     logger,
	})
	defer hostVoice.Close()

	out := newTerminal(r.Stdout, func(text string) {
		go hostVoice.Notify(sessionCtx, text, notifyTimeout)
	})
	in := newLineReader(r.Stdin)

	setup := viva.NewSetup(identitySource(cfg, opts, client), lang)
	if err := r.runSetup(sessionCtx, in, out, setup, client, cfg.Session.MinTopicQuestions, opts); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Info("setup ended", "reason", err.Error())
		return 1
	}

	mic := media.NewRecorder(&audio.Source{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Logger:   logger,
	}, logger)
	voice := pipeline.NewVoiceAnswer(mic, client, pipeline.Options{
		Language:          lang,
		TranscribeTimeout: millis(cfg.API.TimeoutMS),
		DumpAudio:         cfg.Debug.EnableAudioDump,
		Logger:            logger,
	})

	vivaCfg := sessionConfig(cfg, lang, opts)
	deps := viva.Deps{
		Questions: client,
		Evaluator: client,
		Records:   client,
		Voice:     voice,
		Host:      hostVoice,
		Observer:  out,
		Metrics:   m,
		Logger:    logger,
	}
	if vivaCfg.Video {
		deps.Video = media.NewRecorder(video.NewSource(videoOptions(cfg, logger)), logger)
	}
	controller := viva.NewController(vivaCfg, deps)

	serveErr := make(chan error, 1)
	if listener != nil {
		go func() { serveErr <- ipc.Serve(sessionCtx, listener, controller) }()
	} else {
		serveErr <- nil
	}
	go r.readCommands(sessionCtx, in, controller, out)
	out.Printf("%s", terminalHelp)

	result := controller.Run(sessionCtx, setup)
	cancelSession()
	if err := <-serveErr; err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}

	logSessionResult(logger, result)
	return r.finishSession(cfg, result, logger)
}

func (r Runner) finishSession(cfg config.Config, result viva.Result, logger *slog.Logger) int {
	switch {
	case errors.Is(result.Err, viva.ErrCancelled), errors.Is(result.Err, context.Canceled):
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	case result.Err != nil:
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}

	exit := 0
	if result.Saved {
		fmt.Fprintf(r.Stdout, "saved record %d (%s)\n", result.RecordID, result.Record.Result)
	} else if result.PersistErr != nil {
		fmt.Fprintf(r.Stderr, "error: session record not saved: %v\n", result.PersistErr)
		exit = 1
	}

	if len(result.State.Answers) == 0 {
		fmt.Fprintln(r.Stdout, "no answers recorded")
		return exit
	}

	in := report.FromState(result.State)
	in.RecordID = result.RecordID
	path, err := r.writeReport(cfg, in, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "report: %s\n", path)
	return exit
}

func logSessionResult(logger *slog.Logger, result viva.Result) {
	if logger == nil {
		return
	}
	state := result.State
	fields := []any{
		"session_id", state.ID,
		"stage", state.Stage,
		"candidate", state.Identity.Employee.Name,
		"source", state.Source.Name,
		"answered", len(state.Answers),
		"planned", state.Planned,
		"saved", result.Saved,
		"record_id", result.RecordID,
	}
	if !state.StartedAt.IsZero() {
		fields = append(fields, "started_at", state.StartedAt.Format(time.RFC3339Nano))
	}

	if result.Err != nil {
		logger.Error("session failed", append(fields, "error", result.Err.Error())...)
		return
	}
	if result.PersistErr != nil {
		fields = append(fields, "persist_error", result.PersistErr.Error())
	}
	logger.Info("session complete", fields...)
}

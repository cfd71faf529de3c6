// Package pipeline runs the spoken-answer path: record, stop, transcribe,
// normalize.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/transcript"
)

var (
	// ErrNotRecording is returned when StopAndTranscribe has nothing to stop.
	ErrNotRecording = errors.New("no answer is being recorded")
	// ErrInaudible marks a transcript too short to count as an answer.
	ErrInaudible = errors.New("answer was inaudible")
)

// Recorder is the microphone side of media.Recorder.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) (model.Blob, error)
	Cancel()
	Active() bool
}

// SpeechToText is the transcription side of api.Client.
type SpeechToText interface {
	Transcribe(ctx context.Context, blob model.Blob, lang model.Language) (string, error)
}

// Options tunes one VoiceAnswer.
type Options struct {
	Language          model.Language
	TranscribeTimeout time.Duration
	DumpAudio         bool
	Logger            *slog.Logger
}

// Result describes one finished voice capture.
type Result struct {
	Transcript      string
	BytesCaptured   int
	TranscribeDelay time.Duration
}

// VoiceAnswer owns one microphone recorder and the transcription call that
// follows it. Stop, transcribe and normalize always run in that order.
type VoiceAnswer struct {
	recorder Recorder
	stt      SpeechToText
	opts     Options

	mu sync.Mutex
}

func NewVoiceAnswer(recorder Recorder, stt SpeechToText, opts Options) *VoiceAnswer {
	if opts.TranscribeTimeout <= 0 {
		opts.TranscribeTimeout = 30 * time.Second
	}
	return &VoiceAnswer{recorder: recorder, stt: stt, opts: opts}
}

// SetLanguage changes the transcription language for later answers.
func (v *VoiceAnswer) SetLanguage(lang model.Language) {
	v.mu.Lock()
	v.opts.Language = lang
	v.mu.Unlock()
}

// Start opens the microphone.
func (v *VoiceAnswer) Start(ctx context.Context) error {
	return v.recorder.Start(ctx)
}

// Recording reports whether the microphone is capturing.
func (v *VoiceAnswer) Recording() bool {
	return v.recorder.Active()
}

// StopAndTranscribe releases the microphone and turns the captured audio
// into normalized text. Inaudible speech yields ErrInaudible alongside the
// partial result.
func (v *VoiceAnswer) StopAndTranscribe(ctx context.Context) (Result, error) {
	if !v.recorder.Active() {
		return Result{}, ErrNotRecording
	}

	blob, err := v.recorder.Stop(ctx)
	if err != nil && blob.Empty() {
		return Result{}, fmt.Errorf("stop recording: %w", err)
	}
	if err != nil {
		v.logWarn("recorder closed with error", err)
	}
	v.dumpAudio(blob)

	result := Result{BytesCaptured: len(blob.Data)}
	if blob.Empty() {
		return result, ErrInaudible
	}

	v.mu.Lock()
	lang := v.opts.Language
	v.mu.Unlock()

	sttCtx, cancel := context.WithTimeout(ctx, v.opts.TranscribeTimeout)
	defer cancel()

	started := time.Now()
	raw, err := v.stt.Transcribe(sttCtx, blob, lang)
	result.TranscribeDelay = time.Since(started)
	if err != nil {
		return result, fmt.Errorf("transcribe answer: %w", err)
	}

	result.Transcript = transcript.Normalize(raw)
	if transcript.IsInaudible(result.Transcript) {
		return result, ErrInaudible
	}
	return result, nil
}

// Cancel releases the microphone and drops any captured audio.
func (v *VoiceAnswer) Cancel() {
	v.recorder.Cancel()
}

func (v *VoiceAnswer) logWarn(message string, err error) {
	if v.opts.Logger == nil {
		return
	}
	v.opts.Logger.Warn(message, "error", err.Error())
}

// dumpAudio keeps a copy of the uploaded WAV under state/viva/debug when
// debug.audio_dump is enabled.
func (v *VoiceAnswer) dumpAudio(blob model.Blob) {
	if !v.opts.DumpAudio || blob.Empty() {
		return
	}

	file, err := createDebugFile("answer", "wav")
	if err != nil {
		v.logWarn("unable to create debug audio dump", err)
		return
	}
	defer file.Close()

	if _, err := file.Write(blob.Data); err != nil {
		v.logWarn("unable to write debug audio dump", err)
	}
}

func createDebugFile(prefix string, extension string) (*os.File, error) {
	stateDir, err := resolveStateDir()
	if err != nil {
		return nil, err
	}
	debugDir := filepath.Join(stateDir, "viva", "debug")
	if err := os.MkdirAll(debugDir, 0o700); err != nil {
		return nil, fmt.Errorf("create debug dir: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405.000")
	path := filepath.Join(debugDir, fmt.Sprintf("%s-%s.%s", prefix, timestamp, extension))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open debug file %q: %w", path, err)
	}
	return file, nil
}

func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}

// Package host is the interviewer's voice: spoken lines through a TTS
// command, synthesized answer cues and optional desktop notifications.
package host

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rbright/viva/internal/model"
)

// DefaultTTSCommand speaks stdin with espeak-ng. {voice} expands to the
// session language code.
var DefaultTTSCommand = []string{"espeak-ng", "-v", "{voice}", "-s", "150", "--stdin"}

// Options configures a Host.
type Options struct {
	Speak      bool
	Cues       bool
	Notify     bool
	TTSCommand []string
	AppName    string
	Logger     *slog.Logger
}

// Host speaks one utterance at a time; a new line or Silence cuts off the
// current one.
type Host struct {
	opts Options

	mu         sync.Mutex
	cancel     context.CancelFunc
	speechDone chan struct{}

	notifyMu sync.Mutex
	notifyID uint32

	cueMu sync.Mutex
}

func New(opts Options) *Host {
	if len(opts.TTSCommand) == 0 {
		opts.TTSCommand = DefaultTTSCommand
	}
	if strings.TrimSpace(opts.AppName) == "" {
		opts.AppName = "viva"
	}
	return &Host{opts: opts}
}

// Say replaces any utterance in progress with text.
func (h *Host) Say(text string, lang model.Language) {
	h.Silence()

	text = strings.TrimSpace(text)
	if !h.opts.Speak || text == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	h.mu.Lock()
	h.cancel = cancel
	h.speechDone = done
	h.mu.Unlock()

	argv := expandArgv(h.opts.TTSCommand, lang)
	go func() {
		defer close(done)
		if err := runCommandWithInput(ctx, argv, text); err != nil && ctx.Err() == nil {
			h.log("speech playback failed", err)
		}
	}()
}

// Speaking reports whether an utterance is still playing.
func (h *Host) Speaking() bool {
	h.mu.Lock()
	done := h.speechDone
	h.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Silence stops the current utterance and waits for the TTS process to exit.
func (h *Host) Silence() {
	h.mu.Lock()
	cancel := h.cancel
	done := h.speechDone
	h.cancel = nil
	h.speechDone = nil
	h.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Cue plays an answer cue asynchronously. Cues never overlap.
func (h *Host) Cue(kind Cue) {
	if !h.opts.Cues {
		return
	}
	go func() {
		h.cueMu.Lock()
		defer h.cueMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := emitCue(ctx, kind, h.opts.AppName); err != nil {
			h.log("audio cue failed", err)
		}
	}()
}

// Notify shows text as a replaceable desktop notification.
func (h *Host) Notify(ctx context.Context, text string, timeout time.Duration) {
	if !h.opts.Notify || strings.TrimSpace(text) == "" {
		return
	}

	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()

	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()
	id, err := desktopNotify(runCtx, h.opts.AppName, h.notifyID, text, int(timeout.Milliseconds()))
	if err != nil {
		h.log("desktop notification failed", err)
		return
	}
	h.notifyID = id
}

// Close silences speech and dismisses the last notification.
func (h *Host) Close() {
	h.Silence()

	h.notifyMu.Lock()
	id := h.notifyID
	h.notifyID = 0
	h.notifyMu.Unlock()
	if id == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	if err := desktopDismiss(ctx, id); err != nil {
		h.log("desktop dismiss failed", err)
	}
}

func (h *Host) log(message string, err error) {
	if h.opts.Logger == nil || err == nil {
		return
	}
	h.opts.Logger.Debug(message, "error", err.Error())
}

package media

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/model"
)

const cancelDrainTimeout = 2 * time.Second

// Recorder drives one Source through idle → requesting → active →
// stopping → idle.
type Recorder struct {
	source Source
	logger *slog.Logger

	mu      sync.Mutex
	state   fsm.RecorderState
	stream  Stream
	buffer  *Buffer
	drained chan struct{}
}

func NewRecorder(source Source, logger *slog.Logger) *Recorder {
	return &Recorder{
		source: source,
		logger: logger,
		state:  fsm.RecorderIdle,
	}
}

func (r *Recorder) Kind() Kind {
	return r.source.Kind()
}

func (r *Recorder) State() fsm.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Active reports whether a stream is open and capturing.
func (r *Recorder) Active() bool {
	return r.State() == fsm.RecorderActive
}

// Start acquires the device. It is rejected unless the recorder is idle; an
// open failure returns the recorder to idle with a *DeviceError.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	next, err := fsm.RecorderTransition(r.state, fsm.EventRequest)
	if err != nil {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.state = next
	r.mu.Unlock()

	stream, openErr := r.source.Open(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if openErr != nil {
		r.state, _ = fsm.RecorderTransition(r.state, fsm.EventDeny)
		r.log("recorder open failed", "error", openErr.Error())
		return &DeviceError{Kind: r.source.Kind(), Err: openErr}
	}

	r.state, _ = fsm.RecorderTransition(r.state, fsm.EventGrant)
	r.stream = stream
	r.buffer = NewBuffer()
	r.drained = make(chan struct{})
	go drain(stream, r.buffer, r.drained)
	r.log("recorder started")
	return nil
}

func drain(stream Stream, buffer *Buffer, done chan<- struct{}) {
	defer close(done)
	for chunk := range stream.Chunks() {
		buffer.Append(chunk)
	}
}

// Stop releases the device and returns the captured media. Stopping an idle
// recorder is a no-op returning an empty Blob.
func (r *Recorder) Stop(ctx context.Context) (model.Blob, error) {
	stream, buffer, drained, ok := r.beginStop()
	if !ok {
		return model.Blob{}, nil
	}
	defer r.finishStop()

	closeErr := stream.Close()
	select {
	case <-drained:
	case <-ctx.Done():
		buffer.Discard()
		return model.Blob{}, fmt.Errorf("stop %s recorder: %w", r.source.Kind(), ctx.Err())
	}

	blob := r.source.Finalize(buffer.Flush())
	r.log("recorder stopped", "bytes", len(blob.Data))
	if closeErr != nil {
		return blob, fmt.Errorf("close %s stream: %w", r.source.Kind(), closeErr)
	}
	return blob, nil
}

// Cancel releases the device and drops captured data. It is safe to defer
// on every exit path.
func (r *Recorder) Cancel() {
	stream, buffer, drained, ok := r.beginStop()
	if !ok {
		return
	}
	defer r.finishStop()

	if err := stream.Close(); err != nil {
		r.log("recorder close failed", "error", err.Error())
	}
	select {
	case <-drained:
	case <-time.After(cancelDrainTimeout):
		r.log("recorder drain timed out")
	}
	buffer.Discard()
	r.log("recorder cancelled")
}

func (r *Recorder) beginStop() (Stream, *Buffer, chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fsm.RecorderTransition(r.state, fsm.EventStop)
	if err != nil {
		return nil, nil, nil, false
	}
	r.state = next
	return r.stream, r.buffer, r.drained, true
}

func (r *Recorder) finishStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state, _ = fsm.RecorderTransition(r.state, fsm.EventRelease)
	r.stream = nil
	r.buffer = nil
	r.drained = nil
}

func (r *Recorder) log(msg string, args ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, append([]any{"kind", string(r.source.Kind())}, args...)...)
}

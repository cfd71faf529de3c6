// Package media owns capture device lifecycles: a Recorder acquires one
// stream, buffers its chunks and hands them off as a single Blob.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/rbright/viva/internal/model"
)

// Kind identifies the stream a recorder drives.
type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ErrAlreadyRecording is returned by Start unless the recorder is idle.
var ErrAlreadyRecording = errors.New("recorder is already active")

// DeviceError reports that a capture device could not be acquired.
type DeviceError struct {
	Kind Kind
	Err  error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s device unavailable: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Source acquires a device and knows how to package its raw bytes.
type Source interface {
	Kind() Kind
	Open(ctx context.Context) (Stream, error)
	Finalize(data []byte) model.Blob
}

// Stream is one open capture. Chunks is closed once the stream ends;
// Close releases every device handle.
type Stream interface {
	Chunks() <-chan []byte
	Close() error
}

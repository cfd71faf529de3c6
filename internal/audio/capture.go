package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

const (
	// SampleRate is the capture rate the speech-to-text endpoint expects.
	SampleRate = 16000
	frameBytes = 640 // 20ms @ 16kHz mono s16
)

// Capture is one open Pulse record stream emitting fixed-size PCM frames.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	frames chan []byte
	done   chan struct{}

	mu       sync.Mutex
	residual []byte
	closed   bool

	writers sync.WaitGroup
	total   atomic.Int64
}

// StartCapture opens a 16kHz mono s16 record stream on device. The stream
// is closed when ctx ends.
func StartCapture(ctx context.Context, device Device) (*Capture, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(device.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", device.ID, err)
	}

	c := newCapture(device)
	c.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(pcmSink(c.write), pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(frameBytes),
		pulse.RecordMediaName("viva answer"),
	)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	c.stream = stream
	stream.Start()

	go func() {
		select {
		case <-ctx.Done():
			_ = c.Close()
		case <-c.done:
		}
	}()
	return c, nil
}

func newCapture(device Device) *Capture {
	return &Capture{
		device: device,
		frames: make(chan []byte, 128),
		done:   make(chan struct{}),
	}
}

func (c *Capture) Device() Device {
	return c.device
}

// Chunks yields PCM frames until Close.
func (c *Capture) Chunks() <-chan []byte {
	return c.frames
}

// BytesCaptured reports the PCM bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.total.Load()
}

// Close stops the record stream, releases the Pulse connection, emits any
// partial frame and closes Chunks. Repeated calls are no-ops.
func (c *Capture) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	c.writers.Wait()

	c.mu.Lock()
	tail := c.residual
	c.residual = nil
	c.mu.Unlock()

	if len(tail) > 0 {
		select {
		case c.frames <- tail:
		default:
		}
	}
	close(c.frames)
	return nil
}

// write receives raw PCM from Pulse and slices it into frames.
func (c *Capture) write(pcm []byte) (int, error) {
	if len(pcm) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under the same lock as closed so Close never races Wait.
	c.writers.Add(1)
	c.residual = append(c.residual, pcm...)
	var ready [][]byte
	for len(c.residual) >= frameBytes {
		frame := make([]byte, frameBytes)
		copy(frame, c.residual[:frameBytes])
		c.residual = c.residual[frameBytes:]
		ready = append(ready, frame)
	}
	c.mu.Unlock()
	defer c.writers.Done()

	c.total.Add(int64(len(pcm)))
	for _, frame := range ready {
		select {
		case <-c.done:
			return 0, io.EOF
		case c.frames <- frame:
		}
	}
	return len(pcm), nil
}

// pcmSink adapts a function to io.Writer for pulse.NewWriter.
type pcmSink func([]byte) (int, error)

func (f pcmSink) Write(b []byte) (int, error) {
	return f(b)
}

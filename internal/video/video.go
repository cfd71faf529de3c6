// Package video records the candidate's camera as a low-bitrate WebM stream
// produced by an ffmpeg subprocess.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rbright/viva/internal/media"
	"github.com/rbright/viva/internal/model"
)

const (
	startupGrace = 250 * time.Millisecond
	stopGrace    = 1200 * time.Millisecond
)

// Options selects the capture devices and encoder budget.
type Options struct {
	Command          string
	InputFormat      string
	Device           string
	AudioFormat      string
	AudioDevice      string
	Width            int
	Height           int
	FrameRate        int
	VideoBitrateKbps int
	AudioBitrateKbps int
	Logger           *slog.Logger
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.Command) == "" {
		o.Command = "ffmpeg"
	}
	if o.InputFormat == "" {
		o.InputFormat = "v4l2"
	}
	if o.Device == "" {
		o.Device = "/dev/video0"
	}
	if o.AudioFormat == "" {
		o.AudioFormat = "pulse"
	}
	if o.Width <= 0 {
		o.Width = 320
	}
	if o.Height <= 0 {
		o.Height = 240
	}
	if o.FrameRate <= 0 {
		o.FrameRate = 15
	}
	if o.VideoBitrateKbps <= 0 {
		o.VideoBitrateKbps = 200
	}
	if o.AudioBitrateKbps <= 0 {
		o.AudioBitrateKbps = 32
	}
	return o
}

// args builds the ffmpeg command line. An empty AudioDevice records video only.
func (o Options) args() []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", o.InputFormat,
		"-framerate", strconv.Itoa(o.FrameRate),
		"-video_size", fmt.Sprintf("%dx%d", o.Width, o.Height),
		"-i", o.Device,
	}
	if o.AudioDevice != "" {
		args = append(args, "-f", o.AudioFormat, "-i", o.AudioDevice)
	}
	args = append(args,
		"-c:v", "libvpx",
		"-b:v", fmt.Sprintf("%dk", o.VideoBitrateKbps),
		"-deadline", "realtime",
		"-cpu-used", "8",
	)
	if o.AudioDevice != "" {
		args = append(args, "-c:a", "libopus", "-b:a", fmt.Sprintf("%dk", o.AudioBitrateKbps))
	} else {
		args = append(args, "-an")
	}
	return append(args, "-f", "webm", "-")
}

// Source is the camera as a media.Source.
type Source struct {
	opts Options
}

func NewSource(opts Options) *Source {
	return &Source{opts: opts.withDefaults()}
}

func (s *Source) Kind() media.Kind {
	return media.KindVideo
}

// Open starts ffmpeg and waits briefly so a missing camera fails here
// rather than producing an empty recording.
func (s *Source) Open(ctx context.Context) (media.Stream, error) {
	cmd := exec.CommandContext(ctx, s.opts.Command, s.opts.args()...)

	st := &stream{
		chunks:  make(chan []byte, 64),
		waitErr: make(chan error, 1),
	}
	cmd.Stdout = chunkWriter{st.chunks}
	cmd.Stderr = &st.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	st.process = cmd.Process

	go func() {
		err := cmd.Wait()
		close(st.chunks)
		st.waitErr <- err
		close(st.waitErr)
	}()

	select {
	case err := <-st.waitErr:
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, strings.TrimSpace(st.stderr.String()))
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-time.After(startupGrace):
	}

	if s.opts.Logger != nil {
		s.opts.Logger.Debug("video capture started", "device", s.opts.Device, "pid", cmd.Process.Pid)
	}
	return st, nil
}

func (s *Source) Finalize(data []byte) model.Blob {
	return model.Blob{MIMEType: "video/webm", Filename: "viva_recording.webm", Data: data}
}

// chunkWriter forwards every ffmpeg write as an owned chunk. exec waits for
// this copy to finish before Wait returns, so no trailing bytes are lost.
type chunkWriter struct {
	out chan<- []byte
}

func (w chunkWriter) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	w.out <- cp
	return len(p), nil
}

type stream struct {
	process *os.Process
	chunks  chan []byte
	waitErr chan error
	stderr  bytes.Buffer

	stopOnce sync.Once
	stopErr  error
}

func (s *stream) Chunks() <-chan []byte {
	return s.chunks
}

// Close asks ffmpeg to finalize the container, escalating to Kill after a
// grace period.
func (s *stream) Close() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		var err error
		select {
		case err = <-s.waitErr:
		case <-time.After(stopGrace):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err = <-s.waitErr
		}

		s.stopErr = normalizeExit(err)
		if s.stopErr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, strings.TrimSpace(s.stderr.String()))
		}
	})
	return s.stopErr
}

// normalizeExit treats a non-zero exit after an interrupt as a clean stop.
func normalizeExit(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"log/slog"
	"sync"

	"github.com/rbright/viva/internal/media"
	"github.com/rbright/viva/internal/model"
)

// Source is the microphone as a media.Source. Every Open re-resolves the
// configured device so unplugged microphones surface as device errors.
type Source struct {
	Input    string
	Fallback string
	Logger   *slog.Logger

	mu        sync.Mutex
	selection Selection
}

func (s *Source) Kind() media.Kind {
	return media.KindAudio
}

func (s *Source) Open(ctx context.Context) (media.Stream, error) {
	selection, err := SelectDevice(ctx, s.Input, s.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn(selection.Warning)
	}

	s.mu.Lock()
	s.selection = selection
	s.mu.Unlock()

	capture, err := StartCapture(ctx, selection.Device)
	if err != nil {
		return nil, err
	}
	return capture, nil
}

// Selection returns the device chosen by the last successful Open.
func (s *Source) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Finalize wraps captured PCM in a WAV container.
func (s *Source) Finalize(pcm []byte) model.Blob {
	if len(pcm) == 0 {
		return model.Blob{MIMEType: "audio/wav", Filename: "answer.wav"}
	}
	return model.Blob{
		MIMEType: "audio/wav",
		Filename: "answer.wav",
		Data:     EncodeWAV(pcm, SampleRate, 1),
	}
}

// EncodeWAV prefixes little-endian 16-bit PCM with a canonical 44-byte header.
func EncodeWAV(pcm []byte, sampleRate int, channels int) []byte {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	blockAlign := channels * bitsPerSample / 8

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

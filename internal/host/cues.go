package host

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jfreymuth/pulse"
)

// Cue is a short synthesized tone marking a session event.
type Cue int

const (
	CueListening Cue = iota + 1
	CueStopped
	CueCorrect
	CuePartial
	CueWrong
	CueFinished
)

const cueSampleRate = 16000

type tone struct {
	hz     float64
	length time.Duration
	volume float64
}

var cuePCM = map[Cue][]int16{
	CueListening: synthesize(tone{880, 70 * time.Millisecond, 0.18}, tone{1175, 70 * time.Millisecond, 0.18}),
	CueStopped:   synthesize(tone{620, 120 * time.Millisecond, 0.18}),
	CueCorrect:   synthesize(tone{740, 65 * time.Millisecond, 0.18}, tone{988, 65 * time.Millisecond, 0.18}, tone{1319, 90 * time.Millisecond, 0.18}),
	CuePartial:   synthesize(tone{660, 90 * time.Millisecond, 0.16}, tone{660, 90 * time.Millisecond, 0.16}),
	CueWrong:     synthesize(tone{480, 75 * time.Millisecond, 0.18}, tone{360, 110 * time.Millisecond, 0.18}),
	CueFinished:  synthesize(tone{523, 80 * time.Millisecond, 0.16}, tone{659, 80 * time.Millisecond, 0.16}, tone{784, 140 * time.Millisecond, 0.16}),
}

// CueFor maps an evaluation bucket to its cue.
func CueFor(correct bool, partial bool) Cue {
	switch {
	case correct:
		return CueCorrect
	case partial:
		return CuePartial
	default:
		return CueWrong
	}
}

func emitCue(ctx context.Context, kind Cue, appName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	samples := cuePCM[kind]
	if len(samples) == 0 {
		return nil
	}

	client, err := pulse.NewClient(
		pulse.ClientApplicationName(appName),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	cursor := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if ctx.Err() != nil || cursor >= len(samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, samples[cursor:])
		cursor += n
		if cursor >= len(samples) {
			return n, pulse.EndOfData
		}
		return n, nil
	})

	stream, err := client.NewPlayback(
		reader,
		pulse.PlaybackMono,
		pulse.PlaybackSampleRate(cueSampleRate),
		pulse.PlaybackLatency(0.02),
		pulse.PlaybackMediaName("viva cue"),
	)
	if err != nil {
		return fmt.Errorf("create pulse playback stream: %w", err)
	}
	defer stream.Close()

	stream.Start()
	stream.Drain()
	if err := stream.Error(); err != nil {
		return fmt.Errorf("play cue stream: %w", err)
	}
	return ctx.Err()
}

// synthesize renders tones separated by short gaps.
func synthesize(parts ...tone) []int16 {
	gap := make([]int16, sampleCount(22*time.Millisecond))
	var pcm []int16
	for i, part := range parts {
		if i > 0 {
			pcm = append(pcm, gap...)
		}
		pcm = append(pcm, render(part)...)
	}
	return pcm
}

// render produces one sine tone with a 5ms linear attack and release.
func render(t tone) []int16 {
	n := sampleCount(t.length)
	if n <= 0 || t.hz <= 0 || t.volume <= 0 {
		return nil
	}

	ramp := min(max(n/10, 1), cueSampleRate/200)
	pcm := make([]int16, n)
	for i := range pcm {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		phase := 2 * math.Pi * t.hz * float64(i) / cueSampleRate
		pcm[i] = int16(math.Round(math.Sin(phase) * t.volume * envelope * math.MaxInt16))
	}
	return pcm
}

func sampleCount(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * cueSampleRate))
}

package viva

import (
	"errors"
	"fmt"
	"time"

	"github.com/rbright/viva/internal/model"
)

// Timing holds the session delays and bounds.
type Timing struct {
	WelcomeDelay    time.Duration
	PollInterval    time.Duration
	GenerationBound time.Duration
	// AnswerTimeout skips an unanswered question; zero disables it.
	AnswerTimeout   time.Duration
	EvaluateTimeout time.Duration
	PersistTimeout  time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		WelcomeDelay:    5 * time.Second,
		PollInterval:    time.Second,
		GenerationBound: 30 * time.Second,
		EvaluateTimeout: 45 * time.Second,
		PersistTimeout:  2 * time.Minute,
	}
}

func (t Timing) withDefaults() Timing {
	def := DefaultTiming()
	if t.WelcomeDelay < 0 {
		t.WelcomeDelay = 0
	}
	if t.PollInterval <= 0 {
		t.PollInterval = def.PollInterval
	}
	if t.GenerationBound <= 0 {
		t.GenerationBound = def.GenerationBound
	}
	if t.AnswerTimeout < 0 {
		t.AnswerTimeout = 0
	}
	if t.EvaluateTimeout <= 0 {
		t.EvaluateTimeout = def.EvaluateTimeout
	}
	if t.PersistTimeout <= 0 {
		t.PersistTimeout = def.PersistTimeout
	}
	return t
}

// WaitPolicy is how long the waiting stage lingers on each classification
// before the next question.
type WaitPolicy struct {
	Correct time.Duration
	Partial time.Duration
	Wrong   time.Duration
}

func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Correct: 5 * time.Second,
		Partial: 20 * time.Second,
		Wrong:   30 * time.Second,
	}
}

// For returns the wait duration after an answer classified as class.
func (p WaitPolicy) For(class model.Classification) time.Duration {
	switch class {
	case model.Correct:
		return p.Correct
	case model.Partial:
		return p.Partial
	default:
		return p.Wrong
	}
}

// Validate requires non-negative waits ordered correct <= partial <= wrong.
func (p WaitPolicy) Validate() error {
	var errs []error
	if p.Correct < 0 || p.Partial < 0 || p.Wrong < 0 {
		errs = append(errs, errors.New("wait durations must be >= 0"))
	}
	if p.Correct > p.Partial {
		errs = append(errs, fmt.Errorf("correct wait %s exceeds partial wait %s", p.Correct, p.Partial))
	}
	if p.Partial > p.Wrong {
		errs = append(errs, fmt.Errorf("partial wait %s exceeds wrong wait %s", p.Partial, p.Wrong))
	}
	return errors.Join(errs...)
}

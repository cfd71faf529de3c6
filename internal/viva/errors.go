package viva

import (
	"errors"

	"github.com/rbright/viva/internal/pipeline"
)

var (
	// ErrInaudible marks a spoken answer too short to evaluate.
	ErrInaudible = pipeline.ErrInaudible

	ErrSessionActive   = errors.New("a viva session is already running")
	ErrNoSession       = errors.New("no active viva session")
	ErrSetupIncomplete = errors.New("verify the candidate and choose a question source first")
	ErrNoQuestions     = errors.New("no questions became available")
	ErrBusy            = errors.New("an answer is already being processed")
	ErrMicUnavailable  = errors.New("microphone unavailable for this session")
)

// ErrCancelled is the Run result after a quit command.
var ErrCancelled = errors.New("viva cancelled")

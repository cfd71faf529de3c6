package viva

import (
	"time"

	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/model"
)

// Snapshot is a read-only view of the session for presentation.
type Snapshot struct {
	SessionID      string         `json:"session_id,omitempty"`
	Stage          fsm.Stage      `json:"stage"`
	Candidate      string         `json:"candidate,omitempty"`
	Source         string         `json:"source,omitempty"`
	Language       model.Language `json:"language,omitempty"`
	QuestionNumber int            `json:"question_number,omitempty"`
	Planned        int            `json:"planned,omitempty"`
	Available      int            `json:"available"`
	Question       string         `json:"question,omitempty"`
	Level          string         `json:"level,omitempty"`
	Awaiting       bool           `json:"awaiting,omitempty"`
	HostMessage    string         `json:"host_message,omitempty"`
	Mood           model.Mood     `json:"mood,omitempty"`
	Feedback       string         `json:"feedback,omitempty"`
	LastScore      int            `json:"last_score,omitempty"`
	LastClass      string         `json:"last_classification,omitempty"`
	Answered       int            `json:"answered"`
	Recording      bool           `json:"recording,omitempty"`
	Busy           bool           `json:"busy,omitempty"`
	MicUnavailable bool           `json:"mic_unavailable,omitempty"`
	WaitUntil      time.Time      `json:"wait_until,omitzero"`
	Tally          *model.Tally   `json:"tally,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// Observer receives every published snapshot. Observe runs on the
// controller loop and must not block.
type Observer interface {
	Observe(Snapshot)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Observe(s Snapshot) { f(s) }

// SnapshotOf renders state for presentation.
func SnapshotOf(s SessionState) Snapshot {
	snap := Snapshot{
		SessionID:      s.ID,
		Stage:          s.Stage,
		Candidate:      s.Identity.Employee.Name,
		Source:         s.Source.Name,
		Language:       s.Language,
		Planned:        s.Planned,
		Available:      len(s.Questions),
		Awaiting:       s.Awaiting,
		HostMessage:    s.HostMessage,
		Mood:           s.Mood,
		Feedback:       s.Feedback,
		Answered:       len(s.Answers),
		Recording:      s.Recording,
		Busy:           s.Busy,
		MicUnavailable: s.MicUnavailable,
		WaitUntil:      s.WaitUntil,
		Error:          s.Error,
	}

	if s.Stage == fsm.StagePlaying || s.Stage == fsm.StageWaiting {
		snap.QuestionNumber = s.CurrentIndex + 1
		if q, ok := s.Current(); ok && !s.Awaiting {
			snap.Question = q.Text
			snap.Level = q.Level.String()
		}
	}
	if s.Stage == fsm.StageWaiting && len(s.Answers) > 0 {
		last := s.Answers[len(s.Answers)-1]
		snap.LastScore = last.Score
		snap.LastClass = string(last.Classification)
	}
	if s.Stage == fsm.StageSummary {
		if tally, err := s.Tally(); err == nil {
			snap.Tally = &tally
		}
	}
	return snap
}

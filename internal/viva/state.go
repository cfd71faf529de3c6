package viva

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rbright/viva/internal/fsm"
	"github.com/rbright/viva/internal/model"
)

// GenerationStatus tracks the background question request.
type GenerationStatus string

const (
	GenerationPending GenerationStatus = "pending"
	GenerationRunning GenerationStatus = "running"
	GenerationDone    GenerationStatus = "done"
	GenerationFailed  GenerationStatus = "failed"
)

// Identity is the candidate a session runs for.
type Identity struct {
	Employee model.Employee `json:"employee"`
	Verified bool           `json:"verified"`
}

// SessionState is the whole interview. The Controller owns it; the
// functions below return updated copies and never share slices with their
// input.
type SessionState struct {
	ID       string         `json:"id"`
	Stage    fsm.Stage      `json:"stage"`
	Identity Identity       `json:"identity"`
	Source   model.Source   `json:"source"`
	Language model.Language `json:"language"`
	Planned  int            `json:"planned"`

	Questions    []model.Question     `json:"questions"`
	CurrentIndex int                  `json:"current_index"`
	Presented    int                  `json:"presented"`
	LastAnswered int                  `json:"last_answered"`
	Answers      []model.AnswerRecord `json:"answers"`

	Generation         GenerationStatus `json:"generation"`
	GenerationAttempts int              `json:"generation_attempts"`
	Awaiting           bool             `json:"awaiting"`

	Recording      bool      `json:"recording"`
	Busy           bool      `json:"busy"`
	MicUnavailable bool      `json:"mic_unavailable"`
	WaitUntil      time.Time `json:"wait_until,omitzero"`

	HostMessage string     `json:"host_message"`
	Mood        model.Mood `json:"mood"`
	Feedback    string     `json:"feedback,omitempty"`
	Error       string     `json:"error,omitempty"`

	StartedAt   time.Time `json:"started_at,omitzero"`
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// NewSessionState returns a fresh state in setup.
func NewSessionState(id string, identity Identity, src model.Source, lang model.Language, planned int) SessionState {
	return SessionState{
		ID:           id,
		Stage:        fsm.StageSetup,
		Identity:     identity,
		Source:       src,
		Language:     lang,
		Planned:      planned,
		LastAnswered: -1,
		Generation:   GenerationPending,
		Mood:         model.MoodNeutral,
	}
}

func (s SessionState) apply(event fsm.Event) (SessionState, error) {
	next, err := fsm.Transition(s.Stage, event)
	if err != nil {
		return s, err
	}
	s.Stage = next
	return s, nil
}

// Start moves setup to welcome.
func Start(s SessionState, now time.Time) (SessionState, error) {
	if !s.Source.Valid() {
		return s, errors.New("session has no question source")
	}
	if s.Planned <= 0 {
		return s, errors.New("session needs a positive question count")
	}
	next, err := s.apply(fsm.EventStart)
	if err != nil {
		return s, err
	}
	next.StartedAt = now
	next.Generation = GenerationRunning
	next.GenerationAttempts = 1
	return next, nil
}

// AddQuestions appends generated questions, keeping at most Planned.
func AddQuestions(s SessionState, questions []model.Question) SessionState {
	room := s.Planned - len(s.Questions)
	if room <= 0 || len(questions) == 0 {
		return s
	}
	if len(questions) > room {
		questions = questions[:room]
	}
	s.Questions = append(slices.Clone(s.Questions), questions...)
	return s
}

// Begin moves welcome to playing once at least one question exists.
func Begin(s SessionState) (SessionState, error) {
	if len(s.Questions) == 0 {
		return s, ErrNoQuestions
	}
	return s.apply(fsm.EventBegin)
}

// Current returns the question at CurrentIndex.
func (s SessionState) Current() (model.Question, bool) {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return model.Question{}, false
	}
	return s.Questions[s.CurrentIndex], true
}

// Exhausted reports that no further question can be presented. A partial
// batch leaves room for another request, so it does not exhaust the session.
func (s SessionState) Exhausted() bool {
	if s.CurrentIndex >= s.Planned {
		return true
	}
	if s.CurrentIndex < len(s.Questions) {
		return false
	}
	if s.Generation == GenerationDone {
		return len(s.Questions) >= s.Planned
	}
	return s.Generation == GenerationFailed
}

// Present marks the current question as shown.
func Present(s SessionState) (SessionState, error) {
	if s.Stage != fsm.StagePlaying {
		return s, fmt.Errorf("cannot present a question in stage %s", s.Stage)
	}
	if _, ok := s.Current(); !ok {
		return s, fmt.Errorf("question %d is not available", s.CurrentIndex+1)
	}
	s.Awaiting = false
	s.Presented = max(s.Presented, s.CurrentIndex+1)
	return s, nil
}

// RecordAnswer appends one answer for the presented question and moves to
// waiting. A question is answered at most once.
func RecordAnswer(s SessionState, record model.AnswerRecord) (SessionState, error) {
	if s.Stage != fsm.StagePlaying {
		return s, fmt.Errorf("cannot record an answer in stage %s", s.Stage)
	}
	if s.CurrentIndex >= s.Presented {
		return s, fmt.Errorf("question %d was never presented", s.CurrentIndex+1)
	}
	if s.CurrentIndex <= s.LastAnswered {
		return s, fmt.Errorf("question %d already answered", s.CurrentIndex+1)
	}
	if len(s.Answers) >= s.Presented {
		return s, errors.New("more answers than presented questions")
	}

	next, err := s.apply(fsm.EventAnswer)
	if err != nil {
		return s, err
	}
	next.Answers = append(slices.Clone(s.Answers), record)
	next.LastAnswered = s.CurrentIndex
	return next, nil
}

// Advance moves past the current question, answered or not.
func Advance(s SessionState) (SessionState, error) {
	next, err := s.apply(fsm.EventAdvance)
	if err != nil {
		return s, err
	}
	next.CurrentIndex++
	next.WaitUntil = time.Time{}
	next.Feedback = ""
	return next, nil
}

// Finish moves to summary. It refuses a session with no answers.
func Finish(s SessionState, now time.Time) (SessionState, error) {
	if len(s.Answers) == 0 {
		return s, model.ErrNoAnswers
	}
	next, err := s.apply(fsm.EventFinish)
	if err != nil {
		return s, err
	}
	next.CompletedAt = now
	next.Awaiting = false
	next.Recording = false
	next.Busy = false
	next.WaitUntil = time.Time{}
	return next, nil
}

// Abort returns the session to setup, keeping only the explanation.
func Abort(s SessionState, message string) SessionState {
	next, err := s.apply(fsm.EventReset)
	if err != nil {
		next = s
		next.Stage = fsm.StageSetup
	}
	next.Awaiting = false
	next.Recording = false
	next.Busy = false
	next.WaitUntil = time.Time{}
	next.HostMessage = message
	next.Mood = model.MoodNeutral
	next.Error = message
	return next
}

// Tally summarizes the recorded answers.
func (s SessionState) Tally() (model.Tally, error) {
	return model.Summarize(s.Answers)
}

// Duration is the elapsed session time, measured to now while running.
func (s SessionState) Duration(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := s.CompletedAt
	if end.IsZero() {
		end = now
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// Record builds the persisted form of a finished session.
func (s SessionState) Record() (model.SessionRecord, error) {
	tally, err := s.Tally()
	if err != nil {
		return model.SessionRecord{}, err
	}
	return model.SessionRecord{
		Employee:        s.Identity.Employee,
		Source:          s.Source,
		Tally:           tally,
		Language:        s.Language,
		DurationSeconds: int(s.Duration(s.CompletedAt).Seconds()),
		StartedAt:       s.StartedAt,
		CompletedAt:     s.CompletedAt,
		Answers:         slices.Clone(s.Answers),
		Result:          model.Verdict(tally.Percent),
	}, nil
}

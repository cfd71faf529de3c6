package model

import "time"

// PassPercent is the score at or above which a record counts as a pass.
const PassPercent = 60

// Verdict returns the backend result label for a percent score.
func Verdict(percent int) string {
	if percent >= PassPercent {
		return "Pass"
	}
	return "Fail"
}

// SessionRecord is the persisted form of a finished viva.
type SessionRecord struct {
	ID              int
	Employee        Employee
	Source          Source
	Tally           Tally
	Language        Language
	DurationSeconds int
	StartedAt       time.Time
	CompletedAt     time.Time
	Answers         []AnswerRecord
	Result          string
	VideoPath       string
}

// Recount rebuilds the tally from the stored answer log.
func (r SessionRecord) Recount() (Tally, error) {
	return Summarize(r.Answers)
}

// ResultLabel returns the stored verdict, deriving it when absent.
func (r SessionRecord) ResultLabel() string {
	if r.Result != "" {
		return r.Result
	}
	return Verdict(r.Tally.Percent)
}

package model

import (
	"encoding/json"
	"errors"
	"math"
)

// ErrNoAnswers is returned when a tally is requested over zero answers.
var ErrNoAnswers = errors.New("no answers recorded")

// Classification is the evaluation bucket assigned by the backend.
// The three values are disjoint and exhaustive.
type Classification string

const (
	Correct Classification = "correct"
	Partial Classification = "partial"
	Wrong   Classification = "wrong"
)

// ClassificationFromFlags maps the backend is_correct/is_partial flags.
// is_correct wins over is_partial.
func ClassificationFromFlags(isCorrect, isPartial bool) Classification {
	switch {
	case isCorrect:
		return Correct
	case isPartial:
		return Partial
	default:
		return Wrong
	}
}

// Evaluation is the backend verdict for one answer.
type Evaluation struct {
	Score          int
	Classification Classification
	Feedback       string
}

// AnswerMode records how an answer was captured.
type AnswerMode string

const (
	AnswerVoice AnswerMode = "voice"
	AnswerText  AnswerMode = "text"
)

// AnswerRecord is the immutable result of one answered question.
type AnswerRecord struct {
	Question       string
	UserAnswer     string
	ExpectedAnswer string
	Score          int
	Classification Classification
	Feedback       string
	Mode           AnswerMode
}

type answerWire struct {
	Question       string     `json:"question"`
	UserAnswer     string     `json:"user_answer"`
	ExpectedAnswer string     `json:"expected_answer"`
	Score          float64    `json:"score"`
	IsCorrect      bool       `json:"is_correct"`
	IsPartial      bool       `json:"is_partial"`
	Feedback       string     `json:"feedback"`
	Mode           AnswerMode `json:"mode,omitempty"`
}

// MarshalJSON writes the answer log shape stored by the backend.
func (a AnswerRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(answerWire{
		Question:       a.Question,
		UserAnswer:     a.UserAnswer,
		ExpectedAnswer: a.ExpectedAnswer,
		Score:          float64(a.Score),
		IsCorrect:      a.Classification == Correct,
		IsPartial:      a.Classification == Partial,
		Feedback:       a.Feedback,
		Mode:           a.Mode,
	})
}

// UnmarshalJSON reads the backend answer log shape.
func (a *AnswerRecord) UnmarshalJSON(data []byte) error {
	var wire answerWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*a = AnswerRecord{
		Question:       wire.Question,
		UserAnswer:     wire.UserAnswer,
		ExpectedAnswer: wire.ExpectedAnswer,
		Score:          ClampScore(wire.Score),
		Classification: ClassificationFromFlags(wire.IsCorrect, wire.IsPartial),
		Feedback:       wire.Feedback,
		Mode:           wire.Mode,
	}
	return nil
}

// ClampScore rounds a backend score into 0..100.
func ClampScore(raw float64) int {
	if math.IsNaN(raw) {
		return 0
	}
	score := int(math.Round(raw))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Tally aggregates a sequence of answers.
type Tally struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	Partial int `json:"partial"`
	Wrong   int `json:"wrong"`
	Percent int `json:"percent"`
}

// Summarize counts answers per classification. Percent is
// round(100*correct/total); an empty sequence is rejected.
func Summarize(answers []AnswerRecord) (Tally, error) {
	if len(answers) == 0 {
		return Tally{}, ErrNoAnswers
	}

	t := Tally{Total: len(answers)}
	for _, a := range answers {
		switch a.Classification {
		case Correct:
			t.Correct++
		case Partial:
			t.Partial++
		default:
			t.Wrong++
		}
	}
	t.Percent = int(math.Round(100 * float64(t.Correct) / float64(t.Total)))
	return t, nil
}

// ScoreBand is a display-only styling bucket for a percentage or score.
type ScoreBand string

const (
	BandGood ScoreBand = "good"
	BandFair ScoreBand = "fair"
	BandPoor ScoreBand = "poor"
)

// BandFor maps 0..100 to a display band: >=70 good, 40-69 fair, <40 poor.
func BandFor(value int) ScoreBand {
	switch {
	case value >= 70:
		return BandGood
	case value >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

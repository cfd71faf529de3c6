package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarizeRejectsEmpty(t *testing.T) {
	_, err := Summarize(nil)
	require.ErrorIs(t, err, ErrNoAnswers)
}

func TestSummarizeCountsBuckets(t *testing.T) {
	answers := []AnswerRecord{
		{Classification: Correct},
		{Classification: Partial},
		{Classification: Wrong},
		{Classification: Correct},
		{Classification: Classification("unexpected")},
	}

	tally, err := Summarize(answers)
	require.NoError(t, err)
	require.Equal(t, Tally{Total: 5, Correct: 2, Partial: 1, Wrong: 2, Percent: 40}, tally)
	require.Equal(t, tally.Total, tally.Correct+tally.Partial+tally.Wrong)
}

func TestSummarizePercentRounding(t *testing.T) {
	tests := []struct {
		name    string
		correct int
		total   int
		want    int
	}{
		{name: "all correct", correct: 3, total: 3, want: 100},
		{name: "none correct", correct: 0, total: 4, want: 0},
		{name: "two thirds rounds up", correct: 2, total: 3, want: 67},
		{name: "one third rounds down", correct: 1, total: 3, want: 33},
		{name: "half", correct: 1, total: 2, want: 50},
		{name: "one of eight rounds half up", correct: 1, total: 8, want: 13},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			answers := make([]AnswerRecord, tc.total)
			for i := range answers {
				answers[i].Classification = Wrong
				if i < tc.correct {
					answers[i].Classification = Correct
				}
			}
			tally, err := Summarize(answers)
			require.NoError(t, err)
			require.Equal(t, tc.want, tally.Percent)
			require.GreaterOrEqual(t, tally.Percent, 0)
			require.LessOrEqual(t, tally.Percent, 100)
		})
	}
}

func TestClassificationFromFlags(t *testing.T) {
	require.Equal(t, Correct, ClassificationFromFlags(true, false))
	require.Equal(t, Correct, ClassificationFromFlags(true, true))
	require.Equal(t, Partial, ClassificationFromFlags(false, true))
	require.Equal(t, Wrong, ClassificationFromFlags(false, false))
}

func TestBandFor(t *testing.T) {
	require.Equal(t, BandGood, BandFor(100))
	require.Equal(t, BandGood, BandFor(70))
	require.Equal(t, BandFair, BandFor(69))
	require.Equal(t, BandFair, BandFor(40))
	require.Equal(t, BandPoor, BandFor(39))
	require.Equal(t, BandPoor, BandFor(0))
}

func TestClampScore(t *testing.T) {
	require.Equal(t, 0, ClampScore(-4))
	require.Equal(t, 100, ClampScore(140))
	require.Equal(t, 86, ClampScore(85.5))
}

func TestAnswerLogReproducesTally(t *testing.T) {
	answers := []AnswerRecord{
		{Question: "Q1", UserAnswer: "guard", ExpectedAnswer: "guard on", Score: 90, Classification: Correct, Mode: AnswerVoice},
		{Question: "Q2", UserAnswer: "maybe", ExpectedAnswer: "lockout", Score: 50, Classification: Partial, Mode: AnswerText},
		{Question: "Q3", UserAnswer: "no", ExpectedAnswer: "gloves", Score: 10, Classification: Wrong, Mode: AnswerVoice},
	}
	before, err := Summarize(answers)
	require.NoError(t, err)

	raw, err := json.Marshal(answers)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"is_correct":true`)
	require.Contains(t, string(raw), `"user_answer":"maybe"`)

	var reloaded []AnswerRecord
	require.NoError(t, json.Unmarshal(raw, &reloaded))
	require.Equal(t, answers, reloaded)

	after, err := SessionRecord{Answers: reloaded}.Recount()
	require.NoError(t, err)
	require.Equal(t, before, after)
}

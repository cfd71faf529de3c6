// Package report compiles a finished viva into a self-contained, printable
// HTML document.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"
	"time"

	"github.com/rbright/viva/internal/model"
	"github.com/rbright/viva/internal/viva"
)

// Input is everything a report shows.
type Input struct {
	Candidate model.Employee
	Source    string
	Language  model.Language
	Answers   []model.AnswerRecord
	RecordID  int
}

// FromState builds an Input from a live session.
func FromState(s viva.SessionState) Input {
	return Input{
		Candidate: s.Identity.Employee,
		Source:    s.Source.Name,
		Language:  s.Language,
		Answers:   slices.Clone(s.Answers),
	}
}

// FromRecord builds an Input from a persisted record.
func FromRecord(r model.SessionRecord) Input {
	return Input{
		Candidate: r.Employee,
		Source:    r.Source.Name,
		Language:  r.Language,
		Answers:   slices.Clone(r.Answers),
		RecordID:  r.ID,
	}
}

type view struct {
	Input
	Tally     model.Tally
	Band      model.ScoreBand
	Headline  string
	Verdict   string
	Date      string
	Time      string
	Questions []questionView
}

type questionView struct {
	Number   int
	Record   model.AnswerRecord
	Answer   string
	Status   string
	Expected bool
}

// Compile renders the report. The output depends only on in and
// generatedAt.
func Compile(in Input, generatedAt time.Time) ([]byte, error) {
	tally, err := model.Summarize(in.Answers)
	if err != nil {
		return nil, fmt.Errorf("compile report: %w", err)
	}

	v := view{
		Input:    in,
		Tally:    tally,
		Band:     model.BandFor(tally.Percent),
		Headline: headline(tally.Percent),
		Verdict:  model.Verdict(tally.Percent),
		Date:     generatedAt.Format("02/01/2006"),
		Time:     generatedAt.Format("15:04:05"),
	}
	for i, answer := range in.Answers {
		q := questionView{
			Number:   i + 1,
			Record:   answer,
			Answer:   answer.UserAnswer,
			Status:   statusLabel(answer.Classification),
			Expected: answer.Classification != model.Correct,
		}
		if q.Answer == "" {
			q.Answer = "No answer"
		}
		v.Questions = append(v.Questions, q)
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

func headline(percent int) string {
	switch model.BandFor(percent) {
	case model.BandGood:
		return "Excellent Performance!"
	case model.BandFair:
		return "Good Effort - Keep Practicing!"
	default:
		return "Needs Improvement - Study More!"
	}
}

func statusLabel(class model.Classification) string {
	switch class {
	case model.Correct:
		return "Correct"
	case model.Partial:
		return "Partial"
	default:
		return "Wrong"
	}
}

func orNA(value string) string {
	if value == "" {
		return "N/A"
	}
	return value
}

var page = template.Must(template.New("report").Funcs(template.FuncMap{"na": orNA}).Parse(pageTemplate))

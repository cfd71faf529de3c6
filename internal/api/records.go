package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/viva/internal/model"
)

// startedAtLayout is the ISO form the records endpoint parses.
const startedAtLayout = "2006-01-02T15:04:05.000Z"

// SaveResult is the backend acknowledgement of a stored record.
type SaveResult struct {
	RecordID   int
	Result     string
	VideoSaved bool
}

type saveResponse struct {
	Success    bool    `json:"success"`
	Error      string  `json:"error"`
	RecordID   flexInt `json:"record_id"`
	Result     string  `json:"result"`
	VideoSaved bool    `json:"video_saved"`
}

// SaveRecord persists a finished viva with an optional video attachment.
func (c *Client) SaveRecord(ctx context.Context, record model.SessionRecord, video *model.Blob) (SaveResult, error) {
	answers, err := json.Marshal(answersOrEmpty(record.Answers))
	if err != nil {
		return SaveResult{}, fmt.Errorf("save record: encode answers: %w", err)
	}

	form := newMultipartForm()
	form.field("employee_id", record.Employee.PunchID)
	form.field("employee_name", record.Employee.Name)
	form.field("department", record.Employee.Department)
	form.field("designation", record.Employee.Designation)
	form.field("topic_id", strconv.Itoa(record.Source.ID))
	form.field("topic_name", record.Source.Name)
	form.field("total_questions", strconv.Itoa(record.Tally.Total))
	form.field("correct_answers", strconv.Itoa(record.Tally.Correct))
	form.field("partial_answers", strconv.Itoa(record.Tally.Partial))
	form.field("wrong_answers", strconv.Itoa(record.Tally.Wrong))
	form.field("score_percent", strconv.Itoa(record.Tally.Percent))
	form.field("language", string(record.Language))
	form.field("duration_seconds", strconv.Itoa(record.DurationSeconds))
	form.field("started_at", record.StartedAt.UTC().Format(startedAtLayout))
	form.field("answers_json", string(answers))
	if video != nil && !video.Empty() {
		form.file("video", *video)
	}

	var resp saveResponse
	if err := c.postForm(ctx, "save_record", "/viva-records/save", form, &resp); err != nil {
		return SaveResult{}, err
	}
	if !resp.Success {
		return SaveResult{}, &TransportError{Op: "save_record", Err: errors.New(nonEmpty(resp.Error, "backend rejected record"))}
	}
	return SaveResult{
		RecordID:   int(resp.RecordID),
		Result:     resp.Result,
		VideoSaved: resp.VideoSaved,
	}, nil
}

func answersOrEmpty(answers []model.AnswerRecord) []model.AnswerRecord {
	if answers == nil {
		return []model.AnswerRecord{}
	}
	return answers
}

type recordWire struct {
	ID              flexInt              `json:"id"`
	EmployeeID      flexString           `json:"employee_id"`
	EmployeeName    string               `json:"employee_name"`
	Department      string               `json:"department"`
	Designation     string               `json:"designation"`
	TopicID         flexInt              `json:"topic_id"`
	TopicName       string               `json:"topic_name"`
	TotalQuestions  flexInt              `json:"total_questions"`
	CorrectAnswers  flexInt              `json:"correct_answers"`
	PartialAnswers  flexInt              `json:"partial_answers"`
	WrongAnswers    flexInt              `json:"wrong_answers"`
	ScorePercent    flexFloat            `json:"score_percent"`
	Result          string               `json:"result"`
	VideoPath       string               `json:"video_path"`
	Language        string               `json:"language"`
	DurationSeconds flexInt              `json:"duration_seconds"`
	StartedAt       string               `json:"started_at"`
	CompletedAt     string               `json:"completed_at"`
	AnswersJSON     string               `json:"answers_json"`
	Answers         []model.AnswerRecord `json:"answers"`
}

func (w recordWire) toModel() model.SessionRecord {
	answers := w.Answers
	if answers == nil && strings.TrimSpace(w.AnswersJSON) != "" {
		if err := json.Unmarshal([]byte(w.AnswersJSON), &answers); err != nil {
			answers = nil
		}
	}

	lang, err := model.ParseLanguage(w.Language)
	if err != nil {
		lang = model.LanguageHindi
	}

	return model.SessionRecord{
		ID: int(w.ID),
		Employee: model.Employee{
			PunchID:     string(w.EmployeeID),
			Name:        w.EmployeeName,
			Department:  w.Department,
			Designation: w.Designation,
		},
		Source: model.Source{Kind: model.SourceTopic, ID: int(w.TopicID), Name: w.TopicName},
		Tally: model.Tally{
			Total:   int(w.TotalQuestions),
			Correct: int(w.CorrectAnswers),
			Partial: int(w.PartialAnswers),
			Wrong:   int(w.WrongAnswers),
			Percent: int(math.Round(float64(w.ScorePercent))),
		},
		Language:        lang,
		DurationSeconds: int(w.DurationSeconds),
		StartedAt:       parseBackendTime(w.StartedAt),
		CompletedAt:     parseBackendTime(w.CompletedAt),
		Answers:         answers,
		Result:          w.Result,
		VideoPath:       w.VideoPath,
	}
}

var backendTimeLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

func parseBackendTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range backendTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

type recordDetailResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Record  recordWire `json:"record"`
}

// GetRecord reloads one stored record including its answer log.
func (c *Client) GetRecord(ctx context.Context, id int) (model.SessionRecord, error) {
	if id <= 0 {
		return model.SessionRecord{}, &ValidationError{Field: "record_id", Message: "must be positive"}
	}

	var resp recordDetailResponse
	if err := c.getJSON(ctx, "get_record", fmt.Sprintf("/viva-records/detail/%d", id), nil, &resp); err != nil {
		return model.SessionRecord{}, err
	}
	if !resp.Success {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "Record not found"
		}
		return model.SessionRecord{}, &NotFoundError{Op: "get_record", Message: msg}
	}
	return resp.Record.toModel(), nil
}

type recordListResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Records []recordWire `json:"records"`
}

// ListRecords returns stored records, newest first as ordered by the backend.
func (c *Client) ListRecords(ctx context.Context) ([]model.SessionRecord, error) {
	var resp recordListResponse
	if err := c.getJSON(ctx, "list_records", "/viva-records/list", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &TransportError{Op: "list_records", Err: errors.New(nonEmpty(resp.Error, "backend reported failure"))}
	}

	records := make([]model.SessionRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		records = append(records, r.toModel())
	}
	return records, nil
}

func nonEmpty(value string, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}

package api

import (
	"context"
	"strings"

	"github.com/rbright/viva/internal/model"
)

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads a finalized audio blob for speech-to-text. Short or
// empty text is a valid result.
func (c *Client) Transcribe(ctx context.Context, blob model.Blob, lang model.Language) (string, error) {
	if blob.Empty() {
		return "", &ValidationError{Field: "audio", Message: "recording is empty"}
	}

	form := newMultipartForm()
	form.file("audio", blob)
	form.field("language", strings.ToLower(lang.Code()))

	var resp transcribeResponse
	if err := c.postForm(ctx, "transcribe", "/stt", form, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// EvaluateRequest is one answer submitted for scoring.
type EvaluateRequest struct {
	Question       string
	UserAnswer     string
	ExpectedAnswer string
	Language       model.Language
}

type evaluateWire struct {
	Question       string `json:"question"`
	UserAnswer     string `json:"user_answer"`
	ExpectedAnswer string `json:"expected_answer"`
	Language       string `json:"language"`
}

type evaluateResponse struct {
	Score     flexFloat `json:"score"`
	IsCorrect bool      `json:"is_correct"`
	IsPartial bool      `json:"is_partial"`
	Feedback  string    `json:"feedback"`
}

// Evaluate scores an answer. The classification is derived from the
// backend flags only, never from the score.
func (c *Client) Evaluate(ctx context.Context, req EvaluateRequest) (model.Evaluation, error) {
	answer := strings.TrimSpace(req.UserAnswer)
	if answer == "" {
		return model.Evaluation{}, &ValidationError{Field: "answer", Message: "answer is empty"}
	}

	body := evaluateWire{
		Question:       req.Question,
		UserAnswer:     answer,
		ExpectedAnswer: req.ExpectedAnswer,
		Language:       string(req.Language),
	}

	var resp evaluateResponse
	if err := c.postJSON(ctx, "evaluate", "/evaluate_with_answer", body, &resp); err != nil {
		return model.Evaluation{}, err
	}
	return model.Evaluation{
		Score:          model.ClampScore(float64(resp.Score)),
		Classification: model.ClassificationFromFlags(resp.IsCorrect, resp.IsPartial),
		Feedback:       strings.TrimSpace(resp.Feedback),
	}, nil
}

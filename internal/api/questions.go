package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rbright/viva/internal/model"
)

type topicsResponse struct {
	Topics []struct {
		ID             flexInt `json:"id"`
		Name           string  `json:"name"`
		Category       string  `json:"category_name"`
		TotalQuestions flexInt `json:"total_questions"`
	} `json:"topics"`
}

// ListTopics returns the question bank topics. It fails soft: any error is
// logged and yields an empty slice, which callers read as "unavailable".
func (c *Client) ListTopics(ctx context.Context) []model.Topic {
	var resp topicsResponse
	if err := c.getJSON(ctx, "topics", "/qa/topics-stats", nil, &resp); err != nil {
		c.warn("topics unavailable", "topics", err)
		return []model.Topic{}
	}

	topics := make([]model.Topic, 0, len(resp.Topics))
	for _, t := range resp.Topics {
		topics = append(topics, model.Topic{
			ID:             int(t.ID),
			Name:           strings.TrimSpace(t.Name),
			Category:       strings.TrimSpace(t.Category),
			TotalQuestions: int(t.TotalQuestions),
		})
	}
	return topics
}

// EligibleTopics keeps topics with at least minQuestions questions, preserving order.
func EligibleTopics(topics []model.Topic, minQuestions int) []model.Topic {
	out := make([]model.Topic, 0, len(topics))
	for _, t := range topics {
		if t.TotalQuestions >= minQuestions {
			out = append(out, t)
		}
	}
	return out
}

type machinesResponse struct {
	Machines []struct {
		ID             flexInt `json:"id"`
		Name           string  `json:"name"`
		TotalQuestions flexInt `json:"total_questions"`
	} `json:"machines"`
}

// ListMachines returns the legacy machine sources; it fails soft like
// ListTopics.
func (c *Client) ListMachines(ctx context.Context) []model.Machine {
	var resp machinesResponse
	if err := c.getJSON(ctx, "machines", "/machines", nil, &resp); err != nil {
		c.warn("machines unavailable", "machines", err)
		return []model.Machine{}
	}

	machines := make([]model.Machine, 0, len(resp.Machines))
	for _, m := range resp.Machines {
		machines = append(machines, model.Machine{
			ID:             int(m.ID),
			Name:           strings.TrimSpace(m.Name),
			TotalQuestions: int(m.TotalQuestions),
		})
	}
	return machines
}

type questionWire struct {
	Question       string  `json:"question"`
	ExpectedAnswer string  `json:"expected_answer"`
	Level          flexInt `json:"level"`
}

type questionsResponse struct {
	Questions []questionWire `json:"questions"`
}

type generateRequest struct {
	MachineID    int    `json:"machine_id"`
	NumQuestions int    `json:"num_questions"`
	Language     string `json:"language"`
}

// GenerateQuestions asks the backend for up to count questions from src.
// A short, non-empty result is valid.
func (c *Client) GenerateQuestions(ctx context.Context, src model.Source, count int, lang model.Language) ([]model.Question, error) {
	if !src.Valid() {
		return nil, &ValidationError{Field: "source", Message: "no topic or machine selected"}
	}
	if count <= 0 {
		return nil, &ValidationError{Field: "count", Message: "must be positive"}
	}

	var resp questionsResponse
	switch src.Kind {
	case model.SourceMachine:
		req := generateRequest{MachineID: src.ID, NumQuestions: count, Language: string(lang)}
		if err := c.postJSON(ctx, "generate", "/generate_viva_questions", req, &resp); err != nil {
			return nil, err
		}
	default:
		query := url.Values{}
		query.Set("count", strconv.Itoa(count))
		query.Set("language", lang.Code())
		path := fmt.Sprintf("/qa/viva-questions/%d", src.ID)
		if err := c.getJSON(ctx, "generate", path, query, &resp); err != nil {
			return nil, err
		}
	}

	questions := make([]model.Question, 0, len(resp.Questions))
	for _, q := range resp.Questions {
		text := strings.TrimSpace(q.Question)
		if text == "" {
			continue
		}
		level := model.Level(q.Level)
		if level < model.LevelEasy || level > model.LevelHard {
			level = model.LevelEasy
		}
		questions = append(questions, model.Question{
			Text:           text,
			ExpectedAnswer: strings.TrimSpace(q.ExpectedAnswer),
			Level:          level,
		})
	}
	return questions, nil
}

func (c *Client) warn(msg string, call string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, "call", call, "error", err.Error())
}

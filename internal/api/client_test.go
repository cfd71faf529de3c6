package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rbright/viva/internal/metrics"
	"github.com/rbright/viva/internal/model"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *metrics.Metrics) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	m := metrics.New()
	client, err := New(Options{BaseURL: server.URL, Timeout: 2 * time.Second, Metrics: m})
	require.NoError(t, err)
	return client, m
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Options{BaseURL: "  "})
	require.Error(t, err)

	client, err := New(Options{BaseURL: "backend.local:5000/"})
	require.NoError(t, err)
	require.Equal(t, "http://backend.local:5000", client.BaseURL())
}

func TestListTopicsDecodesAndFilters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/qa/topics-stats", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{
			"topics": []map[string]any{
				{"id": 1, "name": "Machine Safety", "category_name": "Safety", "total_questions": 12, "easy": "4"},
				{"id": 2, "name": "Forklift", "category_name": "Logistics", "total_questions": 3},
				{"id": 3, "name": "Soldering", "category_name": "Assembly", "total_questions": "5"},
			},
			"total_questions": 20,
		})
	}))

	topics := client.ListTopics(context.Background())
	require.Len(t, topics, 3)
	require.Equal(t, model.Topic{ID: 1, Name: "Machine Safety", Category: "Safety", TotalQuestions: 12}, topics[0])

	eligible := EligibleTopics(topics, 5)
	require.Len(t, eligible, 2)
	require.Equal(t, "Machine Safety", eligible[0].Name)
	require.Equal(t, "Soldering", eligible[1].Name)
}

func TestListTopicsFailsSoft(t *testing.T) {
	client, m := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "db down"})
	}))

	topics := client.ListTopics(context.Background())
	require.NotNil(t, topics)
	require.Empty(t, topics)

	count, err := testutil.GatherAndCount(m.Registry, "viva_api_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestLookupBlankMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}))

	_, err := client.LookupEmployee(context.Background(), "   ")
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, int32(0), hits.Load())
}

func TestLookupEmployeeOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]any
		wantName   string
		wantKind   string
		wantSubstr string
	}{
		{
			name:   "found",
			status: http.StatusOK,
			body: map[string]any{"success": true, "employee": map[string]any{
				"punch_id": 4411, "name": "Asha Verma", "department": "Moulding", "designation": "Operator",
			}},
			wantName: "Asha Verma",
		},
		{
			name:       "success false",
			status:     http.StatusOK,
			body:       map[string]any{"success": false, "error": "Employee not found"},
			wantKind:   "not_found",
			wantSubstr: "Employee not found",
		},
		{
			name:       "http 404",
			status:     http.StatusNotFound,
			body:       map[string]any{"success": false, "error": "No employee with punch ID"},
			wantKind:   "not_found",
			wantSubstr: "No employee with punch ID",
		},
		{
			name:       "server error",
			status:     http.StatusBadGateway,
			body:       map[string]any{"error": "upstream"},
			wantKind:   "transport",
			wantSubstr: "HTTP 502",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/training/employee/lookup", r.URL.Path)
				require.Equal(t, "4411", r.URL.Query().Get("punch_id"))
				writeJSON(w, tc.status, tc.body)
			}))

			employee, err := client.LookupEmployee(context.Background(), " 4411 ")
			if tc.wantKind == "" {
				require.NoError(t, err)
				require.Equal(t, tc.wantName, employee.Name)
				require.Equal(t, "4411", employee.PunchID)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.wantKind, Outcome(err))
			require.Contains(t, err.Error(), tc.wantSubstr)
		})
	}
}

func TestLookupTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Options{BaseURL: url, Timeout: time.Second})
	require.NoError(t, err)

	_, err = client.LookupEmployee(context.Background(), "77")
	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	require.Zero(t, transport.StatusCode)
}

func TestGenerateQuestionsTopicSource(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/qa/viva-questions/7", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("count"))
		require.Equal(t, "EN", r.URL.Query().Get("language"))
		writeJSON(w, http.StatusOK, map[string]any{"questions": []map[string]any{
			{"id": 1, "question": "What is PPE?", "expected_answer": "Protective equipment", "level": 1},
			{"id": 2, "question": "  ", "expected_answer": "skipped", "level": 2},
			{"id": 3, "question": "When do you lock out?", "expected_answer": "Before maintenance", "level": "3"},
		}})
	}))

	questions, err := client.GenerateQuestions(context.Background(), model.Source{Kind: model.SourceTopic, ID: 7}, 3, model.LanguageEnglish)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	require.Equal(t, model.LevelHard, questions[1].Level)
}

func TestGenerateQuestionsMachineSource(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/generate_viva_questions", r.URL.Path)
		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, generateRequest{MachineID: 4, NumQuestions: 10, Language: "Hindi"}, body)
		writeJSON(w, http.StatusOK, map[string]any{"questions": []map[string]any{
			{"question": "Q", "expected_answer": "A", "level": 9},
		}, "total": 1})
	}))

	questions, err := client.GenerateQuestions(context.Background(), model.Source{Kind: model.SourceMachine, ID: 4}, 10, model.LanguageHindi)
	require.NoError(t, err)
	require.Equal(t, []model.Question{{Text: "Q", ExpectedAnswer: "A", Level: model.LevelEasy}}, questions)
}

func TestGenerateQuestionsRejectsMissingSource(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	_, err := client.GenerateQuestions(context.Background(), model.Source{}, 10, model.LanguageHindi)
	require.Equal(t, "validation", Outcome(err))
}

func TestTranscribeUploadsMultipart(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stt", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "hi", r.FormValue("language"))
		file, header, err := r.FormFile("audio")
		require.NoError(t, err)
		defer file.Close()
		data, err := io.ReadAll(file)
		require.NoError(t, err)
		require.Equal(t, "answer.wav", header.Filename)
		require.Equal(t, "audio/wav", header.Header.Get("Content-Type"))
		require.Equal(t, []byte("RIFF"), data)
		writeJSON(w, http.StatusOK, map[string]any{"text": "  guard lagana zaroori hai ", "language": "hi"})
	}))

	text, err := client.Transcribe(context.Background(), model.Blob{MIMEType: "audio/wav", Filename: "answer.wav", Data: []byte("RIFF")}, model.LanguageHindi)
	require.NoError(t, err)
	require.Equal(t, "guard lagana zaroori hai", text)
}

func TestEvaluateUsesFlagsForClassification(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body evaluateWire
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "English", body.Language)
		require.Equal(t, "wear gloves", body.UserAnswer)
		writeJSON(w, http.StatusOK, map[string]any{"score": "85", "is_correct": false, "is_partial": true, "feedback": "Close"})
	}))

	eval, err := client.Evaluate(context.Background(), EvaluateRequest{
		Question:       "What protects hands?",
		UserAnswer:     " wear gloves ",
		ExpectedAnswer: "Cut resistant gloves",
		Language:       model.LanguageEnglish,
	})
	require.NoError(t, err)
	require.Equal(t, model.Evaluation{Score: 85, Classification: model.Partial, Feedback: "Close"}, eval)
}

func TestEvaluateBlankAnswerIsValidationError(t *testing.T) {
	client, _ := newTestClient(t, http.NotFoundHandler())
	_, err := client.Evaluate(context.Background(), EvaluateRequest{Question: "Q", UserAnswer: " "})
	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
}

// fakeRecordStore mimics the backend: it stores the submitted form and
// serves it back through the detail endpoint.
type fakeRecordStore struct {
	mu     sync.Mutex
	fields map[string]string
	video  []byte
}

func (s *fakeRecordStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/viva-records/save":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
			return
		}
		s.fields = map[string]string{}
		for key, values := range r.MultipartForm.Value {
			s.fields[key] = values[0]
		}
		if file, _, err := r.FormFile("video"); err == nil {
			s.video, _ = io.ReadAll(file)
			_ = file.Close()
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "record_id": 42, "result": "Fail", "video_saved": s.video != nil})
	case "/viva-records/detail/42":
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "record": map[string]any{
			"id":               42,
			"employee_id":      s.fields["employee_id"],
			"employee_name":    s.fields["employee_name"],
			"topic_id":         s.fields["topic_id"],
			"topic_name":       s.fields["topic_name"],
			"total_questions":  s.fields["total_questions"],
			"correct_answers":  s.fields["correct_answers"],
			"partial_answers":  s.fields["partial_answers"],
			"wrong_answers":    s.fields["wrong_answers"],
			"score_percent":    s.fields["score_percent"] + ".00",
			"result":           "Fail",
			"language":         s.fields["language"],
			"duration_seconds": s.fields["duration_seconds"],
			"completed_at":     "Tue, 15 Oct 2024 10:30:00 GMT",
			"answers_json":     s.fields["answers_json"],
		}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Record not found"})
	}
}

func TestSaveThenReloadReproducesTally(t *testing.T) {
	store := &fakeRecordStore{}
	client, _ := newTestClient(t, store)

	answers := []model.AnswerRecord{
		{Question: "Q1", UserAnswer: "a", ExpectedAnswer: "A", Score: 90, Classification: model.Correct, Mode: model.AnswerVoice},
		{Question: "Q2", UserAnswer: "b", ExpectedAnswer: "B", Score: 55, Classification: model.Partial, Mode: model.AnswerVoice},
		{Question: "Q3", UserAnswer: "c", ExpectedAnswer: "C", Score: 5, Classification: model.Wrong, Mode: model.AnswerText},
	}
	tally, err := model.Summarize(answers)
	require.NoError(t, err)

	record := model.SessionRecord{
		Employee:        model.Employee{PunchID: "4411", Name: "Asha Verma"},
		Source:          model.Source{Kind: model.SourceTopic, ID: 7, Name: "Machine Safety"},
		Tally:           tally,
		Language:        model.LanguageHindi,
		DurationSeconds: 312,
		StartedAt:       time.Date(2024, 10, 15, 10, 25, 0, 0, time.UTC),
		Answers:         answers,
	}
	video := &model.Blob{MIMEType: "video/webm", Filename: "viva_recording.webm", Data: []byte{0x1a, 0x45}}

	saved, err := client.SaveRecord(context.Background(), record, video)
	require.NoError(t, err)
	require.Equal(t, SaveResult{RecordID: 42, Result: "Fail", VideoSaved: true}, saved)
	require.Equal(t, "2024-10-15T10:25:00.000Z", store.fields["started_at"])
	require.Equal(t, "33", store.fields["score_percent"])

	reloaded, err := client.GetRecord(context.Background(), saved.RecordID)
	require.NoError(t, err)
	require.Equal(t, answers, reloaded.Answers)
	require.Equal(t, tally, reloaded.Tally)

	recount, err := reloaded.Recount()
	require.NoError(t, err)
	require.Equal(t, tally, recount)
	require.Equal(t, 2024, reloaded.CompletedAt.Year())
}

func TestGetRecordNotFound(t *testing.T) {
	client, _ := newTestClient(t, &fakeRecordStore{})
	_, err := client.GetRecord(context.Background(), 9)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "Record not found", notFound.Message)
}

func TestListRecords(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "total": 1, "records": []map[string]any{{
			"id": 3, "employee_id": "12", "employee_name": "Ravi", "topic_name": "Forklift",
			"total_questions": 10, "correct_answers": 7, "score_percent": "70.00", "result": "Pass",
			"language": "English", "completed_at": "2024-10-15 10:30:00", "video_path": nil,
		}}})
	}))

	records, err := client.ListRecords(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 70, records[0].Tally.Percent)
	require.Equal(t, model.LanguageEnglish, records[0].Language)
	require.Equal(t, "Pass", records[0].ResultLabel())
	require.Equal(t, 30, records[0].CompletedAt.Minute())
}

func TestReadyReportsStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	require.NoError(t, client.Ready(context.Background()))
}

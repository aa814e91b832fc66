package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/archive"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/config"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/jobsearch"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/oracle"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/speech"
)

type testEnv struct {
	server  *Server
	manager *interview.Manager
	archive *archive.InMemoryStore
	router  http.Handler
}

func newTestEnv(t *testing.T, maxQuestions int) *testEnv {
	t.Helper()

	registry := interview.NewRegistry(time.Minute)
	store := archive.NewInMemoryStore()
	manager := interview.NewManager(registry, oracle.NewMock(nil), &speech.MockTranscriber{}, &speech.MockNarrator{}, nil, nil, interview.Config{
		MaxQuestions: maxQuestions,
	})

	srv := New(config.Config{}, manager, registry, jobsearch.New(nil, ""), store, nil, nil, "")
	return &testEnv{
		server:  srv,
		manager: manager,
		archive: store,
		router:  srv.Router(),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if method == http.MethodPost && json.Valid(body) {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestInterviewRESTFlow(t *testing.T) {
	env := newTestEnv(t, 2)

	rec := env.do(t, http.MethodPost, "/v1/interviews",
		[]byte(`{"job_title":"Backend Engineer","job_description":"Build Go services"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}
	started := decodeBody[interview.StartResult](t, rec)
	if started.SessionID == "" || started.Question == "" {
		t.Fatalf("start result = %+v", started)
	}

	// Report is not ready mid-interview.
	rec = env.do(t, http.MethodGet, "/v1/interviews/"+started.SessionID+"/report", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("report status = %d, want 409", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/interviews/"+started.SessionID+"/answer", []byte("raw audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body %s", rec.Code, rec.Body.String())
	}
	first := decodeBody[interview.AnswerResult](t, rec)
	if first.Transcript == "" || first.NextQuestion == "" {
		t.Fatalf("first answer = %+v", first)
	}

	rec = env.do(t, http.MethodPost, "/v1/interviews/"+started.SessionID+"/answer", []byte("raw audio"))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer status = %d, body %s", rec.Code, rec.Body.String())
	}
	last := decodeBody[interview.AnswerResult](t, rec)
	if last.Report == nil {
		t.Fatalf("last answer = %+v, want the final report", last)
	}

	rec = env.do(t, http.MethodGet, "/v1/interviews/"+started.SessionID+"/report", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("report status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[interview.Report](t, rec)
	if report.SessionID != started.SessionID || report.TurnCount != 2 {
		t.Fatalf("report = %+v", report)
	}

	rec = env.do(t, http.MethodGet, "/v1/interviews/"+started.SessionID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	snap := decodeBody[interview.Snapshot](t, rec)
	if snap.State != interview.StateCompleted {
		t.Fatalf("state = %s, want %s", snap.State, interview.StateCompleted)
	}

	// A completed session rejects further answers.
	rec = env.do(t, http.MethodPost, "/v1/interviews/"+started.SessionID+"/answer", []byte("raw audio"))
	if rec.Code != http.StatusConflict {
		t.Fatalf("answer-after-complete status = %d, want 409", rec.Code)
	}
}

func TestEndInterviewEndpoint(t *testing.T) {
	env := newTestEnv(t, 8)

	rec := env.do(t, http.MethodPost, "/v1/interviews",
		[]byte(`{"job_description":"desc"}`))
	started := decodeBody[interview.StartResult](t, rec)

	rec = env.do(t, http.MethodPost, "/v1/interviews/"+started.SessionID+"/end", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("end status = %d, body %s", rec.Code, rec.Body.String())
	}
	report := decodeBody[interview.Report](t, rec)
	if report.TurnCount != 0 {
		t.Fatalf("turn count = %d, want 0", report.TurnCount)
	}
}

func TestStartValidation(t *testing.T) {
	env := newTestEnv(t, 8)

	rec := env.do(t, http.MethodPost, "/v1/interviews", []byte(`{"job_title":"x"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a missing job description", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/v1/interviews", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for an empty body", rec.Code)
	}
}

func TestUnknownSession(t *testing.T) {
	env := newTestEnv(t, 8)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/interviews/nope/answer"},
		{http.MethodPost, "/v1/interviews/nope/end"},
		{http.MethodGet, "/v1/interviews/nope/report"},
		{http.MethodGet, "/v1/interviews/nope"},
	} {
		rec := env.do(t, tc.method, tc.path, []byte("x"))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", tc.method, tc.path, rec.Code)
		}
		resp := decodeBody[errorResponse](t, rec)
		if resp.Code != "session_not_found" {
			t.Fatalf("%s %s code = %q", tc.method, tc.path, resp.Code)
		}
	}
}

func TestRecentReportsEndpoint(t *testing.T) {
	env := newTestEnv(t, 8)

	err := env.archive.SaveInterview(context.Background(), archive.Record{
		ID:       "r1",
		JobTitle: "Engineer",
		Hired:    true,
	})
	if err != nil {
		t.Fatalf("SaveInterview: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/v1/reports/recent", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeBody[struct {
		Reports []archive.Record `json:"reports"`
	}](t, rec)
	if len(body.Reports) != 1 || body.Reports[0].ID != "r1" {
		t.Fatalf("reports = %+v", body.Reports)
	}

	rec = env.do(t, http.MethodGet, "/v1/reports/recent?limit=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for a bad limit", rec.Code)
	}
}

func TestJobsEndpointRequiresKeyword(t *testing.T) {
	env := newTestEnv(t, 8)

	rec := env.do(t, http.MethodGet, "/v1/jobs", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without a keyword", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, 8)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := env.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestAnswerMultipartUpload(t *testing.T) {
	env := newTestEnv(t, 8)

	rec := env.do(t, http.MethodPost, "/v1/interviews", []byte(`{"job_description":"desc"}`))
	started := decodeBody[interview.StartResult](t, rec)

	var buf bytes.Buffer
	boundary := "testboundary"
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"audio\"; filename=\"a.wav\"\r\n")
	buf.WriteString("Content-Type: audio/wav\r\n\r\n")
	buf.WriteString("wav bytes")
	buf.WriteString("\r\n--" + boundary + "--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/v1/interviews/"+started.SessionID+"/answer", &buf)
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	result := decodeBody[interview.AnswerResult](t, w)
	if !strings.Contains(result.Transcript, "simulated") {
		t.Fatalf("transcript = %q", result.Transcript)
	}
}

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/archive"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/config"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/jobsearch"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/observability"
)

const maxAudioBytes = 16 << 20

type Server struct {
	cfg      config.Config
	manager  *interview.Manager
	registry *interview.Registry
	jobs     *jobsearch.Client
	archive  archive.Store
	metrics  *observability.Metrics
	logger   *zap.Logger
	audioDir string
	upgrader websocket.Upgrader
}

func New(cfg config.Config, manager *interview.Manager, registry *interview.Registry, jobs *jobsearch.Client, archiveStore archive.Store, metrics *observability.Metrics, logger *zap.Logger, audioDir string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:      cfg,
		manager:  manager,
		registry: registry,
		jobs:     jobs,
		archive:  archiveStore,
		metrics:  metrics,
		logger:   logger,
		audioDir: audioDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same origin
				// unless explicitly opened up; other sites must not be able to
				// drive a candidate's interview session.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/interviews", s.handleStartInterview)
	r.Get("/v1/interviews/ws", s.handleInterviewWS)
	r.Post("/v1/interviews/{id}/answer", s.handleSubmitAnswer)
	r.Post("/v1/interviews/{id}/end", s.handleEndInterview)
	r.Get("/v1/interviews/{id}/report", s.handleGetReport)
	r.Get("/v1/interviews/{id}", s.handleGetSession)
	r.Get("/v1/reports/recent", s.handleRecentReports)
	r.Get("/v1/jobs", s.handleSearchJobs)

	if s.audioDir != "" {
		fs := http.FileServer(http.Dir(s.audioDir))
		r.Handle("/static/audio/*", http.StripPrefix("/static/audio/", fs))
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ready",
		"active_sessions": s.registry.ActiveCount(),
	})
}

type startRequest struct {
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description"`
}

func (s *Server) handleStartInterview(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.JobDescription) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "job_description is required")
		return
	}

	result, err := s.manager.Start(r.Context(), req.JobTitle, req.JobDescription)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_session_id", "missing session id")
		return
	}

	audio, err := readAudio(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_audio", err.Error())
		return
	}

	result, err := s.manager.SubmitAnswer(r.Context(), id, audio)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.manager.EndInterview(r.Context(), id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.manager.GetReport(id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := s.manager.GetSession(id)
	if err != nil {
		s.respondCoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRecentReports(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := s.archive.RecentInterviews(r.Context(), limit)
	if err != nil {
		s.logger.Error("archive query failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "archive_error", "could not load recent interviews")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reports": records})
}

func (s *Server) handleSearchJobs(w http.ResponseWriter, r *http.Request) {
	keyword := strings.TrimSpace(r.URL.Query().Get("keyword"))
	if keyword == "" {
		respondError(w, http.StatusBadRequest, "invalid_keyword", "query parameter keyword is required")
		return
	}

	jobs, err := s.jobs.Search(r.Context(), keyword)
	if err != nil {
		s.logger.Warn("job search failed", zap.String("keyword", keyword), zap.Error(err))
		respondError(w, http.StatusBadGateway, "job_search_failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) respondCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, interview.ErrSessionNotFound):
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, interview.ErrInvalidState):
		respondError(w, http.StatusConflict, "invalid_state", err.Error())
	case errors.Is(err, interview.ErrReportNotReady):
		respondError(w, http.StatusConflict, "report_not_ready", err.Error())
	case errors.Is(err, interview.ErrOracleUnavailable):
		respondError(w, http.StatusBadGateway, "oracle_unavailable", err.Error())
	default:
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

// readAudio accepts either a raw audio body or a multipart form with an
// "audio" file field.
func readAudio(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile("audio")
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(io.LimitReader(file, maxAudioBytes))
	}

	return io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}

package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/archive"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/config"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/httpapi"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/jobsearch"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/observability"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/oracle"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/speech"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/storage"
)

const archiveWriteTimeout = 5 * time.Second

// App bundles the wired service: the HTTP handler plus the pieces main
// needs to run and shut down.
type App struct {
	Handler  http.Handler
	Registry *interview.Registry
	Manager  *interview.Manager
	Archive  archive.Store
}

// Build assembles every component from configuration. The returned cleanup
// releases held resources and is safe to call once.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("archive store: %w", err)
	}

	audioStore, err := storage.NewLocalStore(cfg.AudioDir,
		strings.TrimRight(cfg.PublicBaseURL, "/")+"/static/audio")
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("audio store: %w", err)
	}

	questionOracle, err := oracle.New(ctx, oracle.Config{
		Mode:         cfg.OracleMode,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		Dimensions:   cfg.Dimensions,
		MinQuestions: cfg.MinQuestions,
		MaxQuestions: cfg.MaxQuestions,
	}, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("oracle: %w", err)
	}

	transcriber, err := speech.NewTranscriber(speech.TranscriberConfig{
		Mode:             cfg.TranscriberMode,
		WhisperServerURL: cfg.WhisperServerURL,
		Language:         cfg.WhisperLanguage,
	}, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("transcriber: %w", err)
	}

	narrator, err := speech.NewNarrator(speech.NarratorConfig{
		Mode:         cfg.NarratorMode,
		TTSServerURL: cfg.TTSServerURL,
		Voice:        cfg.TTSVoice,
	}, audioStore, logger)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("narrator: %w", err)
	}

	registry := interview.NewRegistry(cfg.SessionIdleTimeout)
	registry.SetRetention(cfg.SessionRetention)
	registry.SetExpireHook(func(snap interview.Snapshot) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		logger.Info("session expired",
			zap.String("session_id", snap.ID),
			zap.String("state", string(snap.State)))
	})

	manager := interview.NewManager(registry, questionOracle, transcriber, narrator, metrics, logger, interview.Config{
		Dimensions:        cfg.Dimensions,
		MaxQuestions:      cfg.MaxQuestions,
		HireThreshold:     cfg.HireThreshold,
		PerTurnEvaluation: cfg.PerTurnEvaluation,
		OracleTimeout:     cfg.OracleTimeout,
		TranscribeTimeout: cfg.TranscribeTimeout,
		NarrateTimeout:    cfg.NarrateTimeout,
		ClosingMessage:    cfg.ClosingMessage,
	})
	manager.SetCompletionHook(func(snap interview.Snapshot) {
		archiveCompleted(store, logger, snap)
	})

	jobs := jobsearch.New(logger, cfg.JobSearchBaseURL)

	server := httpapi.New(cfg, manager, registry, jobs, store, metrics, logger, audioStore.Dir())

	app := &App{
		Handler:  server.Router(),
		Registry: registry,
		Manager:  manager,
		Archive:  store,
	}
	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("archive close failed", zap.Error(err))
		}
	}
	return app, cleanup, nil
}

// archiveCompleted writes one finished interview to the archive. Failures
// are logged and never reach the session flow.
func archiveCompleted(store archive.Store, logger *zap.Logger, snap interview.Snapshot) {
	if snap.Report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), archiveWriteTimeout)
	defer cancel()

	rec := archive.Record{
		ID:              snap.ID,
		JobTitle:        snap.JobTitle,
		JobDescription:  snap.JobDescription,
		OverallScore:    snap.Report.OverallScore,
		DimensionScores: snap.Report.DimensionScores,
		TurnCount:       snap.Report.TurnCount,
		Hired:           snap.Report.Hired,
		Transcript:      snap.History,
		CompletedAt:     snap.Report.GeneratedAt,
	}
	if err := store.SaveInterview(ctx, rec); err != nil {
		logger.Error("failed to archive interview",
			zap.String("session_id", snap.ID), zap.Error(err))
		return
	}
	logger.Info("interview archived", zap.String("session_id", snap.ID))
}

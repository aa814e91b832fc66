package oracle

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

// Config controls oracle construction.
type Config struct {
	Mode         string // auto | gemini | mock
	GeminiAPIKey string
	GeminiModel  string
	Dimensions   []string
	MinQuestions int
	MaxQuestions int
}

// New builds the question/evaluation oracle for the configured mode. In
// auto mode Gemini is preferred when an API key is present, otherwise the
// deterministic mock keeps local development working.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (interview.Oracle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("gemini api key is required for gemini mode")
		}
		return newGeminiOracle(ctx, cfg, logger)
	case "mock":
		return NewMock(cfg.Dimensions), nil
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return newGeminiOracle(ctx, cfg, logger)
		}
		logger.Info("no gemini api key configured, using mock oracle")
		return NewMock(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unsupported oracle mode %q", cfg.Mode)
	}
}

func newGeminiOracle(ctx context.Context, cfg Config, logger *zap.Logger) (interview.Oracle, error) {
	gen, err := NewGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	logger.Info("oracle: gemini", zap.String("model", gen.Model()))
	return newLLMOracle(gen, cfg, logger), nil
}

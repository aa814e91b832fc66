package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
	"github.com/skywalker0803r/AIInterviewer-backend/internal/storage"
)

// NarratorConfig selects and configures the text-to-speech backend.
type NarratorConfig struct {
	Mode         string // auto | http | mock
	TTSServerURL string
	Voice        string
}

// NewNarrator builds the configured narrator. Synthesized audio is written
// to the store; the narrator returns only the retrievable reference.
func NewNarrator(cfg NarratorConfig, store storage.Store, logger *zap.Logger) (interview.Narrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "http":
		if strings.TrimSpace(cfg.TTSServerURL) == "" {
			return nil, fmt.Errorf("TTS server URL is required for http mode")
		}
		return NewHTTPNarrator(cfg.TTSServerURL, cfg.Voice, store), nil
	case "mock":
		return &MockNarrator{}, nil
	case "auto":
		if strings.TrimSpace(cfg.TTSServerURL) != "" {
			return NewHTTPNarrator(cfg.TTSServerURL, cfg.Voice, store), nil
		}
		logger.Info("no TTS server URL configured, using mock narrator")
		return &MockNarrator{}, nil
	default:
		return nil, fmt.Errorf("unsupported narrator mode %q", cfg.Mode)
	}
}

// HTTPNarrator asks a TTS service for MP3 audio and stores the artifact.
type HTTPNarrator struct {
	baseURL string
	voice   string
	store   storage.Store
	client  *http.Client
}

func NewHTTPNarrator(baseURL, voice string, store storage.Store) *HTTPNarrator {
	return &HTTPNarrator{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		voice:   strings.TrimSpace(voice),
		store:   store,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (n *HTTPNarrator) Synthesize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	payload, err := json.Marshal(map[string]string{
		"text":  text,
		"voice": n.voice,
	})
	if err != nil {
		return "", fmt.Errorf("build narration request: %v: %w", err, interview.ErrNarration)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build narration request: %v: %w", err, interview.ErrNarration)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("tts request: %v: %w", err, interview.ErrNarration)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("tts HTTP %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(b)), interview.ErrNarration)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return "", fmt.Errorf("read tts response: %v: %w", err, interview.ErrNarration)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("tts returned empty audio: %w", interview.ErrNarration)
	}

	name := uuid.NewString() + ".mp3"
	url, err := n.store.Put(ctx, name, audio, "audio/mpeg")
	if err != nil {
		return "", fmt.Errorf("store narration audio: %v: %w", err, interview.ErrNarration)
	}
	return url, nil
}

// MockNarrator fabricates a reference without producing audio.
type MockNarrator struct{}

func (*MockNarrator) Synthesize(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return "mock://audio/" + uuid.NewString() + ".mp3", nil
}

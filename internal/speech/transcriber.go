package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/skywalker0803r/AIInterviewer-backend/internal/interview"
)

// TranscriberConfig selects and configures the speech-to-text backend.
type TranscriberConfig struct {
	Mode             string // auto | whisper | mock
	WhisperServerURL string
	Language         string
}

// NewTranscriber builds the configured transcriber. auto picks the whisper
// server when a URL is set, otherwise the mock.
func NewTranscriber(cfg TranscriberConfig, logger *zap.Logger) (interview.Transcriber, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "whisper":
		if strings.TrimSpace(cfg.WhisperServerURL) == "" {
			return nil, fmt.Errorf("whisper-server URL is required for whisper mode")
		}
		return NewWhisperTranscriber(cfg.WhisperServerURL, cfg.Language), nil
	case "mock":
		return &MockTranscriber{}, nil
	case "auto":
		if strings.TrimSpace(cfg.WhisperServerURL) != "" {
			return NewWhisperTranscriber(cfg.WhisperServerURL, cfg.Language), nil
		}
		logger.Info("no whisper-server URL configured, using mock transcriber")
		return &MockTranscriber{}, nil
	default:
		return nil, fmt.Errorf("unsupported transcriber mode %q", cfg.Mode)
	}
}

// WhisperTranscriber posts WAV audio to a whisper.cpp server's /inference
// endpoint.
type WhisperTranscriber struct {
	baseURL  string
	language string
	client   *http.Client
}

func NewWhisperTranscriber(baseURL, language string) *WhisperTranscriber {
	return &WhisperTranscriber{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		language: strings.TrimSpace(language),
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		_ = mw.Close()
		return "", fmt.Errorf("build transcription request: %v: %w", err, interview.ErrTranscription)
	}
	if _, err := fw.Write(audio); err != nil {
		_ = mw.Close()
		return "", fmt.Errorf("build transcription request: %v: %w", err, interview.ErrTranscription)
	}
	_ = mw.WriteField("temperature", "0.0")
	_ = mw.WriteField("response_format", "json")
	if t.language != "" {
		_ = mw.WriteField("language", t.language)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build transcription request: %v: %w", err, interview.ErrTranscription)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("build transcription request: %v: %w", err, interview.ErrTranscription)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper-server request: %v: %w", err, interview.ErrTranscription)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read whisper-server response: %v: %w", err, interview.ErrTranscription)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper-server HTTP %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(b)), interview.ErrTranscription)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return "", fmt.Errorf("decode whisper-server response: %v: %w", err, interview.ErrTranscription)
	}
	return strings.TrimSpace(out.Text), nil
}

// MockTranscriber returns a canned transcript for local development.
type MockTranscriber struct{}

func (*MockTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", nil
	}
	return "simulated spoken answer", nil
}

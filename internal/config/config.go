package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the interviewer service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionIdleTimeout time.Duration
	SessionRetention   time.Duration
	JanitorInterval    time.Duration

	OracleMode    string
	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration

	MinQuestions      int
	MaxQuestions      int
	HireThreshold     float64
	PerTurnEvaluation bool
	Dimensions        []string
	ClosingMessage    string

	TranscriberMode   string
	WhisperServerURL  string
	WhisperLanguage   string
	TranscribeTimeout time.Duration

	NarratorMode   string
	TTSServerURL   string
	TTSVoice       string
	NarrateTimeout time.Duration

	AudioDir      string
	PublicBaseURL string

	DatabaseURL      string
	JobSearchBaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8000"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "aiinterviewer"),
		AllowAnyOrigin:     false,
		ShutdownTimeout:    15 * time.Second,
		SessionIdleTimeout: 5 * time.Minute,
		SessionRetention:   10 * time.Minute,
		JanitorInterval:    15 * time.Second,
		OracleMode:         envOrDefault("ORACLE_MODE", "auto"),
		GeminiAPIKey:       trimmedEnv("GEMINI_API_KEY"),
		GeminiModel:        envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OracleTimeout:      30 * time.Second,
		MinQuestions:       5,
		MaxQuestions:       8,
		HireThreshold:      3.5,
		PerTurnEvaluation:  false,
		Dimensions:         nil,
		ClosingMessage:     trimmedEnv("CLOSING_MESSAGE"),
		TranscriberMode:    envOrDefault("TRANSCRIBER_MODE", "auto"),
		WhisperServerURL:   trimmedEnv("WHISPER_SERVER_URL"),
		WhisperLanguage:    envOrDefault("WHISPER_LANGUAGE", "en"),
		TranscribeTimeout:  60 * time.Second,
		NarratorMode:       envOrDefault("NARRATOR_MODE", "auto"),
		TTSServerURL:       trimmedEnv("TTS_SERVER_URL"),
		TTSVoice:           envOrDefault("TTS_VOICE", "default"),
		NarrateTimeout:     30 * time.Second,
		AudioDir:           envOrDefault("AUDIO_DIR", "static/audio"),
		PublicBaseURL:      envOrDefault("PUBLIC_BASE_URL", "http://localhost:8000"),
		DatabaseURL:        trimmedEnv("DATABASE_URL"),
		JobSearchBaseURL:   trimmedEnv("JOB_SEARCH_BASE_URL"),
	}

	if dims := trimmedEnv("EVALUATION_DIMENSIONS"); dims != "" {
		for _, d := range strings.Split(dims, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Dimensions = append(cfg.Dimensions, d)
			}
		}
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionIdleTimeout, err = durationFromEnv("SESSION_IDLE_TIMEOUT", cfg.SessionIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionRetention, err = durationFromEnv("SESSION_RETENTION", cfg.SessionRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.JanitorInterval, err = durationFromEnv("SESSION_JANITOR_INTERVAL", cfg.JanitorInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.OracleTimeout, err = durationFromEnv("ORACLE_TIMEOUT", cfg.OracleTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TranscribeTimeout, err = durationFromEnv("TRANSCRIBE_TIMEOUT", cfg.TranscribeTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.NarrateTimeout, err = durationFromEnv("NARRATE_TIMEOUT", cfg.NarrateTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MinQuestions, err = intFromEnv("MIN_QUESTIONS", cfg.MinQuestions)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxQuestions, err = intFromEnv("MAX_QUESTIONS", cfg.MaxQuestions)
	if err != nil {
		return Config{}, err
	}
	cfg.HireThreshold, err = floatFromEnv("HIRE_THRESHOLD", cfg.HireThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.PerTurnEvaluation, err = boolFromEnv("PER_TURN_EVALUATION", cfg.PerTurnEvaluation)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionIdleTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("SESSION_IDLE_TIMEOUT must be at least 5s")
	}
	if cfg.MinQuestions <= 0 {
		return Config{}, fmt.Errorf("MIN_QUESTIONS must be positive")
	}
	if cfg.MaxQuestions < cfg.MinQuestions {
		return Config{}, fmt.Errorf("MAX_QUESTIONS must be >= MIN_QUESTIONS")
	}
	if cfg.HireThreshold <= 0 || cfg.HireThreshold > 5 {
		return Config{}, fmt.Errorf("HIRE_THRESHOLD must be in (0, 5]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY"`
}

type StorageEnv struct {
	Type    string `envconfig:"STORAGE_TYPE" default:"local"`
	BaseDir string `envconfig:"STORAGE_BASE_DIR" default:".valet/data"`
	// S3 settings (used when Type == "s3")
	S3Bucket string `envconfig:"S3_BUCKET"`
	S3Prefix string `envconfig:"S3_PREFIX" default:"valet/"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
}

type ProbeEnv struct {
	ProbeAddr    string        `envconfig:"PROBE_ADDR" default:"8.8.8.8:53"`
	ProbeTimeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"3s"`
	// RecoveryInterval is how often the recovery monitor re-checks
	// connectivity for parked tasks.
	RecoveryInterval time.Duration `envconfig:"RECOVERY_INTERVAL" default:"10s"`
}

type LLMEnv struct {
	LLMBaseURL string        `envconfig:"LLM_BASE_URL" default:"http://localhost:11434"`
	FastModel  string        `envconfig:"LLM_FAST_MODEL" default:"llama3.2"`
	SmartModel string        `envconfig:"LLM_SMART_MODEL" default:"llama3.2"`
	LLMTimeout time.Duration `envconfig:"LLM_TIMEOUT" default:"300s"`
}

type GoogleEnv struct {
	GoogleBaseURL string `envconfig:"GOOGLE_BASE_URL" default:"https://www.googleapis.com"`
	MeetBaseURL   string `envconfig:"MEET_BASE_URL" default:"https://meet.googleapis.com/v2"`
	// AccessToken gates all workspace calls; when empty, capability
	// clients short-circuit with an unauthenticated error.
	AccessToken string `envconfig:"GOOGLE_ACCESS_TOKEN"`
}

type SettingsEnv struct {
	SettingsPath string `envconfig:"SETTINGS_PATH" default:".valet/settings.yaml"`
}

type Env struct {
	BaseEnv
	StorageEnv
	ProbeEnv
	LLMEnv
	GoogleEnv
	SettingsEnv
}

const namespace = "VALET"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}

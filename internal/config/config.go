// Package config provides configuration loading from environment variables
// and an optional .env file.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/maauso/klingclip/internal/failure"
)

// DefaultEnvFile is read when Load is called without explicit files.
const DefaultEnvFile = ".env"

// Static errors for configuration validation.
var (
	// ErrAccessKeyRequired is returned when KLING_ACCESS_KEY is not set.
	ErrAccessKeyRequired = fmt.Errorf("%w: config: KLING_ACCESS_KEY is required", failure.ErrConfiguration)
	// ErrSecretKeyRequired is returned when KLING_SECRET_KEY is not set.
	ErrSecretKeyRequired = fmt.Errorf("%w: config: KLING_SECRET_KEY is required", failure.ErrConfiguration)
)

// Config holds all configuration for the application.
type Config struct {
	// Kling credentials
	KlingAccessKey string `env:"KLING_ACCESS_KEY" json:"-"` // Masked in JSON
	KlingSecretKey string `env:"KLING_SECRET_KEY" json:"-"` // Masked in JSON

	// Kling request settings
	KlingBaseURL     string `env:"KLING_API_BASE_URL, default=https://api-singapore.klingai.com" json:"kling_base_url" validate:"url"`
	KlingModel       string `env:"KLING_MODEL, default=kling-v2-1" json:"kling_model" validate:"required"`
	KlingMode        string `env:"KLING_MODE, default=pro" json:"kling_mode" validate:"oneof=std pro"`
	KlingDuration    int    `env:"KLING_DURATION, default=10" json:"kling_duration" validate:"oneof=5 10"`
	KlingAspectRatio string `env:"KLING_ASPECT_RATIO, default=9:16" json:"kling_aspect_ratio" validate:"oneof=16:9 9:16 1:1"`

	// Polling and pacing
	MaxWaitMinutes   int           `env:"MAX_WAIT_MINUTES, default=15" json:"max_wait_minutes" validate:"min=1"`
	PollInterval     time.Duration `env:"POLL_INTERVAL, default=10s" json:"poll_interval" validate:"gt=0"`
	RegistrationWait time.Duration `env:"REGISTRATION_WAIT, default=30s" json:"registration_wait" validate:"gt=0"`
	ClipCooldown     time.Duration `env:"CLIP_COOLDOWN, default=15s" json:"clip_cooldown" validate:"gte=0"`
	APIRateInterval  time.Duration `env:"API_RATE_INTERVAL, default=1s" json:"api_rate_interval" validate:"gte=0"` // 0 disables pacing
	APIRateBurst     int           `env:"API_RATE_BURST, default=3" json:"api_rate_burst" validate:"min=1"`

	// Local directories
	ImagesDir string `env:"IMAGES_DIR, default=images" json:"images_dir" validate:"required"`
	OutputDir string `env:"OUTPUT_DIR, default=outputs" json:"output_dir" validate:"required"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Prefix           string `env:"S3_PREFIX, default=clips" json:"s3_prefix,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"` // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// APIHost returns the host part of KlingBaseURL.
func (c *Config) APIHost() string {
	u, err := url.Parse(c.KlingBaseURL)
	if err != nil || u.Host == "" {
		return c.KlingBaseURL
	}
	return u.Host
}

// Load reads envFiles (or DefaultEnvFile when none are given) into the process
// environment without overriding variables that are already set, then
// decodes the environment with go-envconfig. A missing env file is not an error.
// Load does not validate; call Validate before using the credentials.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: config: read %s: %w", failure.ErrConfiguration, f, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("%w: config: %w", failure.ErrConfiguration, err)
	}

	return cfg, nil
}

// Validate checks the credentials and every bounded setting.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.KlingAccessKey) == "" {
		return ErrAccessKeyRequired
	}
	if strings.TrimSpace(c.KlingSecretKey) == "" {
		return ErrSecretKeyRequired
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: config: %w", failure.ErrConfiguration, err)
	}
	return nil
}

// NewLogger creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs; otherwise human-readable text.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{KlingAccessKey: %s, KlingBaseURL: %s, KlingModel: %s, KlingMode: %s, KlingDuration: %d, KlingAspectRatio: %s, MaxWaitMinutes: %d, ImagesDir: %s, OutputDir: %s, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		Mask(c.KlingAccessKey),
		c.KlingBaseURL,
		c.KlingModel,
		c.KlingMode,
		c.KlingDuration,
		c.KlingAspectRatio,
		c.MaxWaitMinutes,
		c.ImagesDir,
		c.OutputDir,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
}

// Mask keeps the first four characters of a secret for recognition.
func Mask(s string) string {
	if s == "" {
		return "<unset>"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

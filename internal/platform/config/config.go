package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/yungbote/moldindex-backend/internal/platform/gcp"
)

type MediaStorage string

const (
	MediaStorageLocal       MediaStorage = "local"
	MediaStorageGCS         MediaStorage = "gcs"
	MediaStorageGCSEmulator MediaStorage = "gcs_emulator"
)

type Config struct {
	Env     string `env:"ENV"      envDefault:"development"`
	LogMode string `env:"LOG_MODE" envDefault:"development"`
	Port    int    `env:"PORT"     envDefault:"3000"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite://molds.db"`

	MediaStorage    MediaStorage `env:"MEDIA_STORAGE"     envDefault:"local"`
	UploadRoot      string       `env:"UPLOAD_ROOT"       envDefault:"static/uploads"`
	UploadURLPrefix string       `env:"UPLOAD_URL_PREFIX" envDefault:"/static/uploads"`

	GCSBucket           string `env:"GCS_BUCKET"`
	GCSPublicRead       bool   `env:"GCS_PUBLIC_READ"                envDefault:"true"`
	StorageEmulatorHost string `env:"STORAGE_EMULATOR_HOST"`
	PublicBaseURL       string `env:"OBJECT_STORAGE_PUBLIC_BASE_URL"`
	GoogleCredsFile     string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	GoogleCredsJSON     string `env:"GOOGLE_APPLICATION_CREDENTIALS_JSON"`

	AllowedExtensions   []string `env:"ALLOWED_EXTENSIONS" envSeparator:","`
	ProcessDefaultsFile string   `env:"PROCESS_DEFAULTS_FILE"`
	MaxUploadBytes      int64    `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
	ImportPolicy        string   `env:"IMPORT_POLICY"    envDefault:"skip"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"moldindex"`
	Version     string `env:"APP_VERSION"`

	Tracing Tracing
}

// Tracing drives the OpenTelemetry exporter. An empty endpoint falls back to stdout.
type Tracing struct {
	Enabled     bool              `env:"OTEL_ENABLED"`
	SampleRatio float64           `env:"OTEL_SAMPLER_RATIO"          envDefault:"0.1"`
	Endpoint    string            `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	Headers     map[string]string `env:"OTEL_EXPORTER_OTLP_HEADERS"  envKeyValSeparator:"="`
	Insecure    bool              `env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads a .env file (outside production) and then the process environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if !isProduction(os.Getenv("ENV")) {
		path := strings.TrimSpace(os.Getenv("ENV_FILE"))
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}
	return FromEnv()
}

// FromEnv parses the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.MediaStorage = MediaStorage(strings.ToLower(strings.TrimSpace(string(c.MediaStorage))))
	c.ImportPolicy = strings.ToLower(strings.TrimSpace(c.ImportPolicy))
	c.AllowedExtensions = trimAll(c.AllowedExtensions)
	c.CORSAllowedOrigins = trimAll(c.CORSAllowedOrigins)
	c.Tracing.Endpoint = strings.TrimSpace(c.Tracing.Endpoint)
	switch {
	case c.Tracing.SampleRatio < 0:
		c.Tracing.SampleRatio = 0
	case c.Tracing.SampleRatio > 1:
		c.Tracing.SampleRatio = 1
	}
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	switch c.ImportPolicy {
	case "skip", "abort":
	default:
		return fmt.Errorf("IMPORT_POLICY %q: want skip or abort", c.ImportPolicy)
	}
	if _, err := ParseDatabaseURL(c.DatabaseURL); err != nil {
		return err
	}
	switch c.MediaStorage {
	case MediaStorageLocal:
		if strings.TrimSpace(c.UploadRoot) == "" {
			return fmt.Errorf("UPLOAD_ROOT is required for local media storage")
		}
	case MediaStorageGCS, MediaStorageGCSEmulator:
		if err := gcp.ValidateObjectStorageConfig(c.ObjectStorage()); err != nil {
			return fmt.Errorf("object storage: %w", err)
		}
	default:
		return fmt.Errorf("MEDIA_STORAGE %q: want local, gcs or gcs_emulator", c.MediaStorage)
	}
	return nil
}

func (c Config) IsProduction() bool { return isProduction(c.Env) }

func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// ObjectStorage is the bucket configuration for the gcs and gcs_emulator backends.
func (c Config) ObjectStorage() gcp.ObjectStorageConfig {
	mode := gcp.ObjectStorageModeGCS
	if c.MediaStorage == MediaStorageGCSEmulator {
		mode = gcp.ObjectStorageModeGCSEmulator
	}
	return gcp.ObjectStorageConfig{
		Mode:          mode,
		Bucket:        strings.TrimSpace(c.GCSBucket),
		EmulatorHost:  strings.TrimSpace(c.StorageEmulatorHost),
		PublicBaseURL: strings.TrimSpace(c.PublicBaseURL),
		PublicRead:    c.GCSPublicRead,
		Credentials:   gcp.Credentials{JSON: c.GoogleCredsJSON, File: c.GoogleCredsFile},
	}
}

func isProduction(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "production", "prod":
		return true
	}
	return false
}

func trimAll(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

package config

import (
	"os"
	"strconv"
	"time"
)

// Config collects every knob the service reads from the environment.
// Backend selection is credential-driven: object storage is primary only
// when its endpoint and keys are all present.
type Config struct {
	Port string

	// Remote model endpoints.
	TranscribeURL           string
	TranscribeModel         string
	TranscribeFallbackModel string
	DiarizeURL              string

	// Local artifact roots.
	StorageDir string
	ReportDir  string
	IngestDir  string

	// Optional transcript record database (sqlite file path).
	DatabasePath string

	// Object storage (S3-compatible).
	ObjectEndpoint  string
	ObjectAccessKey string
	ObjectSecretKey string
	ObjectBucket    string
	ObjectSecure    bool

	PipelineTimeout time.Duration
}

// FromEnv reads the configuration from process environment. A .env file, if
// any, is expected to be loaded by the caller before this runs.
func FromEnv() Config {
	return Config{
		Port:                    envOr("PORT", "8080"),
		TranscribeURL:           os.Getenv("TRANSCRIBE_URL"),
		TranscribeModel:         envOr("TRANSCRIBE_MODEL", "whisper-1"),
		TranscribeFallbackModel: os.Getenv("TRANSCRIBE_FALLBACK_MODEL"),
		DiarizeURL:              os.Getenv("DIARIZE_URL"),
		StorageDir:              envOr("STORAGE_DIR", "data"),
		ReportDir:               os.Getenv("REPORT_DIR"),
		IngestDir:               os.Getenv("INGEST_DIR"),
		DatabasePath:            os.Getenv("DATABASE_PATH"),
		ObjectEndpoint:          os.Getenv("OBJECT_STORE_ENDPOINT"),
		ObjectAccessKey:         os.Getenv("OBJECT_STORE_ACCESS_KEY"),
		ObjectSecretKey:         os.Getenv("OBJECT_STORE_SECRET_KEY"),
		ObjectBucket:            envOr("OBJECT_STORE_BUCKET", "conversations"),
		ObjectSecure:            envBool("OBJECT_STORE_SECURE", true),
		PipelineTimeout:         envDuration("PIPELINE_TIMEOUT_SEC", 120*time.Second),
	}
}

// ObjectStorageConfigured reports whether object-storage credentials are
// complete enough to use it as the primary backend.
func (c Config) ObjectStorageConfigured() bool {
	return c.ObjectEndpoint != "" && c.ObjectAccessKey != "" && c.ObjectSecretKey != ""
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec <= 0 {
		return def
	}
	return time.Duration(sec) * time.Second
}

package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	// Pin every variable the assertions depend on; the ambient environment
	// must not leak into the defaults.
	for _, k := range []string{
		"PORT", "STORAGE_DIR", "TRANSCRIBE_MODEL", "PIPELINE_TIMEOUT_SEC",
		"OBJECT_STORE_ENDPOINT", "OBJECT_STORE_ACCESS_KEY", "OBJECT_STORE_SECRET_KEY",
	} {
		t.Setenv(k, "")
	}

	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Errorf("default port = %q", cfg.Port)
	}
	if cfg.StorageDir != "data" {
		t.Errorf("default storage dir = %q", cfg.StorageDir)
	}
	if cfg.TranscribeModel != "whisper-1" {
		t.Errorf("default model = %q", cfg.TranscribeModel)
	}
	if cfg.PipelineTimeout != 120*time.Second {
		t.Errorf("default timeout = %v", cfg.PipelineTimeout)
	}
	if cfg.ObjectStorageConfigured() {
		t.Errorf("object storage should be off without credentials")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TRANSCRIBE_URL", "http://asr.internal")
	t.Setenv("PIPELINE_TIMEOUT_SEC", "45")
	t.Setenv("OBJECT_STORE_ENDPOINT", "minio.internal:9000")
	t.Setenv("OBJECT_STORE_ACCESS_KEY", "ak")
	t.Setenv("OBJECT_STORE_SECRET_KEY", "sk")
	t.Setenv("OBJECT_STORE_SECURE", "false")

	cfg := FromEnv()
	if cfg.Port != "9090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.TranscribeURL != "http://asr.internal" {
		t.Errorf("transcribe url = %q", cfg.TranscribeURL)
	}
	if cfg.PipelineTimeout != 45*time.Second {
		t.Errorf("timeout = %v", cfg.PipelineTimeout)
	}
	if !cfg.ObjectStorageConfigured() {
		t.Errorf("object storage should be selected when credentials present")
	}
	if cfg.ObjectSecure {
		t.Errorf("secure flag should parse false")
	}
}

func TestObjectStorageNeedsAllCredentials(t *testing.T) {
	t.Setenv("OBJECT_STORE_ENDPOINT", "minio.internal:9000")
	t.Setenv("OBJECT_STORE_ACCESS_KEY", "ak")
	// secret key intentionally missing
	if FromEnv().ObjectStorageConfigured() {
		t.Errorf("partial credentials must not select object storage")
	}
}

func TestBadTimeoutFallsBackToDefault(t *testing.T) {
	t.Setenv("PIPELINE_TIMEOUT_SEC", "not-a-number")
	if FromEnv().PipelineTimeout != 120*time.Second {
		t.Errorf("invalid timeout should fall back to default")
	}
}

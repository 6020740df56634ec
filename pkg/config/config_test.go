package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ARQV30_STATE_DIR", dir)
	for _, key := range []string{
		"ARQV30_BASE_URL", "ARQV30_API_TOKEN", "ARQV30_POLL_INTERVAL", "ARQV30_REQUEST_TIMEOUT",
		"ARQV30_RECOVERY_TIMEOUT", "ARQV30_MAX_POLL_FAILURES", "ARQV30_ARTIFACT_STORE",
		"ARQV30_ARTIFACT_DIR", "ARQV30_S3_BUCKET", "ARQV30_S3_PREFIX",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:5000" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 2*time.Second || cfg.RequestTimeout != 5*time.Minute || cfg.RecoveryTimeout != time.Minute {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if cfg.MaxPollFailures != 3 || cfg.ArtifactStore != StoreLocal {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DatabasePath() != filepath.Join(dir, "state.db") || cfg.LogDir() != filepath.Join(dir, "logs") {
		t.Fatalf("unexpected paths: %s %s", cfg.DatabasePath(), cfg.LogDir())
	}
	if cfg.ArtifactDir != filepath.Join(dir, "reports") {
		t.Fatalf("ArtifactDir = %q", cfg.ArtifactDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ARQV30_STATE_DIR", dir)
	t.Setenv("ARQV30_BASE_URL", "https://arqv30.example.com/")
	t.Setenv("ARQV30_POLL_INTERVAL", "500ms")
	t.Setenv("ARQV30_REQUEST_TIMEOUT", "90")
	t.Setenv("ARQV30_RECOVERY_TIMEOUT", "")
	t.Setenv("ARQV30_MAX_POLL_FAILURES", "0")
	t.Setenv("ARQV30_ARTIFACT_STORE", "S3")
	t.Setenv("ARQV30_S3_BUCKET", "reports")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "https://arqv30.example.com" {
		t.Fatalf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.PollInterval != 500*time.Millisecond || cfg.RequestTimeout != 90*time.Second {
		t.Fatalf("durations = %s %s", cfg.PollInterval, cfg.RequestTimeout)
	}
	if cfg.MaxPollFailures != -1 {
		t.Fatalf("MaxPollFailures = %d, want -1 (disabled)", cfg.MaxPollFailures)
	}
	if cfg.ArtifactStore != StoreS3 || cfg.S3Bucket != "reports" {
		t.Fatalf("artifact store = %s bucket = %s", cfg.ArtifactStore, cfg.S3Bucket)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "bad interval", env: map[string]string{"ARQV30_POLL_INTERVAL": "soon"}},
		{name: "negative timeout", env: map[string]string{"ARQV30_REQUEST_TIMEOUT": "-5s"}},
		{name: "bad failure cap", env: map[string]string{"ARQV30_MAX_POLL_FAILURES": "many"}},
		{name: "s3 without bucket", env: map[string]string{"ARQV30_ARTIFACT_STORE": "s3", "ARQV30_S3_BUCKET": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			chdir(t, dir)
			t.Setenv("ARQV30_STATE_DIR", dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("ARQV30_STATE_DIR", dir)
	t.Setenv("ARQV30_BASE_URL", "http://from-env:5000")
	t.Setenv("ARQV30_API_TOKEN", "")
	os.Unsetenv("ARQV30_API_TOKEN")

	content := "# local settings\nexport ARQV30_API_TOKEN=\"abc123\"\nARQV30_BASE_URL=http://from-file:5000\nnot a pair\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIToken != "abc123" {
		t.Fatalf("APIToken = %q", cfg.APIToken)
	}
	if cfg.BaseURL != "http://from-env:5000" {
		t.Fatalf("environment should win over .env, got %q", cfg.BaseURL)
	}
}

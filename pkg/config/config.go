// Package config reads the client configuration from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"k8s.io/client-go/util/homedir"
)

const (
	StoreLocal = "local"
	StoreS3    = "s3"

	defaultBaseURL         = "http://localhost:5000"
	defaultPollInterval    = 2 * time.Second
	defaultRequestTimeout  = 5 * time.Minute
	defaultRecoveryTimeout = 60 * time.Second
	defaultMaxPollFailures = 3
)

// Config holds the client configuration.
type Config struct {
	BaseURL  string
	StateDir string
	APIToken string

	PollInterval    time.Duration
	RequestTimeout  time.Duration
	RecoveryTimeout time.Duration
	// MaxPollFailures is negative when the failure cap is disabled.
	MaxPollFailures int

	ArtifactStore string
	ArtifactDir   string
	S3Bucket      string
	S3Prefix      string
	AWSRegion     string
}

// Load reads configuration from environment variables with defaults.
// .env files in the working directory and the state directory are loaded
// first, without overriding variables that are already set.
func Load() (Config, error) {
	loadEnvFiles(".env")
	stateDir := getEnv("ARQV30_STATE_DIR", defaultStateDir())
	loadEnvFiles(filepath.Join(stateDir, ".env"))

	cfg := Config{
		BaseURL:       strings.TrimRight(getEnv("ARQV30_BASE_URL", defaultBaseURL), "/"),
		StateDir:      stateDir,
		APIToken:      os.Getenv("ARQV30_API_TOKEN"),
		ArtifactStore: normalizeStoreType(getEnv("ARQV30_ARTIFACT_STORE", StoreLocal)),
		ArtifactDir:   getEnv("ARQV30_ARTIFACT_DIR", filepath.Join(stateDir, "reports")),
		S3Bucket:      os.Getenv("ARQV30_S3_BUCKET"),
		S3Prefix:      os.Getenv("ARQV30_S3_PREFIX"),
		AWSRegion:     os.Getenv("AWS_REGION"),
	}

	var err error
	if cfg.PollInterval, err = getDuration("ARQV30_POLL_INTERVAL", defaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = getDuration("ARQV30_REQUEST_TIMEOUT", defaultRequestTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RecoveryTimeout, err = getDuration("ARQV30_RECOVERY_TIMEOUT", defaultRecoveryTimeout); err != nil {
		return Config{}, err
	}
	if cfg.MaxPollFailures, err = getMaxFailures("ARQV30_MAX_POLL_FAILURES"); err != nil {
		return Config{}, err
	}

	if cfg.ArtifactStore == StoreS3 && cfg.S3Bucket == "" {
		return Config{}, fmt.Errorf("ARQV30_S3_BUCKET is required when ARQV30_ARTIFACT_STORE=s3")
	}
	return cfg, nil
}

// DatabasePath is the SQLite file holding the local key-value store.
func (c Config) DatabasePath() string {
	return filepath.Join(c.StateDir, "state.db")
}

// LogDir holds the rotated log, trace and metric files.
func (c Config) LogDir() string {
	return filepath.Join(c.StateDir, "logs")
}

func defaultStateDir() string {
	if home := homedir.HomeDir(); home != "" {
		return filepath.Join(home, ".arqv30")
	}
	return ".arqv30"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	// Bare integers are seconds.
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%s must not be negative", key)
		}
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

// getMaxFailures maps 0 to -1 so callers see a disabled cap, not the default.
func getMaxFailures(key string) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultMaxPollFailures, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n <= 0 {
		return -1, nil
	}
	return n, nil
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StoreS3:
		return StoreS3
	default:
		return StoreLocal
	}
}

package config

import (
	"fmt"
	"os"
	"time"
)

// Store backends selectable with GATECHECK_STORE.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Store            string        // GATECHECK_STORE (default "postgres"; "memory" for demos and tests)
	DatabaseURL      string        // GATECHECK_DATABASE_URL (required for the postgres store)
	DBConnectTimeout time.Duration // GATECHECK_DB_CONNECT_TIMEOUT (default 30s)
	GRPCAddr         string        // GATECHECK_GRPC_ADDR (default ":9090")
	HTTPAddr         string        // GATECHECK_HTTP_ADDR (default ":8080")
	NATSURL          string        // GATECHECK_NATS_URL (optional, empty = no events)
	AuthToken        string        // GATECHECK_AUTH_TOKEN (optional, empty = auth disabled)
	HooksFile        string        // GATECHECK_HOOKS_FILE (optional YAML of event hooks)
	RosterIdle       time.Duration // GATECHECK_ROSTER_IDLE (default 30m)

	// History export settings
	ExportInterval   time.Duration // GATECHECK_EXPORT_INTERVAL (default 10m; 0 = disabled)
	ExportS3Bucket   string        // GATECHECK_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // GATECHECK_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // GATECHECK_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // GATECHECK_EXPORT_S3_KEY (default "gatecheck/history.jsonl")
	ExportGitRepo    string        // GATECHECK_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string        // GATECHECK_EXPORT_GIT_FILE (default "gate-checks.jsonl")
	ExportGitBranch  string        // GATECHECK_EXPORT_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		Store:            envOrDefault("GATECHECK_STORE", StorePostgres),
		DatabaseURL:      os.Getenv("GATECHECK_DATABASE_URL"),
		GRPCAddr:         envOrDefault("GATECHECK_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("GATECHECK_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("GATECHECK_NATS_URL"),
		AuthToken:        os.Getenv("GATECHECK_AUTH_TOKEN"),
		HooksFile:        os.Getenv("GATECHECK_HOOKS_FILE"),
		ExportS3Bucket:   os.Getenv("GATECHECK_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("GATECHECK_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("GATECHECK_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("GATECHECK_EXPORT_S3_KEY", "gatecheck/history.jsonl"),
		ExportGitRepo:    os.Getenv("GATECHECK_EXPORT_GIT_REPO"),
		ExportGitFile:    envOrDefault("GATECHECK_EXPORT_GIT_FILE", "gate-checks.jsonl"),
		ExportGitBranch:  envOrDefault("GATECHECK_EXPORT_GIT_BRANCH", "main"),
	}

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("GATECHECK_DATABASE_URL is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("GATECHECK_STORE: unknown store %q (want %s or %s)", c.Store, StorePostgres, StoreMemory)
	}

	var err error
	if c.DBConnectTimeout, err = durationEnv("GATECHECK_DB_CONNECT_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if c.ExportInterval, err = durationEnv("GATECHECK_EXPORT_INTERVAL", "10m"); err != nil {
		return nil, err
	}
	if c.RosterIdle, err = durationEnv("GATECHECK_ROSTER_IDLE", "30m"); err != nil {
		return nil, err
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

package config

import (
	"fmt"
	"time"
)

// Config holds runtime settings for the GophDiary CLI.
//
// Fields:
//   - DBPath: SQLite file holding the session and the pending image queues.
//   - DocStoreDSN: "memory://" or a PostgreSQL DSN (pgx) for diaries.
//   - BlobDir: base directory of the local blob store, used when S3Bucket is empty.
//   - S3Bucket / S3Region / S3Endpoint / S3AccessKey / S3SecretKey: object storage settings.
//   - JWTSecret: HMAC secret auth tokens are verified with (HS256).
//   - WatchInterval: how often the Postgres store is polled for changes.
//   - ShareGrace: how long the diary feed outlives its last subscriber.
//   - LogLevel / LogFile: slog level and optional rotated log file.
//   - Timezone: IANA name diaries are grouped by; empty means local time.
type Config struct {
	DBPath        string
	DocStoreDSN   string
	BlobDir       string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	JWTSecret     string
	WatchInterval time.Duration
	ShareGrace    time.Duration
	LogLevel      string
	LogFile       string
	Timezone      string
}

// LoadDefaults populates c with development defaults.
// NOTE: JWTSecret must be overridden outside of development.
func (c *Config) LoadDefaults() {
	c.DBPath = "gophdiary.db"
	c.DocStoreDSN = "memory://"
	c.BlobDir = "blobs"
	c.S3Region = "us-east-1"
	c.JWTSecret = "secretKey"
	c.WatchInterval = 2 * time.Second
	c.ShareGrace = 5 * time.Second
	c.LogLevel = "info"
}

// UseS3 reports whether images go to S3 instead of BlobDir.
func (c *Config) UseS3() bool {
	return c.S3Bucket != ""
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (.env included), JSON (if present) and command-line flags
// (if present). Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "DIARY_"

// envFile is loaded into the environment before variables are read.
// Variables already set win over the file.
var envFile = ".env"

// parseEnv overlays Config with DIARY_* environment variables. A missing
// .env file is ignored; a malformed one or a bad duration panics.
func parseEnv(cfg *Config) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	strs := map[string]*string{
		"DB_PATH":       &cfg.DBPath,
		"DOCSTORE_DSN":  &cfg.DocStoreDSN,
		"BLOB_DIR":      &cfg.BlobDir,
		"S3_BUCKET":     &cfg.S3Bucket,
		"S3_REGION":     &cfg.S3Region,
		"S3_ENDPOINT":   &cfg.S3Endpoint,
		"S3_ACCESS_KEY": &cfg.S3AccessKey,
		"S3_SECRET_KEY": &cfg.S3SecretKey,
		"JWT_SECRET":    &cfg.JWTSecret,
		"LOG_LEVEL":     &cfg.LogLevel,
		"LOG_FILE":      &cfg.LogFile,
		"TIMEZONE":      &cfg.Timezone,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"WATCH_INTERVAL": &cfg.WatchInterval,
		"SHARE_GRACE":    &cfg.ShareGrace,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		*dst = d
	}
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophdiary/internal/flagx"
	"github.com/dmitrijs2005/gophdiary/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// timex.Duration fields let absent keys keep their earlier values.
type JsonConfig struct {
	DBPath        *string         `json:"db_path"`
	DocStoreDSN   *string         `json:"docstore_dsn"`
	BlobDir       *string         `json:"blob_dir"`
	S3Bucket      *string         `json:"s3_bucket"`
	S3Region      *string         `json:"s3_region"`
	S3Endpoint    *string         `json:"s3_endpoint"`
	S3AccessKey   *string         `json:"s3_access_key"`
	S3SecretKey   *string         `json:"s3_secret_key"`
	JWTSecret     *string         `json:"jwt_secret"`
	WatchInterval *timex.Duration `json:"watch_interval"`
	ShareGrace    *timex.Duration `json:"share_grace"`
	LogLevel      *string         `json:"log_level"`
	LogFile       *string         `json:"log_file"`
	Timezone      *string         `json:"timezone"`
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// parseJson overlays Config with the JSON file named by -c or -config.
// Without either flag nothing changes. Read or unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.DBPath, jc.DBPath)
	setString(&cfg.DocStoreDSN, jc.DocStoreDSN)
	setString(&cfg.BlobDir, jc.BlobDir)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3Endpoint, jc.S3Endpoint)
	setString(&cfg.S3AccessKey, jc.S3AccessKey)
	setString(&cfg.S3SecretKey, jc.S3SecretKey)
	setString(&cfg.JWTSecret, jc.JWTSecret)
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
	setString(&cfg.Timezone, jc.Timezone)
	if jc.WatchInterval != nil {
		cfg.WatchInterval = jc.WatchInterval.Duration
	}
	if jc.ShareGrace != nil {
		cfg.ShareGrace = jc.ShareGrace.Duration
	}
}

package config

import (
	"fmt"

	"gfx.cafe/util/go/gun"

	"gfx.cafe/gfx/imgconv/lib/util/dur"
)

// Env holds overrides read from the environment. Unset variables leave the
// file value alone.
type Env struct {
	Workers     int    `env:"IMGCONV_WORKERS"`
	Format      string `env:"IMGCONV_FORMAT"`
	Quality     int    `env:"IMGCONV_QUALITY"`
	JobTimeout  string `env:"IMGCONV_JOB_TIMEOUT"`
	MaxFiles    int    `env:"IMGCONV_MAX_FILES"`
	MaxFileSize int64  `env:"IMGCONV_MAX_FILE_SIZE"`
	LogLevel    string `env:"IMGCONV_LOG_LEVEL"`

	OtelEndpoint string `env:"IMGCONV_OTEL_ENDPOINT"`
	OtelSampler  string `env:"IMGCONV_OTEL_SAMPLER"`
}

func LoadEnv() Env {
	var env Env
	gun.Load(&env)
	return env
}

// Apply copies every set override into c.
func (T Env) Apply(c *Config) error {
	if T.Workers != 0 {
		c.Workers = T.Workers
	}
	if T.Format != "" {
		c.Format = T.Format
	}
	if T.Quality != 0 {
		c.Quality = T.Quality
	}
	if T.JobTimeout != "" {
		var d dur.Duration
		if err := d.UnmarshalText([]byte(T.JobTimeout)); err != nil {
			return fmt.Errorf("IMGCONV_JOB_TIMEOUT: %w", err)
		}
		c.JobTimeout = d
	}
	if T.MaxFiles != 0 {
		c.Limits.MaxFiles = T.MaxFiles
	}
	if T.MaxFileSize != 0 {
		c.Limits.MaxFileSize = T.MaxFileSize
	}
	if T.LogLevel != "" {
		c.Log.Level = T.LogLevel
	}
	if T.OtelEndpoint != "" {
		c.Tracing.Endpoint = T.OtelEndpoint
	}
	if T.OtelSampler != "" {
		c.Tracing.Sampler = T.OtelSampler
	}
	return nil
}

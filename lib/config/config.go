package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"gfx.cafe/gfx/imgconv/lib/convert"
	"gfx.cafe/gfx/imgconv/lib/util/dur"
)

const (
	DefaultMaxFiles    = 20
	DefaultMaxFileSize = 5 << 20
)

var (
	ErrInvalidQuality = errors.New("quality must be between 1 and 100")
	ErrInvalidLimits  = errors.New("file limits must be positive")
)

type Config struct {
	// Workers is the pool size. Zero means one per CPU.
	Workers    int          `toml:"workers" yaml:"workers" json:"workers"`
	Format     string       `toml:"format" yaml:"format" json:"format"`
	Quality    int          `toml:"quality" yaml:"quality" json:"quality"`
	JobTimeout dur.Duration `toml:"job_timeout" yaml:"job_timeout" json:"job_timeout"`

	Limits  Limits  `toml:"limits" yaml:"limits" json:"limits"`
	Tracing Tracing `toml:"tracing" yaml:"tracing" json:"tracing"`
	Log     Log     `toml:"log" yaml:"log" json:"log"`
}

type Limits struct {
	MaxFiles    int   `toml:"max_files" yaml:"max_files" json:"max_files"`
	MaxFileSize int64 `toml:"max_file_size" yaml:"max_file_size" json:"max_file_size"`
}

type Tracing struct {
	ServiceName string `toml:"service_name" yaml:"service_name" json:"service_name"`
	Endpoint    string `toml:"endpoint" yaml:"endpoint" json:"endpoint"`
	Sampler     string `toml:"sampler" yaml:"sampler" json:"sampler"`
}

type Log struct {
	Level       string `toml:"level" yaml:"level" json:"level"`
	Development bool   `toml:"development" yaml:"development" json:"development"`
}

func Default() Config {
	return Config{
		Format:  string(convert.FormatPNG),
		Quality: convert.DefaultQuality,
		Limits: Limits{
			MaxFiles:    DefaultMaxFiles,
			MaxFileSize: DefaultMaxFileSize,
		},
		Tracing: Tracing{
			ServiceName: "imgconv",
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads a toml or yaml file over the defaults, then applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".toml":
			if err = toml.Unmarshal(file, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case ".yml", ".yaml", ".json":
			fallthrough
		default:
			if err = yaml.Unmarshal(file, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	c.expand()
	if err := LoadEnv().Apply(&c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// expand replaces values of the form ENV$NAME with the named variable.
func (T *Config) expand() {
	for _, field := range []*string{
		&T.Format,
		&T.Tracing.ServiceName,
		&T.Tracing.Endpoint,
		&T.Tracing.Sampler,
		&T.Log.Level,
	} {
		if strings.HasPrefix(*field, "ENV$") {
			*field = os.Getenv(strings.TrimPrefix(*field, "ENV$"))
		}
	}
}

func (T *Config) Validate() error {
	format, err := T.OutputFormat()
	if err != nil {
		return err
	}
	if !format.Output() {
		return fmt.Errorf("%w: %s", convert.ErrUnsupportedOutput, format)
	}
	if T.Quality < 1 || T.Quality > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidQuality, T.Quality)
	}
	if T.Limits.MaxFiles <= 0 || T.Limits.MaxFileSize <= 0 {
		return ErrInvalidLimits
	}
	if T.Workers < 0 {
		T.Workers = 0
	}
	return nil
}

func (T *Config) OutputFormat() (convert.Format, error) {
	return convert.ParseFormat(T.Format)
}

func (T *Config) Timeout() time.Duration {
	return T.JobTimeout.Duration()
}

// Build returns a zap logger at the configured level.
func (T Log) Build() (*zap.Logger, error) {
	var conf zap.Config
	if T.Development {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
	}

	if T.Level != "" {
		level, err := zapcore.ParseLevel(T.Level)
		if err != nil {
			return nil, err
		}
		conf.Level = zap.NewAtomicLevelAt(level)
	}

	return conf.Build()
}

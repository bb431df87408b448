// Package config loads run configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file, NOSHOW_*
// environment variables (after an optional .env is loaded), then any
// CLI flags the caller applies on top.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"noshow/logging"
)

const (
	EnvPrefix         = "NOSHOW_"
	maxConfigFileSize = 1024 * 1024
)

//go:embed defaults.yaml
var defaults []byte

type Config struct {
	Input    InputConfig    `koanf:"input"`
	Output   OutputConfig   `koanf:"output"`
	Postgres PostgresConfig `koanf:"postgres"`
	Log      logging.Config `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type InputConfig struct {
	File   string `koanf:"file"`
	Strict bool   `koanf:"strict"` // validation problems abort the run
}

type OutputConfig struct {
	Parquet string `koanf:"parquet"`
	Charts  bool   `koanf:"charts"`
}

type PostgresConfig struct {
	URL        string `koanf:"url"`
	BatchSize  int    `koanf:"batch_size" validate:"gte=1"`
	InitSchema bool   `koanf:"init_schema"`
}

type MetricsConfig struct {
	Pushgateway string `koanf:"pushgateway" validate:"omitempty,url"`
	Job         string `koanf:"job" validate:"required_with=Pushgateway"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: invalid value %v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// Load reads an optional .env in the working directory, then builds the
// configuration from defaults, path (skipped when empty) and the
// environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// envKey maps NOSHOW_POSTGRES_BATCH_SIZE to postgres.batch_size: the
// first segment is the section, the rest the field name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s is %d bytes, limit is %d", path, info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

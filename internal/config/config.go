// Package config loads alnav settings from an optional alnav.yaml (or
// .alnav.yaml) file and ALNAV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete alnav configuration.
type Config struct {
	Log    LogConfig    `json:"log" mapstructure:"log"`
	Index  IndexConfig  `json:"index" mapstructure:"index"`
	Export ExportConfig `json:"export" mapstructure:"export"`
	Serve  ServeConfig  `json:"serve" mapstructure:"serve"`

	// File is the config file that was read, empty when defaults were used.
	File string `json:"-" mapstructure:"-"`
}

// LogConfig controls the log backend.
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// IndexConfig controls loading a directory and the export database.
type IndexConfig struct {
	// DB is the export database path, relative to the repository root.
	DB       string   `json:"db" mapstructure:"db"`
	Workers  int      `json:"workers" mapstructure:"workers"`
	SkipDirs []string `json:"skipDirs" mapstructure:"skip_dirs"`
}

// ExportConfig controls SCIP output.
type ExportConfig struct {
	Compress bool `json:"compress" mapstructure:"compress"`
}

// ServeConfig controls the language server.
type ServeConfig struct {
	Name string `json:"name" mapstructure:"name"`
}

// EnvPrefix prefixes environment overrides, e.g. ALNAV_LOG_LEVEL.
const EnvPrefix = "ALNAV"

// DefaultDB is the default export database path.
const DefaultDB = ".alnav/index.db"

var configNames = []string{"alnav", ".alnav"}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Log:   LogConfig{Level: "warning"},
		Index: IndexConfig{DB: DefaultDB},
		Serve: ServeConfig{Name: "alnav"},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("index.db", d.Index.DB)
	v.SetDefault("index.workers", d.Index.Workers)
	v.SetDefault("index.skip_dirs", []string{})
	v.SetDefault("export.compress", d.Export.Compress)
	v.SetDefault("serve.name", d.Serve.Name)
}

// Load reads the first of alnav.yaml and .alnav.yaml found in dirs, in
// order, then applies environment overrides. A missing file is not an error.
func Load(dirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if len(dirs) > 0 {
		for _, name := range configNames {
			v.SetConfigName(name)
			err := v.ReadInConfig()
			if err == nil {
				break
			}
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	return &cfg, nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	if c.Index.Workers < 0 {
		return fmt.Errorf("config: index.workers must be >= 0, got %d", c.Index.Workers)
	}
	if c.Index.DB == "" {
		return errors.New("config: index.db must not be empty")
	}
	return nil
}

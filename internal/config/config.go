package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// CompilerConfig holds the C compiler settings.
type CompilerConfig struct {
	Path          string   `mapstructure:"path" validate:"required"`
	CFlags        []string `mapstructure:"cflags"`
	CoverageFlags []string `mapstructure:"coverage_flags" validate:"min=1"`
}

// GcovConfig holds the annotation tool settings.
type GcovConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// Config is the complete ccover configuration.
type Config struct {
	Compiler      CompilerConfig `mapstructure:"compiler"`
	Gcov          GcovConfig     `mapstructure:"gcov"`
	Threshold     float64        `mapstructure:"threshold" validate:"gte=0,lte=100"`
	KeepGcov      bool           `mapstructure:"keep_gcov"`
	Isolate       bool           `mapstructure:"isolate"`
	ShowUncovered bool           `mapstructure:"show_uncovered"`
	Color         string         `mapstructure:"color" validate:"oneof=auto always never"`
	LogLevel      string         `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("compiler.path", "gcc")
	v.SetDefault("compiler.cflags", []string{})
	v.SetDefault("compiler.coverage_flags", []string{"-fprofile-arcs", "-ftest-coverage"})
	v.SetDefault("gcov.path", "gcov")
	v.SetDefault("threshold", 80.0)
	v.SetDefault("keep_gcov", false)
	v.SetDefault("isolate", false)
	v.SetDefault("show_uncovered", false)
	v.SetDefault("color", "auto")
	v.SetDefault("log_level", "warn")
}

// Load reads the configuration. With an empty path, ccover.yaml is looked up
// in the current directory and in configs/, and a missing file just means
// defaults. An explicit path must exist. CCOVER_* environment variables
// override file values (CCOVER_COMPILER_PATH for compiler.path).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CCOVER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ccover")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cfg against its field constraints.
func Validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

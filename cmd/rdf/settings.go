package main

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/signalsfoundry/groundproc/internal/logging"
	"github.com/signalsfoundry/groundproc/internal/observability"
)

// Settings are read from an optional groundproc.{yaml,toml,json} file and
// GROUNDPROC_* environment variables. Flags override both.
type Settings struct {
	LogLevel        string          `mapstructure:"log_level"`
	LogFormat       string          `mapstructure:"log_format"`
	Wrap            string          `mapstructure:"wrap"`
	BaseDir         string          `mapstructure:"base_dir"`
	CaseInsensitive bool            `mapstructure:"case_insensitive"`
	GRPCAddr        string          `mapstructure:"grpc_addr"`
	MetricsAddr     string          `mapstructure:"metrics_addr"`
	Debounce        time.Duration   `mapstructure:"debounce"`
	Tracing         TracingSettings `mapstructure:"tracing"`
}

type TracingSettings struct {
	Enabled     bool    `mapstructure:"enabled"`
	Exporter    string  `mapstructure:"exporter"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

func (t TracingSettings) config() observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:     t.Enabled,
		ServiceName: t.ServiceName,
		Exporter:    t.Exporter,
		Endpoint:    t.Endpoint,
		SampleRatio: t.SampleRatio,
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("log_level", "info")
	v.SetDefault("wrap", "/")
	v.SetDefault("grpc_addr", ":50051")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("debounce", "250ms")
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.service_name", "groundproc")
	v.SetDefault("tracing.sample_ratio", 1.0)

	v.SetEnvPrefix("GROUNDPROC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only covers keys viper already knows about.
	for _, key := range []string{"base_dir", "case_insensitive", "tracing.enabled", "tracing.endpoint"} {
		_ = v.BindEnv(key)
	}
	_ = v.BindEnv("log_level", "GROUNDPROC_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("log_format", "GROUNDPROC_LOG_FORMAT", "LOG_FORMAT")
	return v
}

// loadSettings reads path when given, otherwise looks for groundproc.* in the
// working directory and $HOME/.config/groundproc. A missing file is not an
// error unless path was named explicitly.
func loadSettings(path string) (Settings, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("groundproc")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/groundproc")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Settings{}, err
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// newLogger writes text to a terminal and JSON otherwise unless the format is
// set explicitly.
func newLogger(s Settings, w io.Writer) logging.Logger {
	format := s.LogFormat
	if format == "" {
		format = "json"
		if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			format = "text"
		}
	}
	return logging.New(logging.Config{Level: s.LogLevel, Format: format, Writer: w})
}

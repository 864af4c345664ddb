// Package config handles application configuration loading.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/remuxtools/delayfix/internal/constants"
)

// Config represents the application configuration.
type Config struct {
	FFmpegPath   string        `mapstructure:"ffmpeg_path"`
	FFprobePath  string        `mapstructure:"ffprobe_path"`
	TempDir      string        `mapstructure:"temp_dir"`
	KeepTemp     bool          `mapstructure:"keep_temp"`
	OutputSuffix string        `mapstructure:"output_suffix"`
	LogFile      string        `mapstructure:"log_file"`
	Debug        bool          `mapstructure:"debug"`
	Silence      SilenceConfig `mapstructure:"silence"`
}

// SilenceConfig tunes the silence search used to source padding material
// for frame-accurate codecs.
type SilenceConfig struct {
	WindowsMS    []int `mapstructure:"windows_ms"`
	ThresholdsDB []int `mapstructure:"thresholds_db"`
}

// Load builds the configuration from defaults, an optional config file, and
// DELAYFIX_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("ffmpeg_path", constants.DefaultFFmpegBinary)
	v.SetDefault("ffprobe_path", constants.DefaultFFprobeBinary)
	v.SetDefault("temp_dir", "")
	v.SetDefault("keep_temp", false)
	v.SetDefault("output_suffix", constants.DefaultOutputSuffix)
	v.SetDefault("log_file", "")
	v.SetDefault("debug", false)
	v.SetDefault("silence.windows_ms", constants.DefaultSilenceWindowsMS)
	v.SetDefault("silence.thresholds_db", constants.DefaultSilenceThresholdsDB)

	v.SetEnvPrefix("DELAYFIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("ffmpeg_path and ffprobe_path must not be empty")
	}
	if len(c.Silence.WindowsMS) == 0 {
		return fmt.Errorf("silence.windows_ms must list at least one window")
	}
	if len(c.Silence.ThresholdsDB) == 0 {
		return fmt.Errorf("silence.thresholds_db must list at least one threshold")
	}
	for _, w := range c.Silence.WindowsMS {
		if w <= 0 {
			return fmt.Errorf("silence window %d ms is not positive", w)
		}
	}
	return nil
}

// Package config loads the measurement settings.
//
// Values come from, in increasing precedence: built-in defaults, an optional delaycheck.yaml
// (in the working directory, or the file named by DELAYCHECK_CONFIG) and DELAYCHECK_*
// environment variables, where a key such as capture.period_size becomes
// DELAYCHECK_CAPTURE_PERIOD_SIZE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gen2brain/delaycheck/internal/signal"
)

// EnvConfigPath names the environment variable holding an explicit config file path.
const EnvConfigPath = "DELAYCHECK_CONFIG"

const envPrefix = "DELAYCHECK"

// Stream configures one PCM device.
type Stream struct {
	Device      string `mapstructure:"device"`
	PeriodSize  int    `mapstructure:"period_size"`
	PeriodCount int    `mapstructure:"period_count"`
}

// Config is the complete set of settings for a run.
type Config struct {
	Capture  Stream `mapstructure:"capture"`
	Playback Stream `mapstructure:"playback"`
	Rate     int    `mapstructure:"rate"`
	Channels int    `mapstructure:"channels"`

	Signal struct {
		Path  string `mapstructure:"path"`
		AtEnd string `mapstructure:"at_end"`
	} `mapstructure:"signal"`

	Trial struct {
		Ceiling int `mapstructure:"ceiling"`
	} `mapstructure:"trial"`

	Experiment struct {
		Settle      time.Duration `mapstructure:"settle"`
		DrainBlocks int           `mapstructure:"drain_blocks"`
	} `mapstructure:"experiment"`

	Log struct {
		Level string `mapstructure:"level"`
		File  string `mapstructure:"file"`
	} `mapstructure:"log"`

	// Source is the config file that was read, empty when only defaults and the environment
	// apply.
	Source string `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("capture.device", "hw:0,0")
	v.SetDefault("capture.period_size", 64)
	v.SetDefault("capture.period_count", 4)
	v.SetDefault("playback.device", "hw:0,0")
	v.SetDefault("playback.period_size", 256)
	v.SetDefault("playback.period_count", 4)
	v.SetDefault("rate", 44100)
	v.SetDefault("channels", 2)
	v.SetDefault("signal.path", "tone.wav")
	v.SetDefault("signal.at_end", "wrap")
	v.SetDefault("trial.ceiling", 3000)
	v.SetDefault("experiment.settle", "500ms")
	v.SetDefault("experiment.drain_blocks", 3000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Load reads the configuration. With an empty path it looks for delaycheck.yaml in the
// working directory and carries on with defaults if there is none; an explicit path must
// exist. The result is validated.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("delaycheck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case path == "" && errors.As(err, &notFound):
			// Defaults and the environment only.
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("config: %w", err)
		default:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	c.Source = v.ConfigFileUsed()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

var logLevels = []string{"none", "error", "warn", "info", "debug"}

func (s Stream) validate(name string) error {
	var errs []error
	if s.Device == "" {
		errs = append(errs, fmt.Errorf("%s.device is empty", name))
	}

	if s.PeriodSize <= 0 {
		errs = append(errs, fmt.Errorf("%s.period_size must be positive, got %d", name, s.PeriodSize))
	}

	if s.PeriodCount < 2 {
		errs = append(errs, fmt.Errorf("%s.period_count must be at least 2, got %d", name, s.PeriodCount))
	}

	return errors.Join(errs...)
}

// Validate reports every invalid setting in one joined error.
func (c *Config) Validate() error {
	errs := []error{
		c.Capture.validate("capture"),
		c.Playback.validate("playback"),
	}

	if c.Rate <= 0 {
		errs = append(errs, fmt.Errorf("rate must be positive, got %d", c.Rate))
	}

	if c.Channels <= 0 {
		errs = append(errs, fmt.Errorf("channels must be positive, got %d", c.Channels))
	}

	if c.Signal.Path == "" {
		errs = append(errs, errors.New("signal.path is empty"))
	}

	if _, err := signal.ParseEndPolicy(c.Signal.AtEnd); err != nil {
		errs = append(errs, err)
	}

	if c.Trial.Ceiling <= 0 {
		errs = append(errs, fmt.Errorf("trial.ceiling must be positive, got %d", c.Trial.Ceiling))
	}

	if c.Experiment.Settle < 0 {
		errs = append(errs, fmt.Errorf("experiment.settle must not be negative, got %s", c.Experiment.Settle))
	}

	if c.Experiment.DrainBlocks < 0 {
		errs = append(errs, fmt.Errorf("experiment.drain_blocks must not be negative, got %d", c.Experiment.DrainBlocks))
	}

	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	return nil
}

// AtEnd returns the parsed signal end policy.
func (c *Config) AtEnd() signal.EndPolicy {
	p, _ := signal.ParseEndPolicy(c.Signal.AtEnd)
	return p
}

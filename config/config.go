// Package config loads deinterlacer settings and the description of a raw
// input stream from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/opd-ai/deinterlace"
	"github.com/opd-ai/deinterlace/history"
	"github.com/opd-ai/deinterlace/method"
	"github.com/opd-ai/deinterlace/telecine"
	"github.com/opd-ai/deinterlace/video"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a value that cannot be mapped onto the
// deinterlacer or stream settings.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete file configuration.
type Config struct {
	Deinterlace DeinterlaceConfig `yaml:"deinterlace"`
	Input       InputConfig       `yaml:"input"`
	LogLevel    string            `yaml:"log_level"`
}

// DeinterlaceConfig mirrors deinterlace.Options with names instead of
// enumerations.
type DeinterlaceConfig struct {
	Mode          string `yaml:"mode"`
	Method        string `yaml:"method"`
	Fields        string `yaml:"fields"`
	Layout        string `yaml:"layout"`
	Locking       string `yaml:"locking"`
	IgnoreObscure bool   `yaml:"ignore_obscure"`
	DropOrphans   bool   `yaml:"drop_orphans"`
	Workers       int    `yaml:"workers"`
	// Live answers the upstream latency query for locking=auto.
	Live bool `yaml:"live"`
}

// InputConfig describes a headerless raw video stream.
type InputConfig struct {
	Format        string `yaml:"format"`
	Width         int    `yaml:"width"`
	Height        int    `yaml:"height"`
	InterlaceMode string `yaml:"interlace_mode"`
	FrameRate     string `yaml:"framerate"` // "25", "30000/1001"
	// Cadence lists the buffer flags applied to consecutive buffers,
	// repeating from the start once exhausted. Each entry is a comma
	// separated set of tff, rff, onefield and interlaced.
	Cadence []string `yaml:"cadence"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := deinterlace.NewOptions()
	return &Config{
		Deinterlace: DeinterlaceConfig{
			Mode:          opts.Mode.String(),
			Method:        opts.Method.String(),
			Fields:        opts.Fields.String(),
			Layout:        opts.Layout.String(),
			Locking:       opts.Locking.String(),
			IgnoreObscure: opts.IgnoreObscure,
			DropOrphans:   opts.DropOrphans,
			Workers:       opts.Workers,
		},
		Input: InputConfig{
			Format:        "I420",
			Width:         720,
			Height:        576,
			InterlaceMode: "interleaved",
			FrameRate:     "25/1",
			Cadence:       []string{"tff"},
		},
		LogLevel: "info",
	}
}

// Load reads and parses a YAML configuration file. Keys missing from the
// file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
		"method":   cfg.Deinterlace.Method,
		"format":   cfg.Input.Format,
	}).Debug("Loaded configuration")
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks that every named value resolves.
func (c *Config) Validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if _, err := c.InputInfo(); err != nil {
		return err
	}
	if _, err := c.CadenceFlags(); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Options converts the deinterlace section to deinterlace.Options.
func (c *Config) Options() (*deinterlace.Options, error) {
	d := c.Deinterlace
	opts := deinterlace.NewOptions()

	var err error
	if opts.Mode, err = deinterlace.ParseMode(d.Mode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.Method, err = method.ParseID(d.Method); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.Fields, err = deinterlace.ParseFields(d.Fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.Layout, err = history.ParseLayout(d.Layout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if opts.Locking, err = telecine.ParseLockingMode(d.Locking); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	opts.IgnoreObscure = d.IgnoreObscure
	opts.DropOrphans = d.DropOrphans
	opts.Workers = d.Workers

	live := d.Live
	opts.Live = telecine.LiveFunc(func() (bool, error) { return live, nil })

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// InputInfo converts the input section to a stream description.
func (c *Config) InputInfo() (video.Info, error) {
	in := c.Input
	format, err := video.ParseFormat(in.Format)
	if err != nil {
		return video.Info{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	mode, err := video.ParseInterlaceMode(in.InterlaceMode)
	if err != nil {
		return video.Info{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	rate, err := ParseRate(in.FrameRate)
	if err != nil {
		return video.Info{}, err
	}

	info := video.Info{
		Format:        format,
		Width:         in.Width,
		Height:        in.Height,
		InterlaceMode: mode,
		FrameRate:     rate,
	}
	if err := info.Validate(); err != nil {
		return video.Info{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return info, nil
}

// CadenceFlags parses the input cadence. An empty cadence yields a single
// entry with no flags.
func (c *Config) CadenceFlags() ([]video.Flags, error) {
	if len(c.Input.Cadence) == 0 {
		return []video.Flags{0}, nil
	}
	out := make([]video.Flags, len(c.Input.Cadence))
	for i, entry := range c.Input.Cadence {
		f, err := ParseFlags(entry)
		if err != nil {
			return nil, fmt.Errorf("cadence entry %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

var flagNames = map[string]video.Flags{
	"tff":        video.FlagTFF,
	"rff":        video.FlagRFF,
	"onefield":   video.FlagOneField,
	"interlaced": video.FlagInterlaced,
}

// ParseFlags converts a comma separated flag list such as "tff,rff".
func ParseFlags(s string) (video.Flags, error) {
	var flags video.Flags
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || name == "none" {
			continue
		}
		f, ok := flagNames[name]
		if !ok {
			return 0, fmt.Errorf("%w: unknown buffer flag %q", ErrInvalidConfig, name)
		}
		flags |= f
	}
	return flags, nil
}

// ParseRate parses "N/D" or a bare integer rate.
func ParseRate(s string) (video.Rational, error) {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return video.Rational{}, fmt.Errorf("%w: framerate %q", ErrInvalidConfig, s)
	}
	d := 1
	if found {
		if d, err = strconv.Atoi(den); err != nil || d <= 0 {
			return video.Rational{}, fmt.Errorf("%w: framerate %q", ErrInvalidConfig, s)
		}
	}
	return video.Rational{N: n, D: d}, nil
}

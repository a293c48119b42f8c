// Package config loads deptnorm settings from defaults, an optional YAML
// file, the environment and command-line overrides, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"deptnorm/internal/table"
)

// EnvPrefix namespaces environment overrides, e.g. DEPTNORM_INPUT_PATH.
const EnvPrefix = "DEPTNORM_"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Input  InputConfig  `koanf:"input"`
	Output OutputConfig `koanf:"output"`
	Report ReportConfig `koanf:"report"`
	Log    LogConfig    `koanf:"log"`
}

type InputConfig struct {
	// Path may be a glob; the newest match is used.
	Path       string   `koanf:"path"        validate:"required"`
	Column     string   `koanf:"column"      validate:"required"`
	Encoding   string   `koanf:"encoding"`
	Delimiter  string   `koanf:"delimiter"   validate:"required"`
	NullValues []string `koanf:"null_values"`
	Sniff      bool     `koanf:"sniff"`
}

type OutputConfig struct {
	Path string `koanf:"path" validate:"required"`
	CRLF bool   `koanf:"crlf"`
}

type ReportConfig struct {
	Format       string `koanf:"format"        validate:"oneof=text json yaml"`
	SampleColumn string `koanf:"sample_column"`
	SampleSize   int    `koanf:"sample_size"   validate:"gte=0"`
	Strict       bool   `koanf:"strict"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"`
}

// Default returns the built-in settings. Paths have no default.
func Default() *Config {
	return &Config{
		Input: InputConfig{
			Column:     "DEPARTMENT",
			Encoding:   "utf-8",
			Delimiter:  ",",
			NullValues: append([]string(nil), table.DefaultNullValues...),
			Sniff:      true,
		},
		Report: ReportConfig{
			Format:       "text",
			SampleColumn: "ORGANISM_NAME",
			SampleSize:   10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DelimiterRune returns the single field separator.
func (c *InputConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	return r
}

// Validate checks struct rules and the cross-field constraints.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if utf8.RuneCountInString(cfg.Input.Delimiter) != 1 {
		return fmt.Errorf("%w: delimiter must be a single character, got %q", ErrInvalid, cfg.Input.Delimiter)
	}
	if d := cfg.Input.DelimiterRune(); d == '"' || d == '\r' || d == '\n' || d == utf8.RuneError {
		return fmt.Errorf("%w: delimiter %q is not allowed", ErrInvalid, cfg.Input.Delimiter)
	}
	if samePath(cfg.Input.Path, cfg.Output.Path) {
		return fmt.Errorf("%w: output path must differ from input path", ErrInvalid)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

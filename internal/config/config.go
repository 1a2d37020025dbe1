// Package config provides configuration types and loading for lessimport.
package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/eykd/lessimport/internal/source"
)

// Default configuration values.
const (
	DefaultEncoding    = "utf-8"
	DefaultLogLevel    = "warn"
	DefaultOutputColor = true
	DefaultDepsFormat  = FormatTree
)

// Output formats of the deps command.
const (
	FormatTree  = "tree"
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

// DepsFormats lists the accepted values of deps.format.
var DepsFormats = []string{FormatTree, FormatTable, FormatYAML, FormatJSON}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidEncoding indicates the encoding label is not a known charset.
	ErrInvalidEncoding = errors.New("encoding is not a known charset")
	// ErrInvalidLogLevel indicates log.level is not a known level.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error, fatal")
	// ErrInvalidDepsFormat indicates deps.format is not a supported format.
	ErrInvalidDepsFormat = errors.New("deps.format must be one of tree, table, yaml, json")
)

// Config is the top-level configuration.
type Config struct {
	Encoding string       `mapstructure:"encoding"`
	Log      LogConfig    `mapstructure:"log"`
	Output   OutputConfig `mapstructure:"output"`
	Deps     DepsConfig   `mapstructure:"deps"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// OutputConfig controls human-readable output.
type OutputConfig struct {
	Color bool `mapstructure:"color"`
}

// DepsConfig holds settings of the deps command.
type DepsConfig struct {
	Format string `mapstructure:"format"`
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if _, err := source.LookupEncoding(c.Encoding); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEncoding, c.Encoding)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	if !slices.Contains(DepsFormats, c.Deps.Format) {
		return fmt.Errorf("%w: %q", ErrInvalidDepsFormat, c.Deps.Format)
	}
	return nil
}

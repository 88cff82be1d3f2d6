// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"

	"github.com/thecrown/packgen/pkg/types"
)

const (
	// DefaultNamespace receives generated models and textures.
	DefaultNamespace types.Namespace = "thecrown"
	// DefaultPackFormat is the pack_format written into a generated pack.mcmeta.
	DefaultPackFormat = 46
	// DefaultDescription is the description written into a generated pack.mcmeta.
	DefaultDescription = "The Crown models"

	// UnreferencedSkip drops models no mapping entry refers to.
	// Defined locally to avoid coupling config to pkg/assemble.
	UnreferencedSkip UnreferencedPolicy = "skip"
	// UnreferencedInclude emits unreferenced models without an override.
	UnreferencedInclude UnreferencedPolicy = "include"

	// FormatLegacy writes overrides into assets/minecraft/models/item.
	FormatLegacy OverrideFormat = "legacy"
	// FormatItems writes 1.21.4 item model definitions into assets/minecraft/items.
	FormatItems OverrideFormat = "items"

	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidUnreferencedPolicy is returned when an UnreferencedPolicy value is not recognized.
	ErrInvalidUnreferencedPolicy = errors.New("invalid unreferenced policy")
	// ErrInvalidOverrideFormat is returned when an OverrideFormat value is not recognized.
	ErrInvalidOverrideFormat = errors.New("invalid override format")
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidPackFormat is returned when pack_format is not positive.
	ErrInvalidPackFormat = errors.New("invalid pack format")
	// ErrInvalidWorkers is returned when workers is negative.
	ErrInvalidWorkers = errors.New("invalid worker count")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// UnreferencedPolicy decides what happens to models without a mapping.
	UnreferencedPolicy string

	// OverrideFormat selects how item overrides are written.
	OverrideFormat string

	// LogLevel is the minimum level written by the logger.
	LogLevel string

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidValueError is returned when an enumerated config value is not recognized.
	// It wraps Sentinel for errors.Is() compatibility.
	InvalidValueError struct {
		Field    string
		Value    string
		Allowed  []string
		Sentinel error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig and collects the field-level errors.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Namespace receives generated models and textures
		Namespace types.Namespace `json:"namespace" mapstructure:"namespace"`
		// PackFormat is written into a generated pack.mcmeta
		PackFormat int `json:"pack_format" mapstructure:"pack_format"`
		// Description is written into a generated pack.mcmeta
		Description string `json:"description" mapstructure:"description"`
		// Unreferenced is the policy for models without a mapping entry
		Unreferenced UnreferencedPolicy `json:"unreferenced" mapstructure:"unreferenced"`
		// Format selects the override layout
		Format OverrideFormat `json:"format" mapstructure:"format"`
		// Workers bounds parallel model parsing; 0 means one per CPU
		Workers int `json:"workers" mapstructure:"workers"`
		// Overwrite lets generated entries replace base-layer files
		Overwrite bool `json:"overwrite" mapstructure:"overwrite"`
		// Log configures logging
		Log LogConfig `json:"log" mapstructure:"log"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// LogConfig configures the logger and its optional rotating file.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
		// File, when set, receives a copy of every log line.
		File string `json:"file" mapstructure:"file"`
		// MaxSizeMB rotates File once it reaches this size.
		MaxSizeMB int `json:"max_size_mb" mapstructure:"max_size_mb"`
		// MaxBackups is the number of rotated files kept.
		MaxBackups int `json:"max_backups" mapstructure:"max_backups"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose prints the full error chain on failure
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

func (p UnreferencedPolicy) String() string { return string(p) }

// IsValid returns whether the policy is one of the defined values.
func (p UnreferencedPolicy) IsValid() (bool, []error) {
	switch p {
	case UnreferencedSkip, UnreferencedInclude:
		return true, nil
	default:
		return false, []error{invalidValue("unreferenced", string(p), ErrInvalidUnreferencedPolicy,
			UnreferencedSkip, UnreferencedInclude)}
	}
}

func (f OverrideFormat) String() string { return string(f) }

// IsValid returns whether the format is one of the defined values.
func (f OverrideFormat) IsValid() (bool, []error) {
	switch f {
	case FormatLegacy, FormatItems:
		return true, nil
	default:
		return false, []error{invalidValue("format", string(f), ErrInvalidOverrideFormat, FormatLegacy, FormatItems)}
	}
}

func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the level is one of the defined values.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{invalidValue("log.level", string(l), ErrInvalidLogLevel,
			LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)}
	}
}

func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the color scheme is one of the defined values.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{invalidValue("ui.color_scheme", string(cs), ErrInvalidColorScheme,
			ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight)}
	}
}

// IsValid returns whether the Config has valid fields. Every field error is
// collected, not just the first.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if err := c.Namespace.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.PackFormat <= 0 {
		errs = append(errs, fmt.Errorf("%w: pack_format must be positive, got %d", ErrInvalidPackFormat, c.PackFormat))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidWorkers, c.Workers))
	}
	for _, check := range []func() (bool, []error){
		c.Unreferenced.IsValid,
		c.Format.IsValid,
		c.Log.Level.IsValid,
		c.UI.ColorScheme.IsValid,
	} {
		if valid, fieldErrs := check(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidValueError.
func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("%s: %q is not one of %v", e.Field, e.Value, e.Allowed)
}

// Unwrap returns the field's sentinel for errors.Is() compatibility.
func (e *InvalidValueError) Unwrap() error { return e.Sentinel }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return fmt.Sprintf("invalid config: %v", e.FieldErrors[0])
	}
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and every field error for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

func invalidValue[T ~string](field, value string, sentinel error, allowed ...T) *InvalidValueError {
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return &InvalidValueError{Field: field, Value: value, Allowed: names, Sentinel: sentinel}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace:    DefaultNamespace,
		PackFormat:   DefaultPackFormat,
		Description:  DefaultDescription,
		Unreferenced: UnreferencedSkip,
		Format:       FormatLegacy,
		Workers:      0,
		Overwrite:    false,
		Log: LogConfig{
			Level:      LogLevelInfo,
			File:       "",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}

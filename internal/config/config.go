// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/viper"

	"github.com/thecrown/packgen/internal/issue"
	"github.com/thecrown/packgen/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "packgen"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// ProjectFileName is the project-local config file looked up in the
	// working directory. Its values override the user config.
	ProjectFileName = "packgen.cue"
	// EnvPrefix prefixes environment overrides, e.g. PACKGEN_PACK_FORMAT or PACKGEN_LOG_LEVEL.
	EnvPrefix = "PACKGEN"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the packgen configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Sources returns the config files Load would read for opts, in merge order.
// Files that do not exist are omitted.
func Sources(opts LoadOptions) ([]string, error) {
	if opts.ConfigFilePath != "" {
		return []string{string(opts.ConfigFilePath)}, nil
	}
	cfgDir, err := configDirWithOverride(string(opts.ConfigDirPath))
	if err != nil {
		return nil, err
	}
	var sources []string
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		sources = append(sources, p)
	}
	if p := filepath.Join(string(opts.ProjectDir), ProjectFileName); fileExists(p) {
		sources = append(sources, p)
	}
	return sources, nil
}

// loadWithOptions performs option-driven config loading. Defaults come first,
// then the user config, then the project file, then PACKGEN_* variables.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, []string, error) {
	select {
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("namespace", string(defaults.Namespace))
	v.SetDefault("pack_format", defaults.PackFormat)
	v.SetDefault("description", defaults.Description)
	v.SetDefault("unreferenced", string(defaults.Unreferenced))
	v.SetDefault("format", string(defaults.Format))
	v.SetDefault("workers", defaults.Workers)
	v.SetDefault("overwrite", defaults.Overwrite)
	v.SetDefault("log.level", string(defaults.Log.Level))
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("log.max_size_mb", defaults.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", defaults.Log.MaxBackups)
	v.SetDefault("ui.color_scheme", string(defaults.UI.ColorScheme))
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	if opts.ConfigFilePath != "" && !fileExists(string(opts.ConfigFilePath)) {
		return nil, nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(string(opts.ConfigFilePath)).
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'packgen config show' to see the default configuration").
			Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
			BuildError()
	}

	sources, err := Sources(opts)
	if err != nil {
		return nil, nil, err
	}
	for _, src := range sources {
		if err := loadCUEIntoViper(v, src); err != nil {
			return nil, nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(src).
				WithIssue(issue.ConfigLoadFailedId).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Environment overrides bypass the CUE schema, so the decoded values are
	// checked again here.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithIssue(issue.ConfigLoadFailedId).
			WithSuggestion("Check " + EnvPrefix + "_* environment variables as well as the config files").
			Wrap(errs[0]).
			BuildError()
	}

	return &cfg, sources, nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper parses a CUE file, validates it against the #Config schema,
// and merges its contents into Viper.
//
// Manual parsing instead of cueutil.ParseAndDecode: the result is a
// map[string]any merged into Viper, and fields are optional (Concrete(false)).
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}

	ctx := cuecontext.New()

	schemaValue := ctx.CompileString(configSchema)
	if schemaValue.Err() != nil {
		return fmt.Errorf("internal error: failed to compile config schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(path))
	if userValue.Err() != nil {
		return cueutil.FormatError(userValue.Err(), path)
	}

	schema := schemaValue.LookupPath(cue.ParsePath("#Config"))
	unified := schema.Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return cueutil.FormatError(err, path)
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}

	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false
	}
	return err == nil && !info.IsDir()
}

// DefaultConfigPath returns where CreateDefaultConfig writes.
func DefaultConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// CreateDefaultConfig writes the default config file. An existing file is
// kept unless force is set. It returns the path and whether it was written.
func CreateDefaultConfig(force bool) (string, bool, error) {
	cfgPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(cfgPath); err == nil && !force {
		return cfgPath, false, nil
	}

	if err := os.WriteFile(cfgPath, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write config file: %w", err)
	}

	return cfgPath, true, nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// packgen configuration file\n")
	sb.WriteString("// Every field is optional; PACKGEN_* environment variables override it.\n\n")

	fmt.Fprintf(&sb, "namespace:    %q\n", cfg.Namespace)
	fmt.Fprintf(&sb, "pack_format:  %d\n", cfg.PackFormat)
	fmt.Fprintf(&sb, "description:  %q\n", cfg.Description)
	fmt.Fprintf(&sb, "unreferenced: %q\n", cfg.Unreferenced)
	fmt.Fprintf(&sb, "format:       %q\n", cfg.Format)
	fmt.Fprintf(&sb, "workers:      %d\n", cfg.Workers)
	fmt.Fprintf(&sb, "overwrite:    %v\n", cfg.Overwrite)

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", cfg.Log.Level)
	if cfg.Log.File != "" {
		fmt.Fprintf(&sb, "\tfile: %q\n", cfg.Log.File)
	}
	fmt.Fprintf(&sb, "\tmax_size_mb: %d\n", cfg.Log.MaxSizeMB)
	fmt.Fprintf(&sb, "\tmax_backups: %d\n", cfg.Log.MaxBackups)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

// Package config loads the sysup engine configuration: embedded
// defaults, then the user's config file, then SYSUP_* environment
// variables, each layer overriding the previous one.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/sysup/pkg/errors"
	"github.com/arthur-debert/sysup/pkg/logging"
)

const envPrefix = "SYSUP_"

// Config holds the engine settings threaded through the installer and
// patcher. It never includes per-dependency data, which lives in the
// manifest.
type Config struct {
	// InstallTimeout bounds each adapter install call.
	InstallTimeout time.Duration

	// ContinueOnError proceeds past failed specs instead of aborting.
	ContinueOnError bool

	// ProfileFiles are the shell profile files the patcher targets.
	// Empty means the platform default set.
	ProfileFiles []string

	// Bootstrap maps a manager name to the shell command that installs
	// the manager itself when absent.
	Bootstrap map[string]string
}

// Load builds the configuration from defaults, the given config file
// (skipped when missing) and the environment.
func Load(configFile string) (*Config, error) {
	logger := logging.GetLogger("config")
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load defaults")
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := k.Load(file.Provider(configFile), toml.Parser()); err != nil {
				return nil, errors.Wrapf(err, errors.ErrConfigParse,
					"failed to parse config file %s", configFile)
			}
			logger.Debug().Str("path", configFile).Msg("Loaded config file")
		}
	}

	// SYSUP_INSTALL__TIMEOUT=30m -> install.timeout. Double underscore
	// separates levels so keys like continue_on_error stay addressable.
	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	cfg := &Config{
		InstallTimeout:  k.Duration("install.timeout"),
		ContinueOnError: k.Bool("install.continue_on_error"),
		ProfileFiles:    k.Strings("patch.profile_files"),
		Bootstrap:       k.StringMap("bootstrap"),
	}

	if cfg.InstallTimeout <= 0 {
		return nil, errors.Newf(errors.ErrConfigParse,
			"install.timeout must be positive, got %s", k.String("install.timeout"))
	}

	return cfg, nil
}

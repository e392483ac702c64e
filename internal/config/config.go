// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package config loads the obs-sign configuration from flags, environment and the config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/siderolabs/go-signature-auth/pkg/fileutils"
	"github.com/siderolabs/go-signature-auth/pkg/serviceaccount"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

// EnvPrefix is the prefix of the environment variables overriding flags, e.g. OBS_SIGNATURE_USER.
const EnvPrefix = "OBS_SIGNATURE"

// RelativeConfigPath is the config file location relative to the XDG config directories.
const RelativeConfigPath = "obs-sign/config.yaml"

// Defaults.
const (
	DefaultAPIURL      = "https://api.opensuse.org"
	DefaultKeyContext  = "obs"
	DefaultTimeout     = 2 * time.Minute
	DefaultSignTimeout = sshsig.DefaultTimeout
)

// Config holds all configuration of obs-sign.
type Config struct {
	// ServiceAccount is set when a service account key is found in the environment.
	ServiceAccount *serviceaccount.ServiceAccount `mapstructure:"-"`

	APIURL        string        `mapstructure:"api-url"`
	User          string        `mapstructure:"user"`
	SSHKey        string        `mapstructure:"ssh-key"`
	KeyContext    string        `mapstructure:"key-context"`
	KeygenProgram string        `mapstructure:"keygen-program"`
	ConfigFile    string        `mapstructure:"config"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SignTimeout   time.Duration `mapstructure:"sign-timeout"`
	Verbose       bool          `mapstructure:"verbose"`
}

// SetupFlags registers the persistent flags of the root command and binds them to v.
func SetupFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()

	flags.String("config", "", "Config file (default $XDG_CONFIG_HOME/"+RelativeConfigPath+")")
	flags.String("api-url", DefaultAPIURL, "Build service API URL")
	flags.StringP("user", "u", "", "User name sent as the signature key id")
	flags.StringP("ssh-key", "k", "", "SSH private key used by ssh-keygen to sign challenges")
	flags.String("key-context", DefaultKeyContext, "Context of the keys managed by obs-sign keygen")
	flags.String("keygen-program", sshsig.DefaultProgram, "ssh-keygen program used to sign")
	flags.Duration("timeout", DefaultTimeout, "HTTP request timeout (0 disables it)")
	flags.Duration("sign-timeout", DefaultSignTimeout, "ssh-keygen signing timeout (0 disables it)")
	flags.BoolP("verbose", "v", false, "Enable debug logging")

	if err := v.BindPFlags(flags); err != nil {
		return err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return nil
}

// Load reads the config file, if any, and returns the merged configuration.
//
// Flags take precedence over environment variables, which take precedence over the config file.
func Load(v *viper.Viper) (*Config, error) {
	configFile := v.GetString("config")

	if configFile == "" {
		if found, err := xdg.SearchConfigFile(RelativeConfigPath); err == nil {
			configFile = found
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", configFile, err)
		}
	}

	cfg := &Config{}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ConfigFile = configFile

	if envKey, value := serviceaccount.GetFromEnv(); envKey != "" {
		sa, err := serviceaccount.Decode(value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode service account from %s: %w", envKey, err)
		}

		cfg.ServiceAccount = sa
	}

	if cfg.SSHKey != "" {
		keyPath, err := sshsig.ExpandHome(cfg.SSHKey)
		if err != nil {
			return nil, err
		}

		cfg.SSHKey = keyPath
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings used by every command.
func (c *Config) Validate() error {
	var result error

	if u, err := url.Parse(c.APIURL); err != nil {
		result = multierror.Append(result, fmt.Errorf("invalid api-url: %w", err))
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		result = multierror.Append(result, fmt.Errorf("invalid api-url %q: expected an http(s) URL", c.APIURL))
	}

	if c.KeyContext == "" {
		result = multierror.Append(result, errors.New("key-context is required"))
	}

	if c.Timeout < 0 {
		result = multierror.Append(result, errors.New("timeout must be >= 0 (0 disables it)"))
	}

	if c.SignTimeout < 0 {
		result = multierror.Append(result, errors.New("sign-timeout must be >= 0 (0 disables it)"))
	}

	return result
}

// ValidateSigning checks the settings needed to sign requests.
func (c *Config) ValidateSigning() error {
	if c.ServiceAccount != nil {
		return nil
	}

	var result error

	if c.User == "" {
		result = multierror.Append(result, fmt.Errorf("user is required: set --user or %s_USER", EnvPrefix))
	}

	switch {
	case c.SSHKey == "":
		result = multierror.Append(result, fmt.Errorf("ssh-key is required: set --ssh-key or %s_SSH_KEY", EnvPrefix))
	case !fileutils.FileExists(c.SSHKey):
		result = multierror.Append(result, fmt.Errorf("ssh-key %q does not exist", c.SSHKey))
	}

	if c.KeygenProgram == "" {
		result = multierror.Append(result, errors.New("keygen-program is required"))
	}

	return result
}

// Identity returns the signing user, taken from the service account when there is one.
func (c *Config) Identity() string {
	if c.ServiceAccount != nil {
		return c.ServiceAccount.Name
	}

	return c.User
}

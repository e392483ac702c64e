// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package main implements obs-sign, a client for build service APIs using SSH signature authentication.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/siderolabs/go-signature-auth/internal/config"
	"github.com/siderolabs/go-signature-auth/internal/logging"
	"github.com/siderolabs/go-signature-auth/pkg/message"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

var version = "0.1.0"

// app is the state shared by the subcommands, filled before any of them runs.
type app struct {
	viper  *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
	stdout io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)

		cancel()
		os.Exit(1) //nolint:gocritic
	}
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	a := &app{
		viper:  viper.New(),
		logger: zap.NewNop(),
		stdout: stdout,
	}

	rootCmd := &cobra.Command{
		Use:   "obs-sign",
		Short: "Talk to build service APIs using SSH signature authentication",
		Long: `obs-sign sends requests to a build service API and answers its Signature
authentication challenges by signing them with an SSH key, through ssh-keygen
or with a service account key taken from the environment.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
		PersistentPostRun: func(*cobra.Command, []string) {
			a.logger.Sync() //nolint:errcheck
		},
	}

	if err := config.SetupFlags(rootCmd, a.viper); err != nil {
		panic(err)
	}

	rootCmd.SetOut(stdout)

	rootCmd.AddCommand(
		newGetCommand(a),
		newSignCommand(a),
		newKeygenCommand(a),
		newVerifyCommand(a),
	)

	return rootCmd
}

func (a *app) load(*cobra.Command, []string) error {
	cfg, err := config.Load(a.viper)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, err := logging.New("obs-sign", cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logger

	logger.Debug("configuration loaded",
		zap.String("config_file", cfg.ConfigFile),
		zap.String("api_url", cfg.APIURL),
		zap.String("user", cfg.Identity()),
		zap.Bool("service_account", cfg.ServiceAccount != nil),
	)

	return nil
}

// signer returns the service account key if there is one, ssh-keygen otherwise.
func (a *app) signer() (message.Signer, error) {
	if err := a.cfg.ValidateSigning(); err != nil {
		return nil, err
	}

	if sa := a.cfg.ServiceAccount; sa != nil {
		a.logger.Debug("signing with service account key", zap.String("fingerprint", sa.Key.Fingerprint()))

		return sa.Key, nil
	}

	return sshsig.NewKeygen(a.cfg.SSHKey,
		sshsig.WithProgram(a.cfg.KeygenProgram),
		sshsig.WithTimeout(a.cfg.SignTimeout),
	), nil
}

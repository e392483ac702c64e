// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-signature-auth/pkg/fileutils"
	"github.com/siderolabs/go-signature-auth/pkg/serviceaccount"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig/client"
)

// keysDirectory is the directory of the generated keys, relative to the XDG data directory.
const keysDirectory = "obs-sign/keys"

type keygenOptions struct {
	force          bool
	serviceAccount bool
}

func newKeygenCommand(a *app) *cobra.Command {
	var opts keygenOptions

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an ed25519 signing key for the configured user",
		Long: `Generate an ed25519 key pair under the XDG data directory and print the private key path
and the public key to register with the build service.

With --service-account the key is not written, the encoded service account is printed
instead, to be set as ` + serviceaccount.SignatureServiceAccountKeyEnvVar + `.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.keygen(&opts)
		},
	}

	cmd.Flags().BoolVar(&opts.force, "force", false, "Replace an existing key")
	cmd.Flags().BoolVar(&opts.serviceAccount, "service-account", false, "Print an encoded service account instead of writing the key")

	return cmd
}

func (a *app) keygen(opts *keygenOptions) error {
	identity := a.cfg.User
	if identity == "" {
		return errors.New("user is required to generate a key")
	}

	provider := client.NewKeyProvider(keysDirectory)

	key, err := provider.GenerateKey(a.cfg.KeyContext, identity)
	if err != nil {
		return err
	}

	if opts.serviceAccount {
		encoded, encodeErr := serviceaccount.Encode(identity, key)
		if encodeErr != nil {
			return encodeErr
		}

		_, err = fmt.Fprintln(a.stdout, encoded)

		return err
	}

	keyPath, err := provider.KeyPath(a.cfg.KeyContext, identity)
	if err != nil {
		return err
	}

	if fileutils.FileExists(keyPath) {
		if !opts.force {
			return fmt.Errorf("key %q already exists, use --force to replace it", keyPath)
		}

		if err = provider.DeleteKey(a.cfg.KeyContext, identity); err != nil {
			return err
		}
	}

	if keyPath, err = provider.WriteKey(key); err != nil {
		return err
	}

	a.logger.Info("key generated", zap.String("path", keyPath), zap.String("fingerprint", key.Fingerprint()))

	_, err = fmt.Fprintf(a.stdout, "%s\n%s", keyPath, key.PublicKey().AuthorizedKey())

	return err
}

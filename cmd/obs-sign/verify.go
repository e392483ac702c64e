// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-signature-auth/pkg/message"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

type verifyOptions struct {
	realm         string
	publicKey     string
	authorization string
	allowedSkew   time.Duration
}

func newVerifyCommand(a *app) *cobra.Command {
	var opts verifyOptions

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an Authorization header against a public key, as the server does",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.verify(&opts)
		},
	}

	cmd.Flags().StringVar(&opts.realm, "realm", "", "Realm the signature must be made for")
	cmd.Flags().StringVar(&opts.publicKey, "public-key", "", "Public key file in the authorized_keys format")
	cmd.Flags().StringVar(&opts.authorization, "authorization", "", "Authorization header value")
	cmd.Flags().DurationVar(&opts.allowedSkew, "allowed-skew", message.DefaultAllowedSkew, "Allowed difference between the created timestamp and now")

	for _, name := range []string{"realm", "public-key", "authorization"} {
		cmd.MarkFlagRequired(name) //nolint:errcheck
	}

	return cmd
}

func (a *app) verify(opts *verifyOptions) error {
	authorizedKey, err := os.ReadFile(opts.publicKey)
	if err != nil {
		return err
	}

	publicKey, err := sshsig.ParsePublicKey(authorizedKey)
	if err != nil {
		return fmt.Errorf("failed to parse public key: %w", err)
	}

	if err = publicKey.Validate(); err != nil {
		return err
	}

	auth, err := message.ParseAuthorization(opts.authorization)
	if err != nil {
		return err
	}

	if err = auth.Verify(opts.realm, publicKey, message.WithAllowedSkew(opts.allowedSkew)); err != nil {
		return fmt.Errorf("signature of %q is not valid: %w", auth.KeyID, err)
	}

	_, err = fmt.Fprintf(a.stdout, "valid signature of %q by %s, created %s\n",
		auth.KeyID, publicKey.Fingerprint(), auth.Created.UTC().Format(time.RFC3339))

	return err
}

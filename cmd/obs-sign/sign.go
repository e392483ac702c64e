// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/siderolabs/go-signature-auth/pkg/message"
)

type signOptions struct {
	realm   string
	created int64
}

func newSignCommand(a *app) *cobra.Command {
	var opts signOptions

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print the Authorization header answering a challenge for the given realm",
		Example: `  curl -H "Authorization: $(obs-sign sign --realm 'Use your developer account')" \
    https://api.opensuse.org/about`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signer, err := a.signer()
			if err != nil {
				return err
			}

			created := time.Now()
			if opts.created != 0 {
				created = time.Unix(opts.created, 0)
			}

			auth, err := message.Sign(cmd.Context(), a.cfg.Identity(), message.Challenge{message.RealmParam: opts.realm}, signer, created)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(a.stdout, auth.String())

			return err
		},
	}

	cmd.Flags().StringVar(&opts.realm, "realm", "", "Realm of the challenge, used as the signature namespace")
	cmd.Flags().Int64Var(&opts.created, "created", 0, "Unix timestamp to sign instead of the current time")

	cmd.MarkFlagRequired("realm") //nolint:errcheck

	return cmd
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/siderolabs/go-signature-auth/internal/httpclient"
	"github.com/siderolabs/go-signature-auth/pkg/client/interceptor"
)

type getOptions struct {
	method  string
	data    string
	headers []string
}

func newGetCommand(a *app) *cobra.Command {
	var opts getOptions

	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send a signed request to the API and print the response body",
		Example: `  obs-sign get /source/openSUSE:Factory/bash/_meta
  obs-sign get -X PUT -d @meta.xml /source/home:alice/hello/_meta`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.get(cmd, args[0], &opts)
		},
	}

	cmd.Flags().StringVarP(&opts.method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "Request body, @file reads it from a file")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Extra request header, 'Name: value'")

	return cmd
}

func (a *app) get(cmd *cobra.Command, path string, opts *getOptions) error {
	signer, err := a.signer()
	if err != nil {
		return err
	}

	target, err := url.JoinPath(a.cfg.APIURL, path)
	if err != nil {
		return err
	}

	body, closeBody, err := requestBody(opts.data)
	if err != nil {
		return err
	}

	defer closeBody()

	req, err := http.NewRequestWithContext(cmd.Context(), opts.method, target, body)
	if err != nil {
		return err
	}

	for _, header := range opts.headers {
		name, value, ok := strings.Cut(header, ":")
		if !ok {
			return fmt.Errorf("invalid header %q, expected 'Name: value'", header)
		}

		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}

	client, err := httpclient.NewSigningClient(
		interceptor.Credentials{User: a.cfg.Identity(), KeyPath: a.cfg.SSHKey},
		interceptor.Options{Signer: signer, Logger: a.logger.Named("interceptor")},
		a.cfg.Timeout,
	)
	if err != nil {
		return err
	}

	// a single state for the whole command, a nonce issued by the server is reused
	ctx := interceptor.NewContext(req.Context(), interceptor.NewState())

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}

	defer resp.Body.Close() //nolint:errcheck

	for _, previous := range interceptor.History(resp) {
		a.logger.Debug("previous response", zap.Int("status", previous.StatusCode), zap.Stringer("url", previous.Request.URL))
	}

	if _, err = io.Copy(a.stdout, resp.Body); err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected response status %s", resp.Status)
	}

	return nil
}

// requestBody returns the body given with --data, files are sent as seekable bodies.
func requestBody(data string) (io.Reader, func(), error) {
	switch {
	case data == "":
		return nil, func() {}, nil
	case strings.HasPrefix(data, "@"):
		f, err := os.Open(strings.TrimPrefix(data, "@"))
		if err != nil {
			return nil, nil, err
		}

		return f, func() { f.Close() }, nil //nolint:errcheck
	default:
		return strings.NewReader(data), func() {}, nil
	}
}

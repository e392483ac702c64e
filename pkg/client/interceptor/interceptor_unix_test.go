// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build unix

package interceptor_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-signature-auth/pkg/client/interceptor"
	"github.com/siderolabs/go-signature-auth/pkg/message"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

func TestKeygenMalformedOutput(t *testing.T) {
	for _, tt := range []struct {
		name   string
		script string
	}{
		{
			name:   "no armor",
			script: "cat > /dev/null\necho 'Signing data on standard input'\n",
		},
		{
			name:   "non-zero exit",
			script: "cat > /dev/null\necho 'Load key: No such file or directory' >&2\nexit 255\n",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			program := filepath.Join(t.TempDir(), "ssh-keygen")
			require.NoError(t, os.WriteFile(program, []byte("#!/bin/sh\n"+tt.script), 0o700))

			var signed atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get(message.AuthorizationHeaderKey) != "" {
					signed.Add(1)
				}

				w.Header().Set(message.ChallengeHeaderKey, `Signature realm="obs"`)
				w.WriteHeader(http.StatusUnauthorized)
			}))
			t.Cleanup(server.Close)

			client := &http.Client{
				Transport: interceptor.New(
					interceptor.Credentials{User: testUser, KeyPath: "/keys/id_ed25519"},
					interceptor.Options{Signer: sshsig.NewKeygen("/keys/id_ed25519", sshsig.WithProgram(program))},
				),
			}

			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
			require.NoError(t, err)

			_, err = client.Do(req) //nolint:bodyclose
			require.ErrorIs(t, err, message.ErrSigningFailure)

			assert.Zero(t, signed.Load())
		})
	}
}

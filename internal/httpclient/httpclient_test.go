package httpclient_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-signature-auth/internal/httpclient"
	"github.com/siderolabs/go-signature-auth/pkg/client/interceptor"
	"github.com/siderolabs/go-signature-auth/pkg/message"
)

func TestSigningClientKeepsSessionCookie(t *testing.T) {
	var signatures atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("openSUSE_session"); err == nil {
			fmt.Fprint(w, "ok") //nolint:errcheck

			return
		}

		if r.Header.Get(message.AuthorizationHeaderKey) != "" {
			signatures.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "openSUSE_session", Value: "abc", Path: "/"})
			fmt.Fprint(w, "ok") //nolint:errcheck

			return
		}

		w.Header().Set(message.ChallengeHeaderKey, `Signature realm="obs"`)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	signer := message.SignerFunc(func(context.Context, []byte, string) ([]byte, error) {
		return []byte("signature"), nil
	})

	client, err := httpclient.NewSigningClient(
		interceptor.Credentials{User: "alice"},
		interceptor.Options{Signer: signer},
		time.Minute,
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)

		resp.Body.Close() //nolint:errcheck

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}

	assert.EqualValues(t, 1, signatures.Load())
}

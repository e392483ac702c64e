// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package serviceaccount_test

import (
	"context"
	"encoding/base64"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siderolabs/go-signature-auth/pkg/serviceaccount"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig/client"
)

func generateKey(t *testing.T, identity string) *client.Key {
	t.Helper()

	key, err := client.NewKeyProvider("test/keys").GenerateKey("obs", identity)
	require.NoError(t, err)

	return key
}

func TestEncodeDecode(t *testing.T) {
	key := generateKey(t, "bot")

	encoded, err := serviceaccount.Encode("bla", key)
	require.NoError(t, err)

	decoded, err := serviceaccount.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, "bla", decoded.Name)
	assert.Equal(t, key.Fingerprint(), decoded.Key.Fingerprint())

	// the decoded key signs for the original public key
	data := []byte("(created): 1700000000")

	signature, err := decoded.Key.Sign(context.Background(), data, "obs")
	require.NoError(t, err)

	require.NoError(t, key.PublicKey().Verify(data, "obs", signature))
}

func TestDecodeInvalid(t *testing.T) {
	for _, tt := range []struct {
		name  string
		value string
	}{
		{
			name:  "not base64",
			value: "!!!",
		},
		{
			name:  "not json",
			value: base64.StdEncoding.EncodeToString([]byte("name=bla")),
		},
		{
			name:  "no name",
			value: base64.StdEncoding.EncodeToString([]byte(`{"ssh_key":"x"}`)),
		},
		{
			name:  "bad key",
			value: base64.StdEncoding.EncodeToString([]byte(`{"name":"bla","ssh_key":"x"}`)),
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := serviceaccount.Decode(tt.value)
			assert.Error(t, err)
		})
	}

	_, err := serviceaccount.Decode(base64.StdEncoding.EncodeToString([]byte(`{"ssh_key":"x"}`)))
	assert.ErrorIs(t, err, serviceaccount.ErrMissingName)
}

func TestEnv(t *testing.T) {
	key1Encoded, err := serviceaccount.Encode("bla1", generateKey(t, "bla1"))
	require.NoError(t, err)

	t.Setenv(serviceaccount.SignatureServiceAccountKeyEnvVar, key1Encoded)

	key2Encoded, err := serviceaccount.Encode("bla2", generateKey(t, "bla2"))
	require.NoError(t, err)

	t.Setenv(serviceaccount.OSCServiceAccountKeyEnvVar, key2Encoded)

	// both env vars are set, SignatureServiceAccountKeyEnvVar should take precedence
	envKey, valueBase64 := serviceaccount.GetFromEnv()
	assert.Equal(t, serviceaccount.SignatureServiceAccountKeyEnvVar, envKey)
	assert.Equal(t, key1Encoded, valueBase64)

	require.NoError(t, os.Unsetenv(serviceaccount.SignatureServiceAccountKeyEnvVar))

	// only OSCServiceAccountKeyEnvVar is set
	envKey, valueBase64 = serviceaccount.GetFromEnv()
	assert.Equal(t, serviceaccount.OSCServiceAccountKeyEnvVar, envKey)
	assert.Equal(t, key2Encoded, valueBase64)

	require.NoError(t, os.Unsetenv(serviceaccount.OSCServiceAccountKeyEnvVar))

	// no env vars are set
	envKey, valueBase64 = serviceaccount.GetFromEnv()
	assert.Empty(t, envKey)
	assert.Empty(t, valueBase64)
}

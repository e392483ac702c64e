// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sshsig_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

func TestValidate(t *testing.T) {
	ecdsaKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	rsaKey, err := rsa.GenerateKey(rand.Reader, 1024) //nolint:gosec
	require.NoError(t, err)

	ed25519Key := newKey(t, generateEd25519(t))
	ecdsaSSHKey := newKey(t, ecdsaKey)
	shortRSAKey := newKey(t, rsaKey)

	assert.NoError(t, ed25519Key.Validate())
	assert.NoError(t, ecdsaSSHKey.Validate())

	assert.ErrorContains(t, shortRSAKey.Validate(), "RSA key is too short: 1024 < 2048 bits")
	assert.NoError(t, shortRSAKey.Validate(sshsig.WithMinRSABits(1024)))

	assert.ErrorContains(t, ecdsaSSHKey.PublicKey().Validate(sshsig.WithAllowedKeyTypes(ssh.KeyAlgoED25519)), "is not allowed")
	assert.NoError(t, ed25519Key.PublicKey().Validate(sshsig.WithAllowedKeyTypes(ssh.KeyAlgoED25519)))
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

//go:build unix

package sshsig_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/siderolabs/go-signature-auth/pkg/message"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

// writeScript writes a fake ssh-keygen which records its arguments and stdin next to itself.
func writeScript(t *testing.T, body string) (program, dir string) {
	t.Helper()

	dir = t.TempDir()
	program = filepath.Join(dir, "ssh-keygen")

	script := "#!/bin/sh\n" +
		"echo \"$@\" > \"" + filepath.Join(dir, "args") + "\"\n" +
		"cat > \"" + filepath.Join(dir, "stdin") + "\"\n" +
		body + "\n"

	require.NoError(t, os.WriteFile(program, []byte(script), 0o700))

	return program, dir
}

// catSignature writes an armored signature to a file and returns a script body printing it.
func catSignature(t *testing.T, armored string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "signature")
	require.NoError(t, os.WriteFile(path, []byte(armored), 0o600))

	return `cat "` + path + `"`
}

func TestKeygenFakeProgram(t *testing.T) {
	armored, expected := armoredSignature(t, []byte("(created): 1700000000"))

	program, dir := writeScript(t, catSignature(t, armored))

	signer := sshsig.NewKeygen("/keys/id_ed25519", sshsig.WithProgram(program))
	assert.Equal(t, "/keys/id_ed25519", signer.KeyPath())

	signature, err := signer.Sign(context.Background(), []byte("(created): 1700000000"), "obs")
	require.NoError(t, err)

	assert.Equal(t, expected, signature)

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)

	assert.Equal(t, "-Y sign -f /keys/id_ed25519 -n obs -q", strings.TrimSpace(string(args)))

	stdin, err := os.ReadFile(filepath.Join(dir, "stdin"))
	require.NoError(t, err)

	assert.Equal(t, "(created): 1700000000", string(stdin))
}

func TestKeygenExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	armored, _ := armoredSignature(t, []byte("x"))

	program, dir := writeScript(t, catSignature(t, armored))

	_, err := sshsig.NewKeygen("~/.ssh/id_ed25519", sshsig.WithProgram(program)).Sign(context.Background(), []byte("x"), "obs")
	require.NoError(t, err)

	args, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)

	assert.Contains(t, string(args), filepath.Join(home, ".ssh", "id_ed25519"))
}

func TestKeygenFailures(t *testing.T) {
	for _, tt := range []struct {
		name string
		body string
	}{
		{
			name: "non-zero exit",
			body: `echo "Load key: No such file or directory" >&2; exit 255`,
		},
		{
			name: "malformed output",
			body: `echo "3q2+7w=="`,
		},
		{
			name: "missing end marker",
			body: `printf '%s\n' '-----BEGIN SSH SIGNATURE-----' '3q2+7w=='`,
		},
		{
			name: "not a signature",
			body: `printf '%s\n' '-----BEGIN SSH SIGNATURE-----' '3q2+7w==' '-----END SSH SIGNATURE-----'`,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			program, _ := writeScript(t, tt.body)

			signature, err := sshsig.NewKeygen("id", sshsig.WithProgram(program)).Sign(context.Background(), []byte("x"), "obs")
			require.ErrorIs(t, err, message.ErrSigningFailure)
			assert.Nil(t, signature)
		})
	}
}

func TestKeygenMissingProgram(t *testing.T) {
	_, err := sshsig.NewKeygen("id", sshsig.WithProgram(filepath.Join(t.TempDir(), "missing"))).
		Sign(context.Background(), []byte("x"), "obs")
	require.ErrorIs(t, err, message.ErrSigningFailure)
}

func TestKeygenTimeout(t *testing.T) {
	program, _ := writeScript(t, `exec sleep 10`)

	start := time.Now()

	_, err := sshsig.NewKeygen("id", sshsig.WithProgram(program), sshsig.WithTimeout(100*time.Millisecond)).
		Sign(context.Background(), []byte("x"), "obs")
	require.ErrorIs(t, err, message.ErrSigningFailure)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestKeygenRealProgram(t *testing.T) {
	program, err := exec.LookPath(sshsig.DefaultProgram)
	if err != nil {
		t.Skip("ssh-keygen is not available")
	}

	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(privateKey, "test")
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600))

	sshSigner, err := ssh.NewSignerFromKey(privateKey)
	require.NoError(t, err)

	publicKey := sshsig.NewKey(sshSigner).PublicKey()

	data := []byte("(created): 1700000000")

	signature, err := sshsig.NewKeygen(keyPath, sshsig.WithProgram(program)).Sign(context.Background(), data, "obs")
	require.NoError(t, err)

	assert.NoError(t, publicKey.Verify(data, "obs", signature))
	assert.ErrorIs(t, publicKey.Verify(data, "other", signature), sshsig.ErrNamespaceMismatch)
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sshsig

import (
	"bytes"
	"context"
	"fmt"
	"io"

	sshsiglib "github.com/hiddeco/sshsig"
	"golang.org/x/crypto/ssh"

	"github.com/siderolabs/go-signature-auth/pkg/message"
)

// Key signs data in-process with an SSH private key.
type Key struct {
	signer ssh.Signer
}

// NewKey returns a new Key from the given ssh.Signer.
func NewKey(signer ssh.Signer) *Key {
	return &Key{
		signer: signer,
	}
}

// ParsePrivateKey parses a PEM encoded (OpenSSH, PKCS#1, PKCS#8) unencrypted private key.
func ParsePrivateKey(pemBytes []byte) (*Key, error) {
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		return nil, err
	}

	return NewKey(signer), nil
}

// PublicKey returns the public part of the key.
func (k *Key) PublicKey() *PublicKey {
	return &PublicKey{
		key: k.signer.PublicKey(),
	}
}

// Fingerprint returns the SHA256 fingerprint of the key.
func (k *Key) Fingerprint() string {
	return ssh.FingerprintSHA256(k.signer.PublicKey())
}

// Sign returns the binary SSHSIG signature of data in the given namespace.
func (k *Key) Sign(_ context.Context, data []byte, namespace string) ([]byte, error) {
	signer := k.signer

	if algSigner, ok := signer.(ssh.AlgorithmSigner); ok && signer.PublicKey().Type() == ssh.KeyAlgoRSA {
		// ssh-rsa (SHA-1) signatures are rejected by SSHSIG verifiers
		signer = rsaSHA512Signer{AlgorithmSigner: algSigner}
	}

	sig, err := sshsiglib.Sign(bytes.NewReader(data), signer, HashSHA512, namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", message.ErrSigningFailure, err)
	}

	return sig.Marshal(), nil
}

type rsaSHA512Signer struct {
	ssh.AlgorithmSigner
}

func (s rsaSHA512Signer) Sign(rand io.Reader, data []byte) (*ssh.Signature, error) {
	return s.SignWithAlgorithm(rand, data, ssh.KeyAlgoRSASHA512)
}

// PublicKey verifies SSHSIG signatures.
type PublicKey struct {
	key ssh.PublicKey
}

// ParsePublicKey parses a public key in the authorized_keys format.
func ParsePublicKey(authorizedKey []byte) (*PublicKey, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey(authorizedKey) //nolint:dogsled
	if err != nil {
		return nil, err
	}

	return &PublicKey{
		key: key,
	}, nil
}

// Fingerprint returns the SHA256 fingerprint of the key.
func (p *PublicKey) Fingerprint() string {
	return ssh.FingerprintSHA256(p.key)
}

// AuthorizedKey returns the key in the authorized_keys format.
func (p *PublicKey) AuthorizedKey() []byte {
	return ssh.MarshalAuthorizedKey(p.key)
}

// Verify verifies the binary SSHSIG signature of data in the given namespace.
func (p *PublicKey) Verify(data []byte, namespace string, signature []byte) error {
	sig, err := ParseSignature(signature)
	if err != nil {
		return err
	}

	if !bytes.Equal(sig.PublicKey.Marshal(), p.key.Marshal()) {
		return ErrKeyMismatch
	}

	if sig.Namespace != namespace {
		return fmt.Errorf("%w: %q != %q", ErrNamespaceMismatch, sig.Namespace, namespace)
	}

	return sshsiglib.Verify(bytes.NewReader(data), sig, p.key, sig.HashAlgorithm, namespace)
}

var (
	_ message.Signer            = (*Key)(nil)
	_ message.SignatureVerifier = (*PublicKey)(nil)
)

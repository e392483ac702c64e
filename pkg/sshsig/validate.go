// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sshsig

import (
	"crypto/rsa"
	"fmt"
	"slices"

	"golang.org/x/crypto/ssh"
)

// Key validation defaults.
const (
	DefaultMinRSABits = 2048
)

// DefaultAllowedKeyTypes are the key types accepted by default.
//
// DSA keys are not accepted, ssh-keygen refuses to sign with them anyway.
var DefaultAllowedKeyTypes = []string{
	ssh.KeyAlgoED25519,
	ssh.KeyAlgoECDSA256,
	ssh.KeyAlgoECDSA384,
	ssh.KeyAlgoECDSA521,
	ssh.KeyAlgoRSA,
	ssh.KeyAlgoSKED25519,
	ssh.KeyAlgoSKECDSA256,
}

type validationOptions struct {
	allowedKeyTypes []string
	minRSABits      int
}

func newDefaultValidationOptions() validationOptions {
	return validationOptions{
		allowedKeyTypes: DefaultAllowedKeyTypes,
		minRSABits:      DefaultMinRSABits,
	}
}

// ValidationOption represents a functional validation option.
type ValidationOption func(*validationOptions)

// WithAllowedKeyTypes customizes the accepted key types.
func WithAllowedKeyTypes(keyTypes ...string) ValidationOption {
	return func(o *validationOptions) {
		o.allowedKeyTypes = keyTypes
	}
}

// WithMinRSABits sets the minimum modulus size of RSA keys.
func WithMinRSABits(minRSABits int) ValidationOption {
	return func(o *validationOptions) {
		o.minRSABits = minRSABits
	}
}

// Validate validates the key.
func (p *PublicKey) Validate(opt ...ValidationOption) error {
	options := newDefaultValidationOptions()

	for _, o := range opt {
		o(&options)
	}

	keyType := p.key.Type()

	if !slices.Contains(options.allowedKeyTypes, keyType) {
		return fmt.Errorf("key type %q is not allowed", keyType)
	}

	if keyType != ssh.KeyAlgoRSA {
		return nil
	}

	cryptoKey, ok := p.key.(ssh.CryptoPublicKey)
	if !ok {
		return fmt.Errorf("key type %q can not be inspected", keyType)
	}

	rsaKey, ok := cryptoKey.CryptoPublicKey().(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("key type %q is not an RSA key", keyType)
	}

	if bits := rsaKey.N.BitLen(); bits < options.minRSABits {
		return fmt.Errorf("RSA key is too short: %d < %d bits", bits, options.minRSABits)
	}

	return nil
}

// Validate validates the public part of the key.
func (k *Key) Validate(opt ...ValidationOption) error {
	return k.PublicKey().Validate(opt...)
}

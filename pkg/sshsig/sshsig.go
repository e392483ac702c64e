// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package sshsig implements OpenSSH detached signatures (SSHSIG) used to sign requests.
//
// Signatures are produced either by the ssh-keygen binary or in-process from a private key,
// and verified with an SSH public key.
package sshsig

import (
	"errors"
	"fmt"

	sshsiglib "github.com/hiddeco/sshsig"
)

const (
	// HashSHA256 is the sha256 hash algorithm.
	HashSHA256 = sshsiglib.HashSHA256

	// HashSHA512 is the sha512 hash algorithm, used by default.
	HashSHA512 = sshsiglib.HashSHA512
)

var (
	// ErrMalformedSignature is returned when a signature envelope or blob cannot be decoded.
	ErrMalformedSignature = errors.New("malformed ssh signature")

	// ErrNamespaceMismatch is returned when a signature was made for another namespace.
	ErrNamespaceMismatch = errors.New("ssh signature namespace mismatch")

	// ErrKeyMismatch is returned when a signature was made by another key.
	ErrKeyMismatch = errors.New("ssh signature key mismatch")
)

// ParseSignature decodes the binary form of an SSHSIG signature.
func ParseSignature(data []byte) (*sshsiglib.Signature, error) {
	sig, err := sshsiglib.ParseSignature(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	return sig, nil
}

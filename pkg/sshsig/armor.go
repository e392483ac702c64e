// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sshsig

import (
	"fmt"

	sshsiglib "github.com/hiddeco/sshsig"
)

// Armor returns the ASCII-armored form of a binary signature.
func Armor(signature []byte) (string, error) {
	sig, err := ParseSignature(signature)
	if err != nil {
		return "", err
	}

	return string(sshsiglib.Armor(sig)), nil
}

// Unarmor extracts the binary signature from an armored block, as written by ssh-keygen.
func Unarmor(armored string) ([]byte, error) {
	sig, err := sshsiglib.Unarmor([]byte(armored))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}

	return sig.Marshal(), nil
}

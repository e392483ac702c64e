// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package client

import (
	"crypto"
	"encoding/pem"

	"golang.org/x/crypto/ssh"

	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

// Key represents an SSH client key pair associated with a context and an identity.
// It is stored on the filesystem.
type Key struct {
	*sshsig.Key
	privateKey crypto.PrivateKey
	context    string
	identity   string
}

// Identity returns the identity the key belongs to.
func (k *Key) Identity() string {
	return k.identity
}

// MarshalPrivate returns the private key in the OpenSSH PEM format.
func (k *Key) MarshalPrivate() ([]byte, error) {
	block, err := ssh.MarshalPrivateKey(k.privateKey, k.identity)
	if err != nil {
		return nil, err
	}

	return pem.EncodeToMemory(block), nil
}

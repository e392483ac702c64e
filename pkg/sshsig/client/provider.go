// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package client manages SSH signing keys stored on the client filesystem.
package client

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/crypto/ssh"

	"github.com/siderolabs/go-signature-auth/pkg/fileutils"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

const publicKeySuffix = ".pub"

// KeyProvider handles loading/saving client keys.
type KeyProvider struct {
	dataFileDirectory string
}

// NewKeyProvider creates a new KeyProvider.
func NewKeyProvider(dataFileDirectory string) *KeyProvider {
	return &KeyProvider{
		dataFileDirectory: dataFileDirectory,
	}
}

// KeyPath returns the path of the private key file, suitable for ssh-keygen.
func (provider *KeyProvider) KeyPath(context, identity string) (string, error) {
	return provider.getKeyFilePath(context, identity)
}

// ReadValidKey reads an SSH private key from the filesystem.
//
// If the key is missing, protected by a passphrase or not accepted by sshsig.Key.Validate, an error will be returned.
func (provider *KeyProvider) ReadValidKey(context, identity string) (*Key, error) {
	keyPath, err := provider.getKeyFilePath(context, identity)
	if err != nil {
		return nil, err
	}

	keyBytes, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	privateKey, err := ssh.ParseRawPrivateKey(keyBytes)
	if err != nil {
		var passphraseErr *ssh.PassphraseMissingError
		if errors.As(err, &passphraseErr) {
			return nil, fmt.Errorf("private key is locked")
		}

		return nil, err
	}

	if p, ok := privateKey.(*ed25519.PrivateKey); ok {
		privateKey = *p
	}

	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, err
	}

	key := &Key{
		Key:        sshsig.NewKey(signer),
		privateKey: privateKey,
		context:    context,
		identity:   identity,
	}

	if err = key.Validate(); err != nil {
		return nil, err
	}

	return key, nil
}

// GenerateKey generates a new ed25519 SSH key pair.
func (provider *KeyProvider) GenerateKey(context, identity string) (*Key, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.NewSignerFromKey(privateKey)
	if err != nil {
		return nil, err
	}

	return &Key{
		Key:        sshsig.NewKey(signer),
		privateKey: privateKey,
		context:    context,
		identity:   identity,
	}, nil
}

// DeleteKey deletes the key pair from disk.
func (provider *KeyProvider) DeleteKey(context, identity string) error {
	keyPath, err := provider.getKeyFilePath(context, identity)
	if err != nil {
		return err
	}

	var result error

	if err = os.Remove(keyPath); err != nil {
		result = multierror.Append(result, err)
	}

	if err = os.Remove(keyPath + publicKeySuffix); err != nil && !os.IsNotExist(err) {
		result = multierror.Append(result, err)
	}

	return result
}

// WriteKey saves the key pair to disk and returns the private key save path.
//
// The public key is written next to it in the authorized_keys format.
func (provider *KeyProvider) WriteKey(k *Key) (string, error) {
	armored, err := k.MarshalPrivate()
	if err != nil {
		return "", err
	}

	keyPath, err := provider.getKeyFilePath(k.context, k.identity)
	if err != nil {
		return "", err
	}

	if !fileutils.IsWritable(filepath.Dir(keyPath)) {
		return "", fmt.Errorf("key directory %q is not writable", filepath.Dir(keyPath))
	}

	err = os.WriteFile(keyPath, armored, 0o600)
	if err != nil {
		return "", err
	}

	err = os.WriteFile(keyPath+publicKeySuffix, k.PublicKey().AuthorizedKey(), 0o644)
	if err != nil {
		return "", err
	}

	return keyPath, nil
}

func (provider *KeyProvider) getKeyFilePath(context, identity string) (string, error) {
	keyName := fmt.Sprintf("%s-%s", context, identity)

	return xdg.DataFile(filepath.Join(provider.dataFileDirectory, keyName))
}

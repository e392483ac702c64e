// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
)

type mockSignerVerifier struct{}

func (mock mockSignerVerifier) Sign(_ context.Context, data []byte, namespace string) ([]byte, error) {
	hash := sha256.Sum256(append([]byte(namespace+"\n"), data...))

	return hash[:], nil
}

func (mock mockSignerVerifier) Verify(data []byte, namespace string, signature []byte) error {
	expected, _ := mock.Sign(context.Background(), data, namespace) //nolint:errcheck

	if !bytes.Equal(signature, expected) {
		return errors.New("invalid signature")
	}

	return nil
}

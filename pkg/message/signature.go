// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import "context"

// Signer produces a detached signature over data for the given namespace, e.g. an SSH private key.
//
// Implementations return errors wrapping ErrSigningFailure.
type Signer interface {
	Sign(ctx context.Context, data []byte, namespace string) ([]byte, error)
}

// SignerFunc is a function adapter for Signer.
type SignerFunc func(ctx context.Context, data []byte, namespace string) ([]byte, error)

// Sign implements Signer.
func (f SignerFunc) Sign(ctx context.Context, data []byte, namespace string) ([]byte, error) {
	return f(ctx, data, namespace)
}

// SignatureVerifier is a verifier of a request signature, e.g. an SSH public key.
type SignatureVerifier interface {
	Verify(data []byte, namespace string, signature []byte) error
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Authorization represents the credentials of a signed request.
type Authorization struct {
	Created   time.Time
	KeyID     string
	Algorithm string
	Headers   string
	Signature []byte
}

// Sign builds the Authorization for the given identity, signing the canonical string of created
// in the namespace of the challenge realm.
func Sign(ctx context.Context, identity string, challenge Challenge, signer Signer, created time.Time) (*Authorization, error) {
	realm, ok := challenge.Realm()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrSigningFailure, ErrNotFound, RealmParam)
	}

	created = time.Unix(created.Unix(), 0)

	signature, err := signer.Sign(ctx, CanonicalString(created), realm)
	if err != nil {
		if !errors.Is(err, ErrSigningFailure) {
			err = fmt.Errorf("%w: %w", ErrSigningFailure, err)
		}

		return nil, err
	}

	return &Authorization{
		KeyID:     identity,
		Algorithm: AlgorithmSSH,
		Headers:   CreatedPseudoHeader,
		Created:   created,
		Signature: signature,
	}, nil
}

// Credentials returns the credentials part of the header value, without the scheme.
func (a *Authorization) Credentials() string {
	return fmt.Sprintf(`keyId="%s",algorithm="%s",headers="%s",created=%d,signature="%s"`,
		a.KeyID, a.Algorithm, a.Headers, a.Created.Unix(), base64.StdEncoding.EncodeToString(a.Signature))
}

// String returns the Authorization header value.
func (a *Authorization) String() string {
	return SchemeSignature + " " + a.Credentials()
}

// ParseAuthorization parses an Authorization header value using the signature scheme.
func ParseAuthorization(value string) (*Authorization, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, AuthorizationHeaderKey)
	}

	scheme, params := splitScheme(value)
	if !strings.EqualFold(scheme, SchemeSignature) {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedAuthorization, scheme)
	}

	fields, err := ParseChallenge(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAuthorization, err)
	}

	for _, required := range []string{"keyId", "algorithm", "signature"} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, required)
		}
	}

	created, err := parseTimestamp(fields["created"])
	if err != nil {
		return nil, err
	}

	signature, err := base64.StdEncoding.DecodeString(fields["signature"])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedAuthorization, err)
	}

	headers := fields["headers"]
	if headers == "" {
		headers = CreatedPseudoHeader
	}

	return &Authorization{
		KeyID:     fields["keyId"],
		Algorithm: fields["algorithm"],
		Headers:   headers,
		Created:   *created,
		Signature: signature,
	}, nil
}

type verifyOptions struct {
	now         func() time.Time
	allowedSkew time.Duration
}

// VerifyOption represents a functional verification option.
type VerifyOption func(*verifyOptions)

// WithAllowedSkew sets the allowed clock skew of the created timestamp.
func WithAllowedSkew(allowedSkew time.Duration) VerifyOption {
	return func(o *verifyOptions) {
		o.allowedSkew = allowedSkew
	}
}

// WithClock sets the clock used to check the created timestamp.
func WithClock(now func() time.Time) VerifyOption {
	return func(o *verifyOptions) {
		o.now = now
	}
}

// Verify verifies the signature of the Authorization for the given realm.
// It includes the verifications for the algorithm, covered headers and the timestamp.
func (a *Authorization) Verify(realm string, verifier SignatureVerifier, opt ...VerifyOption) error {
	options := verifyOptions{
		now:         time.Now,
		allowedSkew: DefaultAllowedSkew,
	}

	for _, o := range opt {
		o(&options)
	}

	if a.Algorithm != AlgorithmSSH {
		return fmt.Errorf("%w: unsupported algorithm %q", ErrMalformedAuthorization, a.Algorithm)
	}

	if a.Headers != CreatedPseudoHeader {
		return fmt.Errorf("%w: unsupported headers %q", ErrMalformedAuthorization, a.Headers)
	}

	if err := verifyTimestamp(options.now(), &a.Created, options.allowedSkew); err != nil {
		return err
	}

	return verifier.Verify(CanonicalString(a.Created), realm, a.Signature)
}

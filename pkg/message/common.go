// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

const (
	// AuthorizationHeaderKey is Authorization: header name.
	AuthorizationHeaderKey = "Authorization"

	// ChallengeHeaderKey is the header carrying the server challenge.
	ChallengeHeaderKey = "WWW-Authenticate"

	// SchemeSignature is the authentication scheme name.
	SchemeSignature = "Signature"

	// AlgorithmSSH is the algorithm advertised in the Authorization header.
	AlgorithmSSH = "ssh"

	// CreatedPseudoHeader is the only covered header of the signature.
	CreatedPseudoHeader = "(created)"

	// RealmParam is the challenge parameter used as the signing namespace.
	RealmParam = "realm"

	// NonceParam is the optional challenge parameter enabling pre-emptive signing.
	NonceParam = "nonce"

	// DefaultAllowedSkew is the default allowed difference between the created timestamp and the verifier clock.
	DefaultAllowedSkew = 5 * time.Minute
)

var (
	// ErrNotFound is returned when a header or a parameter is not found.
	ErrNotFound = errors.New("not found")

	// ErrSigningFailure is returned when the signer could not produce a signature.
	ErrSigningFailure = errors.New("failed to sign request")

	// ErrMalformedChallenge is returned when a WWW-Authenticate value cannot be parsed.
	ErrMalformedChallenge = errors.New("malformed challenge")

	// ErrMalformedAuthorization is returned when an Authorization value cannot be parsed.
	ErrMalformedAuthorization = errors.New("malformed authorization")
)

func parseTimestamp(value string) (*time.Time, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, "created")
	}

	timestampInt, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid created value %q", ErrMalformedAuthorization, value)
	}

	timestamp := time.Unix(timestampInt, 0)

	return &timestamp, nil
}

func verifyTimestamp(now time.Time, timestamp *time.Time, allowedSkew time.Duration) error {
	if now.Add(allowedSkew).Before(*timestamp) ||
		now.Add(-allowedSkew).After(*timestamp) {
		return fmt.Errorf("timestamp is outside of allowed skew: %s", timestamp)
	}

	return nil
}

// CanonicalString returns the signed data for the given creation time.
func CanonicalString(created time.Time) []byte {
	return []byte(CreatedPseudoHeader + ": " + strconv.FormatInt(created.Unix(), 10))
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package message

import (
	"fmt"
	"strings"
)

// Challenge holds the parameters of a WWW-Authenticate challenge.
type Challenge map[string]string

// Realm returns the realm parameter.
func (c Challenge) Realm() (string, bool) {
	realm, ok := c[RealmParam]

	return realm, ok
}

// Nonce returns the nonce parameter, empty if the server did not issue one.
func (c Challenge) Nonce() string {
	return c[NonceParam]
}

// FindChallenge returns the parameter list of the first value using the signature scheme.
//
// The scheme token is matched case-insensitively.
func FindChallenge(values []string) (string, bool) {
	for _, value := range values {
		scheme, params := splitScheme(value)

		if strings.EqualFold(scheme, SchemeSignature) {
			return params, true
		}
	}

	return "", false
}

// ParseChallenge parses a comma-separated key="value" list into a Challenge.
//
// Quoted values may contain commas and backslash escapes. Items without a value are kept with an empty value.
func ParseChallenge(params string) (Challenge, error) {
	items, err := splitParams(params)
	if err != nil {
		return nil, err
	}

	challenge := make(Challenge, len(items))

	for _, item := range items {
		key, value, hasValue := strings.Cut(item, "=")

		key = strings.TrimSpace(key)
		if !isToken(key) {
			return nil, fmt.Errorf("%w: invalid parameter name %q", ErrMalformedChallenge, key)
		}

		if !hasValue {
			challenge[key] = ""

			continue
		}

		value, err = unquote(strings.TrimSpace(value))
		if err != nil {
			return nil, err
		}

		challenge[key] = value
	}

	return challenge, nil
}

func splitScheme(value string) (scheme, params string) {
	value = strings.TrimSpace(value)

	scheme, params, _ = strings.Cut(value, " ")

	return scheme, strings.TrimSpace(params)
}

func splitParams(params string) ([]string, error) {
	var (
		items   []string
		current strings.Builder
		quoted  bool
		escaped bool
	)

	for _, r := range params {
		switch {
		case escaped:
			escaped = false
		case quoted && r == '\\':
			escaped = true
		case r == '"':
			quoted = !quoted
		case r == ',' && !quoted:
			if item := strings.TrimSpace(current.String()); item != "" {
				items = append(items, item)
			}

			current.Reset()

			continue
		}

		current.WriteRune(r)
	}

	if quoted || escaped {
		return nil, fmt.Errorf("%w: unterminated quoted string", ErrMalformedChallenge)
	}

	if item := strings.TrimSpace(current.String()); item != "" {
		items = append(items, item)
	}

	return items, nil
}

func unquote(value string) (string, error) {
	if !strings.HasPrefix(value, `"`) {
		if strings.Contains(value, `"`) {
			return "", fmt.Errorf("%w: stray quote in %q", ErrMalformedChallenge, value)
		}

		return value, nil
	}

	if len(value) < 2 || !strings.HasSuffix(value, `"`) {
		return "", fmt.Errorf("%w: unterminated quoted string %q", ErrMalformedChallenge, value)
	}

	value = value[1 : len(value)-1]

	var (
		sb      strings.Builder
		escaped bool
	)

	for _, r := range value {
		if !escaped && r == '\\' {
			escaped = true

			continue
		}

		escaped = false

		sb.WriteRune(r)
	}

	return sb.String(), nil
}

func isToken(s string) bool {
	if s == "" {
		return false
	}

	return !strings.ContainsAny(s, " \t\"(),/:;<=>?@[\\]{}")
}

// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package serviceaccount contains service accounts related logic.
//
// A service account carries its identity and its SSH private key in a single value,
// so that unattended clients can sign without ssh-keygen or a key file.
package serviceaccount

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig/client"
)

const (
	// SignatureServiceAccountKeyEnvVar is the name of the environment variable
	// that contains the base64-encoded service account key JSON.
	SignatureServiceAccountKeyEnvVar = "OBS_SIGNATURE_SERVICE_ACCOUNT_KEY"

	// OSCServiceAccountKeyEnvVar is the name of the environment variable
	// that contains the base64-encoded service account key JSON.
	OSCServiceAccountKeyEnvVar = "OSC_SERVICE_ACCOUNT_KEY"
)

// ErrMissingName is returned when the decoded service account has no name.
var ErrMissingName = errors.New("service account name is missing")

// JSON is the JSON representation of a service account.
type JSON struct {
	// Name is the name (identity) of the service account, sent as the keyId.
	Name string `json:"name"`

	// SSHKey is the OpenSSH PEM encoded private key of the service account.
	SSHKey string `json:"ssh_key"`
}

// ServiceAccount represents a service account with an identity and an SSH key.
type ServiceAccount struct {
	Key  *sshsig.Key
	Name string
}

// GetFromEnv checks if a service account is available in the environment variables.
// If a known environment variable is found, its name and value are returned.
func GetFromEnv() (envKey, valueBase64 string) {
	for _, alias := range []string{SignatureServiceAccountKeyEnvVar, OSCServiceAccountKeyEnvVar} {
		value, valueOk := os.LookupEnv(alias)
		if !valueOk {
			continue
		}

		return alias, value
	}

	return "", ""
}

// Encode encodes the given service account name and SSH key into a base64 encoded JSON string.
func Encode(name string, key *client.Key) (string, error) {
	privateKey, err := key.MarshalPrivate()
	if err != nil {
		return "", fmt.Errorf("failed to marshal private key: %w", err)
	}

	saKey := JSON{
		Name:   name,
		SSHKey: string(privateKey),
	}

	saKeyJSON, err := json.Marshal(saKey)
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(saKeyJSON), nil
}

// Decode parses and decodes a service account from a base64 encoded JSON string.
func Decode(valueBase64 string) (*ServiceAccount, error) {
	saJSON, err := base64.StdEncoding.DecodeString(valueBase64)
	if err != nil {
		return nil, err
	}

	var sa JSON

	err = json.Unmarshal(saJSON, &sa)
	if err != nil {
		return nil, err
	}

	if sa.Name == "" {
		return nil, ErrMissingName
	}

	key, err := sshsig.ParsePrivateKey([]byte(sa.SSHKey))
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	return &ServiceAccount{
		Name: sa.Name,
		Key:  key,
	}, nil
}

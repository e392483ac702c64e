// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package sshsig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/siderolabs/go-signature-auth/pkg/message"
)

const (
	// DefaultProgram is the name of the ssh-keygen binary looked up in PATH.
	DefaultProgram = "ssh-keygen"

	// DefaultTimeout bounds a single ssh-keygen invocation.
	DefaultTimeout = 30 * time.Second
)

// KeygenOption represents a functional Keygen option.
type KeygenOption func(*Keygen)

// WithProgram sets the path to the ssh-keygen binary.
func WithProgram(program string) KeygenOption {
	return func(k *Keygen) {
		k.program = program
	}
}

// WithTimeout bounds each signing operation. Zero disables the timeout.
func WithTimeout(timeout time.Duration) KeygenOption {
	return func(k *Keygen) {
		k.timeout = timeout
	}
}

// Keygen signs data by running `ssh-keygen -Y sign` against a private key file.
//
// The key may be held by an ssh-agent or a hardware token, ssh-keygen takes care of it.
type Keygen struct {
	keyPath string
	program string
	timeout time.Duration
}

// NewKeygen returns a new Keygen signer for the given private key file.
func NewKeygen(keyPath string, opt ...KeygenOption) *Keygen {
	k := &Keygen{
		keyPath: keyPath,
		program: DefaultProgram,
		timeout: DefaultTimeout,
	}

	for _, o := range opt {
		o(k)
	}

	return k
}

// KeyPath returns the private key file path as configured.
func (k *Keygen) KeyPath() string {
	return k.keyPath
}

// Sign returns the binary SSHSIG signature of data in the given namespace.
func (k *Keygen) Sign(ctx context.Context, data []byte, namespace string) ([]byte, error) {
	program, err := exec.LookPath(k.program)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", message.ErrSigningFailure, err)
	}

	keyPath, err := ExpandHome(k.keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", message.ErrSigningFailure, err)
	}

	if k.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, k.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, program, "-Y", "sign", "-f", keyPath, "-n", namespace, "-q")
	cmd.Stdin = bytes.NewReader(data)

	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: ssh-keygen signature creation aborted: %w", message.ErrSigningFailure, ctxErr)
		}

		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("%w: ssh-keygen signature creation failed: %d: %s",
				message.ErrSigningFailure, ee.ExitCode(), strings.TrimSpace(string(ee.Stderr)))
		}

		return nil, fmt.Errorf("%w: %w", message.ErrSigningFailure, err)
	}

	signature, err := Unarmor(string(out))
	if err != nil {
		return nil, fmt.Errorf("%w: could not extract ssh signature: %w", message.ErrSigningFailure, err)
	}

	return signature, nil
}

// ExpandHome replaces a leading "~" of path with the home directory of the current user.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

var _ message.Signer = (*Keygen)(nil)

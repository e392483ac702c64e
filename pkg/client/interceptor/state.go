// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package interceptor

import (
	"context"
	"maps"
	"sync"

	"github.com/siderolabs/go-signature-auth/pkg/message"
)

// maxChallengeRetries is the number of signed retries allowed per exchange.
const maxChallengeRetries = 1

type stateContextKey struct{}

// State is the authentication state of a single execution context.
//
// A State must not be shared between concurrently running exchanges:
// each goroutine issuing requests attaches its own State with NewContext.
type State struct {
	challenge    message.Challenge
	lastNonce    string
	retryCount   int
	bodyPosition int64
	bodySeekable bool
	mu           sync.Mutex
}

// NewState returns a new State which has not seen any challenge yet.
func NewState() *State {
	return &State{
		challenge:  message.Challenge{},
		retryCount: 1,
	}
}

// NewContext returns a copy of ctx carrying the given State.
//
// Requests sent with the returned context share the State, so the realm learned from a challenge
// is kept for the following requests of the same context.
func NewContext(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateContextKey{}, state)
}

// StateFromContext returns the State attached to ctx, if any.
func StateFromContext(ctx context.Context) (*State, bool) {
	state, ok := ctx.Value(stateContextKey{}).(*State)

	return state, ok && state != nil
}

// Challenge returns a copy of the last parsed challenge.
func (s *State) Challenge() message.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.challenge)
}

// LastNonce returns the nonce issued with the last challenge, if any.
func (s *State) LastNonce() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastNonce
}

// RetryCount returns the retry counter of the current exchange, 1 meaning no signed retry was made.
func (s *State) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryCount
}

// BodyPosition returns the saved offset of the request body, ok is false if the body is not seekable.
func (s *State) BodyPosition() (position int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.bodyPosition, s.bodySeekable
}

func (s *State) resetRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retryCount = 1
}

// consumeRetry increments the counter if the retry budget is not exhausted.
func (s *State) consumeRetry() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retryCount > maxChallengeRetries {
		return false
	}

	s.retryCount++

	return true
}

func (s *State) setChallenge(challenge message.Challenge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenge = challenge
	s.lastNonce = challenge.Nonce()
}

func (s *State) setBodyPosition(position int64, seekable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bodyPosition = position
	s.bodySeekable = seekable
}

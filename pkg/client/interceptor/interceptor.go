// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package interceptor provides an HTTP client transport which answers Signature authentication challenges.
package interceptor

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/siderolabs/go-signature-auth/pkg/message"
	"github.com/siderolabs/go-signature-auth/pkg/sshsig"
)

// Credentials identify the signing user and the private key used to sign.
type Credentials struct {
	User    string
	KeyPath string
}

// Options are the options for the interceptor.
type Options struct {
	// Base is the transport sending the requests, http.DefaultTransport if nil.
	Base http.RoundTripper

	// Signer signs the challenges. When nil, ssh-keygen is run against Credentials.KeyPath.
	Signer message.Signer

	// Jar receives the cookies set by challenge responses, which are otherwise invisible to the http.Client.
	// It should be the jar of the http.Client using the interceptor.
	Jar http.CookieJar

	// Logger logs challenge handling, zap.NewNop() if nil.
	Logger *zap.Logger

	// Now is the clock used for the created timestamp.
	Now func() time.Time

	// Hooks are called for every response after the built-in ones.
	Hooks []Hook
}

// Interceptor is an http.RoundTripper which signs requests challenged with the Signature scheme.
//
// An Interceptor is safe for concurrent use. The authentication state is kept per execution context,
// see NewContext. Requests without a State in their context get a new one for each round trip.
//
// A challenge on a request whose body can neither be obtained again with GetBody nor seeked back
// is not answered, the challenged response is returned as is.
type Interceptor struct {
	base        http.RoundTripper
	signer      message.Signer
	jar         http.CookieJar
	logger      *zap.Logger
	now         func() time.Time
	hooks       []Hook
	credentials Credentials
}

// New creates a new client interceptor.
func New(credentials Credentials, options Options) *Interceptor {
	if options.Base == nil {
		options.Base = http.DefaultTransport
	}

	if options.Signer == nil {
		options.Signer = sshsig.NewKeygen(credentials.KeyPath)
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	if options.Now == nil {
		options.Now = time.Now
	}

	return &Interceptor{
		base:        options.Base,
		signer:      options.Signer,
		jar:         options.Jar,
		logger:      options.Logger,
		now:         options.Now,
		hooks:       options.Hooks,
		credentials: credentials,
	}
}

// Credentials returns the credentials of the interceptor.
func (i *Interceptor) Credentials() Credentials {
	return i.credentials
}

// Equal reports whether both interceptors authenticate as the same user with the same key.
func (i *Interceptor) Equal(other *Interceptor) bool {
	if i == nil || other == nil {
		return i == other
	}

	return i.credentials == other.credentials
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	state, ok := StateFromContext(req.Context())
	if !ok {
		state = NewState()
	}

	ex := &exchange{
		interceptor: i,
		state:       state,
		original:    req,
	}

	outgoing := req.Clone(req.Context())

	closeBody := ex.trackBody(outgoing)
	defer closeBody()

	// a server-issued nonce means the realm is known, sign upfront
	if state.LastNonce() != "" {
		if err := ex.authorize(outgoing); err != nil {
			closeQuietly(outgoing.Body)

			return nil, err
		}
	}

	state.resetRetries()

	return ex.send(outgoing)
}

// exchange is a single request dispatch with its retries.
type exchange struct {
	interceptor *Interceptor
	state       *State
	original    *http.Request
	getBody     func() (io.ReadCloser, error)
}

func (ex *exchange) send(req *http.Request) (*http.Response, error) {
	resp, err := ex.interceptor.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	for _, hook := range ex.pipeline() {
		resp, err = hook.Handle(resp)
		if err != nil {
			return nil, err
		}
	}

	return resp, nil
}

func (ex *exchange) authorize(req *http.Request) error {
	auth, err := message.Sign(req.Context(), ex.interceptor.credentials.User, ex.state.Challenge(), ex.interceptor.signer, ex.interceptor.now())
	if err != nil {
		return err
	}

	req.Header.Set(message.AuthorizationHeaderKey, auth.String())

	return nil
}

// History returns the responses which led to resp, oldest first.
//
// It includes the challenged responses answered by the Interceptor and the redirects followed by the http.Client.
func History(resp *http.Response) []*http.Response {
	var history []*http.Response

	for req := resp.Request; req != nil && req.Response != nil; req = req.Response.Request {
		history = append([]*http.Response{req.Response}, history...)
	}

	return history
}

var _ http.RoundTripper = (*Interceptor)(nil)

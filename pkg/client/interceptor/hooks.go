// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package interceptor

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/siderolabs/go-signature-auth/pkg/message"
)

// Hook is called with every response received by the Interceptor.
//
// It returns either the given response or a replacement. A hook replacing the response
// is responsible for closing the body of the one it discards.
type Hook interface {
	Handle(resp *http.Response) (*http.Response, error)
}

// HookFunc is a function adapter for Hook.
type HookFunc func(resp *http.Response) (*http.Response, error)

// Handle implements Hook.
func (f HookFunc) Handle(resp *http.Response) (*http.Response, error) {
	return f(resp)
}

// pipeline returns the hooks of the exchange, the challenge hook always runs first.
func (ex *exchange) pipeline() []Hook {
	hooks := make([]Hook, 0, 2+len(ex.interceptor.hooks))

	hooks = append(hooks, HookFunc(ex.handleChallenge), HookFunc(ex.handleRedirect))

	return append(hooks, ex.interceptor.hooks...)
}

// handleRedirect resets the retry budget, a redirect starts a new exchange.
func (ex *exchange) handleRedirect(resp *http.Response) (*http.Response, error) {
	if isRedirect(resp) {
		ex.state.resetRetries()
	}

	return resp, nil
}

// handleChallenge answers a signature challenge by re-sending the request signed.
func (ex *exchange) handleChallenge(resp *http.Response) (*http.Response, error) {
	if resp.StatusCode < 400 || resp.StatusCode >= 500 {
		ex.state.resetRetries()

		return resp, nil
	}

	logger := ex.interceptor.logger.With(
		zap.String("method", ex.original.Method),
		zap.Stringer("url", ex.original.URL),
		zap.Int("status", resp.StatusCode),
	)

	passThrough := func() (*http.Response, error) {
		ex.state.resetRetries()

		return resp, nil
	}

	params, found := message.FindChallenge(resp.Header.Values(message.ChallengeHeaderKey))
	if !found {
		return passThrough()
	}

	if !ex.state.consumeRetry() {
		logger.Debug("signature challenge repeated, giving up")

		return passThrough()
	}

	challenge, err := message.ParseChallenge(params)
	if err != nil {
		logger.Debug("ignoring malformed signature challenge", zap.Error(err))

		return passThrough()
	}

	body, err := ex.rewind()
	if err != nil {
		logger.Warn("can not answer signature challenge", zap.Error(err))

		return passThrough()
	}

	ex.state.setChallenge(challenge)

	realm, _ := challenge.Realm()
	logger.Debug("answering signature challenge", zap.String("realm", realm))

	// release the connection so that the signed request can reuse it
	drain(resp)

	retry := ex.original.Clone(ex.original.Context())
	retry.Body = body
	retry.Response = resp

	ex.mergeCookies(retry, resp)

	if err = ex.authorize(retry); err != nil {
		closeQuietly(body)

		return nil, err
	}

	newResp, err := ex.resend(retry)
	if err != nil {
		return nil, err
	}

	newResp.Request = retry

	return newResp, nil
}

// resend sends a signed retry. Only the challenge hook sees its response, the other hooks run
// once on the response handleChallenge returns.
func (ex *exchange) resend(req *http.Request) (*http.Response, error) {
	resp, err := ex.interceptor.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	return ex.handleChallenge(resp)
}

// mergeCookies copies the cookies set by resp into req, overriding the ones with the same name.
func (ex *exchange) mergeCookies(req *http.Request, resp *http.Response) {
	cookies := resp.Cookies()

	if jar := ex.interceptor.jar; jar != nil {
		if len(cookies) > 0 {
			jar.SetCookies(ex.original.URL, cookies)
		}

		cookies = jar.Cookies(req.URL)
	}

	if len(cookies) == 0 {
		return
	}

	overridden := make(map[string]struct{}, len(cookies))

	for _, cookie := range cookies {
		overridden[cookie.Name] = struct{}{}
	}

	existing := req.Cookies()

	req.Header.Del("Cookie")

	for _, cookie := range existing {
		if _, ok := overridden[cookie.Name]; !ok {
			req.AddCookie(cookie)
		}
	}

	for _, cookie := range cookies {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
}

func isRedirect(resp *http.Response) bool {
	if resp.Header.Get("Location") == "" {
		return false
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}

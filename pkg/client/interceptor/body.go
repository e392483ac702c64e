// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package interceptor

import (
	"errors"
	"io"
	"net/http"
)

// DoS Protection.
const maxDrainSize = 1024 * 1024

var errBodyNotReplayable = errors.New("request body can not be replayed")

// heldBody keeps a seekable body open across the attempts of an exchange.
type heldBody struct {
	io.ReadSeeker
}

func (heldBody) Close() error {
	return nil
}

// trackBody records how the body of req can be sent again and returns the function closing it
// once the exchange is over.
func (ex *exchange) trackBody(req *http.Request) (closer func()) {
	closer = func() {}

	switch {
	case req.Body == nil || req.Body == http.NoBody:
		ex.state.setBodyPosition(0, false)

		ex.getBody = func() (io.ReadCloser, error) {
			return req.Body, nil
		}
	case req.GetBody != nil:
		ex.state.setBodyPosition(0, false)

		ex.getBody = req.GetBody
	default:
		seeker, ok := req.Body.(io.ReadSeeker)
		if !ok {
			ex.state.setBodyPosition(0, false)

			return closer
		}

		position, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			ex.state.setBodyPosition(0, false)

			return closer
		}

		ex.state.setBodyPosition(position, true)

		original := req.Body
		held := heldBody{ReadSeeker: seeker}

		req.Body = held
		closer = func() { original.Close() } //nolint:errcheck

		ex.getBody = func() (io.ReadCloser, error) {
			if _, err := seeker.Seek(position, io.SeekStart); err != nil {
				return nil, err
			}

			return held, nil
		}
	}

	return closer
}

// rewind returns the body to send with the next attempt.
func (ex *exchange) rewind() (io.ReadCloser, error) {
	if ex.getBody == nil {
		return nil, errBodyNotReplayable
	}

	return ex.getBody()
}

// drain consumes and closes the response body so that the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize)) //nolint:errcheck
	resp.Body.Close()                                            //nolint:errcheck
}

func closeQuietly(body io.ReadCloser) {
	if body != nil {
		body.Close() //nolint:errcheck
	}
}

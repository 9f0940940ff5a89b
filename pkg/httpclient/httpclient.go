package httpclient

import (
	"net/http"
	"time"
)

// HTTPDoer is the subset of *http.Client used for outbound calls such as
// webhook delivery. Tests substitute httpclienttest.FakeDoer.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// New returns an *http.Client with the given timeout. A non-positive
// timeout falls back to def.
func New(timeout, def time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = def
	}
	return &http.Client{Timeout: timeout}
}

package httpclienttest

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/evercode/routegen/pkg/httpclient"
)

// Reply is one queued outcome of a Do call.
type Reply struct {
	Resp *http.Response
	Err  error
}

// FakeDoer implements httpclient.HTTPDoer without touching the network.
// Request bodies are buffered so tests can inspect them after Do returns.
type FakeDoer struct {
	t       testing.TB
	mu      sync.Mutex
	replies []Reply
	reqs    []*http.Request
	bodies  [][]byte
}

// NewFakeDoer returns a FakeDoer that answers with resps in order.
func NewFakeDoer(t testing.TB, resps ...*http.Response) *FakeDoer {
	f := &FakeDoer{t: t}
	for _, r := range resps {
		f.replies = append(f.replies, Reply{Resp: r})
	}
	return f
}

// Fail queues a transport error as the next reply.
func (f *FakeDoer) Fail(err error) *FakeDoer {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, Reply{Err: err})
	return f
}

func (f *FakeDoer) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			f.t.Fatalf("fake http client: read request body: %v", err)
		}
		_ = req.Body.Close()
		body = b
		req.Body = io.NopCloser(bytes.NewReader(b))
	}
	f.reqs = append(f.reqs, req)
	f.bodies = append(f.bodies, body)

	if len(f.replies) == 0 {
		f.t.Fatalf("fake http client has no replies left for request %s %s", req.Method, req.URL.String())
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.Resp, r.Err
}

// Requests returns the captured requests.
func (f *FakeDoer) Requests() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*http.Request(nil), f.reqs...)
}

// Body returns the buffered body of the i-th request.
func (f *FakeDoer) Body(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 || i >= len(f.bodies) {
		return nil
	}
	return f.bodies[i]
}

func NewStringResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

var _ httpclient.HTTPDoer = (*FakeDoer)(nil)

// Package httputil holds the HTTP client seam used by downloaders and the
// JSON response helpers used by the dashboard handlers.
package httputil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// HTTPClient is the subset of *http.Client the downloaders need.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultTimeout bounds a whole request, including reading the body.
const DefaultTimeout = 5 * time.Minute

// StandardClient wraps *http.Client to implement HTTPClient.
type StandardClient struct {
	*http.Client
}

// NewStandardClient wraps c. A nil c gets a client with DefaultTimeout.
func NewStandardClient(c *http.Client) *StandardClient {
	if c == nil {
		c = &http.Client{Timeout: DefaultTimeout}
	}
	return &StandardClient{Client: c}
}

// Do sends an HTTP request.
func (c *StandardClient) Do(req *http.Request) (*http.Response, error) {
	return c.Client.Do(req)
}

// MockResponse is a canned response. A non-nil Error is returned instead of
// a response.
type MockResponse struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	Error      error
}

// MockHTTPClient serves canned responses and records requests. Responses
// registered for a URL with On are consumed in order for that URL; other
// requests take from the shared queue added with AddResponse, then fall
// back to an empty 200. The last response registered for a URL repeats
// once its queue is drained. It is safe for concurrent use.
type MockHTTPClient struct {
	// DoFunc, when set, handles every request.
	DoFunc func(req *http.Request) (*http.Response, error)

	mu         sync.Mutex
	requests   []*http.Request
	byURL      map[string][]MockResponse
	callsByURL map[string]int
	queue      []MockResponse
}

// NewMockHTTPClient creates an empty mock client.
func NewMockHTTPClient() *MockHTTPClient {
	return &MockHTTPClient{
		byURL:      make(map[string][]MockResponse),
		callsByURL: make(map[string]int),
	}
}

// On queues responses for requests to url.
func (m *MockHTTPClient) On(url string, responses ...MockResponse) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byURL[url] = append(m.byURL[url], responses...)
	return m
}

// AddResponse queues a response on the shared queue.
func (m *MockHTTPClient) AddResponse(statusCode int, body []byte) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, MockResponse{StatusCode: statusCode, Body: body})
	return m
}

// AddErrorResponse queues a transport error on the shared queue.
func (m *MockHTTPClient) AddErrorResponse(err error) *MockHTTPClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, MockResponse{Error: err})
	return m
}

// Do records the request and returns the next canned response.
func (m *MockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	doFunc := m.DoFunc
	url := req.URL.String()
	var resp MockResponse
	switch queued := m.byURL[url]; {
	case doFunc != nil:
	case len(queued) > 0:
		n := m.callsByURL[url]
		if n >= len(queued) {
			n = len(queued) - 1
		}
		resp = queued[n]
		m.callsByURL[url]++
	case len(m.queue) > 0:
		resp = m.queue[0]
		m.queue = m.queue[1:]
	default:
		resp = MockResponse{StatusCode: http.StatusOK}
	}
	m.mu.Unlock()

	if doFunc != nil {
		return doFunc(req)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	header := resp.Headers
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		Status:        fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		StatusCode:    resp.StatusCode,
		Body:          io.NopCloser(bytes.NewReader(resp.Body)),
		ContentLength: int64(len(resp.Body)),
		Header:        header,
		Request:       req,
	}, nil
}

// Requests returns the recorded requests in arrival order.
func (m *MockHTTPClient) Requests() []*http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*http.Request(nil), m.requests...)
}

// RequestCount returns the number of recorded requests.
func (m *MockHTTPClient) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// CallsTo returns how many requests were made to url.
func (m *MockHTTPClient) CallsTo(url string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.requests {
		if r.URL.String() == url {
			n++
		}
	}
	return n
}

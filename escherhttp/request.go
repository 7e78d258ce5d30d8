// Package escherhttp connects the escher engine to net/http: a request
// adapter, a verifying middleware and a signing RoundTripper.
package escherhttp

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/forestrie/go-escher/escher"
)

// Request adapts an *http.Request to escher.RequestAdapter. The body is
// read once and put back, so the request stays usable afterwards.
type Request struct {
	r    *http.Request
	body []byte
}

var _ escher.RequestAdapter = (*Request)(nil)

// NewRequest reads the body of r and wraps it.
func NewRequest(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		body = b
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	return &Request{r: r, body: body}, nil
}

func (req *Request) Method() string {
	return req.r.Method
}

// Path returns the path as received for server requests and the escaped
// URL path for client requests.
func (req *Request) Path() string {
	if req.r.RequestURI != "" {
		path, _ := escher.SplitURI(req.r.RequestURI)
		return path
	}
	return req.r.URL.EscapedPath()
}

func (req *Request) Query() []escher.QueryPair {
	return escher.ParseQuery(req.r.URL.RawQuery)
}

func (req *Request) host() string {
	if req.r.Host != "" {
		return req.r.Host
	}
	return req.r.URL.Host
}

// Headers returns the host first, then every header field ordered by name.
func (req *Request) Headers() []escher.Header {
	names := make([]string, 0, len(req.r.Header))
	for name := range req.r.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]escher.Header, 0, len(names)+1)
	if host := req.host(); host != "" {
		headers = append(headers, escher.Header{Name: escher.HostHeader, Value: host})
	}
	for _, name := range names {
		if strings.EqualFold(name, escher.HostHeader) {
			continue
		}
		for _, value := range req.r.Header[name] {
			headers = append(headers, escher.Header{Name: name, Value: value})
		}
	}
	return headers
}

func (req *Request) Body() []byte {
	return req.body
}

func (req *Request) HasHeader(name string) bool {
	if strings.EqualFold(name, escher.HostHeader) {
		return req.host() != ""
	}
	return len(req.r.Header.Values(name)) > 0
}

// SetHeader replaces the named header. Setting host changes r.Host.
func (req *Request) SetHeader(name, value string) {
	if strings.EqualFold(name, escher.HostHeader) {
		req.r.Host = value
		return
	}
	if req.r.Header == nil {
		req.r.Header = make(http.Header)
	}
	req.r.Header.Set(name, value)
}

package escher

import "strings"

// QueryPair is one decoded query parameter.
type QueryPair struct {
	Key   string
	Value string
}

// Header is one header field. Repeated fields appear as separate Headers.
type Header struct {
	Name  string
	Value string
}

// RequestAdapter is the view of a request the engine works on. Adapters
// exist per host framework; the engine never sees concrete request types.
type RequestAdapter interface {
	Method() string
	// Path is the raw (still escaped) request path.
	Path() string
	// Query returns the decoded query pairs in the order received.
	Query() []QueryPair
	// Headers returns all header fields, including host.
	Headers() []Header
	Body() []byte
	HasHeader(name string) bool
	SetHeader(name, value string)
}

// HeaderValue returns the first value of the named header.
func HeaderValue(headers []Header, name string) (string, bool) {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// HashRequest is a RequestAdapter over plain values: a method, a request
// URI (path and query) and header pairs. Underscores in header names are
// read as dashes.
type HashRequest struct {
	method  string
	path    string
	query   []QueryPair
	headers []Header
	body    []byte
}

// NewHashRequest creates a HashRequest. The headers slice is copied.
func NewHashRequest(method, uri string, headers []Header, body []byte) *HashRequest {
	path, rawQuery := SplitURI(uri)
	hs := make([]Header, 0, len(headers))
	for _, h := range headers {
		hs = append(hs, Header{Name: strings.ReplaceAll(h.Name, "_", "-"), Value: h.Value})
	}
	return &HashRequest{
		method:  method,
		path:    path,
		query:   ParseQuery(rawQuery),
		headers: hs,
		body:    body,
	}
}

func (r *HashRequest) Method() string { return r.method }

func (r *HashRequest) Path() string { return r.path }

func (r *HashRequest) Query() []QueryPair {
	return append([]QueryPair(nil), r.query...)
}

func (r *HashRequest) Headers() []Header {
	return append([]Header(nil), r.headers...)
}

func (r *HashRequest) Body() []byte { return r.body }

func (r *HashRequest) HasHeader(name string) bool {
	_, ok := HeaderValue(r.headers, name)
	return ok
}

// SetHeader adds the header unless it is already present.
func (r *HashRequest) SetHeader(name, value string) {
	if r.HasHeader(name) {
		return
	}
	r.headers = append(r.headers, Header{Name: name, Value: value})
}

// Header returns the first value of the named header.
func (r *HashRequest) Header(name string) string {
	v, _ := HeaderValue(r.headers, name)
	return v
}

func requestParts(req RequestAdapter) RequestParts {
	return RequestParts{
		Method:  req.Method(),
		Path:    req.Path(),
		Query:   req.Query(),
		Headers: req.Headers(),
		Body:    req.Body(),
	}
}

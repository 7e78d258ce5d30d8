package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/forestrie/go-escher/escher"
	"github.com/spf13/pflag"
)

type requestFlags struct {
	method  string
	url     string
	headers []string
	body    string
}

func (f *requestFlags) register(flags *pflag.FlagSet) {
	flags.StringVarP(&f.method, "method", "X", "GET", "HTTP method")
	flags.StringVarP(&f.url, "url", "u", "", "Request URL, absolute or path and query")
	flags.StringArrayVarP(&f.headers, "header", "H", nil, `Request header as "Name: value", repeatable`)
	flags.StringVarP(&f.body, "body", "d", "", "Request body")
}

func parseHeader(raw string) (escher.Header, error) {
	name, value, ok := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return escher.Header{}, fmt.Errorf("invalid header %q, expected \"Name: value\"", raw)
	}
	return escher.Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

// request builds the request described by the flags. The host header is
// taken from an absolute URL unless given explicitly.
func (f *requestFlags) request() (*escher.HashRequest, error) {
	if f.url == "" {
		return nil, fmt.Errorf("--url is required")
	}
	u, err := url.Parse(f.url)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	headers := make([]escher.Header, 0, len(f.headers)+1)
	for _, raw := range f.headers {
		h, err := parseHeader(raw)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	if _, ok := escher.HeaderValue(headers, escher.HostHeader); !ok && u.Host != "" {
		headers = append([]escher.Header{{Name: escher.HostHeader, Value: u.Host}}, headers...)
	}

	uri := u.EscapedPath()
	if uri == "" {
		uri = "/"
	}
	if u.RawQuery != "" {
		uri += "?" + u.RawQuery
	}

	var body []byte
	if f.body != "" {
		body = []byte(f.body)
	}
	return escher.NewHashRequest(f.method, uri, headers, body), nil
}

package escherhttp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/forestrie/go-escher/escher"
)

// Transport signs every request before passing it to Base.
type Transport struct {
	// Base defaults to http.DefaultTransport.
	Base        http.RoundTripper
	Config      escher.Config
	Credentials escher.Credentials

	// HeadersToSign are signed in addition to host and the date header.
	HeadersToSign []string

	// Now defaults to time.Now.
	Now func() time.Time

	// Metrics is optional.
	Metrics *Metrics
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// RoundTrip signs a clone of r and sends it. The body of r is consumed,
// its headers are left untouched.
func (t *Transport) RoundTrip(r *http.Request) (*http.Response, error) {
	signed, err := t.sign(r)
	t.Metrics.observeSigning(err)
	if err != nil {
		return nil, err
	}
	return t.base().RoundTrip(signed)
}

func (t *Transport) sign(r *http.Request) (*http.Request, error) {
	clone := r.Clone(r.Context())
	req, err := NewRequest(clone)
	if err != nil {
		return nil, err
	}
	if err := t.Config.AtTime(t.now()).SignRequest(req, t.Credentials, t.HeadersToSign); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}
	return clone, nil
}

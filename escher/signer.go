package escher

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// SignRequest signs req in place. The host and date headers are always
// signed, in addition to headersToSign. A missing date header is added
// with c.CurrentTime; a missing host header is an error, as is a header in
// headersToSign that req does not carry or that names c.AuthHeaderName.
// The signature is written into the c.AuthHeaderName header.
func (c Config) SignRequest(req RequestAdapter, creds Credentials, headersToSign []string) error {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !req.HasHeader(HostHeader) {
		return headerError(CodeMissingHeader, HostHeader)
	}

	t := NewSigningTime(c.CurrentTime)
	if !req.HasHeader(c.DateHeaderName) {
		req.SetHeader(c.DateHeaderName, formatDateHeader(c.DateHeaderName, t))
	}

	for _, name := range headersToSign {
		if strings.EqualFold(name, c.AuthHeaderName) {
			return fmt.Errorf("the %s header cannot be signed", strings.ToLower(name))
		}
		if !req.HasHeader(name) {
			return headerError(CodeMissingHeader, strings.ToLower(name))
		}
	}

	signedHeaders := make([]string, 0, len(headersToSign)+2)
	signedHeaders = append(signedHeaders, headersToSign...)
	signedHeaders = append(signedHeaders, strings.ToLower(c.DateHeaderName), HostHeader)
	signedHeaders = normalizeHeaderNames(signedHeaders)

	result := c.Sign(creds, requestParts(req), signedHeaders)

	fields := AuthFields{
		Algorithm:       string(c.HashAlgo),
		KeyID:           creds.KeyID,
		ShortDate:       t.ShortDate(),
		CredentialScope: c.CredentialScope,
		SignedHeaders:   signedHeaders,
		Signature:       result.Signature,
	}
	req.SetHeader(c.AuthHeaderName, fields.AuthHeader(c.AlgoPrefix))
	return nil
}

// GenerateSignedURL returns rawURL with presigned URL parameters appended,
// valid for expires from c.CurrentTime (DefaultPresignExpiry when zero).
// Only host is signed and the body is UnsignedPayload. Default ports are
// dropped from the host; a fragment is passed through unsigned.
func (c Config) GenerateSignedURL(rawURL string, creds Credentials, expires time.Duration) (string, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid config: %w", err)
	}

	withoutFragment, fragment, hasFragment := strings.Cut(rawURL, "#")
	u, err := url.Parse(withoutFragment)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	expiresSeconds := int64(expires / time.Second)
	if expiresSeconds <= 0 {
		expiresSeconds = DefaultPresignExpiry
	}

	host := SanitizeHost(u)
	path := u.EscapedPath()
	signedHeaders := []string{HostHeader}

	query := parseQuery(u.RawQuery, false)
	query = append(query, c.PresignParams(creds.KeyID, expiresSeconds, signedHeaders)...)

	result := c.Sign(creds, RequestParts{
		Method:  "GET",
		Path:    path,
		Query:   query,
		Headers: []Header{{Name: HostHeader, Value: host}},
		Body:    []byte(UnsignedPayload),
	}, signedHeaders)

	var b strings.Builder
	b.WriteString(u.Scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	b.WriteRune('?')
	b.WriteString(EncodeQuery(query))
	b.WriteRune('&')
	b.WriteString(URIEncode(c.queryKey(SignatureParam)))
	b.WriteRune('=')
	b.WriteString(result.Signature)
	if hasFragment {
		b.WriteRune('#')
		b.WriteString(fragment)
	}
	return b.String(), nil
}

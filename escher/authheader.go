package escher

import "strings"

// AuthFields is the signature material of a request, read either from the
// auth header or from presigned URL parameters.
type AuthFields struct {
	// Algorithm is the hash part of the algorithm id, e.g. "SHA256".
	Algorithm       string
	KeyID           string
	ShortDate       string
	CredentialScope string
	// SignedHeaders are lower-cased, in the order they were listed.
	SignedHeaders []string
	Signature     string
	// Expires is 0 for header auth, the validity in seconds for presigned
	// URLs.
	Expires int64
}

// Credential returns "keyID/shortDate/scope".
func (f AuthFields) Credential() string {
	return f.KeyID + "/" + f.ShortDate + "/" + f.CredentialScope
}

// AuthHeader formats f as an auth header value.
// Format: PREFIX-HMAC-ALGO Credential=..., SignedHeaders=..., Signature=...
// Reference: AWS SDK v4 signer v4.go buildAuthorizationHeader
func (f AuthFields) AuthHeader(algoPrefix string) string {
	const credential = "Credential="
	const signedHeaders = "SignedHeaders="
	const signatureKey = "Signature="
	const commaSpace = ", "

	credentialStr := f.Credential()
	signedHeadersStr := SignedHeadersString(f.SignedHeaders)

	var parts strings.Builder
	parts.Grow(
		len(algoPrefix) + len("-HMAC-") + len(f.Algorithm) + 1 +
			len(credential) + len(credentialStr) + 2 +
			len(signedHeaders) + len(signedHeadersStr) + 2 +
			len(signatureKey) + len(f.Signature),
	)
	parts.WriteString(algoPrefix)
	parts.WriteString("-HMAC-")
	parts.WriteString(f.Algorithm)
	parts.WriteRune(' ')
	parts.WriteString(credential)
	parts.WriteString(credentialStr)
	parts.WriteString(commaSpace)
	parts.WriteString(signedHeaders)
	parts.WriteString(signedHeadersStr)
	parts.WriteString(commaSpace)
	parts.WriteString(signatureKey)
	parts.WriteString(f.Signature)
	return parts.String()
}

func isAlgoChar(c byte) bool {
	return 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' || c == ','
}

func isKeyIDChar(c byte) bool {
	return 'A' <= c && c <= 'Z' || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' || c == '-' || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isScopeChar(c byte) bool {
	return isKeyIDChar(c) || c == ' ' || c == '/'
}

func isHeaderListChar(c byte) bool {
	return isKeyIDChar(c) || c == ';'
}

func isLowerHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f'
}

// authHeaderParser walks an auth header value left to right. The first
// failed step sets ok to false and every later step is a no-op.
type authHeaderParser struct {
	s   string
	pos int
	ok  bool
}

func (p *authHeaderParser) literal(token string) {
	if !p.ok {
		return
	}
	if !strings.HasPrefix(p.s[p.pos:], token) {
		p.ok = false
		return
	}
	p.pos += len(token)
}

// span consumes the longest non-empty run of bytes accepted by class.
func (p *authHeaderParser) span(class func(byte) bool) string {
	if !p.ok {
		return ""
	}
	start := p.pos
	for p.pos < len(p.s) && class(p.s[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		p.ok = false
	}
	return p.s[start:p.pos]
}

// fixed consumes exactly n bytes accepted by class.
func (p *authHeaderParser) fixed(n int, class func(byte) bool) string {
	if !p.ok {
		return ""
	}
	if len(p.s)-p.pos < n {
		p.ok = false
		return ""
	}
	for i := p.pos; i < p.pos+n; i++ {
		if !class(p.s[i]) {
			p.ok = false
			return ""
		}
	}
	p.pos += n
	return p.s[p.pos-n : p.pos]
}

func (p *authHeaderParser) end() {
	if p.ok && p.pos != len(p.s) {
		p.ok = false
	}
}

// ParseAuthHeader parses
//
//	PREFIX-HMAC-ALGO Credential=KEY/YYYYMMDD/SCOPE, SignedHeaders=a;b, Signature=HEX
//
// The whole value must match; anything else is ErrMalformedAuthHeader.
// Scope segments may contain spaces.
func ParseAuthHeader(value, algoPrefix string) (AuthFields, error) {
	p := &authHeaderParser{s: value, ok: true}

	p.literal(algoPrefix + "-HMAC-")
	algo := p.span(isAlgoChar)
	p.literal(" Credential=")
	keyID := p.span(isKeyIDChar)
	p.literal("/")
	shortDate := p.fixed(8, isDigit)
	p.literal("/")
	scope := p.span(isScopeChar)
	p.literal(", SignedHeaders=")
	signedHeaders := p.span(isHeaderListChar)
	p.literal(", Signature=")
	signature := p.span(isLowerHex)
	p.end()

	if !p.ok {
		return AuthFields{}, newError(CodeMalformedAuthHeader)
	}

	return AuthFields{
		Algorithm:       algo,
		KeyID:           keyID,
		ShortDate:       shortDate,
		CredentialScope: scope,
		SignedHeaders:   splitSignedHeaders(signedHeaders),
		Signature:       signature,
	}, nil
}

func splitSignedHeaders(s string) []string {
	var names []string
	for _, name := range strings.Split(s, ";") {
		if name == "" {
			continue
		}
		names = append(names, strings.ToLower(name))
	}
	return names
}

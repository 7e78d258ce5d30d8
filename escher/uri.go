package escher

import (
	"net/url"
	"strings"
)

const upperHex = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	return 'A' <= c && c <= 'Z' ||
		'a' <= c && c <= 'z' ||
		'0' <= c && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

// URIEncode percent-encodes every byte outside the unreserved class
// A-Z a-z 0-9 - _ . ~ using uppercase hex.
func URIEncode(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperHex[c>>4])
		b.WriteByte(upperHex[c&15])
	}
	return b.String()
}

func unhex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// URIDecode decodes %XX escapes once. Malformed escapes are kept as they
// are and '+' is left alone.
func URIDecode(s string) string {
	if strings.IndexByte(s, '%') < 0 {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			hi, ok1 := unhex(s[i+1])
			lo, ok2 := unhex(s[i+2])
			if ok1 && ok2 {
				b = append(b, hi<<4|lo)
				i += 2
				continue
			}
		}
		b = append(b, s[i])
	}
	return string(b)
}

// ParseQuery splits a raw query string into decoded pairs, keeping order
// and duplicates. Empty segments are dropped, a segment without '=' gets
// an empty value, and '+' means space in values only.
func ParseQuery(rawQuery string) []QueryPair {
	return parseQuery(rawQuery, true)
}

func parseQuery(rawQuery string, plusAsSpace bool) []QueryPair {
	var pairs []QueryPair
	for _, segment := range strings.Split(rawQuery, "&") {
		if segment == "" {
			continue
		}
		key, value, _ := strings.Cut(segment, "=")
		if plusAsSpace {
			value = strings.ReplaceAll(value, "+", " ")
		}
		pairs = append(pairs, QueryPair{
			Key:   URIDecode(key),
			Value: URIDecode(value),
		})
	}
	return pairs
}

// SplitURI splits a request URI into its path and raw query. A fragment is
// dropped.
func SplitURI(uri string) (path, rawQuery string) {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		uri = uri[:i]
	}
	path, rawQuery, _ = strings.Cut(uri, "?")
	return path, rawQuery
}

// IsDefaultPort checks if port is the default for the scheme.
func IsDefaultPort(scheme, port string) bool {
	if port == "" {
		return true
	}
	lowerScheme := strings.ToLower(scheme)
	return (lowerScheme == "http" && port == "80") ||
		(lowerScheme == "https" && port == "443")
}

// SanitizeHost returns the host of u without a default port: ":80" for
// http and ":443" for https are dropped, any other port is kept.
// Reference: AWS SDK v4 signer internal/v4/host.go SanitizeHostForHeader
func SanitizeHost(u *url.URL) string {
	port := u.Port()
	if IsDefaultPort(u.Scheme, port) {
		host := u.Hostname()
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return u.Host
}

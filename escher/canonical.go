package escher

import (
	"regexp"
	"sort"
	"strings"
)

// RequestParts is the request content that goes into a signature.
type RequestParts struct {
	Method  string
	Path    string
	Query   []QueryPair
	Headers []Header
	Body    []byte
}

var (
	dotDotSegment = regexp.MustCompile(`([^/]+)/\.\./?`)
	whiteSpaces   = regexp.MustCompile(`\s+`)
	slashes       = regexp.MustCompile(`/+`)
)

// CanonicalizePath normalizes dot segments and repeated slashes.
//
// "seg/../" pairs are removed left to right until none is left, but a ".."
// segment never consumes another "..", so the path cannot climb above its
// root: "/a/../../b" becomes "/../b". Then every "/./" and a trailing "/."
// collapse to "/", and runs of slashes to a single one.
func CanonicalizePath(path string) string {
	for {
		changed := false
		path = dotDotSegment.ReplaceAllStringFunc(path, func(match string) string {
			if strings.HasPrefix(match, "../") {
				return match
			}
			changed = true
			return ""
		})
		if !changed {
			break
		}
	}

	for strings.Contains(path, "/./") {
		path = strings.ReplaceAll(path, "/./", "/")
	}
	if strings.HasSuffix(path, "/.") {
		path = strings.TrimSuffix(path, ".")
	}
	return slashes.ReplaceAllString(path, "/")
}

// CanonicalizeQuery encodes every pair with URIEncode and sorts the
// encoded "key=value" strings. A '+' in a key is taken as a space.
func CanonicalizeQuery(pairs []QueryPair) string {
	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		key := strings.ReplaceAll(p.Key, "+", " ")
		encoded = append(encoded, URIEncode(key)+"="+URIEncode(p.Value))
	}
	sort.Strings(encoded)
	return strings.Join(encoded, "&")
}

// NormalizeWhiteSpace trims value and collapses whitespace runs into one
// space, except inside double quoted substrings.
func NormalizeWhiteSpace(value string) string {
	pieces := strings.Split(strings.TrimSpace(value), `"`)
	for i := 0; i < len(pieces); i += 2 {
		pieces[i] = whiteSpaces.ReplaceAllString(pieces[i], " ")
	}
	return strings.Join(pieces, `"`)
}

// CanonicalizeHeaders returns the sorted "name:value" lines of the signed
// headers. Values of repeated headers are joined with ',' in the order
// they were received. The header named authHeaderName is never included.
func CanonicalizeHeaders(headers []Header, signedHeaders []string, authHeaderName string) []string {
	signed := make(map[string]struct{}, len(signedHeaders))
	for _, name := range signedHeaders {
		signed[strings.ToLower(name)] = struct{}{}
	}
	authHeaderName = strings.ToLower(authHeaderName)

	var names []string
	grouped := make(map[string][]string)
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if name == authHeaderName {
			continue
		}
		if _, ok := signed[name]; !ok {
			continue
		}
		if _, ok := grouped[name]; !ok {
			names = append(names, name)
		}
		grouped[name] = append(grouped[name], NormalizeWhiteSpace(h.Value))
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+":"+strings.Join(grouped[name], ","))
	}
	return lines
}

// SignedHeadersString lower-cases, sorts and deduplicates names and joins
// them with ';'.
func SignedHeadersString(names []string) string {
	return strings.Join(normalizeHeaderNames(names), ";")
}

func normalizeHeaderNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BuildCanonicalString builds the canonical request string.
// Format: METHOD\nPATH\nQUERY\nHEADERS\n\nSIGNED_HEADERS\nBODY_HASH
// Reference: AWS SDK v4 signer v4.go buildCanonicalString
func BuildCanonicalString(method, path, query, canonicalHeaders, signedHeaders, bodyHash string) string {
	return strings.Join([]string{
		method,
		path,
		query,
		canonicalHeaders,
		"",
		signedHeaders,
		bodyHash,
	}, "\n")
}

// CanonicalRequest builds the canonical request of parts.
func CanonicalRequest(algo HashAlgo, parts RequestParts, signedHeaders []string, authHeaderName string) string {
	return BuildCanonicalString(
		strings.ToUpper(parts.Method),
		CanonicalizePath(parts.Path),
		CanonicalizeQuery(parts.Query),
		strings.Join(CanonicalizeHeaders(parts.Headers, signedHeaders, authHeaderName), "\n"),
		SignedHeadersString(signedHeaders),
		HexDigest(algo, parts.Body),
	)
}

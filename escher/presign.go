package escher

import (
	"strconv"
	"strings"
)

// presignParam finds the named X-{vendor}- parameter and decodes its value
// once more.
func (c Config) presignParam(pairs []QueryPair, name string) (string, bool) {
	key := c.queryKey(name)
	for _, p := range pairs {
		if p.Key == key {
			return URIDecode(p.Value), true
		}
	}
	return "", false
}

// HasPresignedSignature reports whether pairs carry a Signature parameter.
func (c Config) HasPresignedSignature(pairs []QueryPair) bool {
	_, ok := c.presignParam(pairs, SignatureParam)
	return ok
}

// parseAlgo extracts ALGO from "PREFIX-HMAC-ALGO". A foreign prefix gives
// an empty algorithm, which is later rejected as unsupported.
func parseAlgo(value, algoPrefix string) string {
	algo, ok := strings.CutPrefix(value, algoPrefix+"-HMAC-")
	if !ok || algo == "" {
		return ""
	}
	for i := 0; i < len(algo); i++ {
		if !isAlgoChar(algo[i]) {
			return ""
		}
	}
	return algo
}

// ParsePresignedQuery reads the presigned URL parameters from pairs. It
// returns the signature material, the raw Date parameter and the pairs with
// every Signature parameter removed, which is what was signed.
func (c Config) ParsePresignedQuery(pairs []QueryPair) (AuthFields, string, []QueryPair, error) {
	var fields AuthFields
	values := make(map[string]string, 6)
	for _, name := range []string{AlgorithmParam, CredentialsParam, DateParam, ExpiresParam, SignedHeadersParam, SignatureParam} {
		v, ok := c.presignParam(pairs, name)
		if !ok {
			return fields, "", nil, newError(CodeMalformedPresignedQuery)
		}
		values[name] = v
	}

	expires, err := strconv.ParseInt(strings.TrimSpace(values[ExpiresParam]), 10, 64)
	if err != nil || expires < 0 {
		return fields, "", nil, newError(CodeMalformedPresignedQuery)
	}

	credential := strings.SplitN(values[CredentialsParam], "/", 3)
	if len(credential) != 3 {
		return fields, "", nil, newError(CodeMalformedPresignedQuery)
	}

	fields = AuthFields{
		Algorithm:       parseAlgo(values[AlgorithmParam], c.AlgoPrefix),
		KeyID:           credential[0],
		ShortDate:       credential[1],
		CredentialScope: credential[2],
		SignedHeaders:   splitSignedHeaders(values[SignedHeadersParam]),
		Signature:       values[SignatureParam],
		Expires:         expires,
	}

	signatureKey := c.queryKey(SignatureParam)
	remaining := make([]QueryPair, 0, len(pairs))
	for _, p := range pairs {
		if p.Key == signatureKey {
			continue
		}
		remaining = append(remaining, p)
	}

	return fields, values[DateParam], remaining, nil
}

// PresignParams returns the signed presigned URL parameters, in order:
// Algorithm, Credentials, Date, Expires, SignedHeaders.
func (c Config) PresignParams(keyID string, expires int64, signedHeaders []string) []QueryPair {
	t := NewSigningTime(c.CurrentTime)
	return []QueryPair{
		{Key: c.queryKey(AlgorithmParam), Value: c.AlgoID()},
		{Key: c.queryKey(CredentialsParam), Value: keyID + "/" + t.ShortDate() + "/" + c.CredentialScope},
		{Key: c.queryKey(DateParam), Value: t.LongDate()},
		{Key: c.queryKey(ExpiresParam), Value: strconv.FormatInt(expires, 10)},
		{Key: c.queryKey(SignedHeadersParam), Value: strings.Join(signedHeaders, ";")},
	}
}

// EncodeQuery encodes pairs in order with URIEncode.
func EncodeQuery(pairs []QueryPair) string {
	encoded := make([]string, 0, len(pairs))
	for _, p := range pairs {
		encoded = append(encoded, URIEncode(p.Key)+"="+URIEncode(p.Value))
	}
	return strings.Join(encoded, "&")
}

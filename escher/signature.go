package escher

import (
	"crypto/hmac"
	"encoding/hex"
	"strings"
)

// Credentials identify a client and carry its secret.
type Credentials struct {
	KeyID  string
	Secret []byte
}

// SignatureResult holds every intermediate of a signature computation.
type SignatureResult struct {
	CanonicalRequest string
	StringToSign     string
	Signature        string
}

// BuildStringToSign builds the string to sign.
// Format: ALGO_ID\nLONG_DATE\nSHORT_DATE/SCOPE\nHASH(CANONICAL_REQUEST)
// Reference: AWS SDK v4 signer v4.go buildStringToSign
func BuildStringToSign(algo HashAlgo, algoID string, t SigningTime, credentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		algoID,
		t.LongDate(),
		t.ShortDate() + "/" + credentialScope,
		HexDigest(algo, []byte(canonicalRequest)),
	}, "\n")
}

// BuildSignature computes the hex encoded HMAC of stringToSign.
// Reference: AWS SDK v4 signer v4.go buildSignature
func BuildSignature(algo HashAlgo, key []byte, stringToSign string) string {
	return hex.EncodeToString(HMAC(algo, key, []byte(stringToSign)))
}

// StringToSign returns the string to sign for a canonical request at
// c.CurrentTime.
func (c Config) StringToSign(canonicalRequest string) string {
	return BuildStringToSign(c.HashAlgo, c.AlgoID(), NewSigningTime(c.CurrentTime), c.CredentialScope, canonicalRequest)
}

// signingKey derives the key for creds at c.CurrentTime.
func (c Config) signingKey(creds Credentials) []byte {
	t := NewSigningTime(c.CurrentTime)
	if c.KeyDeriver != nil {
		return c.KeyDeriver.DeriveKey(creds.KeyID, creds.Secret, c.HashAlgo, c.AlgoPrefix, t, c.CredentialScope)
	}
	return DeriveKey(c.HashAlgo, c.AlgoPrefix, creds.Secret, t.ShortDate(), c.CredentialScope)
}

// Sign computes the signature of parts over signedHeaders. c must have a
// supported HashAlgo.
func (c Config) Sign(creds Credentials, parts RequestParts, signedHeaders []string) SignatureResult {
	canonical := CanonicalRequest(c.HashAlgo, parts, signedHeaders, c.AuthHeaderName)
	stringToSign := c.StringToSign(canonical)
	return SignatureResult{
		CanonicalRequest: canonical,
		StringToSign:     stringToSign,
		Signature:        BuildSignature(c.HashAlgo, c.signingKey(creds), stringToSign),
	}
}

// SignaturesEqual compares two hex signatures in constant time.
func SignaturesEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}

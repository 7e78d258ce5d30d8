package escher

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// newHash returns the constructor for the digest named by a.
func (a HashAlgo) newHash() (func() hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	}
	return nil, fmt.Errorf("unidentified hash algorithm %q", string(a))
}

// Supported reports whether a may be used for signing.
func (a HashAlgo) Supported() bool {
	_, err := a.newHash()
	return err == nil
}

// mustHash is used after the algorithm has been validated.
func (a HashAlgo) mustHash() func() hash.Hash {
	h, err := a.newHash()
	if err != nil {
		panic(err)
	}
	return h
}

// HexDigest returns the lowercase hex digest of data.
func HexDigest(algo HashAlgo, data []byte) string {
	h := algo.mustHash()()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HMAC computes HMAC of data with the given key.
// Reference: AWS SDK v4 signer internal/v4/hmac.go HMACSHA256
func HMAC(algo HashAlgo, key, data []byte) []byte {
	h := hmac.New(algo.mustHash(), key)
	h.Write(data)
	return h.Sum(nil)
}

// DeriveKey performs the signing key derivation:
//   - key = HMAC(algoPrefix + secret, shortDate)
//   - key = HMAC(key, segment) for every scope segment, in order
//
// Reference: AWS SDK v4 signer internal/v4/cache.go deriveKey function
func DeriveKey(algo HashAlgo, algoPrefix string, secret []byte, shortDate, credentialScope string) []byte {
	seed := make([]byte, 0, len(algoPrefix)+len(secret))
	seed = append(seed, algoPrefix...)
	seed = append(seed, secret...)

	key := HMAC(algo, seed, []byte(shortDate))
	for _, segment := range strings.Split(credentialScope, "/") {
		key = HMAC(algo, key, []byte(segment))
	}
	return key
}

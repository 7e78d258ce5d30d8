package escher

import (
	"fmt"
	"time"
)

// Config holds the protocol parameters for signing and authentication.
// A Config is a value: it is never modified by the engine and may be shared
// by concurrent calls. Only CredentialScope and CurrentTime are required,
// every other field falls back to a default (see WithDefaults).
type Config struct {
	// AlgoPrefix namespaces the algorithm identifier, e.g. "ESR" gives
	// "ESR-HMAC-SHA256". It also prefixes the secret during key derivation.
	AlgoPrefix string

	// VendorKey namespaces presigned URL parameters: X-{VendorKey}-Date.
	VendorKey string

	// HashAlgo is either SHA256 or SHA512.
	HashAlgo HashAlgo

	// AuthHeaderName is the header carrying the signature.
	AuthHeaderName string

	// DateHeaderName is the header carrying the request date.
	DateHeaderName string

	// ClockSkew is the tolerated clock difference between the parties.
	ClockSkew time.Duration

	// CurrentTime is the signing time for the signer and "now" for the
	// authenticator. It is never read from the system clock.
	CurrentTime time.Time

	// CredentialScope is the slash separated scope, e.g.
	// "eu/suite/ems_request".
	CredentialScope string

	// KeyDeriver memoizes signing keys. Nil derives a fresh key per call.
	KeyDeriver KeyDeriver

	// AllowEmptyPostBody disables the rejection of POST requests with an
	// empty body.
	AllowEmptyPostBody bool
}

// WithDefaults returns a copy of c with all unset optional fields filled in.
func (c Config) WithDefaults() Config {
	if c.AlgoPrefix == "" {
		c.AlgoPrefix = DefaultAlgoPrefix
	}
	if c.VendorKey == "" {
		c.VendorKey = DefaultVendorKey
	}
	if c.HashAlgo == "" {
		c.HashAlgo = SHA256
	}
	if c.AuthHeaderName == "" {
		c.AuthHeaderName = DefaultAuthHeaderName
	}
	if c.DateHeaderName == "" {
		c.DateHeaderName = DefaultDateHeaderName
	}
	if c.ClockSkew == 0 {
		c.ClockSkew = DefaultClockSkew * time.Second
	}
	return c
}

// Validate checks that all required fields are set.
func (c Config) Validate() error {
	if c.CredentialScope == "" {
		return fmt.Errorf("credential scope is required")
	}
	if c.CurrentTime.IsZero() {
		return fmt.Errorf("current time is required")
	}
	if c.ClockSkew < 0 {
		return fmt.Errorf("clock skew must not be negative")
	}
	if _, err := c.HashAlgo.newHash(); err != nil {
		return err
	}
	return nil
}

// AlgoID returns the algorithm identifier, e.g. "ESR-HMAC-SHA256".
func (c Config) AlgoID() string {
	return c.AlgoPrefix + "-HMAC-" + string(c.HashAlgo)
}

// AtTime returns a copy of c with CurrentTime set to t.
func (c Config) AtTime(t time.Time) Config {
	c.CurrentTime = t
	return c
}

// reconfigure derives the config used to recompute a received signature:
// the signer's declared algorithm and date replace ours.
func (c Config) reconfigure(algo HashAlgo, scope string, date time.Time) Config {
	c.HashAlgo = algo
	c.CredentialScope = scope
	c.CurrentTime = date
	return c
}

func (c Config) queryKey(name string) string {
	return "X-" + c.VendorKey + "-" + name
}

package escher

// Escher protocol constants. The date layouts follow
// AWS SDK v4 signer internal/v4/const.go.

const (
	// DefaultAlgoPrefix prefixes the algorithm identifier and the secret
	// during key derivation.
	DefaultAlgoPrefix = "ESR"

	// DefaultVendorKey namespaces the presigned URL query parameters.
	DefaultVendorKey = "Escher"

	// DefaultAuthHeaderName is the header carrying the signature.
	DefaultAuthHeaderName = "X-Escher-Auth"

	// DefaultDateHeaderName is the header carrying the request date.
	DefaultDateHeaderName = "X-Escher-Date"

	// DefaultClockSkew is the tolerated clock difference between signer
	// and verifier, in seconds.
	DefaultClockSkew = 300

	// DefaultPresignExpiry is used by GenerateSignedURL when no expiry is
	// given, in seconds.
	DefaultPresignExpiry = 86400

	// UnsignedPayload replaces the body of presigned GET requests.
	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// HostHeader must always be signed.
	HostHeader = "host"

	// LongDateFormat is used in the string to sign and the presigned Date
	// parameter. Format: YYYYMMDDTHHMMSSZ
	LongDateFormat = "20060102T150405Z"

	// ShortDateFormat is used in the credential.
	// Format: YYYYMMDD
	ShortDateFormat = "20060102"

	// HTTPDateFormat is used when the date header is literally "Date".
	HTTPDateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"
)

// Presigned URL query parameter names, without the X-{vendor}- prefix.
const (
	AlgorithmParam     = "Algorithm"
	CredentialsParam   = "Credentials"
	DateParam          = "Date"
	ExpiresParam       = "Expires"
	SignedHeadersParam = "SignedHeaders"
	SignatureParam     = "Signature"
)

// HashAlgo names the digest used for body hashes and HMACs.
type HashAlgo string

const (
	SHA256 HashAlgo = "SHA256"
	SHA512 HashAlgo = "SHA512"
)

// validRequestMethods are the HTTP verbs the authenticator accepts.
var validRequestMethods = map[string]struct{}{
	"OPTIONS": {},
	"GET":     {},
	"HEAD":    {},
	"POST":    {},
	"PUT":     {},
	"DELETE":  {},
	"TRACE":   {},
	"PATCH":   {},
	"CONNECT": {},
}

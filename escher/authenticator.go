package escher

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// KeyDB resolves a key id to its secret.
type KeyDB interface {
	Secret(keyID string) ([]byte, bool)
}

// KeyDBFunc adapts a lookup function to KeyDB.
type KeyDBFunc func(keyID string) ([]byte, bool)

// Secret calls f.
func (f KeyDBFunc) Secret(keyID string) ([]byte, bool) {
	return f(keyID)
}

// Authenticate validates a signed request and returns the authenticated key
// id. Presigned URL mode is used for GET requests carrying a Signature
// query parameter, header mode otherwise. Checks run in a fixed order and
// the first failing one is returned as an *Error:
//
//   - required headers (host, plus the auth and date headers in header mode)
//   - the signature material parses and the date is valid
//   - the key id is known
//   - the algorithm is SHA256 or SHA512
//   - the method is a known HTTP verb; POST carries a body
//   - the path is not an absolute URL
//   - the credential date equals the request date
//   - the current time is inside the accepted window
//   - the credential scope is ours
//   - host is signed; presigned URLs sign nothing else; header mode signs
//     the date header; every mandatory header is signed
//   - the auth header is not signed and every signed header is present
//   - the recomputed signature matches
//
// mandatorySignedHeaders is validated before the request is looked at.
func (c Config) Authenticate(req RequestAdapter, keys KeyDB, mandatorySignedHeaders []string) (string, error) {
	c = c.WithDefaults()
	if err := c.Validate(); err != nil {
		return "", fmt.Errorf("invalid config: %w", err)
	}
	if err := validateMandatorySignedHeaders(mandatorySignedHeaders); err != nil {
		return "", err
	}

	method := req.Method()
	upperMethod := strings.ToUpper(method)
	path := req.Path()
	query := req.Query()
	headers := req.Headers()
	body := req.Body()

	presigned := upperMethod == "GET" && c.HasPresignedSignature(query)

	required := []string{HostHeader}
	if !presigned {
		required = append(required, c.AuthHeaderName, c.DateHeaderName)
	}
	for _, name := range required {
		if !req.HasHeader(name) {
			return "", headerError(CodeMissingHeader, strings.ToLower(name))
		}
	}

	var (
		fields  AuthFields
		rawDate string
		err     error
	)
	if presigned {
		fields, rawDate, query, err = c.ParsePresignedQuery(query)
		if err != nil {
			return "", err
		}
		body = []byte(UnsignedPayload)
	} else {
		rawDate, _ = HeaderValue(headers, c.DateHeaderName)
		authHeader, _ := HeaderValue(headers, c.AuthHeaderName)
		fields, err = ParseAuthHeader(authHeader, c.AlgoPrefix)
		if err != nil {
			return "", err
		}
	}

	date, err := ParseDate(rawDate)
	if err != nil {
		return "", newError(CodeInvalidDate)
	}

	secret, ok := keys.Secret(fields.KeyID)
	if !ok {
		return "", newError(CodeUnknownKeyID)
	}

	algo := HashAlgo(fields.Algorithm)
	if !algo.Supported() {
		return "", newError(CodeUnsupportedAlgorithm)
	}

	if _, ok := validRequestMethods[upperMethod]; !ok {
		return "", newError(CodeInvalidRequestMethod)
	}
	if upperMethod == "POST" && len(body) == 0 && !c.AllowEmptyPostBody {
		return "", newError(CodeEmptyBodyForWriteMethod)
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return "", newError(CodeAbsoluteURLPath)
	}

	if fields.ShortDate != date.Format(ShortDateFormat) {
		return "", newError(CodeDateMismatch)
	}
	if !c.isDateWithinRange(date, fields.Expires) {
		return "", newError(CodeDateOutOfRange)
	}
	if fields.CredentialScope != c.CredentialScope {
		return "", newError(CodeCredentialScopeMismatch)
	}

	signed := make(map[string]struct{}, len(fields.SignedHeaders))
	for _, name := range fields.SignedHeaders {
		signed[name] = struct{}{}
	}
	if _, ok := signed[HostHeader]; !ok {
		return "", headerError(CodeRequiredHeaderNotSigned, HostHeader)
	}
	if presigned && (len(fields.SignedHeaders) != 1 || fields.SignedHeaders[0] != HostHeader) {
		return "", newError(CodeTooManyHeadersSignedForPresignedURL)
	}
	if !presigned {
		dateHeader := strings.ToLower(c.DateHeaderName)
		if _, ok := signed[dateHeader]; !ok {
			return "", headerError(CodeRequiredHeaderNotSigned, dateHeader)
		}
	}
	for _, name := range mandatorySignedHeaders {
		name = strings.ToLower(name)
		if _, ok := signed[name]; !ok {
			return "", headerError(CodeRequiredHeaderNotSigned, name)
		}
	}
	if _, ok := signed[strings.ToLower(c.AuthHeaderName)]; ok {
		return "", newError(CodeMalformedAuthHeader)
	}
	for _, name := range fields.SignedHeaders {
		if !req.HasHeader(name) {
			return "", headerError(CodeMissingHeader, name)
		}
	}

	verifier := c.reconfigure(algo, fields.CredentialScope, date)
	expected := verifier.Sign(
		Credentials{KeyID: fields.KeyID, Secret: secret},
		RequestParts{
			Method:  method,
			Path:    path,
			Query:   query,
			Headers: headers,
			Body:    body,
		},
		fields.SignedHeaders,
	)
	if !SignaturesEqual(expected.Signature, fields.Signature) {
		return "", newError(CodeSignatureMismatch)
	}

	return fields.KeyID, nil
}

// IsValid reports whether Authenticate accepts the request.
func (c Config) IsValid(req RequestAdapter, keys KeyDB, mandatorySignedHeaders []string) bool {
	_, err := c.Authenticate(req, keys, mandatorySignedHeaders)
	return err == nil
}

// isDateWithinRange reports whether c.CurrentTime lies in
// [date - skew, date + expires + skew].
// An expiry too large for a time.Duration never expires.
func (c Config) isDateWithinRange(date time.Time, expires int64) bool {
	window := time.Duration(math.MaxInt64)
	if expires < int64((window-c.ClockSkew)/time.Second) {
		window = time.Duration(expires)*time.Second + c.ClockSkew
	}
	from := date.Add(-c.ClockSkew)
	to := date.Add(window)
	return !c.CurrentTime.Before(from) && !c.CurrentTime.After(to)
}

func validateMandatorySignedHeaders(names []string) error {
	for _, name := range names {
		if name == "" || strings.ContainsAny(name, "; :\t\r\n") {
			return newError(CodeInvalidMandatorySignedHeadersArgument)
		}
	}
	return nil
}

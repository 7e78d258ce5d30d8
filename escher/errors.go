package escher

import "fmt"

// ErrorCode identifies why a request was rejected.
type ErrorCode int

const (
	CodeMissingHeader ErrorCode = iota + 1
	CodeMalformedAuthHeader
	CodeMalformedPresignedQuery
	CodeUnsupportedAlgorithm
	CodeUnknownKeyID
	CodeInvalidRequestMethod
	CodeEmptyBodyForWriteMethod
	CodeAbsoluteURLPath
	CodeInvalidDate
	CodeDateMismatch
	CodeDateOutOfRange
	CodeCredentialScopeMismatch
	CodeRequiredHeaderNotSigned
	CodeTooManyHeadersSignedForPresignedURL
	CodeSignatureMismatch
	CodeInvalidMandatorySignedHeadersArgument
)

var codeNames = map[ErrorCode]string{
	CodeMissingHeader:                         "missing_header",
	CodeMalformedAuthHeader:                   "malformed_auth_header",
	CodeMalformedPresignedQuery:               "malformed_presigned_query",
	CodeUnsupportedAlgorithm:                  "unsupported_algorithm",
	CodeUnknownKeyID:                          "unknown_key_id",
	CodeInvalidRequestMethod:                  "invalid_request_method",
	CodeEmptyBodyForWriteMethod:               "empty_body_for_write_method",
	CodeAbsoluteURLPath:                       "absolute_url_path",
	CodeInvalidDate:                           "invalid_date",
	CodeDateMismatch:                          "date_mismatch",
	CodeDateOutOfRange:                        "date_out_of_range",
	CodeCredentialScopeMismatch:               "credential_scope_mismatch",
	CodeRequiredHeaderNotSigned:               "required_header_not_signed",
	CodeTooManyHeadersSignedForPresignedURL:   "too_many_headers_signed_for_presigned_url",
	CodeSignatureMismatch:                     "signature_mismatch",
	CodeInvalidMandatorySignedHeadersArgument: "invalid_mandatory_signed_headers_argument",
}

// String returns a stable snake_case name, suitable as a metric label.
func (c ErrorCode) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("unknown_%d", int(c))
}

// Error is returned for every rejected request. Header is set for the
// variants that name a header.
type Error struct {
	Code   ErrorCode
	Header string
}

// Sentinels for errors.Is. The Header field is ignored when matching.
var (
	ErrMissingHeader                         = &Error{Code: CodeMissingHeader}
	ErrMalformedAuthHeader                   = &Error{Code: CodeMalformedAuthHeader}
	ErrMalformedPresignedQuery               = &Error{Code: CodeMalformedPresignedQuery}
	ErrUnsupportedAlgorithm                  = &Error{Code: CodeUnsupportedAlgorithm}
	ErrUnknownKeyID                          = &Error{Code: CodeUnknownKeyID}
	ErrInvalidRequestMethod                  = &Error{Code: CodeInvalidRequestMethod}
	ErrEmptyBodyForWriteMethod               = &Error{Code: CodeEmptyBodyForWriteMethod}
	ErrAbsoluteURLPath                       = &Error{Code: CodeAbsoluteURLPath}
	ErrInvalidDate                           = &Error{Code: CodeInvalidDate}
	ErrDateMismatch                          = &Error{Code: CodeDateMismatch}
	ErrDateOutOfRange                        = &Error{Code: CodeDateOutOfRange}
	ErrCredentialScopeMismatch               = &Error{Code: CodeCredentialScopeMismatch}
	ErrRequiredHeaderNotSigned               = &Error{Code: CodeRequiredHeaderNotSigned}
	ErrTooManyHeadersSignedForPresignedURL   = &Error{Code: CodeTooManyHeadersSignedForPresignedURL}
	ErrSignatureMismatch                     = &Error{Code: CodeSignatureMismatch}
	ErrInvalidMandatorySignedHeadersArgument = &Error{Code: CodeInvalidMandatorySignedHeadersArgument}
)

func newError(code ErrorCode) *Error {
	return &Error{Code: code}
}

func headerError(code ErrorCode, header string) *Error {
	return &Error{Code: code, Header: header}
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeMissingHeader:
		return fmt.Sprintf("the %s header is missing", e.Header)
	case CodeMalformedAuthHeader:
		return "invalid auth header format"
	case CodeMalformedPresignedQuery:
		return "invalid presigned url parameters"
	case CodeUnsupportedAlgorithm:
		return "invalid hash algorithm, only SHA256 and SHA512 are allowed"
	case CodeUnknownKeyID:
		return "invalid escher key"
	case CodeInvalidRequestMethod:
		return "the request method is invalid"
	case CodeEmptyBodyForWriteMethod:
		return "the request body shouldn't be empty if the request method is POST"
	case CodeAbsoluteURLPath:
		return "the request url shouldn't contain http or https"
	case CodeInvalidDate:
		return "the request date is not a valid date"
	case CodeDateMismatch:
		return "invalid date in authorization header, it should equal with date header"
	case CodeDateOutOfRange:
		return "the request date is not within the accepted time range"
	case CodeCredentialScopeMismatch:
		return "invalid credential scope"
	case CodeRequiredHeaderNotSigned:
		return fmt.Sprintf("the %s header is not signed", e.Header)
	case CodeTooManyHeadersSignedForPresignedURL:
		return "only the host header should be signed"
	case CodeSignatureMismatch:
		return "the signatures do not match"
	case CodeInvalidMandatorySignedHeadersArgument:
		return "the mandatory signed headers must be a list of header names"
	}
	return "escher: " + e.Code.String()
}

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

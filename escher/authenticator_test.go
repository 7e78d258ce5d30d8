package escher

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

const aws4Signature = "b27ccfbfa7df52a200ff74193ca6e32d4b48b8856fab7ebf1c595d0670a7e470"

func aws4Config() Config {
	return Config{
		AlgoPrefix:      "AWS4",
		VendorKey:       "AWS4",
		AuthHeaderName:  "Authorization",
		DateHeaderName:  "Date",
		CredentialScope: "us-east-1/host/aws4_request",
		CurrentTime:     time.Date(2011, 9, 9, 23, 40, 0, 0, time.UTC),
	}
}

var aws4Keys = KeyDBFunc(func(keyID string) ([]byte, bool) {
	if keyID == "AKIDEXAMPLE" {
		return []byte("wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY"), true
	}
	return nil, false
})

func aws4AuthHeader(algo, credential, signedHeaders, signature string) string {
	return "AWS4-HMAC-" + algo + " Credential=" + credential +
		", SignedHeaders=" + signedHeaders + ", Signature=" + signature
}

func buildAWS4Request(method, uri string, headers []Header, body []byte) *HashRequest {
	return NewHashRequest(method, uri, headers, body)
}

func aws4Headers(date, auth string) []Header {
	return []Header{
		{Name: "Host", Value: "host.foo.com"},
		{Name: "Date", Value: date},
		{Name: "Authorization", Value: auth},
	}
}

func TestAuthenticateHeader(t *testing.T) {
	const (
		date       = "Mon, 09 Sep 2011 23:36:00 GMT"
		credential = "AKIDEXAMPLE/20110909/us-east-1/host/aws4_request"
	)
	validAuth := aws4AuthHeader("SHA256", credential, "date;host", aws4Signature)

	tests := []struct {
		name       string
		method     string
		uri        string
		headers    []Header
		body       []byte
		mandatory  []string
		wantErr    error
		wantHeader string
	}{
		{
			name:    "valid",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, validAuth),
		},
		{
			name:    "lower case method",
			method:  "get",
			uri:     "/",
			headers: aws4Headers(date, validAuth),
		},
		{
			name:       "missing host",
			method:     "GET",
			uri:        "/",
			headers:    []Header{{Name: "Date", Value: date}, {Name: "Authorization", Value: validAuth}},
			wantErr:    ErrMissingHeader,
			wantHeader: "host",
		},
		{
			name:       "missing date",
			method:     "GET",
			uri:        "/",
			headers:    []Header{{Name: "Host", Value: "host.foo.com"}, {Name: "Authorization", Value: validAuth}},
			wantErr:    ErrMissingHeader,
			wantHeader: "date",
		},
		{
			name:       "missing auth header",
			method:     "GET",
			uri:        "/",
			headers:    []Header{{Name: "Host", Value: "host.foo.com"}, {Name: "Date", Value: date}},
			wantErr:    ErrMissingHeader,
			wantHeader: "authorization",
		},
		{
			name:    "unparsable signature",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", credential, "date;host", "UNPARSABLE")),
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "bad credential",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", "BAD-CREDENTIAL-SCOPE", "date;host", aws4Signature)),
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "invalid date",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers("not a date", validAuth),
			wantErr: ErrInvalidDate,
		},
		{
			name:    "unknown key",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", "UNKNOWN/20110909/us-east-1/host/aws4_request", "date;host", aws4Signature)),
			wantErr: ErrUnknownKeyID,
		},
		{
			name:    "unsupported algorithm",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA123", credential, "date;host", aws4Signature)),
			wantErr: ErrUnsupportedAlgorithm,
		},
		{
			name:    "invalid method",
			method:  "FETCH",
			uri:     "/",
			headers: aws4Headers(date, validAuth),
			wantErr: ErrInvalidRequestMethod,
		},
		{
			name:    "post without body",
			method:  "POST",
			uri:     "/",
			headers: aws4Headers(date, validAuth),
			wantErr: ErrEmptyBodyForWriteMethod,
		},
		{
			name:    "absolute url path",
			method:  "GET",
			uri:     "http://host.foo.com/",
			headers: aws4Headers(date, validAuth),
			wantErr: ErrAbsoluteURLPath,
		},
		{
			name:    "credential date differs from request date",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", "AKIDEXAMPLE/20110910/us-east-1/host/aws4_request", "date;host", aws4Signature)),
			wantErr: ErrDateMismatch,
		},
		{
			name:    "date out of range",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers("Mon, 09 Sep 2011 00:00:00 GMT", validAuth),
			wantErr: ErrDateOutOfRange,
		},
		{
			name:    "credential scope mismatch",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", "AKIDEXAMPLE/20110909/us-ea st-1/host/aws4_request", "date;host", aws4Signature)),
			wantErr: ErrCredentialScopeMismatch,
		},
		{
			name:       "host not signed",
			method:     "GET",
			uri:        "/",
			headers:    aws4Headers(date, aws4AuthHeader("SHA256", credential, "date", aws4Signature)),
			wantErr:    ErrRequiredHeaderNotSigned,
			wantHeader: "host",
		},
		{
			name:       "date not signed",
			method:     "GET",
			uri:        "/",
			headers:    aws4Headers(date, aws4AuthHeader("SHA256", credential, "host", aws4Signature)),
			wantErr:    ErrRequiredHeaderNotSigned,
			wantHeader: "date",
		},
		{
			name:       "mandatory header not signed",
			method:     "GET",
			uri:        "/",
			headers:    aws4Headers(date, validAuth),
			mandatory:  []string{"X-Custom"},
			wantErr:    ErrRequiredHeaderNotSigned,
			wantHeader: "x-custom",
		},
		{
			name:      "mandatory header signed",
			method:    "GET",
			uri:       "/",
			headers:   aws4Headers(date, validAuth),
			mandatory: []string{"Host", "date"},
		},
		{
			name:      "invalid mandatory header argument",
			method:    "GET",
			uri:       "/",
			mandatory: []string{"host;date"},
			wantErr:   ErrInvalidMandatorySignedHeadersArgument,
		},
		{
			name:       "signed header missing from request",
			method:     "GET",
			uri:        "/",
			headers:    aws4Headers(date, aws4AuthHeader("SHA256", credential, "date;host;x-request-id", aws4Signature)),
			mandatory:  []string{"x-request-id"},
			wantErr:    ErrMissingHeader,
			wantHeader: "x-request-id",
		},
		{
			name:    "auth header signed",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", credential, "authorization;date;host", aws4Signature)),
			wantErr: ErrMalformedAuthHeader,
		},
		{
			name:    "unsigned header changed",
			method:  "GET",
			uri:     "/",
			headers: append(aws4Headers(date, validAuth), Header{Name: "X-Request-Id", Value: "changed"}),
		},
		{
			name:    "signature mismatch",
			method:  "GET",
			uri:     "/",
			headers: aws4Headers(date, aws4AuthHeader("SHA256", credential, "date;host", strings.Repeat("f", 64))),
			wantErr: ErrSignatureMismatch,
		},
		{
			name:    "tampered path",
			method:  "GET",
			uri:     "/other",
			headers: aws4Headers(date, validAuth),
			wantErr: ErrSignatureMismatch,
		},
		{
			name:   "tampered host",
			method: "GET",
			uri:    "/",
			headers: []Header{
				{Name: "Host", Value: "evil.foo.com"},
				{Name: "Date", Value: date},
				{Name: "Authorization", Value: validAuth},
			},
			wantErr: ErrSignatureMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := buildAWS4Request(tt.method, tt.uri, tt.headers, tt.body)
			keyID, err := aws4Config().Authenticate(req, aws4Keys, tt.mandatory)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if keyID != "AKIDEXAMPLE" {
					t.Errorf("expected AKIDEXAMPLE, got %s", keyID)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantHeader != "" {
				var escherErr *Error
				if !errors.As(err, &escherErr) {
					t.Fatalf("expected *Error, got %T", err)
				}
				if escherErr.Header != tt.wantHeader {
					t.Errorf("expected header %s, got %s", tt.wantHeader, escherErr.Header)
				}
			}
		})
	}
}

func TestAuthenticateAllowEmptyPostBody(t *testing.T) {
	config := emsConfig()
	config.AllowEmptyPostBody = true

	req := NewHashRequest("POST", "/", []Header{{Name: "host", Value: "iam.amazonaws.com"}}, nil)
	if err := config.SignRequest(req, emsCredentials, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys := KeyDBFunc(func(string) ([]byte, bool) { return emsCredentials.Secret, true })
	if _, err := config.Authenticate(req, keys, nil); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	config.AllowEmptyPostBody = false
	if _, err := config.Authenticate(req, keys, nil); !errors.Is(err, ErrEmptyBodyForWriteMethod) {
		t.Errorf("expected empty body error, got %v", err)
	}
}

func TestAuthenticateClockSkewBoundary(t *testing.T) {
	signingTime := time.Date(2011, 9, 9, 23, 36, 0, 0, time.UTC)
	config := emsConfig().AtTime(signingTime)
	keys := KeyDBFunc(func(string) ([]byte, bool) { return emsCredentials.Secret, true })

	req := buildEmsRequest()
	if err := config.SignRequest(req, emsCredentials, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tests := []struct {
		name    string
		now     time.Time
		wantErr bool
	}{
		{name: "signing time", now: signingTime},
		{name: "skew after", now: signingTime.Add(config.ClockSkew)},
		{name: "skew before", now: signingTime.Add(-config.ClockSkew)},
		{name: "past skew after", now: signingTime.Add(config.ClockSkew + time.Second), wantErr: true},
		{name: "past skew before", now: signingTime.Add(-config.ClockSkew - time.Second), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.AtTime(tt.now).Authenticate(req, keys, nil)
			if tt.wantErr {
				if !errors.Is(err, ErrDateOutOfRange) {
					t.Errorf("expected date out of range, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func presignKeys(keyID string) ([]byte, bool) {
	if keyID == presignCredentials.KeyID {
		return presignCredentials.Secret, true
	}
	return nil, false
}

func TestAuthenticatePresignedURL(t *testing.T) {
	const signature = "&X-EMS-Signature=fbc9dbb91670e84d04ad2ae7505f4f52ab3ff9e192b8233feeae57e9022c2b67"

	tests := []struct {
		name    string
		uri     string
		now     time.Time
		wantErr error
	}{
		{
			name: "valid",
			uri:  "/something?foo=bar&baz=barbaz&" + presignParams + signature,
			now:  time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC),
		},
		{
			name: "query order does not matter",
			uri:  "/something?baz=barbaz&" + presignParams + signature + "&foo=bar",
			now:  time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC),
		},
		{
			name:    "expired",
			uri:     "/something?foo=bar&baz=barbaz&" + presignParams + signature,
			now:     time.Date(2011, 5, 12, 22, 20, 0, 0, time.UTC),
			wantErr: ErrDateOutOfRange,
		},
		{
			name:    "tampered query",
			uri:     "/something?foo=baz&baz=barbaz&" + presignParams + signature,
			now:     time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC),
			wantErr: ErrSignatureMismatch,
		},
		{
			name: "too many signed headers",
			uri: "/something?foo=bar&baz=barbaz&" +
				strings.Replace(presignParams, "X-EMS-SignedHeaders=host", "X-EMS-SignedHeaders=host%3Bdate", 1) + signature,
			now:     time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC),
			wantErr: ErrTooManyHeadersSignedForPresignedURL,
		},
		{
			name: "missing parameter",
			uri: "/something?foo=bar&baz=barbaz&" +
				strings.Replace(presignParams, "&X-EMS-Expires=123456", "", 1) + signature,
			now:     time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC),
			wantErr: ErrMalformedPresignedQuery,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewHashRequest("GET", tt.uri, []Header{{Name: "host", Value: "example.com"}}, nil)
			keyID, err := presignConfig().AtTime(tt.now).Authenticate(req, KeyDBFunc(presignKeys), nil)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if keyID != presignCredentials.KeyID {
					t.Errorf("expected %s, got %s", presignCredentials.KeyID, keyID)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuthenticateGeneratedURLs(t *testing.T) {
	rawURLs := []string{
		"http://example.com/something?foo=bar&baz=barbaz",
		"http://example.com/something?arr%5B%5C=apple&arr%5B%5C=pear",
		"http://example.com/something?tz=Europe%2FVienna",
		"http://example.com/something?tz=Europe%252FVienna",
		"http://example.com/something?foo=bar#hash",
		"http://example.com:8080/a/b/../c?x=1",
	}

	validationTime := time.Date(2011, 5, 12, 21, 59, 0, 0, time.UTC)

	for _, rawURL := range rawURLs {
		t.Run(rawURL, func(t *testing.T) {
			signed, err := presignConfig().GenerateSignedURL(rawURL, presignCredentials, presignExpires)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			rest := strings.SplitN(signed, "://", 2)[1]
			slash := strings.IndexByte(rest, '/')
			host, uri := rest[:slash], rest[slash:]

			req := NewHashRequest("GET", uri, []Header{{Name: "host", Value: host}}, nil)
			if _, err := presignConfig().AtTime(validationTime).Authenticate(req, KeyDBFunc(presignKeys), nil); err != nil {
				t.Errorf("expected %s to validate, got %v", signed, err)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	req := buildEmsRequest()
	config := emsConfig()
	if err := config.SignRequest(req, emsCredentials, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	keys := KeyDBFunc(func(string) ([]byte, bool) { return emsCredentials.Secret, true })
	if !config.IsValid(req, keys, nil) {
		t.Error("expected request to be valid")
	}

	noKeys := KeyDBFunc(func(string) ([]byte, bool) { return nil, false })
	if config.IsValid(req, noKeys, nil) {
		t.Error("expected request to be invalid")
	}
}

func TestSignedHeadersMustBePresent(t *testing.T) {
	keys := KeyDBFunc(func(string) ([]byte, bool) { return emsCredentials.Secret, true })

	signed := NewHashRequest("GET", "/", []Header{{Name: "host", Value: "example.com"}}, nil)
	if err := emsConfig().SignRequest(signed, emsCredentials, nil); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	auth := strings.Replace(signed.Header("x-ems-auth"), "SignedHeaders=host;x-ems-date", "SignedHeaders=host;x-ems-date;x-request-id", 1)

	req := NewHashRequest("GET", "/", []Header{
		{Name: "host", Value: "example.com"},
		{Name: "x-ems-date", Value: signed.Header("x-ems-date")},
		{Name: "x-ems-auth", Value: auth},
	}, nil)
	_, err := emsConfig().Authenticate(req, keys, []string{"x-request-id"})
	if !errors.Is(err, ErrMissingHeader) {
		t.Fatalf("expected missing header, got %v", err)
	}
	var escherErr *Error
	if errors.As(err, &escherErr) && escherErr.Header != "x-request-id" {
		t.Errorf("expected header x-request-id, got %s", escherErr.Header)
	}
}

func TestIsDateWithinRangeLargeExpiry(t *testing.T) {
	date := time.Date(2011, 5, 11, 12, 0, 0, 0, time.UTC)
	config := presignConfig().AtTime(date.Add(24 * time.Hour))

	tests := []struct {
		name    string
		expires int64
		want    bool
	}{
		{name: "one hour", expires: 3600, want: false},
		{name: "nine billion seconds", expires: 9000000000, want: true},
		{name: "ten billion seconds", expires: 10000000000, want: true},
		{name: "max int64", expires: math.MaxInt64, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := config.isDateWithinRange(date, tt.expires); got != tt.want {
				t.Errorf("expected %t, got %t", tt.want, got)
			}
		})
	}
}

package escher

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SigningTime wraps a time.Time with cached format strings.
// Reference: AWS SDK v4 signer internal/v4/time.go
type SigningTime struct {
	time.Time
	longDate  string
	shortDate string
}

// NewSigningTime creates a new SigningTime from a time.Time.
// The time is converted to UTC.
func NewSigningTime(t time.Time) SigningTime {
	return SigningTime{
		Time: t.UTC(),
	}
}

// LongDate returns the time formatted for the string to sign.
// Format: YYYYMMDDTHHMMSSZ (e.g., 20110909T233600Z)
func (st *SigningTime) LongDate() string {
	if st.longDate == "" {
		st.longDate = st.Time.Format(LongDateFormat)
	}
	return st.longDate
}

// ShortDate returns the time formatted for the credential.
// Format: YYYYMMDD (e.g., 20110909)
func (st *SigningTime) ShortDate() string {
	if st.shortDate == "" {
		st.shortDate = st.Time.Format(ShortDateFormat)
	}
	return st.shortDate
}

// dateLayouts are tried in order by ParseDate.
var dateLayouts = []string{
	LongDateFormat,
	http.TimeFormat,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.ANSIC,
	time.RFC3339,
}

// ParseDate parses a date header or presigned Date parameter. Both the
// long form and HTTP dates are accepted. A zone abbreviation other than
// GMT or UTC is rejected unless it is known to the local zone database,
// since time.Parse would read it as UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var firstErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			err = checkZone(t)
		}
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

func checkZone(t time.Time) error {
	name, offset := t.Zone()
	if offset != 0 || name == "" || name == "UTC" || name == "GMT" {
		return nil
	}
	return fmt.Errorf("unknown time zone %q", name)
}

// formatDateHeader returns the value the signer writes into a missing date
// header: an HTTP date for a header literally called "date", the long form
// otherwise.
func formatDateHeader(headerName string, t SigningTime) string {
	if strings.EqualFold(headerName, "date") {
		return t.Time.Format(HTTPDateFormat)
	}
	return t.LongDate()
}

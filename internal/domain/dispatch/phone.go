// Package dispatch builds the outbound text and deep links sent to
// subcontractors when jobs are assigned or updated. It is pure: delivery lives
// in the service layer.
package dispatch

import (
	"strings"

	apperrors "github.com/target/dispatch-api/internal/errors"
)

// Digits strips everything but ASCII digits from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FormatPhone renders a 10-digit number as (XXX) XXX-XXXX. Any other input is
// returned unchanged.
func FormatPhone(raw string) string {
	d := Digits(raw)
	if len(d) != 10 {
		return raw
	}
	return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
}

// NormalizePhone converts raw into 11 US digits starting with 1.
//   - 10 digits: prefixed with 1
//   - 11 digits starting with 1: unchanged
//   - 11 digits starting with anything else: leading digit replaced by 1
//
// Anything else is an InvalidPhoneFormat error.
func NormalizePhone(raw string) (string, error) {
	d := Digits(raw)
	switch {
	case len(d) == 10:
		d = "1" + d
	case len(d) == 11 && d[0] != '1':
		d = "1" + d[1:]
	}
	if len(d) != 11 || d[0] != '1' {
		return "", apperrors.InvalidPhone(raw)
	}
	return d, nil
}

// Package phone normalises customer phone numbers with libphonenumber.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to numbers entered without a country prefix.
const DefaultRegion = "US"

// Normalize parses input as a number dialled from region and returns its
// E.164 form. ok is false when the input is not a valid number.
func Normalize(input, region string) (e164 string, ok bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}
	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return "", false
	}
	return phonenumbers.Format(number, phonenumbers.E164), true
}

// NormalizeE164 returns the E.164 form when input parses in DefaultRegion
// and the trimmed input otherwise, so free-form contact details survive.
func NormalizeE164(input string) string {
	if e164, ok := Normalize(input, DefaultRegion); ok {
		return e164
	}
	return strings.TrimSpace(input)
}

// Package phone normalizes dial destinations.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultRegion = "US"

var ErrInvalidNumber = errors.New("invalid phone number")

// NormalizeE164 parses input against region and returns it in E.164 form.
// Unparseable or invalid numbers return ErrInvalidNumber.
func NormalizeE164(input, region string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", ErrInvalidNumber
	}
	if region == "" {
		region = DefaultRegion
	}
	num, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return "", ErrInvalidNumber
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", ErrInvalidNumber
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

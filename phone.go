package auth

import (
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to parse national phone
// numbers that carry no country prefix.
var DefaultPhoneRegion = "IN"

// NormalizePhone validates an optional phone number and canonicalizes
// it to E.164. Empty input is accepted as is since the field is
// optional at signup.
func NormalizePhone(raw, region string) (string, error) {
	if raw == "" {
		return "", nil
	}

	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("INVALID_PHONE_NUMBER")
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("invalid phone number", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithTextCode("INVALID_PHONE_NUMBER")
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

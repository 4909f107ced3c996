// Package validator sanitizes and validates Nepali mobile numbers supplied
// by passengers at hold time. Numbers arrive in mixed formats: bare 10-digit,
// 977-prefixed, +977-prefixed, with or without separators.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrEmptyPhone indicates the phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidFormat indicates the phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrInvalidLength indicates the phone number is not 10 digits
	ErrInvalidLength = errors.New("phone number must be exactly 10 digits")

	// ErrInvalidPrefix indicates the number does not carry a Nepali mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with a valid Nepali mobile prefix")
)

// validPrefixes contains the Nepali mobile operator prefixes
var validPrefixes = []string{
	"984", // NTC
	"985", // NTC
	"986", // NTC
	"974", // NTC
	"975", // NTC
	"980", // Ncell
	"981", // Ncell
	"982", // Ncell
	"961", // Smart Cell
	"962", // Smart Cell
	"988", // Smart Cell
	"972", // UTL
}

var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles Nepali mobile number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate checks a Nepali mobile number and returns it sanitized to the
// bare 10-digit form. Accepts 9812345678, 977 9812345678, +977-981-234-5678
// and similar variants.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if phone == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}
	if len(sanitized) != 10 {
		return "", ErrInvalidLength
	}
	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize strips separators and the 977 country code
func (v *PhoneValidator) Sanitize(phone string) string {
	for _, sep := range []string{" ", "-", "(", ")", "+", "."} {
		phone = strings.ReplaceAll(phone, sep, "")
	}

	if strings.HasPrefix(phone, "977") && len(phone) == 13 {
		phone = phone[3:]
	}
	if strings.HasPrefix(phone, "0") && len(phone) == 11 {
		phone = phone[1:]
	}

	return phone
}

// IsValidPrefix checks whether the number starts with a known operator prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) < 3 {
		return false
	}

	prefix := phone[:3]
	for _, validPrefix := range validPrefixes {
		if prefix == validPrefix {
			return true
		}
	}

	return false
}

// Format renders a validated number in the display form 98X-XXX-XXXX
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s-%s-%s", sanitized[0:3], sanitized[3:6], sanitized[6:10]), nil
}

// GetOperator returns the operator name for a validated number
func (v *PhoneValidator) GetOperator(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	switch sanitized[:3] {
	case "984", "985", "986", "974", "975":
		return "NTC", nil
	case "980", "981", "982":
		return "Ncell", nil
	case "961", "962", "988":
		return "Smart Cell", nil
	case "972":
		return "UTL", nil
	default:
		return "", ErrInvalidPrefix
	}
}

// IsValid is a convenience method that reports whether phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

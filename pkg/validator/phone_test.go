package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	validNumbers := []struct {
		input    string
		expected string
		name     string
	}{
		{"9812345678", "9812345678", "Bare 10 digit"},
		{"981 234 5678", "9812345678", "With spaces"},
		{"981-234-5678", "9812345678", "With dashes"},
		{"(981) 234 5678", "9812345678", "With parentheses"},
		{"9779812345678", "9812345678", "With country code"},
		{"+9779812345678", "9812345678", "With plus and country code"},
		{"09812345678", "9812345678", "With leading zero"},
		{"9841234567", "9841234567", "NTC 984"},
		{"9851234567", "9851234567", "NTC 985"},
		{"9801234567", "9801234567", "Ncell 980"},
		{"9611234567", "9611234567", "Smart Cell 961"},
	}

	for _, tc := range validNumbers {
		t.Run(tc.name, func(t *testing.T) {
			sanitized, err := validator.Validate(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, sanitized)
		})
	}
}

func TestValidate_InvalidNumbers(t *testing.T) {
	validator := NewPhoneValidator()

	invalidNumbers := []struct {
		input       string
		expectedErr error
		name        string
	}{
		{"", ErrEmptyPhone, "Empty string"},
		{"123", ErrInvalidLength, "Too short"},
		{"98123456789", ErrInvalidLength, "Too long"},
		{"9912345678", ErrInvalidPrefix, "Invalid prefix 991"},
		{"9871234567", ErrInvalidPrefix, "Invalid prefix 987"},
		{"981234567a", ErrInvalidFormat, "Contains letters"},
		{"981 234 567!", ErrInvalidFormat, "Contains special characters"},
		{"1234567890", ErrInvalidPrefix, "Valid length but invalid prefix"},
	}

	for _, tc := range invalidNumbers {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validator.Validate(tc.input)
			assert.Error(t, err)
			assert.Equal(t, tc.expectedErr, err)
		})
	}
}

func TestSanitize(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
		name     string
	}{
		{"9812345678", "9812345678", "Already clean"},
		{"981 234 5678", "9812345678", "With spaces"},
		{"981.234.5678", "9812345678", "With dots"},
		{"+9779812345678", "9812345678", "With plus and country code"},
		{"977 981 234 5678", "9812345678", "Country code with spaces"},
		{"  981-234-5678  ", "9812345678", "Surrounding spaces"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, validator.Sanitize(tc.input))
		})
	}
}

func TestFormat(t *testing.T) {
	validator := NewPhoneValidator()

	result, err := validator.Format("+9779812345678")
	require.NoError(t, err)
	assert.Equal(t, "981-234-5678", result)

	_, err = validator.Format("invalid")
	assert.Error(t, err)
}

func TestGetOperator(t *testing.T) {
	validator := NewPhoneValidator()

	tests := []struct {
		input    string
		expected string
	}{
		{"9841234567", "NTC"},
		{"9851234567", "NTC"},
		{"9801234567", "Ncell"},
		{"9811234567", "Ncell"},
		{"9611234567", "Smart Cell"},
		{"9721234567", "UTL"},
		{"+9779812345678", "Ncell"},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			operator, err := validator.GetOperator(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, operator)
		})
	}

	_, err := validator.GetOperator("invalid")
	assert.Error(t, err)
}

func TestIsValid(t *testing.T) {
	validator := NewPhoneValidator()

	assert.True(t, validator.IsValid("9812345678"))
	assert.True(t, validator.IsValid("+977 981 234 5678"))
	assert.False(t, validator.IsValid(""))
	assert.False(t, validator.IsValid("invalid"))
	assert.False(t, validator.IsValid("9912345678"))
}

package utils

import (
	"fmt"
	"regexp"
)

var zipCodeRegex = regexp.MustCompile(`^\d{7}$`)

// ValidateZipCode validates a Japanese postal code (7 digits, no hyphen)
func ValidateZipCode(zipCode string) error {
	if !zipCodeRegex.MatchString(zipCode) {
		return fmt.Errorf("zip code must be 7 digits: %s", zipCode)
	}
	return nil
}

// ValidateUserID validates a portal account identifier
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID must not be empty")
	}
	if len(userID) > 64 {
		return fmt.Errorf("user ID too long: %s", userID)
	}
	return nil
}

// SanitizeString removes control characters from free-text input
func SanitizeString(s string) string {
	return regexp.MustCompile(`[\x00-\x1f\x7f]`).ReplaceAllString(s, "")
}

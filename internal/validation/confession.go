package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxConfessionLength mirrors models.MaxConfessionLength.
const MaxConfessionLength = 1000

var inviteCodeRegex = regexp.MustCompile(`^[A-Z0-9]{4,32}$`)

// NormalizeConfession trims the content and checks it is non-empty and
// within MaxConfessionLength characters.
func NormalizeConfession(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("Content is required")
	}
	if utf8.RuneCountInString(content) > MaxConfessionLength {
		return "", fmt.Errorf("Content must be %d characters or less", MaxConfessionLength)
	}
	return content, nil
}

// NormalizeInviteCode upper-cases and trims an invite code.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateInviteCode checks the format of a new company invite code.
func ValidateInviteCode(code string) error {
	if !inviteCodeRegex.MatchString(code) {
		return fmt.Errorf("invite code must be 4-32 characters of letters and digits")
	}
	return nil
}

// InvalidPeriodMessage is returned for any month or year that is not a valid period.
const InvalidPeriodMessage = "Invalid month or year. Month must be 1-12, year must be reasonable."

// ValidatePeriod checks a recap month and year.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 || year < 2000 || year > 2100 {
		return errors.New(InvalidPeriodMessage)
	}
	return nil
}

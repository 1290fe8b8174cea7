// Package validation checks user-supplied input before it reaches a service.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxNameLength    = 100
	MaxBioLength     = 2000
	MaxPostLength    = 5000
	MaxCommentLength = 2000
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error on a single field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidatePassword checks if a password meets requirements
func ValidatePassword(password string) error {
	if password == "" {
		return ValidationError{Field: "password", Message: "password is required"}
	}
	if len(password) < 8 {
		return ValidationError{Field: "password", Message: "password must be at least 8 characters"}
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return ValidationError{Field: "password", Message: "password must be at most 72 bytes"}
	}
	return nil
}

// ValidateName checks if a person or family name is valid
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "name is required"}
	}
	if utf8.RuneCountInString(name) < 2 {
		return ValidationError{Field: "name", Message: "name must be at least 2 characters"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return ValidationError{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", MaxNameLength)}
	}
	return nil
}

// ValidateText checks free text such as post content or comments
func ValidateText(field, text string, maxLength int) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ValidationError{Field: field, Message: field + " is required"}
	}
	if utf8.RuneCountInString(text) > maxLength {
		return ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d characters", field, maxLength)}
	}
	return nil
}

// ValidateLifeDates checks that a death date, if present, is not before the
// birth date and that neither lies in the future
func ValidateLifeDates(birth, death *time.Time) error {
	now := time.Now()
	if birth != nil && birth.After(now) {
		return ValidationError{Field: "birthDate", Message: "birth date cannot be in the future"}
	}
	if death != nil && death.After(now) {
		return ValidationError{Field: "deathDate", Message: "death date cannot be in the future"}
	}
	if birth != nil && death != nil && death.Before(*birth) {
		return ValidationError{Field: "deathDate", Message: "death date cannot be before birth date"}
	}
	return nil
}

// ParseDate parses an optional YYYY-MM-DD date. An empty string yields nil.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, ValidationError{Field: field, Message: "date must be in YYYY-MM-DD format"}
	}
	return &t, nil
}

package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
)

// Input validation and sanitization utilities

const maxFieldLength = 512

var patientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateSeverityFilter accepts empty, "all", or a known severity.
func ValidateSeverityFilter(s string) error {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == analyses.SeverityAll {
		return nil
	}
	_, err := analyses.ParseSeverity(s)
	return err
}

// ValidateAnalysisID validates analysis ID format (uuid)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidatePatientID checks the optional patient identifier.
func ValidatePatientID(id string) error {
	if id == "" {
		return nil // Optional field
	}
	if !patientIDPattern.MatchString(id) {
		return fmt.Errorf("invalid patient ID format (letters, digits, dot, dash, underscore, max 64 chars)")
	}
	return nil
}

// ValidateURL checks an optional http(s) URL, e.g. a feedback attachment.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL host cannot be empty")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// SanitizeField sanitizes and truncates a free-text form field.
func SanitizeField(input string) string {
	s := SanitizeString(input)
	if r := []rune(s); len(r) > maxFieldLength {
		s = string(r[:maxFieldLength])
	}
	return s
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

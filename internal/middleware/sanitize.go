package middleware

import (
	"html"
	"regexp"
	"strings"
	"unicode"
)

// SanitizeConfig contains configuration for input sanitization
type SanitizeConfig struct {
	MaxStringLength int  // Maximum allowed string length, in runes
	AllowHTML       bool // Whether to allow HTML in strings
}

const (
	// MaxTitleLength bounds topic, node and workflow titles
	MaxTitleLength = 200
	// MaxDescriptionLength bounds free-text descriptions
	MaxDescriptionLength = 2000
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// DefaultSanitizeConfig returns default sanitization configuration. Titles
// go to the model and back to a React client that escapes on render, so
// HTML is kept verbatim.
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaxStringLength: 10000,
		AllowHTML:       true,
	}
}

// SanitizeString sanitizes a string input by:
// - Removing null bytes and control characters (newlines and tabs kept)
// - Trimming whitespace
// - Escaping HTML entities (if AllowHTML is false)
// - Truncating to max length
func SanitizeString(input string, config SanitizeConfig) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, input)
	input = strings.TrimSpace(input)

	if !config.AllowHTML {
		input = html.EscapeString(input)
	}

	if config.MaxStringLength > 0 {
		if runes := []rune(input); len(runes) > config.MaxStringLength {
			input = strings.TrimSpace(string(runes[:config.MaxStringLength]))
		}
	}

	return input
}

// SanitizeTitle sanitizes a title: single line, collapsed spaces
func SanitizeTitle(title string) string {
	config := DefaultSanitizeConfig()
	config.MaxStringLength = MaxTitleLength

	return strings.Join(strings.Fields(SanitizeString(title, config)), " ")
}

// SanitizeDescription sanitizes a free-text description
func SanitizeDescription(description string) string {
	config := DefaultSanitizeConfig()
	config.MaxStringLength = MaxDescriptionLength

	return SanitizeString(description, config)
}

// SanitizeToken strips whitespace and control characters from an opaque token
func SanitizeToken(token string) string {
	return removeControlChars(strings.TrimSpace(token))
}

// ValidateID validates that an ID is a UUID
func ValidateID(id string) bool {
	return uuidPattern.MatchString(id)
}

// removeControlChars removes control characters from a string
func removeControlChars(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}

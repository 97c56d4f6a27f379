package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateCrateName validates a crate name for safety and correctness.
// It rejects names that could be used for path traversal or command injection
// when interpolated into repoquery patterns.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path traversal sequences (.., //, etc.)
//   - No null bytes
//   - Maximum length of 256 characters
func ValidateCrateName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCrate, "crate name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidCrate, "crate name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCrate, "crate name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"//",   // Double slash
		"\x00", // Null byte
		"\\",   // Backslash (Windows path)
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidCrate, "crate name contains invalid characters: %q", pattern)
		}
	}

	if !crateNameRegex.MatchString(name) {
		return New(ErrCodeInvalidCrate, "invalid crate name: %q", name)
	}

	return nil
}

// crateNameRegex matches valid crates.io package names.
var crateNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

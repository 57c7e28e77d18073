package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// MaxIDLength bounds node ids and graph names.
const MaxIDLength = 256

// ValidateNodeID validates a node id before it enters a graph.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters (ids are written verbatim inside quotes)
//   - Maximum length of MaxIDLength characters
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "node id cannot be empty")
	}
	if len(id) > MaxIDLength {
		return New(ErrCodeInvalidInput, "node id too long (max %d characters)", MaxIDLength)
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node id %q contains control characters", id)
		}
	}
	return nil
}

// ValidateGraphName validates a graph name. Empty names are allowed.
func ValidateGraphName(name string) error {
	if len(name) > MaxIDLength {
		return New(ErrCodeInvalidInput, "graph name too long (max %d characters)", MaxIDLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "graph name contains control characters")
		}
	}
	return nil
}

// ValidatePath validates a file path supplied on the command line.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
//   - Must not name a directory-like target (trailing separator)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, string(filepath.Separator)) || strings.HasSuffix(path, "/") {
		return New(ErrCodeInvalidPath, "path %q names a directory", path)
	}

	return nil
}

package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	hexColorRegex = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)
)

// maxCustomerIDLength bounds identifiers accepted from callers. Voucherify
// source ids and RFC 5321 mailbox lengths both fit.
const maxCustomerIDLength = 254

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

func SanitizeString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	return strings.TrimSpace(s)
}

// ValidateCustomerID checks the identifier a pass is issued for. It is
// usually an email address but Voucherify source ids are accepted too.
func ValidateCustomerID(id, fieldName string) error {
	if id == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	if len(id) > maxCustomerIDLength {
		return &ValidationError{
			Field:   fieldName,
			Message: fmt.Sprintf("cannot exceed %d characters", maxCustomerIDLength),
		}
	}

	if strings.ContainsFunc(id, unicode.IsSpace) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must not contain whitespace",
		}
	}

	return nil
}

func ValidateHexColor(color, fieldName string) error {
	if color == "" {
		return &ValidationError{
			Field:   fieldName,
			Message: "is required",
		}
	}

	if !hexColorRegex.MatchString(color) {
		return &ValidationError{
			Field:   fieldName,
			Message: "must be a hex color like #fcba03",
		}
	}

	return nil
}

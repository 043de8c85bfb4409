package translate

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain"
)

// ReservedPrefix marks engine-internal field names.
const ReservedPrefix = "__"

// EscapeChar is prepended to reserved names so they start with a letter.
const EscapeChar = 'x'

// SanitizeFieldName makes name legal as a remote identifier.
// Names with the reserved prefix get EscapeChar prepended; others are unchanged.
func SanitizeFieldName(name string) string {
	if strings.HasPrefix(name, ReservedPrefix) {
		return string(EscapeChar) + name
	}
	return name
}

// RestoreFieldName reverses SanitizeFieldName.
func RestoreFieldName(name string) string {
	if len(name) > 1 && name[0] == EscapeChar && strings.HasPrefix(name[1:], ReservedPrefix) {
		return name[1:]
	}
	return name
}

// IsEscapedName reports whether name already has the sanitized form of a
// reserved name. Such a source name would restore to something else.
func IsEscapedName(name string) bool {
	return RestoreFieldName(name) != name
}

// ValidateFieldName rejects declared names that collide with sanitized reserved names.
func ValidateFieldName(name string) error {
	if IsEscapedName(name) {
		return fmt.Errorf("field %q collides with the escaped form of %q: %w",
			name, RestoreFieldName(name), domain.ErrInvalidSchema)
	}
	return nil
}

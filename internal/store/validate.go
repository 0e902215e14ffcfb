package store

import (
	"strings"

	"github.com/localnerve/tabledit/internal/types"
)

// maxNameLength is the file name ceiling.
const maxNameLength = 100

// reservedNames are system names a file may not take, compared
// case-insensitively against the trimmed name.
var reservedNames = map[string]struct{}{
	"con": {}, "prn": {}, "aux": {}, "nul": {},
	"system": {}, "default": {}, "untitled": {},
}

// validateName enforces the file naming rules: non-empty after trimming, at
// most 100 characters, a conservative character set, and no reserved system
// names.
func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return types.E(types.KindInvalidName, "file name is empty")
	}
	if len(trimmed) > maxNameLength {
		return types.E(types.KindInvalidName,
			"file name exceeds %d characters", maxNameLength)
	}
	if strings.HasPrefix(trimmed, ".") {
		return types.E(types.KindInvalidName, "file name may not start with a dot")
	}
	for _, r := range trimmed {
		if !allowedNameRune(r) {
			return types.E(types.KindInvalidName,
				"file name contains disallowed character %q", r)
		}
	}
	if _, reserved := reservedNames[strings.ToLower(trimmed)]; reserved {
		return types.E(types.KindInvalidName, "%q is a reserved name", trimmed)
	}
	return nil
}

func allowedNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == ' ', r == '-', r == '_', r == '.', r == '(', r == ')', r == ',':
		return true
	}
	return false
}

package ldraw

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName folds a part reference to its identity: trimmed, forward
// slashes, case-folded. "S\3001S01.DAT" and "s/3001s01.dat" are the same file.
func NormalizeName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	return cases.Fold().String(name)
}

// SameName compares two references case-insensitively.
func SameName(a, b string) bool {
	return NormalizeName(a) == NormalizeName(b)
}

// KindFromPartType maps an !LDRAW_ORG type to a Kind.
func KindFromPartType(partType string) Kind {
	t := strings.ToLower(strings.TrimSpace(partType))
	t = strings.TrimPrefix(t, "unofficial_")
	t = strings.TrimPrefix(t, "un-official ")
	switch {
	case t == "model" || t == "submodel":
		return KindModel
	case t == "subpart":
		return KindSubpart
	case t == "shortcut":
		return KindShortcut
	case strings.HasSuffix(t, "primitive"):
		return KindPrimitive
	default:
		return KindPart
	}
}

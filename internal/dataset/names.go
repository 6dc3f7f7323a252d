package dataset

import "strings"

// MaxNameLength is the longest legal variable name.
const MaxNameLength = 32

var reservedNames = map[string]bool{
	"_all": true, "_b": true, "byte": true, "_coef": true, "_cons": true,
	"double": true, "float": true, "if": true, "in": true, "int": true,
	"long": true, "_n": true, "_N": true, "_pi": true, "_pred": true,
	"_rc": true, "_skip": true, "strL": true, "using": true, "with": true,
}

// MakeVarName turns an arbitrary column label into a legal variable name:
// ASCII letters, digits and underscores only, not starting with a digit,
// not a reserved word, at most MaxNameLength characters. Case is kept.
func MakeVarName(label string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(label) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	name := b.String()
	if name == "" {
		name = "var"
	}
	if name[0] >= '0' && name[0] <= '9' || isReserved(name) {
		name = "_" + name
	}
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

// MakeVarName is the dataset's sanitizer, exposed as a method so the
// dataset satisfies host interfaces that ask for it.
func (d *Dataset) MakeVarName(label string) string {
	return MakeVarName(label)
}

// IsValidName reports whether name is a legal variable name.
func IsValidName(name string) bool {
	if name == "" || len(name) > MaxNameLength || isReserved(name) {
		return false
	}
	if name[0] >= '0' && name[0] <= '9' {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

func isReserved(name string) bool {
	if reservedNames[name] {
		return true
	}
	// str1 .. str2045 are type names.
	if strings.HasPrefix(name, "str") && len(name) > 3 {
		for i := 3; i < len(name); i++ {
			if name[i] < '0' || name[i] > '9' {
				return false
			}
		}
		return true
	}
	return false
}

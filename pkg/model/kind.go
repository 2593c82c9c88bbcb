package model

import (
	"errors"
	"fmt"
	"strings"
)

// FieldKind is the closed enumeration of supported UI field kinds.
type FieldKind string

const (
	KindText           FieldKind = "text"
	KindInteger        FieldKind = "integer"
	KindNumber         FieldKind = "number"
	KindBoolean        FieldKind = "boolean"
	KindHidden         FieldKind = "hidden"
	KindChoice         FieldKind = "choice"
	KindMultipleChoice FieldKind = "multiple-choice"
	KindFile           FieldKind = "file"
)

// ErrUnknownFieldKind is returned when a parameter declares a kind outside
// the supported set.
var ErrUnknownFieldKind = errors.New("model: unknown field kind")

// kindAliases maps accepted spellings (lower-cased) to kinds. Legacy
// form-class names are kept so existing definitions keep working.
var kindAliases = map[string]FieldKind{
	"text":                KindText,
	"string":              KindText,
	"charfield":           KindText,
	"integer":             KindInteger,
	"integerfield":        KindInteger,
	"number":              KindNumber,
	"float":               KindNumber,
	"floatfield":          KindNumber,
	"decimalfield":        KindNumber,
	"boolean":             KindBoolean,
	"booleanfield":        KindBoolean,
	"hidden":              KindHidden,
	"hiddeninput":         KindHidden,
	"choice":              KindChoice,
	"choicefield":         KindChoice,
	"multiple-choice":     KindMultipleChoice,
	"multiplechoicefield": KindMultipleChoice,
	"file":                KindFile,
	"filefield":           KindFile,
}

// ParseFieldKind resolves a declared kind name.
func ParseFieldKind(name string) (FieldKind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if kind, ok := kindAliases[key]; ok {
		return kind, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFieldKind, name)
}

// Valid reports whether k is one of the declared kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindInteger, KindNumber, KindBoolean, KindHidden,
		KindChoice, KindMultipleChoice, KindFile:
		return true
	default:
		return false
	}
}

func (k FieldKind) String() string {
	return string(k)
}

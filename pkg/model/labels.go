package model

import (
	"strings"
	"unicode"
)

// Titleize upper-cases the first letter of every run of letters and
// lower-cases the rest, so "input_file" becomes "Input_File" and "2nd pass"
// becomes "2Nd Pass". Labels and choice captions use it.
func Titleize(value string) string {
	if value == "" {
		return ""
	}

	var out strings.Builder
	out.Grow(len(value))

	inWord := false
	for _, r := range value {
		if unicode.IsLetter(r) {
			if inWord {
				out.WriteRune(unicode.ToLower(r))
			} else {
				out.WriteRune(unicode.ToTitle(r))
			}
			inWord = true
			continue
		}
		inWord = false
		out.WriteRune(r)
	}
	return out.String()
}

// Package validation checks user supplied names and codes before they reach
// the services.
package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stock codes: letters, digits, dash and underscore.
var codeRe = regexp.MustCompile(`^[A-Za-z0-9_\-]{1,30}$`)

const maxNameLength = 80

// IsValidCode reports whether code can name a stock.
func IsValidCode(code string) bool {
	return codeRe.MatchString(code)
}

// IsValidName accepts coach names of printable characters, at most 80 runes,
// not blank.
func IsValidName(name string) bool {
	if strings.TrimSpace(name) == "" || utf8.RuneCountInString(name) > maxNameLength {
		return false
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// Violations maps a field name to a message code (see i18n).
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

var (
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneRe = regexp.MustCompile(`^0[1-9][0-9]{8}$`)
)

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

// Email flags a malformed address. Empty values are left to Required.
func Email(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value != "" && !IsEmail(value) {
		v[field] = "invalid_email"
	}
}

// Phone flags a value that is not a French 10-digit number. Empty values pass.
func Phone(field, value string, v Violations) {
	value = strings.TrimSpace(value)
	if value != "" && !IsPhone(value) {
		v[field] = "invalid_phone"
	}
}

func IsEmail(s string) bool { return emailRe.MatchString(s) }

// IsPhone accepts spaces, dashes and dots between digit pairs, and the +33
// international prefix in place of the leading 0.
func IsPhone(s string) bool {
	cleaned := strings.NewReplacer(" ", "", "-", "", ".", "").Replace(s)
	if rest, ok := strings.CutPrefix(cleaned, "+33"); ok {
		cleaned = "0" + rest
	}
	return phoneRe.MatchString(cleaned)
}

var (
	dangerous = []string{"<script", "</script", "javascript:", "onerror=", "onclick="}
	brackets  = strings.NewReplacer("<", "", ">", "")
)

// Sanitize trims free text and strips what could be interpreted downstream as
// markup or script: control characters (newline and tab excepted), angle
// brackets and a few well known injection patterns.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return -1
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)

	// Removing one pattern can join the halves of another, so repeat until stable.
	for {
		next := brackets.Replace(removeFold(s, dangerous))
		if next == s {
			break
		}
		s = next
	}
	return strings.TrimSpace(s)
}

// removeFold deletes every ASCII case-insensitive occurrence of the patterns.
func removeFold(s string, patterns []string) string {
	for _, p := range patterns {
		for {
			i := strings.Index(asciiLower(s), p)
			if i < 0 {
				break
			}
			s = s[:i] + s[i+len(p):]
		}
	}
	return s
}

// asciiLower folds A-Z only so byte offsets match the input.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

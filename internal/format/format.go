// Package format renders amounts, phone numbers and free text the way they are
// shown on the form and printed on the quote.
package format

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Price formats d with two decimals, a space as thousands separator, a comma
// as decimal separator and the euro suffix: 1234.5 -> "1 234,50 €".
func Price(d decimal.Decimal) string {
	return Amount(d) + " €"
}

// Amount is Price without the currency suffix.
func Amount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if neg && strings.Trim(fixed, "0.") != "" {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

// PriceFloat is Price for a float amount.
func PriceFloat(v float64) string {
	return Price(decimal.NewFromFloat(v))
}

// Phone groups a 10-digit number by pairs; anything else is returned as is.
func Phone(phone string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	if len(digits) != 10 {
		return phone
	}
	return strings.Join([]string{digits[0:2], digits[2:4], digits[4:6], digits[6:8], digits[8:10]}, " ")
}

var smallWords = map[string]bool{
	"de": true, "du": true, "des": true, "le": true, "la": true, "les": true,
	"un": true, "une": true, "au": true, "aux": true, "et": true, "ou": true,
	"à": true, "en": true, "dans": true, "sur": true, "pour": true, "par": true,
}

var (
	afterSentence = regexp.MustCompile(`([.!?]\s+)(\p{Ll})`)
	afterDash     = regexp.MustCompile(`(-\s*)(\p{Ll})`)
)

// Capitalize title-cases text following French usage: articles and short
// prepositions stay lowercase unless they open the text or a sentence.
func Capitalize(text string) string {
	if text == "" {
		return text
	}
	words := strings.Split(strings.ToLower(text), " ")
	for i, w := range words {
		if i > 0 && smallWords[w] {
			continue
		}
		words[i] = upperFirst(w)
	}
	out := strings.Join(words, " ")
	out = afterSentence.ReplaceAllStringFunc(out, upperLast)
	out = afterDash.ReplaceAllStringFunc(out, upperLast)
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// upperLast uppercases the final rune of a regexp match.
func upperLast(m string) string {
	r, size := utf8.DecodeLastRuneInString(m)
	return m[:len(m)-size] + string(unicode.ToUpper(r))
}

var cleaner = strings.NewReplacer(
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`, "‶", `"`,
	"〝", `"`, "〞", `"`, "〟", `"`, "＂", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "‵", "'",
	"`", "'", "´", "'",
	"…", "...",
	"–", "-", "—", "-", "−", "-",
)

// CleanText normalises typographic punctuation and exotic spaces to plain
// ASCII so the PDF core fonts can render them.
func CleanText(text string) string {
	text = cleaner.Replace(text)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 0x2000 && r <= 0x200F, r >= 0x2028 && r <= 0x202F, r >= 0x205F && r <= 0x206F:
			return ' '
		}
		return r
	}, text)
}

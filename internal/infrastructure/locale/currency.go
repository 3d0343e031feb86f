// Package locale parses Brazilian-formatted values found in spreadsheets and
// documents: currency amounts, dates and "project - client" labels.
// Every parser is total: bad input yields nil or an empty value, never a panic.
package locale

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// currencyTokens are removed before the numeric part is interpreted.
// Longer tokens come first so "US$" is not left as "US".
var currencyTokens = []string{"US$", "R$", "BRL", "USD", "$", "€"}

var numericResidue = regexp.MustCompile(`^[0-9.,]*[0-9][0-9.,]*$`)

// ParseCurrency converts a currency string into a number.
//
// Separator rules:
//   - "." and "," both present: "." groups thousands, "," is the decimal mark.
//   - only ",": decimal mark when at most two digits follow the last one,
//     otherwise a thousands separator ("3,500" is 3500).
//   - only ".": decimal mark when at most two digits follow the last one and
//     the integer part is below 1000, otherwise a thousands separator.
//
// Returns nil when anything other than digits and separators remains.
func ParseCurrency(value string) *float64 {
	s := strings.ToUpper(strings.TrimSpace(value))
	if s == "" {
		return nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	if !numericResidue.MatchString(s) {
		return nil
	}

	normalized, ok := normalizeSeparators(s)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return nil
	}
	if negative {
		f = -f
	}
	return &f
}

func normalizeSeparators(s string) (string, bool) {
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		if strings.Count(s, ",") > 1 {
			return "", false
		}
		return strings.Replace(s, ",", ".", 1), true

	case hasComma:
		idx := strings.LastIndex(s, ",")
		frag := s[idx+1:]
		head := strings.ReplaceAll(s[:idx], ",", "")
		if len(frag) <= 2 {
			return head + "." + frag, true
		}
		return head + frag, true

	case hasDot:
		idx := strings.LastIndex(s, ".")
		frag := s[idx+1:]
		head := strings.ReplaceAll(s[:idx], ".", "")
		if len(frag) <= 2 && integerBelow(head, 1000) {
			return head + "." + frag, true
		}
		return head + frag, true
	}
	return s, true
}

func integerBelow(digits string, limit int64) bool {
	if digits == "" {
		return true
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return false
	}
	return n < limit
}

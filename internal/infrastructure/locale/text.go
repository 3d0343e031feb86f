package locale

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ProjectClient is the result of splitting a "code - client" style label.
type ProjectClient struct {
	Client  string `json:"client"`
	Project string `json:"project"`
}

// projectSeparator is the separator recognised in compound labels.
const projectSeparator = " - "

const maxProjectCodeLength = 5

// ParseProjectClient splits labels like "LF - Livia Assan".
// A short uppercase alphanumeric left side is a project code and the right
// side the client; otherwise the left side is the client and the right the
// project. Without a separator the whole label is the project.
func ParseProjectClient(value string) ProjectClient {
	s := CleanText(value)
	left, right, found := strings.Cut(s, projectSeparator)
	if !found {
		return ProjectClient{Project: s}
	}
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if isProjectCode(left) {
		return ProjectClient{Client: right, Project: left}
	}
	return ProjectClient{Client: left, Project: right}
}

// HasProjectSeparator reports whether the label is a compound label.
func HasProjectSeparator(value string) bool {
	return strings.Contains(CleanText(value), projectSeparator)
}

func isProjectCode(s string) bool {
	if s == "" || len(s) > maxProjectCodeLength {
		return false
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// CleanText trims the value and collapses internal whitespace.
func CleanText(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// Fold lowercases text and strips diacritics, so "Descrição" and
// "descricao" compare equal.
func Fold(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		out = value
	}
	return strings.ToLower(out)
}

// FoldHeader normalises a header cell for column matching. camelCase
// headers such as "signedDate" are split into words first.
func FoldHeader(value string) string {
	value = strings.NewReplacer("_", " ", "\n", " ", "\t", " ").Replace(value)
	return CleanText(Fold(splitCamelCase(value)))
}

func splitCamelCase(value string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range value {
		if unicode.IsUpper(r) && prevLower {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return b.String()
}

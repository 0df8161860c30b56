package utils

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips diacritics and collapses runs of whitespace, so that
// "  Código " and "codigo" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// ContainsWord reports whether the folded haystack contains word as a whole word.
// Both arguments are expected to be folded already.
func ContainsWord(haystack, word string) bool {
	return IndexWord(haystack, word) >= 0
}

// IndexWord returns the byte offset of the first whole-word occurrence of word in
// haystack, or -1.
func IndexWord(haystack, word string) int {
	if word == "" {
		return -1
	}
	for i := 0; i < len(haystack); {
		j := strings.Index(haystack[i:], word)
		if j < 0 {
			return -1
		}
		start := i + j
		if boundaryBefore(haystack, start) && boundaryAfter(haystack, start+len(word)) {
			return start
		}
		i = start + 1
	}
	return -1
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// RuneLen counts characters, not bytes.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// IsNumeric reports whether s parses as a number once grouping and currency marks
// are removed.
func IsNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	s = strings.TrimPrefix(strings.TrimPrefix(s, "R$"), "$")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if strings.Count(s, ".") > 1 {
		s = strings.Replace(s, ".", "", strings.Count(s, ".")-1)
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// HasDigit reports whether s contains any decimal digit.
func HasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

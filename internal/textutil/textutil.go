// Package textutil provides text normalisation and matching helpers for
// Japanese readings.
package textutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	newlineRe    = regexp.MustCompile(`[\n\r]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// NormalizeWhitespaces replaces newlines and multiple whitespace with a single space.
func NormalizeWhitespaces(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	return multiSpaceRe.ReplaceAllString(text, " ")
}

// Normalize applies NFKC, which folds half-width katakana and full-width
// latin into their canonical forms, then normalizes whitespace.
func Normalize(text string) string {
	return strings.TrimSpace(NormalizeWhitespaces(norm.NFKC.String(text)))
}

// ToKatakana converts hiragana to katakana and leaves everything else.
func ToKatakana(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'ぁ' && r <= 'ゖ' || r == 'ゝ' || r == 'ゞ' {
			return r + 0x60
		}
		return r
	}, s)
}

// IsKana reports whether r is hiragana, katakana or the long vowel mark.
func IsKana(r rune) bool {
	return unicode.In(r, unicode.Hiragana, unicode.Katakana) || r == 'ー'
}

// Segment is a run of text that is either all kana or contains no kana.
type Segment struct {
	Text string
	Kana bool
}

// SplitKana cuts text into alternating kana and non-kana segments.
// Joining the segment texts gives back text.
func SplitKana(text string) []Segment {
	var segs []Segment
	var buf strings.Builder
	kana := false
	for i, r := range text {
		k := IsKana(r)
		if i > 0 && k != kana {
			segs = append(segs, Segment{Text: buf.String(), Kana: kana})
			buf.Reset()
		}
		kana = k
		buf.WriteRune(r)
	}
	if buf.Len() > 0 {
		segs = append(segs, Segment{Text: buf.String(), Kana: kana})
	}
	return segs
}

// Levenshtein returns the edit distance between two symbol sequences.
func Levenshtein(a, b []string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			sub := 1
			if a[i-1] == b[j-1] {
				sub = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+sub)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// HeadMatch returns the length of the common prefix of a and b.
func HeadMatch(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// TailMatch returns the length of the common suffix of a and b.
func TailMatch(a, b []string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

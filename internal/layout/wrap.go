package layout

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks text into lines no wider than maxWidth as reported by
// measure. Words are kept whole where possible; a word wider than maxWidth
// is split between runes. Explicit newlines start a new line. Blank input
// yields no lines.
func Wrap(text string, maxWidth float64, measure func(string) float64) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var lines []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if maxWidth <= 0 || measure(candidate) <= maxWidth {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			if measure(word) <= maxWidth {
				current = word
				continue
			}
			pieces := splitRunes(word, maxWidth, measure)
			lines = append(lines, pieces[:len(pieces)-1]...)
			current = pieces[len(pieces)-1]
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

// splitRunes cuts word into pieces that fit maxWidth. Every piece holds at
// least one rune, so a single glyph wider than maxWidth still progresses.
func splitRunes(word string, maxWidth float64, measure func(string) float64) []string {
	var pieces []string
	start := 0
	for start < len(word) {
		_, size := utf8.DecodeRuneInString(word[start:])
		end := start + size
		for end < len(word) {
			_, next := utf8.DecodeRuneInString(word[end:])
			if measure(word[start:end+next]) > maxWidth {
				break
			}
			end += next
		}
		pieces = append(pieces, word[start:end])
		start = end
	}
	return pieces
}

// Package filter screens transcribed speech against a configured list of
// blocked words and phrases.
package filter

import (
	"os"
	"strings"
)

// List holds lowercased blocked phrases.
type List struct {
	words []string
}

// Load reads a block-list file with one phrase per line. Blank lines are
// skipped, surrounding whitespace is trimmed and phrases are lowercased.
// A missing file disables filtering: it yields an empty list, not an error.
func Load(path string) *List {
	l := &List{}
	if path == "" {
		return l
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return l
	}

	for _, line := range strings.Split(string(data), "\n") {
		word := strings.ToLower(strings.TrimSpace(line))
		if word != "" {
			l.words = append(l.words, word)
		}
	}
	return l
}

// Words returns the loaded phrases in file order.
func (l *List) Words() []string { return l.words }

// Blocked reports whether text contains any listed phrase as a
// case-insensitive substring.
func (l *List) Blocked(text string) bool {
	if len(l.words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range l.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

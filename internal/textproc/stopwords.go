// Package textproc reduces free text to comparable keyword counts.
//
// Tokens follow the classic word-tokenizer rules used by the matcher:
// punctuation is split off word edges, contractions keep their head, and
// only purely alphabetic tokens survive. English stopwords are dropped.
package textproc

import (
	_ "embed"
	"strings"
)

//go:embed stop_words.txt
var stopWordsData string

var defaultStopwords = parseStopwords(stopWordsData)

func parseStopwords(data string) map[string]struct{} {
	lines := strings.Split(data, "\n")
	set := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		w := strings.ToLower(strings.TrimSpace(line))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Stopwords is an immutable set of lowercase words to ignore.
type Stopwords struct {
	set map[string]struct{}
}

// DefaultStopwords returns the embedded English list.
func DefaultStopwords() Stopwords { return Stopwords{set: defaultStopwords} }

// With returns a copy extended with extra words. Blank entries are ignored.
func (s Stopwords) With(extra ...string) Stopwords {
	if len(extra) == 0 {
		return s
	}
	set := make(map[string]struct{}, len(s.set)+len(extra))
	for w := range s.set {
		set[w] = struct{}{}
	}
	for _, w := range extra {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return Stopwords{set: set}
}

// Contains reports whether the lowercase word is a stopword.
func (s Stopwords) Contains(word string) bool {
	_, ok := s.set[word]
	return ok
}

// Len returns the number of stopwords.
func (s Stopwords) Len() int { return len(s.set) }

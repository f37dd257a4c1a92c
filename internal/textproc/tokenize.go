package textproc

import (
	"bufio"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
)

// splitPunct lists the characters always split off as separate tokens.
const splitPunct = ",;:?!()[]{}<>\"“”‘«»&|*…"

func isSplitRune(r rune) bool {
	return unicode.IsSpace(r) || strings.ContainsRune(splitPunct, r)
}

// scanChunk is a bufio.SplitFunc yielding runs of runes between separators.
func scanChunk(data []byte, atEOF bool) (int, []byte, error) {
	start := 0
	for start < len(data) {
		r, size := utf8.DecodeRune(data[start:])
		if !isSplitRune(r) {
			break
		}
		start += size
	}
	for end := start; end < len(data); {
		r, size := utf8.DecodeRune(data[end:])
		if isSplitRune(r) {
			return end + size, data[start:end], nil
		}
		end += size
	}
	if atEOF && start < len(data) {
		return len(data), data[start:], nil
	}
	if atEOF {
		return len(data), nil, nil
	}
	// request more data
	return start, nil, nil
}

// headOf strips edge punctuation and keeps the head of a contraction:
// "don't" -> "do", "it's" -> "it", "skills." -> "skills".
func headOf(chunk string) string {
	chunk = strings.TrimFunc(chunk, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	chunk = strings.ReplaceAll(chunk, "’", "'")
	lower := strings.ToLower(chunk)
	if lower == "n't" {
		return ""
	}
	if strings.HasSuffix(lower, "n't") {
		return chunk[:len(chunk)-3]
	}
	if i := strings.IndexByte(chunk, '\''); i > 0 {
		return chunk[:i]
	}
	return chunk
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Tokenize returns the lowercase alphabetic tokens of text in order.
// Hyphenated, dotted and numeric tokens are dropped.
func Tokenize(text string) []string {
	text = norm.NFKC.String(text)
	lower := cases.Lower(language.Und)
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), len(text)+1)
	sc.Split(scanChunk)
	out := make([]string, 0, 256)
	for sc.Scan() {
		w := headOf(sc.Text())
		if !isAlpha(w) {
			continue
		}
		out = append(out, lower.String(w))
	}
	return out
}

// Analyzer extracts keywords with a fixed stopword set. Safe for concurrent use.
type Analyzer struct {
	stop Stopwords
}

// NewAnalyzer builds an analyzer over stop.
func NewAnalyzer(stop Stopwords) *Analyzer { return &Analyzer{stop: stop} }

// Stopwords returns the analyzer's stopword set.
func (a *Analyzer) Stopwords() Stopwords { return a.stop }

// Keywords tokenizes text, drops stopwords and counts what remains.
func (a *Analyzer) Keywords(text string) domain.Keywords {
	var kw domain.Keywords
	for _, tok := range Tokenize(text) {
		if a.stop.Contains(tok) {
			continue
		}
		kw.Add(tok)
	}
	return kw
}

var defaultAnalyzer = NewAnalyzer(DefaultStopwords())

// ExtractKeywords counts the non-stopword tokens of text using the default list.
func ExtractKeywords(text string) domain.Keywords { return defaultAnalyzer.Keywords(text) }

// vectorTokenRe mirrors the default bag-of-words token pattern: two or more word runes.
var vectorTokenRe = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]{2,}`)

// VectorTerms returns the lowercase vectorizer tokens of text. Stopwords are kept.
func VectorTerms(text string) []string {
	return vectorTokenRe.FindAllString(strings.ToLower(text), -1)
}

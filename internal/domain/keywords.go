package domain

import (
	"encoding/json"
	"sort"
)

// Keywords is a frequency counter that remembers first-occurrence order.
// The zero value is ready to use.
type Keywords struct {
	order  []string
	counts map[string]int
}

// NewKeywords counts terms in order.
func NewKeywords(terms ...string) Keywords {
	var k Keywords
	for _, t := range terms {
		k.Add(t)
	}
	return k
}

// Add increments the count of term by one.
func (k *Keywords) Add(term string) { k.AddN(term, 1) }

// AddN increments the count of term by n. Non-positive n is ignored.
func (k *Keywords) AddN(term string, n int) {
	if n <= 0 || term == "" {
		return
	}
	if k.counts == nil {
		k.counts = make(map[string]int)
	}
	if _, ok := k.counts[term]; !ok {
		k.order = append(k.order, term)
	}
	k.counts[term] += n
}

// Count returns the frequency of term.
func (k Keywords) Count(term string) int { return k.counts[term] }

// Len returns the number of distinct terms.
func (k Keywords) Len() int { return len(k.order) }

// Total returns the sum of all counts.
func (k Keywords) Total() int {
	n := 0
	for _, c := range k.counts {
		n += c
	}
	return n
}

// Terms returns the distinct terms in first-occurrence order.
func (k Keywords) Terms() []string {
	out := make([]string, len(k.order))
	copy(out, k.order)
	return out
}

// Intersect keeps terms present in both counters with the smaller count,
// ordered as in the receiver.
func (k Keywords) Intersect(other Keywords) Keywords {
	var out Keywords
	for _, t := range k.order {
		b := other.counts[t]
		if b == 0 {
			continue
		}
		out.AddN(t, min(k.counts[t], b))
	}
	return out
}

// KeywordCount is a term with its frequency.
type KeywordCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Top returns up to n entries, most frequent first; ties keep first-occurrence order.
// A non-positive n returns every entry.
func (k Keywords) Top(n int) []KeywordCount {
	out := k.entries()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MarshalJSON encodes the counter as an ordered list of term/count pairs.
func (k Keywords) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.entries())
}

func (k Keywords) entries() []KeywordCount {
	out := make([]KeywordCount, 0, len(k.order))
	for _, t := range k.order {
		out = append(out, KeywordCount{Term: t, Count: k.counts[t]})
	}
	return out
}

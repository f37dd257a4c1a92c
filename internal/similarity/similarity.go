// Package similarity scores how much of a job description's vocabulary a CV covers.
package similarity

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/fairyhunter13/skills-warrior/internal/domain"
	"github.com/fairyhunter13/skills-warrior/internal/textproc"
)

// Overlap returns the share of distinct job-description keywords that also
// appear in the CV, as a percentage. An empty job description scores 0.
func Overlap(cv, jd domain.Keywords) float64 {
	if jd.Len() == 0 {
		return 0
	}
	common := cv.Intersect(jd)
	return float64(common.Len()) / float64(jd.Len()) * 100
}

// Vectorize builds a sorted shared vocabulary over docs and one count vector per doc.
func Vectorize(docs ...string) ([]string, [][]float64) {
	counts := make([]map[string]int, len(docs))
	vocabSet := map[string]struct{}{}
	for i, d := range docs {
		m := map[string]int{}
		for _, t := range textproc.VectorTerms(d) {
			m[t]++
			vocabSet[t] = struct{}{}
		}
		counts[i] = m
	}
	vocab := make([]string, 0, len(vocabSet))
	for t := range vocabSet {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)

	vectors := make([][]float64, len(docs))
	for i := range docs {
		v := make([]float64, len(vocab))
		for j, t := range vocab {
			v[j] = float64(counts[i][t])
		}
		vectors[i] = v
	}
	return vocab, vectors
}

// Cosine returns the cosine similarity of a and b in [0,1] for count vectors.
// Zero vectors and mismatched lengths score 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	c := floats.Dot(a, b) / (na * nb)
	// rounding can push identical vectors a hair past 1
	return math.Min(1, math.Max(0, c))
}

// CosineText vectorizes both texts and returns their cosine similarity as a percentage.
func CosineText(cv, jd string) float64 {
	_, vecs := Vectorize(cv, jd)
	return Cosine(vecs[0], vecs[1]) * 100
}

// Format renders a score the way each method displays it.
func Format(method domain.ScoreMethod, score float64) string {
	if method == domain.MethodOverlap {
		return fmt.Sprintf("%.2f%%", score)
	}
	return fmt.Sprintf("%.0f%%", score)
}

// ClampThreshold bounds a threshold to [0,100].
func ClampThreshold(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	return math.Min(100, math.Max(0, t))
}

// Judge compares score with threshold; reaching the threshold is a match.
func Judge(score, threshold float64) domain.Verdict {
	if score >= ClampThreshold(threshold) {
		return domain.VerdictMatch
	}
	return domain.VerdictBelowThreshold
}

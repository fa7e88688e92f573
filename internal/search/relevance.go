package search

import (
	"math"
	"strings"
	"time"
	"unicode"
)

// Blend weights for the relevance score. They must total 1.0.
const (
	WeightKeyword   = 0.30
	WeightTFIDF     = 0.40
	WeightRecency   = 0.15
	WeightProject   = 0.10
	WeightTypeBoost = 0.05
)

// Kind tags what a scoring candidate is, which drives the type boost table.
type Kind string

const (
	KindTask    Kind = "task"
	KindMemory  Kind = "memory"
	KindMessage Kind = "message"
)

// Candidate is the minimal view of an entity the relevance scorer needs.
// Label carries the task status or memory type.
type Candidate struct {
	Content   string
	CreatedAt int64
	ProjectID string
	Kind      Kind
	Label     string
}

// Scorer computes blended relevance between a query and one candidate.
// TF-IDF is refit per call on the two-document corpus {query, candidate}:
// scores are stable for identical inputs but deliberately NOT comparable
// across different candidate pools. Keep the comparison pairwise.
type Scorer struct {
	Now func() time.Time
}

func NewScorer() *Scorer {
	return &Scorer{Now: time.Now}
}

// Score returns a blended relevance in [0, 1].
func (s *Scorer) Score(query string, c Candidate, currentProjectID string) float64 {
	keyword := KeywordSimilarity(query, c.Content)

	tfidf, ok := TFIDFCosine(query, c.Content)
	if !ok {
		// Vectorization failed (empty token set); reuse the keyword score
		// for this term.
		tfidf = keyword
	}

	recency := RecencyBoost(c.CreatedAt, s.Now().Unix())

	affinity := 0.3
	if c.ProjectID == currentProjectID {
		affinity = 1.0
	}

	score := keyword*WeightKeyword +
		tfidf*WeightTFIDF +
		recency*WeightRecency +
		affinity*WeightProject +
		typeBoost(c.Kind, c.Label)*WeightTypeBoost

	if score > 1.0 {
		return 1.0
	}
	if score < 0 {
		return 0
	}
	return score
}

// typeBoost favors actionable tasks and decision memories.
func typeBoost(kind Kind, label string) float64 {
	switch kind {
	case KindTask:
		switch label {
		case "in_progress":
			return 1.2
		case "completed":
			return 0.7
		default:
			return 1.0
		}
	case KindMemory:
		switch label {
		case "decision":
			return 1.3
		case "spec":
			return 1.1
		default:
			return 1.0
		}
	default:
		return 1.0
	}
}

// RecencyBoost is a step function of age in days since creation.
func RecencyBoost(createdAt, now int64) float64 {
	ageDays := float64(now-createdAt) / 86400.0
	switch {
	case ageDays <= 1:
		return 1.0
	case ageDays <= 7:
		return 0.8
	case ageDays <= 30:
		return 0.6
	case ageDays <= 90:
		return 0.4
	default:
		return 0.2
	}
}

// KeywordSimilarity is the Jaccard index over normalized, stop-word-filtered
// token sets.
func KeywordSimilarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	union := make(map[string]bool, len(setA)+len(setB))
	for t := range setA {
		union[t] = true
	}
	for t := range setB {
		union[t] = true
		if setA[t] {
			intersection++
		}
	}
	return float64(intersection) / float64(len(union))
}

// TFIDFCosine computes cosine similarity between TF-IDF vectors fit on the
// two-document corpus {query, candidate}. The second return is false when
// either document has no usable tokens.
func TFIDFCosine(query, candidate string) (float64, bool) {
	qTokens := Tokenize(query)
	cTokens := Tokenize(candidate)
	if len(qTokens) == 0 || len(cTokens) == 0 {
		return 0, false
	}

	qCounts := termCounts(qTokens)
	cCounts := termCounts(cTokens)

	vocab := make(map[string]bool, len(qCounts)+len(cCounts))
	for t := range qCounts {
		vocab[t] = true
	}
	for t := range cCounts {
		vocab[t] = true
	}

	var dot, normQ, normC float64
	for term := range vocab {
		df := 0
		if qCounts[term] > 0 {
			df++
		}
		if cCounts[term] > 0 {
			df++
		}
		// Smoothed IDF over the 2-document corpus.
		idf := math.Log(3.0/float64(1+df)) + 1.0

		qw := float64(qCounts[term]) / float64(len(qTokens)) * idf
		cw := float64(cCounts[term]) / float64(len(cTokens)) * idf

		dot += qw * cw
		normQ += qw * qw
		normC += cw * cw
	}

	denom := math.Sqrt(normQ) * math.Sqrt(normC)
	if denom == 0 {
		return 0, false
	}
	return dot / denom, true
}

// Tokenize lowercases, splits on non-alphanumeric runes, and drops stop words
// and single-character tokens.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokenize(s) {
		set[t] = true
	}
	return set
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "for": true,
	"from": true, "has": true, "have": true, "he": true, "her": true, "his": true,
	"how": true, "if": true, "in": true, "is": true, "it": true, "its": true,
	"just": true, "me": true, "my": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "our": true, "she": true, "so": true, "than": true,
	"that": true, "the": true, "their": true, "them": true, "then": true,
	"there": true, "they": true, "this": true, "to": true, "us": true,
	"was": true, "we": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "who": true, "will": true, "with": true,
	"would": true, "you": true, "your": true,
}

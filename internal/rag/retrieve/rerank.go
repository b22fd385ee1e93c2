package retrieve

import (
	"context"
	"sort"
	"strings"
)

// Reranker optionally reorders retrieved items (e.g., via a cross-encoder).
// Implementations should not drop items and should preserve Metadata fields.
type Reranker interface {
	Rerank(ctx context.Context, query string, items []RetrievedItem) ([]RetrievedItem, error)
}

// NoopReranker is the default implementation that leaves ordering unchanged.
type NoopReranker struct{}

func (NoopReranker) Rerank(_ context.Context, _ string, items []RetrievedItem) ([]RetrievedItem, error) {
	return items, nil
}

// DefaultTermOverlapBoost is the boost factor applied by NewTermOverlapReranker.
const DefaultTermOverlapBoost = 0.1

// TermOverlapReranker boosts items whose text overlaps with the query terms.
// It combines term coverage, term frequency, and phrase matching into a single
// relevance feature and adds BoostFactor*relevance to the fused score, then
// re-sorts. Items are never dropped. BoostFactor is used as-is: the zero value
// disables reranking (Rerank is then an identity permutation); use
// NewTermOverlapReranker for the library default.
type TermOverlapReranker struct {
	BoostFactor float64
}

// NewTermOverlapReranker returns a TermOverlapReranker configured with
// DefaultTermOverlapBoost. Construct TermOverlapReranker{} directly for a
// reranker that is explicitly disabled.
func NewTermOverlapReranker() TermOverlapReranker {
	return TermOverlapReranker{BoostFactor: DefaultTermOverlapBoost}
}

var rerankStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "about": true, "what": true, "when": true,
	"where": true, "why": true, "how": true, "who": true, "which": true,
	"that": true, "this": true, "these": true, "those": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "can": true, "could": true, "should": true, "would": true,
	"will": true,
}

func extractQueryTerms(query string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(query) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	var terms []string
	for _, w := range strings.Fields(b.String()) {
		if len(w) > 2 && !rerankStopwords[w] {
			terms = append(terms, w)
		}
	}
	return terms
}

func (r TermOverlapReranker) calculateRelevance(terms []string, text string) float64 {
	if len(terms) == 0 {
		return 0
	}
	content := strings.ToLower(text)
	termMatches, totalMatches := 0, 0
	for _, t := range terms {
		c := strings.Count(content, t)
		if c > 0 {
			termMatches++
			totalMatches += c
		}
	}
	hasPhrase := 0.0
	if len(terms) > 1 && strings.Contains(content, strings.Join(terms, " ")) {
		hasPhrase = 1
	}
	wordCount := len(strings.Fields(content))
	if wordCount == 0 {
		wordCount = 1
	}
	termCoverage := float64(termMatches) / float64(len(terms))
	termFrequency := float64(totalMatches) / float64(wordCount)
	return 0.5*termCoverage + 0.3*termFrequency + 0.2*hasPhrase
}

// Rerank adds BoostFactor*relevance to each item's Score and re-sorts
// descending by the adjusted score, using a stable sort so a zero BoostFactor
// (or an empty query, which yields zero relevance for every item) leaves the
// input order untouched.
func (r TermOverlapReranker) Rerank(_ context.Context, query string, items []RetrievedItem) ([]RetrievedItem, error) {
	if len(items) == 0 {
		return items, nil
	}
	terms := extractQueryTerms(query)
	out := make([]RetrievedItem, len(items))
	copy(out, items)
	for i := range out {
		rel := r.calculateRelevance(terms, out[i].Text)
		out[i].Score = out[i].Score + r.BoostFactor*rel
		if out[i].Explanation == nil {
			out[i].Explanation = map[string]any{}
		}
		out[i].Explanation["rerank_relevance"] = rel
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

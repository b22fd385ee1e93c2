package query

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
)

// Retriever is the subset of service.Service used by the enhanced retriever.
// Defined here rather than imported to avoid a service<->query import cycle.
type Retriever interface {
	Retrieve(ctx context.Context, q string, opt retrieve.RetrieveOptions) (retrieve.RetrieveResponse, error)
}

// EnhancedRetriever runs a query through up to four retrieval passes
// (original, synonym-expanded, entity-focused, authority-weighted), then
// deduplicates, reranks by query-aware relevance, and selects a diverse
// final set of chunks.
type EnhancedRetriever struct {
	base Retriever
}

// NewEnhancedRetriever wraps a base Retriever with multi-pass query analysis.
func NewEnhancedRetriever(base Retriever) *EnhancedRetriever {
	return &EnhancedRetriever{base: base}
}

// Search runs up to four retrieval passes (original, synonym-expanded,
// entity-focused, authority-weighted) concurrently via fan-out/fan-in, then
// deduplicates, reranks, and selects a diverse final set of chunks. The
// passes' results are merged in pass order (not completion order) so that
// "first occurrence wins" dedup stays deterministic regardless of which
// goroutine finishes first. On failure of the first (original) pass, the
// error is returned; failures of later passes are treated as empty results,
// since the original pass already has results to fall back on.
func (e *EnhancedRetriever) Search(ctx context.Context, q string, opt retrieve.RetrieveOptions) ([]retrieve.RetrievedItem, Analysis, error) {
	analysis := Analyze(q)

	type pass struct {
		query  string
		active bool
	}
	passes := make([]pass, 4)
	passes[0] = pass{query: q, active: true}
	if expanded := analysis.ExpandedQuery(q); expanded != q {
		passes[1] = pass{query: expanded, active: true}
	}
	if entityQ := analysis.EntityQuery(); entityQ != "" {
		passes[2] = pass{query: entityQ, active: true}
	}
	if analysis.NeedsAuthorityPass(q) {
		passes[3] = pass{query: analysis.AuthorityQuery(q), active: true}
	}

	results := make([][]retrieve.RetrievedItem, len(passes))
	group, gctx := errgroup.WithContext(ctx)
	for i, p := range passes {
		if !p.active {
			continue
		}
		i, p := i, p
		group.Go(func() error {
			resp, err := e.base.Retrieve(gctx, p.query, opt)
			if err != nil {
				if i == 0 {
					return err
				}
				return nil
			}
			results[i] = resp.Items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, analysis, err
	}

	var all []retrieve.RetrievedItem
	for _, r := range results {
		all = append(all, r...)
	}

	unique := deduplicate(all)
	reranked := intelligentRerank(unique, analysis)

	k := opt.K
	if k <= 0 {
		k = 10
	}
	return selectDiverseChunks(reranked, k), analysis, nil
}

// deduplicate removes repeated hits keyed on item ID (doc+chunk-index are
// already encoded into RetrievedItem.ID by the upstream indexer).
func deduplicate(items []retrieve.RetrievedItem) []retrieve.RetrievedItem {
	seen := make(map[string]bool, len(items))
	out := make([]retrieve.RetrievedItem, 0, len(items))
	for _, it := range items {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		out = append(out, it)
	}
	return out
}

// intelligentRerank adjusts each item's score with bonuses tied to the query
// analysis (authority match, entity mentions, intent-specific vocabulary)
// and a penalty for very short chunks, then sorts descending.
func intelligentRerank(items []retrieve.RetrievedItem, analysis Analysis) []retrieve.RetrievedItem {
	scored := make([]retrieve.RetrievedItem, len(items))
	copy(scored, items)

	for i := range scored {
		content := strings.ToLower(scored[i].Text)
		bonus := 0.0

		if analysis.AuthorityLevel == "official" && containsAny(content, AuthorityIndicators["high"]) {
			bonus += 0.3
		}

		entityMatches := 0
		for _, e := range analysis.Entities {
			if strings.Contains(content, e) {
				entityMatches++
			}
		}
		bonus += float64(entityMatches) * 0.2

		switch analysis.Intent {
		case "position":
			if containsAny(content, []string{"position", "stance", "policy", "approach"}) {
				bonus += 0.25
			}
		case "factual":
			if containsAny(content, []string{"act", "regulation", "law", "bill"}) {
				bonus += 0.25
			}
		}

		if len(scored[i].Text) < 200 {
			bonus -= 0.1
		}

		scored[i].Score += bonus
	}

	sortByScoreDesc(scored)
	return scored
}

func sortByScoreDesc(items []retrieve.RetrievedItem) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].Score > items[j-1].Score; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// selectDiverseChunks greedily fills up to topK results while capping at 2
// chunks per document and 3 per speaker, then backfills with whatever
// remains if the constraints left the set short.
func selectDiverseChunks(items []retrieve.RetrievedItem, topK int) []retrieve.RetrievedItem {
	if len(items) == 0 {
		return nil
	}

	selected := make([]retrieve.RetrievedItem, 0, topK)
	skipped := make([]retrieve.RetrievedItem, 0)

	docCount := map[string]int{}
	speakerCount := map[string]int{}

	for _, it := range items {
		if len(selected) >= topK {
			break
		}
		if docCount[it.DocID] >= 2 || speakerCount[it.Doc.Speaker] >= 3 {
			skipped = append(skipped, it)
			continue
		}
		selected = append(selected, it)
		docCount[it.DocID]++
		speakerCount[it.Doc.Speaker]++
	}

	if len(selected) < topK {
		need := topK - len(selected)
		if need > len(skipped) {
			need = len(skipped)
		}
		selected = append(selected, skipped[:need]...)
	}

	return selected
}

package retrieve

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
)

// SourceDiagnostics carries per-source retrieval timings and counts.
type SourceDiagnostics struct {
	FtLatency  time.Duration
	VecLatency time.Duration
	FtCount    int
	VecCount   int
}

// chunkSearcher is implemented by backends that can search pre-computed
// chunk records directly, rather than falling back to whole-document search.
type chunkSearcher interface {
	SearchChunks(ctx context.Context, query string, lang string, limit int, filter map[string]string) ([]databases.SearchResult, error)
}

// ParallelCandidates queries FTS and vector stores in parallel according to
// the plan, using errgroup so that request-deadline cancellation aborts
// both in-flight passes together. It returns the raw candidates from each
// source and diagnostics.
func ParallelCandidates(ctx context.Context, search databases.FullTextSearch, vector databases.VectorStore, plan QueryPlan, embVec []float32) (fts []databases.SearchResult, vrs []databases.VectorResult, diag SourceDiagnostics, err error) {
	group, gctx := errgroup.WithContext(ctx)
	var ftDur, vecDur time.Duration

	if plan.FtK > 0 && search != nil {
		group.Go(func() error {
			t0 := time.Now()
			var e error
			if cs, ok := search.(chunkSearcher); ok {
				fts, e = cs.SearchChunks(gctx, plan.Query, plan.Lang, plan.FtK, plan.Filters)
			} else {
				fts, e = search.Search(gctx, plan.Query, plan.FtK)
			}
			ftDur = time.Since(t0)
			return e
		})
	}

	if plan.VecK > 0 && vector != nil && len(embVec) > 0 {
		group.Go(func() error {
			t0 := time.Now()
			var e error
			vrs, e = vector.SimilaritySearch(gctx, embVec, plan.VecK, plan.Filters)
			vecDur = time.Since(t0)
			return e
		})
	}

	if err := group.Wait(); err != nil {
		return nil, nil, SourceDiagnostics{}, err
	}
	diag = SourceDiagnostics{FtLatency: ftDur, VecLatency: vecDur, FtCount: len(fts), VecCount: len(vrs)}
	return fts, vrs, diag, nil
}

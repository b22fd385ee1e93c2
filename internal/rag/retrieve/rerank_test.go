package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTermOverlapReranker_BoostsCoverageFrequencyAndPhraseMatches(t *testing.T) {
	items := []RetrievedItem{
		{ID: "low", Score: 1.0, Text: "the minister spoke about fisheries policy"},
		{ID: "high", Score: 1.0, Text: "seabed mining regulation seabed mining regulation reform"},
	}
	r := NewTermOverlapReranker()
	out, err := r.Rerank(context.Background(), "seabed mining regulation", items)
	require.NoError(t, err)
	require.Equal(t, "high", out[0].ID, "the item with dense, repeated, phrase-matching term overlap should rank first")
	require.Greater(t, out[0].Score, out[1].Score)
	require.Contains(t, out[0].Explanation, "rerank_relevance")
}

func TestTermOverlapReranker_ZeroBoostFactorIsIdentityPermutation(t *testing.T) {
	items := []RetrievedItem{
		{ID: "a", Score: 0.9, Text: "seabed mining regulation"},
		{ID: "b", Score: 0.5, Text: "unrelated text about fisheries"},
	}
	r := TermOverlapReranker{BoostFactor: 0}
	out, err := r.Rerank(context.Background(), "seabed mining regulation", items)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, []string{out[0].ID, out[1].ID})
	require.Equal(t, items[0].Score, out[0].Score)
	require.Equal(t, items[1].Score, out[1].Score)
}

func TestNewTermOverlapReranker_UsesDefaultBoost(t *testing.T) {
	r := NewTermOverlapReranker()
	require.Equal(t, DefaultTermOverlapBoost, r.BoostFactor)
}

func TestTermOverlapReranker_EmptyQueryLeavesItemsUnchanged(t *testing.T) {
	items := []RetrievedItem{
		{ID: "a", Score: 0.9, Text: "seabed mining regulation"},
		{ID: "b", Score: 0.5, Text: "fisheries policy"},
	}
	r := NewTermOverlapReranker()
	out, err := r.Rerank(context.Background(), "", items)
	require.NoError(t, err)
	require.Equal(t, items[0].Score, out[0].Score)
	require.Equal(t, items[1].Score, out[1].Score)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/jlkeet/pacific-hansard-rag/internal/persistence/databases"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/generate"
	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
)

type stubGenerator struct {
	lastPrompt string
	answer     string
}

func (g *stubGenerator) Generate(_ context.Context, p string) (generate.Result, error) {
	g.lastPrompt = p
	return generate.Result{Answer: g.answer, ModelUsed: "stub-model", GenerationTime: time.Millisecond}, nil
}

func TestAsk_BuildsPromptFromRetrievedSourcesAndReturnsAnswer(t *testing.T) {
	mgr := databases.Manager{Search: databases.NewMemorySearch(), Vector: databases.NewMemoryVector()}
	gen := &stubGenerator{answer: "The minister confirmed the policy [#0]."}
	s := New(mgr, WithGenerator(gen))

	ctx := context.Background()
	_ = mgr.Search.Index(ctx, "chunk:doc:1:0", "the minister discussed seabed mining regulation", map[string]string{
		"type": "chunk", "doc_id": "doc:1", "tenant": "t1", "lang": "english", "speaker": "HON. JANE DOE",
	})

	resp, err := s.Ask(ctx, "What is the government's position on seabed mining?", retrieve.RetrieveOptions{K: 5, Tenant: "t1"})
	if err != nil {
		t.Fatalf("ask error: %v", err)
	}
	if resp.Answer != gen.answer {
		t.Fatalf("expected stubbed answer passthrough, got %q", resp.Answer)
	}
	if resp.ModelUsed != "stub-model" {
		t.Fatalf("expected model used recorded, got %q", resp.ModelUsed)
	}
	if gen.lastPrompt == "" {
		t.Fatalf("expected a prompt to have been built and sent to the generator")
	}
}

func TestAsk_ReturnsErrorWithoutGenerator(t *testing.T) {
	mgr := databases.Manager{Search: databases.NewMemorySearch(), Vector: databases.NewMemoryVector()}
	s := New(mgr)
	_, err := s.Ask(context.Background(), "anything", retrieve.RetrieveOptions{K: 1})
	if err != ErrNoGenerator {
		t.Fatalf("expected ErrNoGenerator, got %v", err)
	}
}

func TestAsk_CapsSourcesAtThreeRegardlessOfContextSize(t *testing.T) {
	mgr := databases.Manager{Search: databases.NewMemorySearch(), Vector: databases.NewMemoryVector()}
	gen := &stubGenerator{answer: "Several ministers weighed in."}
	s := New(mgr, WithGenerator(gen))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_ = mgr.Search.Index(ctx, "chunk:doc:1:"+string(rune('0'+i)), "the minister discussed seabed mining regulation in depth", map[string]string{
			"type": "chunk", "doc_id": "doc:1", "tenant": "t1", "lang": "english",
		})
	}

	resp, err := s.Ask(ctx, "seabed mining regulation", retrieve.RetrieveOptions{K: 5, Tenant: "t1"})
	if err != nil {
		t.Fatalf("ask error: %v", err)
	}
	if len(resp.Sources) > sourceCitationLimit {
		t.Fatalf("expected at most %d sources, got %d", sourceCitationLimit, len(resp.Sources))
	}
}

func TestAsk_ReturnsCanonicalAnswerWhenRetrievalEmpty(t *testing.T) {
	mgr := databases.Manager{Search: databases.NewMemorySearch(), Vector: databases.NewMemoryVector()}
	gen := &stubGenerator{answer: "should not be called"}
	s := New(mgr, WithGenerator(gen))

	resp, err := s.Ask(context.Background(), "a question with no matching chunks anywhere", retrieve.RetrieveOptions{K: 5})
	if err != nil {
		t.Fatalf("ask error: %v", err)
	}
	if resp.Answer != noRelevantInformation {
		t.Fatalf("expected canonical not-found answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %d", len(resp.Sources))
	}
}

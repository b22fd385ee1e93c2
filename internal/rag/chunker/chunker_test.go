package chunker

import (
	"strings"
	"testing"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/ingest"
)

func genText(words int) string {
	var b strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("word")
	}
	return b.String()
}

func TestFixedChunk_SizeToleranceAndOverlap(t *testing.T) {
	text := genText(2000) // ~8000 chars
	ch := SimpleChunker{}
	opt := ingest.ChunkingOptions{Strategy: "fixed", MaxTokens: 200, Overlap: 10}
	chunks, err := ch.Chunk(text, opt)
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatalf("expected some chunks")
	}
	tgt := 200 * 4
	tolLow, tolHigh := int(float64(tgt)*0.9), int(float64(tgt)*1.1)
	for i, c := range chunks {
		if i == len(chunks)-1 {
			break
		}
		if l := len(c.Text); !(l >= tolLow && l <= tolHigh) {
			t.Fatalf("chunk %d length %d out of tolerance [%d,%d]", i, l, tolLow, tolHigh)
		}
	}
}

func TestMarkdownChunk_PreservesHeadings(t *testing.T) {
	text := "# Title\n\npara1 text here.\n\n## Sub\n\npara2 text here."
	ch := SimpleChunker{}
	// Small target to force multiple chunks
	chunks, err := ch.Chunk(text, ingest.ChunkingOptions{Strategy: "md", MaxTokens: 10})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected >=2 chunks, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "# Title") {
		t.Fatalf("first chunk should contain heading: %q", chunks[0].Text)
	}
}

func TestCodeChunk_RarelySplitsFunctions(t *testing.T) {
	text := "package x\n\n// comment\n\nfunc A() {}\n\nfunc B() {}\n\nfunc C() {}\n"
	ch := SimpleChunker{}
	chunks, err := ch.Chunk(text, ingest.ChunkingOptions{Strategy: "code", MaxTokens: 4})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks")
	}
	// Heuristic: each chunk should contain whole functions when possible
	for _, c := range chunks {
		if strings.Count(c.Text, "func ") > 1 {
			t.Fatalf("chunk should not contain many functions: %q", c.Text)
		}
	}
}

func TestHansardChunk_SplitsOnTopicTransition(t *testing.T) {
	first := "HON. JOHN SMITH: I rise to speak about the budget allocation for this fiscal year, covering revenue and tax matters in detail across several sentences of economic discussion about trade and industry development that benefits our community. " + genText(80)
	second := "MS. JANE DOE: Moving to a completely different topic, I want to raise the matter of marine conservation and the protection of our coral reefs from pollution caused by seabed mining operations nearby. " + genText(40)
	text := first + "\n\n" + second

	ch := SimpleChunker{}
	chunks, err := ch.Chunk(text, ingest.ChunkingOptions{})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a topic-transition split, got %d chunk(s)", len(chunks))
	}
	if chunks[0].Speaker != "HON. JOHN SMITH" {
		t.Fatalf("expected speaker HON. JOHN SMITH, got %q", chunks[0].Speaker)
	}
	if chunks[1].Speaker != "MS. JANE DOE" {
		t.Fatalf("expected speaker MS. JANE DOE, got %q", chunks[1].Speaker)
	}
}

func TestHansardChunk_ForceSplitsOversizedChunk(t *testing.T) {
	text := genText(3000) // single paragraph, no natural break, well over tolerance
	ch := SimpleChunker{}
	chunks, err := ch.Chunk(text, ingest.ChunkingOptions{})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected oversized text to be force-split, got %d chunk(s)", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > int(float64(maxChars)*forceSplitTolerance) {
			t.Fatalf("chunk %d exceeds tolerance: %d chars", i, len(c.Text))
		}
	}
}

func TestHansardChunk_PreservesOverlapOnSizeSplit(t *testing.T) {
	para1 := "HON. A SPEAKER: " + genText(900) // ~4500 chars, one paragraph
	para2 := "Continuing the same discussion with related economic and budget themes. " + genText(200)
	text := para1 + "\n\n" + para2

	ch := SimpleChunker{}
	chunks, err := ch.Chunk(text, ingest.ChunkingOptions{})
	if err != nil {
		t.Fatalf("chunk error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a size-based split, got %d chunk(s)", len(chunks))
	}
	if !strings.HasPrefix(chunks[1].Text, "word") {
		t.Fatalf("expected second chunk to open with an overlap from the first, got %.60q", chunks[1].Text)
	}
}

package prompt

import (
	"strings"
	"testing"
)

func TestBuildContext_NumbersCitationsAndIncludesMetadata(t *testing.T) {
	chunks := []ContextChunk{
		{Speaker: "HON. JANE DOE", Date: "2024-03-01", Country: "Fiji", Text: "We must act on this."},
		{Speaker: "Unknown", Date: "Unknown", Country: "Unknown", Text: "Further remarks."},
	}
	ctx := BuildContext(chunks)
	if !strings.Contains(ctx, "[#0] Speaker: HON. JANE DOE | Date: 2024-03-01 | Country: Fiji") {
		t.Fatalf("expected citation header for chunk 0, got: %s", ctx)
	}
	if !strings.Contains(ctx, "[#1]") {
		t.Fatalf("expected citation header for chunk 1, got: %s", ctx)
	}
}

func TestBuildPrompt_IncludesQuestionAndContext(t *testing.T) {
	chunks := []ContextChunk{{Speaker: "A", Date: "D", Country: "C", Text: "body text"}}
	p := BuildPrompt("What happened?", chunks)
	if !strings.Contains(p, "RESEARCH QUESTION: What happened?") {
		t.Fatalf("expected question embedded in prompt")
	}
	if !strings.Contains(p, "body text") {
		t.Fatalf("expected context text embedded in prompt")
	}
}

func TestPostProcessAnswer_StripsThinkTagsAndCJK(t *testing.T) {
	raw := "<think>internal reasoning</think>Answer text 你好 with citation [#0]."
	out := PostProcessAnswer(raw)
	if strings.Contains(out, "<think>") || strings.Contains(out, "internal reasoning") {
		t.Fatalf("expected think tags stripped, got: %q", out)
	}
	if strings.ContainsAny(out, "你好") {
		t.Fatalf("expected CJK characters stripped, got: %q", out)
	}
	if !strings.Contains(out, "[#0]") {
		t.Fatalf("expected citation preserved, got: %q", out)
	}
}

func TestPostProcessAnswer_FlagsSuspiciousUncitedHallucination(t *testing.T) {
	raw := "The government announced a new education grant boarding grant program for all students."
	out := PostProcessAnswer(raw)
	if out != noContextFallback {
		t.Fatalf("expected hallucination fallback, got: %q", out)
	}
}

func TestPostProcessAnswer_AppendsNoteWhenCitationMissing(t *testing.T) {
	raw := strings.Repeat("This is a substantial answer without any citation markers at all. ", 2)
	out := PostProcessAnswer(raw)
	if !strings.Contains(out, "[Note: Please refer to the source excerpts for verification]") {
		t.Fatalf("expected citation-missing note appended, got: %q", out)
	}
}

func TestPostProcessAnswer_LeavesCitedAnswerUnchanged(t *testing.T) {
	raw := "The minister confirmed the policy [#0] and opposition disagreed [#1]."
	out := PostProcessAnswer(raw)
	if out != raw {
		t.Fatalf("expected cited answer to pass through unchanged, got: %q", out)
	}
}

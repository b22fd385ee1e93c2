// Package prompt builds the structured parliamentary-analysis prompt sent
// to the answer-generation backend, and post-processes its raw output.
package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/retrieve"
)

// ContextChunk is the minimal view of a retrieved chunk the prompt builder
// needs; callers adapt retrieve.RetrievedItem into this shape.
type ContextChunk struct {
	Speaker string
	Date    string
	Country string
	Text    string
}

// FromRetrievedItems adapts retrieval results into prompt context chunks,
// defaulting unset citation fields to "Unknown" the way the source records
// have always rendered missing metadata.
func FromRetrievedItems(items []retrieve.RetrievedItem) []ContextChunk {
	out := make([]ContextChunk, len(items))
	for i, it := range items {
		out[i] = ContextChunk{
			Speaker: orUnknown(it.Doc.Speaker),
			Date:    orUnknown(it.Doc.Date),
			Country: orUnknown(it.Doc.Country),
			Text:    it.Text,
		}
	}
	return out
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

// BuildContext renders numbered citation blocks ("[#0] Speaker: ... | Date:
// ... | Country: ...\n<text>") joined by blank lines, matching the citation
// markers ("[#N]") the prompt instructs the model to use.
func BuildContext(chunks []ContextChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[#%d] Speaker: %s | Date: %s | Country: %s\n%s", i, c.Speaker, c.Date, c.Country, c.Text)
	}
	return strings.Join(parts, "\n\n")
}

// BuildPrompt assembles the full research-assistant prompt for a question
// and its retrieved context.
func BuildPrompt(question string, chunks []ContextChunk) string {
	context := BuildContext(chunks)
	var b strings.Builder
	b.WriteString("You are an expert parliamentary research assistant specializing in Pacific Island democracies. ")
	b.WriteString("Your expertise includes parliamentary procedures, policy analysis, government positions, and political context across Cook Islands, Fiji, and other Pacific nations.\n\n")
	fmt.Fprintf(&b, "RESEARCH QUESTION: %s\n\n", question)
	b.WriteString(`RELEVANCE CHECK: Before providing analysis, determine if the Parliamentary Sources below contain information relevant to the research question. If the sources do NOT address the question topic, respond with:

"No Relevant Information Found

The parliamentary records searched do not contain specific information about [topic from question]. The available sources discuss [brief 1-sentence summary of what sources actually contain], but do not address the question asked.

Please try rephrasing your question or asking about topics that are covered in the Pacific parliamentary records."

Only proceed with full analysis if the sources ARE relevant to the question.

`)
	fmt.Fprintf(&b, "PARLIAMENTARY SOURCES:\n%s\n\n", context)
	b.WriteString(`ANALYSIS METHODOLOGY:
1. EXTRACT KEY FACTS: Identify concrete facts, dates, votes, and official positions
2. ANALYZE PERSPECTIVES: Note government vs. opposition viewpoints, debates, disagreements
3. TRACK CHRONOLOGY: Understand policy evolution and timeline of events
4. CONTEXTUALIZE: Place statements within broader parliamentary and political context
5. VERIFY ATTRIBUTION: Ensure accuracy of who said what and when

RESPONSE FORMAT:
Executive Summary
[1-2 sentences answering the core question directly]

Key Findings
- [Main fact with citations [#X]]
- [Another key fact with citations [#X]]
- [Additional finding with citations [#X]]

Detailed Analysis
[In-depth discussion with evidence and context]

Perspectives & Debate
- Government position: [details with citations]
- Opposition response: [details with citations]
- Other viewpoints: [details with citations]

Status & Implications
- Current status: [what's happening now]
- Next steps: [what comes next]
- Significance: [why this matters]

PARLIAMENTARY EXPERTISE GUIDELINES:
- Distinguish between government statements, opposition responses, and neutral parliamentary processes
- Recognize parliamentary language (motions, readings, committees, standing orders)
- Understand Pacific Island political context and regional considerations
- Identify policy changes, legislative progress, and procedural matters
- Note voting patterns, party positions, and bipartisan agreements where relevant

CITATION REQUIREMENTS:
- Use [#0], [#1], [#2] etc. immediately after each specific claim
- Cite direct quotes with speaker attribution
- Reference specific parliamentary sessions and dates where mentioned
- Distinguish between direct quotes and paraphrased content

RESPONSE PRINCIPLES:
- Lead with actionable information for researchers and policymakers
- Be precise and concise while maintaining completeness
- Acknowledge limitations, gaps, or conflicting information
- Use clear headings and structure for easy scanning
- Focus on what parliamentarians actually said and decided

COMPREHENSIVE PARLIAMENTARY ANALYSIS:`)
	return b.String()
}

var (
	cjkRe       = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	thinkRe     = regexp.MustCompile(`(?s)<think>.*?</think>`)
	thinkingRe  = regexp.MustCompile(`(?s)<thinking>.*?</thinking>`)
	blankLineRe = regexp.MustCompile(`\n\s*\n`)
	controlRe   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

	suspiciousPatterns = []*regexp.Regexp{
		regexp.MustCompile(`education.*grant`),
		regexp.MustCompile(`fiji.*education`),
		regexp.MustCompile(`boarding.*grant`),
		regexp.MustCompile(`vat.*increase`),
	}
)

const (
	citationMissingNote = "\n\n[Note: Please refer to the source excerpts for verification]"
	noContextFallback   = "No relevant information found in the provided parliamentary records."
)

// PostProcessAnswer strips CJK characters, reasoning tags, and control
// characters other than tab, newline and carriage return, and collapses
// blank-line runs in the raw model output, then applies hallucination and
// citation-presence checks that decide whether to return the answer as-is,
// replace it with the no-context fallback, or append a citation-missing
// note.
func PostProcessAnswer(raw string) string {
	answer := cjkRe.ReplaceAllString(raw, "")
	answer = thinkRe.ReplaceAllString(answer, "")
	answer = thinkingRe.ReplaceAllString(answer, "")
	answer = controlRe.ReplaceAllString(answer, "")
	answer = blankLineRe.ReplaceAllString(answer, "\n\n")
	answer = strings.TrimSpace(answer)

	lower := strings.ToLower(answer)
	suspicious := false
	for _, re := range suspiciousPatterns {
		if re.MatchString(lower) {
			suspicious = true
			break
		}
	}
	hasCitation := strings.Contains(answer, "[#")

	if suspicious && !hasCitation {
		return noContextFallback
	}
	if !hasCitation && len(answer) > 50 {
		answer += citationMissingNote
	}
	return answer
}

package chunker

import (
	"regexp"
	"strings"

	"github.com/jlkeet/pacific-hansard-rag/internal/rag/ingest"
)

// Chunk represents a produced chunk of text.
type Chunk struct {
	Index   int
	Text    string
	Speaker string
}

// Chunker interface provides text chunking strategies.
type Chunker interface {
	Chunk(text string, opt ingest.ChunkingOptions) ([]Chunk, error)
}

// SimpleChunker implements multiple lightweight strategies based on options.
type SimpleChunker struct{}

const (
	maxChars            = 4000 // ~1000 tokens
	overlapChars        = 480  // ~120 tokens
	topicMinLen         = 500  // minimum current-chunk length before a topic transition splits it
	forceSplitTolerance = 1.5
)

// Chunk splits text into chunks using strategy hints in options. The
// "hansard" strategy (the default) is paragraph-based with topic-transition
// and speaker-change detection, falling back to sentence-based splitting for
// single-paragraph input and a character-count safety net for oversized
// chunks. Other strategy names retain the generic fixed/markdown/code
// splitters for non-transcript content.
func (SimpleChunker) Chunk(text string, opt ingest.ChunkingOptions) ([]Chunk, error) {
	switch strings.ToLower(opt.Strategy) {
	case "fixed", "tokens":
		return fixedChunk(text, opt), nil
	case "markdown", "md":
		return markdownChunk(text, opt), nil
	case "code":
		return codeChunk(text, opt), nil
	default:
		return hansardChunk(text), nil
	}
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// hansardChunk implements the paragraph/topic-transition chunking strategy
// used for parliamentary transcripts, with a sentence-based fallback for
// single-paragraph input and a character-count force split as a safety net.
func hansardChunk(text string) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	var chunks []Chunk
	paragraphs := splitParagraphs(text)
	if len(paragraphs) > 1 {
		chunks = chunkByParagraph(paragraphs)
	} else {
		normalized := whitespaceRe.ReplaceAllString(trimmed, " ")
		chunks = chunkBySentence(normalized)
	}

	final := make([]Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Text) > int(float64(maxChars)*forceSplitTolerance) {
			final = append(final, forceSplitChunk(c.Text)...)
		} else {
			final = append(final, c)
		}
	}
	for i := range final {
		final[i].Index = i
		final[i].Speaker = extractLeadingSpeaker(final[i].Text)
	}
	return final
}

// splitParagraphs splits on blank lines in the original (non-normalized) text
// so paragraph boundaries survive whitespace collapsing.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		p = whitespaceRe.ReplaceAllString(strings.TrimSpace(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func chunkByParagraph(paragraphs []string) []Chunk {
	var chunks []Chunk
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, Chunk{Text: s})
		}
		current.Reset()
	}

	for i, p := range paragraphs {
		prev := ""
		if i > 0 {
			prev = paragraphs[i-1]
		}
		isTopicBreak := isTopicTransition(p, prev)

		var test string
		if current.Len() > 0 {
			test = current.String() + "\n\n" + p
		} else {
			test = p
		}
		sizeExceeded := len(test) > maxChars && current.Len() > 0
		topicSplit := isTopicBreak && current.Len() > topicMinLen

		switch {
		case topicSplit:
			flush()
			current.WriteString(p)
		case sizeExceeded:
			priorText := current.String()
			flush()
			overlap := textOverlap(priorText, overlapChars)
			if overlap != "" {
				current.WriteString(overlap)
				current.WriteString("\n\n")
			}
			current.WriteString(p)
		default:
			current.Reset()
			current.WriteString(test)
		}
	}
	flush()
	return chunks
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)

func chunkBySentence(content string) []Chunk {
	idxs := sentenceSplitRe.FindAllStringIndex(content, -1)
	var sentences []string
	last := 0
	for _, m := range idxs {
		sentences = append(sentences, content[last:m[0]+1])
		last = m[1]
	}
	if last < len(content) {
		sentences = append(sentences, content[last:])
	}

	var chunks []Chunk
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, Chunk{Text: s})
		}
		current.Reset()
	}
	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		var test string
		if current.Len() > 0 {
			test = current.String() + " " + sentence
		} else {
			test = sentence
		}
		if len(test) > maxChars && current.Len() > 0 {
			priorText := current.String()
			flush()
			overlap := textOverlap(priorText, overlapChars)
			if overlap != "" {
				current.WriteString(overlap)
				current.WriteString(" ")
			}
			current.WriteString(sentence)
		} else {
			current.Reset()
			current.WriteString(test)
		}
	}
	flush()
	return chunks
}

// textOverlap returns up to n trailing characters of text, snapped back to a
// word boundary so overlap never splits a word in half.
func textOverlap(text string, n int) string {
	if len(text) <= n {
		return text
	}
	words := strings.Fields(text)
	var out string
	for i := len(words) - 1; i >= 0; i-- {
		var test string
		if out != "" {
			test = words[i] + " " + out
		} else {
			test = words[i]
		}
		if len(test) > n {
			break
		}
		out = test
	}
	return out
}

// forceSplitChunk breaks an oversized chunk into maxChars windows with
// word-boundary snapping and overlap, as a last-resort safety net.
func forceSplitChunk(content string) []Chunk {
	var out []Chunk
	start := 0
	for start < len(content) {
		end := start + maxChars
		if end > len(content) {
			end = len(content)
		} else {
			for i := end; i > start && i > end-100; i-- {
				if content[i-1] == ' ' {
					end = i
					break
				}
			}
		}
		piece := strings.TrimSpace(content[start:end])
		if piece != "" {
			out = append(out, Chunk{Text: piece})
		}
		if end == len(content) {
			break
		}
		next := end - overlapChars
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

var topicSignals = []string{
	"moving to a completely different topic",
	"moving to another topic",
	"turning to a different matter",
	"in other business",
	"moving on to",
	"next item on the agenda",
	"another matter",
	"different subject",
	"separate issue",
	"unrelated matter",
}

var speakerLineRe = regexp.MustCompile(`(?i)^(mr\.|ms\.|mrs\.|dr\.|hon\.|the\s+speaker|minister)`)
var capsSpeakerLineRe = regexp.MustCompile(`^[A-Z][A-Z\s]+:`)

var topicKeywords = map[string]bool{
	"environment": true, "environmental": true, "climate": true, "conservation": true, "pollution": true,
	"seabed": true, "mining": true, "ocean": true, "marine": true, "fishing": true, "coral": true, "reef": true,
	"law": true, "legal": true, "regulation": true, "clause": true, "section": true, "act": true, "bill": true,
	"nuclear": true, "waste": true, "radioactive": true, "transport": true, "offence": true,
	"economy": true, "economic": true, "trade": true, "business": true, "industry": true, "development": true,
	"budget": true, "finance": true, "revenue": true, "tax": true, "vat": true,
	"education": true, "health": true, "housing": true, "employment": true, "social": true, "community": true,
	"grant": true, "scholarship": true, "boarding": true, "school": true,
	"government": true, "parliament": true, "minister": true, "committee": true, "vote": true, "policy": true,
}

// isTopicTransition reports whether current is likely to start a new topic
// relative to previous: an explicit transition phrase, a speaker-line
// opening, or zero keyword overlap between two keyword-bearing paragraphs.
func isTopicTransition(current, previous string) bool {
	if previous == "" {
		return false
	}
	lower := strings.ToLower(current)
	for _, signal := range topicSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	if speakerLineRe.MatchString(current) || capsSpeakerLineRe.MatchString(current) {
		return true
	}
	curTopics := extractTopicKeywords(current)
	prevTopics := extractTopicKeywords(previous)
	if len(curTopics) >= 2 && len(prevTopics) > 0 {
		overlap := 0
		for k := range curTopics {
			if prevTopics[k] {
				overlap++
			}
		}
		if overlap == 0 {
			return true
		}
	}
	return false
}

func extractTopicKeywords(text string) map[string]bool {
	lower := strings.ToLower(text)
	found := map[string]bool{}
	for kw := range topicKeywords {
		if strings.Contains(lower, kw) {
			found[kw] = true
		}
	}
	return found
}

var speakerPrefixRe = regexp.MustCompile(`(?i)^\s*((?:MR\.|MS\.|MRS\.|HON\.|DR\.|MADAM|SIR)\s+[A-Z][A-Za-z\s\-\.]*?):`)

// extractLeadingSpeaker pulls a speaker name off the start of a chunk when it
// opens with a recognized Hansard speaker prefix (e.g. "HON. JANE DOE:").
func extractLeadingSpeaker(text string) string {
	m := speakerPrefixRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func targetLen(opt ingest.ChunkingOptions) int {
	n := opt.MaxTokens
	if n <= 0 {
		n = 512
	}
	return n * 4
}

// fixedChunk makes contiguous chunks of target size with optional overlap.
// Retained for non-transcript content that doesn't benefit from topic-aware
// splitting.
func fixedChunk(text string, opt ingest.ChunkingOptions) []Chunk {
	tgt := targetLen(opt)
	if tgt < 32 {
		tgt = 32
	}
	ov := opt.Overlap
	if ov < 0 {
		ov = 0
	}
	ovChars := ov * 4
	var out []Chunk
	start := 0
	idx := 0
	for start < len(text) {
		end := start + tgt
		if end > len(text) {
			end = len(text)
		} else if i := strings.LastIndex(text[start:end], " "); i > tgt/2 {
			end = start + i
		}
		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			out = append(out, Chunk{Index: idx, Text: chunk})
			idx++
		}
		if end == len(text) {
			break
		}
		next := end - ovChars
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// markdownChunk prefers splitting on headings and paragraph breaks and
// preserves headings as chunk boundaries.
func markdownChunk(text string, opt ingest.ChunkingOptions) []Chunk {
	tgt := targetLen(opt)
	lines := strings.Split(text, "\n")
	var out []Chunk
	var buf strings.Builder
	idx := 0
	writeFlush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, Chunk{Index: idx, Text: s})
			idx++
			buf.Reset()
		}
	}
	for i, ln := range lines {
		isHeading := strings.HasPrefix(ln, "#")
		isParaBreak := strings.TrimSpace(ln) == "" && i+1 < len(lines) && strings.TrimSpace(lines[i+1]) != ""
		if isHeading && buf.Len() > 0 {
			writeFlush()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(ln)
		if (isHeading || isParaBreak) && buf.Len() >= tgt {
			writeFlush()
		}
	}
	writeFlush()
	return out
}

var codeSplitRe = regexp.MustCompile(`(?m)^\s*(func |class |def |//)`)

// codeChunk attempts to respect function/class boundaries and comments.
func codeChunk(text string, opt ingest.ChunkingOptions) []Chunk {
	tgt := targetLen(opt)
	lines := strings.Split(text, "\n")
	var out []Chunk
	var buf strings.Builder
	idx := 0
	for i, ln := range lines {
		if codeSplitRe.MatchString(ln) && buf.Len() > 0 && buf.Len()+len(ln)+1 > tgt {
			out = append(out, Chunk{Index: idx, Text: strings.TrimRight(buf.String(), "\n")})
			idx++
			buf.Reset()
		}
		buf.WriteString(ln)
		if i < len(lines)-1 {
			buf.WriteString("\n")
		}
	}
	if s := strings.TrimSpace(buf.String()); s != "" {
		out = append(out, Chunk{Index: idx, Text: s})
	}
	return out
}

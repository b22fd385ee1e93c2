// Package query analyzes user queries to guide multi-pass retrieval: intent
// classification, entity/topic extraction, and term expansion tuned to
// parliamentary transcript vocabulary.
package query

import "strings"

// Analysis captures what a query is asking for, used to steer expansion,
// entity-focused and authority-weighted retrieval passes.
type Analysis struct {
	Intent         string // position, timeline, comparison, factual, general
	Entities       []string
	Topics         []string
	TimeIndicators []string
	AuthorityLevel string // official, discussion, any
	ExpandedTerms  []string
}

// termExpansions maps a canonical entity to its synonyms and related terms.
var termExpansions = map[string][]string{
	"stance":        {"position", "policy", "view", "opinion", "approach"},
	"government":    {"administration", "cabinet", "minister", "ministry", "official"},
	"seabed mining": {"deep sea mining", "ocean mining", "seabed minerals", "marine mining", "nodule mining"},
	"exploration":   {"prospecting", "survey", "investigation", "research", "study"},
	"regulation":    {"law", "legislation", "rule", "policy", "framework", "governance"},
	"license":       {"permit", "authorization", "approval", "certificate"},
	"environment":   {"environmental", "ecology", "marine", "ocean", "conservation"},
	"economy":       {"economic", "financial", "revenue", "income", "development"},
}

// entityOrder keeps entity detection deterministic across map iteration.
var entityOrder = []string{
	"stance", "government", "seabed mining", "exploration", "regulation", "license", "environment", "economy",
}

var topicPatterns = map[string][]string{
	"mining":        {"mining", "extraction", "seabed", "minerals"},
	"environment":   {"environment", "marine", "ocean", "conservation"},
	"economy":       {"economy", "economic", "financial", "revenue"},
	"governance":    {"government", "policy", "regulation", "law"},
	"international": {"china", "cooperation", "agreement", "treaty"},
}

var topicOrder = []string{"mining", "environment", "economy", "governance", "international"}

var timePatterns = []string{"recent", "latest", "current", "now", "today", "this year", "last year"}

// AuthorityIndicators groups phrases by the authority weight they carry.
var AuthorityIndicators = map[string][]string{
	"high":   {"prime minister", "minister", "government", "cabinet", "official statement"},
	"medium": {"member of parliament", "mp", "honorable", "speaker"},
	"low":    {"committee", "discussion", "debate", "question"},
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// Analyze inspects a raw query string and returns the signals later
// retrieval passes act on.
func Analyze(q string) Analysis {
	lower := strings.ToLower(q)

	intent := "general"
	switch {
	case containsAny(lower, []string{"stance", "position", "policy", "view", "approach"}):
		intent = "position"
	case containsAny(lower, []string{"when", "date", "time", "recent", "latest"}):
		intent = "timeline"
	case containsAny(lower, []string{"compare", "difference", "versus", "vs"}):
		intent = "comparison"
	case containsAny(lower, []string{"what", "how", "why", "explain"}):
		intent = "factual"
	}

	var entities []string
	for _, term := range entityOrder {
		synonyms := termExpansions[term]
		if strings.Contains(lower, term) || containsAny(lower, synonyms) {
			entities = append(entities, term)
		}
	}

	var topics []string
	for _, topic := range topicOrder {
		if containsAny(lower, topicPatterns[topic]) {
			topics = append(topics, topic)
		}
	}

	var timeIndicators []string
	for _, p := range timePatterns {
		if strings.Contains(lower, p) {
			timeIndicators = append(timeIndicators, p)
		}
	}

	authorityLevel := "any"
	switch {
	case containsAny(lower, []string{"government", "official", "minister", "policy"}):
		authorityLevel = "official"
	case containsAny(lower, []string{"discussion", "debate", "opinion"}):
		authorityLevel = "discussion"
	}

	var expandedTerms []string
	for _, e := range entities {
		expandedTerms = append(expandedTerms, termExpansions[e]...)
	}

	return Analysis{
		Intent:         intent,
		Entities:       entities,
		Topics:         topics,
		TimeIndicators: timeIndicators,
		AuthorityLevel: authorityLevel,
		ExpandedTerms:  expandedTerms,
	}
}

// ExpandedQuery builds the query text for the synonym-expansion retrieval
// pass: the original query plus up to 3 expanded terms and any
// topic-specific boosters.
func (a Analysis) ExpandedQuery(original string) string {
	q := original
	if len(a.ExpandedTerms) > 0 {
		top := a.ExpandedTerms
		if len(top) > 3 {
			top = top[:3]
		}
		q += " " + strings.Join(top, " ")
	}
	for _, t := range a.Topics {
		switch t {
		case "mining":
			q += " exploration license regulation"
		case "governance":
			q += " government minister policy"
		}
	}
	return q
}

// EntityQuery builds the query text for the entity-focused retrieval pass.
// Returns "" when the analysis found no entities, signaling the pass should
// be skipped.
func (a Analysis) EntityQuery() string {
	if len(a.Entities) == 0 {
		return ""
	}
	return strings.Join(a.Entities, " ")
}

// NeedsAuthorityPass reports whether the query warrants the
// authority-weighted retrieval pass (position/policy questions).
func (a Analysis) NeedsAuthorityPass(original string) bool {
	return a.Intent == "position" || strings.Contains(strings.ToLower(original), "stance")
}

// AuthorityQuery builds the query text for the authority-weighted pass.
func (a Analysis) AuthorityQuery(original string) string {
	terms := AuthorityIndicators["medium"]
	if a.AuthorityLevel == "official" {
		terms = AuthorityIndicators["high"]
	}
	if len(terms) > 2 {
		terms = terms[:2]
	}
	return original + " " + strings.Join(terms, " ")
}

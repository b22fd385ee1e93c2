package query

import "testing"

func TestAnalyze_DetectsPositionIntentAndEntities(t *testing.T) {
	a := Analyze("What is the government's stance on seabed mining regulation?")
	if a.Intent != "position" {
		t.Fatalf("expected position intent, got %s", a.Intent)
	}
	if a.AuthorityLevel != "official" {
		t.Fatalf("expected official authority level, got %s", a.AuthorityLevel)
	}
	found := map[string]bool{}
	for _, e := range a.Entities {
		found[e] = true
	}
	if !found["government"] || !found["seabed mining"] || !found["regulation"] {
		t.Fatalf("expected government/seabed mining/regulation entities, got %v", a.Entities)
	}
}

func TestAnalyze_DetectsTimelineIntent(t *testing.T) {
	a := Analyze("When was the latest amendment passed?")
	if a.Intent != "timeline" {
		t.Fatalf("expected timeline intent, got %s", a.Intent)
	}
	if len(a.TimeIndicators) == 0 {
		t.Fatalf("expected time indicators to be detected")
	}
}

func TestExpandedQuery_AddsTopExpansionsAndTopicBoosters(t *testing.T) {
	a := Analyze("seabed mining exploration license")
	q := a.ExpandedQuery("seabed mining exploration license")
	if q == "seabed mining exploration license" {
		t.Fatalf("expected expanded query to grow, got unchanged: %q", q)
	}
}

func TestNeedsAuthorityPass_TriggersOnPositionIntentOrStanceKeyword(t *testing.T) {
	a := Analyze("what is their stance on the budget")
	if !a.NeedsAuthorityPass("what is their stance on the budget") {
		t.Fatalf("expected authority pass to trigger on stance keyword")
	}
}

package analysis

import (
	"reflect"
	"testing"
)

func TestParseAnalysisDataDefaults(t *testing.T) {
	result := ParseAnalysisData(map[string]any{})

	if result.SuggestedStatus != StatusNotAttempted {
		t.Fatalf("expected NotAttempted, got %q", result.SuggestedStatus)
	}
	if result.Confidence != defaultConfidence {
		t.Fatalf("expected default confidence, got %v", result.Confidence)
	}
	if result.Assessment != "" {
		t.Fatalf("expected empty assessment, got %q", result.Assessment)
	}
	if result.Observations == nil || len(result.Observations) != 0 {
		t.Fatalf("expected empty observations slice, got %#v", result.Observations)
	}
	if result.Recommendations == nil || len(result.Recommendations) != 0 {
		t.Fatalf("expected empty recommendations slice, got %#v", result.Recommendations)
	}
	if result.PersonaSpecific.Fields == nil {
		t.Fatalf("expected non-nil persona fields")
	}
}

func TestParseAnalysisDataAcceptsBothKeySpellings(t *testing.T) {
	snake := ParseAnalysisData(map[string]any{"suggested_status": "Pass"})
	camel := ParseAnalysisData(map[string]any{"suggestedStatus": "Pass"})
	if snake.SuggestedStatus != StatusPass || camel.SuggestedStatus != StatusPass {
		t.Fatalf("expected Pass for both spellings, got %q and %q", snake.SuggestedStatus, camel.SuggestedStatus)
	}
}

func TestParseAnalysisDataExplicitZeroConfidence(t *testing.T) {
	result := ParseAnalysisData(map[string]any{"confidence": float64(0)})
	if result.Confidence != 0 {
		t.Fatalf("explicit zero must not fall back to default, got %v", result.Confidence)
	}
}

func TestParseAnalysisDataFiltersNonStringItems(t *testing.T) {
	result := ParseAnalysisData(map[string]any{
		"observations": []any{"a", 7, "b", nil},
	})
	if !reflect.DeepEqual(result.Observations, []string{"a", "b"}) {
		t.Fatalf("unexpected observations: %#v", result.Observations)
	}
}

func TestParseAnalysisDataPersonaSpecific(t *testing.T) {
	result := ParseAnalysisData(map[string]any{
		"persona_specific": map[string]any{
			"persona":        "Advisor",
			"remediationEta": "30d",
		},
	})
	if result.PersonaSpecific.Persona != PersonaAdvisor {
		t.Fatalf("expected Advisor, got %q", result.PersonaSpecific.Persona)
	}
	if result.PersonaSpecific.Fields["remediationEta"] != "30d" {
		t.Fatalf("unexpected fields: %#v", result.PersonaSpecific.Fields)
	}
}

func TestParseAnalysisDataIdempotent(t *testing.T) {
	first := ParseAnalysisData(map[string]any{
		"assessment":       "Evidence covers rotation policy.",
		"suggested_status": "ContinualImprovement",
		"confidence":       0.82,
		"observations":     []any{"policy found"},
		"recommendations":  []any{"add review cadence"},
		"persona_specific": map[string]any{"persona": "Auditor", "citations": []any{"s4.2"}},
	})
	second := ParseAnalysisData(first.Payload())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("re-parse changed result:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

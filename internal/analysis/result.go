package analysis

import "strconv"

// Status is the assessment outcome suggested by the model.
type Status string

const (
	StatusPass                 Status = "Pass"
	StatusFail                 Status = "Fail"
	StatusContinualImprovement Status = "ContinualImprovement"
	StatusNotAttempted         Status = "NotAttempted"
)

// Persona identifies which reviewer profile requested the assessment.
type Persona string

const (
	PersonaAuditor Persona = "Auditor"
	PersonaAdvisor Persona = "Advisor"
	PersonaAnalyst Persona = "Analyst"
)

const defaultConfidence = 0.5

// PersonaData is the persona-dependent portion of a result. The three personas
// never populate overlapping fields, so the payload stays opaque to this
// package and is passed through keyed by the persona tag.
type PersonaData struct {
	Persona Persona        `json:"persona,omitempty"`
	Fields  map[string]any `json:"fields"`
}

// Result is the terminal structured outcome of one assessment run. At most one
// Result exists per session, and it never changes once set.
type Result struct {
	Assessment      string      `json:"assessment"`
	SuggestedStatus Status      `json:"suggestedStatus"`
	Confidence      float64     `json:"confidence"`
	Observations    []string    `json:"observations"`
	Recommendations []string    `json:"recommendations"`
	PersonaSpecific PersonaData `json:"personaSpecific"`
}

// ParseAnalysisData normalizes a raw result payload. Every field has a
// defined default, and key spellings are accepted in both snake_case and
// camelCase since upstream models have emitted both. Parsing is idempotent:
// feeding a Result's own Payload back through yields an equal Result.
func ParseAnalysisData(payload map[string]any) Result {
	result := Result{
		Assessment:      asString(payload["assessment"]),
		SuggestedStatus: StatusNotAttempted,
		Confidence:      defaultConfidence,
		Observations:    asStringSlice(payload["observations"]),
		Recommendations: asStringSlice(payload["recommendations"]),
		PersonaSpecific: PersonaData{Fields: map[string]any{}},
	}

	if v, ok := firstPresent(payload, "suggested_status", "suggestedStatus"); ok {
		if s := asString(v); s != "" {
			result.SuggestedStatus = Status(s)
		}
	}
	if v, ok := payload["confidence"]; ok {
		result.Confidence = asFloat(v, defaultConfidence)
	}
	if v, ok := firstPresent(payload, "persona_specific", "personaSpecific"); ok {
		result.PersonaSpecific = parsePersonaData(v)
	}
	return result
}

// Payload renders the result back into the map form ParseAnalysisData accepts.
func (r Result) Payload() map[string]any {
	persona := map[string]any{"fields": r.PersonaSpecific.Fields}
	if r.PersonaSpecific.Persona != "" {
		persona["persona"] = string(r.PersonaSpecific.Persona)
	}
	return map[string]any{
		"assessment":       r.Assessment,
		"suggested_status": string(r.SuggestedStatus),
		"confidence":       r.Confidence,
		"observations":     anySlice(r.Observations),
		"recommendations":  anySlice(r.Recommendations),
		"persona_specific": persona,
	}
}

func parsePersonaData(v any) PersonaData {
	data := PersonaData{Fields: map[string]any{}}
	m := asMap(v)
	if m == nil {
		return data
	}
	if nested := asMap(m["fields"]); nested != nil {
		// Already in normalized form.
		data.Persona = Persona(asString(m["persona"]))
		data.Fields = nested
		return data
	}
	for k, fv := range m {
		if k == "persona" {
			data.Persona = Persona(asString(fv))
			continue
		}
		data.Fields[k] = fv
	}
	return data
}

func firstPresent(payload map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := payload[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		if parsed, err := strconv.ParseFloat(n, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func asStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func anySlice(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

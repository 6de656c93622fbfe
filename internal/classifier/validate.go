package classifier

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/xaenox/jobpost-bot/internal/models"
)

// FormatError reports classifier output that could not be used as is.
type FormatError struct {
	Raw    string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed classifier output: %s", e.Reason)
}

// ParseResponse turns raw model output into a well-formed Classification.
// It never fails hard: malformed input degrades to not_hiring with every
// attribute missing, and the returned *FormatError describes why.
func ParseResponse(raw string) (models.Classification, error) {
	cleaned := stripCodeFence(raw)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return models.NotHiring(), &FormatError{Raw: raw, Reason: fmt.Sprintf("invalid JSON object: %v", err)}
	}

	rawIntent, ok := payload["intent"]
	if !ok {
		return models.NotHiring(), &FormatError{Raw: raw, Reason: "missing 'intent' field"}
	}
	var intent string
	if err := json.Unmarshal(rawIntent, &intent); err != nil {
		return models.NotHiring(), &FormatError{Raw: raw, Reason: "'intent' is not a string"}
	}

	rawEntities, ok := payload["entities"]
	if !ok {
		return models.NotHiring(), &FormatError{Raw: raw, Reason: "missing 'entities' field"}
	}
	var fields map[string]any
	if err := json.Unmarshal(rawEntities, &fields); err != nil || fields == nil {
		return models.NotHiring(), &FormatError{Raw: raw, Reason: "'entities' is not an object"}
	}

	var entities models.Entities
	for _, attr := range models.AttributeOrder {
		if s, ok := fields[string(attr)].(string); ok {
			entities.Set(attr, s)
		}
	}

	return models.Classification{
		Intent:   models.Intent(strings.TrimSpace(intent)),
		Entities: entities,
	}, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var (
	titleKeywords = []string{
		"developer", "engineer", "programmer", "architect", "lead", "manager",
		"frontend", "backend", "fullstack", "full stack", "ui", "ux", "designer",
		"devops", "data", "analyst", "scientist", "qa", "tester",
	}
	jobTypeKeywords   = []string{"full-time", "full time", "part-time", "part time", "contract", "freelance", "remote"}
	experiencePattern = regexp.MustCompile(`\d+\s*years?|junior|senior|mid|level|entry|experienced`)
	locationNoise     = []string{"skills:", "experience:", "job_type:"}
)

// CleanEntities drops attribute values that look like extraction noise:
// titles without a recognizable role, experience without years or
// seniority, boilerplate skills, unknown employment types and locations
// that swallowed other attributes.
func CleanEntities(e models.Entities) models.Entities {
	out := e.Clone()

	if v, ok := out.Get(models.AttrJobTitle); ok && !containsAny(strings.ToLower(v), titleKeywords) {
		out.Clear(models.AttrJobTitle)
	}
	if v, ok := out.Get(models.AttrExperience); ok && !experiencePattern.MatchString(strings.ToLower(v)) {
		out.Clear(models.AttrExperience)
	}
	if v, ok := out.Get(models.AttrSkills); ok && (len(v) <= 3 || strings.HasPrefix(strings.ToLower(v), "i need")) {
		out.Clear(models.AttrSkills)
	}
	if v, ok := out.Get(models.AttrJobType); ok && !containsAny(strings.ToLower(v), jobTypeKeywords) {
		out.Clear(models.AttrJobType)
	}
	if v, ok := out.Get(models.AttrLocation); ok && (len(v) <= 2 || containsAny(strings.ToLower(v), locationNoise)) {
		out.Clear(models.AttrLocation)
	}

	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Package pipeline produces the augmented and analysis record streams the
// audit consumes: it fills missing fields with placeholders and scores each
// incident's completeness.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Fields every incident is expected to carry at the top level.
var requiredFields = []string{"incident_id", "title", "details"}

const defaultMissingFieldPenalty = 0.1

// Weights tunes completeness scoring.
type Weights struct {
	MissingFieldPenalty float64 `json:"missing_field_penalty" yaml:"missing_field_penalty"`
}

// DefaultWeights returns the stock scoring weights.
func DefaultWeights() Weights {
	return Weights{MissingFieldPenalty: defaultMissingFieldPenalty}
}

// LoadWeights reads a JSON weights file. A missing path yields defaults.
func LoadWeights(path string) (Weights, error) {
	w := DefaultWeights()
	if strings.TrimSpace(path) == "" {
		return w, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return w, err
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return w, fmt.Errorf("parse weights %s: %w", path, err)
	}
	if w.MissingFieldPenalty <= 0 {
		w.MissingFieldPenalty = defaultMissingFieldPenalty
	}
	return w, nil
}

// Analysis is the quality metadata emitted alongside each augmented payload.
type Analysis struct {
	SourceIndex       int               `json:"source_index"`
	MissingFields     []string          `json:"missing_fields"`
	PlaceholdersAdded map[string]string `json:"placeholders_added"`
	CompletenessScore float64           `json:"completeness_score"`
}

// Analyze augments a single payload: required fields and empty top-level
// values get "<MISSING: key>" placeholders, and the completeness score drops
// by the configured penalty per missing field, floored at zero.
func Analyze(payload map[string]interface{}, w Weights) (map[string]interface{}, Analysis) {
	aug := make(map[string]interface{}, len(payload)+len(requiredFields))
	for k, v := range payload {
		aug[k] = v
	}
	analysis := Analysis{
		MissingFields:     []string{},
		PlaceholdersAdded: map[string]string{},
	}

	addPlaceholder := func(key string) {
		placeholder := fmt.Sprintf("<MISSING: %s>", key)
		aug[key] = placeholder
		analysis.PlaceholdersAdded[key] = placeholder
		for _, existing := range analysis.MissingFields {
			if existing == key {
				return
			}
		}
		analysis.MissingFields = append(analysis.MissingFields, key)
	}

	for _, key := range requiredFields {
		if isEmpty(aug[key]) {
			addPlaceholder(key)
		}
	}

	var keys []string
	for k := range aug {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if isEmpty(aug[k]) {
			addPlaceholder(k)
		}
	}

	penalty := w.MissingFieldPenalty
	if penalty <= 0 {
		penalty = defaultMissingFieldPenalty
	}
	score := 1.0 - float64(len(analysis.MissingFields))*penalty
	if score < 0 {
		score = 0
	}
	analysis.CompletenessScore = score
	return aug, analysis
}

func isEmpty(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/use-agent/fraudlens/models"
)

// Reply is the tagged outcome of decoding an oracle reply: either Ok with
// Value set, or Malformed with the reason.
type Reply[T any] struct {
	Value     T
	Malformed error
}

// Ok reports whether the reply matched the schema.
func (r Reply[T]) Ok() bool { return r.Malformed == nil }

func malformed[T any](format string, args ...any) Reply[T] {
	return Reply[T]{Malformed: fmt.Errorf("%w: "+format, append([]any{ErrMalformedReply}, args...)...)}
}

// assessmentWire is the oracle's assessment reply as sent.
type assessmentWire struct {
	RiskScore    json.RawMessage `json:"riskScore"`
	RiskLevel    json.RawMessage `json:"riskLevel"`
	FraudTypes   json.RawMessage `json:"fraudTypes"`
	Indicators   json.RawMessage `json:"indicators"`
	SafetyAdvice json.RawMessage `json:"safetyAdvice"`
}

// DecodeAssessment validates an assessment reply. Missing fields take zero
// values (score 0, empty lists, level Undetermined); the score is clamped to
// [0, 100] and blank list entries are dropped. A reply that is not a JSON
// object, or whose fields have the wrong shape, is Malformed.
func DecodeAssessment(raw []byte) Reply[models.RiskAssessment] {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return malformed[models.RiskAssessment]("expected a JSON object")
	}
	var w assessmentWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return malformed[models.RiskAssessment]("%v", err)
	}

	score, ok := decodeNumber(w.RiskScore)
	if !ok {
		return malformed[models.RiskAssessment]("riskScore is not a number")
	}
	level, ok := decodeString(w.RiskLevel)
	if !ok {
		return malformed[models.RiskAssessment]("riskLevel is not a string")
	}
	fraudTypes, ok := decodeStringList(w.FraudTypes)
	if !ok {
		return malformed[models.RiskAssessment]("fraudTypes is not a list")
	}
	indicators, ok := decodeStringList(w.Indicators)
	if !ok {
		return malformed[models.RiskAssessment]("indicators is not a list")
	}
	advice, ok := decodeStringList(w.SafetyAdvice)
	if !ok {
		return malformed[models.RiskAssessment]("safetyAdvice is not a list")
	}

	return Reply[models.RiskAssessment]{Value: models.RiskAssessment{
		RiskScore:    models.ClampPercent(score),
		RiskLevel:    canonicalLevel(level),
		FraudTypes:   fraudTypes,
		Indicators:   indicators,
		SafetyAdvice: advice,
	}}
}

// regionWire is one marker as sent by the oracle.
type regionWire struct {
	Top         json.RawMessage `json:"top"`
	Left        json.RawMessage `json:"left"`
	Width       json.RawMessage `json:"width"`
	Height      json.RawMessage `json:"height"`
	Label       string          `json:"label"`
	Description string          `json:"description"`
}

// DecodeRegions validates a region reply. It accepts a bare array or an
// object with a "markers" array. Elements without numeric geometry are
// dropped and coordinates are clamped to [0, 100]. Anything else, including
// an object without "markers", is Malformed.
func DecodeRegions(raw []byte) Reply[[]models.SuspiciousRegion] {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return malformed[[]models.SuspiciousRegion]("empty reply")
	}

	var elems []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &elems); err != nil {
			return malformed[[]models.SuspiciousRegion]("%v", err)
		}
	case '{':
		var obj struct {
			Markers json.RawMessage `json:"markers"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return malformed[[]models.SuspiciousRegion]("%v", err)
		}
		m := bytes.TrimSpace(obj.Markers)
		if len(m) == 0 || m[0] != '[' {
			return malformed[[]models.SuspiciousRegion]("object has no markers list")
		}
		if err := json.Unmarshal(m, &elems); err != nil {
			return malformed[[]models.SuspiciousRegion]("%v", err)
		}
	default:
		return malformed[[]models.SuspiciousRegion]("expected an array or object")
	}

	regions := make([]models.SuspiciousRegion, 0, len(elems))
	for _, e := range elems {
		var w regionWire
		if err := json.Unmarshal(e, &w); err != nil {
			continue
		}
		top, ok1 := decodeRequiredNumber(w.Top)
		left, ok2 := decodeRequiredNumber(w.Left)
		width, ok3 := decodeRequiredNumber(w.Width)
		height, ok4 := decodeRequiredNumber(w.Height)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		label := strings.TrimSpace(w.Label)
		if label == "" {
			label = strings.TrimSpace(w.Description)
		}
		if label == "" {
			label = genericLabel
		}
		regions = append(regions, models.NewRegion(top, left, width, height, label))
	}
	return Reply[[]models.SuspiciousRegion]{Value: regions}
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

// decodeNumber accepts a JSON number or a numeric string. Absent is 0.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, true
	}
	return decodeRequiredNumber(raw)
}

func decodeRequiredNumber(raw json.RawMessage) (float64, bool) {
	if isNull(raw) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(s), "%"), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if isNull(raw) {
		return "", true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return strings.TrimSpace(s), true
}

// decodeStringList keeps the non-blank string entries of a JSON array.
func decodeStringList(raw json.RawMessage) ([]string, bool) {
	out := []string{}
	if isNull(raw) {
		return out, true
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}
	for _, it := range items {
		if s, ok := it.(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out, true
}

var knownLevels = []string{
	models.RiskSafe, models.RiskLow, models.RiskMedium, models.RiskHigh, models.RiskCritical,
}

// canonicalLevel fixes the case of known levels and keeps anything else
// verbatim. Empty becomes Undetermined.
func canonicalLevel(level string) string {
	if level == "" {
		return models.RiskUndetermined
	}
	for _, l := range knownLevels {
		if strings.EqualFold(level, l) {
			return l
		}
	}
	return level
}

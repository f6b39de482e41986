package thought

import (
	"encoding/json"
	"math"
	"strings"
)

// Canonical input field names.
const (
	FieldContent                 = "content"
	FieldThoughtNumber           = "thoughtNumber"
	FieldTotalThoughtsEstimate   = "totalThoughtsEstimate"
	FieldNextNeeded              = "nextNeeded"
	FieldIsRevision              = "isRevision"
	FieldRevisesThoughtNumber    = "revisesThoughtNumber"
	FieldBranchFromThoughtNumber = "branchFromThoughtNumber"
	FieldBranchID                = "branchId"
	FieldNeedsMoreThoughts       = "needsMoreThoughts"
)

// aliases maps canonical names to the names older clients send.
var aliases = map[string]string{
	FieldContent:                 "thought",
	FieldTotalThoughtsEstimate:   "totalThoughts",
	FieldNextNeeded:              "nextThoughtNeeded",
	FieldRevisesThoughtNumber:    "revisesThought",
	FieldBranchFromThoughtNumber: "branchFromThought",
}

// Validate converts a raw key-value payload into a Record. It has no side
// effects; the returned error is always an *Error.
func Validate(raw map[string]any) (Record, error) {
	var rec Record

	content, ok := lookup(raw, FieldContent)
	if !ok {
		return Record{}, newError(KindMissingField, FieldContent, "required")
	}
	s, isString := content.(string)
	if !isString || strings.TrimSpace(s) == "" {
		return Record{}, newError(KindMissingField, FieldContent, "must be a non-empty string")
	}
	rec.Content = s

	var err error
	if rec.ThoughtNumber, err = requiredInt(raw, FieldThoughtNumber); err != nil {
		return Record{}, err
	}
	if rec.TotalThoughtsEstimate, err = requiredInt(raw, FieldTotalThoughtsEstimate); err != nil {
		return Record{}, err
	}

	next, ok := lookup(raw, FieldNextNeeded)
	if !ok {
		return Record{}, newError(KindMissingField, FieldNextNeeded, "required")
	}
	if rec.NextNeeded, ok = next.(bool); !ok {
		return Record{}, newError(KindMissingField, FieldNextNeeded, "must be a boolean")
	}

	if v, ok := lookup(raw, FieldNeedsMoreThoughts); ok {
		b, isBool := v.(bool)
		if !isBool {
			return Record{}, newError(KindMissingField, FieldNeedsMoreThoughts, "must be a boolean")
		}
		rec.NeedsMoreThoughts = &b
	}

	if err := validateRevision(raw, &rec); err != nil {
		return Record{}, err
	}
	if err := validateBranch(raw, &rec); err != nil {
		return Record{}, err
	}

	if rec.TotalThoughtsEstimate < rec.ThoughtNumber {
		rec.TotalThoughtsEstimate = rec.ThoughtNumber
	}
	return rec, nil
}

func validateRevision(raw map[string]any, rec *Record) error {
	if v, ok := lookup(raw, FieldIsRevision); ok {
		b, isBool := v.(bool)
		if !isBool {
			return newError(KindInvalidRevision, FieldIsRevision, "must be a boolean")
		}
		rec.IsRevision = b
	}

	v, present := lookup(raw, FieldRevisesThoughtNumber)
	switch {
	case rec.IsRevision && !present:
		return newError(KindInvalidRevision, FieldRevisesThoughtNumber, "required when isRevision is true")
	case !rec.IsRevision && present:
		return newError(KindInvalidRevision, FieldRevisesThoughtNumber, "only allowed when isRevision is true")
	case !present:
		return nil
	}

	n, ok := asInt(v)
	if !ok || n < 1 {
		return newError(KindInvalidRevision, FieldRevisesThoughtNumber, "must be a positive integer")
	}
	rec.RevisesThoughtNumber = n
	return nil
}

func validateBranch(raw map[string]any, rec *Record) error {
	if v, ok := lookup(raw, FieldBranchID); ok {
		id, isString := v.(string)
		if !isString {
			return newError(KindInvalidBranch, FieldBranchID, "must be a string")
		}
		rec.BranchID = strings.TrimSpace(id)
	}

	v, ok := lookup(raw, FieldBranchFromThoughtNumber)
	if !ok {
		return nil
	}
	n, isInt := asInt(v)
	if !isInt || n < 1 {
		return newError(KindInvalidBranch, FieldBranchFromThoughtNumber, "must be a positive integer")
	}
	if rec.BranchID == "" {
		return newError(KindInvalidBranch, FieldBranchID, "required when branchFromThoughtNumber is set")
	}
	rec.BranchFromThoughtNumber = n
	return nil
}

// lookup returns the value under the canonical name, falling back to its
// alias. JSON null is treated as absent.
func lookup(raw map[string]any, field string) (any, bool) {
	if v, ok := raw[field]; ok && v != nil {
		return v, true
	}
	if alias, ok := aliases[field]; ok {
		if v, ok := raw[alias]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func requiredInt(raw map[string]any, field string) (int, error) {
	v, ok := lookup(raw, field)
	if !ok {
		return 0, newError(KindMissingField, field, "required")
	}
	if !isNumeric(v) {
		return 0, newError(KindMissingField, field, "must be a number")
	}
	n, ok := asInt(v)
	if !ok || n < 1 {
		return 0, newError(KindInvalidNumber, field, "must be a positive integer, got %v", v)
	}
	return n, nil
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	}
	return false
}

// maxNumber bounds every numeric field regardless of how it was encoded.
const maxNumber = math.MaxInt32

// asInt accepts any numeric representation that holds an exact integer
// within maxNumber.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return intInRange(int64(n))
	case int32:
		return intInRange(int64(n))
	case int64:
		return intInRange(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return intInRange(i)
		}
		if f, err := n.Float64(); err == nil {
			return floatToInt(f)
		}
	}
	return 0, false
}

func intInRange(n int64) (int, bool) {
	if n > maxNumber || n < -maxNumber {
		return 0, false
	}
	return int(n), true
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > maxNumber {
		return 0, false
	}
	return int(f), true
}

// Package thought implements the thought chain engine: validation of incoming
// reasoning steps, an append-only history with branch tracking, the chain
// operations built on top of it, and the trace renderer.
package thought

import "time"

// Record is one validated reasoning step. Records are immutable once stored.
type Record struct {
	Content                 string `json:"content"`
	ThoughtNumber           int    `json:"thoughtNumber"`
	TotalThoughtsEstimate   int    `json:"totalThoughtsEstimate"`
	NextNeeded              bool   `json:"nextNeeded"`
	IsRevision              bool   `json:"isRevision,omitempty"`
	RevisesThoughtNumber    int    `json:"revisesThoughtNumber,omitempty"`
	BranchFromThoughtNumber int    `json:"branchFromThoughtNumber,omitempty"`
	BranchID                string `json:"branchId,omitempty"`
	NeedsMoreThoughts       *bool  `json:"needsMoreThoughts,omitempty"`

	// Set by the History Store on append.
	Index      int       `json:"index"`
	RecordedAt time.Time `json:"recordedAt"`
}

// IsBranch reports whether the record belongs to a branch.
func (r Record) IsBranch() bool {
	return r.BranchID != ""
}

// IsBranchStart reports whether the record opens a branch off an earlier thought.
func (r Record) IsBranchStart() bool {
	return r.BranchID != "" && r.BranchFromThoughtNumber > 0
}

// clone returns a copy that shares no memory with r.
func (r Record) clone() Record {
	r.NeedsMoreThoughts = cloneBool(r.NeedsMoreThoughts)
	return r
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneRecords(recs []Record) []Record {
	if recs == nil {
		return nil
	}
	out := make([]Record, len(recs))
	for i, r := range recs {
		out[i] = r.clone()
	}
	return out
}

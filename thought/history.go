package thought

import (
	"sync"
	"time"
)

// History is the append-only thought log plus the branch index. It is safe
// for concurrent use; readers never observe a partially applied append.
type History struct {
	mu       sync.RWMutex
	records  []Record
	branches map[string][]Record
	order    []string // branch ids in first-seen order
	now      func() time.Time
}

// NewHistory returns an empty store.
func NewHistory() *History {
	return &History{
		branches: make(map[string][]Record),
		now:      time.Now,
	}
}

// Append stores rec at the end of the main log and, when it carries a branch
// id, at the end of that branch. It returns the new log size.
func (h *History) Append(rec Record) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.appendLocked(rec)
}

func (h *History) appendLocked(rec Record) int {
	rec = rec.clone()
	rec.Index = len(h.records)
	rec.RecordedAt = h.now()
	h.records = append(h.records, rec)

	if rec.BranchID != "" {
		if _, ok := h.branches[rec.BranchID]; !ok {
			h.order = append(h.order, rec.BranchID)
		}
		h.branches[rec.BranchID] = append(h.branches[rec.BranchID], rec.clone())
	}
	return len(h.records)
}

// Size returns the number of records in the log.
func (h *History) Size() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// BranchIDs returns every branch id in the order it was first seen.
func (h *History) BranchIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.order...)
}

// BranchLength returns how many records a branch holds.
func (h *History) BranchLength(id string) (int, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs, ok := h.branches[id]
	if !ok {
		return 0, newError(KindUnknownBranch, FieldBranchID, "no branch %q", id)
	}
	return len(recs), nil
}

// BranchRecords returns a copy of a branch's records in arrival order.
func (h *History) BranchRecords(id string) ([]Record, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	recs, ok := h.branches[id]
	if !ok {
		return nil, newError(KindUnknownBranch, FieldBranchID, "no branch %q", id)
	}
	return cloneRecords(recs), nil
}

// Snapshot is a point-in-time copy of the store.
type Snapshot struct {
	Records  []Record
	Branches map[string][]Record
	Order    []string
}

// Snapshot copies the store under the read lock.
func (h *History) Snapshot() Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	branches := make(map[string][]Record, len(h.branches))
	for id, recs := range h.branches {
		branches[id] = cloneRecords(recs)
	}
	return Snapshot{
		Records:  cloneRecords(h.records),
		Branches: branches,
		Order:    append([]string(nil), h.order...),
	}
}

package thought

import "time"

// ChainEntry is one logical step of the final chain.
type ChainEntry struct {
	Position int    `json:"position"`
	Revised  bool   `json:"revised"`
	Record   Record `json:"record"`
}

// BranchSummary describes one branch.
type BranchSummary struct {
	ID                string `json:"id"`
	FromThoughtNumber int    `json:"fromThoughtNumber,omitempty"`
	Count             int    `json:"count"`
}

// Summary is the digest returned by summarize_thoughts.
type Summary struct {
	SessionID       string          `json:"sessionId"`
	TotalCount      int             `json:"totalCount"`
	MainCount       int             `json:"mainCount"`
	RevisionCount   int             `json:"revisionCount"`
	PerBranchCounts map[string]int  `json:"perBranchCounts"`
	Branches        []BranchSummary `json:"branches"`
	FinalChain      []ChainEntry    `json:"finalChain"`
	LastNextNeeded  bool            `json:"lastNextNeeded"`
	IsComplete      bool            `json:"isComplete"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Status values reported by evaluate_conclusion.
const (
	StatusComplete   = "complete"
	StatusIncomplete = "incomplete"
)

// Evaluation is the completeness assessment returned by evaluate_conclusion.
type Evaluation struct {
	Status               string `json:"status"`
	RemainingEstimate    int    `json:"remainingEstimate"`
	ChainLength          int    `json:"chainLength"`
	HighestThoughtNumber int    `json:"highestThoughtNumber"`
	LatestEstimate       int    `json:"latestEstimate"`
	NeedsMoreThoughts    *bool  `json:"needsMoreThoughts,omitempty"`
}

func summarize(snap Snapshot) Summary {
	recs := snap.Records
	chain := finalChain(recs)

	s := Summary{
		TotalCount:      len(recs),
		PerBranchCounts: make(map[string]int, len(snap.Order)),
		Branches:        make([]BranchSummary, 0, len(snap.Order)),
		FinalChain:      chain,
		LastNextNeeded:  recs[len(recs)-1].NextNeeded,
	}
	for _, r := range recs {
		if r.IsRevision {
			s.RevisionCount++
		}
		if !r.IsBranch() {
			s.MainCount++
		}
	}
	for _, id := range snap.Order {
		branch := snap.Branches[id]
		bs := BranchSummary{ID: id, Count: len(branch)}
		for _, r := range branch {
			if r.BranchFromThoughtNumber > 0 {
				bs.FromThoughtNumber = r.BranchFromThoughtNumber
				break
			}
		}
		s.PerBranchCounts[id] = len(branch)
		s.Branches = append(s.Branches, bs)
	}
	s.IsComplete = evaluate(recs, chain).Status == StatusComplete
	return s
}

// finalChain projects the log onto the logical main chain: branch records are
// dropped and each thought number keeps one slot holding the record that
// arrived last for it, whether original or revision. A slot sits where its
// thought number first appeared, so an orphan revision takes the slot of its
// first arrival and a repeated original replaces the earlier one in place.
func finalChain(recs []Record) []ChainEntry {
	chain := make([]ChainEntry, 0, len(recs))
	slots := make(map[int]int)
	for _, r := range recs {
		if r.IsBranch() {
			continue
		}
		entry := ChainEntry{Position: r.ThoughtNumber, Record: r}
		if r.IsRevision {
			entry = ChainEntry{Position: r.RevisesThoughtNumber, Revised: true, Record: r}
		}
		if i, ok := slots[entry.Position]; ok {
			chain[i] = entry
			continue
		}
		slots[entry.Position] = len(chain)
		chain = append(chain, entry)
	}
	return chain
}

func evaluate(recs []Record, chain []ChainEntry) Evaluation {
	last := recs[len(recs)-1]
	ev := Evaluation{
		Status:            StatusIncomplete,
		ChainLength:       len(chain),
		LatestEstimate:    last.TotalThoughtsEstimate,
		NeedsMoreThoughts: cloneBool(last.NeedsMoreThoughts),
	}
	for _, r := range recs {
		if r.ThoughtNumber > ev.HighestThoughtNumber {
			ev.HighestThoughtNumber = r.ThoughtNumber
		}
	}
	if n := len(chain); n > 0 && !chain[n-1].Record.NextNeeded {
		ev.Status = StatusComplete
	}
	if rem := ev.LatestEstimate - ev.HighestThoughtNumber; rem > 0 {
		ev.RemainingEstimate = rem
	}
	return ev
}

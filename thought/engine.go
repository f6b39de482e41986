package thought

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Trace is one rendered thought handed to a Sink.
type Trace struct {
	SessionID string
	Record    Record
	Text      string
}

// Sink receives rendered traces. Emit must not block; the engine ignores any
// failure inside it.
type Sink interface {
	Emit(ctx context.Context, t Trace)
}

// EngineConfig holds engine settings.
type EngineConfig struct {
	SessionID    string // generated when empty
	DisableTrace bool   // suppress all trace emission
	TraceWidth   int    // rendered box width, DefaultWidth when zero
}

// Engine runs the chain operations over one History.
type Engine struct {
	mu        sync.Mutex
	history   *History
	sink      Sink
	renderer  *Renderer
	cfg       EngineConfig
	createdAt time.Time
	updatedAt time.Time
}

// NewEngine builds an engine over h. sink may be nil.
func NewEngine(h *History, sink Sink, cfg EngineConfig) *Engine {
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	now := time.Now()
	return &Engine{
		history:   h,
		sink:      sink,
		renderer:  NewRenderer(cfg.TraceWidth),
		cfg:       cfg,
		createdAt: now,
		updatedAt: now,
	}
}

// SessionID identifies this engine's history for the process lifetime.
func (e *Engine) SessionID() string { return e.cfg.SessionID }

// History returns the store the engine appends to.
func (e *Engine) History() *History { return e.history }

// Renderer returns the renderer used for traces.
func (e *Engine) Renderer() *Renderer { return e.renderer }

// TraceDisabled reports whether trace emission is suppressed.
func (e *Engine) TraceDisabled() bool { return e.cfg.DisableTrace }

// ThinkResult is the response to a processed thought.
type ThinkResult struct {
	ThoughtNumber           int      `json:"thoughtNumber"`
	TotalThoughtsEstimate   int      `json:"totalThoughtsEstimate"`
	NextNeeded              bool     `json:"nextNeeded"`
	BranchesActive          []string `json:"branchesActive"`
	HistoryLength           int      `json:"historyLength"`
	IsRevision              bool     `json:"isRevision,omitempty"`
	RevisesThoughtNumber    int      `json:"revisesThoughtNumber,omitempty"`
	BranchID                string   `json:"branchId,omitempty"`
	BranchFromThoughtNumber int      `json:"branchFromThoughtNumber,omitempty"`
	NeedsMoreThoughts       *bool    `json:"needsMoreThoughts,omitempty"`
}

// Think validates raw, appends it and emits its trace. Invalid input never
// reaches the history.
func (e *Engine) Think(ctx context.Context, raw map[string]any) (ThinkResult, error) {
	rec, err := Validate(raw)
	if err != nil {
		return ThinkResult{}, err
	}

	e.mu.Lock()
	size := e.history.Append(rec)
	branches := e.history.BranchIDs()
	e.updatedAt = time.Now()
	e.mu.Unlock()

	if branches == nil {
		branches = []string{}
	}
	e.emit(ctx, rec)

	return ThinkResult{
		ThoughtNumber:           rec.ThoughtNumber,
		TotalThoughtsEstimate:   rec.TotalThoughtsEstimate,
		NextNeeded:              rec.NextNeeded,
		BranchesActive:          branches,
		HistoryLength:           size,
		IsRevision:              rec.IsRevision,
		RevisesThoughtNumber:    rec.RevisesThoughtNumber,
		BranchID:                rec.BranchID,
		BranchFromThoughtNumber: rec.BranchFromThoughtNumber,
		NeedsMoreThoughts:       cloneBool(rec.NeedsMoreThoughts),
	}, nil
}

func (e *Engine) emit(ctx context.Context, rec Record) {
	if e.cfg.DisableTrace || e.sink == nil {
		return
	}
	defer func() { _ = recover() }()

	e.sink.Emit(ctx, Trace{
		SessionID: e.cfg.SessionID,
		Record:    rec,
		Text:      e.renderer.Render(rec, ContextFor(rec)),
	})
}

// Summarize digests the whole history.
func (e *Engine) Summarize() (Summary, error) {
	e.mu.Lock()
	snap := e.history.Snapshot()
	created, updated := e.createdAt, e.updatedAt
	e.mu.Unlock()

	if len(snap.Records) == 0 {
		return Summary{}, newError(KindEmptyHistory, "", "no thoughts recorded yet")
	}
	s := summarize(snap)
	s.SessionID = e.cfg.SessionID
	s.CreatedAt = created
	s.UpdatedAt = updated
	return s, nil
}

// Evaluate reports whether the final chain has concluded.
func (e *Engine) Evaluate() (Evaluation, error) {
	e.mu.Lock()
	snap := e.history.Snapshot()
	e.mu.Unlock()

	if len(snap.Records) == 0 {
		return Evaluation{}, newError(KindEmptyHistory, "", "no thoughts recorded yet")
	}
	return evaluate(snap.Records, finalChain(snap.Records)), nil
}

// Session is the full state exposed for inspection.
type Session struct {
	SessionID string              `json:"sessionId"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Thoughts  []Record            `json:"thoughts"`
	Branches  map[string][]Record `json:"branches"`
}

// Session returns a consistent copy of the session state.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := e.history.Snapshot()
	if snap.Records == nil {
		snap.Records = []Record{}
	}
	return Session{
		SessionID: e.cfg.SessionID,
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
		Thoughts:  snap.Records,
		Branches:  snap.Branches,
	}
}

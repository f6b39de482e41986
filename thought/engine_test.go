package thought

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	traces []Trace
}

func (s *recordingSink) Emit(_ context.Context, t Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = append(s.traces, t)
}

func (s *recordingSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.traces)
}

type panicSink struct{}

func (panicSink) Emit(context.Context, Trace) { panic("sink down") }

func step(content string, n, total int, next bool, kv ...any) map[string]any {
	return with(map[string]any{
		"content":               content,
		"thoughtNumber":         float64(n),
		"totalThoughtsEstimate": float64(total),
		"nextNeeded":            next,
	}, kv...)
}

func newTestEngine(sink Sink) *Engine {
	return NewEngine(NewHistory(), sink, EngineConfig{SessionID: "test-session"})
}

func TestEngine_Scenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	res, err := e.Think(ctx, step("step1", 1, 3, true))
	require.NoError(t, err)
	assert.Equal(t, 1, res.ThoughtNumber)
	assert.Equal(t, 3, res.TotalThoughtsEstimate)
	assert.True(t, res.NextNeeded)
	assert.Equal(t, 1, res.HistoryLength)
	assert.Equal(t, []string{}, res.BranchesActive)

	res, err = e.Think(ctx, step("step2", 2, 2, false))
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalThoughtsEstimate)
	assert.Equal(t, 2, res.HistoryLength)

	ev, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, ev.Status)
	assert.Equal(t, 0, ev.RemainingEstimate)
}

func TestEngine_InvalidInputLeavesHistoryUntouched(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(sink)

	_, err := e.Think(context.Background(), step("x", 1, 1, true, "isRevision", true))
	assert.ErrorIs(t, err, ErrInvalidRevision)
	assert.Equal(t, 0, e.History().Size())
	assert.Equal(t, 0, sink.len())
}

func TestEngine_EmptyHistory(t *testing.T) {
	e := newTestEngine(nil)

	_, err := e.Summarize()
	assert.ErrorIs(t, err, ErrEmptyHistory)

	_, err = e.Evaluate()
	assert.ErrorIs(t, err, ErrEmptyHistory)
}

func TestEngine_HistoryGrowsByOne(t *testing.T) {
	e := newTestEngine(nil)
	for i := 1; i <= 5; i++ {
		res, err := e.Think(context.Background(), step("s", i, 5, i < 5))
		require.NoError(t, err)
		assert.Equal(t, i, res.HistoryLength)
		assert.GreaterOrEqual(t, res.TotalThoughtsEstimate, res.ThoughtNumber)
	}
}

func TestEngine_Revision(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	for i, c := range []string{"one", "two", "three"} {
		_, err := e.Think(ctx, step(c, i+1, 4, true))
		require.NoError(t, err)
	}
	_, err := e.Think(ctx, step("three, revised", 4, 4, true, "isRevision", true, "revisesThoughtNumber", 3.0))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("three, revised again", 5, 5, false, "isRevision", true, "revisesThoughtNumber", 3.0))
	require.NoError(t, err)

	s, err := e.Summarize()
	require.NoError(t, err)
	require.Len(t, s.FinalChain, 3)
	assert.Equal(t, 3, s.FinalChain[2].Position)
	assert.True(t, s.FinalChain[2].Revised)
	assert.Equal(t, "three, revised again", s.FinalChain[2].Record.Content)
	assert.Equal(t, "one", s.FinalChain[0].Record.Content)
	assert.Equal(t, 2, s.RevisionCount)
	assert.Equal(t, 5, s.TotalCount)
	assert.False(t, s.LastNextNeeded)
	assert.True(t, s.IsComplete)
}

func TestEngine_OrphanRevisionTakesFirstSlot(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Think(ctx, step("one", 1, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("fix seven", 2, 3, true, "isRevision", true, "revisesThoughtNumber", 7.0))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two", 2, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("fix seven again", 3, 3, false, "isRevision", true, "revisesThoughtNumber", 7.0))
	require.NoError(t, err)

	s, err := e.Summarize()
	require.NoError(t, err)
	require.Len(t, s.FinalChain, 3)
	assert.Equal(t, 7, s.FinalChain[1].Position)
	assert.Equal(t, "fix seven again", s.FinalChain[1].Record.Content)
	assert.Equal(t, "two", s.FinalChain[2].Record.Content)
}

func TestEngine_OriginalAfterRevisionWins(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Think(ctx, step("one", 1, 2, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("early fix of two", 2, 2, true, "isRevision", true, "revisesThoughtNumber", 2.0))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two (arrived last)", 2, 2, false))
	require.NoError(t, err)

	s, err := e.Summarize()
	require.NoError(t, err)
	require.Len(t, s.FinalChain, 2)
	assert.Equal(t, 2, s.FinalChain[1].Position)
	assert.False(t, s.FinalChain[1].Revised)
	assert.Equal(t, "two (arrived last)", s.FinalChain[1].Record.Content)

	ev, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, ev.Status)
}

func TestEngine_RepeatedThoughtNumberKeepsOneSlot(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Think(ctx, step("one", 1, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two", 2, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two, retried", 2, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("fix", 3, 3, false, "isRevision", true, "revisesThoughtNumber", 2.0))
	require.NoError(t, err)

	s, err := e.Summarize()
	require.NoError(t, err)
	require.Len(t, s.FinalChain, 2)
	assert.Equal(t, "one", s.FinalChain[0].Record.Content)
	assert.Equal(t, 2, s.FinalChain[1].Position)
	assert.Equal(t, "fix", s.FinalChain[1].Record.Content)
	assert.Equal(t, 4, s.TotalCount)
}

func TestEngine_ResultsDoNotAliasHistory(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	res, err := e.Think(ctx, step("one", 1, 1, false, "needsMoreThoughts", true))
	require.NoError(t, err)
	*res.NeedsMoreThoughts = false

	ev, err := e.Evaluate()
	require.NoError(t, err)
	require.NotNil(t, ev.NeedsMoreThoughts)
	assert.True(t, *ev.NeedsMoreThoughts)
	*ev.NeedsMoreThoughts = false

	snap := e.History().Snapshot()
	*snap.Records[0].NeedsMoreThoughts = false

	s, err := e.Summarize()
	require.NoError(t, err)
	require.NotNil(t, s.FinalChain[0].Record.NeedsMoreThoughts)
	assert.True(t, *s.FinalChain[0].Record.NeedsMoreThoughts)
	assert.True(t, *e.Session().Thoughts[0].NeedsMoreThoughts)
}

func TestEngine_BranchIsolation(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Think(ctx, step("one", 1, 3, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two", 2, 3, true))
	require.NoError(t, err)
	res, err := e.Think(ctx, step("alt", 3, 3, false, "branchFromThoughtNumber", 2.0, "branchId", "B"))
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, res.BranchesActive)
	assert.Equal(t, "B", res.BranchID)

	s, err := e.Summarize()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"B": 1}, s.PerBranchCounts)
	require.Len(t, s.Branches, 1)
	assert.Equal(t, 2, s.Branches[0].FromThoughtNumber)
	require.Len(t, s.FinalChain, 2)
	for _, entry := range s.FinalChain {
		assert.NotEqual(t, "alt", entry.Record.Content)
	}

	// The last main-chain thought still wants more, regardless of the branch.
	ev, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, ev.Status)
	assert.Equal(t, 0, ev.RemainingEstimate)
}

func TestEngine_BranchOnlyHistoryIsIncomplete(t *testing.T) {
	e := newTestEngine(nil)
	_, err := e.Think(context.Background(), step("alt", 1, 1, false, "branchFromThoughtNumber", 1.0, "branchId", "B"))
	require.NoError(t, err)

	ev, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, ev.Status)
	assert.Equal(t, 0, ev.ChainLength)
}

func TestEngine_RemainingEstimate(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)

	_, err := e.Think(ctx, step("one", 1, 6, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("two", 2, 8, true, "needsMoreThoughts", true))
	require.NoError(t, err)

	ev, err := e.Evaluate()
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, ev.Status)
	assert.Equal(t, 6, ev.RemainingEstimate)
	assert.Equal(t, 8, ev.LatestEstimate)
	assert.Equal(t, 2, ev.HighestThoughtNumber)
	require.NotNil(t, ev.NeedsMoreThoughts)
	assert.True(t, *ev.NeedsMoreThoughts)
}

func TestEngine_SummarizeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(nil)
	_, err := e.Think(ctx, step("one", 1, 2, true))
	require.NoError(t, err)
	_, err = e.Think(ctx, step("b", 2, 2, true, "branchFromThoughtNumber", 1.0, "branchId", "x"))
	require.NoError(t, err)

	first, err := e.Summarize()
	require.NoError(t, err)
	second, err := e.Summarize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEngine_TraceEmission(t *testing.T) {
	sink := &recordingSink{}
	e := newTestEngine(sink)

	_, err := e.Think(context.Background(), step("hello", 1, 2, true))
	require.NoError(t, err)
	require.Equal(t, 1, sink.len())
	assert.Equal(t, "test-session", sink.traces[0].SessionID)
	assert.Contains(t, sink.traces[0].Text, "Thought 1/2")
	assert.Contains(t, sink.traces[0].Text, "hello")
}

func TestEngine_TraceDisabled(t *testing.T) {
	sink := &recordingSink{}
	e := NewEngine(NewHistory(), sink, EngineConfig{DisableTrace: true})

	_, err := e.Think(context.Background(), step("hello", 1, 2, true))
	require.NoError(t, err)
	assert.Equal(t, 0, sink.len())
	assert.True(t, e.TraceDisabled())
	assert.NotEmpty(t, e.SessionID())
}

func TestEngine_SinkFailureIgnored(t *testing.T) {
	e := newTestEngine(panicSink{})

	res, err := e.Think(context.Background(), step("hello", 1, 1, false))
	require.NoError(t, err)
	assert.Equal(t, 1, res.HistoryLength)
}

func TestEngine_ConcurrentThink(t *testing.T) {
	e := newTestEngine(&recordingSink{})
	var wg sync.WaitGroup
	seen := make(chan int, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			res, err := e.Think(context.Background(), step("c", n+1, 40, true))
			if err == nil {
				seen <- res.HistoryLength
			}
		}(i)
	}
	wg.Wait()
	close(seen)

	lengths := make(map[int]bool)
	for n := range seen {
		lengths[n] = true
	}
	assert.Len(t, lengths, 40, "every append observes a distinct history length")
	assert.Equal(t, 40, e.History().Size())
}

func TestEngine_Session(t *testing.T) {
	e := newTestEngine(nil)
	s := e.Session()
	assert.Equal(t, "test-session", s.SessionID)
	assert.NotNil(t, s.Thoughts)
	assert.Empty(t, s.Thoughts)
}

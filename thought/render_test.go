package thought

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
)

func TestHeader(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{"plain", Record{ThoughtNumber: 2, TotalThoughtsEstimate: 5}, "Thought 2/5"},
		{"revision", Record{ThoughtNumber: 4, TotalThoughtsEstimate: 5, IsRevision: true, RevisesThoughtNumber: 2}, "Revision of Thought 2"},
		{"branch start", Record{ThoughtNumber: 3, TotalThoughtsEstimate: 5, BranchID: "alt", BranchFromThoughtNumber: 2}, "Branch alt from Thought 2"},
		{"branch continuation", Record{ThoughtNumber: 4, TotalThoughtsEstimate: 5, BranchID: "alt"}, "Branch alt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, Header(tt.rec, ContextFor(tt.rec)), tt.want)
		})
	}
}

func TestStatus(t *testing.T) {
	more := true
	assert.Equal(t, "→ More thoughts needed", Status(Record{NextNeeded: true}))
	assert.Equal(t, "✓ Thinking complete", Status(Record{NextNeeded: false}))
	assert.Contains(t, Status(Record{NextNeeded: true, NeedsMoreThoughts: &more}), "Expanding scope")
}

func TestRender_DeterministicFixedWidth(t *testing.T) {
	r := NewRenderer(60)
	rec := Record{
		Content:               strings.Repeat("a long reasoning step ", 10),
		ThoughtNumber:         1,
		TotalThoughtsEstimate: 3,
		NextNeeded:            true,
	}

	out := r.Render(rec, ContextFor(rec))
	assert.Equal(t, out, r.Render(rec, ContextFor(rec)))
	assert.NotContains(t, out, "\x1b[", "no colour escapes")

	lines := strings.Split(out, "\n")
	// Every box line has the same width; the trailing status line is outside the box.
	for _, line := range lines[:len(lines)-1] {
		assert.Equal(t, 60, ansi.StringWidth(line), "line %q", line)
	}
	assert.True(t, strings.HasPrefix(lines[0], "╭"))
	assert.Equal(t, "→ More thoughts needed", lines[len(lines)-1])
}

func TestNewRenderer_ClampsWidth(t *testing.T) {
	assert.Equal(t, DefaultWidth, NewRenderer(0).Width())
	assert.Equal(t, MinWidth, NewRenderer(10).Width())
	assert.Equal(t, MaxWidth, NewRenderer(1000).Width())
}

func TestRenderBannerAndSummary(t *testing.T) {
	r := NewRenderer(0)
	assert.Contains(t, r.RenderBanner("abc"), "Session: abc")

	now := time.Now()
	out := r.RenderSessionSummary(Summary{
		SessionID:     "abc",
		TotalCount:    3,
		MainCount:     2,
		RevisionCount: 1,
		IsComplete:    true,
		CreatedAt:     now.Add(-2 * time.Minute),
		Branches:      []BranchSummary{{ID: "alt", FromThoughtNumber: 1, Count: 1}},
	}, now)
	assert.Contains(t, out, "Session abc")
	assert.Contains(t, out, "2 minutes ago")
	assert.Contains(t, out, "Status: Complete")
	assert.Contains(t, out, "alt from thought 1")
}

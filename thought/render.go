package thought

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Width bounds for rendered boxes.
const (
	DefaultWidth = 80
	MinWidth     = 40
	MaxWidth     = 200
)

// RenderContext carries the labels the renderer composes the header from.
type RenderContext struct {
	IsRevision            bool
	RevisesThoughtNumber  int
	IsBranchStart         bool
	BranchFromThought     int
	BranchID              string
	TotalThoughtsEstimate int
}

// ContextFor derives the render context from the record itself.
func ContextFor(rec Record) RenderContext {
	return RenderContext{
		IsRevision:            rec.IsRevision,
		RevisesThoughtNumber:  rec.RevisesThoughtNumber,
		IsBranchStart:         rec.IsBranchStart(),
		BranchFromThought:     rec.BranchFromThoughtNumber,
		BranchID:              rec.BranchID,
		TotalThoughtsEstimate: rec.TotalThoughtsEstimate,
	}
}

// Renderer draws thoughts as fixed-width boxes. Output never carries colour
// escapes, so identical input always renders identically.
type Renderer struct {
	width int
	box   lipgloss.Style
}

// NewRenderer returns a renderer for the given total width, clamped to
// [MinWidth, MaxWidth]. Zero selects DefaultWidth.
func NewRenderer(width int) *Renderer {
	switch {
	case width == 0:
		width = DefaultWidth
	case width < MinWidth:
		width = MinWidth
	case width > MaxWidth:
		width = MaxWidth
	}
	lr := lipgloss.NewRenderer(io.Discard)
	return &Renderer{
		width: width,
		box: lr.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Width(width - 2),
	}
}

// Width returns the total rendered width in cells.
func (r *Renderer) Width() int { return r.width }

// Header composes the first line of a thought box.
func Header(rec Record, ctx RenderContext) string {
	total := ctx.TotalThoughtsEstimate
	if total == 0 {
		total = rec.TotalThoughtsEstimate
	}
	switch {
	case ctx.IsRevision:
		return fmt.Sprintf("🔄 Revision of Thought %d (%d/%d)", ctx.RevisesThoughtNumber, rec.ThoughtNumber, total)
	case ctx.IsBranchStart:
		return fmt.Sprintf("🌿 Branch %s from Thought %d (%d/%d)", ctx.BranchID, ctx.BranchFromThought, rec.ThoughtNumber, total)
	case ctx.BranchID != "":
		return fmt.Sprintf("🌿 Branch %s · Thought %d/%d", ctx.BranchID, rec.ThoughtNumber, total)
	default:
		return fmt.Sprintf("💭 Thought %d/%d", rec.ThoughtNumber, total)
	}
}

// Status describes whether the chain continues after rec.
func Status(rec Record) string {
	var parts []string
	if rec.NextNeeded {
		parts = append(parts, "→ More thoughts needed")
	} else {
		parts = append(parts, "✓ Thinking complete")
	}
	if rec.NeedsMoreThoughts != nil && *rec.NeedsMoreThoughts {
		parts = append(parts, "📈 Expanding scope")
	}
	return strings.Join(parts, " · ")
}

// Render draws one thought. It is pure.
func (r *Renderer) Render(rec Record, ctx RenderContext) string {
	inner := r.width - 4
	body := strings.Join([]string{
		Header(rec, ctx),
		strings.Repeat("─", inner),
		rec.Content,
	}, "\n")
	return r.box.Render(body) + "\n" + Status(rec)
}

// RenderBanner draws the startup panel.
func (r *Renderer) RenderBanner(sessionID string) string {
	return r.box.Render(strings.Join([]string{
		"🧠 Sequential Thinking",
		strings.Repeat("─", r.width-4),
		"Session: " + sessionID,
		"Tools: think_sequentially, continue_thinking, summarize_thoughts, evaluate_conclusion",
	}, "\n"))
}

// RenderSessionSummary draws the digest as a tree.
func (r *Renderer) RenderSessionSummary(s Summary, now time.Time) string {
	status := StatusIncomplete
	if s.IsComplete {
		status = StatusComplete
	}
	title := cases.Title(language.English)

	t := tree.Root(fmt.Sprintf("📋 Session %s", s.SessionID)).Child(
		fmt.Sprintf("Started %s", humanize.RelTime(s.CreatedAt, now, "ago", "from now")),
		fmt.Sprintf("Thoughts: %d (main %d, revisions %d)", s.TotalCount, s.MainCount, s.RevisionCount),
		fmt.Sprintf("Status: %s", title.String(status)),
	)
	if len(s.Branches) > 0 {
		branches := tree.Root(fmt.Sprintf("Branches: %d", len(s.Branches)))
		for _, b := range s.Branches {
			branches.Child(fmt.Sprintf("%s from thought %d (%d)", b.ID, b.FromThoughtNumber, b.Count))
		}
		t.Child(branches)
	}
	return t.String()
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sequential-thinking/thought"
)

const (
	uriHistory        = "thoughts://history"
	uriSummary        = "thoughts://summary"
	uriBranches       = "thoughts://branches"
	uriSession        = "thoughts://session"
	uriBranchTemplate = "thoughts://branches/{branchId}"
	uriBranchPrefix   = "thoughts://branches/"

	mimeJSON = "application/json"
)

// ThoughtResources serves read-only views of the engine's history.
type ThoughtResources struct {
	engine *thought.Engine
}

// NewThoughtResources creates resource handlers over engine.
func NewThoughtResources(engine *thought.Engine) *ThoughtResources {
	return &ThoughtResources{engine: engine}
}

// AddTo registers every resource and the branch template on s.
func (tr *ThoughtResources) AddTo(s *server.MCPServer) {
	s.AddResource(mcp.NewResource(uriHistory, "Thought history",
		mcp.WithResourceDescription("Main-line thoughts in arrival order"),
		mcp.WithMIMEType(mimeJSON),
	), tr.handleHistory)
	s.AddResource(mcp.NewResource(uriSummary, "Thought summary",
		mcp.WithResourceDescription("Counts, branches and the final chain with revisions applied"),
		mcp.WithMIMEType(mimeJSON),
	), tr.handleSummary)
	s.AddResource(mcp.NewResource(uriBranches, "Thought branches",
		mcp.WithResourceDescription("Every branch with its origin thought and records"),
		mcp.WithMIMEType(mimeJSON),
	), tr.handleBranches)
	s.AddResource(mcp.NewResource(uriSession, "Thinking session",
		mcp.WithResourceDescription("Session id, timestamps and the complete history"),
		mcp.WithMIMEType(mimeJSON),
	), tr.handleSession)
	s.AddResourceTemplate(mcp.NewResourceTemplate(uriBranchTemplate, "Thought branch",
		mcp.WithTemplateDescription("All records of one branch"),
		mcp.WithTemplateMIMEType(mimeJSON),
	), tr.handleBranch)
}

func (tr *ThoughtResources) handleHistory(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	session := tr.engine.Session()
	main := make([]thought.Record, 0, len(session.Thoughts))
	for _, rec := range session.Thoughts {
		if !rec.IsBranch() {
			main = append(main, rec)
		}
	}
	return jsonContents(uriHistory, map[string]any{
		"sessionId": session.SessionID,
		"thoughts":  main,
	})
}

func (tr *ThoughtResources) handleSummary(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	summary, err := tr.engine.Summarize()
	if err != nil {
		return nil, err
	}
	return jsonContents(uriSummary, summary)
}

type branchView struct {
	ID                string           `json:"id"`
	FromThoughtNumber int              `json:"fromThoughtNumber,omitempty"`
	Thoughts          []thought.Record `json:"thoughts"`
}

func newBranchView(id string, recs []thought.Record) branchView {
	v := branchView{ID: id, Thoughts: recs}
	for _, rec := range recs {
		if rec.BranchFromThoughtNumber > 0 {
			v.FromThoughtNumber = rec.BranchFromThoughtNumber
			break
		}
	}
	return v
}

func (tr *ThoughtResources) handleBranches(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	snap := tr.engine.History().Snapshot()
	views := make([]branchView, 0, len(snap.Order))
	for _, id := range snap.Order {
		views = append(views, newBranchView(id, snap.Branches[id]))
	}
	return jsonContents(uriBranches, map[string]any{"branches": views})
}

func (tr *ThoughtResources) handleSession(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(uriSession, tr.engine.Session())
}

func (tr *ThoughtResources) handleBranch(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := branchIDFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}
	recs, err := tr.engine.History().BranchRecords(id)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, newBranchView(id, recs))
}

func branchIDFromURI(uri string) (string, error) {
	raw, ok := strings.CutPrefix(uri, uriBranchPrefix)
	if !ok || raw == "" {
		return "", &thought.Error{Kind: thought.KindUnknownBranch, Field: thought.FieldBranchID, Message: fmt.Sprintf("no branch in %q", uri)}
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", &thought.Error{Kind: thought.KindUnknownBranch, Field: thought.FieldBranchID, Message: err.Error()}
	}
	return id, nil
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: mimeJSON,
			Text:     string(data),
		},
	}, nil
}

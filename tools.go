package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sequential-thinking/thought"
	"sequential-thinking/utils"
)

// Tool names
const (
	toolThinkSequentially  = "think_sequentially"
	toolContinueThinking   = "continue_thinking"
	toolSummarizeThoughts  = "summarize_thoughts"
	toolEvaluateConclusion = "evaluate_conclusion"
)

// availableToolNames lists every tool in registration order.
var availableToolNames = []string{
	toolThinkSequentially,
	toolContinueThinking,
	toolSummarizeThoughts,
	toolEvaluateConclusion,
}

// ToolDefinition pairs an advertised tool with its handler
type ToolDefinition struct {
	Tool    mcp.Tool
	Handler server.ToolHandlerFunc
}

// ToolRegistry manages the chain tools
type ToolRegistry struct {
	engine  *thought.Engine
	metrics *Metrics
	tools   map[string]ToolDefinition
	enabled map[string]bool
}

// NewToolRegistry creates a registry with every chain tool enabled
func NewToolRegistry(engine *thought.Engine, metrics *Metrics) *ToolRegistry {
	r := &ToolRegistry{
		engine:  engine,
		metrics: metrics,
		tools:   make(map[string]ToolDefinition),
		enabled: make(map[string]bool),
	}

	r.Register(ToolDefinition{
		Tool: thoughtTool(toolThinkSequentially,
			"Start or extend a sequential chain of thought. Submit one thought per call; "+
				"thoughts may revise earlier ones or branch off into alternatives."),
		Handler: r.handleThink(toolThinkSequentially),
	})
	r.Register(ToolDefinition{
		Tool: thoughtTool(toolContinueThinking,
			"Continue an existing chain of thought with the next step. "+
				"Identical to think_sequentially; use it when picking up a chain already in progress."),
		Handler: r.handleThink(toolContinueThinking),
	})
	r.Register(ToolDefinition{
		Tool: mcp.NewTool(toolSummarizeThoughts,
			mcp.WithDescription("Summarize the recorded chain: counts, branches and the final chain with revisions applied."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Handler: r.handleSummarize,
	})
	r.Register(ToolDefinition{
		Tool: mcp.NewTool(toolEvaluateConclusion,
			mcp.WithDescription("Assess whether the chain has reached a conclusion and estimate how many thoughts remain."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		Handler: r.handleEvaluate,
	})

	for name := range r.tools {
		r.enabled[name] = true
	}
	return r
}

// Register adds a tool to the registry
func (r *ToolRegistry) Register(def ToolDefinition) {
	r.tools[def.Tool.Name] = def
}

// Enable enables a tool
func (r *ToolRegistry) Enable(name string) {
	r.enabled[name] = true
}

// Disable disables a tool
func (r *ToolRegistry) Disable(name string) {
	r.enabled[name] = false
}

// SetEnabled sets which tools are enabled
func (r *ToolRegistry) SetEnabled(names []string) {
	for name := range r.enabled {
		r.enabled[name] = false
	}
	for _, name := range names {
		if _, exists := r.tools[name]; exists {
			r.enabled[name] = true
		}
	}
}

// GetRegisteredToolNames returns all registered tool names in advertised order
func (r *ToolRegistry) GetRegisteredToolNames() []string {
	var names []string
	for _, name := range availableToolNames {
		if _, ok := r.tools[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Handler returns the handler for a registered tool.
func (r *ToolRegistry) Handler(name string) (server.ToolHandlerFunc, bool) {
	def, ok := r.tools[name]
	return def.Handler, ok
}

// AddTo registers every enabled tool on s and returns how many were added.
func (r *ToolRegistry) AddTo(s *server.MCPServer) int {
	n := 0
	for _, name := range r.GetRegisteredToolNames() {
		if !r.enabled[name] {
			continue
		}
		def := r.tools[name]
		s.AddTool(def.Tool, def.Handler)
		n++
	}
	return n
}

func thoughtTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString(thought.FieldContent,
			mcp.Required(),
			mcp.Description("The reasoning step itself"),
		),
		mcp.WithNumber(thought.FieldThoughtNumber,
			mcp.Required(),
			mcp.Min(1),
			mcp.Description("Position of this thought in the chain (1-based)"),
		),
		mcp.WithNumber(thought.FieldTotalThoughtsEstimate,
			mcp.Required(),
			mcp.Min(1),
			mcp.Description("Current estimate of how many thoughts the chain needs; raised to thoughtNumber if lower"),
		),
		mcp.WithBoolean(thought.FieldNextNeeded,
			mcp.Required(),
			mcp.Description("Whether another thought should follow this one"),
		),
		mcp.WithBoolean(thought.FieldIsRevision,
			mcp.Description("Marks this thought as revising an earlier one (default: false)"),
		),
		mcp.WithNumber(thought.FieldRevisesThoughtNumber,
			mcp.Min(1),
			mcp.Description("The thoughtNumber being revised; required when isRevision is true"),
		),
		mcp.WithNumber(thought.FieldBranchFromThoughtNumber,
			mcp.Min(1),
			mcp.Description("The thoughtNumber this thought branches from"),
		),
		mcp.WithString(thought.FieldBranchID,
			mcp.Description("Branch name; required with branchFromThoughtNumber"),
		),
		mcp.WithBoolean(thought.FieldNeedsMoreThoughts,
			mcp.Description("Signals the chain is longer than estimated (advisory)"),
		),
	)
}

func (r *ToolRegistry) handleThink(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		defer r.metrics.ObserveDuration(name, time.Now())

		args, err := utils.DecodeArguments(request.Params.Arguments)
		if err != nil {
			return r.toolError(name, &thought.Error{Kind: thought.KindMissingField, Field: "arguments", Message: err.Error()}), nil
		}

		res, err := r.engine.Think(ctx, args)
		if err != nil {
			return r.toolError(name, err), nil
		}
		r.metrics.ObserveThought(name, res)
		return jsonResult(res), nil
	}
}

func (r *ToolRegistry) handleSummarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defer r.metrics.ObserveDuration(toolSummarizeThoughts, time.Now())

	summary, err := r.engine.Summarize()
	if err != nil {
		return r.toolError(toolSummarizeThoughts, err), nil
	}
	return jsonResult(summary), nil
}

func (r *ToolRegistry) handleEvaluate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	defer r.metrics.ObserveDuration(toolEvaluateConclusion, time.Now())

	eval, err := r.engine.Evaluate()
	if err != nil {
		return r.toolError(toolEvaluateConclusion, err), nil
	}
	return jsonResult(eval), nil
}

// jsonResult returns v as structured content with an indented JSON text copy.
func jsonResult(v any) *mcp.CallToolResult {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: failed to serialize tool result: %v", err)
		return mcp.NewToolResultError(`{"status":"failed","error":"result could not be serialized"}`)
	}
	return mcp.NewToolResultStructured(v, string(output))
}

// errorBody is the payload of every failed tool call.
type errorBody struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
	Field  string `json:"field,omitempty"`
	Error  string `json:"error"`
}

// toolError converts err into a tool-level error result.
func (r *ToolRegistry) toolError(tool string, err error) *mcp.CallToolResult {
	body := errorBody{Status: "failed", Kind: "Internal", Error: err.Error()}

	var te *thought.Error
	if errors.As(err, &te) {
		body.Kind = string(te.Kind)
		body.Field = te.Field
		body.Error = te.Message
		if body.Error == "" {
			body.Error = te.Error()
		}
	}
	r.metrics.ObserveError(tool, thought.Kind(body.Kind))

	output, _ := json.MarshalIndent(body, "", "  ")
	return mcp.NewToolResultError(string(output))
}

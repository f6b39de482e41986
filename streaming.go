package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sequential-thinking/thought"
	"sequential-thinking/utils"
)

// ============ Trace Stream ============

// TraceStream writes rendered traces to an io.Writer from a background
// goroutine. Emit never blocks: when the buffer is full the oldest pending
// trace is dropped.
type TraceStream struct {
	traces chan thought.Trace
	done   chan struct{}
	out    io.Writer
	onDrop func()
	closed bool
	mu     sync.Mutex
}

// NewTraceStream starts a stream that writes to out. onDrop may be nil.
func NewTraceStream(out io.Writer, bufferSize int, onDrop func()) *TraceStream {
	if bufferSize < 1 {
		bufferSize = 1
	}
	ts := &TraceStream{
		traces: make(chan thought.Trace, bufferSize),
		done:   make(chan struct{}),
		out:    out,
		onDrop: onDrop,
	}
	go ts.run()
	return ts
}

func (ts *TraceStream) run() {
	defer close(ts.done)
	for t := range ts.traces {
		// Write errors are ignored; a broken stderr must not stall reasoning.
		_, _ = fmt.Fprintln(ts.out, t.Text)
	}
}

// Emit queues a trace for writing.
func (ts *TraceStream) Emit(_ context.Context, t thought.Trace) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.closed {
		return
	}

	select {
	case ts.traces <- t:
	default:
		// Buffer full, drop oldest
		select {
		case <-ts.traces:
			if ts.onDrop != nil {
				ts.onDrop()
			}
		default:
		}
		select {
		case ts.traces <- t:
		default:
			if ts.onDrop != nil {
				ts.onDrop()
			}
		}
	}
}

// Done returns a channel that's closed once every queued trace is written.
func (ts *TraceStream) Done() <-chan struct{} {
	return ts.done
}

// Close stops accepting traces and waits for pending ones to be written.
func (ts *TraceStream) Close() {
	ts.mu.Lock()
	if !ts.closed {
		ts.closed = true
		close(ts.traces)
	}
	ts.mu.Unlock()
	<-ts.done
}

// ============ MCP Notifier ============

// MCPNotifier forwards traces to the calling client as MCP logging
// notifications. Calls without a server in the context are ignored.
type MCPNotifier struct {
	logger string
}

// NewMCPNotifier creates a notifier that tags messages with logger.
func NewMCPNotifier(logger string) *MCPNotifier {
	return &MCPNotifier{logger: logger}
}

// Emit sends one notification; delivery failures are dropped.
func (n *MCPNotifier) Emit(ctx context.Context, t thought.Trace) {
	mcpServer := server.ServerFromContext(ctx)
	if mcpServer == nil {
		return
	}

	rec := t.Record
	data := map[string]interface{}{
		"type":                  "thought",
		"sessionId":             t.SessionID,
		"thoughtNumber":         rec.ThoughtNumber,
		"totalThoughtsEstimate": rec.TotalThoughtsEstimate,
		"nextNeeded":            rec.NextNeeded,
		"content":               utils.TruncateStr(rec.Content, 200),
	}
	if rec.IsRevision {
		data["revisesThoughtNumber"] = rec.RevisesThoughtNumber
	}
	if rec.BranchID != "" {
		data["branchId"] = rec.BranchID
	}

	_ = mcpServer.SendLogMessageToClient(ctx, mcp.LoggingMessageNotification{
		Params: mcp.LoggingMessageNotificationParams{
			Level:  mcp.LoggingLevelInfo,
			Logger: n.logger,
			Data:   data,
		},
	})
}

// ============ Fan-out ============

// MultiSink emits every trace to each of its sinks in order.
type MultiSink []thought.Sink

// Emit implements thought.Sink.
func (m MultiSink) Emit(ctx context.Context, t thought.Trace) {
	for _, s := range m {
		s.Emit(ctx, t)
	}
}

// buildSink assembles the configured trace sinks. It returns nil when traces
// are disabled.
func buildSink(cfg *Config, stream *TraceStream) thought.Sink {
	if cfg.DisableThoughtLogging {
		return nil
	}
	sinks := MultiSink{stream}
	if cfg.MCPLogging {
		sinks = append(sinks, NewMCPNotifier(serverName))
	}
	return sinks
}

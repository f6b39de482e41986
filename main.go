package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"sequential-thinking/thought"
)

const serverName = "sequential-thinking"

// version is set at build time via ldflags.
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(submain(context.Background()))
}

func submain(ctx context.Context) int {
	cmd := newRootCommand()
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	cmd := &cobra.Command{
		Use:   serverName,
		Short: "MCP server for structured, stepwise reasoning",
		Long: "Serves think_sequentially, continue_thinking, summarize_thoughts and evaluate_conclusion " +
			"over the Model Context Protocol. Every flag can also be set through its environment variable.",
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := LoadConfig(v)
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}
	cobra.CheckErr(BindFlags(cmd.Flags(), v))
	cmd.AddCommand(newVersionCommand())
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", serverName, version)
			return err
		},
	}
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}

// App owns the engine and everything wired around it for one process.
type App struct {
	cfg       *Config
	engine    *thought.Engine
	metrics   *Metrics
	stream    *TraceStream
	tools     *ToolRegistry
	resources *ThoughtResources
	server    *server.MCPServer
}

// NewApp builds the engine, its trace sinks and the MCP server. Traces are
// written to traceOut.
func NewApp(cfg *Config, traceOut io.Writer) *App {
	metrics := NewMetrics()
	stream := NewTraceStream(traceOut, cfg.TraceBuffer, metrics.TraceDropped)

	engine := thought.NewEngine(thought.NewHistory(), buildSink(cfg, stream), thought.EngineConfig{
		DisableTrace: cfg.DisableThoughtLogging,
		TraceWidth:   cfg.TraceWidth,
	})

	tools := NewToolRegistry(engine, metrics)
	tools.SetEnabled(cfg.EnabledTools)
	resources := NewThoughtResources(engine)

	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, false),
		server.WithLogging(),
	)
	n := tools.AddTo(s)
	resources.AddTo(s)
	log.Printf("[SERVER] registered %d tool(s), session %s", n, engine.SessionID())

	return &App{
		cfg:       cfg,
		engine:    engine,
		metrics:   metrics,
		stream:    stream,
		tools:     tools,
		resources: resources,
		server:    s,
	}
}

// Close flushes pending traces.
func (a *App) Close() {
	a.stream.Close()
}

// Banner returns the startup panel, or "" when thought logging is disabled.
func (a *App) Banner() string {
	if a.cfg.DisableThoughtLogging {
		return ""
	}
	return a.engine.Renderer().RenderBanner(a.engine.SessionID())
}

// SessionSummary returns the shutdown digest, or "" when there is nothing to
// report or thought logging is disabled.
func (a *App) SessionSummary(now time.Time) string {
	if a.cfg.DisableThoughtLogging {
		return ""
	}
	summary, err := a.engine.Summarize()
	if err != nil {
		return ""
	}
	return a.engine.Renderer().RenderSessionSummary(summary, now)
}

func run(ctx context.Context, cfg *Config, stderr io.Writer) error {
	app := NewApp(cfg, stderr)
	if banner := app.Banner(); banner != "" {
		fmt.Fprintln(stderr, banner)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Transport {
	case transportSSE:
		sseServer := server.NewSSEServer(app.server,
			server.WithBaseURL(cfg.BaseURL),
			server.WithKeepAlive(true),
		)
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.metrics.Handler())
		mux.Handle("/", sseServer)

		log.Printf("Starting SSE server on :%d (base URL: %s)", cfg.Port, cfg.BaseURL)
		log.Printf("SSE endpoint: %s/sse", cfg.BaseURL)
		log.Printf("Message endpoint: %s/message", cfg.BaseURL)
		log.Printf("Metrics endpoint: %s/metrics", cfg.BaseURL)

		serveHTTP(gctx, g, &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: mux}, func(shutdownCtx context.Context) {
			_ = sseServer.Shutdown(shutdownCtx)
		})

	default:
		if cfg.MetricsListen != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", app.metrics.Handler())
			log.Printf("Metrics endpoint: http://%s/metrics", cfg.MetricsListen)
			serveHTTP(gctx, g, &http.Server{Addr: cfg.MetricsListen, Handler: mux}, nil)
		}

		stdio := server.NewStdioServer(app.server)
		stdio.SetErrorLogger(log.New(stderr, "[SERVER] ", log.LstdFlags))
		g.Go(func() error {
			// Stdin closing ends the session and everything else with it.
			defer cancel()
			return stdio.Listen(gctx, os.Stdin, os.Stdout)
		})
	}

	err := g.Wait()
	app.Close()
	if summary := app.SessionSummary(time.Now()); summary != "" {
		fmt.Fprintln(stderr, summary)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveHTTP runs srv in g until ctx ends, then shuts it down. onShutdown runs
// first when set.
func serveHTTP(ctx context.Context, g *errgroup.Group, srv *http.Server, onShutdown func(context.Context)) {
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if onShutdown != nil {
			onShutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})
}

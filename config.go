package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"sequential-thinking/thought"
)

// Config holds application-wide configuration
type Config struct {
	// Trace output
	DisableThoughtLogging bool // Suppress every trace, the banner and the shutdown summary
	TraceWidth            int  // Width of rendered thought boxes
	TraceBuffer           int  // Pending traces kept before the oldest is dropped
	MCPLogging            bool // Also send traces as MCP logging notifications

	// Transport
	Transport     string
	Port          int
	BaseURL       string
	MetricsListen string // Standalone metrics listener for stdio mode ("" = off)

	EnabledTools []string
}

// Configuration keys, shared by flags and viper.
const (
	keyDisableThoughtLogging = "disable-thought-logging"
	keyTraceWidth            = "trace-width"
	keyTraceBuffer           = "trace-buffer"
	keyMCPLogging            = "mcp-logging"
	keyTransport             = "transport"
	keyPort                  = "port"
	keyBaseURL               = "base-url"
	keyMetricsListen         = "metrics-listen"
	keyEnabledTools          = "enabled-tools"
)

// envBindings maps configuration keys to their environment variables.
var envBindings = map[string]string{
	keyDisableThoughtLogging: "DISABLE_THOUGHT_LOGGING",
	keyTraceWidth:            "THOUGHT_TRACE_WIDTH",
	keyTraceBuffer:           "THOUGHT_TRACE_BUFFER",
	keyMCPLogging:            "MCP_LOGGING_STREAM",
	keyTransport:             "MCP_TRANSPORT",
	keyPort:                  "MCP_PORT",
	keyBaseURL:               "MCP_BASE_URL",
	keyMetricsListen:         "MCP_METRICS_LISTEN",
	keyEnabledTools:          "SEQUENTIAL_THINKING_TOOLS",
}

const (
	transportStdio = "stdio"
	transportSSE   = "sse"

	defaultPort        = 8080
	defaultTraceBuffer = 64
	minTraceBuffer     = 1
	maxTraceBuffer     = 4096
)

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		TraceWidth:   thought.DefaultWidth,
		TraceBuffer:  defaultTraceBuffer,
		Transport:    transportStdio,
		Port:         defaultPort,
		EnabledTools: append([]string(nil), availableToolNames...),
	}
}

// Validate checks values that cannot be clamped into range.
func (c *Config) Validate() error {
	if c.Transport != transportStdio && c.Transport != transportSSE {
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, transportStdio, transportSSE)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if len(c.EnabledTools) == 0 {
		return fmt.Errorf("no tools enabled")
	}
	return nil
}

// BindFlags registers the command-line flags on fs and binds every key to its
// flag and environment variable in v.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) error {
	def := DefaultConfig()

	fs.Bool(keyDisableThoughtLogging, def.DisableThoughtLogging, "Suppress thought traces on stderr")
	fs.Int(keyTraceWidth, def.TraceWidth, "Width of rendered thought boxes")
	fs.Int(keyTraceBuffer, def.TraceBuffer, "Pending traces kept before the oldest is dropped")
	fs.Bool(keyMCPLogging, def.MCPLogging, "Send traces to the client as MCP logging notifications")
	fs.String(keyTransport, def.Transport, "Transport mode: stdio or sse")
	fs.Int(keyPort, def.Port, "Port for SSE server (only used with --transport=sse)")
	fs.String(keyBaseURL, "", "Base URL for SSE server (default: http://localhost:<port>)")
	fs.String(keyMetricsListen, "", "Address for a standalone /metrics listener in stdio mode")
	fs.String(keyEnabledTools, strings.Join(def.EnabledTools, ","), "Comma-separated list of tools to register")

	for key, env := range envBindings {
		if err := v.BindPFlag(key, fs.Lookup(key)); err != nil {
			return fmt.Errorf("bind flag %s: %w", key, err)
		}
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}
	return nil
}

// LoadConfig resolves configuration from v (flags, then environment, then
// defaults). Out-of-range values are clamped to safe ranges.
func LoadConfig(v *viper.Viper) *Config {
	cfg := DefaultConfig()

	clampInt := func(name string, value, minVal, maxVal int) int {
		if value < minVal {
			log.Printf("[CONFIG] %s (%d) below minimum (%d), clamping to minimum", name, value, minVal)
			return minVal
		}
		if value > maxVal {
			log.Printf("[CONFIG] %s (%d) exceeds maximum (%d), clamping to maximum", name, value, maxVal)
			return maxVal
		}
		return value
	}

	cfg.DisableThoughtLogging = v.GetBool(keyDisableThoughtLogging)
	cfg.MCPLogging = v.GetBool(keyMCPLogging)

	if v.IsSet(keyTraceWidth) {
		cfg.TraceWidth = clampInt(envBindings[keyTraceWidth], v.GetInt(keyTraceWidth), thought.MinWidth, thought.MaxWidth)
	}
	if v.IsSet(keyTraceBuffer) {
		cfg.TraceBuffer = clampInt(envBindings[keyTraceBuffer], v.GetInt(keyTraceBuffer), minTraceBuffer, maxTraceBuffer)
	}

	if t := strings.ToLower(strings.TrimSpace(v.GetString(keyTransport))); t != "" {
		cfg.Transport = t
	}
	if p := v.GetInt(keyPort); p > 0 {
		cfg.Port = p
	}
	cfg.BaseURL = strings.TrimSpace(v.GetString(keyBaseURL))
	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	cfg.MetricsListen = strings.TrimSpace(v.GetString(keyMetricsListen))

	if raw := v.GetString(keyEnabledTools); raw != "" {
		var names []string
		for _, name := range strings.Split(raw, ",") {
			names = append(names, strings.TrimSpace(name))
		}
		cfg.EnabledTools = validateToolNames(names, availableToolNames)
	}

	return cfg
}

// validateToolNames filters toolList down to names present in availableTools,
// logging the rest.
func validateToolNames(toolList []string, availableTools []string) []string {
	var invalid []string
	valid := []string{}

	for _, tool := range toolList {
		if tool == "" {
			continue
		}
		found := false
		for _, avail := range availableTools {
			if tool == avail {
				found = true
				break
			}
		}
		if !found {
			invalid = append(invalid, tool)
		} else {
			valid = append(valid, tool)
		}
	}

	if len(invalid) > 0 {
		log.Printf("[CONFIG] Warning: ignoring invalid tool name(s) in enabled-tools: %s. Available tools: %v",
			strings.Join(invalid, ", "), availableTools)
	}

	return valid
}

// Searchhub is a web search retrieval service.
//
// It fans a query out across a quota-limited commercial search API and
// a pool of self-hosted SearXNG instances, optionally rewrites the
// query with a local LLM, re-ranks the merged results, and can enrich
// them with fetched page content. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	searchhub serve              Start the API server
//	searchhub init [dir]         Write an example config file
//	searchhub search <query>     Run a single search from the command line
//	searchhub quota              Show monthly API quota usage
//	searchhub version            Print version and build information
//	searchhub -o json version    Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/nugget/searchhub/internal/api"
	"github.com/nugget/searchhub/internal/buildinfo"
	"github.com/nugget/searchhub/internal/config"
	"github.com/nugget/searchhub/internal/llm"
	"github.com/nugget/searchhub/internal/quota"
	"github.com/nugget/searchhub/internal/search"
	"github.com/nugget/searchhub/internal/settings"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the searchhub command. All OS-level
// dependencies are injected as parameters:
//
//   - ctx controls the lifetime of the process. Cancelling it triggers
//     graceful shutdown of the server.
//   - stdout and stderr receive all program output. Structured logs go
//     to stdout; fatal error messages go to stderr.
//   - args is os.Args[1:] — the command-line arguments after the program
//     name. We parse these manually rather than using the flag package
//     to avoid global state that interferes with parallel tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
// The caller (main) is responsible for printing the error and exiting.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	// Parse arguments by hand. The flag package relies on package-level
	// globals (flag.CommandLine), which makes it impossible to call run()
	// concurrently from tests. Our argument surface is small enough that
	// manual parsing is clearer than bringing in a CLI framework.
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++ // skip the value
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				// Collect remaining args as subcommand arguments.
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	// Default to human-readable text output.
	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, stderr, configPath)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "search":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: searchhub search <query>")
		}
		return runSearch(ctx, stdout, configPath, outputFmt, cmdArgs)
	case "quota":
		return runQuota(stdout, configPath, outputFmt)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	// Print fields in a stable order for human readability.
	for _, k := range []string{"version", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w. It is called when
// searchhub is invoked with no arguments, or with -h / --help.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Searchhub - Web Search Retrieval Service")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: searchhub [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve            Start the API server")
	fmt.Fprintln(w, "  init [dir]       Write an example config (default: .)")
	fmt.Fprintln(w, "  search <query>   Run a single search from the command line")
	fmt.Fprintln(w, "  quota            Show monthly API quota usage")
	fmt.Fprintln(w, "  version          Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./searchhub.yaml, ~/.config/searchhub/config.yaml, /etc/searchhub/config.yaml")
	return nil
}

// runServe handles the "searchhub serve" subcommand. It wires the full
// pipeline — settings store, quota ledger, provider chain, optimizer,
// orchestrator — and serves the HTTP API until interrupted.
func runServe(ctx context.Context, stdout io.Writer, stderr io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting searchhub", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure logger now that we know the desired level and format.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			level, _ = config.ParseLogLevel(cfg.LogLevel)
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"brave", cfg.Brave.Configured(),
		"optimizer_model", cfg.Optimizer.Model,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	store, ledger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	runtime := settings.NewRuntime(store, logger)
	applyRuntime(cfg, runtime)

	orch := buildOrchestrator(cfg, ledger, logger)

	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, orch, ledger, runtime, cfg.Brave.MonthlyLimit, logger)

	// NotifyContext wraps the parent context so that SIGINT/SIGTERM
	// cancellation flows through the same ctx used by all components.
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	// Start the API server. This blocks until the server is shut down
	// (via context cancellation or fatal error).
	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("searchhub stopped")
	return nil
}

// runSearch handles the "searchhub search <query>" subcommand. It runs
// one search through the full pipeline and prints the results. Useful
// for quick smoke tests and debugging without starting the server.
func runSearch(ctx context.Context, stdout io.Writer, configPath string, outputFmt string, args []string) error {
	// Logs go to stderr here so that results on stdout stay pipeable.
	logger := newLogger(os.Stderr, slog.LevelWarn, "text")

	query := strings.Join(args, " ")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, ledger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	applyRuntime(cfg, settings.NewRuntime(store, logger))

	orch := buildOrchestrator(cfg, ledger, logger)

	results := orch.Search(ctx, query, search.Options{
		MaxResults:       cfg.Search.MaxResults,
		MaxContentLength: cfg.Search.MaxContentLength,
		OptimizeQuery:    cfg.Search.OptimizeQuery,
		FetchFullContent: cfg.Search.FetchFullContent,
		MultiQuery:       cfg.Search.MultiQuery,
		ReRank:           *cfg.Search.ReRank,
	})

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	fmt.Fprintln(stdout, search.FormatResults(results))
	return nil
}

// runQuota handles the "searchhub quota" subcommand. It prints the
// month's API usage counters from the persisted ledger.
func runQuota(stdout io.Writer, configPath string, outputFmt string) error {
	logger := newLogger(os.Stderr, slog.LevelWarn, "text")

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store, ledger, err := openLedger(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	snapshot := ledger.Snapshot()
	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	}

	fmt.Fprintf(stdout, "Month: %s\n", ledger.Month())
	fmt.Fprintf(stdout, "Brave: %d of %d calls used (%d remaining)\n",
		ledger.Count("brave"),
		cfg.Brave.MonthlyLimit,
		ledger.Remaining("brave", cfg.Brave.MonthlyLimit),
	)
	if n := ledger.Count("searxng"); n > 0 {
		fmt.Fprintf(stdout, "SearXNG: %d calls this month\n", n)
	}
	return nil
}

// applyRuntime overlays persisted runtime setting overrides onto the
// file-based configuration. Settings changed through the API win over
// the config file across restarts.
func applyRuntime(cfg *config.Config, rt *settings.Runtime) {
	cfg.Search.MaxResults = rt.Int("max_results", cfg.Search.MaxResults)
	cfg.Search.MaxContentLength = rt.Int("max_content_length", cfg.Search.MaxContentLength)
	cfg.Search.DefaultLanguage = rt.String("default_language", cfg.Search.DefaultLanguage)
	cfg.Search.OptimizeQuery = rt.Bool("optimize_query", cfg.Search.OptimizeQuery)
	cfg.Search.FetchFullContent = rt.Bool("fetch_full_content", cfg.Search.FetchFullContent)
	cfg.Search.MultiQuery = rt.Bool("multi_query", cfg.Search.MultiQuery)
	reRank := rt.Bool("re_rank", *cfg.Search.ReRank)
	cfg.Search.ReRank = &reRank
	cfg.Brave.APIKey = rt.String("brave_api_key", cfg.Brave.APIKey)
	cfg.SearXNG.CustomInstance = rt.String("custom_instance", cfg.SearXNG.CustomInstance)
	cfg.SearXNG.Instances = rt.Strings("instances", cfg.SearXNG.Instances)
	cfg.Optimizer.Model = rt.String("optimizer_model", cfg.Optimizer.Model)
}

// loadConfig resolves the config file path (explicit flag value or the
// default search paths) and parses it. It returns the parsed config and
// the path it was loaded from.
func loadConfig(explicit string) (*config.Config, string, error) {
	path, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, path, nil
}

// openLedger opens the settings database under the configured data
// directory and loads the quota ledger from it.
func openLedger(cfg *config.Config, logger *slog.Logger) (*settings.Store, *quota.Ledger, error) {
	dbPath := filepath.Join(cfg.DataDir, "searchhub.db")
	store, err := settings.NewStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings database %s: %w", dbPath, err)
	}
	return store, quota.NewLedger(store, logger), nil
}

// buildOrchestrator assembles the provider chain (commercial tier
// first, then the self-hosted pool) and the optimizer from config.
func buildOrchestrator(cfg *config.Config, ledger *quota.Ledger, logger *slog.Logger) *search.Orchestrator {
	var providers []search.Provider
	if cfg.Brave.Configured() {
		providers = append(providers, search.NewBrave(cfg.Brave.APIKey, cfg.Brave.MonthlyLimit, ledger, logger))
	} else {
		logger.Info("no brave API key configured, using self-hosted instances only")
	}

	instances := cfg.SearXNG.Instances
	if len(instances) == 0 {
		instances = search.DefaultSearXNGInstances
	}
	if cfg.SearXNG.CustomInstance != "" {
		instances = append([]string{cfg.SearXNG.CustomInstance}, instances...)
	}
	providers = append(providers, search.NewSearXNG(instances, ledger, logger))

	chain := search.NewChain(logger, providers...)

	var optimizer *search.Optimizer
	if cfg.Optimizer.Model != "" {
		client := llm.NewOllamaClient(cfg.Optimizer.OllamaURL)
		optimizer = search.NewOptimizer(client, cfg.Optimizer.Model, logger)
	}

	return search.NewOrchestrator(chain, optimizer, logger, search.OrchestratorConfig{
		DefaultLanguage: cfg.Search.DefaultLanguage,
	})
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Command jadehall is the CLI for the Hall of Jade Manuscripts consistency
// engine: import chapter manuscripts, scan for story-graph gaps, propose
// connections, score extraction trust, validate chapter transitions, and
// serve the whole engine over MCP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/autolink"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/config"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/gaps"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/ingest"
	jademcp "github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/mcp"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/observe"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/store"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/transition"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/trust"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "import":
		err = runImport(os.Args[2:])
	case "gaps":
		err = runGaps(os.Args[2:])
	case "connections":
		err = runConnections(os.Args[2:])
	case "trust":
		err = runTrust(os.Args[2:])
	case "transition":
		err = runTransition(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("jadehall %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are the flags every subcommand understands.
type commonFlags struct {
	dbPath     string
	configPath string
	chapter    int
	recursive  bool
	dryRun     bool
	jsonOut    bool
	rest       []string
}

func parseFlags(args []string) (commonFlags, error) {
	var f commonFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--recursive" || arg == "-r":
			f.recursive = true
		case arg == "--dry-run" || arg == "-n":
			f.dryRun = true
		case arg == "--json":
			f.jsonOut = true
		case arg == "--db":
			if i+1 >= len(args) {
				return f, fmt.Errorf("--db requires a path")
			}
			i++
			f.dbPath = args[i]
		case arg == "--config":
			if i+1 >= len(args) {
				return f, fmt.Errorf("--config requires a path")
			}
			i++
			f.configPath = args[i]
		case arg == "--chapter":
			if i+1 >= len(args) {
				return f, fmt.Errorf("--chapter requires a number")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return f, fmt.Errorf("invalid chapter number %q", args[i])
			}
			f.chapter = n
		case strings.HasPrefix(arg, "-"):
			return f, fmt.Errorf("unknown flag: %s", arg)
		default:
			f.rest = append(f.rest, arg)
		}
	}
	return f, nil
}

func openStore(f commonFlags) (*store.Store, error) {
	cfg, err := config.Resolve(config.ResolveOptions{
		ConfigPath: f.configPath,
		CLIDBPath:  f.dbPath,
	})
	if err != nil {
		return nil, err
	}
	return store.Open(store.Config{DBPath: cfg.DBPath.Value})
}

func runImport(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: jadehall import <path> [--recursive] [--dry-run]")
	}

	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	if f.dryRun {
		fmt.Println("Dry run mode: no changes will be written")
	}

	engine := ingest.NewEngine(s)
	ctx := context.Background()
	total := &ingest.Result{}

	for _, path := range f.rest {
		fmt.Printf("Importing %s...\n", path)
		res, err := engine.ImportPath(ctx, path, ingest.Options{
			Recursive: f.recursive,
			DryRun:    f.dryRun,
			ProgressFn: func(current, totalFiles int, file string) {
				fmt.Printf("  [%d/%d] %s\n", current, totalFiles, file)
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
			continue
		}
		total.Add(res)
	}

	fmt.Println()
	fmt.Print(ingest.FormatResult(total))
	return nil
}

func runGaps(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	current := f.chapter
	if current == 0 {
		for i := range state.Chapters {
			if state.Chapters[i].Number > current {
				current = state.Chapters[i].Number
			}
		}
	}

	analysis := gaps.Analyze(state, current)
	if err := s.LogAnalysis(ctx, store.AnalysisGaps, current, analysis.Summary.Total, analysis.Summary); err != nil {
		return err
	}

	if f.jsonOut {
		return printJSON(analysis)
	}
	for _, g := range analysis.Gaps {
		fmt.Printf("[%s] %s: %s\n", g.Severity, g.Type, g.Message)
		fmt.Printf("        %s (confidence %.2f)\n", g.Suggestion, g.Confidence)
	}
	fmt.Println()
	for _, r := range analysis.Recommendations {
		fmt.Println(r)
	}
	return nil
}

func runConnections(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: jadehall connections <chapter-number>")
	}
	num, err := strconv.Atoi(f.rest[0])
	if err != nil {
		return fmt.Errorf("invalid chapter number %q", f.rest[0])
	}

	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	ch := findChapter(state.Chapters, num)
	if ch == nil {
		return fmt.Errorf("chapter %d not found", num)
	}

	res := autolink.Analyze(state, *ch, ch.Scenes, nil, nil)
	if err := s.LogAnalysis(ctx, store.AnalysisConnections, num, len(res.Connections), res); err != nil {
		return err
	}

	if f.jsonOut {
		return printJSON(res)
	}
	for _, c := range res.Connections {
		fmt.Printf("%-18s %s -> %s  (%.2f)  %s\n", c.Type, c.SourceName, c.TargetName, c.Confidence, c.Reason)
	}
	fmt.Println()
	for _, line := range res.Suggestions {
		fmt.Println(line)
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}

func runTrust(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: jadehall trust <extraction.json> [--chapter N]")
	}

	raw, err := os.ReadFile(f.rest[0])
	if err != nil {
		return fmt.Errorf("reading extraction: %w", err)
	}
	var extraction trust.Extraction
	if err := json.Unmarshal(raw, &extraction); err != nil {
		return fmt.Errorf("parsing extraction JSON: %w", err)
	}

	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}

	var opts *trust.PreviewOpts
	if f.chapter > 0 {
		if ch := findChapter(state.Chapters, f.chapter); ch != nil {
			opts = &trust.PreviewOpts{Novel: state, NewChapter: ch, Scenes: ch.Scenes}
		}
	}

	preview := trust.GeneratePreview(extraction, state, opts)
	score := trust.CalculateTrustScore(preview)
	if err := s.LogAnalysis(ctx, store.AnalysisTrust, f.chapter, score.Overall, score); err != nil {
		return err
	}

	if f.jsonOut {
		return printJSON(map[string]any{"preview": preview, "trust_score": score})
	}
	fmt.Printf("Trust score: %d/100 (extraction %d, connections %d, completeness %d, consistency %d)\n",
		score.Overall, score.ExtractionQuality, score.ConnectionQuality, score.DataCompleteness, score.ConsistencyScore)
	for _, line := range trust.ExplainTrustScore(score) {
		fmt.Println(line)
	}
	for _, ep := range preview.All() {
		marker := " "
		if ep.CanAutoApply {
			marker = "*"
		}
		fmt.Printf(" %s %-7s %-30s %.2f  %s\n", marker, ep.Action, ep.Name, ep.Confidence, strings.Join(ep.Warnings, "; "))
	}
	return nil
}

func runTransition(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if len(f.rest) == 0 {
		return fmt.Errorf("usage: jadehall transition <chapter-number>")
	}
	num, err := strconv.Atoi(f.rest[0])
	if err != nil {
		return fmt.Errorf("invalid chapter number %q", f.rest[0])
	}

	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	ctx := context.Background()
	state, err := s.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	next := findChapter(state.Chapters, num)
	if next == nil {
		return fmt.Errorf("chapter %d not found", num)
	}
	prev := findChapter(state.Chapters, num-1)
	if prev == nil {
		fmt.Println("First chapter; nothing to compare against.")
		return nil
	}

	res := transition.Validate(*prev, *next)
	if err := s.LogAnalysis(ctx, store.AnalysisTransition, num, res.Score, res); err != nil {
		return err
	}

	if f.jsonOut {
		return printJSON(res)
	}
	verdict := "PASS"
	if !res.IsValid {
		verdict = "FAIL"
	}
	fmt.Printf("Transition %d -> %d: %s (score %d/100)\n", prev.Number, next.Number, verdict, res.Score)
	for _, is := range res.Issues {
		fmt.Printf("  [%s] %s: %s\n", is.Severity, is.Type, is.Description)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	for _, sg := range res.Suggestions {
		fmt.Printf("  suggestion: %s\n", sg)
	}
	return nil
}

func runStats(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	stats, err := observe.NewEngine(s).Stats(context.Background())
	if err != nil {
		return err
	}
	if f.jsonOut {
		return printJSON(stats)
	}
	fmt.Print(observe.Format(stats))
	return nil
}

func runServe(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	s, err := openStore(f)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	srv := jademcp.NewServer(jademcp.ServerConfig{Store: s, Version: version})
	return server.ServeStdio(srv)
}

func findChapter(chapters []story.Chapter, num int) *story.Chapter {
	for i := range chapters {
		if chapters[i].Number == num {
			return &chapters[i]
		}
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func printUsage() {
	fmt.Println(`jadehall - narrative consistency engine for long-form fiction

Usage:
  jadehall import <path> [--recursive] [--dry-run]   Import chapter manuscripts
  jadehall gaps [--chapter N] [--json]               Scan for story-graph gaps
  jadehall connections <chapter> [--json]            Propose connections for a chapter
  jadehall trust <extraction.json> [--chapter N]     Score an extraction payload
  jadehall transition <chapter> [--json]             Validate chapter continuity
  jadehall stats [--json]                            Workspace statistics
  jadehall serve                                     Serve the engine over MCP (stdio)
  jadehall version                                   Print version

Flags:
  --db <path>       Workspace database (default ~/.jadehall/novel.db)
  --config <path>   Config file (default ~/.jadehall/config.yaml)`)
}

// Package mcp exposes the consistency engine over the Model Context
// Protocol so authoring agents can query story gaps, preview extractions,
// propose connections, and validate chapter transitions.
//
// Stdio transport only; the server wraps a single workspace store.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/autolink"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/gaps"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/observe"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/store"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/transition"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/trust"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   *store.Store
	Version string
}

// dbMu serializes tool calls that touch the database. The mcp-go library
// dispatches handlers concurrently and SQLite wants one writer at a time.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all story tools.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}

	s := server.NewMCPServer(
		"Hall of Jade Manuscripts",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerGapsTool(s, cfg.Store)
	registerConnectionsTool(s, cfg.Store)
	registerTrustPreviewTool(s, cfg.Store)
	registerTransitionTool(s, cfg.Store)
	registerImportChapterTool(s, cfg.Store)
	registerStatsTool(s, cfg.Store)

	registerStatsResource(s, cfg.Store)
	return s
}

func registerGapsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_gaps",
		mcp.WithDescription("Scan the story graph for structural gaps: orphaned characters, missing relationships, entities outside the active arc, thin world entries."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("current_chapter",
			mcp.Description("Chapter number to analyze at (default: latest chapter)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		state, err := st.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}

		current := latestChapter(state)
		if v, err := req.RequireFloat("current_chapter"); err == nil && int(v) > 0 {
			current = int(v)
		}

		analysis := gaps.Analyze(state, current)
		data, _ := json.MarshalIndent(analysis, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerConnectionsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_connections",
		mcp.WithDescription("Propose typed connections (character-scene, character-arc, item-arc, antagonist-arc, relationships) for a chapter, each with confidence and reason."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("chapter_number",
			mcp.Required(),
			mcp.Description("Chapter to analyze"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		num, err := req.RequireFloat("chapter_number")
		if err != nil {
			return mcp.NewToolResultError("chapter_number is required"), nil
		}

		state, err := st.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}
		ch := chapterByNumber(state, int(num))
		if ch == nil {
			return mcp.NewToolResultError(fmt.Sprintf("chapter %d not found", int(num))), nil
		}

		res := autolink.Analyze(state, *ch, ch.Scenes, nil, nil)
		if err := st.LogAnalysis(ctx, store.AnalysisConnections, ch.Number, len(res.Connections), res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("logging analysis: %v", err)), nil
		}

		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerTrustPreviewTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_trust_preview",
		mcp.WithDescription("Preview an LLM extraction payload against current story state: create/update/merge decisions, per-entity confidence, warnings, auto-apply eligibility, and an aggregate trust score."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("extraction",
			mcp.Required(),
			mcp.Description("Extraction payload as JSON (character_upserts, item_updates, technique_updates, antagonist_updates, scenes, world_entry_upserts)"),
		),
		mcp.WithNumber("chapter_number",
			mcp.Description("New chapter the extraction came from; enables connection previews"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		raw, err := req.RequireString("extraction")
		if err != nil {
			return mcp.NewToolResultError("extraction is required"), nil
		}
		var extraction trust.Extraction
		if err := json.Unmarshal([]byte(raw), &extraction); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid extraction JSON: %v", err)), nil
		}

		state, err := st.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}

		var opts *trust.PreviewOpts
		chapterNumber := 0
		if v, err := req.RequireFloat("chapter_number"); err == nil && int(v) > 0 {
			if ch := chapterByNumber(state, int(v)); ch != nil {
				chapterNumber = ch.Number
				opts = &trust.PreviewOpts{Novel: state, NewChapter: ch, Scenes: ch.Scenes}
			}
		}

		preview := trust.GeneratePreview(extraction, state, opts)
		score := trust.CalculateTrustScore(preview)

		if err := st.LogAnalysis(ctx, store.AnalysisTrust, chapterNumber, score.Overall, score); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("logging analysis: %v", err)), nil
		}

		payload := map[string]any{
			"preview":     preview,
			"trust_score": score,
			"explanation": trust.ExplainTrustScore(score),
		}
		data, _ := json.MarshalIndent(payload, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerTransitionTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_transition",
		mcp.WithDescription("Validate narrative continuity between a chapter and its predecessor: time skips, location jumps, character continuity, cliche openings."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("chapter_number",
			mcp.Required(),
			mcp.Description("Chapter whose opening should be validated against the previous chapter"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		num, err := req.RequireFloat("chapter_number")
		if err != nil {
			return mcp.NewToolResultError("chapter_number is required"), nil
		}

		state, err := st.Snapshot(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading snapshot: %v", err)), nil
		}
		next := chapterByNumber(state, int(num))
		if next == nil {
			return mcp.NewToolResultError(fmt.Sprintf("chapter %d not found", int(num))), nil
		}
		prev := chapterByNumber(state, int(num)-1)
		if prev == nil {
			return mcp.NewToolResultText(`{"is_valid": true, "score": 100, "note": "first chapter; nothing to compare against"}`), nil
		}

		res := transition.Validate(*prev, *next)
		if err := st.LogAnalysis(ctx, store.AnalysisTransition, next.Number, res.Score, res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("logging analysis: %v", err)), nil
		}

		data, _ := json.MarshalIndent(res, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerImportChapterTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_import_chapter",
		mcp.WithDescription("Insert or update a chapter in the workspace by number."),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("number",
			mcp.Required(),
			mcp.Description("Chapter number (monotonic within the novel)"),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Chapter prose"),
		),
		mcp.WithString("title",
			mcp.Description("Chapter title"),
		),
		mcp.WithString("summary",
			mcp.Description("Chapter summary"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		num, err := req.RequireFloat("number")
		if err != nil || int(num) <= 0 {
			return mcp.NewToolResultError("number must be a positive chapter number"), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return mcp.NewToolResultError("content is required"), nil
		}

		ch := story.Chapter{Number: int(num), Content: content}
		if title, err := req.RequireString("title"); err == nil {
			ch.Title = title
		}
		if summary, err := req.RequireString("summary"); err == nil {
			ch.Summary = summary
		}

		if err := st.UpsertChapter(ctx, &ch); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("upserting chapter: %v", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(`{"chapter_id": %q, "number": %d}`, ch.ID, ch.Number)), nil
	})
}

func registerStatsTool(s *server.MCPServer, st *store.Store) {
	tool := mcp.NewTool("story_stats",
		mcp.WithDescription("Workspace statistics: entity counts, word totals, gap summary, average trust and transition scores, health alerts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := observe.NewEngine(st).Stats(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("computing stats: %v", err)), nil
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return mcp.NewToolResultText(string(data)), nil
	})
}

func registerStatsResource(s *server.MCPServer, st *store.Store) {
	resource := mcp.NewResource(
		"story://stats",
		"Workspace Statistics",
		mcp.WithResourceDescription("Entity counts, gap summary, and health alerts for the novel workspace."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		stats, err := observe.NewEngine(st).Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("computing stats resource: %w", err)
		}
		data, _ := json.MarshalIndent(stats, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

func latestChapter(state *story.NovelState) int {
	max := 0
	for i := range state.Chapters {
		if state.Chapters[i].Number > max {
			max = state.Chapters[i].Number
		}
	}
	return max
}

func chapterByNumber(state *story.NovelState, number int) *story.Chapter {
	for i := range state.Chapters {
		if state.Chapters[i].Number == number {
			return &state.Chapters[i]
		}
	}
	return nil
}

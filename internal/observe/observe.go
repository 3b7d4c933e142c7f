// Package observe reports on workspace health: what the story graph
// contains, how trustworthy recent extractions were, and which structural
// alerts deserve attention before the next chapter is generated.
package observe

import (
	"context"
	"fmt"
	"strings"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/gaps"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/store"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// Stats holds aggregate workspace statistics.
type Stats struct {
	Counts             map[string]int64 `json:"counts"`
	ChapterCount       int              `json:"chapter_count"`
	LatestChapter      int              `json:"latest_chapter"`
	TotalWords         int              `json:"total_words"`
	AvgTrustScore      float64          `json:"avg_trust_score"`
	AvgTransitionScore float64          `json:"avg_transition_score"`
	GapSummary         gaps.Summary     `json:"gap_summary"`
	Alerts             []string         `json:"alerts,omitempty"`
}

// Engine computes workspace statistics.
type Engine struct {
	store *store.Store
}

// NewEngine creates an observability engine over a store.
func NewEngine(st *store.Store) *Engine {
	return &Engine{store: st}
}

// Stats loads a snapshot and summarizes it.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	counts, err := e.store.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting rows: %w", err)
	}

	state, err := e.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}

	out := &Stats{
		Counts:       counts,
		ChapterCount: len(state.Chapters),
	}
	for i := range state.Chapters {
		ch := &state.Chapters[i]
		if ch.Number > out.LatestChapter {
			out.LatestChapter = ch.Number
		}
		out.TotalWords += len(strings.Fields(ch.Content))
	}

	if out.AvgTrustScore, err = e.store.AverageAnalysisScore(ctx, store.AnalysisTrust); err != nil {
		return nil, err
	}
	if out.AvgTransitionScore, err = e.store.AverageAnalysisScore(ctx, store.AnalysisTransition); err != nil {
		return nil, err
	}

	out.GapSummary = gaps.Analyze(state, out.LatestChapter).Summary
	out.Alerts = alerts(state, out)
	return out, nil
}

func alerts(state *story.NovelState, s *Stats) []string {
	var out []string
	if len(state.Chapters) == 0 {
		out = append(out, "workspace has no chapters yet")
		return out
	}
	if state.Protagonist() == nil {
		out = append(out, "no character is flagged as protagonist")
	}
	if state.ActiveArc() == nil {
		out = append(out, "no arc is marked active; arc linking is disabled")
	}
	if s.GapSummary.Critical > 0 {
		out = append(out, fmt.Sprintf("%d critical structural gap(s) detected", s.GapSummary.Critical))
	}
	if s.AvgTrustScore > 0 && s.AvgTrustScore < 60 {
		out = append(out, fmt.Sprintf("average extraction trust is low (%.0f/100)", s.AvgTrustScore))
	}
	return out
}

// Format renders stats for the CLI.
func Format(s *Stats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chapters:       %d (latest: %d, %d words)\n", s.ChapterCount, s.LatestChapter, s.TotalWords)
	fmt.Fprintf(&sb, "Characters:     %d (%d relationships)\n", s.Counts["characters"], s.Counts["relationships"])
	fmt.Fprintf(&sb, "Items:          %d\n", s.Counts["items"])
	fmt.Fprintf(&sb, "Techniques:     %d\n", s.Counts["techniques"])
	fmt.Fprintf(&sb, "Antagonists:    %d\n", s.Counts["antagonists"])
	fmt.Fprintf(&sb, "World entries:  %d\n", s.Counts["world_entries"])
	fmt.Fprintf(&sb, "Arcs:           %d\n", s.Counts["arcs"])
	fmt.Fprintf(&sb, "Gaps:           %d (%d critical, %d warning, %d info)\n",
		s.GapSummary.Total, s.GapSummary.Critical, s.GapSummary.Warnings, s.GapSummary.Info)
	if s.AvgTrustScore > 0 {
		fmt.Fprintf(&sb, "Avg trust:      %.0f/100\n", s.AvgTrustScore)
	}
	if s.AvgTransitionScore > 0 {
		fmt.Fprintf(&sb, "Avg transition: %.0f/100\n", s.AvgTransitionScore)
	}
	for _, a := range s.Alerts {
		fmt.Fprintf(&sb, "! %s\n", a)
	}
	return sb.String()
}

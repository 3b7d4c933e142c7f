package observe

import (
	"context"
	"strings"
	"testing"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/store"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStats_EmptyWorkspace(t *testing.T) {
	st := testStore(t)
	stats, err := NewEngine(st).Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChapterCount != 0 || stats.TotalWords != 0 {
		t.Errorf("empty workspace stats = %+v", stats)
	}
	if len(stats.Alerts) != 1 || !strings.Contains(stats.Alerts[0], "no chapters") {
		t.Errorf("Alerts = %v, want only the no-chapters alert", stats.Alerts)
	}
}

func TestStats_PopulatedWorkspace(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	c := story.Character{Name: "Mei Lin", IsProtagonist: true}
	if err := st.UpsertCharacter(ctx, &c); err != nil {
		t.Fatal(err)
	}
	arc := story.Arc{Title: "Sect Trials", StartedAtChapter: 1}
	if err := st.UpsertArc(ctx, &arc); err != nil {
		t.Fatal(err)
	}
	for i, content := range []string{"Mei Lin arrived at the gate.", "Mei Lin climbed higher."} {
		ch := story.Chapter{Number: i + 1, Content: content}
		if err := st.UpsertChapter(ctx, &ch); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.LogAnalysis(ctx, store.AnalysisTrust, 2, 88, nil); err != nil {
		t.Fatal(err)
	}
	if err := st.LogAnalysis(ctx, store.AnalysisTransition, 2, 100, nil); err != nil {
		t.Fatal(err)
	}

	stats, err := NewEngine(st).Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.ChapterCount != 2 || stats.LatestChapter != 2 {
		t.Errorf("chapters = %d latest = %d", stats.ChapterCount, stats.LatestChapter)
	}
	if stats.TotalWords != 10 {
		t.Errorf("TotalWords = %d, want 10", stats.TotalWords)
	}
	if stats.AvgTrustScore != 88 {
		t.Errorf("AvgTrustScore = %.1f, want 88", stats.AvgTrustScore)
	}
	if len(stats.Alerts) != 0 {
		t.Errorf("Alerts = %v, want none", stats.Alerts)
	}
}

func TestFormat_IncludesAlerts(t *testing.T) {
	s := &Stats{Counts: map[string]int64{}, Alerts: []string{"no character is flagged as protagonist"}}
	out := Format(s)
	if !strings.Contains(out, "! no character is flagged as protagonist") {
		t.Errorf("Format output missing alert:\n%s", out)
	}
}

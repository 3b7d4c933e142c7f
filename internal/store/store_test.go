package store

import (
	"context"
	"testing"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertCharacter_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := story.Character{Name: "Mei Lin", IsProtagonist: true, Personality: "stubborn"}
	if err := s.UpsertCharacter(ctx, &c); err != nil {
		t.Fatalf("UpsertCharacter: %v", err)
	}
	if c.ID == "" {
		t.Fatal("ID must be filled in on insert")
	}

	// Same name, different case: must reuse the existing row.
	again := story.Character{Name: "mei lin", Personality: "calmer now"}
	if err := s.UpsertCharacter(ctx, &again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if again.ID != c.ID {
		t.Errorf("second upsert created a new row: %s vs %s", again.ID, c.ID)
	}

	state, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(state.Characters) != 1 {
		t.Fatalf("characters = %d, want 1", len(state.Characters))
	}
	if state.Characters[0].Personality != "calmer now" {
		t.Errorf("Personality = %q, want the updated value", state.Characters[0].Personality)
	}
}

func TestUpsertCharacter_EmptyName(t *testing.T) {
	s := testStore(t)
	err := s.UpsertCharacter(context.Background(), &story.Character{Name: "   "})
	if err == nil {
		t.Fatal("blank name must be rejected")
	}
}

func TestAddRelationship_Dedup(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := story.Character{Name: "Mei Lin"}
	if err := s.UpsertCharacter(ctx, &c); err != nil {
		t.Fatal(err)
	}
	rel := story.Relationship{Type: "rival", TargetName: "Wu Kang"}
	if err := s.AddRelationship(ctx, c.ID, rel); err != nil {
		t.Fatalf("AddRelationship: %v", err)
	}
	if err := s.AddRelationship(ctx, c.ID, rel); err != nil {
		t.Fatalf("duplicate AddRelationship: %v", err)
	}

	state, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := len(state.Characters[0].Relationships); got != 1 {
		t.Errorf("relationships = %d, want 1 after dedup", got)
	}
}

func TestUpsertChapter_ReplacesScenes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ch := story.Chapter{Number: 1, Title: "Arrival", Content: "Mei Lin arrived.", Scenes: []story.Scene{
		{Number: 1, Title: "Gate", Content: "She passed the gate."},
		{Number: 2, Title: "Hall", Content: "She entered the hall."},
	}}
	if err := s.UpsertChapter(ctx, &ch); err != nil {
		t.Fatalf("UpsertChapter: %v", err)
	}

	// Re-import the same chapter number with one scene.
	revised := story.Chapter{Number: 1, Title: "Arrival, revised", Content: "Mei Lin arrived late.", Scenes: []story.Scene{
		{Number: 1, Title: "Gate", Content: "She slipped past the gate."},
	}}
	if err := s.UpsertChapter(ctx, &revised); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if revised.ID != ch.ID {
		t.Errorf("chapter number must key identity: %s vs %s", revised.ID, ch.ID)
	}

	state, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Chapters) != 1 {
		t.Fatalf("chapters = %d, want 1", len(state.Chapters))
	}
	got := state.Chapters[0]
	if got.Title != "Arrival, revised" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Scenes) != 1 {
		t.Errorf("scenes = %d, want 1 after wholesale replace", len(got.Scenes))
	}
}

func TestUpsertChapter_RejectsNonPositiveNumber(t *testing.T) {
	s := testStore(t)
	if err := s.UpsertChapter(context.Background(), &story.Chapter{Number: 0}); err == nil {
		t.Fatal("chapter number 0 must be rejected")
	}
}

func TestSnapshot_AttachesLinks(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	c := story.Character{Name: "Mei Lin"}
	if err := s.UpsertCharacter(ctx, &c); err != nil {
		t.Fatal(err)
	}
	it := story.Item{Name: "Jade Flute", FirstAppearedChapter: 1}
	if err := s.UpsertItem(ctx, &it); err != nil {
		t.Fatal(err)
	}
	tech := story.Technique{Name: "Crane Step", FirstAppearedChapter: 1}
	if err := s.UpsertTechnique(ctx, &tech); err != nil {
		t.Fatal(err)
	}
	arc := story.Arc{Title: "Sect Trials", StartedAtChapter: 1}
	if err := s.UpsertArc(ctx, &arc); err != nil {
		t.Fatal(err)
	}
	ant := story.Antagonist{Name: "Hei Long", FirstAppearedChapter: 1}
	if err := s.UpsertAntagonist(ctx, &ant); err != nil {
		t.Fatal(err)
	}

	if err := s.AddPossession(ctx, c.ID, it.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.AddMastery(ctx, c.ID, tech.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkArc(ctx, arc.ID, "character", c.ID); err != nil {
		t.Fatal(err)
	}
	if err := s.LinkArc(ctx, arc.ID, "antagonist", ant.ID); err != nil {
		t.Fatal(err)
	}

	state, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := state.Characters[0]
	if len(got.Possessions) != 1 || got.Possessions[0] != it.ID {
		t.Errorf("Possessions = %v", got.Possessions)
	}
	if len(got.MasteredTechniques) != 1 || got.MasteredTechniques[0] != tech.ID {
		t.Errorf("MasteredTechniques = %v", got.MasteredTechniques)
	}
	if len(got.ArcAssociations) != 1 || got.ArcAssociations[0] != arc.ID {
		t.Errorf("ArcAssociations = %v", got.ArcAssociations)
	}
	if len(state.Antagonists) != 1 || len(state.Antagonists[0].ArcAssociations) != 1 {
		t.Errorf("antagonist arc links = %+v", state.Antagonists)
	}
	if state.PlotLedger[0].Status != story.ArcStatusActive {
		t.Errorf("arc status defaulted to %q", state.PlotLedger[0].Status)
	}
}

func TestAnalysisLog(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.LogAnalysis(ctx, AnalysisTrust, 3, 85, map[string]int{"x": 1}); err != nil {
		t.Fatalf("LogAnalysis: %v", err)
	}
	if err := s.LogAnalysis(ctx, AnalysisTrust, 4, 95, nil); err != nil {
		t.Fatalf("second LogAnalysis: %v", err)
	}
	if err := s.LogAnalysis(ctx, AnalysisGaps, 4, 2, nil); err != nil {
		t.Fatalf("gaps LogAnalysis: %v", err)
	}

	recent, err := s.RecentAnalyses(ctx, AnalysisTrust, 5)
	if err != nil {
		t.Fatalf("RecentAnalyses: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("records = %d, want 2", len(recent))
	}
	if recent[0].Score != 95 {
		t.Errorf("newest first: got score %d", recent[0].Score)
	}

	avg, err := s.AverageAnalysisScore(ctx, AnalysisTrust)
	if err != nil {
		t.Fatalf("AverageAnalysisScore: %v", err)
	}
	if avg != 90 {
		t.Errorf("average = %.1f, want 90", avg)
	}

	counts, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts["analysis_log"] != 3 {
		t.Errorf("analysis_log count = %d, want 3", counts["analysis_log"])
	}
}

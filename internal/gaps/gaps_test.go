package gaps

import (
	"testing"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

func chapterWith(number int, content string) story.Chapter {
	return story.Chapter{ID: "ch", Number: number, Content: content}
}

func countByType(a Analysis, t GapType) int {
	n := 0
	for _, g := range a.Gaps {
		if g.Type == t {
			n++
		}
	}
	return n
}

func TestAnalyze_MissingProtagonist(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{{ID: "c1", Name: "Wu Kang"}},
	}
	a := Analyze(state, 1)
	if countByType(a, GapMissingProtagonist) != 1 {
		t.Fatal("expected a missing-protagonist gap")
	}
	if a.Summary.Critical != 1 {
		t.Errorf("Critical = %d, want 1", a.Summary.Critical)
	}
}

func TestAnalyze_ProtagonistPresent(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{{ID: "c1", Name: "Mei Lin", IsProtagonist: true}},
	}
	a := Analyze(state, 1)
	if countByType(a, GapMissingProtagonist) != 0 {
		t.Error("protagonist is set; no gap expected")
	}
}

func TestAnalyze_OrphanedCharacter(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true},
			{ID: "c2", Name: "Wu Kang"},
			{ID: "c3", Name: "Silent Ghost"}, // never appears in prose
		},
		Chapters: []story.Chapter{chapterWith(1, "Wu Kang crossed the courtyard.")},
	}
	a := Analyze(state, 1)
	if got := countByType(a, GapOrphanedCharacter); got != 1 {
		t.Fatalf("orphaned-character gaps = %d, want 1", got)
	}
	for _, g := range a.Gaps {
		if g.Type == GapOrphanedCharacter {
			if g.EntityName != "Wu Kang" {
				t.Errorf("orphan = %q, want Wu Kang", g.EntityName)
			}
			if !g.AutoFixable {
				t.Error("orphaned-character should be auto-fixable")
			}
		}
	}
}

func TestAnalyze_MissingRelationship(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true},
			{ID: "c2", Name: "Wu Kang"},
		},
		Chapters: []story.Chapter{
			chapterWith(1, "Mei Lin sparred with Wu Kang."),
			chapterWith(2, "Wu Kang followed Mei Lin into the valley."),
			chapterWith(3, "Mei Lin and Wu Kang rested."),
		},
	}
	a := Analyze(state, 3)
	if got := countByType(a, GapMissingRelationship); got != 1 {
		t.Fatalf("missing-relationship gaps = %d, want 1 (pairs must dedupe)", got)
	}
	for _, g := range a.Gaps {
		if g.Type == GapMissingRelationship {
			// 3 co-appearances: min(0.8, 0.5+0.1*3)
			if g.Confidence != 0.8 {
				t.Errorf("confidence = %.2f, want 0.80", g.Confidence)
			}
		}
	}
}

func TestAnalyze_MissingRelationship_BelowThreshold(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true},
			{ID: "c2", Name: "Wu Kang"},
		},
		Chapters: []story.Chapter{
			chapterWith(1, "Mei Lin sparred with Wu Kang."),
			chapterWith(2, "Wu Kang followed Mei Lin."),
		},
	}
	a := Analyze(state, 2)
	if countByType(a, GapMissingRelationship) != 0 {
		t.Error("two co-appearances must not trigger the check")
	}
}

func TestAnalyze_MissingRelationship_AlreadyRecorded(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true, Relationships: []story.Relationship{
				{CharacterID: "c1", Type: "rival", TargetName: "wu kang"},
			}},
			{ID: "c2", Name: "Wu Kang"},
		},
		Chapters: []story.Chapter{
			chapterWith(1, "Mei Lin sparred with Wu Kang."),
			chapterWith(2, "Wu Kang followed Mei Lin."),
			chapterWith(3, "Mei Lin and Wu Kang rested."),
		},
	}
	a := Analyze(state, 3)
	if countByType(a, GapMissingRelationship) != 0 {
		t.Error("relationship already exists (case-insensitive); no gap expected")
	}
}

func TestAnalyze_OrphanedItemAndTechnique(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true, Possessions: []string{"i2"}, MasteredTechniques: []string{"t2"}},
		},
		Items: []story.Item{
			{ID: "i1", Name: "Jade Flute", FirstAppearedChapter: 2},
			{ID: "i2", Name: "Iron Ring", FirstAppearedChapter: 1},
			{ID: "i3", Name: "Unseen Mirror"}, // never appeared
		},
		Techniques: []story.Technique{
			{ID: "t1", Name: "Crane Step", FirstAppearedChapter: 2},
			{ID: "t2", Name: "Iron Palm", FirstAppearedChapter: 1},
		},
	}
	a := Analyze(state, 2)
	if got := countByType(a, GapOrphanedItem); got != 1 {
		t.Errorf("orphaned-item gaps = %d, want 1", got)
	}
	if got := countByType(a, GapOrphanedTechnique); got != 1 {
		t.Errorf("orphaned-technique gaps = %d, want 1", got)
	}
}

func TestAnalyze_ArcAssociations(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true},
			{ID: "c2", Name: "Wu Kang"},
			{ID: "c3", Name: "Feng Rui", ArcAssociations: []string{"arc1"}},
		},
		Antagonists: []story.Antagonist{
			{ID: "a1", Name: "Hei Long", Status: "active", FirstAppearedChapter: 6},
			{ID: "a2", Name: "Gone Shade", Status: "defeated", FirstAppearedChapter: 7},
		},
		PlotLedger: []story.Arc{
			{ID: "arc1", Title: "Sect Trials", Status: story.ArcStatusActive, StartedAtChapter: 5},
		},
		Chapters: []story.Chapter{
			chapterWith(6, "Wu Kang faced Hei Long while Feng Rui watched."),
		},
	}
	a := Analyze(state, 6)
	if got := countByType(a, GapCharacterWithoutArc); got != 1 {
		t.Errorf("character-without-arc gaps = %d, want 1 (protagonist and associated skip)", got)
	}
	if got := countByType(a, GapAntagonistWithoutArc); got != 1 {
		t.Errorf("antagonist-without-arc gaps = %d, want 1 (defeated skips)", got)
	}
}

func TestAnalyze_NoActiveArcSkipsArcChecks(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{
			{ID: "c1", Name: "Mei Lin", IsProtagonist: true},
			{ID: "c2", Name: "Wu Kang"},
		},
		PlotLedger: []story.Arc{
			{ID: "arc1", Title: "Done", Status: "completed", StartedAtChapter: 1, EndedAtChapter: 4},
		},
		Chapters: []story.Chapter{chapterWith(5, "Wu Kang trained alone.")},
	}
	a := Analyze(state, 5)
	if countByType(a, GapCharacterWithoutArc) != 0 || countByType(a, GapAntagonistWithoutArc) != 0 {
		t.Error("arc checks must be skipped without an active arc")
	}
}

func TestAnalyze_IncompleteWorldEntry(t *testing.T) {
	long := "The Azure Peak Sect sits on the eastern range and trains sword cultivators from across the province."
	state := &story.NovelState{
		Characters: []story.Character{{ID: "c1", Name: "Mei Lin", IsProtagonist: true}},
		WorldEntries: []story.WorldEntry{
			{ID: "w1", Title: "Azure Peak Sect", Content: long},
			{ID: "w2", Title: "Mist Valley", Content: "Foggy."},
		},
	}
	a := Analyze(state, 1)
	if got := countByType(a, GapIncompleteWorldEntry); got != 1 {
		t.Fatalf("incomplete-world-entry gaps = %d, want 1", got)
	}
}

func TestAnalyze_OrphanedScene(t *testing.T) {
	longScene := "The market square filled with strangers haggling over spirit herbs, and nobody of note passed through the gates all morning while the rain kept falling."
	state := &story.NovelState{
		Characters: []story.Character{{ID: "c1", Name: "Mei Lin", IsProtagonist: true}},
		Chapters: []story.Chapter{
			{ID: "ch1", Number: 1, Content: "Mei Lin slept.", Scenes: []story.Scene{
				{ID: "s1", Title: "Market", Content: longScene},
				{ID: "s2", Title: "Short", Content: "Too short to judge."},
				{ID: "s3", Title: "Cast", Content: longScene + " Then Mei Lin arrived and the crowd parted for her without a word."},
			}},
		},
	}
	a := Analyze(state, 1)
	if got := countByType(a, GapOrphanedScene); got != 1 {
		t.Fatalf("orphaned-scene gaps = %d, want 1", got)
	}
}

func TestRecommend_CleanState(t *testing.T) {
	state := &story.NovelState{
		Characters: []story.Character{{ID: "c1", Name: "Mei Lin", IsProtagonist: true}},
	}
	a := Analyze(state, 0)
	if a.Summary.Total != 0 {
		t.Fatalf("expected clean analysis, got %d gaps", a.Summary.Total)
	}
	if len(a.Recommendations) != 1 {
		t.Fatalf("recommendations = %v", a.Recommendations)
	}
}

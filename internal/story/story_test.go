package story

import "testing"

func TestActiveArc_FirstActiveWins(t *testing.T) {
	s := &NovelState{PlotLedger: []Arc{
		{ID: "a1", Status: "completed"},
		{ID: "a2", Status: ArcStatusActive},
		{ID: "a3", Status: ArcStatusActive},
	}}
	arc := s.ActiveArc()
	if arc == nil || arc.ID != "a2" {
		t.Fatalf("ActiveArc = %+v, want a2", arc)
	}
}

func TestActiveArc_None(t *testing.T) {
	s := &NovelState{PlotLedger: []Arc{{ID: "a1", Status: "completed"}}}
	if s.ActiveArc() != nil {
		t.Error("expected nil without an active arc")
	}
}

func TestArcContains_OpenEnded(t *testing.T) {
	a := Arc{StartedAtChapter: 5}
	if a.Contains(4) {
		t.Error("chapter before the arc start must not be contained")
	}
	if !a.Contains(5) || !a.Contains(99) {
		t.Error("an open arc contains everything from its start")
	}
	closed := Arc{StartedAtChapter: 5, EndedAtChapter: 8}
	if closed.Contains(9) {
		t.Error("chapter after the arc end must not be contained")
	}
}

func TestRecentChapters_SortsDescendingWithoutMutating(t *testing.T) {
	s := &NovelState{Chapters: []Chapter{{Number: 2}, {Number: 5}, {Number: 1}, {Number: 4}}}
	got := s.RecentChapters(3)
	if len(got) != 3 || got[0].Number != 5 || got[1].Number != 4 || got[2].Number != 2 {
		t.Fatalf("RecentChapters = %+v", got)
	}
	if s.Chapters[0].Number != 2 {
		t.Error("snapshot order must be left untouched")
	}
}

func TestChaptersInRange(t *testing.T) {
	s := &NovelState{Chapters: []Chapter{{Number: 1}, {Number: 3}, {Number: 5}}}
	got := s.ChaptersInRange(2, 5)
	if len(got) != 2 || got[0].Number != 3 || got[1].Number != 5 {
		t.Fatalf("ChaptersInRange = %+v", got)
	}
}

func TestCharacterByName_Normalized(t *testing.T) {
	s := &NovelState{Characters: []Character{{ID: "c1", Name: "Mei Lin"}}}
	if c := s.CharacterByName("  mei lin "); c == nil || c.ID != "c1" {
		t.Error("lookup must trim and lowercase")
	}
	if s.CharacterByName("") != nil {
		t.Error("blank lookup must return nil")
	}
}

func TestHasRelationshipWith(t *testing.T) {
	c := Character{Relationships: []Relationship{{TargetName: "Wu Kang"}}}
	if !c.HasRelationshipWith(" wu kang ") {
		t.Error("comparison must be case-insensitive")
	}
	if c.HasRelationshipWith("Feng Rui") {
		t.Error("unrelated name must not match")
	}
}

func TestChapterText(t *testing.T) {
	ch := Chapter{Content: "body", Summary: "gist"}
	if ch.Text() != "body\ngist" {
		t.Errorf("Text() = %q", ch.Text())
	}
	if (&Chapter{Summary: "gist"}).Text() != "gist" {
		t.Error("summary-only chapter should return the summary")
	}
}

func TestSceneText_PrefersContent(t *testing.T) {
	sc := Scene{Content: "body", Summary: "gist"}
	if sc.Text() != "body" {
		t.Errorf("Text() = %q", sc.Text())
	}
	empty := Scene{Content: "   ", Summary: "gist"}
	if empty.Text() != "gist" {
		t.Error("blank content should fall back to the summary")
	}
}

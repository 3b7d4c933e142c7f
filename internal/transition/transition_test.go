package transition

import (
	"strings"
	"testing"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

func hasIssue(r Result, t IssueType) bool {
	for _, is := range r.Issues {
		if is.Type == t {
			return true
		}
	}
	return false
}

func TestValidate_CleanContinuation(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin sheathed her sword and looked toward the distant peak. The climb would be long."}
	next := story.Chapter{Number: 5, Content: "Then Mei Lin gathered her pack and set out before the others stirred."}

	res := Validate(prev, next)
	if !res.IsValid {
		t.Fatalf("clean continuation rejected: %+v", res)
	}
	if res.Score != 100 {
		t.Errorf("Score = %d, want 100", res.Score)
	}
	if len(res.Issues) != 0 {
		t.Errorf("Issues = %+v, want none", res.Issues)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", res.Warnings)
	}
}

func TestValidate_TimeSkipAndCliche(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin set camp beneath the cliff as darkness fell."}
	next := story.Chapter{Number: 5, Content: "The next morning, Mei Lin woke up refreshed."}

	res := Validate(prev, next)
	if res.IsValid {
		t.Fatal("time-skip wake-up opening must not pass")
	}
	if !hasIssue(res, IssueTimeSkip) {
		t.Error("expected a time_skip issue")
	}
	if !hasIssue(res, IssueClicheOpening) {
		t.Error("expected a cliche_opening issue")
	}
	// Two high-severity issues.
	if res.Score != 60 {
		t.Errorf("Score = %d, want 60", res.Score)
	}
}

func TestValidate_LocationJump(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Wu Kang bowed and left. Mei Lin waited in the courtyard."}
	next := story.Chapter{Number: 5, Content: "Mei Lin stood inside the temple. Incense curled around her shoulders."}

	res := Validate(prev, next)
	if !hasIssue(res, IssueLocationJump) {
		t.Fatalf("expected a location_jump issue, got %+v", res.Issues)
	}
	if res.IsValid {
		t.Error("an unexplained location jump must not pass")
	}
}

func TestValidate_ExplicitTravelSuppressesJump(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Wu Kang bowed and left. Mei Lin waited in the courtyard."}
	next := story.Chapter{Number: 5, Content: "Mei Lin returned to the temple. Incense curled around her shoulders."}

	res := Validate(prev, next)
	if hasIssue(res, IssueLocationJump) {
		t.Error("an explicit travel phrase must suppress the jump")
	}
	if !res.IsValid {
		t.Errorf("expected a pass, got %+v", res)
	}
}

func TestValidate_TimeSkipExplainsLocationChange(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin waited in the courtyard."}
	next := story.Chapter{Number: 5, Content: "Two days later, Mei Lin knelt inside the temple."}

	res := Validate(prev, next)
	if !hasIssue(res, IssueTimeSkip) {
		t.Fatal("expected a time_skip issue")
	}
	if hasIssue(res, IssueLocationJump) {
		t.Error("a reported time skip already explains the location change")
	}
}

func TestValidate_LocationSynonyms(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin sheltered in the forest."}
	next := story.Chapter{Number: 5, Content: "Mei Lin crouched within the woods. She listened."}

	res := Validate(prev, next)
	if hasIssue(res, IssueLocationJump) {
		t.Error("forest and woods are the same place")
	}
}

func TestValidate_GenericLocationsAssumedSame(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin sat in the hut."}
	next := story.Chapter{Number: 5, Content: "Mei Lin stirred inside the room. She lit a lamp."}

	res := Validate(prev, next)
	if hasIssue(res, IssueLocationJump) {
		t.Error("two generic locations must be assumed identical")
	}
}

func TestValidate_DisconnectedOpening(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin closed the gate behind Wu Kang. Snow settled over the silent courtyard."}
	next := story.Chapter{Number: 5, Content: "Frost crept across a nameless ridge. Strangers whispered of omens."}

	res := Validate(prev, next)
	if !hasIssue(res, IssueMissingReference) {
		t.Error("expected a missing_reference issue")
	}
	if !hasIssue(res, IssueDisconnected) {
		t.Error("expected a disconnected issue")
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Warnings = %v, want the character-continuity warning", res.Warnings)
	}
	// One high plus one low.
	if res.Score != 77 {
		t.Errorf("Score = %d, want 77", res.Score)
	}
	if res.IsValid {
		t.Error("a disconnected opening must not pass")
	}
}

func TestValidate_PhraseEchoCarriesOver(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin pressed her palm to the seal. The jade talisman glowed in the dark."}
	next := story.Chapter{Number: 5, Content: "The jade talisman still glowed where strangers gathered."}

	res := Validate(prev, next)
	if hasIssue(res, IssueMissingReference) || hasIssue(res, IssueDisconnected) {
		t.Errorf("a repeated phrase must carry continuity, got %+v", res.Issues)
	}
	if !res.IsValid {
		t.Errorf("expected a pass, got score %d", res.Score)
	}
}

func TestValidate_OnlyReadsOpeningExcerpt(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin barred the door and slept."}
	// Push the time-skip phrase past the opening excerpt.
	filler := strings.Repeat("Mei Lin walked on. ", 30)
	next := story.Chapter{Number: 5, Content: filler + "The next morning, she rested."}

	res := Validate(prev, next)
	if hasIssue(res, IssueTimeSkip) {
		t.Error("a time skip beyond the opening excerpt must be ignored")
	}
}

func TestHasGoodTransition_FirstChapter(t *testing.T) {
	if !HasGoodTransition(nil, story.Chapter{Number: 1, Content: "It begins."}) {
		t.Error("a chapter without a predecessor always passes")
	}
}

func TestHasGoodTransition_RejectsBadPair(t *testing.T) {
	prev := story.Chapter{Number: 4, Content: "Mei Lin set camp beneath the cliff."}
	next := story.Chapter{Number: 5, Content: "The next morning, Mei Lin woke up refreshed."}
	if HasGoodTransition(&prev, next) {
		t.Error("a failing transition must be rejected")
	}
}

func TestAnalyzeOpening_WakeUp(t *testing.T) {
	oa := AnalyzeOpening("Mei Lin woke to the sound of rain.")
	if !oa.IsCliche || oa.Severity != SeverityHigh {
		t.Errorf("wake-up opening: %+v", oa)
	}
}

func TestAnalyzeOpening_Meanwhile(t *testing.T) {
	oa := AnalyzeOpening("Meanwhile, across the valley, the sect gathered.")
	if !oa.IsCliche || oa.Severity != SeverityMedium {
		t.Errorf("meanwhile opening: %+v", oa)
	}
}

func TestAnalyzeOpening_Clean(t *testing.T) {
	oa := AnalyzeOpening("Steel rang against steel in the lower courtyard.")
	if oa.IsCliche {
		t.Errorf("clean opening flagged: %+v", oa)
	}
}

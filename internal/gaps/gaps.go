// Package gaps scans a novel snapshot for structural holes in the story
// graph: entities nobody is connected to, relationships the prose implies but
// the records lack, and records too thin to be useful.
//
// Analysis is a pure function of the snapshot. Gaps are recomputed on demand
// and never persisted.
package gaps

import (
	"fmt"
	"strings"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/namematch"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// Severity ranks how urgently a gap needs attention.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// GapType identifies the structural check that produced a gap.
type GapType string

const (
	GapMissingProtagonist   GapType = "missing-protagonist"
	GapOrphanedCharacter    GapType = "orphaned-character"
	GapMissingRelationship  GapType = "missing-relationship"
	GapOrphanedItem         GapType = "orphaned-item"
	GapOrphanedTechnique    GapType = "orphaned-technique"
	GapCharacterWithoutArc  GapType = "character-without-arc"
	GapAntagonistWithoutArc GapType = "antagonist-without-arc"
	GapIncompleteWorldEntry GapType = "incomplete-world-entry"
	GapOrphanedScene        GapType = "orphaned-scene"
)

// Gap is one detected hole in the story graph.
type Gap struct {
	Type        GapType  `json:"type"`
	Severity    Severity `json:"severity"`
	EntityID    string   `json:"entity_id,omitempty"`
	EntityName  string   `json:"entity_name"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion"`
	AutoFixable bool     `json:"auto_fixable"`
	Confidence  float64  `json:"confidence"`
}

// Summary tallies gaps by severity.
type Summary struct {
	Total       int `json:"total"`
	Critical    int `json:"critical"`
	Warnings    int `json:"warnings"`
	Info        int `json:"info"`
	AutoFixable int `json:"auto_fixable"`
}

// Analysis is the full result of a gap scan.
type Analysis struct {
	Gaps            []Gap    `json:"gaps"`
	Summary         Summary  `json:"summary"`
	Recommendations []string `json:"recommendations"`
}

// minCoAppearances is how many shared chapters imply a missing relationship.
const minCoAppearances = 3

// Analyze runs every structural check over the snapshot. Checks are
// independent and additive; one entity can trigger several gaps.
func Analyze(state *story.NovelState, currentChapter int) Analysis {
	var gaps []Gap

	gaps = append(gaps, checkProtagonist(state)...)
	gaps = append(gaps, checkOrphanedCharacters(state)...)
	gaps = append(gaps, checkMissingRelationships(state)...)
	gaps = append(gaps, checkOrphanedItems(state)...)
	gaps = append(gaps, checkOrphanedTechniques(state)...)
	gaps = append(gaps, checkCharactersWithoutArc(state)...)
	gaps = append(gaps, checkAntagonistsWithoutArc(state)...)
	gaps = append(gaps, checkWorldEntries(state)...)
	gaps = append(gaps, checkOrphanedScenes(state)...)

	summary := summarize(gaps)
	return Analysis{
		Gaps:            gaps,
		Summary:         summary,
		Recommendations: recommend(summary),
	}
}

func checkProtagonist(state *story.NovelState) []Gap {
	if state.Protagonist() != nil {
		return nil
	}
	return []Gap{{
		Type:       GapMissingProtagonist,
		Severity:   SeverityCritical,
		EntityName: "(novel)",
		Message:    "No character is marked as the protagonist.",
		Suggestion: "Flag the main character as protagonist so continuity checks can anchor on them.",
		Confidence: 1.0,
	}}
}

func checkOrphanedCharacters(state *story.NovelState) []Gap {
	var out []Gap
	for i := range state.Characters {
		c := &state.Characters[i]
		if c.IsProtagonist || len(c.Relationships) > 0 {
			continue
		}
		if !appearsInAnyChapter(state, c.Name) {
			continue
		}
		out = append(out, Gap{
			Type:        GapOrphanedCharacter,
			Severity:    SeverityWarning,
			EntityID:    c.ID,
			EntityName:  c.Name,
			Message:     fmt.Sprintf("%s appears in the story but has no recorded relationships.", c.Name),
			Suggestion:  fmt.Sprintf("Add at least one relationship for %s (ally, rival, family, ...).", c.Name),
			AutoFixable: true,
			Confidence:  0.7,
		})
	}
	return out
}

// checkMissingRelationships finds character pairs that share the page
// repeatedly without a declared relationship. Pairs are iterated j > i so
// each unordered pair is reported at most once.
func checkMissingRelationships(state *story.NovelState) []Gap {
	var out []Gap
	for i := range state.Characters {
		a := &state.Characters[i]
		for j := i + 1; j < len(state.Characters); j++ {
			b := &state.Characters[j]

			// At least one side must already be wired into the graph.
			if !qualifiesForRelationshipCheck(a) && !qualifiesForRelationshipCheck(b) {
				continue
			}
			if a.HasRelationshipWith(b.Name) || b.HasRelationshipWith(a.Name) {
				continue
			}

			count := coAppearanceCount(state, a.Name, b.Name)
			if count < minCoAppearances {
				continue
			}

			conf := 0.5 + 0.1*float64(count)
			if conf > 0.8 {
				conf = 0.8
			}
			out = append(out, Gap{
				Type:        GapMissingRelationship,
				Severity:    SeverityInfo,
				EntityID:    a.ID,
				EntityName:  a.Name,
				Message:     fmt.Sprintf("%s and %s appear together in %d chapters but have no relationship.", a.Name, b.Name, count),
				Suggestion:  fmt.Sprintf("Record how %s and %s relate to each other.", a.Name, b.Name),
				AutoFixable: true,
				Confidence:  conf,
			})
		}
	}
	return out
}

func qualifiesForRelationshipCheck(c *story.Character) bool {
	return c.IsProtagonist || len(c.Relationships) > 0
}

func checkOrphanedItems(state *story.NovelState) []Gap {
	var out []Gap
	for i := range state.Items {
		it := &state.Items[i]
		if it.FirstAppearedChapter <= 0 || hasOwner(state, it) {
			continue
		}
		out = append(out, Gap{
			Type:       GapOrphanedItem,
			Severity:   SeverityWarning,
			EntityID:   it.ID,
			EntityName: it.Name,
			Message:    fmt.Sprintf("%s first appeared in chapter %d but no character possesses it.", it.Name, it.FirstAppearedChapter),
			Suggestion: fmt.Sprintf("Decide which character holds %s and record the possession.", it.Name),
			Confidence: 0.6,
		})
	}
	return out
}

func hasOwner(state *story.NovelState, it *story.Item) bool {
	if it.OwnerCharacterID != "" {
		return true
	}
	for i := range state.Characters {
		for _, id := range state.Characters[i].Possessions {
			if id == it.ID {
				return true
			}
		}
	}
	return false
}

func checkOrphanedTechniques(state *story.NovelState) []Gap {
	var out []Gap
	for i := range state.Techniques {
		t := &state.Techniques[i]
		if t.FirstAppearedChapter <= 0 || hasPractitioner(state, t.ID) {
			continue
		}
		out = append(out, Gap{
			Type:       GapOrphanedTechnique,
			Severity:   SeverityWarning,
			EntityID:   t.ID,
			EntityName: t.Name,
			Message:    fmt.Sprintf("%s first appeared in chapter %d but no character has mastered it.", t.Name, t.FirstAppearedChapter),
			Suggestion: fmt.Sprintf("Decide which character practices %s and record the mastery.", t.Name),
			Confidence: 0.6,
		})
	}
	return out
}

func hasPractitioner(state *story.NovelState, techniqueID string) bool {
	for i := range state.Characters {
		for _, id := range state.Characters[i].MasteredTechniques {
			if id == techniqueID {
				return true
			}
		}
	}
	return false
}

func checkCharactersWithoutArc(state *story.NovelState) []Gap {
	arc := state.ActiveArc()
	if arc == nil {
		return nil
	}
	var out []Gap
	for i := range state.Characters {
		c := &state.Characters[i]
		if c.IsProtagonist || associatedWithArc(c, arc.ID) {
			continue
		}
		if !appearsSinceChapter(state, c.Name, arc.StartedAtChapter) {
			continue
		}
		out = append(out, Gap{
			Type:        GapCharacterWithoutArc,
			Severity:    SeverityInfo,
			EntityID:    c.ID,
			EntityName:  c.Name,
			Message:     fmt.Sprintf("%s appears during the arc %q but is not associated with it.", c.Name, arc.Title),
			Suggestion:  fmt.Sprintf("Associate %s with the arc %q.", c.Name, arc.Title),
			AutoFixable: true,
			Confidence:  0.7,
		})
	}
	return out
}

func associatedWithArc(c *story.Character, arcID string) bool {
	for _, id := range c.ArcAssociations {
		if id == arcID {
			return true
		}
	}
	return false
}

func checkAntagonistsWithoutArc(state *story.NovelState) []Gap {
	arc := state.ActiveArc()
	if arc == nil {
		return nil
	}
	var out []Gap
	for i := range state.Antagonists {
		a := &state.Antagonists[i]
		if a.Status != "" && a.Status != "active" {
			continue
		}
		if a.FirstAppearedChapter < arc.StartedAtChapter || a.AssociatedWithArc(arc.ID) {
			continue
		}
		out = append(out, Gap{
			Type:        GapAntagonistWithoutArc,
			Severity:    SeverityWarning,
			EntityID:    a.ID,
			EntityName:  a.Name,
			Message:     fmt.Sprintf("%s surfaced during the arc %q but is not linked to it.", a.Name, arc.Title),
			Suggestion:  fmt.Sprintf("Associate the antagonist %s with the arc %q.", a.Name, arc.Title),
			AutoFixable: true,
			Confidence:  0.85,
		})
	}
	return out
}

// minWorldEntryContent is the shortest world-bible entry considered complete.
const minWorldEntryContent = 50

func checkWorldEntries(state *story.NovelState) []Gap {
	var out []Gap
	for i := range state.WorldEntries {
		w := &state.WorldEntries[i]
		if len(trimmed(w.Content)) >= minWorldEntryContent {
			continue
		}
		out = append(out, Gap{
			Type:       GapIncompleteWorldEntry,
			Severity:   SeverityInfo,
			EntityID:   w.ID,
			EntityName: w.Title,
			Message:    fmt.Sprintf("World entry %q has almost no content.", w.Title),
			Suggestion: fmt.Sprintf("Expand the world entry %q with enough detail to keep future chapters consistent.", w.Title),
			Confidence: 0.9,
		})
	}
	return out
}

// minOrphanSceneLength gates the orphaned-scene check; very short scenes are
// too thin to judge.
const minOrphanSceneLength = 100

func checkOrphanedScenes(state *story.NovelState) []Gap {
	var out []Gap
	for ci := range state.Chapters {
		ch := &state.Chapters[ci]
		for si := range ch.Scenes {
			sc := &ch.Scenes[si]
			text := trimmed(sc.Text())
			if len(text) <= minOrphanSceneLength {
				continue
			}
			if sceneMentionsAnyCharacter(state, text) {
				continue
			}
			name := sc.Title
			if name == "" {
				name = fmt.Sprintf("chapter %d scene %d", ch.Number, si+1)
			}
			out = append(out, Gap{
				Type:        GapOrphanedScene,
				Severity:    SeverityInfo,
				EntityID:    sc.ID,
				EntityName:  name,
				Message:     fmt.Sprintf("Scene %q mentions no known character.", name),
				Suggestion:  "Check whether the scene should name a cast member, or leave it if the absence is intentional.",
				AutoFixable: true,
				Confidence:  0.5,
			})
		}
	}
	return out
}

func sceneMentionsAnyCharacter(state *story.NovelState, text string) bool {
	for i := range state.Characters {
		if namematch.TextContainsName(text, state.Characters[i].Name) {
			return true
		}
	}
	return false
}

// appearsInAnyChapter reports whether the name matches in any chapter's
// content or summary.
func appearsInAnyChapter(state *story.NovelState, name string) bool {
	for i := range state.Chapters {
		if namematch.TextContainsName(state.Chapters[i].Text(), name) {
			return true
		}
	}
	return false
}

func appearsSinceChapter(state *story.NovelState, name string, from int) bool {
	for i := range state.Chapters {
		ch := &state.Chapters[i]
		if ch.Number >= from && namematch.TextContainsName(ch.Text(), name) {
			return true
		}
	}
	return false
}

// coAppearanceCount counts chapters where both names match.
func coAppearanceCount(state *story.NovelState, nameA, nameB string) int {
	count := 0
	for i := range state.Chapters {
		text := state.Chapters[i].Text()
		if namematch.TextContainsName(text, nameA) && namematch.TextContainsName(text, nameB) {
			count++
		}
	}
	return count
}

func summarize(gaps []Gap) Summary {
	s := Summary{Total: len(gaps)}
	for _, g := range gaps {
		switch g.Severity {
		case SeverityCritical:
			s.Critical++
		case SeverityWarning:
			s.Warnings++
		case SeverityInfo:
			s.Info++
		}
		if g.AutoFixable {
			s.AutoFixable++
		}
	}
	return s
}

func recommend(s Summary) []string {
	var out []string
	if s.Critical > 0 {
		out = append(out, fmt.Sprintf("Resolve %d critical gap(s) before generating more chapters.", s.Critical))
	}
	if s.Warnings > 0 {
		out = append(out, fmt.Sprintf("Review %d warning(s) about weakly connected entities.", s.Warnings))
	}
	if s.AutoFixable > 0 {
		out = append(out, fmt.Sprintf("%d gap(s) can be applied automatically.", s.AutoFixable))
	}
	if s.Total == 0 {
		out = append(out, "Story graph looks consistent. No structural gaps detected.")
	}
	return out
}

func trimmed(s string) string { return strings.TrimSpace(s) }

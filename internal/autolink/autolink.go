// Package autolink proposes typed connections between story entities after a
// new chapter is generated: who was in which scene, which characters belong
// to the active arc, which freshly surfaced items and antagonists attach to
// it, and which character pairs read like an undeclared relationship.
//
// Every proposal carries a confidence in [0,1] and a human-readable reason.
// The proposer never mutates the snapshot and has no failure path; it is a
// closed computation over its inputs.
package autolink

import (
	"fmt"
	"sort"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/namematch"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// ConnectionType is the closed set of proposable link kinds.
type ConnectionType string

const (
	CharacterScene    ConnectionType = "character-scene"
	CharacterArc      ConnectionType = "character-arc"
	ItemArc           ConnectionType = "item-arc"
	TechniqueArc      ConnectionType = "technique-arc"
	AntagonistArc     ConnectionType = "antagonist-arc"
	CharacterRelation ConnectionType = "relationship"
	WorldEntryChapter ConnectionType = "world-entry-chapter"
)

// Connection is one proposed link. Ephemeral; the caller decides what to
// persist.
type Connection struct {
	Type       ConnectionType `json:"type"`
	SourceID   string         `json:"source_id"`
	TargetID   string         `json:"target_id"`
	SourceName string         `json:"source_name"`
	TargetName string         `json:"target_name"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
}

// AutoApplyThreshold marks a proposal as safe to apply without review.
const AutoApplyThreshold = 0.8

// Result aggregates all proposals for one new chapter.
type Result struct {
	Success     bool         `json:"success"`
	Connections []Connection `json:"connections"`
	Warnings    []string     `json:"warnings"`
	Suggestions []string     `json:"suggestions"`
}

// Analyze scans the new chapter and freshly extracted scenes, items, and
// techniques against the existing snapshot and proposes connections.
// Success is always true; missing preconditions (no active arc, no cast)
// surface as warnings, not errors.
func Analyze(state *story.NovelState, newChapter story.Chapter, scenes []story.Scene, items []story.Item, techniques []story.Technique) Result {
	res := Result{Success: true}

	res.Connections = append(res.Connections, characterSceneLinks(state, scenes)...)

	arc := state.ActiveArc()
	if arc == nil {
		res.Warnings = append(res.Warnings, "no active arc; arc connections were not evaluated")
	} else {
		res.Connections = append(res.Connections, characterArcLinks(state, arc, newChapter)...)
		res.Connections = append(res.Connections, itemArcLinks(arc, newChapter, items)...)
		res.Connections = append(res.Connections, techniqueArcLinks(arc, newChapter, techniques)...)
		res.Connections = append(res.Connections, antagonistArcLinks(state, arc, newChapter)...)
	}

	res.Connections = append(res.Connections, relationshipLinks(state, newChapter)...)

	res.Suggestions = suggestions(res.Connections)
	return res
}

func characterSceneLinks(state *story.NovelState, scenes []story.Scene) []Connection {
	var out []Connection
	for si := range scenes {
		sc := &scenes[si]
		text := sc.Text()
		for ci := range state.Characters {
			c := &state.Characters[ci]
			if !namematch.TextContainsName(text, c.Name) {
				continue
			}
			out = append(out, Connection{
				Type:       CharacterScene,
				SourceID:   c.ID,
				TargetID:   sc.ID,
				SourceName: c.Name,
				TargetName: sceneLabel(sc, si),
				Confidence: namematch.MentionConfidence(c.Name, text),
				Reason:     fmt.Sprintf("%s is mentioned in the scene", c.Name),
			})
		}
	}
	return out
}

func sceneLabel(sc *story.Scene, index int) string {
	if sc.Title != "" {
		return sc.Title
	}
	if sc.Number > 0 {
		return fmt.Sprintf("scene %d", sc.Number)
	}
	return fmt.Sprintf("scene %d", index+1)
}

// characterArcLinks proposes arc membership for characters seen in at least
// two chapters of the arc's span.
func characterArcLinks(state *story.NovelState, arc *story.Arc, newChapter story.Chapter) []Connection {
	span := state.ChaptersInRange(arc.StartedAtChapter, newChapter.Number)
	if !containsChapterNumber(span, newChapter.Number) && newChapter.Number >= arc.StartedAtChapter {
		span = append(span, newChapter)
	}

	var out []Connection
	for ci := range state.Characters {
		c := &state.Characters[ci]
		count := 0
		for i := range span {
			if namematch.TextContainsName(span[i].Text(), c.Name) {
				count++
			}
		}
		if count < 2 {
			continue
		}
		conf := 0.6 + 0.1*float64(count)
		if conf > 0.9 {
			conf = 0.9
		}
		out = append(out, Connection{
			Type:       CharacterArc,
			SourceID:   c.ID,
			TargetID:   arc.ID,
			SourceName: c.Name,
			TargetName: arc.Title,
			Confidence: conf,
			Reason:     fmt.Sprintf("%s appears in %d chapters of the arc", c.Name, count),
		})
	}
	return out
}

func itemArcLinks(arc *story.Arc, newChapter story.Chapter, items []story.Item) []Connection {
	var out []Connection
	for i := range items {
		it := &items[i]
		if it.FirstAppearedChapter != newChapter.Number && it.FirstAppearedChapter < arc.StartedAtChapter {
			continue
		}
		out = append(out, Connection{
			Type:       ItemArc,
			SourceID:   it.ID,
			TargetID:   arc.ID,
			SourceName: it.Name,
			TargetName: arc.Title,
			Confidence: 0.85,
			Reason:     fmt.Sprintf("%s first appeared within the arc's chapter range", it.Name),
		})
	}
	return out
}

func techniqueArcLinks(arc *story.Arc, newChapter story.Chapter, techniques []story.Technique) []Connection {
	var out []Connection
	for i := range techniques {
		t := &techniques[i]
		if t.FirstAppearedChapter != newChapter.Number && t.FirstAppearedChapter < arc.StartedAtChapter {
			continue
		}
		out = append(out, Connection{
			Type:       TechniqueArc,
			SourceID:   t.ID,
			TargetID:   arc.ID,
			SourceName: t.Name,
			TargetName: arc.Title,
			Confidence: 0.85,
			Reason:     fmt.Sprintf("%s first appeared within the arc's chapter range", t.Name),
		})
	}
	return out
}

// recentWindow is how many trailing chapters the relationship check reads.
const recentWindow = 5

// relationshipLinks proposes character-character relationships from repeated
// co-occurrence in the most recent chapters. Pairs are iterated j > i so each
// unordered pair yields at most one proposal.
func relationshipLinks(state *story.NovelState, newChapter story.Chapter) []Connection {
	recent := recentChaptersWith(state, newChapter)

	var out []Connection
	for i := range state.Characters {
		a := &state.Characters[i]
		for j := i + 1; j < len(state.Characters); j++ {
			b := &state.Characters[j]
			if a.HasRelationshipWith(b.Name) || b.HasRelationshipWith(a.Name) {
				continue
			}
			count := 0
			for k := range recent {
				text := recent[k].Text()
				if namematch.TextContainsName(text, a.Name) && namematch.TextContainsName(text, b.Name) {
					count++
				}
			}
			if count < 2 {
				continue
			}
			conf := 0.5 + 0.1*float64(count)
			if conf > 0.8 {
				conf = 0.8
			}
			out = append(out, Connection{
				Type:       CharacterRelation,
				SourceID:   a.ID,
				TargetID:   b.ID,
				SourceName: a.Name,
				TargetName: b.Name,
				Confidence: conf,
				Reason:     fmt.Sprintf("%s and %s share %d of the last %d chapters", a.Name, b.Name, count, recentWindow),
			})
		}
	}
	return out
}

// recentChaptersWith returns the most recent chapters by descending number,
// making sure the new chapter itself is considered even when the caller has
// not appended it to the snapshot yet.
func recentChaptersWith(state *story.NovelState, newChapter story.Chapter) []story.Chapter {
	chapters := make([]story.Chapter, len(state.Chapters))
	copy(chapters, state.Chapters)
	if !containsChapterNumber(chapters, newChapter.Number) {
		chapters = append(chapters, newChapter)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Number > chapters[j].Number })
	if len(chapters) > recentWindow {
		chapters = chapters[:recentWindow]
	}
	return chapters
}

func containsChapterNumber(chapters []story.Chapter, number int) bool {
	for i := range chapters {
		if chapters[i].Number == number {
			return true
		}
	}
	return false
}

// antagonistArcLinks proposes arc membership for antagonists. The
// first-appeared branch wins over the current-chapter branch; they are never
// both evaluated for one antagonist.
func antagonistArcLinks(state *story.NovelState, arc *story.Arc, newChapter story.Chapter) []Connection {
	var out []Connection
	for i := range state.Antagonists {
		a := &state.Antagonists[i]
		if a.AssociatedWithArc(arc.ID) {
			continue
		}
		switch {
		case a.FirstAppearedChapter >= arc.StartedAtChapter:
			out = append(out, Connection{
				Type:       AntagonistArc,
				SourceID:   a.ID,
				TargetID:   arc.ID,
				SourceName: a.Name,
				TargetName: arc.Title,
				Confidence: 0.9,
				Reason:     fmt.Sprintf("%s first appeared during the active arc", a.Name),
			})
		case a.LastAppearedChapter == newChapter.Number && arc.Contains(newChapter.Number):
			out = append(out, Connection{
				Type:       AntagonistArc,
				SourceID:   a.ID,
				TargetID:   arc.ID,
				SourceName: a.Name,
				TargetName: arc.Title,
				Confidence: 0.75,
				Reason:     fmt.Sprintf("%s appeared in the current chapter of the active arc", a.Name),
			})
		}
	}
	return out
}

// suggestions summarizes proposals as one line per connection type plus an
// auto-apply call-out for high-confidence ones.
func suggestions(conns []Connection) []string {
	if len(conns) == 0 {
		return []string{"No new connections suggested for this chapter."}
	}

	byType := map[ConnectionType]int{}
	highConfidence := 0
	for _, c := range conns {
		byType[c.Type]++
		if c.Confidence >= AutoApplyThreshold {
			highConfidence++
		}
	}

	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, string(t))
	}
	sort.Strings(types)

	var out []string
	for _, t := range types {
		out = append(out, fmt.Sprintf("%d %s connection(s) proposed", byType[ConnectionType(t)], t))
	}
	if highConfidence > 0 {
		out = append(out, fmt.Sprintf("%d high-confidence connection(s) are recommended for auto-apply", highConfidence))
	}
	return out
}

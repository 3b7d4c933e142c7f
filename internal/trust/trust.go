// Package trust gates LLM extraction payloads before they touch persistent
// story state.
//
// GeneratePreview walks a raw extraction (loosely-typed upsert bags produced
// by the model) against the current state and decides, per entry, whether it
// would create, update, or merge a record, how confident the extraction
// looks, and whether it is safe to apply without review. CalculateTrustScore
// rolls the previews into one weighted score with sub-scores for extraction
// quality, connection quality, data completeness, and consistency.
//
// Identity here is deliberately strict: an entry matches an existing record
// only on case/whitespace-normalized name equality, never on the fuzzy
// matching the rest of the engine uses. A merge gate must not guess.
package trust

import (
	"fmt"
	"strings"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/autolink"
	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// Action is what applying one preview entry would do.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionMerge  Action = "merge"
)

// Extraction is the raw payload from the LLM call. Every field is optional;
// the scorer defends against blank and missing values.
type Extraction struct {
	CharacterUpserts  []CharacterUpsert  `json:"character_upserts,omitempty"`
	ItemUpdates       []ItemUpdate       `json:"item_updates,omitempty"`
	TechniqueUpdates  []TechniqueUpdate  `json:"technique_updates,omitempty"`
	AntagonistUpdates []AntagonistUpdate `json:"antagonist_updates,omitempty"`
	Scenes            []SceneExtract     `json:"scenes,omitempty"`
	WorldEntryUpserts []WorldEntryUpsert `json:"world_entry_upserts,omitempty"`
}

// CharacterUpsert is a proposed character create/update.
type CharacterUpsert struct {
	Name             string `json:"name"`
	IsNew            bool   `json:"is_new,omitempty"`
	Personality      string `json:"personality,omitempty"`
	Description      string `json:"description,omitempty"`
	CultivationStage string `json:"cultivation_stage,omitempty"`
	Status           string `json:"status,omitempty"`
}

// ItemUpdate is a proposed item create/update.
type ItemUpdate struct {
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Description   string `json:"description,omitempty"`
	CharacterName string `json:"character_name,omitempty"` // who holds it
}

// TechniqueUpdate is a proposed technique create/update.
type TechniqueUpdate struct {
	Name          string `json:"name"`
	Category      string `json:"category,omitempty"`
	Description   string `json:"description,omitempty"`
	CharacterName string `json:"character_name,omitempty"` // who learned it
}

// AntagonistUpdate is a proposed antagonist create/update.
type AntagonistUpdate struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	ThreatLevel string `json:"threat_level,omitempty"`
	Description string `json:"description,omitempty"`
}

// SceneExtract is a proposed scene record.
type SceneExtract struct {
	Title       string `json:"title,omitempty"`
	SceneNumber int    `json:"scene_number,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Content     string `json:"content,omitempty"`
	Excerpt     string `json:"excerpt,omitempty"`
}

// WorldEntryUpsert is a proposed world-bible entry.
type WorldEntryUpsert struct {
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Content  string `json:"content,omitempty"`
}

// EntityPreview is the per-entry verdict for one extraction category.
type EntityPreview struct {
	Name         string   `json:"name"`
	Action       Action   `json:"action"`
	MatchedID    string   `json:"matched_id,omitempty"`
	Confidence   float64  `json:"confidence"`
	Warnings     []string `json:"warnings,omitempty"`
	CanAutoApply bool     `json:"can_auto_apply"`
}

// ConnectionPreview wraps a proposed connection with its auto-apply verdict.
type ConnectionPreview struct {
	autolink.Connection
	CanAutoApply bool `json:"can_auto_apply"`
}

// Preview aggregates the verdicts for one whole extraction. Created fresh
// per chapter-generation cycle and discarded after the merge decision.
type Preview struct {
	Characters        []EntityPreview     `json:"characters,omitempty"`
	Items             []EntityPreview     `json:"items,omitempty"`
	Techniques        []EntityPreview     `json:"techniques,omitempty"`
	Antagonists       []EntityPreview     `json:"antagonists,omitempty"`
	Scenes            []EntityPreview     `json:"scenes,omitempty"`
	WorldEntries      []EntityPreview     `json:"world_entries,omitempty"`
	Connections       []ConnectionPreview `json:"connections,omitempty"`
	Warnings          []string            `json:"warnings,omitempty"` // cross-entry inconsistencies
	OverallConfidence float64             `json:"overall_confidence"`
}

// All returns every entity preview across categories.
func (p *Preview) All() []EntityPreview {
	out := make([]EntityPreview, 0,
		len(p.Characters)+len(p.Items)+len(p.Techniques)+len(p.Antagonists)+len(p.Scenes)+len(p.WorldEntries))
	out = append(out, p.Characters...)
	out = append(out, p.Items...)
	out = append(out, p.Techniques...)
	out = append(out, p.Antagonists...)
	out = append(out, p.Scenes...)
	out = append(out, p.WorldEntries...)
	return out
}

// PreviewOpts optionally enables the connection-preview pass.
type PreviewOpts struct {
	Novel      *story.NovelState
	NewChapter *story.Chapter
	Scenes     []story.Scene
}

// Per-category confidence bases and auto-apply thresholds.
const (
	baseCharacter  = 0.70
	baseItem       = 0.75
	baseTechnique  = 0.75
	baseAntagonist = 0.80
	baseScene      = 0.60
	baseWorldEntry = 0.70

	confidenceCap = 0.95
)

var autoApplyThresholds = map[string]float64{
	"character":   0.70,
	"item":        0.75,
	"technique":   0.75,
	"antagonist":  0.80,
	"scene":       0.60,
	"world-entry": 0.70,
}

// NormalizeName is the strict identity key: lowercase plus trim.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GeneratePreview evaluates an extraction against existing state. Blank-named
// entries are skipped. When opts supplies a novel snapshot and new chapter,
// proposed connections for freshly extracted items and techniques are
// previewed too; a failure in that pass is swallowed so the preview itself
// never fails.
func GeneratePreview(extraction Extraction, existing *story.NovelState, opts *PreviewOpts) Preview {
	if existing == nil {
		existing = &story.NovelState{}
	}
	var p Preview

	seen := map[string]string{} // normalized name -> category, duplicate detection

	for _, cu := range extraction.CharacterUpserts {
		if NormalizeName(cu.Name) == "" {
			continue
		}
		p.Characters = append(p.Characters, previewCharacter(cu, existing))
		noteDuplicate(&p, seen, cu.Name, "character")
	}
	for _, iu := range extraction.ItemUpdates {
		if NormalizeName(iu.Name) == "" {
			continue
		}
		p.Items = append(p.Items, previewItem(iu, existing))
		noteDuplicate(&p, seen, iu.Name, "item")
	}
	for _, tu := range extraction.TechniqueUpdates {
		if NormalizeName(tu.Name) == "" {
			continue
		}
		p.Techniques = append(p.Techniques, previewTechnique(tu, existing))
		noteDuplicate(&p, seen, tu.Name, "technique")
	}
	for _, au := range extraction.AntagonistUpdates {
		if NormalizeName(au.Name) == "" {
			continue
		}
		p.Antagonists = append(p.Antagonists, previewAntagonist(au, existing))
		noteDuplicate(&p, seen, au.Name, "antagonist")
	}
	for i, se := range extraction.Scenes {
		p.Scenes = append(p.Scenes, previewScene(se, i))
	}
	for _, we := range extraction.WorldEntryUpserts {
		if NormalizeName(we.Title) == "" || strings.TrimSpace(we.Content) == "" {
			continue
		}
		p.WorldEntries = append(p.WorldEntries, previewWorldEntry(we, existing))
	}

	if opts != nil && opts.Novel != nil && opts.NewChapter != nil {
		p.Connections = previewConnections(extraction, existing, opts)
	}

	p.OverallConfidence = meanConfidence(p.All())
	return p
}

// noteDuplicate records a cross-entry inconsistency when the same normalized
// name shows up twice in one extraction.
func noteDuplicate(p *Preview, seen map[string]string, name, category string) {
	key := NormalizeName(name)
	if prev, ok := seen[key]; ok {
		p.Warnings = append(p.Warnings,
			fmt.Sprintf("%q appears more than once in the extraction (%s and %s)", name, prev, category))
		return
	}
	seen[key] = category
}

func previewCharacter(cu CharacterUpsert, existing *story.NovelState) EntityPreview {
	ep := EntityPreview{Name: strings.TrimSpace(cu.Name), Action: ActionCreate}

	match := existing.CharacterByName(cu.Name)
	if match != nil {
		ep.MatchedID = match.ID
		ep.Action = ActionUpdate
		if cu.IsNew {
			// The model thinks this is a new character but the record exists;
			// the fields should be merged, not overwritten.
			ep.Action = ActionMerge
		}
	}

	conf := baseCharacter
	if strings.TrimSpace(cu.Personality) != "" {
		conf += 0.10
	}
	if strings.TrimSpace(cu.Description) != "" {
		conf += 0.10
	}
	if strings.TrimSpace(cu.CultivationStage) != "" {
		conf += 0.05
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(cu.Personality) == "" && strings.TrimSpace(cu.Description) == "" {
		ep.Warnings = append(ep.Warnings, "character has neither personality nor description")
	}

	ep.CanAutoApply = canAutoApply("character", ep)
	return ep
}

func previewItem(iu ItemUpdate, existing *story.NovelState) EntityPreview {
	ep := EntityPreview{Name: strings.TrimSpace(iu.Name), Action: ActionCreate}
	if match := findItem(existing, iu.Name); match != nil {
		ep.MatchedID = match.ID
		ep.Action = ActionUpdate
	}

	conf := baseItem
	if strings.TrimSpace(iu.Category) != "" {
		conf += 0.10
	}
	if strings.TrimSpace(iu.Description) != "" {
		conf += 0.05
	}
	if strings.TrimSpace(iu.CharacterName) != "" {
		conf += 0.10
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(iu.Category) == "" {
		ep.Warnings = append(ep.Warnings, "item has no category")
	}
	if strings.TrimSpace(iu.CharacterName) == "" {
		ep.Warnings = append(ep.Warnings, "item is not associated with any character")
	}

	ep.CanAutoApply = canAutoApply("item", ep)
	return ep
}

func previewTechnique(tu TechniqueUpdate, existing *story.NovelState) EntityPreview {
	ep := EntityPreview{Name: strings.TrimSpace(tu.Name), Action: ActionCreate}
	if match := findTechnique(existing, tu.Name); match != nil {
		ep.MatchedID = match.ID
		ep.Action = ActionUpdate
	}

	conf := baseTechnique
	if strings.TrimSpace(tu.Category) != "" {
		conf += 0.10
	}
	if strings.TrimSpace(tu.Description) != "" {
		conf += 0.05
	}
	if strings.TrimSpace(tu.CharacterName) != "" {
		conf += 0.10
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(tu.Category) == "" {
		ep.Warnings = append(ep.Warnings, "technique has no category")
	}
	if strings.TrimSpace(tu.CharacterName) == "" {
		ep.Warnings = append(ep.Warnings, "technique is not associated with any character")
	}

	ep.CanAutoApply = canAutoApply("technique", ep)
	return ep
}

func previewAntagonist(au AntagonistUpdate, existing *story.NovelState) EntityPreview {
	ep := EntityPreview{Name: strings.TrimSpace(au.Name), Action: ActionCreate}
	if match := findAntagonist(existing, au.Name); match != nil {
		ep.MatchedID = match.ID
		ep.Action = ActionUpdate
	}

	conf := baseAntagonist
	if strings.TrimSpace(au.Type) != "" {
		conf += 0.05
	}
	if strings.TrimSpace(au.ThreatLevel) != "" {
		conf += 0.05
	}
	if strings.TrimSpace(au.Description) != "" {
		conf += 0.05
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(au.Type) == "" {
		ep.Warnings = append(ep.Warnings, "antagonist has no type")
	}
	if strings.TrimSpace(au.ThreatLevel) == "" {
		ep.Warnings = append(ep.Warnings, "antagonist has no threat level")
	}

	ep.CanAutoApply = canAutoApply("antagonist", ep)
	return ep
}

func previewScene(se SceneExtract, index int) EntityPreview {
	name := strings.TrimSpace(se.Title)
	if name == "" {
		name = fmt.Sprintf("scene %d", index+1)
	}
	ep := EntityPreview{Name: name, Action: ActionCreate}

	body := se.Content
	if strings.TrimSpace(body) == "" {
		body = se.Summary
	}

	conf := baseScene
	if strings.TrimSpace(se.Title) != "" {
		conf += 0.10
	}
	if strings.TrimSpace(se.Excerpt) != "" {
		conf += 0.10
	}
	if len(strings.TrimSpace(body)) >= 100 {
		conf += 0.10
	}
	if se.SceneNumber > 0 {
		conf += 0.05
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(se.Title) == "" && strings.TrimSpace(se.Excerpt) == "" {
		ep.Warnings = append(ep.Warnings, "scene has neither title nor excerpt")
	}
	if se.SceneNumber <= 0 {
		ep.Warnings = append(ep.Warnings, "scene number is missing or invalid")
	}

	ep.CanAutoApply = canAutoApply("scene", ep)
	return ep
}

func previewWorldEntry(we WorldEntryUpsert, existing *story.NovelState) EntityPreview {
	ep := EntityPreview{Name: strings.TrimSpace(we.Title), Action: ActionCreate}
	if match := findWorldEntry(existing, we.Title); match != nil {
		ep.MatchedID = match.ID
		ep.Action = ActionUpdate
	}

	conf := baseWorldEntry
	if strings.TrimSpace(we.Category) != "" {
		conf += 0.10
	}
	if len(strings.TrimSpace(we.Content)) >= 100 {
		conf += 0.15
	}
	ep.Confidence = capConfidence(conf)

	if strings.TrimSpace(we.Category) == "" {
		ep.Warnings = append(ep.Warnings, "world entry has no category")
	}
	if len(strings.TrimSpace(we.Content)) < 50 {
		ep.Warnings = append(ep.Warnings, "world entry content is under 50 characters")
	}

	ep.CanAutoApply = canAutoApply("world-entry", ep)
	return ep
}

func canAutoApply(category string, ep EntityPreview) bool {
	return ep.Confidence >= autoApplyThresholds[category] && len(ep.Warnings) == 0
}

func capConfidence(c float64) float64 {
	if c > confidenceCap {
		return confidenceCap
	}
	return c
}

func findItem(s *story.NovelState, name string) *story.Item {
	want := NormalizeName(name)
	for i := range s.Items {
		if NormalizeName(s.Items[i].Name) == want {
			return &s.Items[i]
		}
	}
	return nil
}

func findTechnique(s *story.NovelState, name string) *story.Technique {
	want := NormalizeName(name)
	for i := range s.Techniques {
		if NormalizeName(s.Techniques[i].Name) == want {
			return &s.Techniques[i]
		}
	}
	return nil
}

func findAntagonist(s *story.NovelState, name string) *story.Antagonist {
	want := NormalizeName(name)
	for i := range s.Antagonists {
		if NormalizeName(s.Antagonists[i].Name) == want {
			return &s.Antagonists[i]
		}
	}
	return nil
}

func findWorldEntry(s *story.NovelState, title string) *story.WorldEntry {
	want := NormalizeName(title)
	for i := range s.WorldEntries {
		if NormalizeName(s.WorldEntries[i].Title) == want {
			return &s.WorldEntries[i]
		}
	}
	return nil
}

// previewConnections runs the auto-linker over the freshly extracted items
// and techniques, materializing placeholder records for entries the state
// does not know yet. A panic anywhere inside linking is swallowed: the
// extraction preview must survive a broken connection pass.
func previewConnections(extraction Extraction, existing *story.NovelState, opts *PreviewOpts) (out []ConnectionPreview) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	items := make([]story.Item, 0, len(extraction.ItemUpdates))
	for _, iu := range extraction.ItemUpdates {
		if NormalizeName(iu.Name) == "" {
			continue
		}
		if match := findItem(existing, iu.Name); match != nil {
			items = append(items, *match)
			continue
		}
		items = append(items, story.Item{
			ID:                   "pending:" + NormalizeName(iu.Name),
			Name:                 strings.TrimSpace(iu.Name),
			Category:             iu.Category,
			FirstAppearedChapter: opts.NewChapter.Number,
		})
	}

	techniques := make([]story.Technique, 0, len(extraction.TechniqueUpdates))
	for _, tu := range extraction.TechniqueUpdates {
		if NormalizeName(tu.Name) == "" {
			continue
		}
		if match := findTechnique(existing, tu.Name); match != nil {
			techniques = append(techniques, *match)
			continue
		}
		techniques = append(techniques, story.Technique{
			ID:                   "pending:" + NormalizeName(tu.Name),
			Name:                 strings.TrimSpace(tu.Name),
			Category:             tu.Category,
			FirstAppearedChapter: opts.NewChapter.Number,
		})
	}

	res := autolink.Analyze(opts.Novel, *opts.NewChapter, opts.Scenes, items, techniques)
	for _, c := range res.Connections {
		out = append(out, ConnectionPreview{
			Connection:   c,
			CanAutoApply: c.Confidence >= autolink.AutoApplyThreshold,
		})
	}
	return out
}

func meanConfidence(previews []EntityPreview) float64 {
	if len(previews) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range previews {
		sum += p.Confidence
	}
	return sum / float64(len(previews))
}

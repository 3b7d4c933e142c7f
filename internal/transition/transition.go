// Package transition validates narrative continuity between two consecutive
// chapters: abrupt time skips, unexplained location jumps, vanished
// characters, cliche openings, and openings with no tie to what came before.
//
// Validation is heuristic and advisory. HasGoodTransition is the guarded
// boundary the generation loop calls: it never raises, and on any internal
// failure it passes the chapter rather than blocking acceptance.
package transition

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Shabir12345/Hall-of-Jade-Manuscripts-sub009/internal/story"
)

// Severity ranks a continuity issue.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// IssueType identifies the continuity check that fired.
type IssueType string

const (
	IssueClicheOpening    IssueType = "cliche_opening"
	IssueTimeSkip         IssueType = "time_skip"
	IssueLocationJump     IssueType = "location_jump"
	IssueMissingReference IssueType = "missing_reference"
	IssueDisconnected     IssueType = "disconnected"
)

// Issue is one detected continuity problem.
type Issue struct {
	Type         IssueType `json:"type"`
	Severity     Severity  `json:"severity"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	SuggestedFix string    `json:"suggested_fix,omitempty"`
}

// Result is the full continuity verdict for one chapter pair.
type Result struct {
	IsValid     bool     `json:"is_valid"`
	Score       int      `json:"score"`
	Issues      []Issue  `json:"issues"`
	Warnings    []string `json:"warnings,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// Excerpt sizes. The opening of the new chapter and the ending of the
// previous one are all the validator reads.
const (
	openingChars = 500
	endingWords  = 300
)

// MinValidScore is the score floor for a passing transition.
const MinValidScore = 70

var timeSkipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bthe next (?:morning|day|evening|night)\b`),
	regexp.MustCompile(`(?i)\bthe following (?:morning|day|evening|week)\b`),
	regexp.MustCompile(`(?i)\b(?:hours|days|weeks|months|years) later\b`),
	regexp.MustCompile(`(?i)\bas dawn broke\b`),
	regexp.MustCompile(`(?i)\bwhen (?:morning|dawn|night) (?:came|fell|arrived)\b`),
	regexp.MustCompile(`(?i)\bafter (?:a|several|many) (?:day|days|week|weeks|month|months)\b`),
	regexp.MustCompile(`(?i)\bthat night\b`),
}

// Spatially gated location extraction: a phrase only counts as a location
// indicator next to a preposition or a motion verb. Bare nouns are ignored.
var locationGates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:at|in|inside|near|within|into|beneath|beyond)\s+the\s+([a-z]+(?:\s+[a-z]+)?)`),
	regexp.MustCompile(`(?i)\b(?:entered|returned to|walked (?:to|into)|arrived at|stepped into|reached|approached)\s+(?:the\s+)?([a-z]+(?:\s+[a-z]+)?)`),
}

// metaphorIndicators are known non-spatial uses that must not count as
// locations.
var metaphorIndicators = map[string]struct{}{
	"cloud":       {},
	"azure cloud": {},
}

// junkIndicators are gate captures that are grammar, not geography.
var junkIndicators = map[string]struct{}{
	"him": {}, "her": {}, "them": {}, "it": {}, "his": {}, "their": {},
	"that": {}, "this": {}, "same": {}, "end": {}, "midst": {},
	"distance": {}, "air": {}, "silence": {}, "dark": {}, "darkness": {},
	"moment": {}, "morning": {}, "night": {}, "evening": {},
}

// genericLocations are so unspecific that two of them are assumed to refer
// to the same place.
var genericLocations = map[string]struct{}{
	"hut": {}, "room": {}, "hall": {}, "place": {},
}

var locationSynonyms = map[string][]string{
	"hall":     {"chamber", "room"},
	"hut":      {"house", "home", "cabin"},
	"forest":   {"woods", "grove"},
	"mountain": {"peak", "summit"},
	"city":     {"town"},
	"cave":     {"cavern", "grotto"},
}

var explicitTransitionPhrase = regexp.MustCompile(
	`(?i)\b(?:headed (?:to|for|back)|returned to|made (?:his|her|their) way|set (?:off|out)|travell?ed to|journeyed to|went (?:to|back)|back at|left for|on (?:his|her|their) way to)\b`)

var transitionWords = regexp.MustCompile(
	`(?i)\b(?:but|however|meanwhile|then|still|yet|after|though|although|later|moments?|back|finally|once)\b`)

var nameCandidate = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)

var nameStopwords = map[string]struct{}{
	"The": {}, "A": {}, "An": {}, "He": {}, "She": {}, "It": {}, "They": {},
	"But": {}, "However": {}, "Then": {}, "When": {}, "After": {}, "Before": {},
	"As": {}, "While": {}, "Meanwhile": {}, "With": {}, "His": {}, "Her": {},
	"Their": {}, "There": {}, "That": {}, "This": {}, "Suddenly": {},
	"Inside": {}, "Outside": {}, "And": {}, "Now": {}, "If": {}, "At": {},
	"In": {}, "On": {}, "For": {}, "From": {}, "By": {}, "What": {},
	"Why": {}, "Where": {}, "Who": {}, "Yet": {}, "Still": {}, "Though": {},
	"Chapter": {}, "Even": {}, "Every": {}, "No": {}, "Not": {}, "Only": {},
}

// Validate compares the tail of the previous chapter against the head of the
// new one and scores continuity.
func Validate(prev, next story.Chapter) Result {
	opening := headChars(next.Content, openingChars)
	ending := tailWords(prev.Content, endingWords)

	var issues []Issue
	var warnings []string

	// 1. Opening cliche.
	if oa := AnalyzeOpening(next.Content); oa.IsCliche {
		sev := SeverityMedium
		if oa.Severity == SeverityHigh {
			sev = SeverityHigh
		}
		issues = append(issues, Issue{
			Type:         IssueClicheOpening,
			Severity:     sev,
			Description:  fmt.Sprintf("Opening sentence matches a known cliche (%s).", oa.Pattern),
			Location:     "chapter opening",
			SuggestedFix: oa.Suggestion,
		})
	}

	// 2. Time skip. Only the first matching pattern is reported.
	timeSkip := false
	for _, p := range timeSkipPatterns {
		if m := p.FindString(opening); m != "" {
			timeSkip = true
			issues = append(issues, Issue{
				Type:         IssueTimeSkip,
				Severity:     SeverityHigh,
				Description:  fmt.Sprintf("Chapter opens with a time skip (%q).", m),
				Location:     "chapter opening",
				SuggestedFix: "Bridge the gap: a sentence on what passed during the skip keeps readers oriented.",
			})
			break
		}
	}

	// 3. Location jump. A time skip already explains any location change.
	if !timeSkip {
		prevLocs := extractLocations(ending)
		newLocs := extractLocations(opening)
		if len(prevLocs) > 0 && len(newLocs) > 0 &&
			!locationsOverlap(prevLocs, newLocs) &&
			!explicitTransitionPhrase.MatchString(opening) {
			issues = append(issues, Issue{
				Type:     IssueLocationJump,
				Severity: SeverityHigh,
				Description: fmt.Sprintf("Previous chapter ended around %s but the new one opens at %s with no travel in between.",
					quoteList(prevLocs), quoteList(newLocs)),
				Location:     "chapter opening",
				SuggestedFix: "Show or mention the movement between the two places.",
			})
		}
	}

	// 4. Character-state continuity. A soft warning, not a scored issue.
	prevNames := extractNames(ending)
	newNames := extractNames(opening)
	characterContinuity := namesOverlap(prevNames, newNames)
	if len(prevNames) > 0 && !characterContinuity {
		warnings = append(warnings,
			"None of the characters from the previous chapter's ending appear in the new opening.")
	}

	// 5. Missing reference. Last phrases of the old ending vs the new opening.
	prevPhrases := lastPhrases(ending, 10)
	phraseOverlap := phrasesOverlap(prevPhrases, allPhrases(opening))
	if len(prevPhrases) > 0 && !phraseOverlap && !characterContinuity {
		issues = append(issues, Issue{
			Type:         IssueMissingReference,
			Severity:     SeverityLow,
			Description:  "The opening carries nothing over from the previous chapter's final lines.",
			Location:     "chapter opening",
			SuggestedFix: "Echo an image, object, or phrase from the previous ending.",
		})
	}

	// 6. Disconnected opening.
	if !hasIssueType(issues, IssueDisconnected) &&
		!transitionWords.MatchString(opening) &&
		!characterContinuity &&
		!phraseOverlap &&
		len(prevNames) > 0 {
		issues = append(issues, Issue{
			Type:         IssueDisconnected,
			Severity:     SeverityHigh,
			Description:  "The opening has no transition words, no returning characters, and no callbacks; it reads as a different story.",
			Location:     "chapter opening",
			SuggestedFix: "Anchor the opening on a character, place, or thread from the previous chapter.",
		})
	}

	score := scoreIssues(issues)
	return Result{
		IsValid:     score >= MinValidScore && !hasSeverity(issues, SeverityHigh),
		Score:       score,
		Issues:      issues,
		Warnings:    warnings,
		Suggestions: suggestionsFor(issues),
	}
}

// HasGoodTransition is the acceptance gate. No previous chapter always
// passes, and any internal failure passes with a warning: continuity
// checking must never block generation.
func HasGoodTransition(prev *story.Chapter, next story.Chapter) (ok bool) {
	if prev == nil {
		return true
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "warning: transition validation failed, passing chapter %d: %v\n", next.Number, r)
			ok = true
		}
	}()
	return Validate(*prev, next).IsValid
}

func scoreIssues(issues []Issue) int {
	score := 100
	for _, is := range issues {
		switch is.Severity {
		case SeverityHigh:
			score -= 20
		case SeverityMedium:
			score -= 10
		case SeverityLow:
			score -= 3
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

// suggestionsFor emits one line per distinct issue type, not per instance.
func suggestionsFor(issues []Issue) []string {
	seen := map[IssueType]struct{}{}
	var out []string
	for _, is := range issues {
		if _, ok := seen[is.Type]; ok {
			continue
		}
		seen[is.Type] = struct{}{}
		if is.SuggestedFix != "" {
			out = append(out, is.SuggestedFix)
		}
	}
	return out
}

func hasIssueType(issues []Issue, t IssueType) bool {
	for _, is := range issues {
		if is.Type == t {
			return true
		}
	}
	return false
}

func hasSeverity(issues []Issue, s Severity) bool {
	for _, is := range issues {
		if is.Severity == s {
			return true
		}
	}
	return false
}

// --- excerpt helpers ---

func headChars(text string, n int) string {
	t := strings.TrimSpace(text)
	if len(t) <= n {
		return t
	}
	return t[:n]
}

func tailWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// --- location indicators ---

func extractLocations(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, gate := range locationGates {
		for _, m := range gate.FindAllStringSubmatch(text, -1) {
			ind := strings.ToLower(strings.TrimSpace(m[1]))
			if ind == "" {
				continue
			}
			if _, bad := metaphorIndicators[ind]; bad {
				continue
			}
			if _, bad := junkIndicators[firstWord(ind)]; bad {
				continue
			}
			if _, dup := seen[ind]; dup {
				continue
			}
			seen[ind] = struct{}{}
			out = append(out, ind)
		}
	}
	return out
}

func firstWord(s string) string {
	if i := strings.IndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func locationsOverlap(a, b []string) bool {
	for _, la := range a {
		for _, lb := range b {
			if indicatorsOverlap(la, lb) {
				return true
			}
		}
	}
	return false
}

func indicatorsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	if synonymous(a, b) || synonymous(b, a) {
		return true
	}
	_, ga := genericLocations[lastWord(a)]
	_, gb := genericLocations[lastWord(b)]
	return ga && gb
}

func synonymous(a, b string) bool {
	for _, syn := range locationSynonyms[lastWord(a)] {
		if strings.Contains(b, syn) {
			return true
		}
	}
	return false
}

func lastWord(s string) string {
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		return s[i+1:]
	}
	return s
}

// --- character-name candidates ---

func extractNames(text string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range nameCandidate.FindAllString(text, -1) {
		tokens := strings.Fields(m)
		for len(tokens) > 0 {
			if _, stop := nameStopwords[tokens[0]]; stop {
				tokens = tokens[1:]
				continue
			}
			break
		}
		if len(tokens) == 0 {
			continue
		}
		name := strings.Join(tokens, " ")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func namesOverlap(prev, next []string) bool {
	for _, p := range prev {
		for _, n := range next {
			lp, ln := strings.ToLower(p), strings.ToLower(n)
			if strings.Contains(lp, ln) || strings.Contains(ln, lp) {
				return true
			}
		}
	}
	return false
}

// --- phrase windows ---

var wordRunes = regexp.MustCompile(`[a-z']+`)

func phraseWindows(text string) []string {
	words := wordRunes.FindAllString(strings.ToLower(text), -1)
	if len(words) < 3 {
		return nil
	}
	out := make([]string, 0, len(words)-2)
	for i := 0; i+3 <= len(words); i++ {
		out = append(out, strings.Join(words[i:i+3], " "))
	}
	return out
}

func lastPhrases(text string, n int) []string {
	all := phraseWindows(text)
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

func allPhrases(text string) []string { return phraseWindows(text) }

func phrasesOverlap(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, p := range a {
		set[p] = struct{}{}
	}
	for _, p := range b {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return strings.Join(quoted, ", ")
}

package transition

import (
	"regexp"
	"strings"
)

// OpeningAnalysis is the verdict on a chapter's first sentence.
type OpeningAnalysis struct {
	IsCliche   bool     `json:"is_cliche"`
	Severity   Severity `json:"severity,omitempty"`
	Pattern    string   `json:"pattern,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// clicheOpening is one known tired opening shape.
type clicheOpening struct {
	re         *regexp.Regexp
	label      string
	severity   Severity
	suggestion string
}

var clicheOpenings = []clicheOpening{
	{
		re:         regexp.MustCompile(`(?i)^[^.!?]{0,40}\b(?:woke|awoke|woke up|opened (?:his|her|their) eyes)\b`),
		label:      "wake-up opening",
		severity:   SeverityHigh,
		suggestion: "Open mid-action or mid-thought instead of with the character waking.",
	},
	{
		re:         regexp.MustCompile(`(?i)^[^.!?]{0,40}\bthe sun (?:rose|was rising|crept|climbed)\b`),
		label:      "sunrise opening",
		severity:   SeverityHigh,
		suggestion: "Skip the sunrise; start where the previous chapter's tension points.",
	},
	{
		re:         regexp.MustCompile(`(?i)^[^.!?]{0,60}\bit was a\b[^.!?]{0,40}\b(?:day|night|morning|evening)\b`),
		label:      "weather-report opening",
		severity:   SeverityMedium,
		suggestion: "Fold the time of day into an action instead of announcing it.",
	},
	{
		re:         regexp.MustCompile(`(?i)^\s*meanwhile\b`),
		label:      "bare 'meanwhile' opening",
		severity:   SeverityMedium,
		suggestion: "Anchor the scene shift on a character or place, not a bare 'meanwhile'.",
	},
	{
		re:         regexp.MustCompile(`(?i)^[^.!?]{0,40}\blittle did (?:he|she|they)\b`),
		label:      "'little did they know' opening",
		severity:   SeverityMedium,
		suggestion: "Let the surprise land on its own; drop the foreshadowing formula.",
	},
}

// AnalyzeOpening checks the first sentence of a chapter against known
// cliche openings. The first matching pattern wins.
func AnalyzeOpening(text string) OpeningAnalysis {
	first := firstSentence(text)
	if first == "" {
		return OpeningAnalysis{}
	}
	for _, c := range clicheOpenings {
		if c.re.MatchString(first) {
			return OpeningAnalysis{
				IsCliche:   true,
				Severity:   c.severity,
				Pattern:    c.label,
				Suggestion: c.suggestion,
			}
		}
	}
	return OpeningAnalysis{}
}

func firstSentence(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	for i, r := range t {
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			return t[:i+1]
		}
	}
	if len(t) > 200 {
		return t[:200]
	}
	return t
}

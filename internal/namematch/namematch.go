// Package namematch decides whether prose references a named story entity.
//
// Matching is lexical: names are classified as proper, descriptive, or mixed,
// and a matching strategy is built from that classification (whole-name plus
// distinctive-fragment patterns with word boundaries). Purely descriptive
// names like "Ancient Spirit Tree" only match as a full phrase, since their
// individual words occur everywhere in genre prose.
//
// Every function here is total over arbitrary string input, including names
// containing regex metacharacters.
package namematch

import (
	"regexp"
	"strings"
	"unicode"
)

// NameType classifies how distinctive a display name is.
type NameType string

const (
	// Proper names are made of proper-noun tokens ("Mei Lin", "Alex Maxwell").
	Proper NameType = "proper"
	// Descriptive names are built from common narrative vocabulary
	// ("Ancient Spirit Tree").
	Descriptive NameType = "descriptive"
	// Mixed names combine both ("Elder Feng", "Azure Dragon Wu Kang").
	Mixed NameType = "mixed"
)

// Classification is the result of analyzing a display name.
type Classification struct {
	Type               NameType `json:"type"`
	HasCommonWords     bool     `json:"has_common_words"`
	WordCount          int      `json:"word_count"`
	IsLikelyProperName bool     `json:"is_likely_proper_name"`
}

// commonWords is vocabulary that appears constantly in genre prose and so
// carries no identifying power on its own.
var commonWords = map[string]struct{}{}

func init() {
	for _, w := range []string{
		// generic narrative nouns
		"ancient", "old", "young", "great", "grand", "elder", "senior", "junior",
		"master", "lord", "lady", "king", "queen", "prince", "princess",
		"emperor", "empress", "god", "goddess", "devil", "demon", "ghost",
		"spirit", "soul", "beast", "dragon", "phoenix", "tiger", "serpent",
		"wolf", "crane", "tortoise", "tree", "flower", "lotus", "root",
		"mountain", "river", "lake", "sea", "ocean", "cloud", "wind", "rain",
		"storm", "thunder", "lightning", "flame", "fire", "frost", "ice",
		"snow", "mist", "shadow", "light", "dark", "darkness", "moon", "sun",
		"star", "sky", "heaven", "heavenly", "earth", "void", "abyss",
		// colors
		"red", "crimson", "scarlet", "azure", "blue", "green", "jade",
		"golden", "gold", "silver", "white", "black", "purple", "violet",
		"grey", "gray",
		// cultivation jargon
		"qi", "dao", "sect", "clan", "palace", "pavilion", "hall", "temple",
		"immortal", "mortal", "divine", "celestial", "mystic", "profound",
		"supreme", "primordial", "eternal", "sacred", "holy", "cursed",
		"blood", "bone", "iron", "steel", "stone", "sword", "blade", "saber",
		"spear", "bow", "pill", "elixir", "talisman", "scripture", "art",
		"technique", "realm", "tribulation", "foundation", "core", "nascent",
		// connective filler
		"the", "of", "and", "a", "an",
	} {
		commonWords[w] = struct{}{}
	}
}

// knownNameTokens are surnames and given names common in the corpus; their
// presence marks a token as a proper-noun indicator even when lowercase.
var knownNameTokens = map[string]struct{}{}

func init() {
	for _, w := range []string{
		"li", "wang", "zhang", "chen", "liu", "yang", "zhao", "wu", "xu",
		"sun", "ma", "lin", "mei", "feng", "han", "long", "yun", "xiao",
		"ye", "mo", "bai", "qin", "su", "tang", "gu", "shen", "jiang",
		"luo", "song", "fang", "kang", "wei", "ning", "rui", "shan",
		"alex", "maxwell", "jin", "an", "yan", "zhou", "zhu", "hu", "guo",
	} {
		knownNameTokens[w] = struct{}{}
	}
}

// IsCommonWord reports whether the token is common narrative vocabulary.
func IsCommonWord(token string) bool {
	_, ok := commonWords[strings.ToLower(strings.TrimSpace(token))]
	return ok
}

// looksProper reports whether a token reads as a proper-noun fragment:
// a known name token, a short token, or one capitalized in the original.
func looksProper(token string) bool {
	t := strings.TrimSpace(token)
	if t == "" {
		return false
	}
	if _, ok := knownNameTokens[strings.ToLower(t)]; ok {
		return true
	}
	if len(t) <= 3 {
		return true
	}
	r := []rune(t)[0]
	return unicode.IsUpper(r) && !IsCommonWord(t)
}

// ClassifyName analyzes a display name. Pure: same input, same output.
func ClassifyName(name string) Classification {
	tokens := strings.Fields(strings.TrimSpace(name))
	c := Classification{WordCount: len(tokens)}
	if len(tokens) == 0 {
		c.Type = Descriptive
		return c
	}

	properCount := 0
	for _, tok := range tokens {
		if IsCommonWord(tok) {
			c.HasCommonWords = true
		}
		if looksProper(tok) {
			properCount++
		}
	}
	c.IsLikelyProperName = properCount*2 >= len(tokens)

	if len(tokens) == 1 {
		if c.HasCommonWords {
			c.Type = Descriptive
		} else {
			c.Type = Proper
		}
		return c
	}

	switch {
	case c.HasCommonWords && !c.IsLikelyProperName:
		c.Type = Descriptive
	case !c.HasCommonWords && c.IsLikelyProperName:
		c.Type = Proper
	default:
		c.Type = Mixed
	}
	return c
}

// Strategy is a compiled matching plan for one name.
type Strategy struct {
	FullName         string
	Classification   Classification
	Patterns         []*regexp.Regexp
	RequireFullMatch bool
}

// boundedPattern compiles a case-insensitive pattern for the literal phrase,
// anchored on word boundaries where the phrase actually starts/ends with a
// word character. Names like "A.J. (Ace)" end in punctuation; a blind \b
// there would never match.
func boundedPattern(literal string) *regexp.Regexp {
	quoted := regexp.QuoteMeta(literal)
	prefix, suffix := "", ""
	runes := []rune(literal)
	if len(runes) > 0 {
		if isWordRune(runes[0]) {
			prefix = `\b`
		}
		if isWordRune(runes[len(runes)-1]) {
			suffix = `\b`
		}
	}
	return regexp.MustCompile(`(?i)` + prefix + quoted + suffix)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// BuildStrategy derives the matching strategy for a name.
//
// Fragment rules: proper/mixed multi-token names also match on their first
// and last token (when the token is not a common word and has length >= 2);
// descriptive multi-token names only match on distinctive fragments of
// length >= 5 that are not common words. Pure descriptive names require the
// full phrase.
func BuildStrategy(name string) Strategy {
	trimmed := strings.TrimSpace(name)
	s := Strategy{FullName: trimmed, Classification: ClassifyName(trimmed)}
	if trimmed == "" {
		return s
	}

	s.Patterns = append(s.Patterns, boundedPattern(trimmed))
	tokens := strings.Fields(trimmed)

	switch s.Classification.Type {
	case Proper, Mixed:
		if len(tokens) >= 2 {
			for _, tok := range []string{tokens[0], tokens[len(tokens)-1]} {
				if !IsCommonWord(tok) && len(tok) >= 2 {
					s.Patterns = append(s.Patterns, boundedPattern(tok))
				}
			}
		}
	case Descriptive:
		s.RequireFullMatch = true
		if len(tokens) >= 2 {
			for _, tok := range tokens {
				if !IsCommonWord(tok) && len(tok) >= 5 {
					s.Patterns = append(s.Patterns, boundedPattern(tok))
				}
			}
		}
	}
	return s
}

// TextContainsName reports whether the text references the named entity.
// Empty text or name is never a match.
func TextContainsName(text, name string) bool {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(name) == "" {
		return false
	}
	s := BuildStrategy(name)

	// Descriptive names degrade to a plain substring check on the full
	// phrase; fragment hits on common vocabulary are not trusted.
	if s.RequireFullMatch {
		return strings.Contains(strings.ToLower(text), strings.ToLower(s.FullName))
	}

	for _, p := range s.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// MentionConfidence scores how strongly the text mentions the name.
//
// A literal occurrence starts at 0.7 and gains 0.05 per extra occurrence,
// capped at 0.95. Without a contiguous occurrence the score degrades by how
// many name tokens still appear: all 0.6, some 0.4, none 0.2.
func MentionConfidence(name, text string) float64 {
	n := strings.ToLower(strings.TrimSpace(name))
	t := strings.ToLower(text)
	if n == "" || strings.TrimSpace(t) == "" {
		return 0.2
	}

	if count := strings.Count(t, n); count > 0 {
		conf := 0.7 + 0.05*float64(count-1)
		if conf > 0.95 {
			conf = 0.95
		}
		return conf
	}

	tokens := strings.Fields(n)
	found := 0
	for _, tok := range tokens {
		if strings.Contains(t, tok) {
			found++
		}
	}
	switch {
	case len(tokens) > 0 && found == len(tokens):
		return 0.6
	case found > 0:
		return 0.4
	default:
		return 0.2
	}
}

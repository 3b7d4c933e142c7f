package namematch

import "testing"

func TestClassifyName_Proper(t *testing.T) {
	cases := []string{"Mei Lin", "Alex Maxwell", "Wu Kang"}
	for _, name := range cases {
		c := ClassifyName(name)
		if c.Type != Proper {
			t.Errorf("ClassifyName(%q).Type = %s, want proper", name, c.Type)
		}
		if !c.IsLikelyProperName {
			t.Errorf("ClassifyName(%q) should look like a proper name", name)
		}
	}
}

func TestClassifyName_Descriptive(t *testing.T) {
	c := ClassifyName("Ancient Spirit Tree")
	if c.Type != Descriptive {
		t.Errorf("Type = %s, want descriptive", c.Type)
	}
	if !c.HasCommonWords {
		t.Error("Ancient Spirit Tree should register common words")
	}
	if c.WordCount != 3 {
		t.Errorf("WordCount = %d, want 3", c.WordCount)
	}
}

func TestClassifyName_Mixed(t *testing.T) {
	for _, name := range []string{"Elder Feng", "Azure Dragon Wu Kang"} {
		c := ClassifyName(name)
		if c.Type != Mixed {
			t.Errorf("ClassifyName(%q).Type = %s, want mixed", name, c.Type)
		}
	}
}

func TestClassifyName_SingleToken(t *testing.T) {
	if got := ClassifyName("dragon").Type; got != Descriptive {
		t.Errorf("single common token classified as %s, want descriptive", got)
	}
	if got := ClassifyName("Zhenyuan").Type; got != Proper {
		t.Errorf("single distinctive token classified as %s, want proper", got)
	}
}

func TestClassifyName_Empty(t *testing.T) {
	c := ClassifyName("   ")
	if c.Type != Descriptive || c.WordCount != 0 {
		t.Errorf("empty name: got %+v", c)
	}
}

func TestTextContainsName_ProperFragments(t *testing.T) {
	text := "Later that evening, Maxwell stood at the gate."
	if !TextContainsName(text, "Alex Maxwell") {
		t.Error("surname fragment should match a proper name")
	}
	if !TextContainsName("Alex drew his blade.", "Alex Maxwell") {
		t.Error("given-name fragment should match a proper name")
	}
	if TextContainsName("Maxwellian physics bored him.", "Alex Maxwell") {
		t.Error("fragment must respect word boundaries")
	}
}

func TestTextContainsName_DescriptiveFullPhraseOnly(t *testing.T) {
	name := "Ancient Spirit Tree"
	if !TextContainsName("They camped beneath the ancient spirit tree.", name) {
		t.Error("full phrase should match case-insensitively")
	}
	if TextContainsName("An ancient tree loomed over the spirit spring.", name) {
		t.Error("scattered common words must not match a descriptive name")
	}
}

func TestTextContainsName_PunctuatedName(t *testing.T) {
	// Regex metacharacters in names must never panic and must still match.
	name := "A.J. (Ace)"
	if !TextContainsName("Everyone called him A.J. (Ace) back home.", name) {
		t.Error("punctuated name should match literally")
	}
	if TextContainsName("The acer swerved.", name) {
		t.Error("punctuated name should not match unrelated text")
	}
}

func TestTextContainsName_Empty(t *testing.T) {
	if TextContainsName("", "Mei Lin") {
		t.Error("empty text must not match")
	}
	if TextContainsName("some text", "  ") {
		t.Error("blank name must not match")
	}
}

func TestBuildStrategy_DescriptiveRequiresFullMatch(t *testing.T) {
	s := BuildStrategy("Ancient Spirit Tree")
	if !s.RequireFullMatch {
		t.Error("descriptive names must require the full phrase")
	}
}

func TestBuildStrategy_ProperHasFragmentPatterns(t *testing.T) {
	s := BuildStrategy("Alex Maxwell")
	if s.RequireFullMatch {
		t.Error("proper names should not require a full match")
	}
	// full name + first + last token
	if len(s.Patterns) != 3 {
		t.Errorf("pattern count = %d, want 3", len(s.Patterns))
	}
}

func TestMentionConfidence_Occurrences(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"Mei Lin entered.", 0.70},
		{"Mei Lin paused. Mei Lin spoke.", 0.75},
		{"mei lin, mei lin, mei lin, mei lin, mei lin, mei lin, mei lin", 0.95},
	}
	for _, tc := range cases {
		got := MentionConfidence("Mei Lin", tc.text)
		if got != tc.want {
			t.Errorf("MentionConfidence(%q) = %.2f, want %.2f", tc.text, got, tc.want)
		}
	}
}

func TestMentionConfidence_Degraded(t *testing.T) {
	// All tokens present but not contiguous.
	if got := MentionConfidence("Mei Lin", "Lin bowed while Mei watched? No: Lin first, then Mei."); got != 0.6 {
		t.Errorf("all-tokens case = %.2f, want 0.60", got)
	}
	if got := MentionConfidence("Mei Lin", "Lin bowed alone."); got != 0.4 {
		t.Errorf("partial-tokens case = %.2f, want 0.40", got)
	}
	if got := MentionConfidence("Mei Lin", "Nobody was there."); got != 0.2 {
		t.Errorf("no-tokens case = %.2f, want 0.20", got)
	}
}

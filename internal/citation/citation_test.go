package citation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_NumberedListEntry(t *testing.T) {
	text := "Here are the top platforms:\n\n1. **Sirion** is a leading CLM platform.\n2. **Icertis** offers enterprise contract management."

	got := Analyze(text, "sirion.ai")

	assert.True(t, got.Cited)
	require.NotNil(t, got.Rank)
	assert.Equal(t, 1, *got.Rank)
	assert.Equal(t, 1, got.Mentions)
	require.NotNil(t, got.Position)
	assert.Equal(t, 2, *got.Position, "intro is paragraph 1, the list is paragraph 2")
}

func TestAnalyze_NotCited(t *testing.T) {
	text := "1. **Icertis** is a leading platform.\n2. **Agiloft** is another option."

	got := Analyze(text, "sirion.ai")

	assert.False(t, got.Cited)
	assert.Nil(t, got.Rank)
	assert.Zero(t, got.Mentions)
	assert.Nil(t, got.Position)
}

func TestAnalyze_EmptyInputs(t *testing.T) {
	zero := Analysis{}

	assert.Equal(t, zero, Analyze("", "sirion"))
	assert.Equal(t, zero, Analyze("some answer text here", ""))
}

func TestAnalyze_RankFormats(t *testing.T) {
	cases := []struct {
		name string
		text string
		rank int
	}{
		{"plain number dot", "3. Sirion is solid.", 3},
		{"bold number", "**2.** Sirion again.", 2},
		{"hash rank", "#4 Sirion holds steady.", 4},
		{"bracketed", "[5]. Sirion appears here.", 5},
		{"number colon", "7: Sirion listed.", 7},
		{"bullet with number", "- 6. Sirion on a bullet.", 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Analyze(tc.text, "Sirion")
			require.NotNil(t, got.Rank, "text: %q", tc.text)
			assert.Equal(t, tc.rank, *got.Rank)
		})
	}
}

func TestAnalyze_RankOutOfRangeIgnored(t *testing.T) {
	got := Analyze("51. Sirion way down the list.", "Sirion")

	assert.True(t, got.Cited)
	assert.Nil(t, got.Rank, "ranks above 50 are treated as noise")
}

func TestAnalyze_FirstQualifyingLineWins(t *testing.T) {
	text := "Sirion is mentioned in prose first.\n5. Sirion in a list.\n2. Sirion earlier rank, later line."

	got := Analyze(text, "Sirion")

	require.NotNil(t, got.Rank)
	assert.Equal(t, 5, *got.Rank, "document order beats numeric order")
}

func TestAnalyze_UnnumberedMention(t *testing.T) {
	got := Analyze("Many teams choose Sirion for contract work.", "Sirion")

	assert.True(t, got.Cited)
	assert.Nil(t, got.Rank)
	require.NotNil(t, got.Position)
	assert.Equal(t, 1, *got.Position)
}

func TestAnalyze_PositionCountsNonEmptyParagraphs(t *testing.T) {
	text := "First paragraph about the market.\n\n\n\nSecond paragraph mentions Sirion."

	got := Analyze(text, "Sirion")

	require.NotNil(t, got.Position)
	assert.Equal(t, 2, *got.Position, "blank runs collapse, they do not count")
}

func TestAnalyze_SingleParagraphPosition(t *testing.T) {
	// Newlines but no blank line: the whole answer is one paragraph.
	text := "ok\n---\nA meaningful line of text.\nSirion shows up here."

	got := Analyze(text, "Sirion")

	require.NotNil(t, got.Position)
	assert.Equal(t, 1, *got.Position)
}

func TestAnalyze_MentionsAcrossVariants(t *testing.T) {
	// "sirion.ai" matches once; "sirion" matches inside that occurrence and
	// once standalone. Cross-variant double counting is intentional.
	got := Analyze("sirion.ai is great. sirion is great.", "sirion.ai")

	assert.Equal(t, 3, got.Mentions)
}

func TestAnalyze_MentionsNonOverlappingPerVariant(t *testing.T) {
	got := Analyze("sirionsirion", "sirion")

	assert.Equal(t, 2, got.Mentions)
}

func TestAnalyze_CaseInsensitive(t *testing.T) {
	got := Analyze("SIRION tops the list.", "sirion")

	assert.True(t, got.Cited)
	assert.Equal(t, 1, got.Mentions)
}

func TestAnalyze_Deterministic(t *testing.T) {
	text := "1. **Sirion** leads.\n2. Icertis follows.\n\nSirion wins overall."
	first := Analyze(text, "sirion.ai")
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Analyze(text, "sirion.ai"))
	}
}

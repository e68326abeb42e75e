package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	c := New(DefaultOptions())

	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   \n\t  "))
}

func TestSplitShortTextOneChunk(t *testing.T) {
	c := New(DefaultOptions())

	text := "I moved to Lisbon last spring. The weather suits me. I work remotely."
	chunks := c.Split(text)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitDropsTinyText(t *testing.T) {
	c := New(DefaultOptions())

	assert.Nil(t, c.Split("ok."))
}

func TestSplitRespectsTokenBound(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetTokens = 20
	opts.OverlapTokens = 5
	c := New(opts)

	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	chunks := c.Split(sb.String())
	require.GreaterOrEqual(t, len(chunks), 2)

	counter := EstimateCounter{}
	for i, chunk := range chunks {
		assert.LessOrEqual(t, counter.Count(chunk), opts.TargetTokens, "chunk %d over target", i)
		assert.GreaterOrEqual(t, len(chunk), opts.MinChars, "chunk %d under min chars", i)
	}
}

func TestSplitTokenBoundWithUnevenSentences(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetTokens = 100
	opts.OverlapTokens = 30
	c := New(opts)

	// A short sentence followed by a near-target one. The overlap tail seeded
	// after the first flush must not push the second chunk over the target.
	short := strings.TrimSpace(strings.Repeat("tiny word pair. ", 8))
	long := strings.Repeat("somewhat longer filler words ", 18) + "end."
	chunks := c.Split(short + " " + long)
	require.GreaterOrEqual(t, len(chunks), 2)

	counter := EstimateCounter{}
	for i, chunk := range chunks {
		assert.LessOrEqual(t, counter.Count(chunk), opts.TargetTokens, "chunk %d over target", i)
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetTokens = 20
	opts.OverlapTokens = 10
	c := New(opts)

	var sb strings.Builder
	for i := 0; i < 10; i++ {
		sb.WriteString("Sentence number one here. Sentence number two here. ")
	}
	chunks := c.Split(sb.String())
	require.GreaterOrEqual(t, len(chunks), 2)

	// Each chunk after the first starts with the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		first := strings.SplitN(chunks[i], ".", 2)[0] + "."
		assert.Contains(t, chunks[i-1], first, "chunk %d does not overlap with its predecessor", i)
	}
}

func TestSplitLongSentenceByWords(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetTokens = 10
	opts.OverlapTokens = 0
	c := New(opts)

	// One run-on sentence with no terminal punctuation.
	text := strings.Repeat("word ", 50)
	chunks := c.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	counter := EstimateCounter{}
	for i, chunk := range chunks {
		assert.LessOrEqual(t, counter.Count(chunk), opts.TargetTokens, "chunk %d over target", i)
	}
}

func TestSplitNormalizesWhitespace(t *testing.T) {
	c := New(DefaultOptions())

	chunks := c.Split("spaced   out\n\ntext   with   newlines inside it.")
	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0], "  ")
	assert.NotContains(t, chunks[0], "\n")
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("First one. Second one! Third one? Trailing bit")
	assert.Equal(t, []string{"First one.", "Second one!", "Third one?", "Trailing bit"}, got)
}

func TestSplitSentencesEllipsis(t *testing.T) {
	got := splitSentences("Well... that happened. Moving on.")
	require.Len(t, got, 3)
	// The whole punctuation run stays with its sentence.
	assert.Equal(t, "Well...", got[0])
}

func TestEstimateCounter(t *testing.T) {
	counter := EstimateCounter{}
	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 3, counter.Count("one two three"))
	// Long words cost extra.
	assert.GreaterOrEqual(t, counter.Count("internationalization"), 2)
}

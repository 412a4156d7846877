package chunking

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "periods",
			text: "First sentence. Second sentence. Third sentence.",
			want: []string{"First sentence.", "Second sentence.", "Third sentence."},
		},
		{
			name: "mixed terminators",
			text: "Really? Yes! Good.",
			want: []string{"Really?", "Yes!", "Good."},
		},
		{
			name: "terminator run stays attached",
			text: "What?! No way... Fine.",
			want: []string{"What?!", "No way...", "Fine."},
		},
		{
			name: "no terminal punctuation",
			text: "just a fragment with no ending",
			want: []string{"just a fragment with no ending"},
		},
		{
			name: "newline boundary",
			text: "Line one.\nLine two.",
			want: []string{"Line one.", "Line two."},
		},
		{
			name: "period without trailing space does not split",
			text: "version 1.2 is out. Done.",
			want: []string{"version 1.2 is out.", "Done."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestChunkEmptyText(t *testing.T) {
	assert.Empty(t, Chunk("", DefaultParams()))
	assert.Empty(t, Chunk("   \n\t ", DefaultParams()))
}

func TestChunkSingleChunk(t *testing.T) {
	chunks := Chunk("Sentence one. Sentence two. Sentence three.", Params{ChunkSize: 1000, OverlapSentences: 3})
	require.Len(t, chunks, 1)
	assert.Equal(t, "Sentence one. Sentence two. Sentence three.", chunks[0])
}

func TestChunkOverlap(t *testing.T) {
	var sentences []string
	for i := range 10 {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d has exactly six words.", i))
	}
	text := strings.Join(sentences, " ")

	chunks := Chunk(text, Params{ChunkSize: 20, OverlapSentences: 3})
	require.Greater(t, len(chunks), 1)

	// Each chunk after the first starts with the last three sentences of
	// its predecessor.
	for i := 1; i < len(chunks); i++ {
		prev := SplitSentences(chunks[i-1])
		require.GreaterOrEqual(t, len(prev), 3)
		carried := strings.Join(prev[len(prev)-3:], " ")
		assert.True(t, strings.HasPrefix(chunks[i], carried),
			"chunk %d should start with the overlap from chunk %d", i, i-1)
	}
}

func TestChunkCoversAllSentences(t *testing.T) {
	var sentences []string
	for i := range 25 {
		sentences = append(sentences, fmt.Sprintf("This is sentence number %d in the transcript.", i))
	}
	text := strings.Join(sentences, " ")

	chunks := Chunk(text, Params{ChunkSize: 30, OverlapSentences: 3})
	joined := strings.Join(chunks, " ")
	for _, s := range sentences {
		assert.Contains(t, joined, s)
	}
}

func TestChunkOversizedSentencePassthrough(t *testing.T) {
	long := "word " + strings.Repeat("filler ", 50) + "end."
	chunks := Chunk(long, Params{ChunkSize: 10, OverlapSentences: 3})
	require.Len(t, chunks, 1)
	assert.Equal(t, strings.Join(strings.Fields(long), " "), strings.Join(strings.Fields(chunks[0]), " "))
}

func TestChunkSoftCap(t *testing.T) {
	var sentences []string
	for range 20 {
		sentences = append(sentences, "Five words are in here.")
	}
	text := strings.Join(sentences, " ")

	chunks := Chunk(text, Params{ChunkSize: 12, OverlapSentences: 1})
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		// Soft cap: a chunk closes once adding the next sentence would
		// exceed the budget, so no chunk exceeds cap plus one sentence.
		assert.LessOrEqual(t, len(strings.Fields(c)), 12+5)
	}
}

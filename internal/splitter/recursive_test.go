package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-agent/internal/domain"
)

func doc(text string) domain.Document {
	return domain.Document{Text: text, SourcePath: "test.txt", Kind: domain.LoaderPlainText}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("Some sentences about nothing in particular. Another one follows here. ", 40)
	s := NewRecursive(200, 40)

	first := s.Split([]domain.Document{doc(text)})
	second := s.Split([]domain.Document{doc(text)})

	require.Equal(t, first, second)
}

func TestSplitRespectsChunkSize(t *testing.T) {
	texts := []string{
		strings.Repeat("word ", 1000),
		strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50),
		strings.Repeat("x", 2000), // no separators at all
		"para one\n\npara two\n\n" + strings.Repeat("long paragraph content here ", 100),
	}
	s := NewRecursive(500, 100)
	for _, text := range texts {
		for _, c := range s.Split([]domain.Document{doc(text)}) {
			assert.LessOrEqual(t, len(c.Text), 500)
		}
	}
}

func TestSplitStartIndexIsExact(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	s := NewRecursive(500, 100)

	chunks := s.Split([]domain.Document{doc(text)})
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		require.Equal(t, c.Text, text[c.StartIndex:c.StartIndex+len(c.Text)],
			"chunk must be a verbatim slice of the source at its StartIndex")
	}
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	s := NewRecursive(500, 100)

	chunks := s.Split([]domain.Document{doc(text)})
	require.GreaterOrEqual(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].StartIndex + len(chunks[i-1].Text)
		// The next chunk starts inside the previous one, at most
		// chunkOverlap characters before its end.
		assert.Less(t, chunks[i].StartIndex, prevEnd)
		assert.LessOrEqual(t, prevEnd-chunks[i].StartIndex, 100)
	}
}

func TestSplitFoxScenario(t *testing.T) {
	// 50 repetitions split at 500/100 must give at
	// least two chunks, each within the ceiling, with the second
	// chunk starting on the overlap tail of the first.
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	s := NewRecursive(500, 100)

	chunks := s.Split([]domain.Document{doc(text)})
	require.GreaterOrEqual(t, len(chunks), 2)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c.Text), 500)
	}

	overlap := chunks[0].StartIndex + len(chunks[0].Text) - chunks[1].StartIndex
	require.Positive(t, overlap)
	assert.True(t, strings.HasSuffix(chunks[0].Text, chunks[1].Text[:overlap]),
		"second chunk must begin with the first chunk's trailing overlap")
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	para := strings.Repeat("alpha beta gamma delta. ", 8) // ~192 chars
	text := para + "\n\n" + para + "\n\n" + para
	s := NewRecursive(250, 0)

	chunks := s.Split([]domain.Document{doc(text)})
	require.GreaterOrEqual(t, len(chunks), 3)
	// Every chunk should start at a paragraph boundary, not mid-word.
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(c.Text, "alpha"),
			"chunks should break on the double-newline separator, got %q", c.Text[:16])
	}
}

func TestSplitMultibyteTextStaysValidUTF8(t *testing.T) {
	// 3-byte runes with no separator at all force the hard-window
	// fallback; windows must land on rune boundaries.
	text := strings.Repeat("€", 400)
	s := NewRecursive(500, 100)

	chunks := s.Split([]domain.Document{doc(text)})
	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c.Text), "chunk %d is invalid UTF-8 (len=%d bytes)", i, len(c.Text))
		assert.LessOrEqual(t, len(c.Text), 500)
		assert.Equal(t, c.Text, text[c.StartIndex:c.StartIndex+len(c.Text)])
	}
	// Rune-aligned windows join back to the source.
	var joined strings.Builder
	for _, c := range chunks {
		joined.WriteString(c.Text)
	}
	assert.Equal(t, text, joined.String())
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := NewRecursive(500, 100)
	chunks := s.Split([]domain.Document{doc("just a short note.")})
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].StartIndex)
	assert.Equal(t, "just a short note.", chunks[0].Text)
}

func TestSplitEmptyDocumentNoChunks(t *testing.T) {
	s := NewRecursive(500, 100)
	assert.Empty(t, s.Split([]domain.Document{doc("   \n\n  ")}))
}

func TestSplitPreservesDocumentOrderAndProvenance(t *testing.T) {
	s := NewRecursive(100, 10)
	docs := []domain.Document{
		{Text: strings.Repeat("first doc sentence. ", 20), SourcePath: "a.txt"},
		{Text: strings.Repeat("second doc sentence. ", 20), SourcePath: "b.txt", Page: 2},
	}
	chunks := s.Split(docs)
	require.NotEmpty(t, chunks)

	seenB := false
	for _, c := range chunks {
		switch c.SourcePath {
		case "a.txt":
			assert.False(t, seenB, "chunks must preserve document order")
		case "b.txt":
			seenB = true
			assert.Equal(t, 2, c.Page)
		}
	}
	assert.True(t, seenB)
}

func TestNewRecursiveClampsBadArguments(t *testing.T) {
	s := NewRecursive(0, -5)
	assert.Equal(t, DefaultChunkSize, s.chunkSize)
	assert.Equal(t, 0, s.chunkOverlap)

	s = NewRecursive(100, 100)
	assert.Equal(t, 20, s.chunkOverlap)
}

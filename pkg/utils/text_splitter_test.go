package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyText(t *testing.T) {
	s := NewTextSplitter(1000, 200)

	for _, text := range []string{"", "   ", "\n\n\t  \n"} {
		assert.Empty(t, s.Split(text), "Split(%q)", text)
	}
}

func TestSplitShortText(t *testing.T) {
	s := NewTextSplitter(1000, 200)

	chunks := s.Split("A short note.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "A short note.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestSplitDeterminism(t *testing.T) {
	s := NewTextSplitter(100, 20)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
}

func TestSplitInvariants(t *testing.T) {
	s := NewTextSplitter(120, 30)
	text := strings.Repeat("Sentence one is here. Sentence two follows!\nAnother line, with a clause; and more text. ", 25)
	runes := []rune(text)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index, "indices must be dense")
		assert.Less(t, c.StartChar, c.EndChar, "chunk %d", i)
		assert.LessOrEqual(t, c.EndChar, len(runes), "chunk %d", i)
		if i > 0 {
			prev := chunks[i-1]
			assert.Greater(t, c.StartChar, prev.StartChar, "chunk %d must start after the previous one", i)
			// De-duplicating the overlap must reconstruct the text: every
			// chunk starts at or before the previous chunk's end.
			assert.LessOrEqual(t, c.StartChar, prev.EndChar, "gap before chunk %d", i)
		}
	}

	assert.Equal(t, len(runes), chunks[len(chunks)-1].EndChar, "last chunk must end at the text end")
}

func TestSplitPrefersSeparators(t *testing.T) {
	s := NewTextSplitter(100, 10)
	// A paragraph break sits inside the last 20% of the first window.
	text := strings.Repeat("a", 60) + " middle words here. " + strings.Repeat("b", 12) + "\n\n" + strings.Repeat("c", 200)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.True(t, strings.HasSuffix(chunks[0].Content, strings.Repeat("b", 12)),
		"first chunk should cut at the paragraph break, got %q", chunks[0].Content)
}

func TestSplitNoSeparatorHardCut(t *testing.T) {
	s := NewTextSplitter(50, 10)
	text := strings.Repeat("x", 200)

	chunks := s.Split(text)
	require.GreaterOrEqual(t, len(chunks), 2)
	assert.Equal(t, 50, chunks[0].EndChar, "first window should cut at the hard boundary")

	// Forward progress even with no separators anywhere.
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].StartChar, chunks[i-1].StartChar, "chunk %d", i)
	}
}

func TestCountTokensFallback(t *testing.T) {
	s := &TextSplitter{maxChars: 100, overlap: 0, encoding: nil}
	assert.Equal(t, 2, s.CountTokens("12345678"))
}

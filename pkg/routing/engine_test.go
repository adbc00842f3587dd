package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatOnlyAlwaysDirect(t *testing.T) {
	e := NewEngine()

	// Even a document-heavy query with documents attached stays direct.
	d := e.Route("summarize the document about finches", true, ModeChatOnly, Context{TotalDocuments: 3})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, "explicit_mode_override", d.Reasoning.Rule)
}

func TestRagOnlyOverride(t *testing.T) {
	e := NewEngine()

	d := e.Route("hello there", true, ModeRagOnly, Context{TotalDocuments: 1})
	assert.Equal(t, PathRetrieval, d.Path)
	assert.Equal(t, 1.0, d.Confidence)

	// No documents left: fall back to direct with flagged reasoning.
	d = e.Route("hello there", false, ModeRagOnly, Context{})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 0.8, d.Confidence)
	assert.Equal(t, "rag_only_fallback", d.Reasoning.Rule)
}

func TestGreetingAndSmallTalk(t *testing.T) {
	e := NewEngine()

	d := e.Route("Hello, how's it going?", true, ModeAuto, Context{TotalDocuments: 1})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 0.95, d.Confidence)
	assert.Equal(t, "greeting_detection", d.Reasoning.Rule)

	d = e.Route("can you help with something", false, ModeAuto, Context{})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 0.9, d.Confidence)
	assert.Equal(t, "small_talk_detection", d.Reasoning.Rule)
}

func TestDocumentKeywordsWithDocs(t *testing.T) {
	e := NewEngine()

	d := e.Route("what does the document say about finches", true, ModeAuto, Context{TotalDocuments: 1, TotalChunks: 4})
	require.Equal(t, PathRetrieval, d.Path)
	assert.Equal(t, 0.85, d.Confidence)
	assert.Equal(t, "document_keywords_with_docs", d.Reasoning.Rule)
	assert.NotEmpty(t, d.Reasoning.MatchedKeywords)
	assert.Equal(t, 1, d.Reasoning.TotalDocuments)
	assert.Equal(t, 4, d.Reasoning.TotalChunks)

	// Same input without documents never routes to retrieval.
	d = e.Route("what does the document say about finches", false, ModeAuto, Context{})
	assert.Equal(t, PathDirect, d.Path)
}

func TestAmbiguousSubstantialQueryGoesHybrid(t *testing.T) {
	e := NewEngine()

	d := e.Route("compare darwin ideas with modern evolutionary biology views", true, ModeAuto, Context{TotalDocuments: 2})
	assert.Equal(t, PathHybrid, d.Path)
	assert.Equal(t, 0.6, d.Confidence)
	assert.Equal(t, "ambiguous_with_docs", d.Reasoning.Rule)
}

func TestDefaultConfidenceDependsOnDocuments(t *testing.T) {
	e := NewEngine()

	d := e.Route("ok", false, ModeAuto, Context{})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 0.8, d.Confidence)

	d = e.Route("ok", true, ModeAuto, Context{TotalDocuments: 1})
	assert.Equal(t, PathDirect, d.Path)
	assert.Equal(t, 0.7, d.Confidence)
}

func TestRouteDeterminism(t *testing.T) {
	e := NewEngine()

	first := e.Route("what does the file contain about gene flow", true, ModeAuto, Context{TotalDocuments: 1})
	for i := 0; i < 100; i++ {
		d := e.Route("what does the file contain about gene flow", true, ModeAuto, Context{TotalDocuments: 1})
		require.Equal(t, first, d)
	}
}

func TestConfidenceAlwaysInRange(t *testing.T) {
	e := NewEngine()

	inputs := []string{"", "hi", "thanks", "summarize", "one two three four five six", "random words here"}
	modes := []Mode{ModeAuto, ModeChatOnly, ModeRagOnly}
	for _, input := range inputs {
		for _, mode := range modes {
			for _, hasDocs := range []bool{true, false} {
				d := e.Route(input, hasDocs, mode, Context{})
				assert.GreaterOrEqual(t, d.Confidence, 0.0)
				assert.LessOrEqual(t, d.Confidence, 1.0)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAuto, m)

	m, err = ParseMode("rag_only")
	require.NoError(t, err)
	assert.Equal(t, ModeRagOnly, m)

	_, err = ParseMode("turbo")
	assert.Error(t, err)
}

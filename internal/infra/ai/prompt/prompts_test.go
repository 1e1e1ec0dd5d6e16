package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/avelinov/trendwatch/internal/domain/analysis"
)

var req = domain.Request{Category: "games", Query: "what is moving CS2 skins"}

func TestThemePromptCarriesQuery(t *testing.T) {
	p := NewBuilder().Theme(req)

	assert.Contains(t, p, req.Query)
	assert.Contains(t, p, req.Category)
	assert.Contains(t, p, "Return only that topic/phrase")
}

func TestFilterChunkPromptDemandsStrictJSON(t *testing.T) {
	docs := []domain.Document{
		{URL: "https://a", Text: "patch notes"},
		{URL: "https://b", Text: "unrelated gossip"},
	}

	p := NewBuilder().FilterChunk(req, "CS2 skins", docs, 2, 5)

	assert.Contains(t, p, "part 2/5")
	assert.Contains(t, p, "CS2 skins")
	assert.Contains(t, p, `STRICTLY a JSON list`)
	assert.Contains(t, p, `return an empty list: []`)
	// documents are serialized as the same {"text","url"} shape the filter
	// must echo back
	assert.Contains(t, p, `{"text":"patch notes","url":"https://a"}`)
	assert.Contains(t, p, `{"text":"unrelated gossip","url":"https://b"}`)
}

func TestAnalyzeChunkPromptUsesOnlyKeptDocuments(t *testing.T) {
	kept := []domain.FilteredDocument{{Text: "kept text", URL: "https://a"}}

	p := NewBuilder().AnalyzeChunk(req, "CS2 skins", kept, 1, 3)

	assert.Contains(t, p, "part 1/3")
	assert.Contains(t, p, "kept text")
	assert.Contains(t, p, "Potential Recommendations")
}

func TestSynthesizePromptEmbedsIntermediateAnalyses(t *testing.T) {
	joined := "analysis one\n\n---\n\nanalysis two"

	p := NewBuilder().Synthesize(req, "CS2 skins", joined)

	assert.Contains(t, p, joined)
	assert.Contains(t, p, req.Query)
	assert.Contains(t, p, "Recommendations for the Category Manager")
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string { return &s }

func TestHasContent(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    bool
	}{
		{"nil content", nil, false},
		{"empty string", strptr(""), false},
		{"whitespace only", strptr("   \n"), false},
		{"legacy placeholder", strptr("No content available"), false},
		{"legacy failure marker", strptr("Content crawling failed"), false},
		{"real content", strptr("actual article body"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Article{Content: tt.content}
			assert.Equal(t, tt.want, a.HasContent())
		})
	}
}

func TestViewFallsBackToSnippet(t *testing.T) {
	a := &Article{Title: "t", Link: "http://a.com", Snippet: " snippet text "}

	view := a.View()
	assert.Equal(t, "snippet text", view.Snippet)
	assert.Equal(t, "snippet text", view.Content, "snippet stands in when nothing was extracted")

	a.Content = strptr("full body")
	assert.Equal(t, "full body", a.View().Content)
}

func TestSourceSelectorAccessors(t *testing.T) {
	src := &Source{Kind: SourceKindFeed}
	assert.Nil(t, src.ListSelectors())
	assert.Empty(t, src.ContentSelector())

	src.Options = &ScrapeOptions{
		List:   &ListSelectors{Container: "div.item", Title: "h3", Link: "a"},
		Detail: &DetailSelectors{Content: "article.body"},
	}
	assert.NotNil(t, src.ListSelectors())
	assert.Equal(t, "article.body", src.ContentSelector())

	// Partial list config is unusable
	src.Options.List.Link = ""
	assert.Nil(t, src.ListSelectors())
}

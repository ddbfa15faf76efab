package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newsdigest-agent/internal/digest"
	"github.com/newsdigest-agent/internal/models"
)

// Summarize turns article views into a structured daily digest via
// Claude. Returns nil when there is nothing to summarize.
func (c *Client) Summarize(ctx context.Context, articles []models.ArticleView) (*digest.DailyDigest, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	for i, article := range articles {
		fmt.Fprintf(&sb, "%d. Title: %s\n", i+1, article.Title)
		if article.Snippet != "" {
			fmt.Fprintf(&sb, "   Snippet: %s\n", article.Snippet)
		}
		if article.Content != "" {
			fmt.Fprintf(&sb, "   Content: %s\n", article.Content)
		}
		fmt.Fprintf(&sb, "   Link: %s\n\n", article.Link)
	}

	response, err := c.CompleteWithJSON(ctx, DigestSystemPrompt, fmt.Sprintf(DigestUserPrompt, sb.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to generate digest: %w", err)
	}

	var result digest.DailyDigest
	if err := json.Unmarshal([]byte(extractJSON(response)), &result); err != nil {
		return nil, fmt.Errorf("failed to parse digest response: %w", err)
	}

	c.log.Info().
		Int("main_stories", len(result.MainStories)).
		Int("other_topics", len(result.OtherTopics)).
		Msg("Generated digest")
	return &result, nil
}

// extractJSON strips markdown code fences Claude sometimes wraps
// around JSON despite instructions
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```json")
		response = strings.TrimPrefix(response, "```")
		response = strings.TrimSuffix(response, "```")
	}
	return strings.TrimSpace(response)
}

// Ensure Client implements digest.Summarizer
var _ digest.Summarizer = (*Client)(nil)

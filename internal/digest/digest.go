package digest

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsdigest-agent/internal/models"
)

// Summarizer generates a structured digest from article views. A nil
// digest with a nil error means there was nothing usable to summarize.
type Summarizer interface {
	Summarize(ctx context.Context, articles []models.ArticleView) (*DailyDigest, error)
}

// Sink delivers ordered text chunks to the destination channel
type Sink interface {
	Send(ctx context.Context, chunks []string) error
}

// Story is one main story in the digest
type Story struct {
	Headline   string `json:"headline"`
	Category   string `json:"category"`
	Summary    string `json:"summary"`
	SourceLink string `json:"source_link"`
}

// Topic is a brief secondary item in the digest
type Topic struct {
	Topic       string `json:"topic"`
	BriefUpdate string `json:"brief_update"`
	SourceLink  string `json:"source_link"`
}

// DailyDigest is the structured summary produced by the summarizer
type DailyDigest struct {
	DigestTitle string  `json:"digest_title"`
	Overview    string  `json:"overview"`
	MainStories []Story `json:"main_stories"`
	OtherTopics []Topic `json:"other_topics"`
}

// Format renders the digest as delivery-ready text
func (d *DailyDigest) Format() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", d.DigestTitle)
	fmt.Fprintf(&sb, "## Overview\n%s\n\n", d.Overview)

	if len(d.MainStories) > 0 {
		sb.WriteString("## Main Stories\n\n")
		for _, story := range d.MainStories {
			fmt.Fprintf(&sb, "### %s\n", story.Headline)
			if story.Category != "" {
				fmt.Fprintf(&sb, "*Category: %s*\n\n", story.Category)
			}
			fmt.Fprintf(&sb, "%s\n\n", story.Summary)
			fmt.Fprintf(&sb, "<%s>\n", story.SourceLink)
		}
	}

	if len(d.OtherTopics) > 0 {
		sb.WriteString("## Other Topics\n\n")
		for _, topic := range d.OtherTopics {
			fmt.Fprintf(&sb, "### %s\n", topic.Topic)
			fmt.Fprintf(&sb, "%s\n\n", topic.BriefUpdate)
			fmt.Fprintf(&sb, "<%s>\n", topic.SourceLink)
		}
	}

	return sb.String()
}

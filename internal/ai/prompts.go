package ai

// Digest generation prompts
const (
	DigestSystemPrompt = `You are a news editor producing a concise daily digest from a set of crawled articles.

Group the articles into a handful of main stories and a short list of other topics. Write tight, factual summaries; do not editorialize. Every story and topic must reference the link of the article it came from.`

	DigestUserPrompt = `Summarize the following articles into a daily digest.

Articles:
%s

Respond in JSON format:
{
  "digest_title": "<short title for the digest>",
  "overview": "<2-3 sentence overview of the day's news>",
  "main_stories": [
    {
      "headline": "<story headline>",
      "category": "<optional category, empty string if none>",
      "summary": "<3-4 sentence summary>",
      "source_link": "<link of the source article>"
    }
  ],
  "other_topics": [
    {
      "topic": "<topic name>",
      "brief_update": "<1-2 sentence update>",
      "source_link": "<link of the source article>"
    }
  ]
}`
)

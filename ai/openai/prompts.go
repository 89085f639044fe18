package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/scout/ai"
)

const relevanceResponseSchema = `{
  "type": "object",
  "properties": {
    "results": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "index":  {"type": "integer"},
          "score":  {"type": "number", "minimum": 0, "maximum": 1},
          "keep":   {"type": "boolean"},
          "reason": {"type": "string"}
        },
        "required": ["index", "score", "keep"]
      }
    }
  },
  "required": ["results"]
}`

const relevancePromptTemplate = `You rank web pages for an event search. For each numbered page decide whether it is
the page of a specific event (conference, summit, congress, forum) that matches the search topic.

Output ONLY valid JSON matching this schema, with one entry per page and no text outside the object:

%s

Rules:
- score is 0.0 (irrelevant) to 1.0 (an event page squarely about the search topic).
- Pages about the exact search topic outrank pages about broader or neighbouring topics.
- Event listings, news articles, job ads, legal notices and documentation are not event pages: keep=false.
- reason is at most eight words.

Example:
Search topic: "kartellrecht"
Pages:
[0] https://kartellrechtstag.de/programm | Kartellrechtstag 2025 Programm
[1] https://compliance-news.example/artikel | Compliance Trends 2025
Output:
{"results":[{"index":0,"score":0.95,"keep":true,"reason":"event program on topic"},{"index":1,"score":0.1,"keep":false,"reason":"news article"}]}`

// maxSnippetChars keeps each item short enough for a small response budget.
const maxSnippetChars = 200

func buildSystemPrompt() string {
	return fmt.Sprintf(relevancePromptTemplate, relevanceResponseSchema)
}

func buildUserPrompt(query string, items []ai.RelevanceItem) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Search topic: %q\nPages:\n", compactText(query, maxSnippetChars))
	for _, item := range items {
		fmt.Fprintf(&sb, "[%d] %s | %s", item.Index, item.URL, compactText(item.Title, maxSnippetChars))
		if item.Snippet != "" {
			fmt.Fprintf(&sb, " | %s", compactText(item.Snippet, maxSnippetChars))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

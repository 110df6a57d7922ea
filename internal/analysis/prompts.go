package analysis

import (
	"fmt"
	"strings"
)

const (
	summaryInputChars   = 1000
	sentimentInputChars = 500
	synthesisInputChars = 6000

	summaryTemperature   = 0.3
	summaryMaxTokens     = 500
	sentimentTemperature = 0.1
	sentimentMaxTokens   = 10
	synthesisTemperature = 0.4
	synthesisMaxTokens   = 400
)

const summarySystemPrompt = "You are a professional news analyst. Provide concise, accurate summaries in valid JSON format."

const summaryUserTemplate = `Please analyze and summarize the following news article:

Title: %s
Content: %s

Provide a summary that includes:
1. Core insight or main claim (1-2 sentences)
2. Key named entities (companies, people, events, locations)
3. Important details or implications

Format your response as JSON with the following structure:
{
    "core_insight": "Main point of the article",
    "named_entities": ["entity1", "entity2", "entity3"],
    "key_details": "Important details and implications",
    "summary": "Complete 1-2 paragraph summary"
}`

const sentimentSystemPrompt = "You are a sentiment analysis expert. Respond with only one word: Positive, Negative, or Neutral."

const sentimentUserTemplate = `Analyze the sentiment of the following text and classify it as exactly one of: "Positive", "Negative", or "Neutral".

Text: %s

Respond with only the sentiment classification (Positive, Negative, or Neutral).`

const synthesisSystemPrompt = "You are a news editor writing the opening paragraph of a daily briefing. Be factual and neutral."

const synthesisUserTemplate = `Write one paragraph (3-5 sentences) that summarizes today's coverage of "%s" for a busy reader, based on these article summaries:

%s

Respond with the paragraph only.`

func summaryPrompt(title, content string) string {
	return fmt.Sprintf(summaryUserTemplate, strings.TrimSpace(title), truncateRunes(strings.TrimSpace(content), summaryInputChars))
}

func sentimentPrompt(text string) string {
	return fmt.Sprintf(sentimentUserTemplate, truncateRunes(strings.TrimSpace(text), sentimentInputChars))
}

func synthesisPrompt(topic string, summaries []string) string {
	var b strings.Builder
	for i, s := range summaries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(s))
	}
	return fmt.Sprintf(synthesisUserTemplate, strings.TrimSpace(topic), truncateRunes(b.String(), synthesisInputChars))
}

// truncateRunes cuts s to at most n characters without splitting a code point.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

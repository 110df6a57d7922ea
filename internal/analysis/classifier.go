package analysis

import (
	"context"
	"strings"
	"unicode"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/llm"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

// Classifier tags text with one of the three sentiments.
type Classifier struct {
	llm llm.Completer
	log logger.Logger
}

func NewClassifier(c llm.Completer, log logger.Logger) *Classifier {
	return &Classifier{llm: c, log: logger.Ensure(log)}
}

// Classify returns the model's sentiment for text. Replies that do not name a
// sentiment resolve to neutral; only provider failures are errors.
func (c *Classifier) Classify(ctx context.Context, text string) (domain.Sentiment, error) {
	reply, err := c.llm.Complete(ctx, llm.Request{
		Op:          "classify",
		System:      sentimentSystemPrompt,
		User:        sentimentPrompt(text),
		Temperature: sentimentTemperature,
		MaxTokens:   sentimentMaxTokens,
	})
	if err != nil {
		return domain.SentimentNeutral, err
	}

	sentiment, ok := normalizeSentiment(reply)
	if !ok {
		c.log.WarnObj("unparseable sentiment reply, using neutral", "sentiment_fallback", map[string]any{
			"reply": truncateRunes(reply, 100),
		})
	}
	return sentiment, nil
}

// normalizeSentiment reads the first word of reply, ignoring case and punctuation.
func normalizeSentiment(reply string) (domain.Sentiment, bool) {
	word := strings.FieldsFunc(reply, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if len(word) == 0 {
		return domain.SentimentNeutral, false
	}
	return domain.ParseSentiment(word[0])
}

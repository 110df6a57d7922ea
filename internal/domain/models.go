package domain

import (
	"strings"
	"time"
)

// Domain contains core models shared by the fetch, analysis and digest stages.

// Article is one news item as returned by a source. It is never mutated after fetch.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Published   string `json:"published,omitempty"`
	Description string `json:"description"`
}

// Sentiment is the tone assigned to a single article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Sentiments lists every category in display order.
var Sentiments = []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}

// ParseSentiment maps a label to a Sentiment. Unknown labels report false.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNegative:
		return SentimentNegative, true
	case SentimentNeutral:
		return SentimentNeutral, true
	default:
		return SentimentNeutral, false
	}
}

// Label returns the capitalized form used in rendered output.
func (s Sentiment) Label() string {
	switch s {
	case SentimentPositive:
		return "Positive"
	case SentimentNegative:
		return "Negative"
	default:
		return "Neutral"
	}
}

// ArticleResult is one article plus everything derived from it.
type ArticleResult struct {
	Article     Article   `json:"article"`
	Summary     string    `json:"summary"`
	Sentiment   Sentiment `json:"sentiment"`
	Entities    []string  `json:"key_entities"`
	CoreInsight string    `json:"core_insight,omitempty"`
	KeyDetails  string    `json:"key_details,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
}

// Tally counts results per sentiment. All three keys are always serialized.
type Tally struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Add increments the bucket for s; unknown values count as neutral.
func (t *Tally) Add(s Sentiment) {
	switch s {
	case SentimentPositive:
		t.Positive++
	case SentimentNegative:
		t.Negative++
	default:
		t.Neutral++
	}
}

// Count returns the bucket value for s.
func (t Tally) Count(s Sentiment) int {
	switch s {
	case SentimentPositive:
		return t.Positive
	case SentimentNegative:
		return t.Negative
	default:
		return t.Neutral
	}
}

// Total is the sum of all buckets.
func (t Tally) Total() int {
	return t.Positive + t.Negative + t.Neutral
}

// Digest is the aggregated output of one pipeline run.
type Digest struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Topic            string          `json:"topic"`
	GeneratedAt      time.Time       `json:"generated_at"`
	ExecutiveSummary string          `json:"executive_summary"`
	OverallTone      string          `json:"overall_tone"`
	Tally            Tally           `json:"sentiment_tally"`
	TotalArticles    int             `json:"total_articles"`
	SourceCount      int             `json:"source_count"`
	KeyEntities      []string        `json:"key_entities"`
	Results          []ArticleResult `json:"articles"`
}

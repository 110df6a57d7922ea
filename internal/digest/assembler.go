package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// MaxKeyEntities caps the entity list surfaced on a digest.
const MaxKeyEntities = 10

// Overall tone labels.
const (
	TonePositive        = "Positive"
	ToneNegative        = "Negative"
	ToneMixedPositive   = "Mixed (Positive-leaning)"
	ToneMixedNegative   = "Mixed (Negative-leaning)"
	ToneNeutralBalanced = "Neutral/Balanced"
)

// Options carries the inputs of Assemble that are not derived from the results.
type Options struct {
	ID          string
	GeneratedAt time.Time
	// ExecutiveSummary overrides the summary built from core insights when set.
	ExecutiveSummary string
}

// Title returns the digest heading for topic.
func Title(topic string) string {
	return "Daily News Digest: " + strings.TrimSpace(topic)
}

// Assemble builds a Digest from ordered results. It performs no I/O and the
// same inputs always produce the same Digest.
func Assemble(topic string, results []domain.ArticleResult, opts Options) domain.Digest {
	topic = strings.TrimSpace(topic)

	out := make([]domain.ArticleResult, len(results))
	var tally domain.Tally
	for i, r := range results {
		if _, ok := domain.ParseSentiment(string(r.Sentiment)); !ok {
			r.Sentiment = domain.SentimentNeutral
		}
		entities := make([]string, len(r.Entities))
		copy(entities, r.Entities)
		r.Entities = entities

		tally.Add(r.Sentiment)
		out[i] = r
	}

	return domain.Digest{
		ID:               opts.ID,
		Title:            Title(topic),
		Topic:            topic,
		GeneratedAt:      opts.GeneratedAt.UTC(),
		ExecutiveSummary: executiveSummary(topic, out, opts.ExecutiveSummary),
		OverallTone:      OverallTone(tally),
		Tally:            tally,
		TotalArticles:    len(out),
		SourceCount:      sourceCount(out),
		KeyEntities:      keyEntities(out, MaxKeyEntities),
		Results:          out,
	}
}

// OverallTone labels the dominant sentiment of a tally.
func OverallTone(t domain.Tally) string {
	switch {
	case t.Positive > t.Negative:
		if t.Positive > t.Neutral {
			return TonePositive
		}
		return ToneMixedPositive
	case t.Negative > t.Positive:
		if t.Negative > t.Neutral {
			return ToneNegative
		}
		return ToneMixedNegative
	default:
		return ToneNeutralBalanced
	}
}

func executiveSummary(topic string, results []domain.ArticleResult, override string) string {
	if len(results) == 0 {
		return fmt.Sprintf("No articles were found for %s.", topic)
	}
	if s := strings.TrimSpace(override); s != "" {
		return s
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		insight := strings.TrimSpace(r.CoreInsight)
		if insight == "" && !r.Degraded {
			insight = strings.TrimSpace(r.Summary)
		}
		if insight != "" {
			parts = append(parts, insight)
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d articles were collected for %s but none could be summarized.", len(results), topic)
	}
	return strings.Join(parts, " ")
}

func sourceCount(results []domain.ArticleResult) int {
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		src := strings.TrimSpace(r.Article.Source)
		if src == "" {
			src = "Unknown"
		}
		seen[src] = struct{}{}
	}
	return len(seen)
}

func keyEntities(results []domain.ArticleResult, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{})
	for _, r := range results {
		for _, e := range r.Entities {
			e = strings.TrimSpace(e)
			if e == "" {
				continue
			}
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			out = append(out, e)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}

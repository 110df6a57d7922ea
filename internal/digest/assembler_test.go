package digest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

var fixedTime = time.Date(2025, time.October, 6, 9, 30, 0, 0, time.UTC)

func result(title, source string, s domain.Sentiment, entities ...string) domain.ArticleResult {
	return domain.ArticleResult{
		Article: domain.Article{
			ID:     "id-" + title,
			Title:  title,
			URL:    "https://news.example/" + title,
			Source: source,
		},
		Summary:     "Summary of " + title,
		CoreInsight: "Insight " + title + ".",
		Sentiment:   s,
		Entities:    entities,
	}
}

func sampleResults() []domain.ArticleResult {
	return []domain.ArticleResult{
		result("a", "Reuters", domain.SentimentPositive, "Tesla", "BYD"),
		result("b", "Bloomberg", domain.SentimentNegative, "Tesla", "Ford"),
		result("c", "Reuters", domain.SentimentPositive, "GM"),
	}
}

func TestAssembleTallyAndOrder(t *testing.T) {
	results := sampleResults()
	d := Assemble("  electric vehicles ", results, Options{ID: "d1", GeneratedAt: fixedTime})

	require.Equal(t, "electric vehicles", d.Topic)
	require.Equal(t, "Daily News Digest: electric vehicles", d.Title)
	require.Equal(t, domain.Tally{Positive: 2, Negative: 1, Neutral: 0}, d.Tally)
	require.Equal(t, len(d.Results), d.Tally.Total())
	require.Equal(t, 3, d.TotalArticles)
	require.Equal(t, 2, d.SourceCount)
	require.Equal(t, TonePositive, d.OverallTone)
	require.Equal(t, []string{"Tesla", "BYD", "Ford", "GM"}, d.KeyEntities)
	require.Equal(t, "Insight a. Insight b. Insight c.", d.ExecutiveSummary)
	for i := range results {
		require.Equal(t, results[i].Article, d.Results[i].Article)
	}
}

func TestAssembleIsIdempotent(t *testing.T) {
	results := sampleResults()
	opts := Options{ID: "same", GeneratedAt: fixedTime, ExecutiveSummary: "Paragraph."}
	first := Assemble("ev", results, opts)
	second := Assemble("ev", results, opts)
	require.Equal(t, first, second)
	require.Equal(t, "Paragraph.", first.ExecutiveSummary)

	// mutating the output must not leak into the caller's results
	first.Results[0].Entities[0] = "changed"
	require.Equal(t, "Tesla", results[0].Entities[0])
}

func TestAssembleEmptyResults(t *testing.T) {
	d := Assemble("quantum widgets", nil, Options{GeneratedAt: fixedTime, ExecutiveSummary: "ignored"})
	require.Equal(t, domain.Tally{}, d.Tally)
	require.Equal(t, 0, d.TotalArticles)
	require.Empty(t, d.Results)
	require.Equal(t, "No articles were found for quantum widgets.", d.ExecutiveSummary)
	require.Equal(t, ToneNeutralBalanced, d.OverallTone)
}

func TestAssembleUnknownSentimentCountsAsNeutral(t *testing.T) {
	r := result("x", "", domain.Sentiment("mixed"))
	d := Assemble("t", []domain.ArticleResult{r}, Options{})
	require.Equal(t, domain.SentimentNeutral, d.Results[0].Sentiment)
	require.Equal(t, 1, d.Tally.Neutral)
	require.Equal(t, 1, d.SourceCount)
}

func TestAssembleSkipsDegradedInsights(t *testing.T) {
	results := sampleResults()
	results[1].Degraded = true
	results[1].CoreInsight = ""
	results[1].Summary = "Unable to generate summary"
	d := Assemble("ev", results, Options{})
	require.Equal(t, "Insight a. Insight c.", d.ExecutiveSummary)
}

func TestKeyEntitiesCapped(t *testing.T) {
	var results []domain.ArticleResult
	for i := 0; i < 4; i++ {
		results = append(results, result(fmt.Sprint(i), "s", domain.SentimentNeutral,
			fmt.Sprintf("e%d-1", i), fmt.Sprintf("e%d-2", i), fmt.Sprintf("e%d-3", i)))
	}
	d := Assemble("t", results, Options{})
	require.Len(t, d.KeyEntities, MaxKeyEntities)
	require.Equal(t, "e3-1", d.KeyEntities[9])
}

func TestOverallTone(t *testing.T) {
	cases := []struct {
		tally domain.Tally
		want  string
	}{
		{domain.Tally{Positive: 3, Negative: 1, Neutral: 1}, TonePositive},
		{domain.Tally{Positive: 2, Negative: 1, Neutral: 2}, ToneMixedPositive},
		{domain.Tally{Positive: 0, Negative: 2, Neutral: 1}, ToneNegative},
		{domain.Tally{Positive: 1, Negative: 2, Neutral: 3}, ToneMixedNegative},
		{domain.Tally{Positive: 1, Negative: 1, Neutral: 0}, ToneNeutralBalanced},
		{domain.Tally{}, ToneNeutralBalanced},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, OverallTone(tc.tally), "%+v", tc.tally)
	}
}

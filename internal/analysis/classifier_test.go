package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/llm"
)

func TestClassifyNormalizesReply(t *testing.T) {
	cases := map[string]domain.Sentiment{
		"Positive":                   domain.SentimentPositive,
		"negative.":                  domain.SentimentNegative,
		"  NEUTRAL\n":                domain.SentimentNeutral,
		`"Positive"`:                 domain.SentimentPositive,
		"I think it's mostly upbeat": domain.SentimentNeutral,
		"???":                        domain.SentimentNeutral,
	}
	for in, want := range cases {
		got, err := NewClassifier(reply(in), nil).Classify(context.Background(), "text")
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
}

func TestClassifyRequestShape(t *testing.T) {
	fc := reply("Neutral")
	_, err := NewClassifier(fc, nil).Classify(context.Background(), strings.Repeat("y", 800))
	require.NoError(t, err)

	req := fc.reqs[0]
	require.Equal(t, "classify", req.Op)
	require.InDelta(t, 0.1, req.Temperature, 1e-9)
	require.Equal(t, 10, req.MaxTokens)
	require.Contains(t, req.User, strings.Repeat("y", 500))
	require.NotContains(t, req.User, strings.Repeat("y", 501))
}

func TestClassifyProviderFailure(t *testing.T) {
	fc := &fakeCompleter{fn: func(llm.Request) (string, error) {
		return "", domain.NewProviderError(llm.ProviderName, "classify", 0, errors.New("timeout"))
	}}
	got, err := NewClassifier(fc, nil).Classify(context.Background(), "text")
	require.Error(t, err)
	require.Equal(t, domain.SentimentNeutral, got)
}

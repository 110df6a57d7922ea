package analysis

import (
	"context"
	"errors"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/llm"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

// Synthesizer writes the executive summary paragraph for a digest.
type Synthesizer struct {
	llm llm.Completer
	log logger.Logger
}

func NewSynthesizer(c llm.Completer, log logger.Logger) *Synthesizer {
	return &Synthesizer{llm: c, log: logger.Ensure(log)}
}

// Synthesize condenses the per-article summaries into one paragraph.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, summaries []string) (string, error) {
	kept := make([]string, 0, len(summaries))
	for _, sum := range summaries {
		if sum = strings.TrimSpace(sum); sum != "" {
			kept = append(kept, sum)
		}
	}
	if len(kept) == 0 {
		return "", errors.New("nothing to synthesize")
	}

	return s.llm.Complete(ctx, llm.Request{
		Op:          "synthesize",
		System:      synthesisSystemPrompt,
		User:        synthesisPrompt(topic, kept),
		Temperature: synthesisTemperature,
		MaxTokens:   synthesisMaxTokens,
	})
}

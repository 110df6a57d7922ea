package analysis

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/internal/llm"
	"github.com/samvad-hq/samvad-news-digest/internal/logger"
)

// Summary is the structured reply for one article.
type Summary struct {
	CoreInsight string   `json:"core_insight"`
	Entities    []string `json:"named_entities"`
	KeyDetails  string   `json:"key_details"`
	Text        string   `json:"summary"`
}

// Summarizer asks the model for a short structured summary of an article.
type Summarizer struct {
	llm llm.Completer
	log logger.Logger
}

// NewSummarizer builds a Summarizer on top of c.
func NewSummarizer(c llm.Completer, log logger.Logger) *Summarizer {
	return &Summarizer{llm: c, log: logger.Ensure(log)}
}

// Summarize sends title and the leading part of the description to the model.
// Provider failures and empty replies come back as *domain.ProviderError.
func (s *Summarizer) Summarize(ctx context.Context, art domain.Article) (Summary, error) {
	content := art.Description
	if strings.TrimSpace(content) == "" {
		content = art.Title
	}

	reply, err := s.llm.Complete(ctx, llm.Request{
		Op:          "summarize",
		System:      summarySystemPrompt,
		User:        summaryPrompt(art.Title, content),
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return Summary{}, err
	}

	sum, structured := parseSummary(reply)
	if !structured {
		s.log.DebugObj("summary reply was not JSON, using plain text", "summary_fallback", map[string]any{
			"article_id": art.ID,
			"reply":      truncateRunes(reply, 200),
		})
	}
	return sum, nil
}

// SummarizeText is the plain form: text in, trimmed summary text out.
func (s *Summarizer) SummarizeText(ctx context.Context, text string) (string, error) {
	sum, err := s.Summarize(ctx, domain.Article{Description: text})
	if err != nil {
		return "", err
	}
	return sum.Text, nil
}

// parseSummary decodes a JSON reply, tolerating markdown fences and loose field
// types. A reply that is not JSON becomes the summary text as is.
func parseSummary(reply string) (Summary, bool) {
	reply = strings.TrimSpace(reply)
	body := stripCodeFence(reply)

	var raw struct {
		CoreInsight flexText `json:"core_insight"`
		Entities    flexList `json:"named_entities"`
		KeyDetails  flexText `json:"key_details"`
		Text        flexText `json:"summary"`
	}
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Summary{Text: reply}, false
	}

	sum := Summary{
		CoreInsight: string(raw.CoreInsight),
		Entities:    cleanEntities(raw.Entities),
		KeyDetails:  string(raw.KeyDetails),
		Text:        string(raw.Text),
	}
	if sum.Text == "" {
		sum.Text = sum.CoreInsight
	}
	if sum.Text == "" {
		return Summary{Text: reply}, false
	}
	return sum, true
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

func cleanEntities(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, e := range in {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	return out
}

// flexText accepts a JSON string or a list of strings (joined with spaces).
type flexText string

func (f *flexText) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexText(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		*f = ""
		return nil
	}
	*f = flexText(strings.TrimSpace(strings.Join(list, " ")))
	return nil
}

// flexList accepts a JSON list of strings or a single comma separated string.
type flexList []string

func (f *flexList) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*f = list
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*f = nil
		return nil
	}
	*f = strings.Split(s, ",")
	return nil
}

package digest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
)

// ExportJSON renders d as indented JSON. Field order follows domain.Digest.
func ExportJSON(d domain.Digest) ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal digest: %w", err)
	}
	return b, nil
}

// ParseJSON reads a digest produced by ExportJSON.
func ParseJSON(data []byte) (domain.Digest, error) {
	var d domain.Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return domain.Digest{}, fmt.Errorf("unmarshal digest: %w", err)
	}
	if d.Tally.Total() != len(d.Results) {
		return domain.Digest{}, fmt.Errorf("digest %s: tally total %d does not match %d articles", d.ID, d.Tally.Total(), len(d.Results))
	}
	return d, nil
}

// ExportMarkdown renders the human readable report.
func ExportMarkdown(d domain.Digest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(d.Topic))
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(d.ExecutiveSummary))
	fmt.Fprintf(&b, "**Sentiment:** Positive: %d | Neutral: %d | Negative: %d\n",
		d.Tally.Positive, d.Tally.Neutral, d.Tally.Negative)
	if !d.GeneratedAt.IsZero() {
		fmt.Fprintf(&b, "\n_Generated %s_\n", d.GeneratedAt.Format("January 02, 2006 15:04 MST"))
	}

	if len(d.Results) == 0 {
		return b.String()
	}

	fmt.Fprintf(&b, "\n**Overall tone:** %s across %d articles from %d sources\n", d.OverallTone, d.TotalArticles, d.SourceCount)
	if len(d.KeyEntities) > 0 {
		fmt.Fprintf(&b, "\n**Key entities:** %s\n", strings.Join(d.KeyEntities, ", "))
	}

	b.WriteString("\n## Articles\n")
	for _, r := range d.Results {
		fmt.Fprintf(&b, "\n### [%s](%s)\n\n", escapeLinkText(r.Article.Title), escapeLinkURL(r.Article.URL))
		if r.Article.Source != "" {
			fmt.Fprintf(&b, "**Source:** %s\n\n", r.Article.Source)
		}
		fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(r.Summary))
		fmt.Fprintf(&b, "**Sentiment:** %s\n", r.Sentiment.Label())
		if len(r.Entities) > 0 {
			fmt.Fprintf(&b, "**Key Entities:** %s\n", strings.Join(r.Entities, ", "))
		}
		if r.KeyDetails != "" {
			fmt.Fprintf(&b, "**Key Details:** %s\n", r.KeyDetails)
		}
	}
	return b.String()
}

var (
	linkTextEscaper = strings.NewReplacer(`\`, `\\`, "[", `\[`, "]", `\]`, "\n", " ")
	linkURLEscaper  = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "\n", "")
)

func escapeLinkText(s string) string { return linkTextEscaper.Replace(strings.TrimSpace(s)) }
func escapeLinkURL(s string) string  { return linkURLEscaper.Replace(strings.TrimSpace(s)) }

package providers

import (
	"context"
	"crypto/sha1" //nolint:gosec // non-cryptographic id generation
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

const unknownSource = "Unknown"

func hashURL(u string) string {
	sum := sha1.Sum([]byte(u))
	return hex.EncodeToString(sum[:])
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// htmlToText flattens an HTML fragment into whitespace-normalized text.
// Plain text passes through unchanged apart from whitespace.
func htmlToText(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// sourceFromTitle extracts the publisher from titles shaped "Headline - Publisher".
func sourceFromTitle(title string) string {
	idx := strings.LastIndex(title, " - ")
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(title[idx+3:])
}

// fetchBody performs a GET and turns transport failures and non-200 statuses into ProviderErrors.
func fetchBody(ctx context.Context, client httpclient.Client, url, providerID, op string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, url, headers)
	if err != nil {
		return nil, domain.NewProviderError(providerID, op, 0, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, domain.NewProviderError(providerID, op, resp.StatusCode(),
			fmt.Errorf("body: %s", responseSnippet(body)))
	}

	return body, nil
}

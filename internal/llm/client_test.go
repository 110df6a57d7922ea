package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samvad-hq/samvad-news-digest/internal/domain"
	"github.com/samvad-hq/samvad-news-digest/pkg/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(httpclient.NewRestyClient(2*time.Second), Options{
		Endpoint: srv.URL + "/v1/chat/completions",
		Model:    "gpt-3.5-turbo",
		APIKey:   "sk-test",
	})
	require.NoError(t, err)
	return c
}

func TestCompleteSendsChatRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var got chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, "gpt-3.5-turbo", got.Model)
		require.Len(t, got.Messages, 2)
		require.Equal(t, "system", got.Messages[0].Role)
		require.Equal(t, "be brief", got.Messages[0].Content)
		require.Equal(t, "hello", got.Messages[1].Content)
		require.InDelta(t, 0.1, got.Temperature, 1e-9)
		require.Equal(t, 10, got.MaxTokens)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Positive \n"}}]}`))
	})

	reply, err := c.Complete(context.Background(), Request{
		Op: "classify", System: "be brief", User: "hello", Temperature: 0.1, MaxTokens: 10,
	})
	require.NoError(t, err)
	require.Equal(t, "Positive", reply)
}

func TestCompleteAuthFailureIsProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := c.Complete(context.Background(), Request{Op: "summarize", User: "x"})
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	require.Equal(t, "summarize", perr.Op)
	require.Contains(t, err.Error(), "Incorrect API key")
}

func TestCompleteEmptyReplyIsProviderError(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":    `{"choices":[]}`,
		"blank content": `{"choices":[{"message":{"content":"   "}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			_, err := c.Complete(context.Background(), Request{User: "x"})
			require.True(t, domain.IsProviderError(err))
			require.True(t, errors.Is(err, ErrEmptyCompletion))
		})
	}
}

func TestCompleteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(httpclient.NewRestyClient(time.Second), Options{Endpoint: url, Model: "m", APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{User: "x"})
	require.True(t, domain.IsProviderError(err))
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(httpclient.NewRestyClient(time.Second), Options{Endpoint: "http://x", Model: "m"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
}

package analysis

import (
	"context"
	"sync"

	"github.com/samvad-hq/samvad-news-digest/internal/llm"
)

// fakeCompleter answers every request through fn and keeps the requests it saw.
type fakeCompleter struct {
	mu   sync.Mutex
	reqs []llm.Request
	fn   func(llm.Request) (string, error)
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	return f.fn(req)
}

func reply(s string) *fakeCompleter {
	return &fakeCompleter{fn: func(llm.Request) (string, error) { return s, nil }}
}

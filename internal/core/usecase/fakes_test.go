package usecase

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

type searcherFake struct {
	results []domain.SearchResult
	err     error
	calls   int
	mu      sync.Mutex
}

func (f *searcherFake) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := f.results
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

type webProviderFake struct {
	results   []domain.WebResult
	err       error
	delay     time.Duration
	lastQuery string
	mu        sync.Mutex
}

func (f *webProviderFake) Search(ctx context.Context, query string, _ int) ([]domain.WebResult, error) {
	f.mu.Lock()
	f.lastQuery = query
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type generatorFake struct {
	response   string
	err        error
	configured bool
	panicWith  any
	prompts    []string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *generatorFake) Configured() bool { return f.configured }
func (f *generatorFake) Model() string    { return "fake" }

type observerFake struct {
	outcomes []domain.FailureKind
	local    int
	web      int
}

func (f *observerFake) ObservePipeline(outcome domain.FailureKind, localHits, webHits int, _ time.Duration) {
	f.outcomes = append(f.outcomes, outcome)
	f.local = localHits
	f.web = webHits
}

type storageFake struct {
	savedKey  string
	savedBody string
	files     map[string]string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

type dispatcherFake struct {
	key    string
	queued bool
	err    error
}

func (f *dispatcherFake) DispatchReindex(_ context.Context, storageKey string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.key = storageKey
	return f.queued, nil
}

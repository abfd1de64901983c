package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lysyi3m/hookrelay/app/database"
	"github.com/lysyi3m/hookrelay/app/feed"
	"github.com/lysyi3m/hookrelay/app/gateway"
)

type memoryStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	readErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{seen: make(map[string]time.Time)}
}

func (s *memoryStore) IsRecentlySeen(ctx context.Context, key string, windowDays int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return false, s.readErr
	}
	at, ok := s.seen[key]
	if !ok {
		return false, nil
	}
	return now.Sub(at) <= time.Duration(windowDays)*24*time.Hour, nil
}

func (s *memoryStore) MarkSeen(ctx context.Context, key string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[key] = now
	return nil
}

func (s *memoryStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func (s *memoryStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

var _ database.FingerprintStore = (*memoryStore)(nil)

type recordingForwarder struct {
	mu    sync.Mutex
	tasks []gateway.Task
	err   error
	// block, when set, holds Forward until closed.
	block chan struct{}
}

func (f *recordingForwarder) Forward(ctx context.Context, task gateway.Task) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

func (f *recordingForwarder) last() gateway.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[len(f.tasks)-1]
}

type staticFetcher struct {
	items map[string][]feed.Item
	errs  map[string]error
	calls int
}

func (f *staticFetcher) Fetch(ctx context.Context, src feed.Source) ([]feed.Item, error) {
	f.calls++
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.items[src.Name], nil
}

type staticConfig struct {
	config *feed.Config
	err    error
}

func (c staticConfig) Get() (*feed.Config, error) {
	return c.config, c.err
}

func testConfig(sources ...string) *feed.Config {
	config := &feed.Config{
		Persona: feed.Persona{Name: "Traveler", Voice: "calm"},
		Ranking: feed.Ranking{DedupeWindowDays: 7, MaxItemsPerRun: 20, PerSourceLimit: 10},
		Output:  feed.Output{Tags: []string{"inbox"}},
	}
	for _, name := range sources {
		config.Sources = append(config.Sources, feed.Source{Type: feed.SourceTypeRSS, Name: name, URL: "https://" + name + "/feed"})
	}
	return config
}

var errGatewayDown = errors.Join(gateway.ErrGatewayUnavailable, errors.New("connection refused"))

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"onionsite/internal/models"
	"onionsite/internal/repository"

	"github.com/stretchr/testify/mock"
)

var errStoreDown = errors.New("store down")

// flakyStore is a memory store whose reads and writes can be switched off.
type flakyStore struct {
	*repository.MemoryStateRepository

	mu       sync.Mutex
	failGet  bool
	failSet  bool
	setCalls int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStateRepository: repository.NewMemoryStateRepository()}
}

func (s *flakyStore) fail(get, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet, s.failSet = get, set
}

func (s *flakyStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setCalls
}

func (s *flakyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", false, errStoreDown
	}
	return s.MemoryStateRepository.Get(ctx, key)
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

func (s *flakyStore) SetMany(ctx context.Context, entries map[string]string) error {
	s.mu.Lock()
	s.setCalls++
	fail := s.failSet
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.MemoryStateRepository.SetMany(ctx, entries)
}

type staticGate bool

func (g staticGate) IsAccepted(context.Context) bool { return bool(g) }

type mockToggle struct {
	mock.Mock
	category models.CategoryID
}

func (m *mockToggle) Category() models.CategoryID { return m.category }

func (m *mockToggle) Apply(ctx context.Context, enabled bool) error {
	args := m.Called(ctx, enabled)
	return args.Error(0)
}

type panicToggle struct{}

func (panicToggle) Category() models.CategoryID { return models.CategoryAnalytics }

func (panicToggle) Apply(context.Context, bool) error { panic("toggle exploded") }

type answer bool

func (a answer) Confirm(string) bool { return bool(a) }

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

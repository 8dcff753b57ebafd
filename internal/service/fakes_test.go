package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/darkodi/shortlink/internal/model"
	"github.com/darkodi/shortlink/internal/repository"
)

var errInjected = errors.New("injected failure")

// testClock is a settable clock, second-aligned so TTLs are exact
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeStore is an in-memory Store with failure injection and call counters
type fakeStore struct {
	mu     sync.Mutex
	byCode map[string]*model.Mapping
	nextID int64

	saveErr      error
	findErr      error
	existsErr    error
	deleteErr    error
	existsAlways bool // every code reports as taken
	hideExisting bool // ExistsByCode always reports false
	duplicates   int  // next n inserts fail with ErrDuplicateCode
	afterFind    func(m *model.Mapping)

	saves   int
	finds   int
	exists  int
	deletes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{byCode: make(map[string]*model.Mapping)}
}

func (s *fakeStore) Save(_ context.Context, m *model.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}

	if m.ID == 0 {
		if s.duplicates > 0 {
			s.duplicates--
			return repository.ErrDuplicateCode
		}
		if _, ok := s.byCode[m.ShortCode]; ok {
			return repository.ErrDuplicateCode
		}
		s.nextID++
		m.ID = s.nextID
	} else if cur, ok := s.byCode[m.ShortCode]; !ok || cur.ID != m.ID {
		return repository.ErrNotFound
	}

	cp := *m
	s.byCode[m.ShortCode] = &cp
	return nil
}

func (s *fakeStore) FindByCode(_ context.Context, code string) (*model.Mapping, error) {
	m, hook, err := s.find(code)
	if err == nil && hook != nil {
		hook(m)
	}
	return m, err
}

func (s *fakeStore) find(code string) (*model.Mapping, func(*model.Mapping), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finds++
	if s.findErr != nil {
		return nil, nil, s.findErr
	}
	m, ok := s.byCode[code]
	if !ok {
		return nil, nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, s.afterFind, nil
}

func (s *fakeStore) ExistsByCode(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.exists++
	if s.existsErr != nil {
		return false, s.existsErr
	}
	if s.existsAlways {
		return true, nil
	}
	if s.hideExisting {
		return false, nil
	}
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for code, m := range s.byCode {
		if m.ID == id {
			delete(s.byCode, code)
		}
	}
	return nil
}

func (s *fakeStore) FindByOwner(_ context.Context, owner string) ([]*model.Mapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.Mapping
	for _, m := range s.byCode {
		if m.Owner == owner {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *fakeStore) get(code string) (*model.Mapping, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byCode[code]
	if !ok {
		return nil, false
	}
	cp := *m
	return &cp, true
}

func (s *fakeStore) setSaveErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

func (s *fakeStore) counts() (saves, finds, deletes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves, s.finds, s.deletes
}

type cacheEntry struct {
	url       string
	ttl       time.Duration
	expiresAt time.Time // zero means never
}

// fakeCache honors TTLs against the test clock
type fakeCache struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]cacheEntry

	getErr    error
	setErr    error
	deleteErr error

	sets int
}

func newFakeCache(now func() time.Time) *fakeCache {
	return &fakeCache{now: now, entries: make(map[string]cacheEntry)}
}

func (c *fakeCache) Get(_ context.Context, code string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.getErr != nil {
		return "", false, c.getErr
	}
	e, ok := c.entries[code]
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !c.now().Before(e.expiresAt) {
		delete(c.entries, code)
		return "", false, nil
	}
	return e.url, true, nil
}

func (c *fakeCache) Set(_ context.Context, code, url string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sets++
	if c.setErr != nil {
		return c.setErr
	}
	e := cacheEntry{url: url, ttl: ttl}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.entries[code] = e
	return nil
}

func (c *fakeCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleteErr != nil {
		return c.deleteErr
	}
	delete(c.entries, code)
	return nil
}

func (c *fakeCache) entry(code string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[code]
	return e, ok
}

func (c *fakeCache) setCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sets
}

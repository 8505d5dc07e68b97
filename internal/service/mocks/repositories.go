package mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SergeiKhy/link-shortener/internal/models"
	"github.com/SergeiKhy/link-shortener/internal/repository"
)

// Operations that can be made to fail with MockStore.FailOn.
const (
	OpCreate       = "links.Create"
	OpGetByAlias   = "links.GetByAlias"
	OpGetByShort   = "links.GetByShortAlias"
	OpExists       = "links.ExistsByShortAlias"
	OpIncrement    = "links.IncrementClickCount"
	OpList         = "links.List"
	OpCount        = "links.Count"
	OpDeleteLink   = "links.Delete"
	OpRecordClick  = "clicks.RecordClick"
	OpListClicks   = "clicks.ListByLinkID"
	OpDeleteClicks = "clicks.DeleteByLinkID"
	OpBeginTx      = "tx.Begin"
)

// ErrForeignKey mimics the clicks.link_id foreign key violation.
var ErrForeignKey = errors.New("foreign key violation: clicks reference link")

// MockStore is an in-memory store that implements repository.LinkRepository,
// repository.ClickRepository (through its Links/Clicks views) and
// repository.Transactor. A failed transaction restores the pre-transaction state.
type MockStore struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	links       map[int64]*models.Link
	clicks      []*models.Click
	nextLinkID  int64
	nextClickID int64
	failures    map[string]error
	calls       map[string]int
}

func NewMockStore() *MockStore {
	return &MockStore{
		links:       make(map[int64]*models.Link),
		nextLinkID:  1,
		nextClickID: 1,
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// Links returns the link repository view bound to the store.
func (s *MockStore) Links() *MockLinkRepository {
	return &MockLinkRepository{store: s}
}

// Clicks returns the click repository view bound to the store.
func (s *MockStore) Clicks() *MockClickRepository {
	return &MockClickRepository{store: s}
}

// FailOn makes every call of op return err until cleared with a nil err.
func (s *MockStore) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *MockStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// ClickRows returns the number of stored clicks of a link.
func (s *MockStore) ClickRows(linkID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.clicks {
		if c.LinkID == linkID {
			n++
		}
	}
	return n
}

// LinkRows returns the number of stored links.
func (s *MockStore) LinkRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

// InsertLink stores a link as-is, bypassing uniqueness checks. Used to seed fixtures.
func (s *MockStore) InsertLink(link models.Link) *models.Link {
	s.mu.Lock()
	defer s.mu.Unlock()
	link.ID = s.nextLinkID
	s.nextLinkID++
	stored := link
	s.links[stored.ID] = &stored
	out := stored
	return &out
}

func (s *MockStore) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	if err := s.enter(OpBeginTx); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s.Links(), s.Clicks()); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

// enter records the call and returns the injected failure, if any.
func (s *MockStore) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failures[op]
}

type snapshot struct {
	links       map[int64]models.Link
	clicks      []models.Click
	nextLinkID  int64
	nextClickID int64
}

func (s *MockStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		links:       make(map[int64]models.Link, len(s.links)),
		clicks:      make([]models.Click, 0, len(s.clicks)),
		nextLinkID:  s.nextLinkID,
		nextClickID: s.nextClickID,
	}
	for id, l := range s.links {
		snap.links[id] = *l
	}
	for _, c := range s.clicks {
		snap.clicks = append(snap.clicks, *c)
	}
	return snap
}

func (s *MockStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = make(map[int64]*models.Link, len(snap.links))
	for id, l := range snap.links {
		link := l
		s.links[id] = &link
	}
	s.clicks = s.clicks[:0]
	for _, c := range snap.clicks {
		click := c
		s.clicks = append(s.clicks, &click)
	}
	s.nextLinkID = snap.nextLinkID
	s.nextClickID = snap.nextClickID
}

func (s *MockStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = make(map[int64]*models.Link)
	s.clicks = nil
	s.nextLinkID = 1
	s.nextClickID = 1
	s.failures = make(map[string]error)
	s.calls = make(map[string]int)
}

// MockLinkRepository implements repository.LinkRepository for testing
type MockLinkRepository struct {
	store *MockStore
}

func (m *MockLinkRepository) Create(ctx context.Context, link *models.Link) error {
	if err := m.store.enter(OpCreate); err != nil {
		return err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.links {
		if existing.ShortAlias == link.ShortAlias {
			return fmt.Errorf("%w: %s", repository.ErrAliasExists, link.ShortAlias)
		}
		if link.Alias != nil && existing.Alias != nil && *existing.Alias == *link.Alias {
			return fmt.Errorf("%w: %s", repository.ErrAliasExists, *link.Alias)
		}
	}

	link.ID = s.nextLinkID
	s.nextLinkID++
	stored := *link
	s.links[link.ID] = &stored
	return nil
}

func (m *MockLinkRepository) GetByShortAlias(ctx context.Context, shortAlias string) (*models.Link, error) {
	if err := m.store.enter(OpGetByShort); err != nil {
		return nil, err
	}
	return m.find(func(l *models.Link) bool { return l.ShortAlias == shortAlias })
}

func (m *MockLinkRepository) GetByAlias(ctx context.Context, alias string) (*models.Link, error) {
	if err := m.store.enter(OpGetByAlias); err != nil {
		return nil, err
	}
	return m.find(func(l *models.Link) bool { return l.Alias != nil && *l.Alias == alias })
}

func (m *MockLinkRepository) ExistsByShortAlias(ctx context.Context, shortAlias string) (bool, error) {
	if err := m.store.enter(OpExists); err != nil {
		return false, err
	}
	_, err := m.find(func(l *models.Link) bool { return l.ShortAlias == shortAlias })
	return err == nil, nil
}

func (m *MockLinkRepository) IncrementClickCount(ctx context.Context, id int64) (int64, error) {
	if err := m.store.enter(OpIncrement); err != nil {
		return 0, err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.links[id]
	if !ok {
		return 0, repository.ErrLinkNotFound
	}
	link.ClickCount++
	return link.ClickCount, nil
}

func (m *MockLinkRepository) List(ctx context.Context, limit, offset int) ([]models.Link, error) {
	if err := m.store.enter(OpList); err != nil {
		return nil, err
	}

	s := m.store
	s.mu.Lock()
	all := make([]models.Link, 0, len(s.links))
	for _, l := range s.links {
		all = append(all, *l)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []models.Link{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (m *MockLinkRepository) Count(ctx context.Context) (int64, error) {
	if err := m.store.enter(OpCount); err != nil {
		return 0, err
	}
	return int64(m.store.LinkRows()), nil
}

func (m *MockLinkRepository) Delete(ctx context.Context, id int64) error {
	if err := m.store.enter(OpDeleteLink); err != nil {
		return err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[id]; !ok {
		return repository.ErrLinkNotFound
	}
	for _, c := range s.clicks {
		if c.LinkID == id {
			return ErrForeignKey
		}
	}
	delete(s.links, id)
	return nil
}

func (m *MockLinkRepository) find(match func(*models.Link) bool) (*models.Link, error) {
	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.links {
		if match(l) {
			out := *l
			return &out, nil
		}
	}
	return nil, repository.ErrLinkNotFound
}

// MockClickRepository implements repository.ClickRepository for testing
type MockClickRepository struct {
	store *MockStore
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	if err := m.store.enter(OpRecordClick); err != nil {
		return err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.links[click.LinkID]; !ok {
		return ErrForeignKey
	}
	click.ID = s.nextClickID
	s.nextClickID++
	stored := *click
	s.clicks = append(s.clicks, &stored)
	return nil
}

func (m *MockClickRepository) ListByLinkID(ctx context.Context, linkID int64) ([]models.Click, error) {
	if err := m.store.enter(OpListClicks); err != nil {
		return nil, err
	}

	s := m.store
	s.mu.Lock()
	out := make([]models.Click, 0)
	for _, c := range s.clicks {
		if c.LinkID == linkID {
			out = append(out, *c)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].ClickedAt.Equal(out[j].ClickedAt) {
			return out[i].ClickedAt.Before(out[j].ClickedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MockClickRepository) DeleteByLinkID(ctx context.Context, linkID int64) (int64, error) {
	if err := m.store.enter(OpDeleteClicks); err != nil {
		return 0, err
	}

	s := m.store
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.clicks[:0]
	var removed int64
	for _, c := range s.clicks {
		if c.LinkID == linkID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	s.clicks = kept
	return removed, nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu      sync.RWMutex
	cache   map[string]models.Link
	ttls    map[string]time.Duration
	failGet error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]models.Link),
		ttls:  make(map[string]time.Duration),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, shortAlias string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failGet != nil {
		return nil, m.failGet
	}
	link, exists := m.cache[shortAlias]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return &link, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// как и Redis-реализация, счётчик кликов не кэшируется
	entry := *link
	entry.ClickCount = 0
	m.cache[link.ShortAlias] = entry
	m.ttls[link.ShortAlias] = ttl
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, shortAlias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, shortAlias)
	delete(m.ttls, shortAlias)
	return nil
}

// TTL returns the ttl the entry was stored with.
func (m *MockCacheRepository) TTL(shortAlias string) (time.Duration, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ttl, ok := m.ttls[shortAlias]
	return ttl, ok
}

// FailGet makes Get return err; nil restores normal behaviour.
func (m *MockCacheRepository) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failGet = err
}

func (m *MockCacheRepository) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[string]models.Link)
	m.ttls = make(map[string]time.Duration)
	m.failGet = nil
}

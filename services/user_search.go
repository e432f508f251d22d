package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg/cache"
	"github.com/talentlink/messenger/pkg/logger"
	"github.com/talentlink/messenger/pkg/task"
)

const (
	DefaultSearchLimit    = 20
	DefaultSearchDebounce = 300 * time.Millisecond
	maxSearchLimit        = 100
)

// SearchPage, tek bir arama çağrısının sonucu.
// Skipped, sorgu çok kısa olduğu için hiç istek atılmadığını belirtir.
type SearchPage struct {
	Query   string
	Users   []models.UserSummary
	Skipped bool
}

// SearchState, arama kutusunun o anki görünümü (Type ile sürülür).
type SearchState struct {
	Query   string
	Users   []models.UserSummary
	Pending bool // debounce bekleniyor veya istek havada
	Err     error
}

// UserSearch, konuşma başlatmak için kullanıcı arama.
//
// İki giriş noktası var:
//   - Search: tek seferlik, doğrudan çağrı (CLI "search" komutu).
//   - Type: her tuş vuruşunda çağrılır. Sessiz bir süre (debounce) geçene kadar
//     istek atılmaz; yeni tuş vuruşu önceki bekleyen/havadaki aramayı geçersiz
//     kılar ve geç gelen sonucu state'e yazılmaz.
//
// 2 karakterden kısa sorgular için ağ çağrısı yapılmaz, boş sonuç döner.
type UserSearch interface {
	Search(ctx context.Context, q string, limit, offset int) (SearchPage, error)

	Type(q string)
	State() SearchState
	Clear()
	OnUpdate(fn func(SearchState))

	Close()
}

// SearchOptions, UserSearch ayarları. Sıfır değerler varsayılana döner.
type SearchOptions struct {
	Debounce time.Duration
	Limit    int
	CacheTTL time.Duration // 0 = cache yok
	Clock    clock.Clock
}

type userSearch struct {
	api   SearchAPI
	limit int
	cache *cache.TTLCache[string, []models.UserSummary]
	log   *zap.Logger

	debounced func(f func())

	ctx    context.Context
	cancel context.CancelFunc

	tracker task.Tracker

	mu        sync.RWMutex
	state     SearchState
	listeners []func(SearchState)
}

// NewUserSearch, constructor.
func NewUserSearch(api SearchAPI, opts SearchOptions, log *zap.Logger) UserSearch {
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSearchDebounce
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &userSearch{
		api:       api,
		limit:     opts.Limit,
		log:       logger.OrNop(log).Named("search"),
		debounced: debounce.New(opts.Debounce),
		ctx:       ctx,
		cancel:    cancel,
		tracker:   task.Tracker{Name: "search users"},
		state:     SearchState{Users: []models.UserSummary{}},
	}
	if opts.CacheTTL > 0 {
		s.cache = cache.New[string, []models.UserSummary](opts.CacheTTL, opts.CacheTTL, cache.WithClock(opts.Clock))
	}
	return s
}

func (s *userSearch) Search(ctx context.Context, q string, limit, offset int) (SearchPage, error) {
	q = strings.TrimSpace(q)
	page := SearchPage{Query: q, Users: []models.UserSummary{}}

	if models.ValidateSearchQuery(q) != nil {
		page.Skipped = true
		return page, nil
	}

	if limit <= 0 {
		limit = s.limit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	key := fmt.Sprintf("%s|%d|%d", q, limit, offset)
	if s.cache != nil {
		if users, ok := s.cache.Get(key); ok {
			page.Users = users
			return page, nil
		}
	}

	users, err := s.api.SearchUsers(ctx, q, limit, offset)
	if err != nil {
		return page, err
	}
	if users == nil {
		users = []models.UserSummary{}
	}
	if s.cache != nil {
		s.cache.Set(key, users)
	}

	page.Users = users
	return page, nil
}

func (s *userSearch) Type(q string) {
	k := s.tracker.Begin(s.ctx)
	query := strings.TrimSpace(q)

	if models.ValidateSearchQuery(query) != nil {
		defer k.Finish()
		if k.Commit(func() { s.setState(SearchState{Query: query, Users: []models.UserSummary{}}) }) == nil {
			s.notify()
		}
		return
	}

	err := k.Commit(func() {
		s.mu.Lock()
		s.state = SearchState{Query: query, Users: s.state.Users, Pending: true}
		s.mu.Unlock()
	})
	if err != nil {
		k.Finish()
		return
	}
	s.notify()

	s.debounced(func() { s.run(k, query) })
}

// run, debounce süresi dolduğunda çalışır. Bu arada yeni bir tuş vuruşu
// geldiyse k artık güncel değildir ve istek hiç atılmaz.
func (s *userSearch) run(k *task.Task, query string) {
	defer k.Finish()
	if !k.Current() {
		return
	}

	page, searchErr := s.Search(k.Context(), query, s.limit, 0)

	err := k.Commit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if searchErr != nil {
			s.state = SearchState{Query: query, Users: s.state.Users, Err: searchErr}
			return
		}
		s.state = SearchState{Query: query, Users: page.Users}
	})
	if err != nil {
		s.log.Debug("discarded stale search result", zap.String("query", query))
		return
	}
	if searchErr != nil {
		s.log.Warn("search failed", zap.String("query", query), zap.Error(searchErr))
	}
	s.notify()
}

func (s *userSearch) setState(st SearchState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

func (s *userSearch) State() SearchState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.state
	st.Users = append([]models.UserSummary(nil), s.state.Users...)
	if st.Users == nil {
		st.Users = []models.UserSummary{}
	}
	return st
}

func (s *userSearch) Clear() {
	s.tracker.Invalidate()
	s.setState(SearchState{Users: []models.UserSummary{}})
	s.notify()
}

func (s *userSearch) OnUpdate(fn func(SearchState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *userSearch) notify() {
	s.mu.RLock()
	listeners := append([]func(SearchState){}, s.listeners...)
	s.mu.RUnlock()

	st := s.State()
	for _, fn := range listeners {
		fn(st)
	}
}

func (s *userSearch) Close() {
	s.tracker.Close()
	s.cancel()
	if s.cache != nil {
		s.cache.Close()
	}
}

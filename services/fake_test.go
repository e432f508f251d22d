package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
)

// fakeAPI, backend'in bellek içi taklidi. Tüm API port'larını karşılar.
// Gate kanalları nil değilse ilgili çağrı kanal kapanana (veya bir değer
// gelene) kadar bekler: havadaki istek senaryoları için.
type fakeAPI struct {
	mu sync.Mutex

	selfID        int64
	now           time.Time
	nextID        int64
	conversations []models.Conversation
	threads       map[int64][]models.Message
	unread        int
	users         []models.UserSummary

	listErr   error
	threadErr error
	sendErr   error
	searchErr error
	markErr   error

	listGate   chan struct{}
	threadGate map[int64]chan struct{}
	searchGate chan struct{}

	threadStarted chan int64
	listStarted   chan struct{}

	// listAtStart: liste gate'ten önce okunur, gerçek sunucu gibi istek
	// başladığı andaki state döner.
	listAtStart bool

	calls         map[string]int
	searchQueries []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		selfID:     1,
		now:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		nextID:     100,
		threads:    make(map[int64][]models.Message),
		threadGate: make(map[int64]chan struct{}),
		calls:      make(map[string]int),
	}
}

func (f *fakeAPI) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeAPI) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	f.mu.Lock()
	f.calls["list"]++
	gate, started := f.listGate, f.listStarted
	var early []models.Conversation
	if f.listAtStart {
		early = f.copyConversations()
	}
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	if early != nil {
		return early, nil
	}
	return f.copyConversations(), nil
}

// copyConversations, f.mu tutulurken çağrılır.
func (f *fakeAPI) copyConversations() []models.Conversation {
	out := make([]models.Conversation, len(f.conversations))
	copy(out, f.conversations)
	return out
}

func (f *fakeAPI) MarkRead(ctx context.Context, counterpartID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["mark_read"]++
	if f.markErr != nil {
		return f.markErr
	}
	for i := range f.conversations {
		if f.conversations[i].CounterpartID == counterpartID {
			f.unread -= f.conversations[i].UnreadCount
			f.conversations[i].UnreadCount = 0
		}
	}
	return nil
}

func (f *fakeAPI) UnreadCount(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["unread"]++
	return f.unread, nil
}

func (f *fakeAPI) GetThread(ctx context.Context, counterpartID int64, skip, limit int) ([]models.Message, error) {
	f.mu.Lock()
	f.calls["thread"]++
	gate, started := f.threadGate[counterpartID], f.threadStarted
	f.mu.Unlock()

	if started != nil {
		started <- counterpartID
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.threadErr != nil {
		return nil, f.threadErr
	}
	msgs := f.threads[counterpartID]
	if skip > len(msgs) {
		skip = len(msgs)
	}
	end := len(msgs)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	out := make([]models.Message, end-skip)
	copy(out, msgs[skip:end])
	models.SortMessages(out)
	return out, nil
}

func (f *fakeAPI) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["send"]++
	if f.sendErr != nil {
		return nil, f.sendErr
	}

	f.nextID++
	f.now = f.now.Add(time.Second)
	msg := models.Message{
		ID:         f.nextID,
		SenderID:   f.selfID,
		ReceiverID: req.ReceiverID,
		Content:    req.Content,
		Timestamp:  f.now,
	}
	f.threads[req.ReceiverID] = append(f.threads[req.ReceiverID], msg)

	found := false
	for i := range f.conversations {
		if f.conversations[i].CounterpartID == req.ReceiverID {
			f.conversations[i].LastMessagePreview = req.Content
			f.conversations[i].LastMessageAt = f.now
			found = true
		}
	}
	if !found {
		f.conversations = append(f.conversations, models.Conversation{
			CounterpartID:      req.ReceiverID,
			DisplayName:        f.username(req.ReceiverID),
			LastMessagePreview: req.Content,
			LastMessageAt:      f.now,
		})
	}
	return &msg, nil
}

func (f *fakeAPI) username(id int64) string {
	for _, u := range f.users {
		if u.ID == id {
			return u.Username
		}
	}
	return ""
}

func (f *fakeAPI) SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.UserSummary, error) {
	f.mu.Lock()
	f.calls["search"]++
	f.searchQueries = append(f.searchQueries, q)
	gate := f.searchGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	out := make([]models.UserSummary, 0)
	for _, u := range f.users {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(q)) {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakeSession, SessionReader'ın sabit implementasyonu.
type fakeSession struct {
	sess *models.Session
}

func (s fakeSession) Current() (*models.Session, bool) {
	if s.sess == nil {
		return nil, false
	}
	cp := *s.sess
	return &cp, true
}

func loggedIn(userID int64) fakeSession {
	return fakeSession{sess: &models.Session{Token: "t", UserID: userID}}
}

// memSessionRepo, repository.SessionRepository'nin bellek içi implementasyonu.
type memSessionRepo struct {
	mu     sync.Mutex
	stored *models.StoredSession
}

func (r *memSessionRepo) Save(_ context.Context, s *models.StoredSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.stored = &cp
	return nil
}

func (r *memSessionRepo) Get(_ context.Context) (*models.StoredSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stored == nil {
		return nil, pkg.ErrNotFound
	}
	cp := *r.stored
	return &cp, nil
}

func (r *memSessionRepo) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = nil
	return nil
}

// memConversationCache, repository.ConversationCacheRepository'nin bellek içi implementasyonu.
type memConversationCache struct {
	mu    sync.Mutex
	lists map[int64][]models.Conversation
}

func newMemConversationCache() *memConversationCache {
	return &memConversationCache{lists: make(map[int64][]models.Conversation)}
}

func (c *memConversationCache) ReplaceAll(_ context.Context, ownerID int64, list []models.Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists[ownerID] = append([]models.Conversation(nil), list...)
	return nil
}

func (c *memConversationCache) List(_ context.Context, ownerID int64) ([]models.Conversation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Conversation{}, c.lists[ownerID]...), nil
}

func (c *memConversationCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[int64][]models.Conversation)
	return nil
}

func netErr(op string) error {
	return &pkg.NetworkError{Op: op, StatusCode: 503, Message: "unavailable"}
}

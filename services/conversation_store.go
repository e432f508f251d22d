package services

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
	"github.com/talentlink/messenger/pkg/task"
	"github.com/talentlink/messenger/repository"
)

// ConversationStore, kullanıcının konuşma listesini ve toplam okunmamış
// sayısını tutar.
//
// Kurallar:
//   - Fetch hatası son bilinen listeyi silmez; sadece Err() dolar.
//   - UnreadCount sadece MarkRead ile azalır. MarkRead sırasında havada olan
//     bir refresh'in sonucu atılır: eski sayı geri gelmesin diye.
//   - Eşzamanlı Refresh çağrıları tek bir HTTP isteğine birleştirilir (singleflight).
type ConversationStore interface {
	// Load, lokal cache'teki son listeyi yükler (ağ çağrısı yok).
	Load(ctx context.Context) error
	Refresh(ctx context.Context) error
	// Reload, havadaki bir Refresh'e katılmadan yeni bir istek başlatır.
	// Havadaki eski istek artık commit edemez. Kendi yazmasının listede
	// görünmesi gereken çağıranlar (gönderim sonrası) bunu kullanır.
	Reload(ctx context.Context) error
	RefreshUnread(ctx context.Context) error
	MarkRead(ctx context.Context, counterpartID int64) error

	Conversations() []models.Conversation
	Find(counterpartID int64) (models.Conversation, bool)
	TotalUnread() int
	// Err, son refresh'in hatası. Başarılı refresh sonrası nil.
	Err() error

	Close()
}

type conversationStore struct {
	api     ConversationAPI
	cache   repository.ConversationCacheRepository // nil olabilir
	session SessionReader
	log     *zap.Logger

	// ctx, store'un ömrü. Paylaşılan (singleflight) fetch'ler çağıranın değil
	// bu context'in altında çalışır; Close ile iptal olur.
	ctx    context.Context
	cancel context.CancelFunc

	tracker task.Tracker
	group   singleflight.Group

	mu         sync.RWMutex
	list       []models.Conversation
	err        error
	fetched    bool // en az bir başarılı ağ sonucu commit edildi mi
	total      int
	totalKnown bool
}

// NewConversationStore, constructor. cache nil ise lokal snapshot kullanılmaz.
func NewConversationStore(
	api ConversationAPI,
	cache repository.ConversationCacheRepository,
	session SessionReader,
	log *zap.Logger,
) ConversationStore {
	ctx, cancel := context.WithCancel(context.Background())
	return &conversationStore{
		api:     api,
		cache:   cache,
		session: session,
		log:     logger.OrNop(log).Named("conversations"),
		ctx:     ctx,
		cancel:  cancel,
		tracker: task.Tracker{Name: "list conversations"},
		list:    []models.Conversation{},
	}
}

func (s *conversationStore) ownerID() (int64, bool) {
	sess, ok := s.session.Current()
	if !ok {
		return 0, false
	}
	return sess.UserID, true
}

func (s *conversationStore) Load(ctx context.Context) error {
	owner, ok := s.ownerID()
	if s.cache == nil || !ok {
		return nil
	}

	k := s.tracker.Observe(ctx)
	defer k.Finish()

	list, err := s.cache.List(k.Context(), owner)
	if err != nil {
		return err
	}

	return k.Commit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Ağdan gelen sonuç her zaman lokal snapshot'tan yenidir.
		if !s.fetched {
			s.list = list
		}
	})
}

const conversationsKey = "conversations"

func (s *conversationStore) Refresh(ctx context.Context) error {
	return s.join(ctx)
}

func (s *conversationStore) Reload(ctx context.Context) error {
	if s.tracker.Closed() {
		return pkg.ErrClosed
	}
	// Sıra önemli: önce eski isteğin commit hakkı düşer, sonra key serbest kalır.
	s.tracker.Invalidate()
	s.group.Forget(conversationsKey)
	return s.join(ctx)
}

func (s *conversationStore) join(ctx context.Context) error {
	ch := s.group.DoChan(conversationsKey, func() (any, error) {
		return nil, s.refresh()
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *conversationStore) refresh() error {
	k := s.tracker.Observe(s.ctx)
	defer k.Finish()

	list, fetchErr := s.api.ListConversations(k.Context())
	if fetchErr == nil {
		models.SortConversations(list)
	}

	err := k.Commit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if fetchErr != nil {
			s.err = fetchErr
			return
		}
		s.list = list
		s.err = nil
		s.fetched = true
	})
	if err != nil {
		s.log.Debug("discarded stale conversation list")
		return err
	}
	if fetchErr != nil {
		s.log.Warn("failed to refresh conversations", zap.Error(fetchErr))
		return fetchErr
	}

	s.saveSnapshot(list)
	return nil
}

// saveSnapshot, başarılı listeyi lokal cache'e yazar. Hata sadece loglanır.
func (s *conversationStore) saveSnapshot(list []models.Conversation) {
	owner, ok := s.ownerID()
	if s.cache == nil || !ok {
		return
	}
	if err := s.cache.ReplaceAll(s.ctx, owner, list); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn("failed to cache conversations", zap.Error(err))
	}
}

func (s *conversationStore) RefreshUnread(ctx context.Context) error {
	k := s.tracker.Observe(ctx)
	defer k.Finish()

	n, err := s.api.UnreadCount(k.Context())
	if err != nil {
		return err
	}

	return k.Commit(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.total = n
		s.totalKnown = true
	})
}

func (s *conversationStore) MarkRead(ctx context.Context, counterpartID int64) error {
	if s.tracker.Closed() {
		return pkg.ErrClosed
	}
	if err := s.api.MarkRead(ctx, counterpartID); err != nil {
		return err
	}

	// PATCH'ten önce başlamış refresh'ler eski unread sayısını taşıyor olabilir.
	s.tracker.Invalidate()

	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	list := make([]models.Conversation, len(s.list))
	copy(list, s.list)
	for i := range list {
		if list[i].CounterpartID == counterpartID {
			cleared = list[i].UnreadCount
			list[i].UnreadCount = 0
		}
	}
	s.list = list

	if s.totalKnown {
		s.total -= cleared
		if s.total < 0 {
			s.total = 0
		}
	}
	return nil
}

// Conversations, listenin kopyasını döner: çağıran değiştirebilir.
func (s *conversationStore) Conversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Conversation, len(s.list))
	copy(out, s.list)
	return out
}

func (s *conversationStore) Find(counterpartID int64) (models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.FindConversation(s.list, counterpartID)
}

// TotalUnread, sunucudan alınmış toplam; henüz alınmadıysa listedeki toplam.
func (s *conversationStore) TotalUnread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.totalKnown {
		return s.total
	}
	sum := 0
	for _, c := range s.list {
		sum += c.UnreadCount
	}
	return sum
}

func (s *conversationStore) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *conversationStore) Close() {
	s.tracker.Close()
	s.cancel()
}

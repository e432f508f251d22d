package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
)

// Snapshot, mesajlaşma ekranının o anki tam görünümü.
// Listener'lara ve Snapshot() çağıranlara kopya olarak verilir.
type Snapshot struct {
	Conversations []models.Conversation
	// Pending, aramadan seçilmiş ama henüz konuşması olmayan karşı taraf.
	// Conversations içinde yer almaz; ilk mesaj gönderilip liste yenilenince kaybolur.
	Pending *models.Conversation

	ActiveID int64 // 0 = seçim yok
	Messages []models.Message

	Draft       string
	TotalUnread int
	Realtime    bool // real-time kanal bağlı mı (polling her durumda açık)

	ListErr   error
	ThreadErr error
	SendErr   error
}

// Active, bir konuşma seçili mi?
func (s Snapshot) Active() bool { return s.ActiveID != 0 }

// MessengerDeps, Messenger'ın bileşenleri.
type MessengerDeps struct {
	Session       SessionReader
	Conversations ConversationStore
	Thread        ThreadFetcher
	Composer      Composer
	Search        UserSearch
}

// PollOptions, Messenger'ın iç poller ayarları.
type PollOptions struct {
	Interval time.Duration
	Clock    clock.Clock
}

// Messenger, aktif konuşma state makinesini ve bileşenleri bir araya getirir.
//
// Aktif konuşma: NONE → SELECTED(id) → NONE. Seçim her an değişebilir;
// "yükleniyor" ara durumu yoktur, yeni seçim öncekinin havadaki fetch'ini
// geçersiz kılar. Polling tick'leri seçimi değiştirmez.
type Messenger struct {
	session       SessionReader
	conversations ConversationStore
	thread        ThreadFetcher
	composer      Composer
	search        UserSearch
	poller        *Poller
	log           *zap.Logger

	mu        sync.RWMutex
	pending   *models.Conversation
	draft     string
	sendErr   error
	realtime  bool
	listeners []func(Snapshot)
	closed    bool
}

// NewMessenger, constructor.
func NewMessenger(deps MessengerDeps, poll PollOptions, log *zap.Logger) *Messenger {
	log = logger.OrNop(log)
	m := &Messenger{
		session:       deps.Session,
		conversations: deps.Conversations,
		thread:        deps.Thread,
		composer:      deps.Composer,
		search:        deps.Search,
		log:           log.Named("messenger"),
	}
	m.poller = NewPoller(poll.Interval, m.RefreshAll, poll.Clock, log)
	return m
}

// Start, lokal snapshot'ı yükler ve polling'i başlatır.
func (m *Messenger) Start(ctx context.Context) {
	if err := m.conversations.Load(ctx); err != nil && !errors.Is(err, pkg.ErrStale) {
		m.log.Warn("failed to load cached conversations", zap.Error(err))
	}
	m.notify()
	m.poller.Start(ctx)
}

// Kick, bir sonraki poll tick'ini beklemeden yenileme ister (real-time olaylar).
func (m *Messenger) Kick() {
	m.poller.Kick()
}

// Select, listedeki (veya bekleyen) bir konuşmayı aktif yapar ve thread'ini çeker.
// Listede olmayan bir ID için ValidationError döner.
func (m *Messenger) Select(ctx context.Context, counterpartID int64) error {
	if _, ok := m.conversations.Find(counterpartID); !ok {
		m.mu.RLock()
		isPending := m.pending != nil && m.pending.CounterpartID == counterpartID
		m.mu.RUnlock()
		if !isPending {
			return pkg.NewValidationError("counterpart_id", "conversation %d not found", counterpartID)
		}
	}

	m.activate(counterpartID, nil)

	err := m.thread.Refresh(ctx)
	m.notify()
	if errors.Is(err, pkg.ErrStale) {
		return nil
	}
	return err
}

// StartConversation, arama sonucundan bir kullanıcıyla konuşma açar.
// Kullanıcıyla zaten konuşma varsa onu seçer; yoksa boş thread'li bir
// placeholder oluşturur ve hiç fetch yapmaz (sunucuda henüz mesaj yok).
func (m *Messenger) StartConversation(ctx context.Context, u models.UserSummary) error {
	if u.ID <= 0 {
		return pkg.NewValidationError("user_id", "invalid user")
	}
	if sess, ok := m.session.Current(); ok && sess.UserID != 0 && sess.UserID == u.ID {
		return pkg.NewValidationError("user_id", "cannot start a conversation with yourself")
	}

	if _, ok := m.conversations.Find(u.ID); ok {
		return m.Select(ctx, u.ID)
	}

	placeholder := models.NewPlaceholderConversation(u)
	m.activate(u.ID, &placeholder)
	m.notify()
	return nil
}

// activate, seçimi değiştirir. Başka bir konuşmaya geçilirse taslak ve
// gönderim hatası sıfırlanır; placeholder sadece kendi konuşması seçiliyken yaşar.
func (m *Messenger) activate(counterpartID int64, placeholder *models.Conversation) {
	prev, _ := m.thread.Selected()
	m.thread.Select(counterpartID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if placeholder != nil {
		m.pending = placeholder
	} else if m.pending != nil && m.pending.CounterpartID != counterpartID {
		m.pending = nil
	}
	if prev != counterpartID {
		m.draft = ""
		m.sendErr = nil
	}
}

// CloseConversation, aktif konuşmayı kapatır (SELECTED → NONE).
func (m *Messenger) CloseConversation() {
	m.thread.Clear()

	m.mu.Lock()
	m.pending = nil
	m.draft = ""
	m.sendErr = nil
	m.mu.Unlock()

	m.notify()
}

// SetDraft, mesaj kutusundaki metni günceller.
func (m *Messenger) SetDraft(text string) {
	m.mu.Lock()
	m.draft = text
	m.mu.Unlock()
}

// SendText, taslağı text yapıp gönderir.
func (m *Messenger) SendText(ctx context.Context, text string) (*models.Message, error) {
	m.SetDraft(text)
	return m.Send(ctx)
}

// Send, taslağı aktif konuşmaya gönderir.
//
// Başarısızlıkta taslak korunur (kullanıcı tekrar deneyebilir) ve SendErr dolar.
// Başarıda taslak temizlenir; ardından thread ve konuşma listesi birlikte
// yenilenir ve beklenir: dönüşte thread yeni mesajı içerir.
func (m *Messenger) Send(ctx context.Context) (*models.Message, error) {
	id, ok := m.thread.Selected()
	if !ok {
		return nil, pkg.NewValidationError("receiver_id", "no conversation selected")
	}

	m.mu.RLock()
	draft := m.draft
	_, known := m.conversations.Find(id)
	known = known || (m.pending != nil && m.pending.CounterpartID == id)
	m.mu.RUnlock()
	if !known {
		return nil, pkg.NewValidationError("receiver_id", "conversation %d not found", id)
	}

	msg, err := m.composer.Send(ctx, id, draft)
	if err != nil {
		m.mu.Lock()
		m.sendErr = err
		m.mu.Unlock()
		m.notify()
		return nil, err
	}

	m.mu.Lock()
	m.draft = ""
	m.sendErr = nil
	m.mu.Unlock()

	if err := m.refreshAfterSend(ctx, id); err != nil {
		// Mesaj gönderildi; yenileme bir sonraki tick'te tekrar denenecek.
		m.log.Warn("failed to refresh after send", zap.Int64("counterpart_id", id), zap.Error(err))
	}
	m.notify()
	return msg, nil
}

func (m *Messenger) refreshAfterSend(ctx context.Context, id int64) error {
	var g errgroup.Group
	g.Go(func() error { return ignoreStale(m.thread.Refresh(ctx)) })
	// Havadaki bir poll isteği POST'tan önceki listeyi taşır; ona katılma.
	g.Go(func() error {
		if err := ignoreStale(m.conversations.Reload(ctx)); err != nil {
			return err
		}
		// Reload generation'ı artırır; toplam ondan sonra okunmalı.
		return ignoreStale(m.conversations.RefreshUnread(ctx))
	})
	err := g.Wait()

	m.reconcilePending()
	return err
}

// reconcilePending, placeholder'ın karşı tarafı artık listede ise placeholder'ı düşürür.
func (m *Messenger) reconcilePending() {
	m.mu.RLock()
	p := m.pending
	m.mu.RUnlock()
	if p == nil {
		return
	}
	if _, ok := m.conversations.Find(p.CounterpartID); !ok {
		return
	}

	m.mu.Lock()
	if m.pending == p {
		m.pending = nil
	}
	m.mu.Unlock()
}

// MarkRead, aktif konuşmayı okundu işaretler. Placeholder için no-op.
func (m *Messenger) MarkRead(ctx context.Context) error {
	id, ok := m.thread.Selected()
	if !ok {
		return pkg.NewValidationError("counterpart_id", "no conversation selected")
	}
	if _, known := m.conversations.Find(id); !known {
		return nil
	}

	if err := m.conversations.MarkRead(ctx, id); err != nil {
		return err
	}
	m.notify()
	return nil
}

// Search, tek seferlik kullanıcı araması.
func (m *Messenger) Search(ctx context.Context, q string) (SearchPage, error) {
	return m.search.Search(ctx, q, 0, 0)
}

// Searcher, debounce'lu arama kutusu.
func (m *Messenger) Searcher() UserSearch {
	return m.search
}

// RefreshAll, konuşma listesini, okunmamış toplamını ve seçili thread'i
// birlikte yeniler. Poller'ın her tick'i budur.
func (m *Messenger) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return ignoreStale(m.conversations.Refresh(ctx)) })
	g.Go(func() error { return ignoreStale(m.conversations.RefreshUnread(ctx)) })
	g.Go(func() error { return ignoreStale(m.thread.Refresh(ctx)) })
	err := g.Wait()

	m.reconcilePending()
	m.notify()
	return err
}

// SetRealtime, real-time kanalın bağlantı durumunu yansıtır.
func (m *Messenger) SetRealtime(connected bool) {
	m.mu.Lock()
	changed := m.realtime != connected
	m.realtime = connected
	m.mu.Unlock()

	if changed {
		m.notify()
	}
}

// Snapshot, o anki görünüm.
func (m *Messenger) Snapshot() Snapshot {
	active, _ := m.thread.Selected()
	snap := Snapshot{
		Conversations: m.conversations.Conversations(),
		ActiveID:      active,
		Messages:      m.thread.Messages(),
		TotalUnread:   m.conversations.TotalUnread(),
		ListErr:       m.conversations.Err(),
		ThreadErr:     m.thread.Err(),
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pending != nil {
		p := *m.pending
		snap.Pending = &p
	}
	snap.Draft = m.draft
	snap.SendErr = m.sendErr
	snap.Realtime = m.realtime
	return snap
}

// OnChange, state her değiştiğinde çağrılacak listener ekler.
// Listener'lar poller goroutine'inden de çağrılabilir.
func (m *Messenger) OnChange(fn func(Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

func (m *Messenger) notify() {
	m.mu.RLock()
	if m.closed || len(m.listeners) == 0 {
		m.mu.RUnlock()
		return
	}
	listeners := append([]func(Snapshot){}, m.listeners...)
	m.mu.RUnlock()

	snap := m.Snapshot()
	for _, fn := range listeners {
		fn(snap)
	}
}

// Close, view'ı söker: polling durur, havadaki fetch'lerin sonuçları atılır.
func (m *Messenger) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.poller.Stop()
	m.conversations.Close()
	m.thread.Close()
	m.search.Close()
}

func ignoreStale(err error) error {
	if errors.Is(err, pkg.ErrStale) {
		return nil
	}
	return err
}

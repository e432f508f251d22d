package services

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
	"github.com/talentlink/messenger/pkg/task"
)

// DefaultThreadPageSize, limit verilmediğinde kullanılan sayfa boyutu.
const DefaultThreadPageSize = 50

// ThreadFetcher, seçili konuşmanın mesaj geçmişini tutar.
//
// Seçim değiştiğinde önceki konuşma için havada olan fetch iptal edilir;
// sonucu yine de gelirse commit edilmez. Commit öncesi hem generation hem de
// fetch'in başladığı konuşma ID'si kontrol edilir.
//
// Fetch hatası ekrandaki mesajları silmez, sadece Err() dolar.
// Thread okumak okunmamış sayısını değiştirmez: bunun için MarkRead gerekir.
type ThreadFetcher interface {
	// Fetch, state'e dokunmadan tek bir sayfa çeker.
	Fetch(ctx context.Context, counterpartID int64, offset, limit int) ([]models.Message, error)

	Select(counterpartID int64)
	Clear()
	Selected() (int64, bool)
	// Refresh, seçili konuşmanın ilk sayfasını çekip state'e yazar.
	// Seçim yoksa no-op.
	Refresh(ctx context.Context) error

	Messages() []models.Message
	Err() error

	Close()
}

type threadFetcher struct {
	api      ThreadAPI
	pageSize int
	log      *zap.Logger

	tracker task.Tracker

	mu       sync.RWMutex
	selected int64 // 0 = seçim yok
	messages []models.Message
	err      error
}

// NewThreadFetcher, constructor. pageSize <= 0 ise DefaultThreadPageSize.
func NewThreadFetcher(api ThreadAPI, pageSize int, log *zap.Logger) ThreadFetcher {
	if pageSize <= 0 {
		pageSize = DefaultThreadPageSize
	}
	return &threadFetcher{
		api:      api,
		pageSize: pageSize,
		log:      logger.OrNop(log).Named("thread"),
		tracker:  task.Tracker{Name: "get thread"},
		messages: []models.Message{},
	}
}

func (f *threadFetcher) Fetch(ctx context.Context, counterpartID int64, offset, limit int) ([]models.Message, error) {
	if counterpartID <= 0 {
		return nil, pkg.NewValidationError("counterpart_id", "a conversation is required")
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = f.pageSize
	}
	return f.api.GetThread(ctx, counterpartID, offset, limit)
}

func (f *threadFetcher) Select(counterpartID int64) {
	f.mu.RLock()
	same := f.selected == counterpartID
	f.mu.RUnlock()
	if same {
		return
	}

	f.tracker.Invalidate()

	f.mu.Lock()
	defer f.mu.Unlock()
	f.selected = counterpartID
	f.messages = []models.Message{}
	f.err = nil
}

func (f *threadFetcher) Clear() {
	f.Select(0)
}

func (f *threadFetcher) Selected() (int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.selected, f.selected != 0
}

func (f *threadFetcher) Refresh(ctx context.Context) error {
	k := f.tracker.Begin(ctx)
	defer k.Finish()

	id, ok := f.Selected()
	if !ok {
		return nil
	}

	msgs, fetchErr := f.Fetch(k.Context(), id, 0, f.pageSize)

	applied := false
	err := k.Commit(func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.selected != id {
			return
		}
		applied = true
		if fetchErr != nil {
			f.err = fetchErr
			return
		}
		f.messages = msgs
		f.err = nil
	})
	if err == nil && !applied {
		err = &pkg.StaleResultError{Op: "get thread", Generation: k.Generation()}
	}
	if err != nil {
		f.log.Debug("discarded stale thread", zap.Int64("counterpart_id", id))
		return err
	}
	if fetchErr != nil {
		f.log.Warn("failed to refresh thread", zap.Int64("counterpart_id", id), zap.Error(fetchErr))
	}
	return fetchErr
}

// Messages, seçili konuşmanın mesajları (eskiden yeniye), kopya olarak.
func (f *threadFetcher) Messages() []models.Message {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]models.Message, len(f.messages))
	copy(out, f.messages)
	return out
}

func (f *threadFetcher) Err() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.err
}

func (f *threadFetcher) Close() {
	f.tracker.Close()
}

package ws

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/pkg/logger"
)

// Handler, belirli bir op için kaydedilen callback.
type Handler func(Event)

// GapHandler, seq sayacında atlama görüldüğünde çağrılır.
// Atlanan event'ler kayıptır; state HTTP ile yeniden çekilmelidir.
type GapHandler func(expected, got int64)

// Dispatcher, gelen frame'leri çözüp op'a göre handler'lara dağıtır.
//
// Handler'lar okuma goroutine'inde senkron çalışır; uzun iş yapacak
// handler kendi goroutine'ini açmalıdır.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	onGap    []GapHandler
	lastSeq  int64
	log      *zap.Logger
}

// NewDispatcher, boş bir Dispatcher oluşturur.
func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]Handler),
		log:      logger.OrNop(log),
	}
}

// On, op için handler ekler. Aynı op'a birden fazla handler bağlanabilir.
func (d *Dispatcher) On(op string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[op] = append(d.handlers[op], h)
}

// OnGap, seq atlaması için handler ekler.
func (d *Dispatcher) OnGap(h GapHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onGap = append(d.onGap, h)
}

// Reset, seq takibini sıfırlar. Her yeni bağlantıda çağrılır.
func (d *Dispatcher) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastSeq = 0
}

// LastSeq, son görülen seq değeri.
func (d *Dispatcher) LastSeq() int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastSeq
}

// Dispatch, ham frame'i çözer ve handler'lara iletir.
func (d *Dispatcher) Dispatch(raw []byte) error {
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}
	if ev.Op == "" {
		return fmt.Errorf("event without op")
	}
	d.dispatch(ev)
	return nil
}

func (d *Dispatcher) dispatch(ev Event) {
	d.mu.Lock()
	var (
		gap      bool
		expected int64
	)
	if ev.Seq > 0 {
		if d.lastSeq > 0 && ev.Seq > d.lastSeq+1 {
			gap = true
			expected = d.lastSeq + 1
		}
		if ev.Seq > d.lastSeq {
			d.lastSeq = ev.Seq
		}
	}
	handlers := append([]Handler(nil), d.handlers[ev.Op]...)
	gapHandlers := append([]GapHandler(nil), d.onGap...)
	d.mu.Unlock()

	if gap {
		d.log.Warn("realtime sequence gap",
			zap.Int64("expected", expected),
			zap.Int64("got", ev.Seq))
		for _, h := range gapHandlers {
			h(expected, ev.Seq)
		}
	}

	if len(handlers) == 0 {
		d.log.Debug("unhandled realtime event", zap.String("op", ev.Op))
		return
	}
	for _, h := range handlers {
		h(ev)
	}
}

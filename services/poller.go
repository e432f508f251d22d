package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
)

// DefaultPollInterval, konuşma listesi ve açık thread'in yenilenme periyodu.
const DefaultPollInterval = 5 * time.Second

// Poller, sabit periyotla refresh fonksiyonunu çağıran zamanlayıcı.
//
// Tek goroutine çalışır: tick'ler üst üste binmez; bir refresh uzun sürerse
// kaçırılan tick'ler birikmez (ticker kanalı tek elemanlıdır).
// Real-time kanal bir olay bildirdiğinde Kick ile sıradaki tick beklenmeden
// refresh tetiklenir.
//
// Stop döndükten sonra refresh bir daha çağrılmaz; havada olan refresh'in
// context'i iptal edilir.
type Poller struct {
	interval time.Duration
	refresh  func(ctx context.Context) error
	clock    clock.Clock
	log      *zap.Logger

	kick chan struct{}

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

// NewPoller, constructor. interval <= 0 ise DefaultPollInterval.
func NewPoller(interval time.Duration, refresh func(ctx context.Context) error, clk clock.Clock, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Poller{
		interval: interval,
		refresh:  refresh,
		clock:    clk,
		log:      logger.OrNop(log).Named("poller"),
		kick:     make(chan struct{}, 1),
	}
}

// Start, döngüyü başlatır. İlk refresh beklemeden hemen yapılır.
// Zaten çalışıyorsa no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true

	go p.loop(ctx, p.done)
}

// Kick, bir sonraki tick'i beklemeden refresh ister.
// Zaten bekleyen bir kick varsa yenisi birleştirilir.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Stop, döngüyü durdurur ve çıkmasını bekler. Birden fazla çağrılabilir.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Running, döngü çalışıyor mu?
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := p.clock.Ticker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		case <-p.kick:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := p.refresh(ctx)
	switch {
	case err == nil:
	case errors.Is(err, pkg.ErrStale), errors.Is(err, context.Canceled):
		// Yerine daha yeni bir sonuç geçti veya kapanıyoruz: sorun değil.
	case errors.Is(err, pkg.ErrNoSession):
		p.log.Debug("skipped refresh, no session")
	default:
		// Bir sonraki tick zaten tekrar deneyecek.
		p.log.Warn("refresh failed", zap.Error(err))
	}
}

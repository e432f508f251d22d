// Package ratelimit: SendLimiter: client tarafında mesaj gönderim frenlemesi.
//
// Backend zaten spam koruması uyguluyor (429 döner). Client tarafında aynı
// kuralı lokal olarak uygulamak, kullanıcı Enter'a art arda bastığında
// gereksiz istek gönderilmesini ve 429 sonrası bekleme süresinin uzamasını önler.
//
// Kural (backend ile aynı şekil):
// - window içinde maxMessages mesaj → izin verilir.
// - Fazlası cooldown başlatır → cooldown bitene kadar o konuşmaya gönderim reddedilir.
// - Cooldown bitince pencere sıfırlanır.
//
// Key: karşı tarafın user ID'si. Farklı konuşmalar birbirini etkilemez.
package ratelimit

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// sendBucket, tek bir konuşma için sayaç ve cooldown bilgisi.
type sendBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time // zero value = cooldown yok
}

// SendLimiter, konuşma bazlı gönderim limiti.
//
//	limiter := ratelimit.NewSendLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(counterpartID) { return pkg.ErrRateLimited }
type SendLimiter struct {
	mu          sync.Mutex
	buckets     map[int64]*sendBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	clock       clock.Clock

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSendLimiter, limiter oluşturur ve arka plan temizleme goroutine'ini başlatır.
// maxMessages <= 0 ise limiter her gönderime izin verir.
func NewSendLimiter(maxMessages int, window, cooldown time.Duration, clk clock.Clock) *SendLimiter {
	if clk == nil {
		clk = clock.New()
	}
	rl := &SendLimiter{
		buckets:     make(map[int64]*sendBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		clock:       clk,
		stopCleanup: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Allow, counterpartID'ye şimdi mesaj gönderilebilir mi? İzin verilirse sayaç artar.
//
// Akış:
// 1. Cooldown'daysa → reject.
// 2. Cooldown bitmişse veya window dolmuşsa → yeni pencere.
// 3. Window içindeyse → count++, max aşıldıysa cooldown başlat.
func (rl *SendLimiter) Allow(counterpartID int64) bool {
	if rl.maxMessages <= 0 {
		return true
	}

	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[counterpartID]
	if !exists {
		rl.buckets[counterpartID] = &sendBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// CooldownSeconds, kalan cooldown süresi (saniye, yukarı yuvarlanmış). Yoksa 0.
func (rl *SendLimiter) CooldownSeconds(counterpartID int64) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[counterpartID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := b.cooldownUntil.Sub(rl.clock.Now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Close, temizleme goroutine'ini durdurur.
func (rl *SendLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *SendLimiter) cleanupLoop() {
	ticker := rl.clock.Ticker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup, hem penceresi hem cooldown'u bitmiş bucket'ları siler.
func (rl *SendLimiter) cleanup() {
	now := rl.clock.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, id)
		}
	}
}

// Package cache: Generic in-memory TTL cache.
//
// Client tarafında kullanım alanı: kullanıcı arama sonuçları.
// Kullanıcı "ann" yazıp silip tekrar "ann" yazdığında aynı sorgu için
// backend'e ikinci kez gitmeye gerek yok: sonuç kısa bir süre bellekte tutulur.
//
// Süre ölçümü clock.Clock üzerinden yapılır; testlerde clock.NewMock() ile
// zaman ileri sarılarak expiry davranışı sleep olmadan doğrulanır.
//
// Thread safety: sync.RWMutex: okumalar paralel, yazmalar exclusive.
package cache

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// entry, cache'teki tek bir kayıt.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache, generic in-memory TTL cache.
//
//	c := cache.New[string, []models.UserSummary](30*time.Second, time.Minute)
//	c.Set("ann|20|0", users)
//	users, ok := c.Get("ann|20|0")
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	clock   clock.Clock

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// Option, TTLCache ayarı.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock, zaman kaynağını değiştirir (testler için).
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// New, yeni bir TTLCache oluşturur ve periyodik temizleme goroutine'ini başlatır.
//
// cleanupInterval: süresi dolan entry'lerin map'ten fiziksel olarak silinme sıklığı.
// Get zaten süresi dolmuş entry döndürmez; cleanup sadece bellek içindir.
func New[K comparable, V any](ttl, cleanupInterval time.Duration, opts ...Option) *TTLCache[K, V] {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		clock:       o.clock,
		stopCleanup: make(chan struct{}),
	}

	ticker := c.clock.Ticker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

// Get, key varsa ve süresi dolmamışsa (value, true) döner.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set, değeri TTL ile yazar. Aynı key'in önceki değeri ezilir.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.clock.Now().Add(c.ttl),
	}
}

// Delete, tek bir key'i siler.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// DeleteFunc, predicate'i sağlayan tüm key'leri siler.
func (c *TTLCache[K, V]) DeleteFunc(predicate func(key K) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if predicate(key) {
			delete(c.entries, key)
		}
	}
}

// Clear, tüm cache'i boşaltır (ör: logout sonrası).
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
}

// Len, toplam entry sayısı (süresi dolmuşlar dahil).
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close, temizleme goroutine'ini durdurur. Birden fazla çağrılabilir.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

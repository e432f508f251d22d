// Package task: generation counter ile iptal edilebilir async işler.
//
// Sorun: Bir fetch başlatıldıktan sonra kullanıcı seçimini değiştirebilir,
// view kapanabilir veya yeni bir tuş vuruşu önceki aramayı geçersiz kılabilir.
// Geç gelen sonuç state'e yazılırsa yanlış konuşmanın mesajları ekranda görünür.
//
// Çözüm: Her Tracker bir generation sayacı tutar. Her iş başlarken o anki
// generation'ı alır; sonucu yazmadan önce (Commit) generation'ın değişmediğini
// kontrol eder. Kontrol ve yazma aynı mutex altında yapılır: arada başka bir
// goroutine generation'ı artıramaz.
//
//	t := tracker.Begin(ctx)       // önceki işi iptal eder
//	defer t.Finish()
//	res, err := fetch(t.Context())
//	err = t.Commit(func() { state = res }) // stale ise apply çalışmaz
package task

import (
	"context"
	"sync"

	"github.com/talentlink/messenger/pkg"
)

// Tracker, tek bir key (konuşma, arama kutusu, liste) için yazma hakkını yönetir.
// Zero value kullanıma hazırdır.
type Tracker struct {
	// Name, StaleResultError.Op alanına yazılır: log'da hangi işin atıldığı görünsün.
	Name string

	mu     sync.Mutex
	gen    uint64
	active *Task // Begin ile başlatılan son iş
	closed bool
}

// Task, Tracker'dan alınmış tek bir iş.
type Task struct {
	tracker *Tracker
	gen     uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

// Begin, yeni bir iş başlatır ve önceki Begin ile başlatılmış işi iptal eder
// (context cancel). Generation artar: önceki işin Commit'i artık başarısız olur.
//
// Tracker kapatılmışsa dönen Task'ın context'i zaten iptal edilmiştir.
func (t *Tracker) Begin(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.cancelActive()
	if t.closed {
		cancel()
		return &Task{tracker: t, gen: t.gen, ctx: ctx, cancel: cancel}
	}

	t.gen++
	k := &Task{tracker: t, gen: t.gen, ctx: ctx, cancel: cancel}
	t.active = k
	return k
}

// Observe, generation'ı artırmadan o anki değeri yakalar.
// Aynı sonucu paylaşan işler (singleflight) için: birbirlerini iptal etmezler,
// ama Invalidate veya Close sonrası commit edemezler.
func (t *Tracker) Observe(parent context.Context) *Task {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		cancel()
	}
	return &Task{tracker: t, gen: t.gen, ctx: ctx, cancel: cancel}
}

// Invalidate, devam eden tüm işleri geçersiz kılar.
// Begin ile başlatılmış son iş ayrıca iptal edilir.
func (t *Tracker) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	t.cancelActive()
}

// Close, tracker'ı kalıcı olarak kapatır. Sonraki tüm Commit'ler stale döner.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed = true
	t.gen++
	t.cancelActive()
}

// cancelActive, mu tutulurken çağrılır.
func (t *Tracker) cancelActive() {
	if t.active != nil {
		t.active.cancel()
		t.active = nil
	}
}

// Generation, o anki generation değeri.
func (t *Tracker) Generation() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gen
}

// Closed, tracker kapatıldı mı?
func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Context, işin context'i. Task supersede edildiğinde iptal olur.
func (k *Task) Context() context.Context { return k.ctx }

// Generation, işin başladığı generation.
func (k *Task) Generation() uint64 { return k.gen }

// Current, iş hâlâ güncel mi?
func (k *Task) Current() bool {
	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()
	return k.current()
}

func (k *Task) current() bool {
	return !k.tracker.closed && k.tracker.gen == k.gen
}

// Commit, iş hâlâ güncelse apply'ı tracker kilidi altında çalıştırır.
// Güncel değilse apply çalışmaz ve *pkg.StaleResultError döner.
//
// apply içinden aynı Tracker'ın metodları çağrılmamalıdır (deadlock).
func (k *Task) Commit(apply func()) error {
	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()

	if !k.current() {
		return &pkg.StaleResultError{Op: k.tracker.Name, Generation: k.gen}
	}
	apply()
	return nil
}

// Finish, işin context kaynaklarını serbest bırakır. Birden fazla çağrılabilir.
func (k *Task) Finish() {
	k.cancel()

	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()
	if k.tracker.active == k {
		k.tracker.active = nil
	}
}

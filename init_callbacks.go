// Package main: callback wire-up.
//
// ws paketi services'e bağımlı değildir; gelen event'lerin Messenger'a
// nasıl yansıyacağı burada bağlanır. Event payload'ı state'e doğrudan
// yazılmaz: her event bir poller kick'i tetikler, state HTTP ile yeniden
// çekilir. Böylece real-time kanal sadece gecikmeyi kısaltır, doğruluk
// kaynağı REST API olarak kalır.
package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/services"
	"github.com/talentlink/messenger/ws"
)

// registerRealtimeCallbacks, dispatcher ve bağlantı callback'lerini Messenger'a bağlar.
func registerRealtimeCallbacks(d *ws.Dispatcher, client *ws.Client, m *services.Messenger, log *zap.Logger) {
	d.On(ws.OpReady, func(ev ws.Event) {
		var data ws.ReadyData
		if err := ev.Decode(&data); err == nil {
			log.Debug("realtime ready", zap.Int64("user_id", data.UserID))
		}
		// Bağlantı yokken kaçırılanlar için tam yenileme.
		m.Kick()
	})

	d.On(ws.OpDMMessageCreate, func(ev ws.Event) {
		var msg models.Message
		if err := ev.Decode(&msg); err != nil {
			log.Warn("invalid dm_message_create payload", zap.Error(err))
		} else {
			log.Debug("realtime message",
				zap.Int64("id", msg.ID),
				zap.Int64("sender_id", msg.SenderID))
		}
		m.Kick()
	})

	d.On(ws.OpDMMessageRead, func(ws.Event) {
		m.Kick()
	})

	d.OnGap(func(expected, got int64) {
		m.Kick()
	})

	client.OnConnectionChange(m.SetRealtime)
}

// registerSessionHooks, logout sonrası hesaba özel lokal veriyi temizler.
func registerSessionHooks(a *App) {
	a.Session.OnLogout(func(ctx context.Context) {
		if err := a.Repos.ConversationCache.Clear(ctx); err != nil {
			a.log.Warn("failed to clear conversation cache", zap.Error(err))
		}
	})
}

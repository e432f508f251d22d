// Package main: service katmanı başlatma.
//
// initApp iki aşamalıdır:
//  1. initApp: store, SessionService ve API client (login için yeterli)
//  2. initMessenger: mesajlaşma bileşenleri, Messenger ve real-time client
//
// Sıralama: SessionService API client'tan ÖNCE oluşturulur (client token'ı
// ondan okur); Messenger real-time callback'lerinden ÖNCE.
package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/api"
	"github.com/talentlink/messenger/config"
	"github.com/talentlink/messenger/database"
	"github.com/talentlink/messenger/pkg/crypto"
	"github.com/talentlink/messenger/pkg/ratelimit"
	"github.com/talentlink/messenger/services"
	"github.com/talentlink/messenger/ws"
)

// App, bir komut çalışırken yaşayan tüm instance'ları tutan container.
type App struct {
	cfg *config.Config
	log *zap.Logger

	DB      *database.DB
	Repos   *Repositories
	Session services.SessionService
	API     *api.Client

	// initMessenger sonrası dolu
	Messenger  *services.Messenger
	Limiter    *ratelimit.SendLimiter
	Dispatcher *ws.Dispatcher
	Realtime   *ws.Client // real-time kapalıysa nil
}

// initApp, store'u açar ve oturum katmanını kurar. Oturum geri yüklenmez;
// bunu gerektiren komutlar requireSession çağırır.
func initApp(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	key, err := crypto.DeriveKey(cfg.Storage.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage key: %w", err)
	}

	db, repos, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	session := services.NewSessionService(repos.Session, key, nil, log)

	client, err := api.New(cfg.API.BaseURL, session,
		api.WithTimeout(cfg.API.Timeout),
		api.WithLogger(log),
		api.WithWebSocketPath(cfg.Realtime.Path),
	)
	if err != nil {
		db.Close()
		return nil, err
	}

	app := &App{
		cfg:     cfg,
		log:     log,
		DB:      db,
		Repos:   repos,
		Session: session,
		API:     client,
	}
	registerSessionHooks(app)
	return app, nil
}

// requireSession, diskteki oturumu yükler. Yoksa kullanıcıya login'i söyleyen
// bir hata döner.
func (a *App) requireSession(ctx context.Context) error {
	sess, err := a.Session.Restore(ctx)
	if err != nil {
		return fmt.Errorf("not logged in (run 'talentlink login --token <token>'): %w", err)
	}
	a.log.Debug("session restored",
		zap.Int64("user_id", sess.UserID),
		zap.String("username", sess.Username))
	return nil
}

// initMessenger, mesajlaşma bileşenlerini oluşturup Messenger'da birleştirir.
func (a *App) initMessenger() {
	cfg := a.cfg

	a.Limiter = ratelimit.NewSendLimiter(cfg.Send.MaxMessages, cfg.Send.Window, cfg.Send.Cooldown, nil)

	a.Messenger = services.NewMessenger(services.MessengerDeps{
		Session:       a.Session,
		Conversations: services.NewConversationStore(a.API, a.Repos.ConversationCache, a.Session, a.log),
		Thread:        services.NewThreadFetcher(a.API, cfg.Thread.PageSize, a.log),
		Composer:      services.NewComposer(a.API, a.Limiter, a.log),
		Search: services.NewUserSearch(a.API, services.SearchOptions{
			Debounce: cfg.Search.Debounce,
			Limit:    cfg.Search.Limit,
			CacheTTL: cfg.Search.CacheTTL,
		}, a.log),
	}, services.PollOptions{Interval: cfg.Polling.Interval}, a.log)

	if !cfg.Realtime.Enabled {
		a.log.Info("realtime channel disabled, polling only")
		return
	}

	a.Dispatcher = ws.NewDispatcher(a.log.Named("realtime"))
	a.Realtime = ws.NewClient(a.API, a.API.WebSocketURL, a.Dispatcher, ws.Options{
		HeartbeatInterval: cfg.Realtime.HeartbeatInterval,
		ReconnectInterval: cfg.Realtime.ReconnectInterval,
		Logger:            a.log,
	})
	registerRealtimeCallbacks(a.Dispatcher, a.Realtime, a.Messenger, a.log)
}

// Close, oluşturulan her şeyi ters sırada kapatır.
func (a *App) Close() {
	if a.Messenger != nil {
		a.Messenger.Close()
	}
	if a.Limiter != nil {
		a.Limiter.Close()
	}
	if err := a.DB.Close(); err != nil {
		a.log.Warn("failed to close database", zap.Error(err))
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/crypto"
	"github.com/talentlink/messenger/pkg/logger"
	"github.com/talentlink/messenger/repository"
)

// SessionService, oturumun tek sahibidir.
//
// Diğer component'ler oturumu sadece Current/Token ile okur; oturumu
// değiştirebilen tek giriş noktaları Login ve Logout'tur. Token diske
// şifrelenmiş yazılır (AES-256-GCM, anahtar config'teki secret'tan türetilir).
//
// Token imzası client'ta doğrulanmaz: bunu sadece sunucu yapabilir.
// Claim'ler (kullanıcı ID, isim, rol, exp) görüntüleme ve süre kontrolü için okunur.
type SessionService interface {
	Current() (*models.Session, bool)
	// Token, geçerli token'ı döner. Oturum yoksa veya süresi dolmuşsa pkg.ErrNoSession.
	Token() (string, error)
	Login(ctx context.Context, token string) (*models.Session, error)
	Logout(ctx context.Context) error
	// Restore, diskteki oturumu yükler. Yoksa veya süresi dolmuşsa pkg.ErrNoSession.
	Restore(ctx context.Context) (*models.Session, error)
	// OnLogout, Logout sonrası çağrılacak hook ekler (session-scoped cache temizliği).
	OnLogout(fn func(ctx context.Context))
}

type sessionService struct {
	repo  repository.SessionRepository
	key   []byte
	clock clock.Clock
	log   *zap.Logger

	mu      sync.RWMutex
	current *models.Session
	hooks   []func(ctx context.Context)
}

// NewSessionService, constructor. key crypto.DeriveKey ile üretilmiş 32 byte'tır.
func NewSessionService(repo repository.SessionRepository, key []byte, clk clock.Clock, log *zap.Logger) SessionService {
	if clk == nil {
		clk = clock.New()
	}
	return &sessionService{
		repo:  repo,
		key:   key,
		clock: clk,
		log:   logger.OrNop(log).Named("session"),
	}
}

func (s *sessionService) Current() (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil || s.current.Expired(s.clock.Now()) {
		return nil, false
	}
	cp := *s.current
	return &cp, true
}

func (s *sessionService) Token() (string, error) {
	sess, ok := s.Current()
	if !ok {
		return "", pkg.ErrNoSession
	}
	return sess.Token, nil
}

func (s *sessionService) Login(ctx context.Context, token string) (*models.Session, error) {
	token = strings.TrimSpace(token)
	token = strings.TrimPrefix(token, "Bearer ")
	if token == "" {
		return nil, pkg.NewValidationError("token", "token is required")
	}

	sess := sessionFromToken(token)
	if sess.Expired(s.clock.Now()) {
		return nil, pkg.NewValidationError("token", "token is expired")
	}

	enc, err := crypto.Encrypt(token, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt session token: %w", err)
	}

	stored := &models.StoredSession{
		EncryptedToken: enc,
		UserID:         sess.UserID,
		Username:       sess.Username,
		Role:           sess.Role,
		ExpiresAt:      sess.ExpiresAt,
		UpdatedAt:      s.clock.Now(),
	}
	if err := s.repo.Save(ctx, stored); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	s.log.Info("logged in", zap.Int64("user_id", sess.UserID), zap.String("username", sess.Username))
	cp := *sess
	return &cp, nil
}

func (s *sessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	hooks := append([]func(context.Context){}, s.hooks...)
	s.mu.Unlock()

	err := s.repo.Delete(ctx)

	for _, fn := range hooks {
		fn(ctx)
	}

	if err != nil {
		return err
	}
	s.log.Info("logged out")
	return nil
}

func (s *sessionService) Restore(ctx context.Context) (*models.Session, error) {
	stored, err := s.repo.Get(ctx)
	if errors.Is(err, pkg.ErrNotFound) {
		return nil, pkg.ErrNoSession
	}
	if err != nil {
		return nil, err
	}

	if stored.ExpiresAt != nil && !s.clock.Now().Before(*stored.ExpiresAt) {
		s.log.Info("stored session expired", zap.Time("expires_at", *stored.ExpiresAt))
		if err := s.repo.Delete(ctx); err != nil {
			s.log.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, pkg.ErrNoSession
	}

	token, err := crypto.Decrypt(stored.EncryptedToken, s.key)
	if err != nil {
		// Anahtar değişmiş veya kayıt bozulmuş: tekrar login gerekir.
		s.log.Warn("failed to decrypt stored session", zap.Error(err))
		return nil, pkg.ErrNoSession
	}

	sess := &models.Session{
		Token:     token,
		UserID:    stored.UserID,
		Username:  stored.Username,
		Role:      stored.Role,
		ExpiresAt: stored.ExpiresAt,
	}

	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()

	cp := *sess
	return &cp, nil
}

func (s *sessionService) OnLogout(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, fn)
}

// sessionFromToken, JWT claim'lerini imza doğrulamadan okur.
// Token JWT değilse sadece Token alanı dolu bir Session döner (opaque token).
func sessionFromToken(token string) *models.Session {
	sess := &models.Session{Token: token}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return sess
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		sess.ExpiresAt = &t
	}

	sess.UserID = int64Claim(claims, "user_id")
	if sess.UserID == 0 {
		sess.UserID = int64Claim(claims, "sub")
	}
	if v, ok := claims["username"].(string); ok {
		sess.Username = v
	}
	if v, ok := claims["role"].(string); ok {
		sess.Role = models.UserRole(v)
	}
	return sess
}

// int64Claim, sayısal veya string olarak kodlanmış ID claim'ini okur.
// JSON sayıları MapClaims içinde float64 olarak gelir.
func int64Claim(claims jwt.MapClaims, key string) int64 {
	switch v := claims[key].(type) {
	case float64:
		return int64(v)
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return id
	default:
		return 0
	}
}

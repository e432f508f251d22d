package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
	"github.com/talentlink/messenger/pkg/logger"
	"github.com/talentlink/messenger/pkg/ratelimit"
)

// Composer, mesaj gönderme iş mantığı.
//
// Gönderilmeden önce içerik trim edilip doğrulanır; geçersiz içerik için hiç
// istek atılmaz. Gönderilen mesaj lokal listeye eklenmez: onaylanmış hali
// thread refresh ile gelir (bkz. Messenger.Send).
type Composer interface {
	Send(ctx context.Context, counterpartID int64, content string) (*models.Message, error)
}

type composer struct {
	api     SendAPI
	limiter *ratelimit.SendLimiter // nil = limitsiz
	log     *zap.Logger
}

// NewComposer, constructor.
func NewComposer(api SendAPI, limiter *ratelimit.SendLimiter, log *zap.Logger) Composer {
	return &composer{
		api:     api,
		limiter: limiter,
		log:     logger.OrNop(log).Named("composer"),
	}
}

func (c *composer) Send(ctx context.Context, counterpartID int64, content string) (*models.Message, error) {
	req := models.SendMessageRequest{ReceiverID: counterpartID, Content: content}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if c.limiter != nil && !c.limiter.Allow(counterpartID) {
		return nil, fmt.Errorf("%w: try again in %d seconds", pkg.ErrRateLimited, c.limiter.CooldownSeconds(counterpartID))
	}

	msg, err := c.api.SendMessage(ctx, req)
	if err != nil {
		c.log.Warn("failed to send message", zap.Int64("receiver_id", counterpartID), zap.Error(err))
		return nil, err
	}

	c.log.Debug("message sent", zap.Int64("receiver_id", counterpartID), zap.Int64("message_id", msg.ID))
	return msg, nil
}

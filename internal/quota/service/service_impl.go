package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"github.com/upeosms/upeo/internal/config"
	quotadomain "github.com/upeosms/upeo/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type service struct {
	redis *redis.Client
	log   *zap.Logger
	cfg   config.QuotaConfig
}

type ServiceParam struct {
	fx.In

	Redis  *redis.Client
	Log    *zap.Logger
	Config config.Config
}

func NewService(p ServiceParam) quotadomain.Service {
	return &service{
		redis: p.Redis,
		log:   p.Log.Named("quota.service"),
		cfg:   p.Config.Quota,
	}
}

func (s *service) AllowSend(ctx context.Context, accountID snowflake.ID) error {
	if !s.cfg.Enabled {
		return nil
	}

	// Key: quota:send:{account_id}:{minute} e.g. quota:send:123:2026-08-31T10:04
	now := time.Now().UTC()
	key := fmt.Sprintf("quota:send:%s:%s", accountID.String(), now.Format("2006-01-02T15:04"))

	val, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		s.log.Error("failed to increment send quota", zap.Error(err))
		// Fail open to avoid blocking sends on redis trouble
		return nil
	}

	if val == 1 {
		s.redis.Expire(ctx, key, 2*time.Minute)
	}

	if val > int64(s.cfg.SendPerMinute) {
		return quotadomain.ErrSendRateExceeded
	}

	return nil
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/planora/internal/config"
)

const keyInviteRedeemIP = "invite:redeem:ip:%s"

// InviteRedeemLimiter throttles the public invitation preview and accept
// endpoints per client IP. Tokens are unguessable, but the lookup is
// unauthenticated, so brute-force probing gets bounded here.
type InviteRedeemLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewInviteRedeemLimiter(cfg config.Config) (*InviteRedeemLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.InviteRedeemRate <= 0 || limitCfg.InviteRedeemBurst <= 0 {
		return nil, errors.New("invite redeem rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.RedisPassword),
		DB:       limitCfg.RedisDB,
	})

	return &InviteRedeemLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.InviteRedeemRate,
		burst:   limitCfg.InviteRedeemBurst,
	}, nil
}

func (l *InviteRedeemLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowIP consumes one token for the client IP. When the limiter is
// disabled everything is allowed.
func (l *InviteRedeemLimiter) AllowIP(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyInviteRedeemIP, strings.TrimSpace(clientIP)), l.rate, l.burst)
}

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smartkeys/keyserver/internal/config"
)

const (
	keyActivate = "license:activate:%s"
	keyVerify   = "license:verify:%s"
)

// LicenseLimiter throttles the unauthenticated license endpoints per client
// IP. A nil limiter (rate limiting disabled) allows everything.
type LicenseLimiter struct {
	bucket *TokenBucket

	activateRate  float64
	activateBurst int
	verifyRate    float64
	verifyBurst   int
}

func NewLicenseLimiter(cfg config.Config) (*LicenseLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.ActivateRate <= 0 || limitCfg.ActivateBurst <= 0 {
		return nil, errors.New("activate rate limit must be positive")
	}
	if limitCfg.VerifyRate <= 0 || limitCfg.VerifyBurst <= 0 {
		return nil, errors.New("verify rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: limitCfg.RedisPassword,
		DB:       limitCfg.RedisDB,
	})

	return &LicenseLimiter{
		bucket:        NewTokenBucket(client),
		activateRate:  limitCfg.ActivateRate,
		activateBurst: limitCfg.ActivateBurst,
		verifyRate:    limitCfg.VerifyRate,
		verifyBurst:   limitCfg.VerifyBurst,
	}, nil
}

func (l *LicenseLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *LicenseLimiter) AllowActivate(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyActivate, strings.TrimSpace(clientIP)), l.activateRate, l.activateBurst)
}

func (l *LicenseLimiter) AllowVerify(ctx context.Context, clientIP string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyVerify, strings.TrimSpace(clientIP)), l.verifyRate, l.verifyBurst)
}

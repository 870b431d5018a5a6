package ratelimit

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
)

// UploadLimiter bounds how fast a single user may submit bills. With no
// redis backend it allows everything; the fraud frequency checks still
// cover abusive volumes.
type UploadLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
	log    *zap.Logger
}

func NewUploadLimiter(bucket *TokenBucket, ratePerMinute, burst int, log *zap.Logger) *UploadLimiter {
	if ratePerMinute <= 0 {
		ratePerMinute = 10
	}
	if burst <= 0 {
		burst = 5
	}
	return &UploadLimiter{
		bucket: bucket,
		rate:   float64(ratePerMinute) / 60,
		burst:  burst,
		log:    log.Named("ratelimit.upload"),
	}
}

// Allow reports whether the user may submit right now. Limiter errors
// fail open so a redis outage never blocks uploads.
func (l *UploadLimiter) Allow(ctx context.Context, userID snowflake.ID) (Result, bool) {
	if l == nil || l.bucket == nil {
		return Result{Allowed: true}, true
	}

	key := fmt.Sprintf("ratelimit:upload:%d", userID)
	res, err := l.bucket.Allow(ctx, key, l.rate, l.burst)
	if err != nil {
		l.log.Warn("upload rate limit check failed", zap.Error(err))
		return Result{Allowed: true}, true
	}
	return res, res.Allowed
}

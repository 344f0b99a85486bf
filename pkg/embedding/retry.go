package embedding

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"cogsearch-go/internal/config"
	"cogsearch-go/pkg/log"
)

// RetryPolicy retries an operation with random exponential backoff.
// The wait before attempt n+1 is drawn uniformly from [MinWait, min(MaxWait, MinWait*2^(n-1))].
type RetryPolicy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	// Retryable reports whether an error is transient. Nil means IsTransient.
	Retryable func(error) bool

	jitter func() float64
}

// DefaultRetryPolicy is 6 attempts waiting between 1s and 20s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 6, MinWait: time.Second, MaxWait: 20 * time.Second}
}

// RetryPolicyFromConfig builds a policy from configuration.
func RetryPolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{MaxAttempts: cfg.MaxAttempts, MinWait: cfg.MinWait, MaxWait: cfg.MaxWait}
}

// Backoff returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	high := p.MinWait
	for i := 1; i < attempt && high < p.MaxWait; i++ {
		high *= 2
	}
	if high > p.MaxWait {
		high = p.MaxWait
	}
	if high <= p.MinWait {
		return p.MinWait
	}
	r := rand.Float64
	if p.jitter != nil {
		r = p.jitter
	}
	return p.MinWait + time.Duration(r()*float64(high-p.MinWait))
}

// Do runs op until it succeeds, returns a non-retryable error, the attempts run out,
// or ctx is done. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		return errors.New("retry: max attempts must be positive")
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				log.Debugf("[Retry] 第 %d 次尝试成功", attempt)
			}
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}

		wait := p.Backoff(attempt)
		log.Warnf("[Retry] 第 %d/%d 次尝试失败, %s 后重试: %v", attempt, p.MaxAttempts, wait, lastErr)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

var statusCodePattern = regexp.MustCompile(`status code: (\d{3})`)

// IsTransient classifies embedding errors. Bad input, auth and not-found responses are
// fatal; rate limiting, server errors and transport failures are retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrEmptyText) || errors.Is(err, ErrUnknownModel) || errors.Is(err, ErrDimensionMismatch) {
		return false
	}
	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch code {
		case 400, 401, 403, 404, 422:
			return false
		}
	}
	return true
}

// Package ratelimit paces requests to the chatroom API.
//
// TokenBucket holds up to a burst of tokens and regains one per interval,
// backed by golang.org/x/time/rate.
// Wait blocks until a token is free and returns early with the context's
// error when the context is cancelled, so a pending request never delays
// shutdown.
//
//	limiter := ratelimit.FromSettings(cfg.RateLimit)
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package ratelimit

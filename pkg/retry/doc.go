// Package retry provides retry logic with exponential backoff for operations
// that can fail transiently, such as the browser login.
//
// Basic usage:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return provider.Login(ctx)
//	}, retry.FromSettings(cfg.Retry, logger.GetLogger()))
//
// Typed errors from pkg/errors are retried only when their type is
// retryable (network, rate limit, server). Auth, format and config errors
// fail on the first attempt. Context cancellation is never retried and the
// backoff wait returns as soon as the context is done.
package retry

// Package resilience provides reliability and fault tolerance patterns for the application.
// It includes implementations of circuit breakers and retry logic to keep the
// ingest pipeline running through transient failures.
//
// The package supports:
//   - Circuit breakers for the database and feed endpoints
//   - Retry logic with exponential backoff and jitter
//
// Usage Example:
//
//	cb := circuitbreaker.NewDBCircuitBreaker(db)
//	repo := postgres.NewArticleRepo(cb)
//
//	retryConfig := retry.DefaultConfig()
//	err := retry.WithBackoff(ctx, retryConfig, func() error {
//	    return performOperation()
//	})
package resilience

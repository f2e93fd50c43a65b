// Package observability provides production-grade observability infrastructure
// including structured logging and Prometheus metrics. There is no tracing
// subpackage; request IDs carried in log records are the only correlation.
//
// This package centralizes observability concerns to enable:
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - Performance profiling and debugging
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//
// Example usage:
//
//	import (
//	    "rssant/internal/observability/logging"
//	    "rssant/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("application started")
//
//	    metrics.RecordArticlesFetched("example-source", 1, 10)
//	}
package observability

package shareaudit

import (
	"context"
	"log/slog"
)

// NoopClientResolver is a no-operation implementation of ClientResolver
// Useful when geo/bot enrichment is disabled or for testing
type NoopClientResolver struct{}

// NewNoopClientResolver creates a new no-operation client resolver
func NewNoopClientResolver() ClientResolver {
	return &NoopClientResolver{}
}

// Resolve echoes the raw ip/user-agent pair without enrichment
func (n *NoopClientResolver) Resolve(ctx context.Context, ipAddress, userAgent string) ClientContext {
	return ClientContext{IPAddress: ipAddress, UserAgent: userAgent}
}

// NoopDiagnosticSink is a no-operation implementation of DiagnosticSink
type NoopDiagnosticSink struct{}

// NewNoopDiagnosticSink creates a new no-operation diagnostic sink
func NewNoopDiagnosticSink() DiagnosticSink {
	return &NoopDiagnosticSink{}
}

// ReportFailure does nothing
func (n *NoopDiagnosticSink) ReportFailure(ctx context.Context, op string, err error) {}

// SlogDiagnosticSink routes swallowed audit/activity failures to a
// structured logger. This is the default sink: the primary flow never
// sees the failure, the log does.
type SlogDiagnosticSink struct {
	logger *slog.Logger
}

// NewSlogDiagnosticSink creates a diagnostic sink over the given
// logger. A nil logger falls back to slog.Default().
func NewSlogDiagnosticSink(logger *slog.Logger) DiagnosticSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogDiagnosticSink{logger: logger}
}

// ReportFailure logs the failed operation and its error
func (s *SlogDiagnosticSink) ReportFailure(ctx context.Context, op string, err error) {
	s.logger.ErrorContext(ctx, "best-effort operation failed", "op", op, "err", err)
}

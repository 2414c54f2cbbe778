package sentry

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// SpanFinisher closes a span and records its status. A zero value is a no-op.
type SpanFinisher struct {
	Span *sentry.Span
}

// Finish marks the span failed when err is non-nil and finishes it
func (f *SpanFinisher) Finish(err error) {
	if f == nil || f.Span == nil {
		return
	}
	if err != nil {
		f.Span.Status = sentry.SpanStatusInternalError
		f.Span.SetData("error", err.Error())
	} else {
		f.Span.Status = sentry.SpanStatusOK
	}
	f.Span.Finish()
}

// StartRepositorySpan starts a db span named repository.<repo>.<op>
func (s *Service) StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) (context.Context, *SpanFinisher) {
	span, ctx := s.StartDBSpan(ctx, "repository."+repository+"."+operation, params)
	return ctx, &SpanFinisher{Span: span}
}

package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"laudo/internal/platform/metrics"
	"laudo/pkg/platform/privacy"
	"laudo/pkg/requestcontext"
)

// Recorder writes audit records best-effort. Record never returns an error:
// a failed write is logged with full context for operators and swallowed, so
// the primary submission flow stays independent of the trail.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type RecorderOption func(*Recorder)

func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) { r.logger = logger }
}

func WithPublisher(p Publisher) RecorderOption {
	return func(r *Recorder) { r.publisher = p }
}

func WithMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) { r.metrics = m }
}

func NewRecorder(store Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists one submission attempt. ID and CreatedAt are filled when
// zero; the raw User-Agent is normalized to "browser version (os)" form.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = requestcontext.Now(ctx)
	}
	rec.UserAgent = NormalizeUserAgent(rec.UserAgent)

	if err := r.store.Append(ctx, rec); err != nil {
		r.metrics.RecordAuditWriteFailure()
		r.logger.ErrorContext(ctx, "audit record lost",
			"error", err,
			"record_id", rec.ID,
			"origin", rec.Origin,
			"status", rec.Status,
			"protocol", rec.Protocol,
			"recipient", privacy.MaskCPF(rec.RecipientCPF),
			"source_ip", privacy.AnonymizeIP(rec.SourceIP),
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, rec); err != nil {
			r.logger.WarnContext(ctx, "audit fan-out failed",
				"error", err,
				"record_id", rec.ID,
			)
		}
	}
}

// NormalizeUserAgent reduces a raw User-Agent header to a short stable form.
// Unparseable strings pass through as-is so forensics keep the raw value.
func NormalizeUserAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s %s (%s)", name, version, os)
	}
	return fmt.Sprintf("%s %s", name, version)
}

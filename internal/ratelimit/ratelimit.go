// Package ratelimit implements the per-source admission control for the
// public submission endpoint: a fixed one-hour window of admitted requests
// per source IP, with a hard 15-minute block once the threshold is exceeded.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"laudo/internal/platform/metrics"
	"laudo/pkg/platform/privacy"
	"laudo/pkg/requestcontext"
)

// Config holds the limiter rule. The defaults match the public portal's
// published policy: 10 requests per hour per IP, 15-minute lockout.
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
	BlockDuration     time.Duration
}

// DefaultConfig returns the production rule.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 10,
		Window:            time.Hour,
		BlockDuration:     15 * time.Minute,
	}
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed bool
	// Blocked is true while the source is serving a hard lockout.
	Blocked    bool
	Limit      int
	Remaining  int
	RetryAfter int // seconds; 0 when allowed
	ResetAt    time.Time
}

// Store is the persistence port for per-source counters and blocks.
// Implementations must make Increment atomic per source.
type Store interface {
	// IsBlocked reports whether the source is serving a block and how long
	// remains. A blocked check must not touch the counter or the block TTL.
	IsBlocked(ctx context.Context, sourceID string, now time.Time) (time.Duration, bool, error)
	// Increment counts one request against the source's current window,
	// restarting the window when it has elapsed. Returns the updated count
	// and the window start.
	Increment(ctx context.Context, sourceID string, now time.Time, window time.Duration) (int, time.Time, error)
	// SetBlock places the source in a hard block for d.
	SetBlock(ctx context.Context, sourceID string, now time.Time, d time.Duration) error
}

// Service applies the limiter rule over a Store.
type Service struct {
	store   Store
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.config = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("rate limit store is required")
	}
	svc := &Service{
		store:  store,
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Admit checks one request from sourceID against the rule. Exceeding the
// threshold triggers the hard block; rejected attempts while blocked do not
// refresh the block timer.
func (s *Service) Admit(ctx context.Context, sourceID string) (*Decision, error) {
	now := requestcontext.Now(ctx)

	remaining, blocked, err := s.store.IsBlocked(ctx, sourceID, now)
	if err != nil {
		return nil, err
	}
	if blocked {
		s.metrics.RecordRateLimitDecision("blocked")
		return &Decision{
			Allowed:    false,
			Blocked:    true,
			Limit:      s.config.RequestsPerWindow,
			RetryAfter: ceilSeconds(remaining),
			ResetAt:    now.Add(remaining),
		}, nil
	}

	count, windowStart, err := s.store.Increment(ctx, sourceID, now, s.config.Window)
	if err != nil {
		return nil, err
	}

	if count > s.config.RequestsPerWindow {
		if err := s.store.SetBlock(ctx, sourceID, now, s.config.BlockDuration); err != nil {
			return nil, err
		}
		s.logger.WarnContext(ctx, "source blocked for exceeding rate limit",
			"source", privacy.AnonymizeIP(sourceID),
			"count", count,
			"block_minutes", int(s.config.BlockDuration.Minutes()),
		)
		s.metrics.RecordRateLimitDecision("rejected")
		return &Decision{
			Allowed:    false,
			Blocked:    true,
			Limit:      s.config.RequestsPerWindow,
			RetryAfter: ceilSeconds(s.config.BlockDuration),
			ResetAt:    now.Add(s.config.BlockDuration),
		}, nil
	}

	s.metrics.RecordRateLimitDecision("admitted")
	return &Decision{
		Allowed:   true,
		Limit:     s.config.RequestsPerWindow,
		Remaining: s.config.RequestsPerWindow - count,
		ResetAt:   windowStart.Add(s.config.Window),
	}, nil
}

func ceilSeconds(d time.Duration) int {
	secs := int(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	if secs < 0 {
		return 0
	}
	return secs
}

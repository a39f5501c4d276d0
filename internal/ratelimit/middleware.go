package ratelimit

import (
	"fmt"
	"net/http"

	dErrors "laudo/pkg/domain-errors"
	"laudo/pkg/platform/httputil"
	"laudo/pkg/platform/privacy"
	"laudo/pkg/requestcontext"
)

// Middleware guards a route with the limiter, keyed by the client IP taken
// from the request context. A store outage fails open: availability of the
// public endpoint wins over strict enforcement.
type Middleware struct {
	svc      *Service
	disabled bool
}

type MiddlewareOption func(*Middleware)

// WithDisabled turns enforcement off while keeping the handler chain
// intact. Used by local development and load tests.
func WithDisabled(disabled bool) MiddlewareOption {
	return func(m *Middleware) { m.disabled = disabled }
}

func NewMiddleware(svc *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{svc: svc}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		sourceID := requestcontext.ClientIP(ctx)

		decision, err := m.svc.Admit(ctx, sourceID)
		if err != nil {
			m.svc.logger.ErrorContext(ctx, "rate limit check failed, admitting request",
				"error", err,
				"source", privacy.AnonymizeIP(sourceID),
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", decision.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", decision.ResetAt.Unix()))

		if !decision.Allowed {
			w.Header().Set("Retry-After", fmt.Sprintf("%d", decision.RetryAfter))
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited,
				"limite de envios excedido, aguarde antes de tentar novamente"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

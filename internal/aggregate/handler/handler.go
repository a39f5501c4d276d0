// Package handler exposes the aggregated document listing.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"laudo/internal/aggregate"
	jwttoken "laudo/internal/jwt_token"
	"laudo/internal/platform/middleware"
	dErrors "laudo/pkg/domain-errors"
	"laudo/pkg/platform/httputil"
	"laudo/pkg/requestcontext"
)

// Service defines the listing operation the handler delegates to.
type Service interface {
	ListDocuments(ctx context.Context, q aggregate.Query) (*aggregate.Listing, error)
}

// Handler wires the documents endpoint to the aggregation service.
type Handler struct {
	service Service
	auth    func(http.Handler) http.Handler
	logger  *slog.Logger
}

func New(service Service, auth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		auth:    auth,
		logger:  logger,
	}
}

// Register mounts the documents endpoint behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.With(h.auth).Get("/api/v1/documents", h.HandleList)
}

// HandleList handles GET /api/v1/documents. Admins see everything;
// institutional tokens are scoped to their own CNPJ.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var q aggregate.Query
	switch role := middleware.GetRole(ctx); role {
	case jwttoken.RoleAdmin:
		// Unscoped.
	case jwttoken.RoleInstitution:
		cnpj := middleware.GetCNPJ(ctx)
		if cnpj == "" {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "institution token missing cnpj"))
			return
		}
		q.SenderCNPJ = cnpj
	default:
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
		return
	}

	listing, err := h.service.ListDocuments(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "document listing failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listing)
}

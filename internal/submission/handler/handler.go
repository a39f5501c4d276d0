// Package handler exposes the submission endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"laudo/internal/audit"
	"laudo/internal/circuit"
	"laudo/internal/ratelimit"
	"laudo/internal/submission"
	dErrors "laudo/pkg/domain-errors"
	"laudo/pkg/platform/httputil"
	"laudo/pkg/requestcontext"
)

// submissionBody is the wire shape shared by both submission endpoints.
// The legacy API established it; the public endpoint adds documentType.
type submissionBody struct {
	PatientEmail string `json:"patientEmail"`
	DoctorName   string `json:"doctorName"`
	ExamDate     string `json:"examDate"`
	Documento    string `json:"documento"`
	CPF          string `json:"cpf"`
	CNPJ         string `json:"cnpj"`
	DocumentType string `json:"documentType"`
	Report       struct {
		FileName    string `json:"fileName"`
		FileContent string `json:"fileContent"`
	} `json:"report"`
}

func (b submissionBody) toRequest() submission.Request {
	return submission.Request{
		Email:        b.PatientEmail,
		DoctorName:   b.DoctorName,
		ExamDate:     b.ExamDate,
		Protocol:     b.Documento,
		CPF:          b.CPF,
		CNPJ:         b.CNPJ,
		DocumentType: b.DocumentType,
		FileName:     b.Report.FileName,
		FileContent:  b.Report.FileContent,
	}
}

// Handler wires the submission endpoints to the orchestrator.
type Handler struct {
	service  *submission.Service
	breaker  *circuit.Breaker
	limiter  *ratelimit.Middleware
	recorder *audit.Recorder
	logger   *slog.Logger
}

func New(service *submission.Service, breaker *circuit.Breaker, limiter *ratelimit.Middleware, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		breaker:  breaker,
		limiter:  limiter,
		recorder: recorder,
		logger:   logger,
	}
}

// Register mounts the submission endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/api/v1/reports", h.HandleInstitutional)
	r.With(h.limiter.Handler).Post("/api/v1/public/submissions", h.HandlePublic)
}

// HandlePublic handles POST /api/v1/public/submissions. The rate limiter
// runs before this; the breaker gate and the deadline run here.
func (h *Handler) HandlePublic(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.breaker.Allow(ctx) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeCircuitOpen,
			"serviço temporariamente indisponível, tente novamente em alguns minutos"))
		return
	}

	body, ok := h.decodeBody(w, r, audit.OriginPublicPortal)
	if !ok {
		return
	}

	receipt, err := h.service.SubmitPublic(ctx, body.toRequest())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, receipt)
}

// HandleInstitutional handles POST /api/v1/reports, the legacy lab API.
// No limiter, breaker or deadline on this path.
func (h *Handler) HandleInstitutional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, ok := h.decodeBody(w, r, audit.OriginExternalAPI)
	if !ok {
		return
	}

	receipt, err := h.service.SubmitInstitutional(ctx, body.toRequest())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, receipt)
}

// decodeBody parses the JSON body. A malformed body is still an attempt:
// it gets an audit record before the 400 goes out.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, origin audit.Origin) (*submissionBody, bool) {
	ctx := r.Context()
	var body submissionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.WarnContext(ctx, "malformed submission body",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		h.recorder.Record(ctx, audit.Record{
			Origin:    origin,
			SourceIP:  requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
			Status:    audit.StatusValidationError,
			Metadata:  map[string]string{"reason": "malformed-body"},
		})
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "corpo da requisição inválido"))
		return nil, false
	}
	return &body, true
}

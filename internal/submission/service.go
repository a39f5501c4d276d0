package submission

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"laudo/internal/audit"
	"laudo/internal/circuit"
	"laudo/internal/directory"
	"laudo/internal/domain"
	"laudo/internal/notification"
	"laudo/internal/platform/metrics"
	"laudo/internal/report"
	dErrors "laudo/pkg/domain-errors"
	"laudo/pkg/platform/privacy"
	"laudo/pkg/platform/sentinel"
	"laudo/pkg/requestcontext"
)

// defaultDeadline bounds the post-validation sequence on the public path.
const defaultDeadline = 8 * time.Second

// Service orchestrates one submission: validate, resolve the recipient,
// create the document record, notify, audit, respond. Every early exit
// still routes through the audit recorder.
type Service struct {
	dir      directory.Directory
	reports  report.Store
	notifier notification.Sink
	recorder *audit.Recorder
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
	deadline time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithDeadline(d time.Duration) Option {
	return func(s *Service) { s.deadline = d }
}

func New(
	dir directory.Directory,
	reports report.Store,
	notifier notification.Sink,
	recorder *audit.Recorder,
	breaker *circuit.Breaker,
	opts ...Option,
) (*Service, error) {
	if dir == nil || reports == nil || notifier == nil || recorder == nil || breaker == nil {
		return nil, errors.New("all submission dependencies are required")
	}
	svc := &Service{
		dir:      dir,
		reports:  reports,
		notifier: notifier,
		recorder: recorder,
		breaker:  breaker,
		logger:   slog.Default(),
		tracer:   otel.Tracer("laudo/submission"),
		deadline: defaultDeadline,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// SubmitPublic handles a public portal submission under the processing
// deadline. The in-flight work is not cancelled when the deadline fires:
// the response returns 408 while the write may still land, recorded with
// outcome "processing".
func (s *Service) SubmitPublic(ctx context.Context, req Request) (*domain.Receipt, error) {
	v, err := validatePublic(req)
	if err != nil {
		s.auditFailure(ctx, audit.OriginPublicPortal, req, nil, audit.StatusValidationError, err)
		s.metrics.RecordSubmission(string(audit.OriginPublicPortal), string(audit.StatusValidationError))
		return nil, err
	}

	type outcome struct {
		receipt *domain.Receipt
		err     error
	}
	// Buffered so a late completion never blocks the abandoned goroutine,
	// and only the first settle decides the response.
	done := make(chan outcome, 1)

	// The worker keeps the request's values but survives its cancellation.
	workCtx := context.WithoutCancel(ctx)
	go func() {
		receipt, err := s.process(workCtx, audit.OriginPublicPortal, req, v)
		done <- outcome{receipt: receipt, err: err}
	}()

	timer := time.NewTimer(s.deadline)
	defer timer.Stop()

	select {
	case out := <-done:
		return out.receipt, out.err
	case <-timer.C:
		// Timeout is a systemic symptom, not a business outcome.
		s.breaker.RecordFailure(ctx)
		s.auditFailure(ctx, audit.OriginPublicPortal, req, v, audit.StatusProcessing, nil)
		s.metrics.RecordSubmission(string(audit.OriginPublicPortal), string(audit.StatusProcessing))
		s.logger.WarnContext(ctx, "submission exceeded processing deadline",
			"protocol", req.Protocol,
			"deadline", s.deadline,
		)
		return nil, dErrors.New(dErrors.CodeTimeout, "tempo de processamento excedido, tente novamente")
	}
}

// SubmitInstitutional handles a legacy lab API submission. No rate limiter,
// breaker admission or deadline on this path; it predates all three.
func (s *Service) SubmitInstitutional(ctx context.Context, req Request) (*domain.Receipt, error) {
	v, err := validateInstitutional(req)
	if err != nil {
		s.auditFailure(ctx, audit.OriginExternalAPI, req, nil, audit.StatusValidationError, err)
		s.metrics.RecordSubmission(string(audit.OriginExternalAPI), string(audit.StatusValidationError))
		return nil, err
	}
	return s.process(ctx, audit.OriginExternalAPI, req, v)
}

// process runs the post-validation sequence: resolve, create, notify, audit.
func (s *Service) process(ctx context.Context, origin audit.Origin, req Request, v *validated) (*domain.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "submission.process",
		trace.WithAttributes(
			attribute.String("submission.origin", string(origin)),
			attribute.String("submission.document_type", string(v.docType)),
		))
	defer span.End()

	patient, err := s.resolveRecipient(ctx, v)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Terminal business outcome: never trips the breaker.
			s.auditFailure(ctx, origin, req, v, audit.StatusUserNotFound, nil)
			s.metrics.RecordSubmission(string(origin), string(audit.StatusUserNotFound))
			return nil, dErrors.New(dErrors.CodeNotFound, "não encontramos nenhum usuário com o documento informado")
		}
		return nil, s.systemicFailure(ctx, origin, req, v, err, "recipient lookup failed")
	}

	// Fast path for duplicates; the unique constraint on protocol is the
	// real guarantee when two submissions race past this check.
	exists, err := s.reports.ExistsByProtocol(ctx, req.Protocol)
	if err != nil {
		return nil, s.systemicFailure(ctx, origin, req, v, err, "protocol existence check failed")
	}
	if exists {
		return nil, s.duplicateProtocol(ctx, origin, req, v, patient)
	}

	hash := sha256.Sum256(v.decoded)
	fileHash := hex.EncodeToString(hash[:])
	now := requestcontext.Now(ctx)

	rep := &report.Report{
		ID:           uuid.NewString(),
		Protocol:     req.Protocol,
		FileName:     req.FileName,
		DocumentType: v.docType,
		PatientID:    patient.ID,
		PatientName:  patient.Name,
		SenderCNPJ:   v.cnpj.String(),
		DoctorName:   req.DoctorName,
		ExamDate:     req.ExamDate,
		CreatedAt:    now,
	}
	if err := s.reports.Create(ctx, rep); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, s.duplicateProtocol(ctx, origin, req, v, patient)
		}
		return nil, s.systemicFailure(ctx, origin, req, v, err, "report creation failed")
	}

	notif := &notification.Notification{
		ID:        uuid.NewString(),
		PatientID: patient.ID,
		ReportID:  rep.ID,
		Message:   "Novo documento disponível: " + req.FileName,
		CreatedAt: now,
	}
	if err := s.notifier.Create(ctx, notif); err != nil {
		return nil, s.systemicFailure(ctx, origin, req, v, err, "notification creation failed")
	}

	s.recorder.Record(ctx, audit.Record{
		Origin:       origin,
		SenderCNPJ:   v.cnpj.String(),
		RecipientCPF: v.cpf.String(),
		PatientID:    patient.ID,
		PatientName:  patient.Name,
		Protocol:     req.Protocol,
		FileName:     req.FileName,
		FileHash:     fileHash,
		DocumentType: v.docType,
		SourceIP:     requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		Status:       audit.StatusSuccess,
		Metadata:     reqMetadata(req),
	})
	s.metrics.RecordSubmission(string(origin), string(audit.StatusSuccess))
	s.breaker.RecordSuccess(ctx)

	return &domain.Receipt{
		NotificationID: notif.ID,
		ReportID:       rep.ID,
		ReceivedAt:     now,
	}, nil
}

func (s *Service) resolveRecipient(ctx context.Context, v *validated) (*directory.Patient, error) {
	if v.cpf != "" {
		return s.dir.FindPatientByCPF(ctx, v.cpf)
	}
	inst, err := s.dir.FindInstitutionByCNPJ(ctx, v.cnpj)
	if err != nil {
		return nil, err
	}
	if inst.ContactCPF == "" {
		return nil, sentinel.ErrNotFound
	}
	return s.dir.FindPatientByCPF(ctx, inst.ContactCPF)
}

func (s *Service) duplicateProtocol(ctx context.Context, origin audit.Origin, req Request, v *validated, patient *directory.Patient) error {
	rec := s.baseRecord(ctx, origin, req, v, audit.StatusValidationError)
	rec.PatientID = patient.ID
	rec.PatientName = patient.Name
	rec.Metadata["reason"] = "duplicate-protocol"
	s.recorder.Record(ctx, rec)
	s.metrics.RecordSubmission(string(origin), string(audit.StatusValidationError))
	return dErrors.Newf(dErrors.CodeConflict, "já existe um documento com o protocolo %s", req.Protocol)
}

// systemicFailure records a breaker failure, audits with whatever is known,
// and returns an opaque internal error.
func (s *Service) systemicFailure(ctx context.Context, origin audit.Origin, req Request, v *validated, err error, msg string) error {
	s.breaker.RecordFailure(ctx)
	s.logger.ErrorContext(ctx, msg,
		"error", err,
		"origin", origin,
		"protocol", req.Protocol,
		"source_ip", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.auditFailure(ctx, origin, req, v, audit.StatusServerError, err)
	s.metrics.RecordSubmission(string(origin), string(audit.StatusServerError))
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// auditFailure writes the attempt record with the partial information known
// at the point of failure.
func (s *Service) auditFailure(ctx context.Context, origin audit.Origin, req Request, v *validated, status audit.Status, cause error) {
	rec := s.baseRecord(ctx, origin, req, v, status)
	if cause != nil {
		rec.Metadata["error"] = cause.Error()
	}
	s.recorder.Record(ctx, rec)
}

func (s *Service) baseRecord(ctx context.Context, origin audit.Origin, req Request, v *validated, status audit.Status) audit.Record {
	rec := audit.Record{
		Origin:       origin,
		FileName:     req.FileName,
		Protocol:     req.Protocol,
		SourceIP:     requestcontext.ClientIP(ctx),
		UserAgent:    requestcontext.UserAgent(ctx),
		Status:       status,
		Metadata:     reqMetadata(req),
		DocumentType: domain.ParseDocumentType(req.DocumentType),
	}
	if v != nil {
		rec.RecipientCPF = v.cpf.String()
		rec.SenderCNPJ = v.cnpj.String()
		rec.DocumentType = v.docType
		if len(v.decoded) > 0 {
			hash := sha256.Sum256(v.decoded)
			rec.FileHash = hex.EncodeToString(hash[:])
		}
	} else {
		// Validation failed before normalization: keep the raw digits so
		// operators can still correlate the attempt.
		cpf, _ := domain.NormalizeCPF(req.CPF)
		cnpj, _ := domain.NormalizeCNPJ(req.CNPJ)
		rec.RecipientCPF = cpf.String()
		rec.SenderCNPJ = cnpj.String()
	}
	return rec
}

func reqMetadata(req Request) map[string]string {
	return map[string]string{
		"doctorName": req.DoctorName,
		"examDate":   req.ExamDate,
		"email":      req.Email,
	}
}

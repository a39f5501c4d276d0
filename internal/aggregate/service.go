// Package aggregate serves the read side: the document listing merged from
// the audit trail and the legacy report table.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"laudo/internal/audit"
	"laudo/internal/directory"
	"laudo/internal/domain"
	"laudo/internal/report"
	dErrors "laudo/pkg/domain-errors"
	"laudo/pkg/platform/privacy"
	"laudo/pkg/platform/sentinel"
)

// maxAuditRecords bounds how many raw audit records enter the merge.
// Merging dedups, so the final document count can be lower.
const maxAuditRecords = 100

// maxLegacyReports bounds the fallback source the same way.
const maxLegacyReports = 100

// Query scopes a listing. An empty SenderCNPJ means unscoped (admin view).
type Query struct {
	SenderCNPJ string
}

// Listing is the aggregated response.
type Listing struct {
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

// Service merges the two document sources. The audit trail is
// authoritative; legacy report rows only fill protocols the trail has
// never seen.
type Service struct {
	audits  audit.Store
	reports report.Store
	dir     directory.Directory
	logger  *slog.Logger
	tracer  trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(audits audit.Store, reports report.Store, dir directory.Directory, opts ...Option) (*Service, error) {
	if audits == nil || reports == nil || dir == nil {
		return nil, errors.New("all aggregate dependencies are required")
	}
	svc := &Service{
		audits:  audits,
		reports: reports,
		dir:     dir,
		logger:  slog.Default(),
		tracer:  otel.Tracer("laudo/aggregate"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListDocuments fetches both sources concurrently and merges them keyed by
// protocol. Protocol-less records cannot be correlated, so each one counts
// as its own document.
func (s *Service) ListDocuments(ctx context.Context, q Query) (*Listing, error) {
	ctx, span := s.tracer.Start(ctx, "aggregate.list_documents",
		trace.WithAttributes(attribute.Bool("aggregate.scoped", q.SenderCNPJ != "")))
	defer span.End()

	var (
		auditRecs []audit.Record
		legacy    []report.Report
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if q.SenderCNPJ != "" {
			auditRecs, err = s.audits.ListByInstitution(gctx, q.SenderCNPJ, maxAuditRecords)
		} else {
			auditRecs, err = s.audits.ListRecent(gctx, maxAuditRecords)
		}
		return err
	})
	g.Go(func() error {
		var err error
		if q.SenderCNPJ != "" {
			legacy, err = s.reports.ListByInstitution(gctx, q.SenderCNPJ, maxLegacyReports)
		} else {
			legacy, err = s.reports.ListRecent(gctx, maxLegacyReports)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "document listing failed")
	}

	docs := s.merge(ctx, auditRecs, legacy)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})

	return &Listing{Documents: docs, Total: len(docs)}, nil
}

// merge walks the audit records oldest first so that, for a repeated
// protocol, the earliest record's fields win. Legacy rows only contribute
// protocols absent from the trail.
func (s *Service) merge(ctx context.Context, auditRecs []audit.Record, legacy []report.Report) []domain.Document {
	seen := make(map[string]bool, len(auditRecs))
	docs := make([]domain.Document, 0, len(auditRecs)+len(legacy))

	for i := len(auditRecs) - 1; i >= 0; i-- {
		rec := auditRecs[i]
		if rec.Protocol != "" {
			if seen[rec.Protocol] {
				continue
			}
			seen[rec.Protocol] = true
		}
		docs = append(docs, domain.Document{
			Protocol:     rec.Protocol,
			FileName:     rec.FileName,
			Type:         rec.DocumentType,
			PatientName:  rec.PatientName,
			RecipientCPF: privacy.MaskCPF(rec.RecipientCPF),
			SenderCNPJ:   rec.SenderCNPJ,
			Origin:       string(rec.Origin),
			CreatedAt:    rec.CreatedAt,
		})
	}

	instByProtocol := make(map[string]string, len(legacy))
	instByCNPJ := make(map[string]string, len(legacy))
	for _, rep := range legacy {
		if rep.InstitutionName == "" {
			continue
		}
		if rep.Protocol != "" {
			instByProtocol[rep.Protocol] = rep.InstitutionName
		}
		if rep.SenderCNPJ != "" {
			instByCNPJ[rep.SenderCNPJ] = rep.InstitutionName
		}
	}

	for _, rep := range legacy {
		if rep.Protocol != "" && seen[rep.Protocol] {
			continue
		}
		if rep.Protocol != "" {
			seen[rep.Protocol] = true
		}
		docs = append(docs, domain.Document{
			Protocol:        rep.Protocol,
			FileName:        rep.FileName,
			Type:            rep.DocumentType,
			PatientName:     rep.PatientName,
			SenderCNPJ:      rep.SenderCNPJ,
			InstitutionName: s.institutionName(ctx, rep, instByProtocol, instByCNPJ),
			Origin:          string(audit.OriginExternalAPI),
			CreatedAt:       rep.CreatedAt,
		})
	}

	return docs
}

// institutionName resolves a display name for a legacy row: the
// protocol-keyed map first, then the CNPJ-keyed map, then the directory.
func (s *Service) institutionName(ctx context.Context, rep report.Report, byProtocol, byCNPJ map[string]string) string {
	if rep.InstitutionName != "" {
		return rep.InstitutionName
	}
	if name, ok := byProtocol[rep.Protocol]; ok && rep.Protocol != "" {
		return name
	}
	if name, ok := byCNPJ[rep.SenderCNPJ]; ok {
		return name
	}
	if rep.SenderCNPJ == "" {
		return ""
	}
	cnpj, ok := domain.NormalizeCNPJ(rep.SenderCNPJ)
	if !ok {
		return ""
	}
	inst, err := s.dir.FindInstitutionByCNPJ(ctx, cnpj)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "institution name lookup failed",
				"error", err,
				"cnpj", fmt.Sprintf("%s***", safePrefix(rep.SenderCNPJ, 4)),
			)
		}
		return ""
	}
	// Cache for the remaining rows of this listing.
	byCNPJ[rep.SenderCNPJ] = inst.Name
	return inst.Name
}

func safePrefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

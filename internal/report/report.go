// Package report owns the document-record store: one row per logical
// document, unique by protocol. The unique constraint at the storage layer
// is the real idempotency guarantee; the orchestrator's existence check is
// only a fast path.
package report

import (
	"context"
	"time"

	"laudo/internal/domain"
)

// Report is a stored document record. Rows created before the audit trail
// existed are the aggregator's legacy source.
type Report struct {
	ID           string
	Protocol     string
	FileName     string
	DocumentType domain.DocumentType
	PatientID    string
	PatientName  string
	SenderCNPJ   string
	// InstitutionName is denormalized onto older rows; newer rows leave it
	// empty and resolve the name through the directory.
	InstitutionName string
	DoctorName      string
	ExamDate        string
	CreatedAt       time.Time
}

// Store persists document records. Create returns sentinel.ErrConflict when
// the protocol already exists.
type Store interface {
	Create(ctx context.Context, r *Report) error
	ExistsByProtocol(ctx context.Context, protocol string) (bool, error)
	ListRecent(ctx context.Context, limit int) ([]Report, error)
	ListByInstitution(ctx context.Context, cnpj string, limit int) ([]Report, error)
}

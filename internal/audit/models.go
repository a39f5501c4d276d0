// Package audit provides the durable, append-only trail of submission
// attempts. One record is written per attempt regardless of outcome; the
// trail must never become a cause of submission failure.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"laudo/internal/domain"
)

// Origin tags where a submission entered the system.
type Origin string

const (
	OriginExternalAPI         Origin = "external-api"
	OriginPublicPortal        Origin = "public-portal"
	OriginAuthenticatedPortal Origin = "authenticated-portal"
)

// Status is the terminal outcome of a submission attempt.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusUserNotFound    Status = "user-not-found"
	StatusValidationError Status = "validation-error"
	StatusServerError     Status = "server-error"
	// StatusProcessing marks attempts that hit the processing deadline:
	// the response was already sent, the write may still land.
	StatusProcessing Status = "processing"
)

// Record is one submission attempt. Fields that depend on how far the
// attempt progressed (resolved patient, protocol) stay empty on early exits.
// Records are immutable once written.
type Record struct {
	ID           uuid.UUID
	Origin       Origin
	SenderCNPJ   string
	RecipientCPF string
	PatientID    string
	PatientName  string
	Protocol     string
	FileName     string
	FileHash     string
	DocumentType domain.DocumentType
	SourceIP     string
	UserAgent    string
	Status       Status
	Metadata     map[string]string
	CreatedAt    time.Time
}

// Store is the persistence port for the audit trail.
type Store interface {
	Append(ctx context.Context, rec Record) error
	// ListRecent returns up to limit records, most recent first.
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	// ListByInstitution returns up to limit records for one sender CNPJ,
	// most recent first.
	ListByInstitution(ctx context.Context, cnpj string, limit int) ([]Record, error)
}

// Publisher fans audit records out to a secondary sink (e.g. Kafka).
// Publishing is best-effort: the recorder swallows publisher errors too.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

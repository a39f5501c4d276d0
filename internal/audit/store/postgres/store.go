// Package postgres persists the audit trail. The table is append-only:
// nothing in this subsystem updates or deletes rows.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"laudo/internal/audit"
	"laudo/internal/domain"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	query := `
		INSERT INTO submission_audit (
			id, origin, sender_cnpj, recipient_cpf, patient_id, patient_name,
			protocol, file_name, file_hash, document_type, source_ip,
			user_agent, status, metadata, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = s.pool.Exec(ctx, query,
		rec.ID,
		string(rec.Origin),
		nullable(rec.SenderCNPJ),
		rec.RecipientCPF,
		nullable(rec.PatientID),
		nullable(rec.PatientName),
		nullable(rec.Protocol),
		rec.FileName,
		rec.FileHash,
		string(rec.DocumentType),
		rec.SourceIP,
		nullable(rec.UserAgent),
		string(rec.Status),
		metadata,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	query := selectColumns + `
		FROM submission_audit
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) ListByInstitution(ctx context.Context, cnpj string, limit int) ([]audit.Record, error) {
	query := selectColumns + `
		FROM submission_audit
		WHERE sender_cnpj = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, cnpj, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

const selectColumns = `
		SELECT id, origin, sender_cnpj, recipient_cpf, patient_id, patient_name,
			   protocol, file_name, file_hash, document_type, source_ip,
			   user_agent, status, metadata, created_at`

func scanRecords(rows pgx.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			rec        audit.Record
			origin     string
			docType    string
			status     string
			senderCNPJ *string
			patientID  *string
			patient    *string
			protocol   *string
			userAgent  *string
			metadata   []byte
		)
		err := rows.Scan(
			&rec.ID, &origin, &senderCNPJ, &rec.RecipientCPF, &patientID,
			&patient, &protocol, &rec.FileName, &rec.FileHash, &docType,
			&rec.SourceIP, &userAgent, &status, &metadata, &rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Origin = audit.Origin(origin)
		rec.DocumentType = domain.DocumentType(docType)
		rec.Status = audit.Status(status)
		rec.SenderCNPJ = deref(senderCNPJ)
		rec.PatientID = deref(patientID)
		rec.PatientName = deref(patient)
		rec.Protocol = deref(protocol)
		rec.UserAgent = deref(userAgent)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

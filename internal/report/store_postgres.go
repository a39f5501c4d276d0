package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"laudo/internal/domain"
	"laudo/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Create(ctx context.Context, r *Report) error {
	query := `
		INSERT INTO reports (
			id, protocol, file_name, document_type, patient_id, patient_name,
			sender_cnpj, institution_name, doctor_name, exam_date, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.pool.Exec(ctx, query,
		r.ID,
		nullable(r.Protocol),
		r.FileName,
		string(r.DocumentType),
		r.PatientID,
		r.PatientName,
		nullable(r.SenderCNPJ),
		nullable(r.InstitutionName),
		nullable(r.DoctorName),
		nullable(r.ExamDate),
		r.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExistsByProtocol(ctx context.Context, protocol string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reports WHERE protocol = $1)`, protocol,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check protocol: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	rows, err := s.pool.Query(ctx, selectColumns+`
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

func (s *PostgresStore) ListByInstitution(ctx context.Context, cnpj string, limit int) ([]Report, error) {
	rows, err := s.pool.Query(ctx, selectColumns+`
		FROM reports
		WHERE sender_cnpj = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, cnpj, limit)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()
	return scanReports(rows)
}

const selectColumns = `
		SELECT id, protocol, file_name, document_type, patient_id, patient_name,
			   sender_cnpj, institution_name, doctor_name, exam_date, created_at`

func scanReports(rows pgx.Rows) ([]Report, error) {
	var reports []Report
	for rows.Next() {
		var (
			r        Report
			docType  string
			protocol *string
			cnpj     *string
			instName *string
			doctor   *string
			examDate *string
		)
		err := rows.Scan(
			&r.ID, &protocol, &r.FileName, &docType, &r.PatientID,
			&r.PatientName, &cnpj, &instName, &doctor, &examDate, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		r.DocumentType = domain.DocumentType(docType)
		r.Protocol = deref(protocol)
		r.SenderCNPJ = deref(cnpj)
		r.InstitutionName = deref(instName)
		r.DoctorName = deref(doctor)
		r.ExamDate = deref(examDate)
		reports = append(reports, r)
	}
	return reports, rows.Err()
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

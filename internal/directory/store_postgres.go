package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"laudo/internal/domain"
	"laudo/pkg/platform/sentinel"
)

// PostgresDirectory reads the shared users/institutions tables. This service
// never writes them.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

func (d *PostgresDirectory) FindPatientByCPF(ctx context.Context, cpf domain.CPF) (*Patient, error) {
	query := `SELECT id, name, cpf FROM users WHERE cpf = $1`
	var p Patient
	var rawCPF string
	err := d.pool.QueryRow(ctx, query, cpf.String()).Scan(&p.ID, &p.Name, &rawCPF)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find patient by cpf: %w", err)
	}
	p.CPF = domain.CPF(rawCPF)
	return &p, nil
}

func (d *PostgresDirectory) FindInstitutionByCNPJ(ctx context.Context, cnpj domain.CNPJ) (*Institution, error) {
	query := `
		SELECT i.id, i.name, i.cnpj, COALESCE(u.cpf, '')
		FROM institutions i
		LEFT JOIN users u ON u.id = i.contact_user_id
		WHERE i.cnpj = $1
	`
	var inst Institution
	var rawCNPJ, rawCPF string
	err := d.pool.QueryRow(ctx, query, cnpj.String()).Scan(&inst.ID, &inst.Name, &rawCNPJ, &rawCPF)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find institution by cnpj: %w", err)
	}
	inst.CNPJ = domain.CNPJ(rawCNPJ)
	inst.ContactCPF = domain.CPF(rawCPF)
	return &inst, nil
}

// Package directory is the boundary to the user directory: patients looked
// up by CPF and sending institutions by CNPJ. The directory itself (accounts,
// sessions, roles) is owned elsewhere; this package only reads it.
package directory

import (
	"context"

	"laudo/internal/domain"
)

// Patient is a document recipient.
type Patient struct {
	ID   string
	Name string
	CPF  domain.CPF
}

// Institution is a registered sending lab or clinic.
type Institution struct {
	ID   string
	Name string
	CNPJ domain.CNPJ
	// ContactCPF is the CPF of the institution's associated portal user,
	// used when a sender identifies the recipient by CNPJ alone.
	ContactCPF domain.CPF
}

// Directory resolves recipients and senders. Implementations return
// sentinel.ErrNotFound when no match exists.
type Directory interface {
	FindPatientByCPF(ctx context.Context, cpf domain.CPF) (*Patient, error)
	FindInstitutionByCNPJ(ctx context.Context, cnpj domain.CNPJ) (*Institution, error)
}

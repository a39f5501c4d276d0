package directory

import (
	"context"
	"sync"

	"laudo/internal/domain"
	"laudo/pkg/platform/sentinel"
)

// MemoryDirectory is an in-process Directory for tests and local runs.
type MemoryDirectory struct {
	mu           sync.RWMutex
	patients     map[domain.CPF]*Patient
	institutions map[domain.CNPJ]*Institution
}

func NewMemory() *MemoryDirectory {
	return &MemoryDirectory{
		patients:     make(map[domain.CPF]*Patient),
		institutions: make(map[domain.CNPJ]*Institution),
	}
}

func (d *MemoryDirectory) AddPatient(p Patient) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patients[p.CPF] = &p
}

func (d *MemoryDirectory) AddInstitution(i Institution) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.institutions[i.CNPJ] = &i
}

func (d *MemoryDirectory) FindPatientByCPF(ctx context.Context, cpf domain.CPF) (*Patient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.patients[cpf]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (d *MemoryDirectory) FindInstitutionByCNPJ(ctx context.Context, cnpj domain.CNPJ) (*Institution, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	i, ok := d.institutions[cnpj]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	ci := *i
	return &ci, nil
}

// Package submission implements the document-submission ingress pipeline:
// payload validation, recipient resolution, idempotent document creation and
// the audit trail call, under a fixed processing deadline on the public path.
package submission

import (
	"laudo/internal/domain"
)

// Request is one inbound submission, built from the HTTP body and consumed
// once. CPF identifies the recipient directly; institutional senders may
// supply a CNPJ instead and have the recipient resolved through the
// institution's registered contact.
type Request struct {
	Email        string
	DoctorName   string
	ExamDate     string
	Protocol     string
	CPF          string
	CNPJ         string
	DocumentType string
	FileName     string
	FileContent  string // base64
}

// validated is the outcome of request validation: normalized identifiers
// and the decoded payload.
type validated struct {
	cpf     domain.CPF
	cnpj    domain.CNPJ
	docType domain.DocumentType
	decoded []byte
}

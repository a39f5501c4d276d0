package domain

import "time"

// DocumentType classifies a submitted document.
type DocumentType string

const (
	DocumentTypeRequest       DocumentType = "pedido"
	DocumentTypeAuthorization DocumentType = "autorizacao"
	DocumentTypeCertificate   DocumentType = "atestado"
	DocumentTypeResult        DocumentType = "resultado"
	DocumentTypePrescription  DocumentType = "receita"
	DocumentTypeInvoice       DocumentType = "nota"
)

// ParseDocumentType maps a caller-supplied type to a known DocumentType,
// defaulting to DocumentTypeResult for empty or unknown values.
func ParseDocumentType(raw string) DocumentType {
	switch DocumentType(raw) {
	case DocumentTypeRequest, DocumentTypeAuthorization, DocumentTypeCertificate,
		DocumentTypeResult, DocumentTypePrescription, DocumentTypeInvoice:
		return DocumentType(raw)
	default:
		return DocumentTypeResult
	}
}

// Receipt is returned to the caller on an accepted submission.
type Receipt struct {
	NotificationID string    `json:"notificationId"`
	ReportID       string    `json:"reportId"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// Document is the aggregated read-model row served by the documents listing.
// It merges the audit trail with legacy report records, so some fields are
// present only for one of the two sources.
type Document struct {
	Protocol        string       `json:"protocol,omitempty"`
	FileName        string       `json:"fileName"`
	Type            DocumentType `json:"type"`
	PatientName     string       `json:"patientName,omitempty"`
	RecipientCPF    string       `json:"recipientCpf,omitempty"`
	SenderCNPJ      string       `json:"senderCnpj,omitempty"`
	InstitutionName string       `json:"institutionName,omitempty"`
	Origin          string       `json:"origin"`
	CreatedAt       time.Time    `json:"createdAt"`
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCPF(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   CPF
		wantOK bool
	}{
		{"plain digits", "12345678901", "12345678901", true},
		{"formatted", "123.456.789-01", "12345678901", true},
		{"with spaces", " 123 456 789 01 ", "12345678901", true},
		{"too short", "1234567890", "1234567890", false},
		{"too long", "123456789012", "123456789012", false},
		{"cnpj-sized input", "12.345.678/0001-95", "12345678000195", false},
		{"empty", "", "", false},
		{"letters only", "abc", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCPF(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeCNPJ(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   CNPJ
		wantOK bool
	}{
		{"plain digits", "12345678000195", "12345678000195", true},
		{"formatted", "12.345.678/0001-95", "12345678000195", true},
		{"cpf-sized input", "123.456.789-01", "12345678901", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCNPJ(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseDocumentType(t *testing.T) {
	assert.Equal(t, DocumentTypePrescription, ParseDocumentType("receita"))
	assert.Equal(t, DocumentTypeResult, ParseDocumentType(""))
	assert.Equal(t, DocumentTypeResult, ParseDocumentType("unknown"))
}

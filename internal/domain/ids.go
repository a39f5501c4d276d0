// Package domain concentra os tipos centrais do portal de laudos: identidades
// nacionais (CPF/CNPJ), tipos de documento e o recibo de submissão.
package domain

import "strings"

// CPF is a national person ID, stored digits-only (11 digits).
type CPF string

// CNPJ is a national institution ID, stored digits-only (14 digits).
type CNPJ string

const (
	cpfDigits  = 11
	cnpjDigits = 14
)

// NormalizeCPF strips formatting (dots, dashes, spaces) and returns the
// digits-only CPF. The second return reports whether the result has the exact
// digit count for a person ID.
func NormalizeCPF(raw string) (CPF, bool) {
	digits := onlyDigits(raw)
	return CPF(digits), len(digits) == cpfDigits
}

// NormalizeCNPJ strips formatting and returns the digits-only CNPJ. The
// second return reports whether the result has the exact digit count for an
// institution ID.
func NormalizeCNPJ(raw string) (CNPJ, bool) {
	digits := onlyDigits(raw)
	return CNPJ(digits), len(digits) == cnpjDigits
}

func (c CPF) String() string  { return string(c) }
func (c CNPJ) String() string { return string(c) }

func onlyDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

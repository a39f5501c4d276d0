package submission

import (
	"encoding/base64"
	"fmt"
	"strings"

	"laudo/internal/domain"
	dErrors "laudo/pkg/domain-errors"
)

// Payload ceilings, measured on the base64-encoded byte length. Base64
// expands content by ~33%, so the effective decoded ceiling sits slightly
// under the nominal figure; the encoded length is what arrives on the wire
// and is what we can reject before decoding.
const (
	// MaxPublicPayloadBytes bounds the public portal endpoint (nominal 5 MB).
	MaxPublicPayloadBytes = 5 << 20
	// MaxInstitutionalPayloadBytes bounds the legacy lab API (nominal 2 KB).
	MaxInstitutionalPayloadBytes = 2 << 10
)

// validatePublic checks a public portal submission: every field required,
// recipient identified by CPF only, 5 MB ceiling.
func validatePublic(req Request) (*validated, error) {
	// Size first: reject oversize payloads before any other work.
	if err := checkEncodedSize(len(req.FileContent), MaxPublicPayloadBytes, "5MB", bytesToMB); err != nil {
		return nil, err
	}
	if err := checkRequired(req, "cpf", req.CPF); err != nil {
		return nil, err
	}

	cpf, ok := domain.NormalizeCPF(req.CPF)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInvalidID, "CPF inválido: informe os 11 dígitos")
	}

	decoded, err := decodePayload(req.FileContent)
	if err != nil {
		return nil, err
	}

	return &validated{
		cpf:     cpf,
		docType: domain.ParseDocumentType(req.DocumentType),
		decoded: decoded,
	}, nil
}

// validateInstitutional checks a legacy lab API submission: exactly one of
// CPF or CNPJ identifies the recipient, 2 KB ceiling.
func validateInstitutional(req Request) (*validated, error) {
	if err := checkEncodedSize(len(req.FileContent), MaxInstitutionalPayloadBytes, "2KB", bytesToKB); err != nil {
		return nil, err
	}

	hasCPF := strings.TrimSpace(req.CPF) != ""
	hasCNPJ := strings.TrimSpace(req.CNPJ) != ""
	if hasCPF == hasCNPJ {
		return nil, dErrors.New(dErrors.CodeBadRequest, "informe exatamente um identificador: cpf ou cnpj")
	}
	if err := checkRequired(req, "", ""); err != nil {
		return nil, err
	}

	v := &validated{
		docType: domain.ParseDocumentType(req.DocumentType),
	}
	if hasCPF {
		cpf, ok := domain.NormalizeCPF(req.CPF)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidID, "CPF inválido: informe os 11 dígitos")
		}
		v.cpf = cpf
	} else {
		cnpj, ok := domain.NormalizeCNPJ(req.CNPJ)
		if !ok {
			return nil, dErrors.New(dErrors.CodeInvalidID, "CNPJ inválido: informe os 14 dígitos")
		}
		v.cnpj = cnpj
	}

	decoded, err := decodePayload(req.FileContent)
	if err != nil {
		return nil, err
	}
	v.decoded = decoded
	return v, nil
}

// checkRequired validates the fields both endpoints demand, plus one
// endpoint-specific identifier when given.
func checkRequired(req Request, idName, idValue string) error {
	var missing []string
	appendIf := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	appendIf("email", req.Email)
	appendIf("doctorName", req.DoctorName)
	appendIf("examDate", req.ExamDate)
	appendIf("documento", req.Protocol)
	appendIf("fileName", req.FileName)
	appendIf("fileContent", req.FileContent)
	if idName != "" {
		appendIf(idName, idValue)
	}
	if len(missing) > 0 {
		return dErrors.Newf(dErrors.CodeBadRequest,
			"campos obrigatórios ausentes: %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkEncodedSize(encodedLen, limit int, limitLabel string, humanize func(int) string) error {
	if encodedLen > limit {
		return dErrors.Newf(dErrors.CodePayloadTooLarge,
			"Arquivo muito grande. Máximo: %s, recebido: %s", limitLabel, humanize(encodedLen))
	}
	return nil
}

func decodePayload(content string) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeBadEncoding, "conteúdo do arquivo não é um base64 válido")
	}
	return decoded, nil
}

func bytesToMB(n int) string {
	return fmt.Sprintf("%.2fMB", float64(n)/(1<<20))
}

func bytesToKB(n int) string {
	return fmt.Sprintf("%.2fKB", float64(n)/(1<<10))
}

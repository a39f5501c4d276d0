package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laudo/internal/audit"
	auditmem "laudo/internal/audit/store/memory"
	"laudo/internal/directory"
	"laudo/internal/domain"
	"laudo/internal/report"
)

func seedRecord(t *testing.T, store *auditmem.Store, protocol, fileName string, createdAt time.Time) {
	t.Helper()
	err := store.Append(context.Background(), audit.Record{
		ID:           uuid.New(),
		Origin:       audit.OriginPublicPortal,
		Protocol:     protocol,
		FileName:     fileName,
		RecipientCPF: "52998224725",
		DocumentType: domain.DocumentTypeResult,
		Status:       audit.StatusSuccess,
		CreatedAt:    createdAt,
	})
	require.NoError(t, err)
}

func TestListDocumentsDedupsByProtocol(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seedRecord(t, audits, "LAB-001", "original.pdf", base)
	seedRecord(t, audits, "LAB-001", "reenvio.pdf", base.Add(time.Hour))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)

	require.Equal(t, 1, listing.Total)
	// The earliest record for a protocol defines the document.
	assert.Equal(t, "original.pdf", listing.Documents[0].FileName)
}

func TestListDocumentsProtocollessRecordsStayDistinct(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seedRecord(t, audits, "", "avulso-1.pdf", base)
	seedRecord(t, audits, "", "avulso-2.pdf", base.Add(time.Minute))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
}

func TestListDocumentsAuditSuppressesLegacy(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seedRecord(t, audits, "LAB-001", "trilha.pdf", base)

	require.NoError(t, reports.Create(context.Background(), &report.Report{
		ID:        uuid.NewString(),
		Protocol:  "LAB-001",
		FileName:  "legado.pdf",
		CreatedAt: base.Add(-24 * time.Hour),
	}))
	require.NoError(t, reports.Create(context.Background(), &report.Report{
		ID:              uuid.NewString(),
		Protocol:        "LEG-900",
		FileName:        "antigo.pdf",
		SenderCNPJ:      "12345678000195",
		InstitutionName: "Laboratório Central",
		CreatedAt:       base.Add(-48 * time.Hour),
	}))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)

	require.Equal(t, 2, listing.Total)
	byProtocol := map[string]domain.Document{}
	for _, d := range listing.Documents {
		byProtocol[d.Protocol] = d
	}
	assert.Equal(t, "trilha.pdf", byProtocol["LAB-001"].FileName)
	assert.Equal(t, "antigo.pdf", byProtocol["LEG-900"].FileName)
	assert.Equal(t, "Laboratório Central", byProtocol["LEG-900"].InstitutionName)
}

func TestListDocumentsResolvesInstitutionNameFromCNPJMap(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	// Older row carries the denormalized name, newer one does not.
	require.NoError(t, reports.Create(context.Background(), &report.Report{
		ID:              uuid.NewString(),
		Protocol:        "LEG-1",
		SenderCNPJ:      "12345678000195",
		InstitutionName: "Laboratório Central",
		CreatedAt:       base,
	}))
	require.NoError(t, reports.Create(context.Background(), &report.Report{
		ID:         uuid.NewString(),
		Protocol:   "LEG-2",
		SenderCNPJ: "12345678000195",
		CreatedAt:  base.Add(time.Hour),
	}))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)
	require.Equal(t, 2, listing.Total)
	for _, d := range listing.Documents {
		assert.Equal(t, "Laboratório Central", d.InstitutionName, d.Protocol)
	}
}

func TestListDocumentsFallsBackToDirectory(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()
	dir.AddInstitution(directory.Institution{
		ID:   "inst-1",
		Name: "Clínica Horizonte",
		CNPJ: "12345678000195",
	})

	require.NoError(t, reports.Create(context.Background(), &report.Report{
		ID:         uuid.NewString(),
		Protocol:   "LEG-7",
		SenderCNPJ: "12345678000195",
		CreatedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "Clínica Horizonte", listing.Documents[0].InstitutionName)
}

func TestListDocumentsMostRecentFirst(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seedRecord(t, audits, "A", "a.pdf", base)
	seedRecord(t, audits, "C", "c.pdf", base.Add(2*time.Hour))
	seedRecord(t, audits, "B", "b.pdf", base.Add(time.Hour))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{})
	require.NoError(t, err)
	require.Equal(t, 3, listing.Total)
	assert.Equal(t, "C", listing.Documents[0].Protocol)
	assert.Equal(t, "B", listing.Documents[1].Protocol)
	assert.Equal(t, "A", listing.Documents[2].Protocol)
}

func TestListDocumentsScopedToInstitution(t *testing.T) {
	audits := auditmem.New()
	reports := report.NewMemory()
	dir := directory.NewMemory()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, audits.Append(context.Background(), audit.Record{
		ID:         uuid.New(),
		Origin:     audit.OriginExternalAPI,
		Protocol:   "MINE-1",
		SenderCNPJ: "12345678000195",
		Status:     audit.StatusSuccess,
		CreatedAt:  base,
	}))
	require.NoError(t, audits.Append(context.Background(), audit.Record{
		ID:         uuid.New(),
		Origin:     audit.OriginExternalAPI,
		Protocol:   "THEIRS-1",
		SenderCNPJ: "99888777000166",
		Status:     audit.StatusSuccess,
		CreatedAt:  base,
	}))

	svc, err := New(audits, reports, dir)
	require.NoError(t, err)

	listing, err := svc.ListDocuments(context.Background(), Query{SenderCNPJ: "12345678000195"})
	require.NoError(t, err)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "MINE-1", listing.Documents[0].Protocol)
}

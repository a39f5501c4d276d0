package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laudo/internal/aggregate"
	"laudo/internal/audit"
	auditmem "laudo/internal/audit/store/memory"
	"laudo/internal/directory"
	jwttoken "laudo/internal/jwt_token"
	"laudo/internal/platform/logger"
	"laudo/internal/platform/middleware"
	"laudo/internal/report"
)

const signingKey = "test-signing-key"

func newRouter(t *testing.T) (chi.Router, *auditmem.Store, *jwttoken.JWTService) {
	t.Helper()

	audits := auditmem.New()
	svc, err := aggregate.New(audits, report.NewMemory(), directory.NewMemory())
	require.NoError(t, err)

	log := logger.New()
	jwtSvc := jwttoken.NewJWTService(signingKey, "laudo", "laudo-portal")
	auth := middleware.RequireAuth(jwtSvc, log)

	h := New(svc, auth, log)
	r := chi.NewRouter()
	h.Register(r)
	return r, audits, jwtSvc
}

func seed(t *testing.T, audits *auditmem.Store, protocol, cnpj string) {
	t.Helper()
	require.NoError(t, audits.Append(context.Background(), audit.Record{
		ID:         uuid.New(),
		Origin:     audit.OriginExternalAPI,
		Protocol:   protocol,
		SenderCNPJ: cnpj,
		Status:     audit.StatusSuccess,
		CreatedAt:  time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC),
	}))
}

func get(t *testing.T, r chi.Router, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeListing(t *testing.T, rr *httptest.ResponseRecorder) aggregate.Listing {
	t.Helper()
	var listing aggregate.Listing
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listing))
	return listing
}

func TestListRequiresToken(t *testing.T) {
	r, _, _ := newRouter(t)
	rr := get(t, r, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListRejectsExpiredToken(t *testing.T) {
	r, _, jwtSvc := newRouter(t)
	token, err := jwtSvc.GenerateAccessToken("admin-1", jwttoken.RoleAdmin, "", -time.Minute)
	require.NoError(t, err)

	rr := get(t, r, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminSeesAllDocuments(t *testing.T) {
	r, audits, jwtSvc := newRouter(t)
	seed(t, audits, "A-1", "12345678000195")
	seed(t, audits, "B-1", "99888777000166")

	token, err := jwtSvc.GenerateAccessToken("admin-1", jwttoken.RoleAdmin, "", time.Hour)
	require.NoError(t, err)

	rr := get(t, r, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, decodeListing(t, rr).Total)
}

func TestInstitutionScopedToOwnCNPJ(t *testing.T) {
	r, audits, jwtSvc := newRouter(t)
	seed(t, audits, "A-1", "12345678000195")
	seed(t, audits, "B-1", "99888777000166")

	token, err := jwtSvc.GenerateAccessToken("inst-1", jwttoken.RoleInstitution, "12345678000195", time.Hour)
	require.NoError(t, err)

	rr := get(t, r, token)
	require.Equal(t, http.StatusOK, rr.Code)
	listing := decodeListing(t, rr)
	require.Equal(t, 1, listing.Total)
	assert.Equal(t, "A-1", listing.Documents[0].Protocol)
}

func TestInstitutionTokenWithoutCNPJForbidden(t *testing.T) {
	r, _, jwtSvc := newRouter(t)
	token, err := jwtSvc.GenerateAccessToken("inst-1", jwttoken.RoleInstitution, "", time.Hour)
	require.NoError(t, err)

	rr := get(t, r, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestUnknownRoleForbidden(t *testing.T) {
	r, _, jwtSvc := newRouter(t)
	token, err := jwtSvc.GenerateAccessToken("mystery-1", jwttoken.Role("patient"), "", time.Hour)
	require.NoError(t, err)

	rr := get(t, r, token)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

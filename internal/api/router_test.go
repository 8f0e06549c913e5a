package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/teamroster/internal/audit"
	"github.com/nikhilbhutani/teamroster/internal/auth"
	"github.com/nikhilbhutani/teamroster/internal/config"
	"github.com/nikhilbhutani/teamroster/internal/directory"
	"github.com/nikhilbhutani/teamroster/internal/identity"
	"github.com/nikhilbhutani/teamroster/internal/invitation"
	"github.com/nikhilbhutani/teamroster/internal/membership"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/notify"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

const (
	jwtSecret  = "router-test-secret"
	serviceKey = "router-test-service-key"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T, idents ...models.Identity) *testServer {
	t.Helper()
	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
		Auth:   config.AuthConfig{JWTSecret: jwtSecret, ServiceKey: serviceKey, ServiceKeyHeader: "X-Service-Key"},
	}

	reg := tenant.NewMemoryRegistry()
	dir := identity.NewMemoryDirectory(idents...)
	store := membership.NewMemoryStore(membership.WithContactResolver(dir.ResolveContact))
	auditSvc := audit.NewService(nil)
	wf := invitation.NewWorkflow(store, reg, dir, notify.LogSender{}, auditSvc, "https://app.example.com")

	svc := Services{
		Workflow:  wf,
		Roster:    directory.NewAssembler(nil, reg, store, dir),
		Companies: reg,
		Audit:     auditSvc,
	}
	return &testServer{t: t, handler: NewRouter(nil, nil, cfg, svc).Setup()}
}

func bearer(t *testing.T, sub uuid.UUID) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Sub:              sub.String(),
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) do(method, path string, actor *uuid.UUID, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set("Authorization", bearer(s.t, *actor))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

type mutationBody struct {
	Membership    models.Membership `json:"membership"`
	Removed       bool              `json:"removed"`
	Roster        *directory.Roster `json:"roster"`
	Warning       string            `json:"warning"`
	RosterWarning string            `json:"roster_warning"`
}

type auditBody struct {
	AuditLogs []models.AuditLog `json:"audit_logs"`
	Count     int               `json:"count"`
}

type errBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestMembershipLifecycleOverHTTP(t *testing.T) {
	founder, alice, outsider := uuid.New(), uuid.New(), uuid.New()
	srv := newTestServer(t,
		models.Identity{SubjectID: founder, DisplayName: "Olivia Owner", ContactAddress: "olivia@acme.test"},
		models.Identity{SubjectID: alice, DisplayName: "Alice Smith", ContactAddress: "alice@example.com"},
	)

	rec := srv.do(http.MethodPost, "/api/v1/companies", &founder, map[string]string{"name": "Acme"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	company := decodeBody[struct {
		Company models.Tenant `json:"company"`
	}](t, rec).Company
	base := "/api/v1/companies/" + company.ID.String()

	rec = srv.do(http.MethodGet, base+"/members", &founder, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	roster := decodeBody[directory.Roster](t, rec)
	require.Len(t, roster.Entries, 1)
	assert.Equal(t, models.RoleOwner, roster.Entries[0].Role)
	assert.True(t, roster.Entries[0].Synthesized)
	assert.Equal(t, "Olivia Owner", roster.Entries[0].DisplayName)

	rec = srv.do(http.MethodPost, base+"/invitations", &founder, map[string]string{"contact": " Alice@Example.com ", "role": "viewer"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	invited := decodeBody[mutationBody](t, rec)
	assert.Empty(t, invited.Warning)
	require.NotNil(t, invited.Roster)
	assert.Len(t, invited.Roster.Entries, 2)
	membershipID := invited.Membership.ID

	rec = srv.do(http.MethodPost, base+"/invitations", &founder, map[string]string{"contact": "alice@example.com", "role": "admin"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_invitation", decodeBody[errBody](t, rec).Code)

	rec = srv.do(http.MethodPost, base+"/invitations", &founder, map[string]string{"contact": "bob@example.com", "role": "owner"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "invalid_role", decodeBody[errBody](t, rec).Code)

	acceptPath := "/internal/v1/invitations/" + membershipID.String() + "/accept"
	rec = srv.do(http.MethodPost, acceptPath, nil, map[string]string{"subject_id": alice.String()}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = srv.do(http.MethodPost, acceptPath, nil, map[string]string{"subject_id": alice.String()}, map[string]string{"X-Service-Key": serviceKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = srv.do(http.MethodGet, base+"/members", &alice, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = srv.do(http.MethodPost, base+"/invitations", &alice, map[string]string{"contact": "carol@example.com", "role": "viewer"}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not permitted", decodeBody[errBody](t, rec).Error)
	rec = srv.do(http.MethodGet, base+"/audit", &alice, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodPatch, "/api/v1/memberships/"+membershipID.String(), &founder, map[string]string{"role": "admin"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	changed := decodeBody[mutationBody](t, rec)
	assert.Equal(t, models.RoleAdmin, changed.Membership.Role)
	require.NotNil(t, changed.Roster)
	assert.Equal(t, models.RoleOwner, changed.Roster.Entries[0].Role)

	rec = srv.do(http.MethodGet, base+"/audit", &alice, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	trail := decodeBody[auditBody](t, rec)
	assert.Equal(t, 4, trail.Count)
	require.NotEmpty(t, trail.AuditLogs)
	assert.Equal(t, audit.ActionRoleChanged, trail.AuditLogs[0].Action)

	rec = srv.do(http.MethodGet, base+"/audit?offset=-1&limit=2", &alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decodeBody[auditBody](t, rec).Count)

	rec = srv.do(http.MethodGet, base+"/audit?action="+audit.ActionInvitationCreated, &alice, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decodeBody[auditBody](t, rec).Count)

	rec = srv.do(http.MethodGet, base+"/members", &outsider, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodDelete, "/api/v1/memberships/"+membershipID.String(), &founder, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	removed := decodeBody[mutationBody](t, rec)
	assert.True(t, removed.Removed)
	require.NotNil(t, removed.Roster)
	assert.Len(t, removed.Roster.Entries, 1)

	rec = srv.do(http.MethodDelete, "/api/v1/memberships/"+membershipID.String(), &founder, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeBody[mutationBody](t, rec).Removed)
}

func TestRequestErrors(t *testing.T) {
	founder := uuid.New()
	srv := newTestServer(t)

	rec := srv.do(http.MethodGet, "/api/v1/companies/"+uuid.NewString()+"/members", nil, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/companies/"+uuid.NewString()+"/members", &founder, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "company_not_found", decodeBody[errBody](t, rec).Code)

	rec = srv.do(http.MethodGet, "/api/v1/companies/not-a-uuid/members", &founder, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/companies", &founder, map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPatch, "/api/v1/memberships/"+uuid.NewString(), &founder, map[string]string{"role": "admin"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[errBody](t, rec).Code)

	rec = srv.do(http.MethodGet, "/healthz", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/readyz", nil, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "in-memory")
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/teamroster/internal/audit"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

type CompanyCreator interface {
	Create(ctx context.Context, name string, foundingUserID uuid.UUID) (*models.Tenant, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry audit.LogEntry) error
}

type CompanyHandler struct {
	companies CompanyCreator
	auditor   AuditLogger
}

func NewCompanyHandler(companies CompanyCreator, auditor AuditLogger) *CompanyHandler {
	return &CompanyHandler{companies: companies, auditor: auditor}
}

type createCompanyRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// Create registers a company with the caller as its founding user.
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())

	var req createCompanyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	t, err := h.companies.Create(r.Context(), req.Name, actorID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.auditor.Log(r.Context(), audit.LogEntry{
		TenantID:     t.ID,
		ActorID:      &actorID,
		Action:       audit.ActionCompanyCreated,
		ResourceType: "company",
		ResourceID:   &t.ID,
		Details:      map[string]interface{}{"name": t.Name},
	}); err != nil {
		slog.Error("audit write failed", "action", audit.ActionCompanyCreated, "tenant_id", t.ID, "error", err)
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"company": t})
}

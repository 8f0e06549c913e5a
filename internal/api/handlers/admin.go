package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/teamroster/internal/audit"
	"github.com/nikhilbhutani/teamroster/internal/auth"
	"github.com/nikhilbhutani/teamroster/internal/models"
	"github.com/nikhilbhutani/teamroster/internal/tenant"
)

type AuditReader interface {
	GetAuditLogs(ctx context.Context, tenantID uuid.UUID, q audit.AuditQuery) ([]models.AuditLog, error)
}

type AdminHandler struct {
	wf       Workflow
	auditSvc AuditReader
}

func NewAdminHandler(wf Workflow, auditSvc AuditReader) *AdminHandler {
	return &AdminHandler{wf: wf, auditSvc: auditSvc}
}

func (h *AdminHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	actorID, _ := tenant.ActorFromContext(r.Context())
	tenantID, err := uuidParam(r, "tenantID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.wf.Authorize(r.Context(), tenantID, actorID, auth.ActionReadAudit); err != nil {
		writeError(w, r, err)
		return
	}

	q := audit.AuditQuery{
		Action: r.URL.Query().Get("action"),
	}

	q.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	q.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.StartDate = &t
		}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err == nil {
			q.EndDate = &t
		}
	}

	logs, err := h.auditSvc.GetAuditLogs(r.Context(), tenantID, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"audit_logs": logs, "count": len(logs)})
}

package handlers

import (
	"net/http"

	"github.com/google/uuid"
)

// InvitationHandler receives invitation outcomes from the identity flow. It is
// mounted behind the service-key middleware, not the user JWT.
type InvitationHandler struct {
	wf Workflow
}

func NewInvitationHandler(wf Workflow) *InvitationHandler {
	return &InvitationHandler{wf: wf}
}

type acceptRequest struct {
	SubjectID string `json:"subject_id" validate:"required,uuid"`
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	membershipID, err := uuidParam(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req acceptRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.wf.Accept(r.Context(), membershipID, uuid.MustParse(req.SubjectID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"membership": m})
}

func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	membershipID, err := uuidParam(r, "membershipID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	m, err := h.wf.Decline(r.Context(), membershipID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"membership": m})
}

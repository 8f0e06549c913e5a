package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/nikhilbhutani/teamroster/internal/apperrors"
)

type errorMapping struct {
	sentinel error
	status   int
	code     string
}

// Order matters only where one sentinel could wrap another.
var errorMappings = []errorMapping{
	{apperrors.ErrOwnerRole, http.StatusForbidden, "owner_immutable"},
	{apperrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperrors.ErrDuplicateInvitation, http.StatusConflict, "duplicate_invitation"},
	{apperrors.ErrInvalidRole, http.StatusUnprocessableEntity, "invalid_role"},
	{apperrors.ErrInvalidContact, http.StatusUnprocessableEntity, "invalid_contact"},
	{apperrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperrors.ErrTenantNotFound, http.StatusNotFound, "company_not_found"},
	{apperrors.ErrInvalidState, http.StatusConflict, "invalid_state"},
	{apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{apperrors.ErrDirectoryUnavailable, http.StatusServiceUnavailable, "directory_unavailable"},
}

// writeError renders err as {"error", "code"}. Known failures expose only the
// sentinel's message; anything else is logged and reported as internal.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.sentinel) {
			if m.status >= http.StatusInternalServerError {
				slog.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
			}
			writeJSON(w, m.status, errorBody{Error: m.sentinel.Error(), Code: m.code})
			return
		}
	}
	slog.Error("unhandled error", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error", Code: "internal"})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

var validate = validator.New()

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ErrInvalidInput
	}
	if err := validate.Struct(dst); err != nil {
		return apperrors.ErrInvalidInput
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperrors.ErrInvalidInput
	}
	return id, nil
}

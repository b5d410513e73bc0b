package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/httpx"
	"github.com/aussiebroadwan/dide/pkg/slogx"
)

// TOTPHandler manages supervisor TOTP secrets.
type TOTPHandler struct {
	SecretService *service.SecretService
}

// HandleSet handles PUT /v1/admin/accounts/{id}/totp
//
// Responds 204 on success, or one of invalid_base32 (400),
// duplicate_secret (409) and invalid_account_role (422).
func (h *TOTPHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req authsdk.SetTOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("invalid JSON in request body").WriteError(w)
		return
	}

	if err := h.SecretService.SetSecret(r.Context(), id, req.Base32); err != nil {
		writeServiceError(w, r, err)
		return
	}

	logActor(r, "totp secret set", id)

	w.WriteHeader(http.StatusNoContent)
}

// HandleClear handles DELETE /v1/admin/accounts/{id}/totp
func (h *TOTPHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := h.SecretService.ClearSecret(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	logActor(r, "totp secret cleared", id)

	w.WriteHeader(http.StatusNoContent)
}

// logActor records which admin changed accountID.
func logActor(r *http.Request, msg string, accountID int64) {
	actor := ""
	if claims, ok := httpx.ClaimsFromContext(r.Context()); ok {
		actor = claims.Username
	}
	slogx.FromContext(r.Context()).Info(msg, "account_id", accountID, "actor", actor)
}

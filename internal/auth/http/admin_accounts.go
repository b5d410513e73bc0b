package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/httpx"
)

// AccountsHandler handles account administration under /v1/admin/accounts.
type AccountsHandler struct {
	AccountService *service.AccountService
}

// HandleCreate handles POST /v1/admin/accounts
func (h *AccountsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("invalid JSON in request body").WriteError(w)
		return
	}

	role, ok := domain.ParseRole(req.Role)
	if !ok {
		authsdk.ErrInvalidRole.WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	acct, err := h.AccountService.CreateAccount(r.Context(), domain.NewAccount{
		Username:        req.Username,
		Password:        req.Password,
		Role:            role,
		TwoFactorSecret: req.Base32,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, accountResponse(acct))
}

// HandleGet handles GET /v1/admin/accounts/{id}
func (h *AccountsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	acct, err := h.AccountService.GetAccount(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, accountResponse(acct))
}

// HandleChangeRole handles PUT /v1/admin/accounts/{id}/role
func (h *AccountsHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req authsdk.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("invalid JSON in request body").WriteError(w)
		return
	}

	role, valid := domain.ParseRole(req.Role)
	if !valid {
		authsdk.ErrInvalidRole.WriteError(w)
		return
	}

	if err := h.AccountService.ChangeRole(r.Context(), id, role); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete handles DELETE /v1/admin/accounts/{id}
func (h *AccountsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if claims, ok := httpx.ClaimsFromContext(r.Context()); ok && claims.Subject == strconv.FormatInt(id, 10) {
		authsdk.ErrInvalidRequest.WithDescription("cannot delete the account you are signed in with").WriteError(w)
		return
	}

	if err := h.AccountService.DeleteAccount(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// accountID parses the {id} path value, writing a 400 when it is not a
// positive integer.
func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		authsdk.ErrInvalidRequest.WithDescription("account id must be a positive integer").WriteError(w)
		return 0, false
	}
	return id, true
}

func accountResponse(a domain.Account) authsdk.AccountResponse {
	return authsdk.AccountResponse{
		ID:               a.ID,
		Username:         a.Username,
		Role:             string(a.Role),
		TwoFactorEnabled: a.TwoFactorEnabled,
		SecretState:      a.SecretState().String(),
	}
}

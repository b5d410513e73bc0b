package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/httpx"
)

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	LoginService *service.LoginService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("invalid JSON in request body").WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		authsdk.ErrInvalidRequest.WithDescription("username and password are required").WriteError(w)
		return
	}

	res, err := h.LoginService.Login(r.Context(), req.Username, req.Password, req.TOTP)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   res.ExpiresIn,
		Role:        string(res.Account.Role),
		HomePath:    res.Account.Role.HomePath(),
	})
}

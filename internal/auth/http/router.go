package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/domain"
	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/aussiebroadwan/dide/internal/auth/service"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/httpx"
	"github.com/aussiebroadwan/dide/pkg/jwtx"
	"github.com/aussiebroadwan/dide/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router serves the DiDe HTTP API. Services are assigned after NewRouter
// and before ApplyRoutes.
type Router struct {
	Mux     *http.ServeMux
	handler http.Handler

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	channel        notify.Channel
	LoginService   *service.LoginService
	AccountService *service.AccountService
	SecretService  *service.SecretService
}

func NewRouter(verifier jwtx.Verifier, buildVersion string, st store.Store, ch notify.Channel, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		channel:      ch,
		logger:       logger,
	}

	// Routes registered later are still reached: the chain wraps the mux
	// pointer.
	r.handler = httpx.Chain(r.Mux, slogx.HTTPMiddleware(logger))
	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAccounts()
	r.registerTOTP()
	r.registerSystem()
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// admin wraps h with authentication, the given scope and a per-user limit.
func (r *Router) admin(h http.HandlerFunc, scope string) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyScope(scope),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
}

func (r *Router) registerAuth() {
	h := &LoginHandler{LoginService: r.LoginService}

	// Keyed on IP and username so one client cannot spray codes at an account.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(h,
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)
}

func (r *Router) registerAccounts() {
	h := &AccountsHandler{AccountService: r.AccountService}

	r.Mux.Handle("POST /v1/admin/accounts", r.admin(h.HandleCreate, domain.ScopeAdminWrite))
	r.Mux.Handle("GET /v1/admin/accounts/{id}", r.admin(h.HandleGet, domain.ScopeAdminRead))
	r.Mux.Handle("DELETE /v1/admin/accounts/{id}", r.admin(h.HandleDelete, domain.ScopeAdminWrite))
	r.Mux.Handle("PUT /v1/admin/accounts/{id}/role", r.admin(h.HandleChangeRole, domain.ScopeAdminWrite))
}

func (r *Router) registerTOTP() {
	h := &TOTPHandler{SecretService: r.SecretService}

	r.Mux.Handle("PUT /v1/admin/accounts/{id}/totp", r.admin(h.HandleSet, domain.ScopeAdminWrite))
	r.Mux.Handle("DELETE /v1/admin/accounts/{id}/totp", r.admin(h.HandleClear, domain.ScopeAdminWrite))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.channel),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}

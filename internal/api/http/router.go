package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jobassist/jobassist/internal/api/service"
	"github.com/jobassist/jobassist/internal/api/store"
	"github.com/jobassist/jobassist/pkg/httpx"
	"github.com/jobassist/jobassist/pkg/jwtx"
	"github.com/jobassist/jobassist/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jobassist/jobassist/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// uploadOverhead leaves room for multipart framing around the file.
const uploadOverhead = 64 << 10

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	Sessions    *service.SessionManager
	Credentials *service.CredentialService
	Federated   *service.FederatedLoginService // nil when google login is not configured
	CVs         *service.CVService

	Cookies        CookieConfig
	Limits         httpx.RateLimitProfiles
	RequestTimeout time.Duration
	MaxUploadBytes int64

	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       httpx.DefaultRateLimitProfiles(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	if r.RequestTimeout > 0 {
		r.middlewares = append(r.middlewares, httpx.Timeout(r.RequestTimeout))
	}

	r.registerAuth()
	r.registerGoogle()
	r.registerUsers()
	r.registerCVs()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			JobAssist API
//	@version		0.1.0
//	@description	Accounts, device-bound sessions and CV storage for JobAssist.
//	@description
//	@description				Access tokens are short-lived HS256 JWTs sent as bearer tokens.
//	@description				Refresh tokens live in an HttpOnly cookie and rotate on every use.
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Sessions:    r.Sessions,
		Credentials: r.Credentials,
		Cookies:     r.Cookies,
	}

	// POST /auth/token - strict rate limit by IP + username to slow down guessing
	r.Mux.Handle("POST /auth/token",
		httpx.Chain(http.HandlerFunc(h.HandleToken),
			httpx.RateLimitByIPAndFormField(r.Limits.Strict, "username"),
		),
	)

	r.Mux.Handle("POST /auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("POST /auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)

	securedLogoutAll := httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(r.Limits.Moderate),
	)
	securedSessions := httpx.Chain(http.HandlerFunc(h.HandleSessions),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(r.Limits.Lenient),
	)
	r.Mux.Handle("POST /auth/logout/all", securedLogoutAll)
	r.Mux.Handle("GET /auth/sessions", securedSessions)

	// Password recovery endpoints mail people and consume tokens: strict by IP.
	r.Mux.Handle("POST /auth/forgot_password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /auth/reset_password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)

	// Change password re-verifies the old one, so it gets the strict profile per user.
	r.Mux.Handle("POST /auth/change_password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Strict),
		),
	)
}

func (r *Router) registerGoogle() {
	h := &GoogleHandler{Federated: r.Federated, Cookies: r.Cookies}

	r.Mux.Handle("GET /auth/google/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(r.Limits.Moderate),
		),
	)
	r.Mux.Handle("GET /auth/google/callback",
		httpx.Chain(http.HandlerFunc(h.HandleCallback),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Credentials: r.Credentials}

	register := httpx.Chain(http.HandlerFunc(h.HandleRegister),
		httpx.RateLimitByIP(r.Limits.Strict),
	)
	r.Mux.Handle("POST /users", register)
	r.Mux.Handle("POST /users/{$}", register)

	r.Mux.Handle("GET /users/activate",
		httpx.Chain(http.HandlerFunc(h.HandleActivate),
			httpx.RateLimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("GET /users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Lenient),
		),
	)
}

func (r *Router) registerCVs() {
	h := &CVHandler{CVs: r.CVs, Credentials: r.Credentials}

	maxUpload := r.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = service.DefaultMaxUploadBytes
	}

	// Upload hits a paid model: moderate per user, body capped before parsing.
	r.Mux.Handle("POST /cvs/upload",
		httpx.Chain(http.HandlerFunc(h.HandleUpload),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Moderate),
			httpx.MaxBytes(maxUpload+uploadOverhead),
		),
	)
	r.Mux.Handle("POST /cvs/manual",
		httpx.Chain(http.HandlerFunc(h.HandleManual),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Lenient),
			httpx.MaxBytes(1<<20),
		),
	)
	r.Mux.Handle("GET /cvs/me/latest",
		httpx.Chain(http.HandlerFunc(h.HandleLatest),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /cvs/me",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(r.Limits.Lenient),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /{$}",
		httpx.Chain(RootHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(r.Limits.Lenient),
		),
	)

	metrics := promhttp.Handler()
	if r.Gatherer != nil {
		metrics = promhttp.HandlerFor(r.Gatherer, promhttp.HandlerOpts{})
	}
	r.Mux.Handle("GET /metrics", metrics)
}

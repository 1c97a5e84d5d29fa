package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/resolveai/api/internal/auth"
	"github.com/resolveai/api/internal/cases"
	"github.com/resolveai/api/internal/config"
	"github.com/resolveai/api/internal/employees"
	httpmiddleware "github.com/resolveai/api/internal/http/middleware"
	"github.com/resolveai/api/internal/repo"
	"github.com/resolveai/api/internal/service"
	"github.com/resolveai/api/internal/storage"
)

// Handler concentra as dependências dos endpoints transversais
// (autenticação, sessão do painel, assinatura de upload, health).
type Handler struct {
	cfg           *config.Config
	pool          *pgxpool.Pool
	redis         *redis.Client
	authService   *service.AuthService
	signer        storage.Signer
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	devCookies    bool
}

// NewRouter monta as dependências e devolve o roteador configurado.
func NewRouter(cfg *config.Config, pool *pgxpool.Pool, redisClient *redis.Client) http.Handler {
	devCookies := false
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			devCookies = true
			break
		}
	}

	queries := repo.New(pool)
	employeeRepo := employees.NewRepository(pool)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(queries, employeeRepo, redisClient, jwtManager, cfg.JWTRefreshTTL, cfg.AdminSessionTTL)

	caseHandler := cases.NewHandler(cases.NewService(cases.NewRepository(pool)), authService)
	employeeHandler := employees.NewHandler(employees.NewService(employeeRepo), authService)

	var signer storage.Signer = storage.NoopSigner{}
	if cfg.Cloudinary.Enabled() {
		signer = storage.NewCloudinarySigner(cfg.Cloudinary)
	}

	h := &Handler{
		cfg:           cfg,
		pool:          pool,
		redis:         redisClient,
		authService:   authService,
		signer:        signer,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		devCookies:    devCookies,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/health", h.Health)
		public.Get("/ready", h.Ready)

		public.Route("/auth", func(authRouter chi.Router) {
			authRouter.Post("/login", h.Login)
			authRouter.Post("/register", h.Register)
			authRouter.Post("/refresh", h.Refresh)
		})

		public.Route("/admin/auth", func(adminAuth chi.Router) {
			adminAuth.Post("/login", h.AdminLogin)
			adminAuth.Post("/logout", h.AdminLogout)
		})
	})

	// navegação de navegador do painel: cookie em vez de bearer
	r.Group(func(panel chi.Router) {
		panel.Use(httpmiddleware.AdminSession(authService))
		panel.Get("/admin", h.AdminHome)
		panel.Get("/admin/session", h.AdminSessionInfo)
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.Auth(jwtManager))
		private.Use(httpmiddleware.SubjectRateLimit(h.authLimiter))

		private.Get("/auth/me", h.Me)
		private.Get("/uploads/signature", h.UploadSignature)

		cases.Mount(private, caseHandler)
		employees.Mount(private, employeeHandler)
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida conexões com Postgres e Redis.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.pool.Ping(ctx) != nil || h.redis.Ping(ctx).Err() != nil {
		WriteError(w, http.StatusServiceUnavailable, "dependências indisponíveis")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

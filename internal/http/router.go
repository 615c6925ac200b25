package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/cache"
	"github.com/resguardoti/activos/internal/config"
	httpmiddleware "github.com/resguardoti/activos/internal/http/middleware"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/rotacion"
	"github.com/resguardoti/activos/internal/secrets"
	"github.com/resguardoti/activos/internal/service"
)

// RouterDeps agrupa las dependencias ya construidas del router.
type RouterDeps struct {
	Config      *config.Config
	Queries     *repo.Queries
	AuthService *service.AuthService
	Usuarios    *service.UsuarioService
	Cipher      *secrets.Cipher
	Rotacion    *rotacion.Service
	Auditor     *audit.Registrador
	Cache       *cache.Cache
}

// NewRouter devuelve el router configurado con toda la superficie REST.
func NewRouter(deps RouterDeps) http.Handler {
	authHandler := NewAuthHandler(deps.AuthService, deps.Auditor)
	usuarioHandler := NewUsuarioHandler(deps.Usuarios, deps.Auditor)
	credWebHandler := NewCredencialWebHandler(deps.Queries, deps.Cipher, deps.Auditor, deps.Cache)
	wifiHandler := NewWifiHandler(deps.Queries, deps.Cipher, deps.Auditor, deps.Cache)
	adminHandler := NewAdminHandler(deps.Queries, deps.Rotacion, deps.Auditor)

	publicLimiter := httpmiddleware.NewRateLimiter(
		deps.Config.RateLimitPublic.RequestsPerSecond, deps.Config.RateLimitPublic.Burst)
	authLimiter := httpmiddleware.NewRateLimiter(
		deps.Config.RateLimitAuth.RequestsPerSecond, deps.Config.RateLimitAuth.Burst)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging)
	r.Use(httpmiddleware.Metrics)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(deps.Config.AllowOrigins))
	r.Use(httpmiddleware.Autenticar(deps.AuthService.Tokens(), deps.Queries))

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(publicLimiter))

		public.Get("/health", Health)
		public.Method(http.MethodGet, "/metrics", promhttp.Handler())

		public.Route("/auth", func(a chi.Router) {
			a.Post("/login", authHandler.Login)
			a.Post("/refresh", authHandler.Refresh)
		})
	})

	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.UserRateLimit(authLimiter))

		private.Post("/auth/logout", authHandler.Logout)
		private.Post("/auth/logout-all", authHandler.LogoutAll)

		private.Route("/usuarios", func(u chi.Router) {
			u.With(httpmiddleware.RequireRolesOrBootstrap(deps.Queries, auth.RolAdmin)).
				Post("/", usuarioHandler.Crear)
			u.With(httpmiddleware.RequireRoles(auth.RolAdmin)).Group(func(g chi.Router) {
				g.Get("/", usuarioHandler.Listar)
				g.Get("/{id}", usuarioHandler.Obtener)
				g.Put("/{id}", usuarioHandler.Actualizar)
				g.Delete("/{id}", usuarioHandler.Desactivar)
			})
		})

		private.Route("/credenciales-web", func(c chi.Router) {
			c.Get("/", credWebHandler.Listar)
			c.Get("/{id}", credWebHandler.Obtener)
			c.With(httpmiddleware.RequireRoles(auth.RolAdmin, auth.RolSupervisor)).
				Get("/{id}/password", credWebHandler.RevelarSecreto)
			c.With(httpmiddleware.RequireRoles(auth.RolAdmin, auth.RolGerente)).Group(func(g chi.Router) {
				g.Post("/", credWebHandler.Crear)
				g.Put("/{id}", credWebHandler.Actualizar)
				g.Delete("/{id}", credWebHandler.Eliminar)
			})
		})

		private.Route("/wifi-credenciales", func(c chi.Router) {
			c.Get("/", wifiHandler.Listar)
			c.Get("/{id}", wifiHandler.Obtener)
			c.With(httpmiddleware.RequireRoles(auth.RolAdmin, auth.RolSupervisor)).
				Get("/{id}/password", wifiHandler.RevelarSecreto)
			c.With(httpmiddleware.RequireRoles(auth.RolAdmin, auth.RolGerente)).Group(func(g chi.Router) {
				g.Post("/", wifiHandler.Crear)
				g.Put("/{id}", wifiHandler.Actualizar)
				g.Delete("/{id}", wifiHandler.Eliminar)
			})
		})

		private.With(httpmiddleware.RequireRoles(auth.RolAdmin)).
			Get("/audit-logs", adminHandler.ListarBitacora)

		private.With(httpmiddleware.RequireRoles(auth.RolAdmin)).
			Post("/admin/rotate-credenciales", adminHandler.RotarCredenciales)
	})

	return r
}

// Health responde el chequeo de vida.
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

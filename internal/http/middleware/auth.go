package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/repo"
)

type contextKey string

// ContextKeyClaims guarda los claims del token de acceso validado.
const ContextKeyClaims contextKey = "claims"

// SesionStore es lo que el gate necesita de la capa de datos.
type SesionStore interface {
	GetSesionByID(ctx context.Context, id string) (repo.SesionConUsuario, error)
	CountUsuarios(ctx context.Context) (int64, error)
}

type rutaPublica struct {
	method string
	path   string
}

var rutasPublicas = []rutaPublica{
	{http.MethodGet, "/health"},
	{http.MethodGet, "/metrics"},
	{http.MethodPost, "/auth/login"},
	{http.MethodPost, "/auth/refresh"},
}

func esRutaPublica(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	for _, ruta := range rutasPublicas {
		if ruta.method == r.Method && ruta.path == r.URL.Path {
			return true
		}
	}
	return false
}

// puedeBootstrap permite POST /usuarios sin token mientras la tabla de
// usuarios esté vacía. La excepción se cierra sola al existir una cuenta.
func puedeBootstrap(r *http.Request, store SesionStore) bool {
	if r.Method != http.MethodPost {
		return false
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path != "/usuarios" {
		return false
	}
	count, err := store.CountUsuarios(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("auth: no se pudo evaluar bootstrap")
		return false
	}
	return count == 0
}

// Autenticar valida el bearer token y cruza su contenido contra la sesión
// persistida: sesión viva, dueño correcto, tokenVersion vigente y cuenta
// activa. Los claims validados quedan en el contexto.
func Autenticar(tokens *auth.TokenManager, store SesionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if esRutaPublica(r) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				if puedeBootstrap(r, store) {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, http.StatusUnauthorized, "no autorizado")
				return
			}

			claims, err := tokens.VerifyAccess(parts[1])
			if err != nil {
				if puedeBootstrap(r, store) {
					next.ServeHTTP(w, r)
					return
				}
				writeAuthError(w, http.StatusUnauthorized, "token inválido")
				return
			}

			usuarioID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "token inválido")
				return
			}

			ses, err := store.GetSesionByID(r.Context(), claims.Sid)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					writeAuthError(w, http.StatusUnauthorized, "sesión inválida")
					return
				}
				writeAuthError(w, http.StatusInternalServerError, "error interno")
				return
			}

			switch {
			case ses.UsuarioID != usuarioID:
				writeAuthError(w, http.StatusUnauthorized, "sesión inválida")
			case ses.RevokedAt != nil:
				writeAuthError(w, http.StatusUnauthorized, "sesión revocada")
			case !ses.ExpiresAt.After(time.Now()):
				writeAuthError(w, http.StatusUnauthorized, "sesión expirada")
			case ses.Usuario.TokenVersion != claims.TokenVersion():
				writeAuthError(w, http.StatusUnauthorized, "token revocado")
			case !ses.Usuario.Activo:
				writeAuthError(w, http.StatusForbidden, "usuario inactivo")
			default:
				ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// GetClaims recupera los claims validados; nil si la petición no autenticó.
func GetClaims(ctx context.Context) *auth.AccessClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*auth.AccessClaims)
	return claims
}

// RequireRoles exige que el rol del token esté en la lista permitida.
func RequireRoles(roles ...auth.Rol) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims == nil {
				writeAuthError(w, http.StatusUnauthorized, "no autorizado")
				return
			}
			if !rolPermitido(claims.Rol, roles) {
				writeAuthError(w, http.StatusForbidden, "sin permisos")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRolesOrBootstrap deja pasar además cuando aplica la condición de
// bootstrap (tabla de usuarios vacía), con o sin token.
func RequireRolesOrBootstrap(store SesionStore, roles ...auth.Rol) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := GetClaims(r.Context())
			if claims != nil && rolPermitido(claims.Rol, roles) {
				next.ServeHTTP(w, r)
				return
			}
			if puedeBootstrap(r, store) {
				next.ServeHTTP(w, r)
				return
			}
			if claims == nil {
				writeAuthError(w, http.StatusUnauthorized, "no autorizado")
				return
			}
			writeAuthError(w, http.StatusForbidden, "sin permisos")
		})
	}
}

func rolPermitido(rol string, permitidos []auth.Rol) bool {
	for _, permitido := range permitidos {
		if auth.Rol(rol) == permitido {
			return true
		}
	}
	return false
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}

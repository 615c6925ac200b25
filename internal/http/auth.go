package http

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/http/middleware"
	"github.com/resguardoti/activos/internal/service"
)

// AuthHandler atiende login, refresh y revocación de sesiones.
type AuthHandler struct {
	svc     *service.AuthService
	auditor *audit.Registrador
}

// NewAuthHandler crea el handler.
func NewAuthHandler(svc *service.AuthService, auditor *audit.Registrador) *AuthHandler {
	return &AuthHandler{svc: svc, auditor: auditor}
}

type loginRequest struct {
	Email      string `json:"email"`
	Contrasena string `json:"contrasena"`
}

type tokenResponse struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	SessionID    string     `json:"sessionId"`
	Usuario      usuarioDTO `json:"usuario"`
}

// Login emite el par de tokens ante credenciales válidas.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	meta := requestMeta(r)
	result, err := h.svc.Login(r.Context(), req.Email, req.Contrasena, meta)
	if err != nil {
		h.auditor.Registrar(r.Context(), audit.Entrada{
			Accion:    audit.AccionLoginFailed,
			Metadata:  map[string]any{"email": strings.ToLower(strings.TrimSpace(req.Email))},
			IP:        meta.IP,
			UserAgent: meta.UserAgent,
		})
		switch {
		case errors.Is(err, service.ErrUsuarioInactivo):
			WriteError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, service.ErrCredencialesInvalidas):
			WriteError(w, http.StatusUnauthorized, err.Error())
		default:
			WriteError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionLoginSuccess,
		ActorID:    &result.Usuario.ID,
		TargetType: "sesion",
		TargetID:   result.SessionID,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		Usuario:      toUsuarioDTO(result.Usuario),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rota el refresh token presentado y devuelve un par nuevo.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, http.StatusBadRequest, "refreshToken requerido")
		return
	}

	meta := requestMeta(r)
	result, err := h.svc.Refresh(r.Context(), req.RefreshToken, meta)
	if err != nil {
		if errors.Is(err, service.ErrReusoDetectado) {
			h.auditor.Registrar(r.Context(), audit.Entrada{
				Accion:    audit.AccionReusoDetectado,
				IP:        meta.IP,
				UserAgent: meta.UserAgent,
			})
		}
		// Toda falla de refresh es 401: el cliente debe volver a login.
		switch {
		case errors.Is(err, service.ErrRefreshInvalido),
			errors.Is(err, service.ErrSesionNoEncontrada),
			errors.Is(err, service.ErrSesionRevocada),
			errors.Is(err, service.ErrSesionExpirada),
			errors.Is(err, service.ErrTokenRevocado),
			errors.Is(err, service.ErrReusoDetectado):
			WriteError(w, http.StatusUnauthorized, err.Error())
		default:
			WriteError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		SessionID:    result.SessionID,
		Usuario:      toUsuarioDTO(result.Usuario),
	})
}

// Logout revoca la sesión del token presentado. Idempotente.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		WriteError(w, http.StatusUnauthorized, "no autorizado")
		return
	}

	if err := h.svc.Logout(r.Context(), claims.Sid); err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	meta := requestMeta(r)
	actorID := actorIDFromClaims(claims.Subject)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionLogout,
		ActorID:    actorID,
		TargetType: "sesion",
		TargetID:   claims.Sid,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	w.WriteHeader(http.StatusNoContent)
}

// LogoutAll revoca todas las sesiones del usuario e invalida los access
// tokens vigentes vía bump de tokenVersion.
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		WriteError(w, http.StatusUnauthorized, "no autorizado")
		return
	}

	usuarioID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "token inválido")
		return
	}

	if err := h.svc.LogoutAll(r.Context(), usuarioID, true); err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:    audit.AccionLogoutAll,
		ActorID:   &usuarioID,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})

	w.WriteHeader(http.StatusNoContent)
}

func requestMeta(r *http.Request) service.RequestMeta {
	meta := service.RequestMeta{}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		meta.UserAgent = &ua
	}
	if ip := clientIP(r); ip != "" {
		meta.IP = &ip
	}
	return meta
}

func clientIP(r *http.Request) string {
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func actorIDFromClaims(subject string) *int64 {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/http/middleware"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/service"
)

// UsuarioHandler atiende el CRUD de cuentas internas.
type UsuarioHandler struct {
	svc     *service.UsuarioService
	auditor *audit.Registrador
}

// NewUsuarioHandler crea el handler.
func NewUsuarioHandler(svc *service.UsuarioService, auditor *audit.Registrador) *UsuarioHandler {
	return &UsuarioHandler{svc: svc, auditor: auditor}
}

type usuarioDTO struct {
	ID       int64     `json:"id"`
	Nombre   string    `json:"nombre"`
	Email    string    `json:"email"`
	Rol      string    `json:"rol"`
	Activo   bool      `json:"activo"`
	CreadoEn time.Time `json:"creadoEn"`
}

func toUsuarioDTO(u repo.Usuario) usuarioDTO {
	return usuarioDTO{
		ID:       u.ID,
		Nombre:   u.Nombre,
		Email:    u.Email,
		Rol:      u.Rol.String(),
		Activo:   u.Activo,
		CreadoEn: u.CreadoEn,
	}
}

type crearUsuarioRequest struct {
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Contrasena string `json:"contrasena"`
	Rol        string `json:"rol"`
}

// Crear da de alta una cuenta. Accesible sin token sólo vía bootstrap
// (tabla de usuarios vacía).
func (h *UsuarioHandler) Crear(w http.ResponseWriter, r *http.Request) {
	var req crearUsuarioRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rol, err := auth.ParseRol(req.Rol)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "rol inválido")
		return
	}

	user, err := h.svc.Crear(r.Context(), service.CrearUsuarioInput{
		Nombre:     req.Nombre,
		Email:      req.Email,
		Contrasena: req.Contrasena,
		Rol:        rol,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidacion):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repo.ErrEmailDuplicado):
			WriteError(w, http.StatusConflict, "email ya registrado")
		default:
			WriteError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionUsuarioCreate,
		ActorID:    actorID(r),
		TargetType: "usuario",
		TargetID:   strconv.FormatInt(user.ID, 10),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusCreated, toUsuarioDTO(user))
}

// Listar devuelve cuentas con filtros opcionales (?activo=, ?rol=, ?limit=).
func (h *UsuarioHandler) Listar(w http.ResponseWriter, r *http.Request) {
	filter := repo.ListUsuariosFilter{}

	if raw := r.URL.Query().Get("activo"); raw != "" {
		activo, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "activo inválido")
			return
		}
		filter.Activo = &activo
	}
	if raw := r.URL.Query().Get("rol"); raw != "" {
		rol, err := auth.ParseRol(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "rol inválido")
			return
		}
		filter.Rol = &rol
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			WriteError(w, http.StatusBadRequest, "limit inválido")
			return
		}
		filter.Limit = limit
	}

	users, err := h.svc.Listar(r.Context(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	dtos := make([]usuarioDTO, 0, len(users))
	for _, u := range users {
		dtos = append(dtos, toUsuarioDTO(u))
	}
	WriteJSON(w, http.StatusOK, dtos)
}

// Obtener devuelve una cuenta por id.
func (h *UsuarioHandler) Obtener(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	user, err := h.svc.Obtener(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "usuario no encontrado")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}
	WriteJSON(w, http.StatusOK, toUsuarioDTO(user))
}

type actualizarUsuarioRequest struct {
	Nombre     *string `json:"nombre"`
	Email      *string `json:"email"`
	Contrasena *string `json:"contrasena"`
	Rol        *string `json:"rol"`
	Activo     *bool   `json:"activo"`
}

// Actualizar aplica cambios parciales sobre la cuenta.
func (h *UsuarioHandler) Actualizar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var req actualizarUsuarioRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	input := service.ActualizarUsuarioInput{
		Nombre:     req.Nombre,
		Email:      req.Email,
		Contrasena: req.Contrasena,
		Activo:     req.Activo,
	}
	if req.Rol != nil {
		rol, err := auth.ParseRol(*req.Rol)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "rol inválido")
			return
		}
		input.Rol = &rol
	}

	user, err := h.svc.Actualizar(r.Context(), id, input)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidacion):
			WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repo.ErrNotFound):
			WriteError(w, http.StatusNotFound, "usuario no encontrado")
		case errors.Is(err, repo.ErrEmailDuplicado):
			WriteError(w, http.StatusConflict, "email ya registrado")
		default:
			WriteError(w, http.StatusInternalServerError, "error interno")
		}
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionUsuarioUpdate,
		ActorID:    actorID(r),
		TargetType: "usuario",
		TargetID:   strconv.FormatInt(id, 10),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, toUsuarioDTO(user))
}

// Desactivar marca la cuenta como inactiva. Nunca borra la fila.
func (h *UsuarioHandler) Desactivar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := h.svc.Desactivar(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "usuario no encontrado")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionUsuarioDelete,
		ActorID:    actorID(r),
		TargetType: "usuario",
		TargetID:   strconv.FormatInt(id, 10),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func actorID(r *http.Request) *int64 {
	claims := middleware.GetClaims(r.Context())
	if claims == nil {
		return nil
	}
	return actorIDFromClaims(claims.Subject)
}

package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/cache"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/secrets"
)

const cachePrefijoCredencialesWeb = "credenciales_web:"

type credencialWebStore interface {
	CreateCredencialWeb(ctx context.Context, arg repo.CreateCredencialWebParams) (repo.CredencialWeb, error)
	GetCredencialWeb(ctx context.Context, id int64) (repo.CredencialWeb, error)
	ListCredencialesWeb(ctx context.Context) ([]repo.CredencialWeb, error)
	UpdateCredencialWeb(ctx context.Context, id int64, arg repo.UpdateCredencialWebParams) (repo.CredencialWeb, error)
	DeleteCredencialWeb(ctx context.Context, id int64) error
}

// CredencialWebHandler atiende el CRUD de accesos web. El secreto nunca
// sale en listados ni lecturas normales: sólo por el endpoint de reveal,
// que deja rastro en bitácora.
type CredencialWebHandler struct {
	store   credencialWebStore
	cipher  *secrets.Cipher
	auditor *audit.Registrador
	cache   *cache.Cache
}

// NewCredencialWebHandler crea el handler.
func NewCredencialWebHandler(store credencialWebStore, cipher *secrets.Cipher, auditor *audit.Registrador, c *cache.Cache) *CredencialWebHandler {
	return &CredencialWebHandler{store: store, cipher: cipher, auditor: auditor, cache: c}
}

type credencialWebDTO struct {
	ID         int64     `json:"id"`
	Nombre     string    `json:"nombre"`
	URL        string    `json:"url"`
	Usuario    string    `json:"usuario"`
	Notas      *string   `json:"notas"`
	Activo     bool      `json:"activo"`
	KeyVersion int       `json:"keyVersion"`
	CreadoEn   time.Time `json:"creadoEn"`
}

func toCredencialWebDTO(c repo.CredencialWeb) credencialWebDTO {
	return credencialWebDTO{
		ID:         c.ID,
		Nombre:     c.Nombre,
		URL:        c.URL,
		Usuario:    c.Usuario,
		Notas:      c.Notas,
		Activo:     c.Activo,
		KeyVersion: c.PasswordKeyVersion,
		CreadoEn:   c.CreadoEn,
	}
}

type crearCredencialWebRequest struct {
	Nombre     string  `json:"nombre"`
	URL        string  `json:"url"`
	Usuario    string  `json:"usuario"`
	Contrasena string  `json:"contrasena"`
	Notas      *string `json:"notas"`
}

// Crear cifra el secreto y persiste la credencial.
func (h *CredencialWebHandler) Crear(w http.ResponseWriter, r *http.Request) {
	var req crearCredencialWebRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Nombre == "" || req.Usuario == "" {
		WriteError(w, http.StatusBadRequest, "nombre y usuario requeridos")
		return
	}

	payload, err := h.cipher.Encrypt(req.Contrasena)
	if err != nil {
		if errors.Is(err, secrets.ErrTextoVacio) {
			WriteError(w, http.StatusBadRequest, "contrasena requerida")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	cred, err := h.store.CreateCredencialWeb(r.Context(), repo.CreateCredencialWebParams{
		Nombre:   req.Nombre,
		URL:      req.URL,
		Usuario:  req.Usuario,
		Password: payload,
		Notas:    req.Notas,
		Activo:   true,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoCredencialesWeb)
	WriteJSON(w, http.StatusCreated, toCredencialWebDTO(cred))
}

// Listar devuelve todas las credenciales sin secretos. Respuesta cacheada.
func (h *CredencialWebHandler) Listar(w http.ResponseWriter, r *http.Request) {
	const cacheKey = cachePrefijoCredencialesWeb + "list"

	var cached []credencialWebDTO
	if h.cache.GetJSON(r.Context(), cacheKey, &cached) {
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	creds, err := h.store.ListCredencialesWeb(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	dtos := make([]credencialWebDTO, 0, len(creds))
	for _, c := range creds {
		dtos = append(dtos, toCredencialWebDTO(c))
	}

	h.cache.SetJSON(r.Context(), cacheKey, dtos, 30*time.Second)
	WriteJSON(w, http.StatusOK, dtos)
}

// Obtener devuelve una credencial sin el secreto.
func (h *CredencialWebHandler) Obtener(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	cred, err := h.store.GetCredencialWeb(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}
	WriteJSON(w, http.StatusOK, toCredencialWebDTO(cred))
}

// RevelarSecreto descifra y devuelve el password. Cada lectura queda en
// bitácora con el actor que la pidió.
func (h *CredencialWebHandler) RevelarSecreto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	cred, err := h.store.GetCredencialWeb(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	plain, err := h.cipher.Decrypt(secrets.Payload{
		Ciphertext: cred.PasswordEnc,
		IV:         cred.PasswordIv,
		Tag:        cred.PasswordTag,
		KeyVersion: cred.PasswordKeyVersion,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "no se pudo descifrar el secreto")
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:     audit.AccionCredencialRead,
		ActorID:    actorID(r),
		TargetType: "credencial_web",
		TargetID:   strconv.FormatInt(id, 10),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, map[string]string{"contrasena": plain})
}

type actualizarCredencialWebRequest struct {
	Nombre     *string `json:"nombre"`
	URL        *string `json:"url"`
	Usuario    *string `json:"usuario"`
	Contrasena *string `json:"contrasena"`
	Notas      *string `json:"notas"`
	Activo     *bool   `json:"activo"`
}

// Actualizar aplica cambios parciales; si viene contrasena se re-cifra con
// la llave vigente.
func (h *CredencialWebHandler) Actualizar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var req actualizarCredencialWebRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	arg := repo.UpdateCredencialWebParams{
		Nombre:  req.Nombre,
		URL:     req.URL,
		Usuario: req.Usuario,
		Notas:   req.Notas,
		Activo:  req.Activo,
	}
	if req.Contrasena != nil {
		payload, err := h.cipher.Encrypt(*req.Contrasena)
		if err != nil {
			if errors.Is(err, secrets.ErrTextoVacio) {
				WriteError(w, http.StatusBadRequest, "contrasena no puede ser vacía")
				return
			}
			WriteError(w, http.StatusInternalServerError, "error interno")
			return
		}
		arg.Password = &payload
	}

	cred, err := h.store.UpdateCredencialWeb(r.Context(), id, arg)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoCredencialesWeb)
	WriteJSON(w, http.StatusOK, toCredencialWebDTO(cred))
}

// Eliminar borra la credencial.
func (h *CredencialWebHandler) Eliminar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := h.store.DeleteCredencialWeb(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoCredencialesWeb)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

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

const cachePrefijoWifi = "wifi_credenciales:"

type wifiCredencialStore interface {
	CreateWifiCredencial(ctx context.Context, arg repo.CreateWifiCredencialParams) (repo.WifiCredencial, error)
	GetWifiCredencial(ctx context.Context, id int64) (repo.WifiCredencial, error)
	ListWifiCredenciales(ctx context.Context) ([]repo.WifiCredencial, error)
	UpdateWifiCredencial(ctx context.Context, id int64, arg repo.UpdateWifiCredencialParams) (repo.WifiCredencial, error)
	DeleteWifiCredencial(ctx context.Context, id int64) error
}

// WifiHandler atiende el CRUD de credenciales de red, con el mismo sobre
// cifrado y el mismo endpoint de reveal auditado que los accesos web.
type WifiHandler struct {
	store   wifiCredencialStore
	cipher  *secrets.Cipher
	auditor *audit.Registrador
	cache   *cache.Cache
}

// NewWifiHandler crea el handler.
func NewWifiHandler(store wifiCredencialStore, cipher *secrets.Cipher, auditor *audit.Registrador, c *cache.Cache) *WifiHandler {
	return &WifiHandler{store: store, cipher: cipher, auditor: auditor, cache: c}
}

type wifiDTO struct {
	ID         int64     `json:"id"`
	SSID       string    `json:"ssid"`
	Usuario    string    `json:"usuario"`
	Ubicacion  *string   `json:"ubicacion"`
	Notas      *string   `json:"notas"`
	Vigente    bool      `json:"vigente"`
	KeyVersion int       `json:"keyVersion"`
	CreadoEn   time.Time `json:"creadoEn"`
}

func toWifiDTO(c repo.WifiCredencial) wifiDTO {
	return wifiDTO{
		ID:         c.ID,
		SSID:       c.SSID,
		Usuario:    c.Usuario,
		Ubicacion:  c.Ubicacion,
		Notas:      c.Notas,
		Vigente:    c.Vigente,
		KeyVersion: c.PasswordKeyVersion,
		CreadoEn:   c.CreadoEn,
	}
}

type crearWifiRequest struct {
	SSID       string  `json:"ssid"`
	Usuario    string  `json:"usuario"`
	Contrasena string  `json:"contrasena"`
	Ubicacion  *string `json:"ubicacion"`
	Notas      *string `json:"notas"`
}

// Crear cifra el secreto y persiste la credencial de red.
func (h *WifiHandler) Crear(w http.ResponseWriter, r *http.Request) {
	var req crearWifiRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SSID == "" {
		WriteError(w, http.StatusBadRequest, "ssid requerido")
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

	cred, err := h.store.CreateWifiCredencial(r.Context(), repo.CreateWifiCredencialParams{
		SSID:      req.SSID,
		Usuario:   req.Usuario,
		Password:  payload,
		Ubicacion: req.Ubicacion,
		Notas:     req.Notas,
		Vigente:   true,
	})
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoWifi)
	WriteJSON(w, http.StatusCreated, toWifiDTO(cred))
}

// Listar devuelve todas las credenciales de red sin secretos.
func (h *WifiHandler) Listar(w http.ResponseWriter, r *http.Request) {
	const cacheKey = cachePrefijoWifi + "list"

	var cached []wifiDTO
	if h.cache.GetJSON(r.Context(), cacheKey, &cached) {
		WriteJSON(w, http.StatusOK, cached)
		return
	}

	creds, err := h.store.ListWifiCredenciales(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	dtos := make([]wifiDTO, 0, len(creds))
	for _, c := range creds {
		dtos = append(dtos, toWifiDTO(c))
	}

	h.cache.SetJSON(r.Context(), cacheKey, dtos, 30*time.Second)
	WriteJSON(w, http.StatusOK, dtos)
}

// Obtener devuelve una credencial de red sin el secreto.
func (h *WifiHandler) Obtener(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	cred, err := h.store.GetWifiCredencial(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}
	WriteJSON(w, http.StatusOK, toWifiDTO(cred))
}

// RevelarSecreto descifra y devuelve el password con rastro en bitácora.
func (h *WifiHandler) RevelarSecreto(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	cred, err := h.store.GetWifiCredencial(r.Context(), id)
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
		TargetType: "wifi_credencial",
		TargetID:   strconv.FormatInt(id, 10),
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, map[string]string{"contrasena": plain})
}

type actualizarWifiRequest struct {
	SSID       *string `json:"ssid"`
	Usuario    *string `json:"usuario"`
	Contrasena *string `json:"contrasena"`
	Ubicacion  *string `json:"ubicacion"`
	Notas      *string `json:"notas"`
	Vigente    *bool   `json:"vigente"`
}

// Actualizar aplica cambios parciales; contrasena nueva se cifra con la
// llave vigente.
func (h *WifiHandler) Actualizar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	var req actualizarWifiRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	arg := repo.UpdateWifiCredencialParams{
		SSID:      req.SSID,
		Usuario:   req.Usuario,
		Ubicacion: req.Ubicacion,
		Notas:     req.Notas,
		Vigente:   req.Vigente,
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

	cred, err := h.store.UpdateWifiCredencial(r.Context(), id, arg)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoWifi)
	WriteJSON(w, http.StatusOK, toWifiDTO(cred))
}

// Eliminar borra la credencial de red.
func (h *WifiHandler) Eliminar(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "id inválido")
		return
	}

	if err := h.store.DeleteWifiCredencial(r.Context(), id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "credencial no encontrada")
			return
		}
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	h.cache.InvalidarPrefijo(r.Context(), cachePrefijoWifi)
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

package repo

import (
	"time"

	"github.com/resguardoti/activos/internal/auth"
)

// Usuario representa una cuenta interna. Nunca se borra físicamente: se
// desactiva. tokenVersion invalida en bloque todos los tokens emitidos
// antes de incrementarlo.
type Usuario struct {
	ID           int64
	Nombre       string
	Email        string
	Contrasena   string // hash Argon2id
	Rol          auth.Rol
	Activo       bool
	TokenVersion int
	CreadoEn     time.Time
}

// Sesion modela un contexto autenticado por dispositivo. Es usable sólo
// si revokedAt es nulo, expiresAt está en el futuro y el tokenVersion del
// usuario coincide con el embebido en el token presentado.
type Sesion struct {
	ID          string // uuid, viaja como claim sid
	UsuarioID   int64
	RefreshHash string // hash del refresh vigente, nunca el token crudo
	UserAgent   *string
	IP          *string
	ExpiresAt   time.Time
	LastUsedAt  time.Time
	RevokedAt   *time.Time
}

// SesionConUsuario agrega la sesión con su dueño (carga conjunta).
type SesionConUsuario struct {
	Sesion
	Usuario Usuario
}

// CredencialWeb guarda un acceso a un sitio con el password bajo sobre
// cifrado (ciphertext/iv/tag/keyVersion).
type CredencialWeb struct {
	ID                 int64
	Nombre             string
	URL                string
	Usuario            string
	PasswordEnc        string
	PasswordIv         string
	PasswordTag        string
	PasswordKeyVersion int
	Notas              *string
	Activo             bool
	CreadoEn           time.Time
}

// WifiCredencial guarda credenciales de red con el mismo sobre cifrado.
type WifiCredencial struct {
	ID                 int64
	SSID               string
	Usuario            string
	PasswordEnc        string
	PasswordIv         string
	PasswordTag        string
	PasswordKeyVersion int
	Ubicacion          *string
	Notas              *string
	Vigente            bool
	CreadoEn           time.Time
}

// AuditLog registra eventos de seguridad; su escritura es best-effort.
type AuditLog struct {
	ID         int64
	Action     string
	ActorID    *int64
	TargetType *string
	TargetID   *string
	Metadata   []byte // jsonb
	IP         *string
	UserAgent  *string
	CreadoEn   time.Time
}

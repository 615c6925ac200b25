// Package audit registra eventos de seguridad en bitácora. La escritura es
// best-effort: un fallo jamás tumba ni revierte la operación principal.
package audit

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/resguardoti/activos/internal/repo"
)

// Accion enumera los eventos auditables.
type Accion string

const (
	AccionLoginSuccess   Accion = "LOGIN_SUCCESS"
	AccionLoginFailed    Accion = "LOGIN_FAILED"
	AccionLogout         Accion = "LOGOUT"
	AccionLogoutAll      Accion = "LOGOUT_ALL"
	AccionUsuarioCreate  Accion = "USUARIO_CREATE"
	AccionUsuarioUpdate  Accion = "USUARIO_UPDATE"
	AccionUsuarioDelete  Accion = "USUARIO_DELETE"
	AccionCredencialRead Accion = "CREDENCIAL_SECRET_READ"
	AccionRotacionRun    Accion = "ROTACION_RUN"
	AccionReusoDetectado Accion = "REFRESH_REUSE_DETECTED"
)

// Entrada describe un evento a registrar.
type Entrada struct {
	Accion     Accion
	ActorID    *int64
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IP         *string
	UserAgent  *string
}

type inserter interface {
	InsertAuditLog(ctx context.Context, arg repo.InsertAuditLogParams) error
}

// Registrador escribe la bitácora.
type Registrador struct {
	repo inserter
}

// NewRegistrador crea el escritor de bitácora.
func NewRegistrador(repo inserter) *Registrador {
	return &Registrador{repo: repo}
}

// Registrar persiste el evento. Ante cualquier error sólo deja un warning.
func (r *Registrador) Registrar(ctx context.Context, e Entrada) {
	var metadata []byte
	if e.Metadata != nil {
		encoded, err := json.Marshal(e.Metadata)
		if err != nil {
			log.Warn().Err(err).Str("action", string(e.Accion)).Msg("audit: metadata no serializable")
		} else {
			metadata = encoded
		}
	}

	arg := repo.InsertAuditLogParams{
		Action:    string(e.Accion),
		ActorID:   e.ActorID,
		Metadata:  metadata,
		IP:        e.IP,
		UserAgent: e.UserAgent,
	}
	if e.TargetType != "" {
		arg.TargetType = &e.TargetType
	}
	if e.TargetID != "" {
		arg.TargetID = &e.TargetID
	}

	if err := r.repo.InsertAuditLog(ctx, arg); err != nil {
		log.Warn().Err(err).Str("action", string(e.Accion)).Msg("audit: no se pudo registrar")
	}
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/resguardoti/activos/internal/audit"
	"github.com/resguardoti/activos/internal/repo"
)

type auditLogStore interface {
	ListAuditLogs(ctx context.Context, filter repo.ListAuditLogsFilter) ([]repo.AuditLog, error)
}

type rotador interface {
	RunOnce(ctx context.Context) (int, error)
}

// AdminHandler agrupa la bitácora y la rotación manual de llaves.
type AdminHandler struct {
	logs     auditLogStore
	rotacion rotador
	auditor  *audit.Registrador
}

// NewAdminHandler crea el handler.
func NewAdminHandler(logs auditLogStore, rotacion rotador, auditor *audit.Registrador) *AdminHandler {
	return &AdminHandler{logs: logs, rotacion: rotacion, auditor: auditor}
}

type auditLogDTO struct {
	ID         int64           `json:"id"`
	Action     string          `json:"action"`
	ActorID    *int64          `json:"actorId"`
	TargetType *string         `json:"targetType"`
	TargetID   *string         `json:"targetId"`
	Metadata   json.RawMessage `json:"metadata"`
	IP         *string         `json:"ip"`
	UserAgent  *string         `json:"userAgent"`
	CreadoEn   time.Time       `json:"creadoEn"`
}

// ListarBitacora devuelve eventos de auditoría, recientes primero.
// Filtros: ?action=, ?actorId=, ?limit=, ?offset=.
func (h *AdminHandler) ListarBitacora(w http.ResponseWriter, r *http.Request) {
	filter := repo.ListAuditLogsFilter{}

	if raw := r.URL.Query().Get("action"); raw != "" {
		filter.Action = &raw
	}
	if raw := r.URL.Query().Get("actorId"); raw != "" {
		actorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "actorId inválido")
			return
		}
		filter.ActorID = &actorID
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			WriteError(w, http.StatusBadRequest, "limit inválido")
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			WriteError(w, http.StatusBadRequest, "offset inválido")
			return
		}
		filter.Offset = offset
	}

	logs, err := h.logs.ListAuditLogs(r.Context(), filter)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "error interno")
		return
	}

	dtos := make([]auditLogDTO, 0, len(logs))
	for _, entry := range logs {
		dtos = append(dtos, auditLogDTO{
			ID:         entry.ID,
			Action:     entry.Action,
			ActorID:    entry.ActorID,
			TargetType: entry.TargetType,
			TargetID:   entry.TargetID,
			Metadata:   entry.Metadata,
			IP:         entry.IP,
			UserAgent:  entry.UserAgent,
			CreadoEn:   entry.CreadoEn,
		})
	}
	WriteJSON(w, http.StatusOK, dtos)
}

// RotarCredenciales dispara una pasada de re-cifrado fuera del horario
// programado.
func (h *AdminHandler) RotarCredenciales(w http.ResponseWriter, r *http.Request) {
	rotated, err := h.rotacion.RunOnce(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "la rotación falló")
		return
	}

	meta := requestMeta(r)
	h.auditor.Registrar(r.Context(), audit.Entrada{
		Accion:    audit.AccionRotacionRun,
		ActorID:   actorID(r),
		Metadata:  map[string]any{"rotated": rotated},
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	})

	WriteJSON(w, http.StatusOK, map[string]int{"rotated": rotated})
}

package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/db"
)

// CreateSesionParams describe la fila insertada en el login.
type CreateSesionParams struct {
	ID          string
	UsuarioID   int64
	RefreshHash string
	UserAgent   *string
	IP          *string
	ExpiresAt   time.Time
	LastUsedAt  time.Time
}

// CreateSesion persiste la sesión nueva. Si falla, el login aborta: no hay
// tokens válidos sin fila de sesión.
func (q *Queries) CreateSesion(ctx context.Context, arg CreateSesionParams) error {
	const query = `
        INSERT INTO sesiones (id, usuario_id, refresh_hash, user_agent, ip, expires_at, last_used_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := q.pool.Exec(ctx, query,
		arg.ID, arg.UsuarioID, arg.RefreshHash, arg.UserAgent, arg.IP, arg.ExpiresAt, arg.LastUsedAt)
	return err
}

// GetSesionByID carga la sesión junto con su usuario dueño.
func (q *Queries) GetSesionByID(ctx context.Context, id string) (SesionConUsuario, error) {
	const query = `
        SELECT s.id, s.usuario_id, s.refresh_hash, s.user_agent, s.ip, s.expires_at, s.last_used_at, s.revoked_at,
               u.id, u.nombre, u.email, u.contrasena, u.rol, u.activo, u.token_version, u.creado_en
        FROM sesiones s
        JOIN usuarios u ON u.id = s.usuario_id
        WHERE s.id = $1
    `
	var (
		ses SesionConUsuario
		rol string
	)
	err := q.pool.QueryRow(ctx, query, id).Scan(
		&ses.ID, &ses.UsuarioID, &ses.RefreshHash, &ses.UserAgent, &ses.IP, &ses.ExpiresAt, &ses.LastUsedAt, &ses.RevokedAt,
		&ses.Usuario.ID, &ses.Usuario.Nombre, &ses.Usuario.Email, &ses.Usuario.Contrasena, &rol,
		&ses.Usuario.Activo, &ses.Usuario.TokenVersion, &ses.Usuario.CreadoEn,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SesionConUsuario{}, ErrNotFound
		}
		return SesionConUsuario{}, err
	}
	ses.Usuario.Rol = auth.Rol(rol)
	return ses, nil
}

// RotarRefreshHash sustituye el hash del refresh de forma condicional:
// sólo si el hash almacenado sigue siendo el leído por el llamador y la
// sesión no fue revocada entre tanto. Devuelve false cuando la escritura
// no aplicó (otro refresh concurrente ganó la carrera o el token es viejo).
func (q *Queries) RotarRefreshHash(ctx context.Context, id, oldHash, newHash string, userAgent, ip *string) (bool, error) {
	const query = `
        UPDATE sesiones SET
            refresh_hash = $3,
            last_used_at = now(),
            user_agent = COALESCE($4, user_agent),
            ip = COALESCE($5, ip)
        WHERE id = $1 AND refresh_hash = $2 AND revoked_at IS NULL
    `
	cmd, err := q.pool.Exec(ctx, query, id, oldHash, newHash, userAgent, ip)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// RevocarSesion marca una sesión como revocada. Idempotente: revocar dos
// veces no es error y la sesión queda revocada.
func (q *Queries) RevocarSesion(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx,
		`UPDATE sesiones SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevocarSesionesDeUsuario revoca todas las sesiones vivas del usuario y,
// si se pide, incrementa tokenVersion. Ambas escrituras van en una misma
// transacción: revocación parcial sin bump dejaría tokens viejos válidos.
func (q *Queries) RevocarSesionesDeUsuario(ctx context.Context, usuarioID int64, bumpTokenVersion bool) error {
	return db.WithTx(ctx, q.pool, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE sesiones SET revoked_at = now() WHERE usuario_id = $1 AND revoked_at IS NULL`,
			usuarioID); err != nil {
			return err
		}
		if bumpTokenVersion {
			if _, err := tx.Exec(ctx,
				`UPDATE usuarios SET token_version = token_version + 1 WHERE id = $1`,
				usuarioID); err != nil {
				return err
			}
		}
		return nil
	})
}

package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/resguardoti/activos/internal/auth"
)

const usuarioColumns = `id, nombre, email, contrasena, rol, activo, token_version, creado_en`

// GetUsuarioByEmail recupera un usuario por e-mail (normalizado a minúsculas).
func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE email = $1
    `
	row := q.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email)))
	return scanUsuario(row)
}

// GetUsuarioByID recupera un usuario por id.
func (q *Queries) GetUsuarioByID(ctx context.Context, id int64) (Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE id = $1
    `
	return scanUsuario(q.pool.QueryRow(ctx, query, id))
}

// CountUsuarios cuenta todas las cuentas; sostiene la condición de bootstrap.
func (q *Queries) CountUsuarios(ctx context.Context) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&count)
	return count, err
}

// CreateUsuarioParams son los datos ya validados y con la contraseña hasheada.
type CreateUsuarioParams struct {
	Nombre     string
	Email      string
	Contrasena string
	Rol        auth.Rol
	Activo     bool
}

// CreateUsuario inserta una cuenta nueva con tokenVersion en cero.
func (q *Queries) CreateUsuario(ctx context.Context, arg CreateUsuarioParams) (Usuario, error) {
	const query = `
        INSERT INTO usuarios (nombre, email, contrasena, rol, activo, token_version)
        VALUES ($1, $2, $3, $4, $5, 0)
        RETURNING ` + usuarioColumns + `
    `
	row := q.pool.QueryRow(ctx, query,
		arg.Nombre, strings.ToLower(strings.TrimSpace(arg.Email)), arg.Contrasena, arg.Rol.String(), arg.Activo)
	user, err := scanUsuario(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Usuario{}, ErrEmailDuplicado
		}
		return Usuario{}, err
	}
	return user, nil
}

// UpdateUsuarioParams actualiza sólo los campos no nulos.
type UpdateUsuarioParams struct {
	Nombre     *string
	Email      *string
	Contrasena *string
	Rol        *auth.Rol
	Activo     *bool
}

// UpdateUsuario aplica cambios parciales y devuelve la fila resultante.
func (q *Queries) UpdateUsuario(ctx context.Context, id int64, arg UpdateUsuarioParams) (Usuario, error) {
	const query = `
        UPDATE usuarios SET
            nombre = COALESCE($2, nombre),
            email = COALESCE($3, email),
            contrasena = COALESCE($4, contrasena),
            rol = COALESCE($5, rol),
            activo = COALESCE($6, activo)
        WHERE id = $1
        RETURNING ` + usuarioColumns + `
    `
	var email *string
	if arg.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*arg.Email))
		email = &normalized
	}
	var rol *string
	if arg.Rol != nil {
		value := arg.Rol.String()
		rol = &value
	}

	row := q.pool.QueryRow(ctx, query, id, arg.Nombre, email, arg.Contrasena, rol, arg.Activo)
	user, err := scanUsuario(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Usuario{}, ErrEmailDuplicado
		}
		return Usuario{}, err
	}
	return user, nil
}

// ListUsuariosFilter acota el listado.
type ListUsuariosFilter struct {
	Activo *bool
	Rol    *auth.Rol
	Limit  int
	Offset int
}

// ListUsuarios devuelve cuentas ordenadas por id descendente.
func (q *Queries) ListUsuarios(ctx context.Context, filter ListUsuariosFilter) ([]Usuario, error) {
	const query = `
        SELECT ` + usuarioColumns + `
        FROM usuarios
        WHERE ($1::boolean IS NULL OR activo = $1)
          AND ($2::text IS NULL OR rol = $2)
        ORDER BY id DESC
        LIMIT $3 OFFSET $4
    `
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	var rol *string
	if filter.Rol != nil {
		value := filter.Rol.String()
		rol = &value
	}

	rows, err := q.pool.Query(ctx, query, filter.Activo, rol, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usuarios []Usuario
	for rows.Next() {
		user, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		usuarios = append(usuarios, user)
	}
	return usuarios, rows.Err()
}

// DesactivarUsuario marca la cuenta como inactiva (nunca borrado físico).
func (q *Queries) DesactivarUsuario(ctx context.Context, id int64) error {
	cmd, err := q.pool.Exec(ctx, `UPDATE usuarios SET activo = false WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanUsuario(row pgx.Row) (Usuario, error) {
	var (
		user Usuario
		rol  string
	)
	err := row.Scan(&user.ID, &user.Nombre, &user.Email, &user.Contrasena, &rol, &user.Activo, &user.TokenVersion, &user.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Usuario{}, ErrNotFound
		}
		return Usuario{}, err
	}
	user.Rol = auth.Rol(rol)
	return user, nil
}

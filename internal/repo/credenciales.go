package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/resguardoti/activos/internal/secrets"
)

const credencialWebColumns = `id, nombre, url, usuario, password_enc, password_iv, password_tag, password_key_version, notas, activo, creado_en`

// CreateCredencialWebParams lleva el secreto ya cifrado.
type CreateCredencialWebParams struct {
	Nombre   string
	URL      string
	Usuario  string
	Password secrets.Payload
	Notas    *string
	Activo   bool
}

// CreateCredencialWeb inserta la credencial con su sobre cifrado.
func (q *Queries) CreateCredencialWeb(ctx context.Context, arg CreateCredencialWebParams) (CredencialWeb, error) {
	const query = `
        INSERT INTO credenciales_web (nombre, url, usuario, password_enc, password_iv, password_tag, password_key_version, notas, activo)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING ` + credencialWebColumns + `
    `
	row := q.pool.QueryRow(ctx, query,
		arg.Nombre, arg.URL, arg.Usuario,
		arg.Password.Ciphertext, arg.Password.IV, arg.Password.Tag, arg.Password.KeyVersion,
		arg.Notas, arg.Activo)
	return scanCredencialWeb(row)
}

// GetCredencialWeb recupera una credencial por id.
func (q *Queries) GetCredencialWeb(ctx context.Context, id int64) (CredencialWeb, error) {
	const query = `
        SELECT ` + credencialWebColumns + `
        FROM credenciales_web
        WHERE id = $1
    `
	return scanCredencialWeb(q.pool.QueryRow(ctx, query, id))
}

// ListCredencialesWeb devuelve todas las credenciales web (id descendente).
// La pasada de rotación recorre este mismo listado.
func (q *Queries) ListCredencialesWeb(ctx context.Context) ([]CredencialWeb, error) {
	const query = `
        SELECT ` + credencialWebColumns + `
        FROM credenciales_web
        ORDER BY id DESC
    `
	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []CredencialWeb
	for rows.Next() {
		cred, err := scanCredencialWeb(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// UpdateCredencialWebParams actualiza campos opcionales; Password nil deja
// el sobre intacto.
type UpdateCredencialWebParams struct {
	Nombre   *string
	URL      *string
	Usuario  *string
	Password *secrets.Payload
	Notas    *string
	Activo   *bool
}

// UpdateCredencialWeb aplica cambios parciales.
func (q *Queries) UpdateCredencialWeb(ctx context.Context, id int64, arg UpdateCredencialWebParams) (CredencialWeb, error) {
	const query = `
        UPDATE credenciales_web SET
            nombre = COALESCE($2, nombre),
            url = COALESCE($3, url),
            usuario = COALESCE($4, usuario),
            password_enc = COALESCE($5, password_enc),
            password_iv = COALESCE($6, password_iv),
            password_tag = COALESCE($7, password_tag),
            password_key_version = COALESCE($8, password_key_version),
            notas = COALESCE($9, notas),
            activo = COALESCE($10, activo)
        WHERE id = $1
        RETURNING ` + credencialWebColumns + `
    `
	var enc, iv, tag *string
	var keyVersion *int
	if arg.Password != nil {
		enc, iv, tag = &arg.Password.Ciphertext, &arg.Password.IV, &arg.Password.Tag
		keyVersion = &arg.Password.KeyVersion
	}
	row := q.pool.QueryRow(ctx, query, id,
		arg.Nombre, arg.URL, arg.Usuario, enc, iv, tag, keyVersion, arg.Notas, arg.Activo)
	return scanCredencialWeb(row)
}

// DeleteCredencialWeb elimina la credencial.
func (q *Queries) DeleteCredencialWeb(ctx context.Context, id int64) error {
	cmd, err := q.pool.Exec(ctx, `DELETE FROM credenciales_web WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCredencialWebCifrado persiste sólo el sobre rotado de una fila.
// Una única escritura por fila: la rotación nunca deja estados a medias.
func (q *Queries) UpdateCredencialWebCifrado(ctx context.Context, id int64, p secrets.Payload) error {
	const query = `
        UPDATE credenciales_web SET
            password_enc = $2,
            password_iv = $3,
            password_tag = $4,
            password_key_version = $5
        WHERE id = $1
    `
	cmd, err := q.pool.Exec(ctx, query, id, p.Ciphertext, p.IV, p.Tag, p.KeyVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCredencialWeb(row pgx.Row) (CredencialWeb, error) {
	var cred CredencialWeb
	err := row.Scan(&cred.ID, &cred.Nombre, &cred.URL, &cred.Usuario,
		&cred.PasswordEnc, &cred.PasswordIv, &cred.PasswordTag, &cred.PasswordKeyVersion,
		&cred.Notas, &cred.Activo, &cred.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CredencialWeb{}, ErrNotFound
		}
		return CredencialWeb{}, err
	}
	return cred, nil
}

const wifiCredencialColumns = `id, ssid, usuario, password_enc, password_iv, password_tag, password_key_version, ubicacion, notas, vigente, creado_en`

// CreateWifiCredencialParams lleva el secreto ya cifrado.
type CreateWifiCredencialParams struct {
	SSID      string
	Usuario   string
	Password  secrets.Payload
	Ubicacion *string
	Notas     *string
	Vigente   bool
}

// CreateWifiCredencial inserta la credencial de red.
func (q *Queries) CreateWifiCredencial(ctx context.Context, arg CreateWifiCredencialParams) (WifiCredencial, error) {
	const query = `
        INSERT INTO wifi_credenciales (ssid, usuario, password_enc, password_iv, password_tag, password_key_version, ubicacion, notas, vigente)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING ` + wifiCredencialColumns + `
    `
	row := q.pool.QueryRow(ctx, query,
		arg.SSID, arg.Usuario,
		arg.Password.Ciphertext, arg.Password.IV, arg.Password.Tag, arg.Password.KeyVersion,
		arg.Ubicacion, arg.Notas, arg.Vigente)
	return scanWifiCredencial(row)
}

// GetWifiCredencial recupera una credencial de red por id.
func (q *Queries) GetWifiCredencial(ctx context.Context, id int64) (WifiCredencial, error) {
	const query = `
        SELECT ` + wifiCredencialColumns + `
        FROM wifi_credenciales
        WHERE id = $1
    `
	return scanWifiCredencial(q.pool.QueryRow(ctx, query, id))
}

// ListWifiCredenciales devuelve todas las credenciales de red.
func (q *Queries) ListWifiCredenciales(ctx context.Context) ([]WifiCredencial, error) {
	const query = `
        SELECT ` + wifiCredencialColumns + `
        FROM wifi_credenciales
        ORDER BY id DESC
    `
	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []WifiCredencial
	for rows.Next() {
		cred, err := scanWifiCredencial(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// UpdateWifiCredencialParams actualiza campos opcionales.
type UpdateWifiCredencialParams struct {
	SSID      *string
	Usuario   *string
	Password  *secrets.Payload
	Ubicacion *string
	Notas     *string
	Vigente   *bool
}

// UpdateWifiCredencial aplica cambios parciales.
func (q *Queries) UpdateWifiCredencial(ctx context.Context, id int64, arg UpdateWifiCredencialParams) (WifiCredencial, error) {
	const query = `
        UPDATE wifi_credenciales SET
            ssid = COALESCE($2, ssid),
            usuario = COALESCE($3, usuario),
            password_enc = COALESCE($4, password_enc),
            password_iv = COALESCE($5, password_iv),
            password_tag = COALESCE($6, password_tag),
            password_key_version = COALESCE($7, password_key_version),
            ubicacion = COALESCE($8, ubicacion),
            notas = COALESCE($9, notas),
            vigente = COALESCE($10, vigente)
        WHERE id = $1
        RETURNING ` + wifiCredencialColumns + `
    `
	var enc, iv, tag *string
	var keyVersion *int
	if arg.Password != nil {
		enc, iv, tag = &arg.Password.Ciphertext, &arg.Password.IV, &arg.Password.Tag
		keyVersion = &arg.Password.KeyVersion
	}
	row := q.pool.QueryRow(ctx, query, id,
		arg.SSID, arg.Usuario, enc, iv, tag, keyVersion, arg.Ubicacion, arg.Notas, arg.Vigente)
	return scanWifiCredencial(row)
}

// DeleteWifiCredencial elimina la credencial de red.
func (q *Queries) DeleteWifiCredencial(ctx context.Context, id int64) error {
	cmd, err := q.pool.Exec(ctx, `DELETE FROM wifi_credenciales WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWifiCredencialCifrado persiste sólo el sobre rotado.
func (q *Queries) UpdateWifiCredencialCifrado(ctx context.Context, id int64, p secrets.Payload) error {
	const query = `
        UPDATE wifi_credenciales SET
            password_enc = $2,
            password_iv = $3,
            password_tag = $4,
            password_key_version = $5
        WHERE id = $1
    `
	cmd, err := q.pool.Exec(ctx, query, id, p.Ciphertext, p.IV, p.Tag, p.KeyVersion)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWifiCredencial(row pgx.Row) (WifiCredencial, error) {
	var cred WifiCredencial
	err := row.Scan(&cred.ID, &cred.SSID, &cred.Usuario,
		&cred.PasswordEnc, &cred.PasswordIv, &cred.PasswordTag, &cred.PasswordKeyVersion,
		&cred.Ubicacion, &cred.Notas, &cred.Vigente, &cred.CreadoEn)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return WifiCredencial{}, ErrNotFound
		}
		return WifiCredencial{}, err
	}
	return cred, nil
}

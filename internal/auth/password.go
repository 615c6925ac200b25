package auth

import (
	"errors"

	"github.com/alexedwards/argon2id"
)

// Parámetros Argon2id fijos para todo el proceso; la verificación lee los
// parámetros embebidos en el propio hash, así que pueden ajustarse sin
// invalidar hashes existentes.
var params = &argon2id.Params{
	Memory:      19 * 1024, // ~19 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

const (
	// MinPasswordLen es el largo mínimo aceptado para contraseñas.
	MinPasswordLen = 10
	// MinRefreshTokenLen es el largo mínimo aceptado para refresh tokens.
	MinRefreshTokenLen = 20
)

var (
	// ErrPasswordCorta es retornado al hashear contraseñas demasiado cortas.
	ErrPasswordCorta = errors.New("password inválida (mínimo 10 caracteres)")
	// ErrRefreshCorto es retornado al hashear refresh tokens demasiado cortos.
	ErrRefreshCorto = errors.New("refresh token inválido")
)

// HashPassword genera un hash Argon2id de la contraseña (Usuario.contrasena).
func HashPassword(plain string) (string, error) {
	if len(plain) < MinPasswordLen {
		return "", ErrPasswordCorta
	}
	return argon2id.CreateHash(plain, params)
}

// VerifyPassword compara contraseña contra el hash almacenado.
// Nunca retorna error: cualquier hash malformado cuenta como no-match.
func VerifyPassword(encodedHash, plain string) bool {
	if encodedHash == "" || plain == "" {
		return false
	}
	ok, err := argon2id.ComparePasswordAndHash(plain, encodedHash)
	if err != nil {
		return false
	}
	return ok
}

// HashRefreshToken genera el hash Argon2id que se persiste en Sesion.refreshHash.
// El refresh token crudo nunca se guarda; el hash permite detectar reuso.
func HashRefreshToken(token string) (string, error) {
	if len(token) < MinRefreshTokenLen {
		return "", ErrRefreshCorto
	}
	return argon2id.CreateHash(token, params)
}

// VerifyRefreshToken compara el refresh token crudo contra el hash de la sesión.
func VerifyRefreshToken(encodedHash, token string) bool {
	return VerifyPassword(encodedHash, token)
}

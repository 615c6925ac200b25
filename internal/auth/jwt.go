package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrTokenInvalido cubre firma inválida, expiración, algoritmo incorrecto
// y claims faltantes o con tipo equivocado.
var ErrTokenInvalido = errors.New("token inválido")

// AccessClaims viaja dentro del token de acceso (corta vida).
type AccessClaims struct {
	Rol string `json:"rol"`
	TV  *int   `json:"tv"`
	Sid string `json:"sid"`
	jwt.RegisteredClaims
}

// Validate es invocado por el parser tras las validaciones estándar.
func (c *AccessClaims) Validate() error {
	if c.Subject == "" || c.Sid == "" || c.TV == nil {
		return ErrTokenInvalido
	}
	if _, err := ParseRol(c.Rol); err != nil {
		return ErrTokenInvalido
	}
	return nil
}

// TokenVersion devuelve el tv embebido.
func (c *AccessClaims) TokenVersion() int {
	if c.TV == nil {
		return 0
	}
	return *c.TV
}

// RefreshClaims viaja dentro del refresh token (vida en días).
type RefreshClaims struct {
	TV  *int   `json:"tv"`
	Sid string `json:"sid"`
	jwt.RegisteredClaims
}

func (c *RefreshClaims) Validate() error {
	if c.Subject == "" || c.Sid == "" || c.TV == nil {
		return ErrTokenInvalido
	}
	return nil
}

func (c *RefreshClaims) TokenVersion() int {
	if c.TV == nil {
		return 0
	}
	return *c.TV
}

// TokenManager firma y valida los dos tipos de token con secretos
// independientes: poseer uno no permite forjar el otro.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	audience      string
}

// NewTokenManager crea el gestor. refreshTTL se expresa ya como duración
// (la configuración lo recibe en días).
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer, audience string) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
		audience:      audience,
	}
}

// SignAccess emite un token de acceso HS256 con jti fresco.
func (m *TokenManager) SignAccess(sub, sid string, tv int, rol Rol) (string, error) {
	claims := &AccessClaims{
		Rol:              rol.String(),
		TV:               &tv,
		Sid:              sid,
		RegisteredClaims: m.registered(sub, m.accessTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.accessSecret)
}

// SignRefresh emite un refresh token HS256 firmado con el secreto de refresh.
func (m *TokenManager) SignRefresh(sub, sid string, tv int) (string, error) {
	claims := &RefreshClaims{
		TV:               &tv,
		Sid:              sid,
		RegisteredClaims: m.registered(sub, m.refreshTTL),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.refreshSecret)
}

// VerifyAccess valida firma, expiración y forma de claims del token de acceso.
func (m *TokenManager) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.verify(token, claims, m.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh valida el refresh token con el secreto de refresh.
func (m *TokenManager) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.verify(token, claims, m.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) registered(sub string, ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	reg := jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	if m.issuer != "" {
		reg.Issuer = m.issuer
	}
	if m.audience != "" {
		reg.Audience = jwt.ClaimStrings{m.audience}
	}
	return reg
}

func (m *TokenManager) verify(token string, claims jwt.Claims, secret []byte) error {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		opts = append(opts, jwt.WithAudience(m.audience))
	}
	parser := jwt.NewParser(opts...)

	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return ErrTokenInvalido
	}
	if !parsed.Valid {
		return ErrTokenInvalido
	}
	return nil
}

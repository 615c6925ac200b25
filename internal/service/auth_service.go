package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/util"
)

var (
	// ErrCredencialesInvalidas indica fallo de autenticación. Mensaje único
	// para email desconocido y contraseña incorrecta (evita enumeración).
	ErrCredencialesInvalidas = errors.New("credenciales inválidas")
	// ErrUsuarioInactivo indica cuenta desactivada.
	ErrUsuarioInactivo = errors.New("usuario inactivo")
	// ErrRefreshInvalido indica refresh token malformado o con firma inválida.
	ErrRefreshInvalido = errors.New("refresh token inválido")
	// ErrSesionNoEncontrada indica que el sid no corresponde a sesión alguna.
	ErrSesionNoEncontrada = errors.New("sesión no encontrada")
	// ErrSesionRevocada indica sesión terminada por logout o compromiso.
	ErrSesionRevocada = errors.New("sesión revocada")
	// ErrSesionExpirada indica sesión vencida por reloj.
	ErrSesionExpirada = errors.New("sesión expirada")
	// ErrTokenRevocado indica tokenVersion desfasado (revocación global).
	ErrTokenRevocado = errors.New("token revocado (tv)")
	// ErrReusoDetectado indica presentación de un refresh ya rotado: se
	// revoca toda la familia de sesiones del usuario.
	ErrReusoDetectado = errors.New("refresh reutilizado (compromiso detectado)")
)

type authRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	CreateSesion(ctx context.Context, arg repo.CreateSesionParams) error
	GetSesionByID(ctx context.Context, id string) (repo.SesionConUsuario, error)
	RotarRefreshHash(ctx context.Context, id, oldHash, newHash string, userAgent, ip *string) (bool, error)
	RevocarSesion(ctx context.Context, id string) error
	RevocarSesionesDeUsuario(ctx context.Context, usuarioID int64, bumpTokenVersion bool) error
}

// AuthService concentra login, refresh con detección de reuso, logout y
// revocación masiva.
type AuthService struct {
	repo       authRepository
	tokens     *auth.TokenManager
	refreshTTL time.Duration
}

// NewAuthService crea el servicio.
func NewAuthService(r authRepository, tokens *auth.TokenManager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: r, tokens: tokens, refreshTTL: refreshTTL}
}

// Tokens expone el gestor de JWT (útil en middlewares).
func (s *AuthService) Tokens() *auth.TokenManager {
	return s.tokens
}

// LoginResult representa el retorno estándar de login y refresh.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
	Usuario      repo.Usuario
}

// RequestMeta acompaña la sesión con datos del cliente.
type RequestMeta struct {
	UserAgent *string
	IP        *string
}

// Login autentica por email/contraseña y crea una sesión nueva.
func (s *AuthService) Login(ctx context.Context, email, contrasena string, meta RequestMeta) (*LoginResult, error) {
	user, err := s.repo.GetUsuarioByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn().Msg("login: usuario no encontrado")
			return nil, ErrCredencialesInvalidas
		}
		return nil, err
	}

	if !user.Activo {
		return nil, ErrUsuarioInactivo
	}

	if !auth.VerifyPassword(user.Contrasena, contrasena) {
		log.Warn().Int64("usuario_id", user.ID).Msg("login: contraseña inválida")
		return nil, ErrCredencialesInvalidas
	}

	return s.crearSesion(ctx, user, meta)
}

// crearSesion emite el par de tokens y persiste la fila de sesión. Si la
// inserción falla no hay commit parcial: los tokens firmados se descartan.
func (s *AuthService) crearSesion(ctx context.Context, user repo.Usuario, meta RequestMeta) (*LoginResult, error) {
	sid := uuid.NewString()
	sub := strconv.FormatInt(user.ID, 10)

	refreshToken, err := s.tokens.SignRefresh(sub, sid, user.TokenVersion)
	if err != nil {
		return nil, err
	}

	refreshHash, err := auth.HashRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	now := util.Now()
	if err := s.repo.CreateSesion(ctx, repo.CreateSesionParams{
		ID:          sid,
		UsuarioID:   user.ID,
		RefreshHash: refreshHash,
		UserAgent:   meta.UserAgent,
		IP:          meta.IP,
		ExpiresAt:   now.Add(s.refreshTTL),
		LastUsedAt:  now,
	}); err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.SignAccess(sub, sid, user.TokenVersion, user.Rol)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sid,
		Usuario:      user,
	}, nil
}

// Refresh valida y rota el refresh token presentado. Cada refresh es de un
// solo uso: presentar uno ya rotado revoca todas las sesiones del usuario
// e incrementa tokenVersion.
func (s *AuthService) Refresh(ctx context.Context, rawToken string, meta RequestMeta) (*LoginResult, error) {
	claims, err := s.tokens.VerifyRefresh(rawToken)
	if err != nil {
		return nil, ErrRefreshInvalido
	}

	usuarioID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrRefreshInvalido
	}

	ses, err := s.repo.GetSesionByID(ctx, claims.Sid)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSesionNoEncontrada
		}
		return nil, err
	}

	if ses.RevokedAt != nil {
		return nil, ErrSesionRevocada
	}
	if !ses.ExpiresAt.After(util.Now()) {
		return nil, ErrSesionExpirada
	}

	// Revocación global: un bump de tokenVersion invalida todo token
	// emitido antes, aunque no haya expirado.
	if ses.Usuario.TokenVersion != claims.TokenVersion() {
		return nil, ErrTokenRevocado
	}

	// Detección de reuso: el hash almacenado corresponde siempre al último
	// refresh emitido. Un no-match significa token ya rotado (robado o
	// repetido): se quema la familia completa.
	if !auth.VerifyRefreshToken(ses.RefreshHash, rawToken) {
		log.Warn().Int64("usuario_id", usuarioID).Str("sid", ses.ID).Msg("refresh: reuso detectado, revocando sesiones")
		if err := s.repo.RevocarSesionesDeUsuario(ctx, ses.UsuarioID, true); err != nil {
			return nil, err
		}
		return nil, ErrReusoDetectado
	}

	newRefresh, err := s.tokens.SignRefresh(claims.Subject, ses.ID, ses.Usuario.TokenVersion)
	if err != nil {
		return nil, err
	}
	newHash, err := auth.HashRefreshToken(newRefresh)
	if err != nil {
		return nil, err
	}

	// Escritura condicional sobre el hash leído: dos refresh concurrentes
	// del mismo token no pueden rotar ambos.
	ok, err := s.repo.RotarRefreshHash(ctx, ses.ID, ses.RefreshHash, newHash, meta.UserAgent, meta.IP)
	if err != nil {
		return nil, err
	}
	if !ok {
		log.Warn().Int64("usuario_id", usuarioID).Str("sid", ses.ID).Msg("refresh: rotación concurrente, revocando sesiones")
		if err := s.repo.RevocarSesionesDeUsuario(ctx, ses.UsuarioID, true); err != nil {
			return nil, err
		}
		return nil, ErrReusoDetectado
	}

	accessToken, err := s.tokens.SignAccess(claims.Subject, ses.ID, ses.Usuario.TokenVersion, ses.Usuario.Rol)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		SessionID:    ses.ID,
		Usuario:      ses.Usuario,
	}, nil
}

// Logout revoca una sesión. Idempotente.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.repo.RevocarSesion(ctx, sessionID)
}

// LogoutAll revoca todas las sesiones del usuario y, si se pide, incrementa
// tokenVersion para invalidar también los access tokens vigentes.
func (s *AuthService) LogoutAll(ctx context.Context, usuarioID int64, bumpTokenVersion bool) error {
	return s.repo.RevocarSesionesDeUsuario(ctx, usuarioID, bumpTokenVersion)
}

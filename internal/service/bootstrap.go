package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/config"
	"github.com/resguardoti/activos/internal/repo"
)

type bootstrapRepository interface {
	GetUsuarioByEmail(ctx context.Context, email string) (repo.Usuario, error)
	CreateUsuario(ctx context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error)
}

// EnsureBootstrapAdmin siembra el administrador inicial al arranque. No-op
// cuando está deshabilitado o el email ya existe.
func EnsureBootstrapAdmin(ctx context.Context, r bootstrapRepository, cfg config.BootstrapAdminConfig) error {
	if !cfg.Enabled {
		return nil
	}

	if _, err := r.GetUsuarioByEmail(ctx, cfg.Email); err == nil {
		log.Info().Str("email", cfg.Email).Msg("bootstrap: admin ya existe, se omite")
		return nil
	} else if !errors.Is(err, repo.ErrNotFound) {
		return err
	}

	hashed, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	user, err := r.CreateUsuario(ctx, repo.CreateUsuarioParams{
		Nombre:     cfg.Nombre,
		Email:      cfg.Email,
		Contrasena: hashed,
		Rol:        cfg.Rol,
		Activo:     true,
	})
	if err != nil {
		return err
	}

	log.Info().Str("email", user.Email).Msg("bootstrap: admin creado")
	return nil
}

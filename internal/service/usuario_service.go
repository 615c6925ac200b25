package service

import (
	"context"
	"errors"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/util"
)

// ErrValidacion agrupa errores de payload de usuario.
var ErrValidacion = errors.New("payload inválido")

type usuarioRepository interface {
	GetUsuarioByID(ctx context.Context, id int64) (repo.Usuario, error)
	CreateUsuario(ctx context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error)
	UpdateUsuario(ctx context.Context, id int64, arg repo.UpdateUsuarioParams) (repo.Usuario, error)
	ListUsuarios(ctx context.Context, filter repo.ListUsuariosFilter) ([]repo.Usuario, error)
	DesactivarUsuario(ctx context.Context, id int64) error
}

// UsuarioService aplica las reglas de cuentas: email único, contraseña
// hasheada antes de persistir, desactivación en lugar de borrado.
type UsuarioService struct {
	repo usuarioRepository
}

// NewUsuarioService crea el servicio.
func NewUsuarioService(r usuarioRepository) *UsuarioService {
	return &UsuarioService{repo: r}
}

// CrearUsuarioInput es el payload de alta.
type CrearUsuarioInput struct {
	Nombre     string
	Email      string
	Contrasena string
	Rol        auth.Rol
}

// Crear valida, hashea y persiste una cuenta nueva.
func (s *UsuarioService) Crear(ctx context.Context, input CrearUsuarioInput) (repo.Usuario, error) {
	if err := util.ValidateNombre(input.Nombre); err != nil {
		return repo.Usuario{}, errors.Join(ErrValidacion, err)
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return repo.Usuario{}, errors.Join(ErrValidacion, err)
	}
	if err := util.ValidatePassword(input.Contrasena); err != nil {
		return repo.Usuario{}, errors.Join(ErrValidacion, err)
	}
	if _, err := auth.ParseRol(input.Rol.String()); err != nil {
		return repo.Usuario{}, errors.Join(ErrValidacion, err)
	}

	hashed, err := auth.HashPassword(input.Contrasena)
	if err != nil {
		return repo.Usuario{}, err
	}

	return s.repo.CreateUsuario(ctx, repo.CreateUsuarioParams{
		Nombre:     input.Nombre,
		Email:      input.Email,
		Contrasena: hashed,
		Rol:        input.Rol,
		Activo:     true,
	})
}

// ActualizarUsuarioInput lleva cambios parciales; punteros nulos no tocan
// el campo.
type ActualizarUsuarioInput struct {
	Nombre     *string
	Email      *string
	Contrasena *string
	Rol        *auth.Rol
	Activo     *bool
}

// Actualizar aplica cambios parciales, hasheando la contraseña si viene.
func (s *UsuarioService) Actualizar(ctx context.Context, id int64, input ActualizarUsuarioInput) (repo.Usuario, error) {
	arg := repo.UpdateUsuarioParams{
		Nombre: input.Nombre,
		Email:  input.Email,
		Rol:    input.Rol,
		Activo: input.Activo,
	}

	if input.Nombre != nil {
		if err := util.ValidateNombre(*input.Nombre); err != nil {
			return repo.Usuario{}, errors.Join(ErrValidacion, err)
		}
	}
	if input.Email != nil {
		if err := util.ValidateEmail(*input.Email); err != nil {
			return repo.Usuario{}, errors.Join(ErrValidacion, err)
		}
	}
	if input.Rol != nil {
		if _, err := auth.ParseRol(input.Rol.String()); err != nil {
			return repo.Usuario{}, errors.Join(ErrValidacion, err)
		}
	}
	if input.Contrasena != nil {
		if err := util.ValidatePassword(*input.Contrasena); err != nil {
			return repo.Usuario{}, errors.Join(ErrValidacion, err)
		}
		hashed, err := auth.HashPassword(*input.Contrasena)
		if err != nil {
			return repo.Usuario{}, err
		}
		arg.Contrasena = &hashed
	}

	return s.repo.UpdateUsuario(ctx, id, arg)
}

// Obtener devuelve una cuenta por id.
func (s *UsuarioService) Obtener(ctx context.Context, id int64) (repo.Usuario, error) {
	return s.repo.GetUsuarioByID(ctx, id)
}

// Listar devuelve cuentas con filtros opcionales.
func (s *UsuarioService) Listar(ctx context.Context, filter repo.ListUsuariosFilter) ([]repo.Usuario, error) {
	return s.repo.ListUsuarios(ctx, filter)
}

// Desactivar marca la cuenta como inactiva; nunca borra la fila.
func (s *UsuarioService) Desactivar(ctx context.Context, id int64) error {
	return s.repo.DesactivarUsuario(ctx, id)
}

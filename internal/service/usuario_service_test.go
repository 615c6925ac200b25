package service

import (
	"context"
	"errors"
	"testing"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/repo"
)

type stubUsuarioRepo struct {
	creado *repo.CreateUsuarioParams
	user   repo.Usuario
}

func (s *stubUsuarioRepo) GetUsuarioByID(ctx context.Context, id int64) (repo.Usuario, error) {
	if id != s.user.ID {
		return repo.Usuario{}, repo.ErrNotFound
	}
	return s.user, nil
}

func (s *stubUsuarioRepo) CreateUsuario(ctx context.Context, arg repo.CreateUsuarioParams) (repo.Usuario, error) {
	s.creado = &arg
	return repo.Usuario{ID: 1, Nombre: arg.Nombre, Email: arg.Email, Contrasena: arg.Contrasena, Rol: arg.Rol, Activo: arg.Activo}, nil
}

func (s *stubUsuarioRepo) UpdateUsuario(ctx context.Context, id int64, arg repo.UpdateUsuarioParams) (repo.Usuario, error) {
	if id != s.user.ID {
		return repo.Usuario{}, repo.ErrNotFound
	}
	if arg.Contrasena != nil {
		s.user.Contrasena = *arg.Contrasena
	}
	return s.user, nil
}

func (s *stubUsuarioRepo) ListUsuarios(ctx context.Context, filter repo.ListUsuariosFilter) ([]repo.Usuario, error) {
	return []repo.Usuario{s.user}, nil
}

func (s *stubUsuarioRepo) DesactivarUsuario(ctx context.Context, id int64) error {
	if id != s.user.ID {
		return repo.ErrNotFound
	}
	s.user.Activo = false
	return nil
}

func TestCrearHasheaContrasena(t *testing.T) {
	r := &stubUsuarioRepo{}
	svc := NewUsuarioService(r)

	_, err := svc.Crear(context.Background(), CrearUsuarioInput{
		Nombre:     "Operadora",
		Email:      "operadora@resguardo.mx",
		Contrasena: "contraseña-larga",
		Rol:        auth.RolSupervisor,
	})
	if err != nil {
		t.Fatalf("Crear: %v", err)
	}
	if r.creado == nil {
		t.Fatal("no se persistió la cuenta")
	}
	if r.creado.Contrasena == "contraseña-larga" {
		t.Fatal("la contraseña se persistió en claro")
	}
	if !auth.VerifyPassword(r.creado.Contrasena, "contraseña-larga") {
		t.Fatal("el hash persistido no verifica")
	}
	if !r.creado.Activo {
		t.Fatal("la cuenta nueva debe nacer activa")
	}
}

func TestCrearValidaPayload(t *testing.T) {
	svc := NewUsuarioService(&stubUsuarioRepo{})
	ctx := context.Background()

	casos := []CrearUsuarioInput{
		{Nombre: "", Email: "a@b.mx", Contrasena: "contraseña-larga", Rol: auth.RolAdmin},
		{Nombre: "X", Email: "no-es-email", Contrasena: "contraseña-larga", Rol: auth.RolAdmin},
		{Nombre: "X", Email: "a@b.mx", Contrasena: "corta", Rol: auth.RolAdmin},
		{Nombre: "X", Email: "a@b.mx", Contrasena: "contraseña-larga", Rol: auth.Rol("ROOT")},
	}
	for i, input := range casos {
		if _, err := svc.Crear(ctx, input); !errors.Is(err, ErrValidacion) {
			t.Fatalf("caso %d: esperaba ErrValidacion, obtuve %v", i, err)
		}
	}
}

func TestActualizarRehashea(t *testing.T) {
	r := &stubUsuarioRepo{user: repo.Usuario{ID: 5, Activo: true}}
	svc := NewUsuarioService(r)

	nueva := "otra-contraseña-larga"
	if _, err := svc.Actualizar(context.Background(), 5, ActualizarUsuarioInput{Contrasena: &nueva}); err != nil {
		t.Fatalf("Actualizar: %v", err)
	}
	if r.user.Contrasena == nueva {
		t.Fatal("la contraseña se persistió en claro")
	}
	if !auth.VerifyPassword(r.user.Contrasena, nueva) {
		t.Fatal("el hash persistido no verifica")
	}
}

func TestDesactivarNoBorra(t *testing.T) {
	r := &stubUsuarioRepo{user: repo.Usuario{ID: 5, Activo: true}}
	svc := NewUsuarioService(r)

	if err := svc.Desactivar(context.Background(), 5); err != nil {
		t.Fatalf("Desactivar: %v", err)
	}
	if r.user.Activo {
		t.Fatal("la cuenta siguió activa")
	}
	if _, err := svc.Obtener(context.Background(), 5); err != nil {
		t.Fatalf("la fila desapareció: %v", err)
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/resguardoti/activos/internal/auth"
	"github.com/resguardoti/activos/internal/repo"
)

type stubStore struct {
	sesion    repo.SesionConUsuario
	sinSesion bool
	usuarios  int64
}

func (s *stubStore) GetSesionByID(ctx context.Context, id string) (repo.SesionConUsuario, error) {
	if s.sinSesion || s.sesion.ID != id {
		return repo.SesionConUsuario{}, repo.ErrNotFound
	}
	return s.sesion, nil
}

func (s *stubStore) CountUsuarios(ctx context.Context) (int64, error) {
	return s.usuarios, nil
}

func newGateFixture(t *testing.T) (*auth.TokenManager, *stubStore, string) {
	t.Helper()
	tokens := auth.NewTokenManager(
		"secreto-de-acceso-para-pruebas",
		"secreto-de-refresh-para-pruebas",
		time.Minute, 24*time.Hour, "", "")

	token, err := tokens.SignAccess("1", "sid-1", 0, auth.RolAdmin)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	store := &stubStore{
		sesion: repo.SesionConUsuario{
			Sesion: repo.Sesion{
				ID:        "sid-1",
				UsuarioID: 1,
				ExpiresAt: time.Now().Add(time.Hour),
			},
			Usuario: repo.Usuario{ID: 1, Rol: auth.RolAdmin, Activo: true},
		},
		usuarios: 1,
	}
	return tokens, store, token
}

func gateRequest(t *testing.T, tokens *auth.TokenManager, store *stubStore, method, path, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var gotClaims *auth.AccessClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = GetClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	Autenticar(tokens, store)(next).ServeHTTP(rec, req)

	if rec.Code == http.StatusOK && path != "/health" && bearer != "" && gotClaims == nil {
		t.Fatal("la petición pasó sin claims en el contexto")
	}
	return rec
}

func TestGateRutaPublica(t *testing.T) {
	tokens, store, _ := newGateFixture(t)
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := gateRequest(t, tokens, store, http.MethodPost, "/auth/login", ""); rec.Code != http.StatusOK {
		t.Fatalf("login: %d", rec.Code)
	}
}

func TestGateSinToken(t *testing.T) {
	tokens, store, _ := newGateFixture(t)
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateTokenInvalido(t *testing.T) {
	tokens, store, _ := newGateFixture(t)
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", "basura"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateSesionValida(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, esperaba 200", rec.Code)
	}
}

func TestGateSesionInexistente(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	store.sinSesion = true
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateSesionRevocada(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	now := time.Now()
	store.sesion.RevokedAt = &now
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateSesionExpirada(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	store.sesion.ExpiresAt = time.Now().Add(-time.Minute)
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateTokenVersionDesfasado(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	store.sesion.Usuario.TokenVersion = 5
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateUsuarioInactivo(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	store.sesion.Usuario.Activo = false
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, esperaba 403", rec.Code)
	}
}

func TestGateDuenoDistinto(t *testing.T) {
	tokens, store, token := newGateFixture(t)
	store.sesion.UsuarioID = 99
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", token); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, esperaba 401", rec.Code)
	}
}

func TestGateBootstrap(t *testing.T) {
	tokens, store, _ := newGateFixture(t)

	// Tabla vacía: el alta del primer usuario entra sin token.
	store.usuarios = 0
	if rec := gateRequest(t, tokens, store, http.MethodPost, "/usuarios", ""); rec.Code != http.StatusOK {
		t.Fatalf("bootstrap abierto: %d", rec.Code)
	}

	// Con una cuenta existente la excepción se cierra.
	store.usuarios = 1
	if rec := gateRequest(t, tokens, store, http.MethodPost, "/usuarios", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bootstrap cerrado: %d", rec.Code)
	}

	// Y nunca aplica a otras rutas ni métodos.
	store.usuarios = 0
	if rec := gateRequest(t, tokens, store, http.MethodGet, "/usuarios", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /usuarios sin token: %d", rec.Code)
	}
	if rec := gateRequest(t, tokens, store, http.MethodPost, "/credenciales-web", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("POST /credenciales-web sin token: %d", rec.Code)
	}
}

func conClaims(r *http.Request, claims *auth.AccessClaims) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeyClaims, claims))
}

func TestRequireRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireRoles(auth.RolAdmin, auth.RolGerente)(next)

	// Sin claims: 401.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-logs", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("sin claims: %d", rec.Code)
	}

	// Rol fuera de la lista: 403.
	rec = httptest.NewRecorder()
	req := conClaims(httptest.NewRequest(http.MethodGet, "/audit-logs", nil),
		&auth.AccessClaims{Rol: auth.RolSupervisor.String()})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rol insuficiente: %d", rec.Code)
	}

	// Rol permitido: pasa.
	rec = httptest.NewRecorder()
	req = conClaims(httptest.NewRequest(http.MethodGet, "/audit-logs", nil),
		&auth.AccessClaims{Rol: auth.RolGerente.String()})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("rol permitido: %d", rec.Code)
	}
}

func TestRequireRolesOrBootstrap(t *testing.T) {
	store := &stubStore{usuarios: 0}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	handler := RequireRolesOrBootstrap(store, auth.RolAdmin)(next)

	// Tabla vacía, sin claims: pasa por bootstrap.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/usuarios", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("bootstrap: %d", rec.Code)
	}

	// Tabla poblada, sin claims: 401.
	store.usuarios = 1
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/usuarios", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("sin claims: %d", rec.Code)
	}

	// Claims con rol insuficiente: 403.
	rec = httptest.NewRecorder()
	req := conClaims(httptest.NewRequest(http.MethodPost, "/usuarios", nil),
		&auth.AccessClaims{Rol: auth.RolSupervisor.String()})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("rol insuficiente: %d", rec.Code)
	}

	// Claims con rol permitido: pasa aunque la tabla esté poblada.
	rec = httptest.NewRecorder()
	req = conClaims(httptest.NewRequest(http.MethodPost, "/usuarios", nil),
		&auth.AccessClaims{Rol: auth.RolAdmin.String()})
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("rol permitido: %d", rec.Code)
	}
}

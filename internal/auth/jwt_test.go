package auth

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(accessTTL time.Duration) *TokenManager {
	return NewTokenManager(
		"secreto-de-acceso-para-pruebas",
		"secreto-de-refresh-para-pruebas",
		accessTTL, 24*time.Hour,
		"resguardo-api", "resguardo-panel")
}

func TestSignVerifyAccess(t *testing.T) {
	m := newTestManager(time.Minute)

	token, err := m.SignAccess("42", "sid-1", 3, RolAdmin)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}

	claims, err := m.VerifyAccess(token)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if claims.Subject != "42" || claims.Sid != "sid-1" {
		t.Fatalf("claims inesperados: sub=%q sid=%q", claims.Subject, claims.Sid)
	}
	if claims.TokenVersion() != 3 {
		t.Fatalf("tv = %d, esperaba 3", claims.TokenVersion())
	}
	if claims.Rol != RolAdmin.String() {
		t.Fatalf("rol = %q", claims.Rol)
	}
}

func TestSignVerifyRefresh(t *testing.T) {
	m := newTestManager(time.Minute)

	token, err := m.SignRefresh("7", "sid-2", 0)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	claims, err := m.VerifyRefresh(token)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if claims.Subject != "7" || claims.Sid != "sid-2" || claims.TokenVersion() != 0 {
		t.Fatalf("claims inesperados: %+v", claims)
	}
}

func TestVerifyRechazaTokenCruzado(t *testing.T) {
	m := newTestManager(time.Minute)

	access, err := m.SignAccess("1", "sid", 0, RolGerente)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	refresh, err := m.SignRefresh("1", "sid", 0)
	if err != nil {
		t.Fatalf("SignRefresh: %v", err)
	}

	// Secretos independientes: un tipo de token no valida como el otro.
	if _, err := m.VerifyRefresh(access); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("access pasó como refresh: %v", err)
	}
	if _, err := m.VerifyAccess(refresh); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("refresh pasó como access: %v", err)
	}
}

func TestVerifyRechazaExpirado(t *testing.T) {
	m := newTestManager(-time.Minute)

	token, err := m.SignAccess("1", "sid", 0, RolAdmin)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("un token expirado verificó: %v", err)
	}
}

func TestVerifyRechazaOtroSecreto(t *testing.T) {
	m := newTestManager(time.Minute)
	otro := NewTokenManager(
		"otro-secreto-de-acceso-distinto",
		"otro-secreto-de-refresh-distinto",
		time.Minute, 24*time.Hour, "resguardo-api", "resguardo-panel")

	token, err := otro.SignAccess("1", "sid", 0, RolAdmin)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("firma ajena verificó: %v", err)
	}
}

func TestVerifyRechazaIssuerDistinto(t *testing.T) {
	m := newTestManager(time.Minute)
	ajeno := NewTokenManager(
		"secreto-de-acceso-para-pruebas",
		"secreto-de-refresh-para-pruebas",
		time.Minute, 24*time.Hour, "otro-emisor", "resguardo-panel")

	token, err := ajeno.SignAccess("1", "sid", 0, RolAdmin)
	if err != nil {
		t.Fatalf("SignAccess: %v", err)
	}
	if _, err := m.VerifyAccess(token); !errors.Is(err, ErrTokenInvalido) {
		t.Fatalf("issuer ajeno verificó: %v", err)
	}
}

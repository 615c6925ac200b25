package rotacion

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/resguardoti/activos/internal/config"
	"github.com/resguardoti/activos/internal/repo"
	"github.com/resguardoti/activos/internal/secrets"
)

type stubCredRepo struct {
	webs        []repo.CredencialWeb
	wifis       []repo.WifiCredencial
	webUpdates  map[int64]secrets.Payload
	wifiUpdates map[int64]secrets.Payload
	fallaWebID  int64
}

func (s *stubCredRepo) ListCredencialesWeb(ctx context.Context) ([]repo.CredencialWeb, error) {
	return s.webs, nil
}

func (s *stubCredRepo) UpdateCredencialWebCifrado(ctx context.Context, id int64, p secrets.Payload) error {
	if id == s.fallaWebID {
		return errors.New("escritura fallida")
	}
	if s.webUpdates == nil {
		s.webUpdates = make(map[int64]secrets.Payload)
	}
	s.webUpdates[id] = p
	return nil
}

func (s *stubCredRepo) ListWifiCredenciales(ctx context.Context) ([]repo.WifiCredencial, error) {
	return s.wifis, nil
}

func (s *stubCredRepo) UpdateWifiCredencialCifrado(ctx context.Context, id int64, p secrets.Payload) error {
	if s.wifiUpdates == nil {
		s.wifiUpdates = make(map[int64]secrets.Payload)
	}
	s.wifiUpdates[id] = p
	return nil
}

func testKey(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, 32))
}

func webRow(t *testing.T, c *secrets.Cipher, id int64, secreto string) repo.CredencialWeb {
	t.Helper()
	p, err := c.Encrypt(secreto)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return repo.CredencialWeb{
		ID:                 id,
		PasswordEnc:        p.Ciphertext,
		PasswordIv:         p.IV,
		PasswordTag:        p.Tag,
		PasswordKeyVersion: p.KeyVersion,
	}
}

func wifiRow(t *testing.T, c *secrets.Cipher, id int64, secreto string) repo.WifiCredencial {
	t.Helper()
	p, err := c.Encrypt(secreto)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	return repo.WifiCredencial{
		ID:                 id,
		PasswordEnc:        p.Ciphertext,
		PasswordIv:         p.IV,
		PasswordTag:        p.Tag,
		PasswordKeyVersion: p.KeyVersion,
	}
}

func TestRunOnceRotaSoloDesactualizados(t *testing.T) {
	vieja, err := secrets.New(testKey(1), "")
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}
	vigente, err := secrets.New(testKey(2), testKey(1))
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}

	r := &stubCredRepo{
		webs: []repo.CredencialWeb{
			webRow(t, vieja, 1, "secreto-viejo"),
			webRow(t, vigente, 2, "secreto-al-dia"),
		},
		wifis: []repo.WifiCredencial{
			wifiRow(t, vieja, 10, "clave-wifi-vieja"),
		},
	}

	svc := NewService(r, vigente, config.RotacionConfig{}, zerolog.Nop())
	rotated, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rotated != 2 {
		t.Fatalf("rotated = %d, esperaba 2", rotated)
	}

	if _, ok := r.webUpdates[2]; ok {
		t.Fatal("una fila al día fue reescrita")
	}

	nuevo, ok := r.webUpdates[1]
	if !ok {
		t.Fatal("la fila v1 no se rotó")
	}
	if nuevo.KeyVersion != 2 {
		t.Fatalf("keyVersion = %d, esperaba 2", nuevo.KeyVersion)
	}
	plain, err := vigente.Decrypt(nuevo)
	if err != nil {
		t.Fatalf("Decrypt tras rotar: %v", err)
	}
	if plain != "secreto-viejo" {
		t.Fatalf("plain = %q", plain)
	}

	if _, ok := r.wifiUpdates[10]; !ok {
		t.Fatal("la credencial wifi v1 no se rotó")
	}
}

func TestRunOnceAislaFallasPorFila(t *testing.T) {
	vieja, err := secrets.New(testKey(1), "")
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}
	vigente, err := secrets.New(testKey(2), testKey(1))
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}

	corrupta := webRow(t, vieja, 1, "secreto-roto")
	corrupta.PasswordTag = base64.StdEncoding.EncodeToString([]byte("tag-invalido-----"))

	r := &stubCredRepo{
		webs: []repo.CredencialWeb{
			corrupta,
			webRow(t, vieja, 2, "secreto-sano"),
			webRow(t, vieja, 3, "no-persiste"),
		},
		fallaWebID: 3,
	}

	svc := NewService(r, vigente, config.RotacionConfig{}, zerolog.Nop())
	rotated, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if rotated != 1 {
		t.Fatalf("rotated = %d, esperaba 1", rotated)
	}

	if _, ok := r.webUpdates[1]; ok {
		t.Fatal("una fila que no descifra fue reescrita")
	}
	if _, ok := r.webUpdates[2]; !ok {
		t.Fatal("la fila sana no se rotó")
	}
}

func TestStartDeshabilitadoEsNoop(t *testing.T) {
	vigente, err := secrets.New(testKey(1), "")
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}

	svc := NewService(&stubCredRepo{}, vigente, config.RotacionConfig{Enabled: false}, zerolog.Nop())
	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	svc.Stop()
}

func TestStartCronInvalido(t *testing.T) {
	vigente, err := secrets.New(testKey(1), "")
	if err != nil {
		t.Fatalf("secrets.New: %v", err)
	}

	svc := NewService(&stubCredRepo{}, vigente,
		config.RotacionConfig{Enabled: true, Cron: "no es cron"}, zerolog.Nop())
	if err := svc.Start(); err == nil {
		t.Fatal("esperaba error con expresión cron inválida")
	}
}

package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
)

func testKey(b byte) string {
	return base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{b}, 32))
}

func TestNewValidaLlaves(t *testing.T) {
	if _, err := New("no-base64!!", ""); err == nil {
		t.Fatal("esperaba error con llave no base64")
	}
	if _, err := New(base64.StdEncoding.EncodeToString([]byte("corta")), ""); err == nil {
		t.Fatal("esperaba error con llave de tamaño incorrecto")
	}
	if _, err := New(testKey(1), "no-base64!!"); err == nil {
		t.Fatal("esperaba error con llave legada inválida")
	}
}

func TestVersionVigente(t *testing.T) {
	sinLegada, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if sinLegada.CurrentVersion() != 1 {
		t.Fatalf("version = %d, esperaba 1", sinLegada.CurrentVersion())
	}

	conLegada, err := New(testKey(2), testKey(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if conLegada.CurrentVersion() != 2 {
		t.Fatalf("version = %d, esperaba 2", conLegada.CurrentVersion())
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	c, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	p, err := c.Encrypt("secreto-del-router")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if p.KeyVersion != 1 {
		t.Fatalf("keyVersion = %d, esperaba 1", p.KeyVersion)
	}

	plain, err := c.Decrypt(p)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plain != "secreto-del-router" {
		t.Fatalf("plain = %q", plain)
	}
}

func TestEncryptRechazaVacio(t *testing.T) {
	c, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Encrypt(""); !errors.Is(err, ErrTextoVacio) {
		t.Fatalf("esperaba ErrTextoVacio, obtuve %v", err)
	}
}

func TestEncryptNonceFresco(t *testing.T) {
	c, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a, err := c.Encrypt("mismo-texto")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := c.Encrypt("mismo-texto")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if a.IV == b.IV || a.Ciphertext == b.Ciphertext {
		t.Fatal("dos cifrados del mismo texto no pueden coincidir")
	}
}

func TestDecryptConLlaveLegada(t *testing.T) {
	vieja, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := vieja.Encrypt("secreto-historico")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// El operador introduce una llave nueva; los sobres v1 siguen abriendo.
	nueva, err := New(testKey(2), testKey(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plain, err := nueva.Decrypt(p)
	if err != nil {
		t.Fatalf("Decrypt v1 con llave legada: %v", err)
	}
	if plain != "secreto-historico" {
		t.Fatalf("plain = %q", plain)
	}
}

func TestDecryptRechazaManipulacion(t *testing.T) {
	c, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := c.Encrypt("secreto-integro")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	flip := func(b64 string) string {
		raw, _ := base64.StdEncoding.DecodeString(b64)
		raw[0] ^= 0x01
		return base64.StdEncoding.EncodeToString(raw)
	}

	casos := map[string]Payload{
		"ciphertext": {Ciphertext: flip(p.Ciphertext), IV: p.IV, Tag: p.Tag, KeyVersion: p.KeyVersion},
		"iv":         {Ciphertext: p.Ciphertext, IV: flip(p.IV), Tag: p.Tag, KeyVersion: p.KeyVersion},
		"tag":        {Ciphertext: p.Ciphertext, IV: p.IV, Tag: flip(p.Tag), KeyVersion: p.KeyVersion},
	}
	for nombre, alterado := range casos {
		if _, err := c.Decrypt(alterado); !errors.Is(err, ErrDescifrado) {
			t.Fatalf("%s alterado descifró: %v", nombre, err)
		}
	}
}

func TestDecryptRechazaVersionDesconocida(t *testing.T) {
	c, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := c.Encrypt("secreto")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	p.KeyVersion = 9
	if _, err := c.Decrypt(p); err == nil {
		t.Fatal("esperaba error con versión desconocida")
	}
}

func TestRotate(t *testing.T) {
	vieja, err := New(testKey(1), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p, err := vieja.Encrypt("secreto-a-rotar")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	nueva, err := New(testKey(2), testKey(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rotado, changed, err := nueva.Rotate(p)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !changed {
		t.Fatal("un sobre v1 debió rotar")
	}
	if rotado.KeyVersion != 2 {
		t.Fatalf("keyVersion = %d, esperaba 2", rotado.KeyVersion)
	}
	plain, err := nueva.Decrypt(rotado)
	if err != nil {
		t.Fatalf("Decrypt tras rotar: %v", err)
	}
	if plain != "secreto-a-rotar" {
		t.Fatalf("plain = %q", plain)
	}

	// Al día: no-op sin re-cifrar.
	mismo, changed, err := nueva.Rotate(rotado)
	if err != nil {
		t.Fatalf("Rotate idempotente: %v", err)
	}
	if changed || mismo != rotado {
		t.Fatal("un sobre vigente no debe rotar")
	}
}

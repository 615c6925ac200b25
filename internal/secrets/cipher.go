// Package secrets implementa el cifrado autenticado (AES-256-GCM) de los
// secretos persistidos, con versionado de llave para rotar sin re-cifrar
// todo de inmediato.
package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	ivLength = 12
	keyBytes = 32
)

var (
	// ErrTextoVacio es retornado al intentar cifrar una cadena vacía.
	ErrTextoVacio = errors.New("texto vacío")
	// ErrDescifrado cubre tag inválido, llave incorrecta y payload corrupto.
	// Nunca se devuelve texto plano de un payload que no autentica.
	ErrDescifrado = errors.New("no se pudo descifrar el secreto")
)

// Payload es el sobre persistido junto a cada secreto.
type Payload struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	Tag        string `json:"tag"`
	KeyVersion int    `json:"keyVersion"`
}

// Cipher resuelve llaves por versión. La versión vigente se calcula una
// sola vez al construirlo: 2 cuando hay llave legada configurada, 1 si no.
// Así un operador introduce una llave nueva y los registros viejos siguen
// descifrando bajo la versión 1.
type Cipher struct {
	current        []byte
	legacy         []byte
	currentVersion int
}

// New valida y decodifica las llaves (base64 de 32 bytes). legacyKeyB64
// puede ser vacía cuando aún no hay rotación en curso.
func New(currentKeyB64, legacyKeyB64 string) (*Cipher, error) {
	current, err := decodeKey(currentKeyB64)
	if err != nil {
		return nil, fmt.Errorf("CREDENTIALS_ENC_KEY: %w", err)
	}

	c := &Cipher{current: current, currentVersion: 1}
	if legacyKeyB64 != "" {
		legacy, err := decodeKey(legacyKeyB64)
		if err != nil {
			return nil, fmt.Errorf("CREDENTIALS_ENC_KEY_V1: %w", err)
		}
		c.legacy = legacy
		c.currentVersion = 2
	}
	return c, nil
}

// CurrentVersion expone la versión con la que se cifran secretos nuevos.
func (c *Cipher) CurrentVersion() int {
	return c.currentVersion
}

// Encrypt cifra con nonce aleatorio fresco bajo la llave vigente.
func (c *Cipher) Encrypt(plain string) (Payload, error) {
	if plain == "" {
		return Payload{}, ErrTextoVacio
	}

	gcm, err := c.aead(c.currentVersion)
	if err != nil {
		return Payload{}, err
	}

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return Payload{}, err
	}

	sealed := gcm.Seal(nil, iv, []byte(plain), nil)
	tagStart := len(sealed) - gcm.Overhead()

	return Payload{
		Ciphertext: base64.StdEncoding.EncodeToString(sealed[:tagStart]),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(sealed[tagStart:]),
		KeyVersion: c.currentVersion,
	}, nil
}

// Decrypt abre el sobre bajo la llave que indica keyVersion. Cualquier
// falla de autenticación se reporta como ErrDescifrado.
func (c *Cipher) Decrypt(p Payload) (string, error) {
	gcm, err := c.aead(p.KeyVersion)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(p.IV)
	if err != nil || len(iv) != ivLength {
		return "", ErrDescifrado
	}
	ciphertext, err := base64.StdEncoding.DecodeString(p.Ciphertext)
	if err != nil {
		return "", ErrDescifrado
	}
	tag, err := base64.StdEncoding.DecodeString(p.Tag)
	if err != nil {
		return "", ErrDescifrado
	}

	plain, err := gcm.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDescifrado
	}
	return string(plain), nil
}

// Rotate re-cifra bajo la versión vigente. Devuelve changed=false cuando
// el payload ya está al día (la pasada de rotación lo persiste solo si
// cambió).
func (c *Cipher) Rotate(p Payload) (Payload, bool, error) {
	if p.KeyVersion == c.currentVersion {
		return p, false, nil
	}
	plain, err := c.Decrypt(p)
	if err != nil {
		return Payload{}, false, err
	}
	rotated, err := c.Encrypt(plain)
	if err != nil {
		return Payload{}, false, err
	}
	return rotated, true, nil
}

func (c *Cipher) aead(version int) (cipher.AEAD, error) {
	var key []byte
	switch version {
	case 2:
		key = c.current
	case 1:
		key = c.legacy
		if key == nil {
			key = c.current
		}
	default:
		return nil, fmt.Errorf("versión de llave desconocida: %d", version)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func decodeKey(b64 string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.New("debe ser base64 válido")
	}
	if len(key) != keyBytes {
		return nil, errors.New("debe ser base64 de 32 bytes")
	}
	return key, nil
}

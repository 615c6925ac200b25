package util

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidateEmail retorna error para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email obligatorio")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email inválido")
	}
	return nil
}

// ValidatePassword verifica el largo mínimo de contraseña (10-200).
func ValidatePassword(password string) error {
	if len(password) < 10 {
		return errors.New("contraseña debe tener al menos 10 caracteres")
	}
	if len(password) > 200 {
		return errors.New("contraseña demasiado larga")
	}
	return nil
}

// ValidateNombre verifica el largo del nombre visible (2-100).
func ValidateNombre(nombre string) error {
	nombre = strings.TrimSpace(nombre)
	if len(nombre) < 2 {
		return errors.New("nombre debe tener al menos 2 caracteres")
	}
	if len(nombre) > 100 {
		return errors.New("nombre demasiado largo")
	}
	return nil
}

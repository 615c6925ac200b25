package auth

import (
	"errors"
	"strings"
)

// Rol es el conjunto cerrado de papeles del sistema.
type Rol string

const (
	RolAdmin      Rol = "ADMIN"
	RolSupervisor Rol = "SUPERVISOR"
	RolGerente    Rol = "GERENTE"
)

// ErrRolInvalido es retornado por ParseRol ante un valor fuera del conjunto.
var ErrRolInvalido = errors.New("rol inválido")

// ParseRol normaliza y valida un rol en texto.
func ParseRol(value string) (Rol, error) {
	switch Rol(strings.ToUpper(strings.TrimSpace(value))) {
	case RolAdmin:
		return RolAdmin, nil
	case RolSupervisor:
		return RolSupervisor, nil
	case RolGerente:
		return RolGerente, nil
	default:
		return "", ErrRolInvalido
	}
}

func (r Rol) String() string {
	return string(r)
}

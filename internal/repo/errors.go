package repo

import "errors"

var (
	// ErrNotFound es retornado cuando ningún registro coincide.
	ErrNotFound = errors.New("registro no encontrado")
	// ErrEmailDuplicado es retornado al violar la unicidad de email.
	ErrEmailDuplicado = errors.New("email ya registrado")
)

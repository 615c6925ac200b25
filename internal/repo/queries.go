package repo

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries agrupa el acceso a datos sobre un pool pgx compartido.
type Queries struct {
	pool *pgxpool.Pool
}

// New crea el repositorio.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

package util

import "time"

// Now devuelve la hora actual en UTC; único punto de lectura del reloj.
func Now() time.Time {
	return time.Now().UTC()
}

package auth

import (
	"errors"
	"testing"
)

func TestParseRol(t *testing.T) {
	cases := map[string]Rol{
		"ADMIN":        RolAdmin,
		"admin":        RolAdmin,
		" Supervisor ": RolSupervisor,
		"GERENTE":      RolGerente,
	}
	for input, want := range cases {
		got, err := ParseRol(input)
		if err != nil {
			t.Fatalf("ParseRol(%q): %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseRol(%q) = %q, esperaba %q", input, got, want)
		}
	}
}

func TestParseRolInvalido(t *testing.T) {
	for _, input := range []string{"", "ROOT", "SUPER_ADMIN"} {
		if _, err := ParseRol(input); !errors.Is(err, ErrRolInvalido) {
			t.Fatalf("ParseRol(%q): esperaba ErrRolInvalido, obtuve %v", input, err)
		}
	}
}

package textnorm

import "testing"

func TestFoldStripsDiacriticsAndCase(t *testing.T) {
	cases := map[string]string{
		"Cargador Génesis":  "cargador genesis",
		"  TELÉFONO AZUL  ": "telefono azul",
		"Batería":           "bateria",
		"plain ascii":       "plain ascii",
		"":                  "",
	}
	for input, want := range cases {
		if got := Fold(input); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", input, got, want)
		}
	}
}

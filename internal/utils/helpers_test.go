package utils

import "testing"

func TestFold(t *testing.T) {
	tests := map[string]string{
		"  Código ":        "codigo",
		"DESCRIÇÃO":        "descricao",
		"Preço   Unitário": "preco unitario",
		"3º Andar":         "3º andar",
		"":                 "",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsWord(t *testing.T) {
	tests := []struct {
		hay, word string
		want      bool
	}{
		{"sofa 3 lugares", "sofa", true},
		{"sofa-cama", "sofa", true},
		{"mesa", "mesa", true},
		{"mesanino", "mesa", false},
		{"cod. produto", "cod", true},
		{"codigo", "cod", false},
		{"", "x", false},
		{"abc", "", false},
	}
	for _, tc := range tests {
		if got := ContainsWord(tc.hay, tc.word); got != tc.want {
			t.Errorf("ContainsWord(%q, %q) = %v", tc.hay, tc.word, got)
		}
	}
}

func TestIsNumeric(t *testing.T) {
	for in, want := range map[string]bool{
		"123":       true,
		"1.234,56":  true,
		"R$ 99,90":  true,
		"12k":       false,
		"Sofá":      false,
		"":          false,
		"1.234.567": true,
		"3º andar":  false,
		"  -4.5  ":  true,
	} {
		if got := IsNumeric(in); got != want {
			t.Errorf("IsNumeric(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("poltrona", 4); got != "polt" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("ção", 2); got != "çã" {
		t.Errorf("Truncate = %q", got)
	}
}

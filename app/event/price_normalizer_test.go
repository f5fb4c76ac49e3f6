package event

import "testing"

func TestPriceNormalizerFreeSynonyms(t *testing.T) {
	n := NewPriceNormalizer()

	tests := []any{
		nil,
		"",
		"   ",
		"0",
		"0.00",
		"0,00",
		"free",
		"Free",
		"FREE",
		"gratis",
		"Gratis",
		"gratuito",
		"GRATUÍTO",
		"de balde",
		"De Balde",
		0,
		int64(0),
		float64(0),
	}

	for _, input := range tests {
		if got := n.Normalize(input); got != FreeOrUnavailable {
			t.Errorf("Expected sentinel for %v (%T), got %q", input, input, got)
		}
	}
}

func TestPriceNormalizerPassthrough(t *testing.T) {
	n := NewPriceNormalizer()

	tests := []struct {
		input any
		want  string
	}{
		{"12€", "12€"},
		{"10 - 15€", "10 - 15€"},
		{"  5€  ", "5€"},
		{"Entrada: 3€", "Entrada: 3€"},
		{12.5, "12.5"},
		{3, "3"},
	}

	for _, tt := range tests {
		if got := n.Normalize(tt.input); got != tt.want {
			t.Errorf("Expected %q for %v, got %q", tt.want, tt.input, got)
		}
	}
}

func TestPriceNormalizerEscapesQuotes(t *testing.T) {
	n := NewPriceNormalizer()

	got := n.Normalize("10€ (L'Entrada)")
	want := "10€ (L''Entrada)"
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestPriceNormalizerIdempotent(t *testing.T) {
	n := NewPriceNormalizer()

	for _, input := range []string{"12€", "free", "0,00", "Entrada: 3€"} {
		once := n.Normalize(input)
		twice := n.Normalize(once)
		if once != twice {
			t.Errorf("Expected idempotent normalization for %q, got %q then %q", input, once, twice)
		}
	}
}

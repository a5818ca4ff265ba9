package agent

import (
	"strings"
	"testing"
)

func TestLimitWords(t *testing.T) {
	short := "Claro, con gusto."
	if got := LimitWords(short, 150); got != short {
		t.Errorf("short text altered: %q", got)
	}

	long := strings.Repeat("palabra ", 200)
	got := LimitWords(long, 150)
	if n := len(strings.Fields(got)); n != 150 {
		t.Errorf("truncated to %d words, want 150", n)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncation marker missing: %q", got[len(got)-10:])
	}
}

func TestLimitWordsTrimsDanglingPunctuation(t *testing.T) {
	got := LimitWords("uno, dos, tres,", 2)
	if got != "uno, dos..." {
		t.Errorf("got %q, want %q", got, "uno, dos...")
	}
}

func TestIsFarewell(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"¡Hasta luego, que tengas feliz día!", true},
		{"Muchas gracias por tu tiempo.", true},
		{"¿Te parece bien el martes a las 9?", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsFarewell(tt.text); got != tt.want {
			t.Errorf("IsFarewell(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestFAQAnswer(t *testing.T) {
	f := DefaultFAQ()
	tests := []struct {
		query    string
		contains string
	}{
		{"¿cuál es la dirección?", "Laureles"},
		{"¿atienden los sábados?", "Lunes a viernes"},
		{"¿tienen whatsapp?", "WhatsApp"},
		{"¿hay parqueadero?", "parqueadero"},
		{"¿cuánto cuesta la consulta?", "Puedo ayudarte con"},
	}
	for _, tt := range tests {
		got := f.Answer(tt.query)
		if !strings.Contains(got, tt.contains) {
			t.Errorf("Answer(%q) = %q, missing %q", tt.query, got, tt.contains)
		}
	}
}

package speech

import "testing"

func TestRepairMojibake(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"damaged accent", "SalomÃ©", "Salomé"},
		{"damaged question mark", "Â¿Quieres agendar?", "¿Quieres agendar?"},
		{"clean text untouched", "¿Quieres agendar una cita con Salomé?", "¿Quieres agendar una cita con Salomé?"},
		{"plain ascii untouched", "Hola, buenos dias", "Hola, buenos dias"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RepairMojibake(tt.in); got != tt.want {
				t.Errorf("RepairMojibake(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeAbbreviations(t *testing.T) {
	got := Normalize("Tu cita es con el Dr. Martínez y la Dra. Rodríguez.")
	want := "Tu cita es con el Doctor Martínez y la Doctora Rodríguez."
	if got != want {
		t.Errorf("Normalize = %q, want %q", got, want)
	}
}

func TestNormalizeMeridiem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a las 8:00 a. m.", "a las 8:00 de la mañana"},
		{"a las 8 AM", "a las 8 de la mañana"},
		{"a las 3:30 PM", "a las 3:30 de la tarde"},
		{"a las 12 p. m.", "a las 12 de la tarde"},
		{"a las 8 p.m.", "a las 8 de la noche"},
		{"a las 6 PM", "a las 6 de la tarde"},
		{"a las 7:15 p. m.", "a las 7:15 de la noche"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeMeridiemConsumesFinalDot(t *testing.T) {
	// The marker's trailing dot must be eaten whether the sentence
	// continues or ends right there.
	tests := []struct {
		in, want string
	}{
		{"Tu cita es a las 8:00 a. m.", "Tu cita es a las 8:00 de la mañana"},
		{"Es a las 9 a. m. en la clínica", "Es a las 9 de la mañana en la clínica"},
		{"Llega a las 4:30 p. m. por favor", "Llega a las 4:30 de la tarde por favor"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMeridiemBoundaries(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, "de la mañana"},
		{11, "de la mañana"},
		{12, "de la tarde"},
		{18, "de la tarde"},
		{19, "de la noche"},
		{23, "de la noche"},
	}
	for _, tt := range tests {
		if got := Meridiem(tt.hour); got != tt.want {
			t.Errorf("Meridiem(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

func TestNormalizeTrims(t *testing.T) {
	if got := Normalize("  hola  "); got != "hola" {
		t.Errorf("Normalize = %q, want %q", got, "hola")
	}
}

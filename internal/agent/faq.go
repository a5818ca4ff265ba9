package agent

import "strings"

// FAQ answers the handful of practice questions patients actually ask.
// Keys are matched by keyword against the normalized query; anything else
// gets the catch-all pointing back to what the table covers.
type FAQ struct {
	Direccion   string
	Sede        string
	Horario     string
	Telefono    string
	WhatsApp    string
	Parqueadero string
}

// DefaultFAQ carries the practice's published answers.
func DefaultFAQ() FAQ {
	return FAQ{
		Direccion:   "Calle 123 #45-67, Medellín (Barrio Laureles).",
		Sede:        "Nuestra sede principal está en Laureles, Medellín.",
		Horario:     "Lunes a viernes de 9:00 a 16:30 (última cita inicia 16:00).",
		Telefono:    "+57 314 000 0000",
		WhatsApp:    "+57 314 000 0000 (solo mensajes).",
		Parqueadero: "Sí, contamos con parqueadero propio (cupo limitado).",
	}
}

var faqKeywords = []struct {
	words []string
	pick  func(f FAQ) string
}{
	{[]string{"dirección", "direccion", "ubica", "ubicación", "dónde", "donde", "cómo llegar", "como llegar"},
		func(f FAQ) string { return f.Direccion }},
	{[]string{"sede"},
		func(f FAQ) string { return f.Sede }},
	{[]string{"horario", "hora", "atienden", "sábado", "sabado", "sábados", "sabados"},
		func(f FAQ) string { return f.Horario }},
	{[]string{"tel", "telefono", "teléfono", "whatsapp", "wasap", "cel", "celular"},
		func(f FAQ) string { return "Tel: " + f.Telefono + " · WhatsApp: " + f.WhatsApp }},
	{[]string{"parqueadero", "parqueo", "parquear"},
		func(f FAQ) string { return f.Parqueadero }},
}

// Answer returns the best FAQ answer for a free-text query.
func (f FAQ) Answer(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, entry := range faqKeywords {
		for _, w := range entry.words {
			if strings.Contains(q, w) {
				return entry.pick(f)
			}
		}
	}
	return "Puedo ayudarte con dirección, horarios, teléfonos, WhatsApp y parqueadero."
}

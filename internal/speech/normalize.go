package speech

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Normalize prepares text for telephony synthesis. It runs once before
// every synthesis call, independent of which backend is selected:
// mojibake repair first, then abbreviation and meridiem expansion. Garbled
// or abbreviated text either synthesizes badly or is mispronounced.
func Normalize(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return t
	}
	t = RepairMojibake(t)
	t = expandAbbreviations(t)
	t = expandMeridiem(t)
	return t
}

// mojibakeMarkers are bytes that show up when UTF-8 text has been decoded
// as latin-1 ("SalomÃ©" for "Salomé", "Â¿" for "¿").
var mojibakeMarkers = []string{"Ã", "Â", "â", "Î"}

// RepairMojibake undoes a single round of UTF-8-read-as-latin-1 damage.
// Text without marker characters is returned untouched, so already-correct
// Spanish is never harmed.
func RepairMojibake(text string) string {
	damaged := false
	for _, m := range mojibakeMarkers {
		if strings.Contains(text, m) {
			damaged = true
			break
		}
	}
	if !damaged {
		return text
	}

	// Re-encode each rune as its latin-1 byte and reinterpret as UTF-8.
	raw := make([]byte, 0, len(text))
	for _, r := range text {
		if r > 0xFF {
			return text
		}
		raw = append(raw, byte(r))
	}
	if !utf8.Valid(raw) {
		return text
	}
	return string(raw)
}

// abbreviations expanded for pronunciation. Dra. must run before Dr.
var abbreviations = []struct{ from, to string }{
	{"Dra.", "Doctora"},
	{"Dr.", "Doctor"},
}

func expandAbbreviations(text string) string {
	for _, a := range abbreviations {
		text = strings.ReplaceAll(text, a.from, a.to)
	}
	return text
}

// The boundary sits inside the alternation, after the final letter: a
// trailing "\b" after "\.?" can never match when the marker ends the
// sentence, which would leave the dot in the spoken text.
var (
	amRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(?:AM\b|a\.?\s*m\b\.?)`)
	pmRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(?:PM\b|p\.?\s*m\b\.?)`)
)

// EveningStartHour is the 24-hour clock hour where "de la tarde" becomes
// "de la noche". Shared with slot display text so a time is spoken the
// same way regardless of which path produced it.
const EveningStartHour = 19

// Meridiem returns the spoken Spanish day period for a 24-hour clock hour.
func Meridiem(hour int) string {
	switch {
	case hour < 12:
		return "de la mañana"
	case hour < EveningStartHour:
		return "de la tarde"
	default:
		return "de la noche"
	}
}

// expandMeridiem rewrites clock times with AM/PM markers into natural
// Spanish day periods ("8 a. m." -> "8 de la mañana"). Synthesizers spell
// out bare letter pairs, which sounds wrong on a phone call.
func expandMeridiem(text string) string {
	text = amRe.ReplaceAllStringFunc(text, func(m string) string {
		hour, minute := splitClock(amRe, m)
		return clockText(hour, minute) + " " + Meridiem(hour%12)
	})
	text = pmRe.ReplaceAllStringFunc(text, func(m string) string {
		hour, minute := splitClock(pmRe, m)
		return clockText(hour, minute) + " " + Meridiem(hour%12+12)
	})
	return text
}

func splitClock(re *regexp.Regexp, match string) (hour int, minute string) {
	sub := re.FindStringSubmatch(match)
	fmt.Sscanf(sub[1], "%d", &hour)
	return hour, sub[2]
}

func clockText(hour int, minute string) string {
	if minute == "" {
		return fmt.Sprintf("%d", hour)
	}
	return fmt.Sprintf("%d:%s", hour, minute)
}

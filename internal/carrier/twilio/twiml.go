package twilio

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/vocero-ai/vocero/internal/carrier"
)

// Spanish speech recognition settings Twilio gathers with.
const (
	gatherLanguage = "es-MX"
	gatherTimeout  = 10
)

type twimlDocument struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any
}

type playVerb struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

type pauseVerb struct {
	XMLName xml.Name `xml:"Pause"`
	Length  int      `xml:"length,attr"`
}

type sayVerb struct {
	XMLName  xml.Name `xml:"Say"`
	Language string   `xml:"language,attr"`
	Text     string   `xml:",chardata"`
}

type gatherVerb struct {
	XMLName               xml.Name `xml:"Gather"`
	Input                 string   `xml:"input,attr"`
	Action                string   `xml:"action,attr"`
	Method                string   `xml:"method,attr"`
	SpeechTimeout         string   `xml:"speechTimeout,attr"`
	Language              string   `xml:"language,attr"`
	Timeout               int      `xml:"timeout,attr"`
	PartialResultCallback string   `xml:"partialResultCallback,attr"`
}

type redirectVerb struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

type hangupVerb struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderResponse writes the TwiML for resp. Speaking verbs come first
// (Play of the signed audio URL, or a Say fallback), then either a
// speech Gather plus a Redirect safety net, or a Hangup.
func (c *Carrier) RenderResponse(w http.ResponseWriter, resp carrier.Response) error {
	doc := twimlDocument{}

	switch {
	case resp.AudioURL != "":
		doc.Verbs = append(doc.Verbs, playVerb{URL: resp.AudioURL}, pauseVerb{Length: 1})
	case resp.Text != "":
		doc.Verbs = append(doc.Verbs, sayVerb{Language: gatherLanguage, Text: resp.Text})
	}

	if resp.GatherNext {
		turnURL := c.cfg.BaseURL + "/webhook/turn"
		doc.Verbs = append(doc.Verbs,
			gatherVerb{
				Input:                 "speech",
				Action:                turnURL,
				Method:                "POST",
				SpeechTimeout:         "auto",
				Language:              gatherLanguage,
				Timeout:               gatherTimeout,
				PartialResultCallback: c.cfg.BaseURL + "/webhook/partial",
			},
			// If the Gather completes with no input, fall through here so
			// the orchestrator sees the silent turn.
			redirectVerb{Method: "POST", URL: turnURL},
		)
	} else {
		doc.Verbs = append(doc.Verbs, hangupVerb{})
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling twiml: %w", err)
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	if _, err := fmt.Fprintf(w, "%s%s", xml.Header, body); err != nil {
		return fmt.Errorf("writing twiml: %w", err)
	}
	return nil
}

// Package twilio implements the carrier contract against the Twilio
// voice REST API and TwiML webhook dialect.
package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vocero-ai/vocero/internal/carrier"
)

const defaultEndpoint = "https://api.twilio.com"

// Config holds Twilio settings. BaseURL is this service's public URL,
// used to build the webhook and callback URLs Twilio will post to.
type Config struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string
	Endpoint   string // override for tests
	Timeout    time.Duration
}

// Carrier is the Twilio backend.
type Carrier struct {
	cfg      Config
	endpoint string
	client   *http.Client
}

// New creates the Twilio carrier.
func New(cfg Config) *Carrier {
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Carrier{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

// Name returns the backend identifier.
func (c *Carrier) Name() string { return "twilio" }

// StartCall places an outbound call. Twilio fetches the greeting TwiML
// from /webhook/answer once the callee picks up.
func (c *Carrier) StartCall(ctx context.Context, req carrier.StartRequest) (string, error) {
	form := url.Values{}
	form.Set("To", req.ToNumber)
	form.Set("From", c.cfg.FromNumber)
	form.Set("Url", c.cfg.BaseURL+"/webhook/answer")
	form.Set("Method", "POST")
	form.Set("StatusCallback", c.cfg.BaseURL+"/webhook/call-status")
	form.Set("StatusCallbackMethod", "POST")
	for _, ev := range []string{"initiated", "ringing", "answered", "completed"} {
		form.Add("StatusCallbackEvent", ev)
	}

	callURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.endpoint, c.cfg.AccountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, callURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating call request: %w", err)
	}
	httpReq.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", carrier.ErrCallRejected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("%w: status %d: %s", carrier.ErrCallRejected, resp.StatusCode, body)
	}

	var created struct {
		Sid string `json:"sid"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding call response: %w", err)
	}
	if created.Sid == "" {
		return "", fmt.Errorf("%w: empty call sid", carrier.ErrCallRejected)
	}
	return created.Sid, nil
}

// ParseTurn extracts the Twilio form fields every webhook carries.
func (c *Carrier) ParseTurn(r *http.Request) (carrier.TurnInput, error) {
	if err := r.ParseForm(); err != nil {
		return carrier.TurnInput{}, fmt.Errorf("parsing webhook form: %w", err)
	}
	in := carrier.TurnInput{
		CallID:     r.PostFormValue("CallSid"),
		SpeechText: strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Status:     r.PostFormValue("CallStatus"),
	}
	if raw := r.PostFormValue("Confidence"); raw != "" {
		if conf, err := strconv.ParseFloat(raw, 64); err == nil {
			in.Confidence = conf
		}
	}
	if in.CallID == "" {
		return in, fmt.Errorf("webhook without CallSid")
	}
	return in, nil
}

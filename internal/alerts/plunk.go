package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultPlunkURL = "https://api.useplunk.com/v1/send"

// PlunkMailer sends email through the Plunk HTTP API.
type PlunkMailer struct {
	apiKey  string
	from    string
	replyTo string
	apiURL  string
	client  *http.Client
}

// NewPlunkMailer returns a Plunk mailer. An empty apiURL uses the public
// endpoint.
func NewPlunkMailer(apiKey, from, replyTo, apiURL string) *PlunkMailer {
	if apiURL == "" {
		apiURL = defaultPlunkURL
	}
	return &PlunkMailer{
		apiKey:  apiKey,
		from:    from,
		replyTo: replyTo,
		apiURL:  apiURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type plunkSendBody struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	From    string `json:"from,omitempty"`
	Reply   string `json:"reply,omitempty"`
}

func (m *PlunkMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.apiKey == "" {
		return fmt.Errorf("plunk not configured: set PLUNK_API_KEY")
	}
	b, err := json.Marshal(plunkSendBody{To: to, Subject: subject, Body: body, From: m.from, Reply: m.replyTo})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if msg, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil && len(msg) > 0 {
			return fmt.Errorf("plunk send failed: status=%d body=%s", resp.StatusCode, msg)
		}
		return fmt.Errorf("plunk send failed: status=%d", resp.StatusCode)
	}
	return nil
}

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	resendBaseURL = "https://api.resend.com"

	// maxResendResponse caps how much of a reply body is read.
	maxResendResponse = 1 << 20
)

var _ Sender = (*ResendProvider)(nil)

// ResendProvider talks to the Resend REST API directly.
type ResendProvider struct {
	apiKey  string
	from    string
	baseURL string
	client  *http.Client
}

// NewResendProvider builds a provider that sends as "fromName <fromAddress>".
func NewResendProvider(apiKey, fromAddress, fromName string) *ResendProvider {
	return &ResendProvider{
		apiKey:  apiKey,
		from:    formatAddress(fromName, fromAddress),
		baseURL: resendBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendAccepted struct {
	ID string `json:"id"`
}

// resendError is the body Resend returns for any 4xx/5xx.
type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func (e *resendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("resend: resend API error: status %d", e.StatusCode)
	}
	return "resend: " + e.Message
}

// Send posts msg to /emails and returns the id Resend assigns.
func (p *ResendProvider) Send(ctx context.Context, msg *Message) (string, error) {
	body, err := json.Marshal(resendEmail{
		From:    p.from,
		To:      []string{formatAddress(msg.ToName, msg.To)},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	raw, err := p.post(ctx, "/emails", body)
	if err != nil {
		return "", err
	}

	var accepted resendAccepted
	if err := json.Unmarshal(raw, &accepted); err != nil {
		return "", fmt.Errorf("parsing resend response: %w", err)
	}
	return accepted.ID, nil
}

// post returns the response body for 2xx replies and a *resendError otherwise.
func (p *ResendProvider) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResendResponse))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < http.StatusBadRequest {
		return raw, nil
	}

	apiErr := &resendError{}
	_ = json.Unmarshal(raw, apiErr)
	apiErr.StatusCode = resp.StatusCode
	return nil, apiErr
}

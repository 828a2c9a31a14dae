// Package notify renders and sends the transactional emails of the site.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultAPIBase is the transactional email API used when none is configured.
const DefaultAPIBase = "https://api.resend.com"

type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Mailer delivers a rendered message and returns the provider's message id.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// HTTPMailer posts messages to a Resend compatible JSON API.
type HTTPMailer struct {
	base   string
	apiKey string
	client *http.Client
}

func NewHTTPMailer(base, apiKey string) *HTTPMailer {
	if base == "" {
		base = DefaultAPIBase
	}
	return &HTTPMailer{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *HTTPMailer) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.base+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode >= 300 {
		return "", fmt.Errorf("send email: %s: %s", res.Status, strings.TrimSpace(string(data)))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode email response: %w", err)
	}
	return out.ID, nil
}

// LogMailer only logs messages. It is used when no API key is configured.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, msg Message) (string, error) {
	logrus.Infof("email to %s: %s", strings.Join(msg.To, ", "), msg.Subject)
	return "logged", nil
}

// Package outbound provides the outbound dispatch bounded context: transport
// senders, threading metadata, and the dispatcher that persists a message
// only after the transport acknowledged it.
package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"outreach_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Mail is one outbound email handed to a transport sender.
type Mail struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
	// Headers carries threading metadata (Message-ID, In-Reply-To,
	// References).
	Headers map[string]string
}

// Sender is the external transport boundary. It returns the
// provider-assigned message identifier when the provider exposes one.
type Sender interface {
	Send(ctx context.Context, mail Mail) (providerID string, err error)
}

// NewSender selects the transport implementation from config.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	switch cfg.GetEmailProvider() {
	case "sendgrid":
		return NewSendGridSender(cfg.GetSendGridAPIKey()), nil
	case "smtp":
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword()), nil
	case "noop":
		return NoopSender{}, nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}

// NoopSender swallows all sends. Used in development environments without
// transport credentials.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Mail) (string, error) {
	return "", nil
}

// ---- SendGrid ----

const sendGridSendURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridSender delivers via the SendGrid v3 HTTP API.
type SendGridSender struct {
	apiKey     string
	sendURL    string
	httpClient *http.Client
}

// NewSendGridSender creates a SendGrid transport sender.
func NewSendGridSender(apiKey string) *SendGridSender {
	return &SendGridSender{
		apiKey:     apiKey,
		sendURL:    sendGridSendURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	Headers          map[string]string   `json:"headers,omitempty"`
}

func (s *SendGridSender) Send(ctx context.Context, mail Mail) (string, error) {
	payload := sgPayload{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: mail.To}}}},
		From:             sgAddress{Email: mail.From},
		Subject:          mail.Subject,
		Headers:          mail.Headers,
	}
	if mail.ReplyTo != "" {
		payload.ReplyTo = &sgAddress{Email: mail.ReplyTo}
	}
	// SendGrid requires text/plain before text/html.
	if mail.Text != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/plain", Value: mail.Text})
	}
	if mail.HTML != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/html", Value: mail.HTML})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sendgrid payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build sendgrid request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sendgrid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("sendgrid status %d: %s", resp.StatusCode, string(data))
	}

	return resp.Header.Get("X-Message-Id"), nil
}

// ---- SMTP ----

// SMTPSender delivers via a direct SMTP connection using go-mail.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
}

// NewSMTPSender creates an SMTP transport sender.
func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	return &SMTPSender{host: host, port: port, username: username, password: password}
}

func (s *SMTPSender) Send(ctx context.Context, mail Mail) (string, error) {
	msg := gomail.NewMsg()
	if err := msg.From(mail.From); err != nil {
		return "", fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(mail.To); err != nil {
		return "", fmt.Errorf("smtp to: %w", err)
	}
	if mail.ReplyTo != "" {
		if err := msg.ReplyTo(mail.ReplyTo); err != nil {
			return "", fmt.Errorf("smtp reply-to: %w", err)
		}
	}
	msg.Subject(mail.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, mail.Text)
	if mail.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, mail.HTML)
	}
	for k, v := range mail.Headers {
		msg.SetGenHeader(gomail.Header(k), v)
	}

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return "", fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	// SMTP exposes no provider id; threading relies on the wire Message-ID.
	return "", nil
}

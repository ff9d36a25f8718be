package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/faceguard/core/internal/domain"
)

// priorityColor is the HTML header color spec.md §4.7 names per priority.
func priorityColor(p domain.Priority) string {
	switch p {
	case domain.PriorityLow:
		return "#2e7d32"
	case domain.PriorityMedium:
		return "#f9a825"
	case domain.PriorityHigh:
		return "#ef6c00"
	case domain.PriorityCritical:
		return "#c62828"
	default:
		return "#546e7a"
	}
}

// EmailAdapter delivers via SMTP with STARTTLS, using net/smtp — there is
// no SMTP client library in the example pack, so this stays on the
// standard library by necessity (see DESIGN.md).
type EmailAdapter struct {
	To func(alert domain.AlertInstance) string
}

func (a EmailAdapter) Send(ctx context.Context, channel domain.NotificationChannel, alert domain.AlertInstance, message string) (string, error) {
	cfg := channel.Config.Email
	if cfg == nil {
		return "", fmt.Errorf("email channel %s missing configuration", channel.ID)
	}
	to := ""
	if a.To != nil {
		to = a.To(alert)
	}
	if to == "" {
		return "", fmt.Errorf("no recipient resolved for alert %s", alert.ID)
	}

	subject := fmt.Sprintf("[FaceGuard] %s alert", alert.Priority)
	html := fmt.Sprintf(`<html><body><div style="border-left:4px solid %s;padding:8px"><h2>%s priority alert</h2><p>%s</p></div></body></html>`,
		priorityColor(alert.Priority), alert.Priority, message)
	text := message

	body := buildMultipartAlternative(cfg.From, to, subject, text, html)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.User != "" {
		auth = smtp.PlainAuth("", cfg.User, cfg.Pass, cfg.Host)
	}

	if cfg.TLS {
		if err := sendTLS(ctx, addr, cfg.Host, auth, cfg.From, []string{to}, body); err != nil {
			return "", err
		}
	} else {
		if err := smtp.SendMail(addr, auth, cfg.From, []string{to}, body); err != nil {
			return "", err
		}
	}
	return "", nil
}

func buildMultipartAlternative(from, to, subject, text, html string) []byte {
	boundary := "faceguard-boundary"
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\n", from, to, subject)
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%s\r\n\r\n", boundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s\r\n\r\n", boundary, html)
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String())
}

// sendTLS connects directly over TLS rather than STARTTLS — used when the
// channel config requests direct TLS on submission ports like 465.
func sendTLS(ctx context.Context, addr, host string, auth smtp.Auth, from string, to []string, body []byte) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("deliveryError: dial smtp: %w", err)
	}
	tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
	client, err := smtp.NewClient(tlsConn, host)
	if err != nil {
		return fmt.Errorf("deliveryError: smtp client: %w", err)
	}
	defer client.Close()

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("deliveryError: smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("deliveryError: %w", err)
	}
	for _, t := range to {
		if err := client.Rcpt(t); err != nil {
			return fmt.Errorf("deliveryError: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("deliveryError: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("deliveryError: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("deliveryError: %w", err)
	}
	return client.Quit()
}

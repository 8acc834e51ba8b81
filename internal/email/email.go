// Package email delivers notification mail through SendGrid.
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	senderName           = "ConnectionPoints"
	passwordResetSubject = "ConnectionPoints Password Reset"
)

// ErrNotConfigured is returned when no API key or sender address is set.
var ErrNotConfigured = errors.New("email: sendgrid is not configured")

// sender is the part of *sendgrid.Client used here.
type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client sends mail from a fixed address.
type Client struct {
	sender sender
	from   string
}

// New returns a Client for the SendGrid API. An empty apiKey or from
// gives a client whose sends fail with ErrNotConfigured.
func New(apiKey, from string) *Client {
	c := &Client{from: from}
	if apiKey != "" {
		c.sender = sendgrid.NewSendClient(apiKey)
	}
	return c
}

// Configured reports whether Send can reach SendGrid.
func (c *Client) Configured() bool {
	return c.sender != nil && c.from != ""
}

// Send delivers one HTML message. Any status >= 400 is an error; nothing
// is retried.
func (c *Client) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	msg := mail.NewSingleEmail(
		mail.NewEmail(senderName, c.from),
		subject,
		mail.NewEmail("", to),
		"",
		htmlBody,
	)

	resp, err := c.sender.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("email: sending to %s: %w", to, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("email: sendgrid returned status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// SendPasswordReset mails a freshly generated password to its owner.
func (c *Client) SendPasswordReset(ctx context.Context, to, newPassword string) error {
	return c.Send(ctx, to, passwordResetSubject, fmt.Sprintf("Your new password is %s.", newPassword))
}

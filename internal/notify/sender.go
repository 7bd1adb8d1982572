// Package notify sends short messages to a phone number or email address.
// Delivery is best-effort: issuing flows must not fail on dispatch errors.
package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Sender dispatches a short text message to a contact address
type Sender interface {
	Send(ctx context.Context, contact, message string) error
}

// Dispatcher routes a message to the SMS or email sender by contact kind
type Dispatcher struct {
	SMS   Sender
	Email Sender
}

// Dispatch sends message via the sender for kind ("phone" or "email"),
// retrying transient failures a few times.
func (d *Dispatcher) Dispatch(ctx context.Context, kind, contact, message string) error {
	var sender Sender
	switch kind {
	case "phone":
		sender = d.SMS
	case "email":
		sender = d.Email
	default:
		return fmt.Errorf("unknown contact kind %q", kind)
	}

	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := sender.Send(ctx, contact, message); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// ConsoleSender logs messages instead of delivering them (development mode)
type ConsoleSender struct {
	Channel string // "SMS" or "EMAIL"
}

// Send logs the message with the contact masked
func (s *ConsoleSender) Send(_ context.Context, contact, message string) error {
	log.Printf("[%s] %s: %s", s.Channel, MaskContact(contact), message)
	return nil
}

// MaskContact masks a phone number or email address for logging
func MaskContact(contact string) string {
	if at := strings.Index(contact, "@"); at > 0 {
		local := contact[:at]
		if len(local) <= 2 {
			return "**" + contact[at:]
		}
		return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + contact[at:]
	}
	if len(contact) <= 4 {
		return "****"
	}
	return contact[:2] + strings.Repeat("*", len(contact)-4) + contact[len(contact)-2:]
}

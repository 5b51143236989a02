// Package payment isolates the external payment processor behind Processor.
package payment

import (
	"context"
	"errors"
)

//go:generate mockgen -source=processor.go -destination=mock_processor.go -package=payment

// Processor statuses the service reacts to. Anything else is a failure.
const (
	StatusSucceeded      = "succeeded"
	StatusRequiresAction = "requires_action"
)

// EventPaymentSucceeded is the webhook event type reconciled against orders
const EventPaymentSucceeded = "payment_intent.succeeded"

// ErrNotConfigured is returned when no processor credentials are set
var ErrNotConfigured = errors.New("payment processor not configured")

// ChargeRequest asks for a single, automatically confirmed charge
type ChargeRequest struct {
	AmountMinor    int64
	Currency       string
	PaymentMethod  string
	ReturnURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

// Charge is the processor's synchronous view of a payment
type Charge struct {
	ID           string
	Status       string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Metadata     map[string]string
}

// Succeeded reports whether the charge completed
func (c *Charge) Succeeded() bool { return c != nil && c.Status == StatusSucceeded }

// RequiresAction reports whether the customer must complete a challenge
func (c *Charge) RequiresAction() bool { return c != nil && c.Status == StatusRequiresAction }

// WebhookEvent is a verified notification pushed by the processor
type WebhookEvent struct {
	ID     string
	Type   string
	Charge Charge
}

type Processor interface {
	// Charge creates and confirms a payment in one call. No retries.
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
	// Retrieve fetches the current state of an earlier charge
	Retrieve(ctx context.Context, id string) (*Charge, error)
	// ParseWebhook verifies the signature and decodes the event
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

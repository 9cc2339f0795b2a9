package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Notification types emitted by the escalator.
const (
	TypeUrgentAlert = "urgent_alert"
	TypeEscalation  = "escalation"
)

// Notification is one outbound, consolidated record. ItemsCount carries the
// number of stalled items behind the alert so a recipient gets a single
// message per run, never one per item.
type Notification struct {
	RecipientUserID string   `json:"recipient_user_id"`
	Type            string   `json:"notification_type"`
	ItemsCount      int      `json:"items_count"`
	ItemIDs         []string `json:"item_ids"`
	Title           string   `json:"title"`
	Body            string   `json:"body,omitempty"`
}

// Sink accepts outbound notification records. Delivery (e-mail, push) is the
// consumer's concern.
type Sink interface {
	Publish(ctx context.Context, n Notification) error
}

// Publisher publishes notification records to NATS.
//
// Subject convention: notifications.approvals.<notification_type>
//
// A nil connection (no NATS_URL configured) disables publishing; records are
// then logged at debug level and treated as delivered.
type Publisher struct {
	nc *nats.Conn
}

// Connect dials NATS. An empty URL returns a disabled publisher rather than
// an error so the analyzers stay usable without a broker.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return &Publisher{}, nil
	}
	nc, err := nats.Connect(url, nats.Name("apflow-mcp"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return &Publisher{nc: nc}, nil
}

// Close drains the underlying connection.
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// Publish sends one notification record. Errors are returned so the caller
// can decide whether the record counts as sent; escalation treats them as
// non-fatal.
func (p *Publisher) Publish(ctx context.Context, n Notification) error {
	if p.nc == nil {
		log.Debug().
			Str("recipient", n.RecipientUserID).
			Int("items", n.ItemsCount).
			Msg("Notification sink disabled, record not published")
		return nil
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	subject := fmt.Sprintf("notifications.approvals.%s", n.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("recipient", n.RecipientUserID).
		Int("items", n.ItemsCount).
		Msg("Notification published")
	return nil
}

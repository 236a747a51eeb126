// Package publisher emits case events under one publish contract.
//
// Every event is wrapped in an Envelope whose header carries the event type,
// origin and a fresh transaction id. Transports only move encoded envelopes.
package publisher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// EventNewAddressReported is raised when a case is built from the Address Index.
const EventNewAddressReported = "NEW_ADDRESS_REPORTED"

// DestinationNewAddress receives NEW_ADDRESS_REPORTED events.
const DestinationNewAddress = "events.new-address"

var (
	ErrEmptyDestination = errors.New("publisher: destination is required")
	ErrEmptyEventType   = errors.New("publisher: event type is required")
)

type Header struct {
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Channel       string    `json:"channel"`
	DateTime      time.Time `json:"dateTime"`
	TransactionID string    `json:"transactionId"`
}

type Envelope struct {
	Header  Header `json:"event"`
	Payload any    `json:"payload"`
}

// Publisher sends payload to destination as an event of eventType and
// returns the envelope that was sent.
type Publisher interface {
	Publish(ctx context.Context, destination, eventType string, payload any) (Envelope, error)
	Close(ctx context.Context) error
}

// Origin fills the non-variable header fields.
type Origin struct {
	Source  string // e.g. "CONTACT_CENTRE_API"
	Channel string // e.g. "CC"
}

// NewEnvelope stamps payload with a header. now and newID may be nil.
func NewEnvelope(o Origin, eventType string, payload any, now func() time.Time, newID func() string) Envelope {
	if now == nil {
		now = time.Now
	}
	if newID == nil {
		newID = uuid.NewString
	}
	return Envelope{
		Header: Header{
			Type:          eventType,
			Source:        o.Source,
			Channel:       o.Channel,
			DateTime:      now().UTC(),
			TransactionID: newID(),
		},
		Payload: payload,
	}
}

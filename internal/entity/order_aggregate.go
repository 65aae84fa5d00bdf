package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// OrderAggregate is the payment state of one order as recorded by its event stream.
type OrderAggregate struct {
	OrderID        string
	Version        int
	Status         PaymentStatus
	PaymentRequest PaymentRequestStatus
	PlacedAt       time.Time
	CompletedAt    time.Time
}

func NewOrderAggregate(orderID string) *OrderAggregate {
	return &OrderAggregate{OrderID: orderID}
}

func (a *OrderAggregate) GetVersion() int {
	return a.Version
}

// ApplyEvent advances the state by one event. Completing twice is ErrOrderCompleted.
func (a *OrderAggregate) ApplyEvent(e Event) error {
	switch e := e.(type) {
	case OrderPlaced:
		a.Status = PaymentPending
		a.PaymentRequest = PaymentRequestPending
		a.PlacedAt = e.PlacedAt
	case OrderCompleted:
		if a.Status == PaymentCompleted {
			return ErrOrderCompleted
		}
		a.Status = PaymentCompleted
		a.CompletedAt = e.CompletedAt
	case PaymentRequestSettled:
		a.PaymentRequest = e.Status
	default:
		return fmt.Errorf("order %s: unexpected event %s", a.OrderID, e.EventType())
	}
	a.Version++
	return nil
}

// decodeOrderEvent turns a stored record back into its event value.
func decodeOrderEvent(rec EventStoreRecord) (Event, error) {
	var (
		e   Event
		err error
	)
	switch rec.EventType {
	case OrderPlaced{}.EventType():
		var v OrderPlaced
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case OrderCompleted{}.EventType():
		var v OrderCompleted
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	case PaymentRequestSettled{}.EventType():
		var v PaymentRequestSettled
		err = json.Unmarshal(rec.Payload, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type in order stream: %s", rec.EventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", rec.EventType, err)
	}
	return e, nil
}

// Rehydrate replays records in version order.
func (a *OrderAggregate) Rehydrate(records []EventStoreRecord) error {
	for _, rec := range records {
		e, err := decodeOrderEvent(rec)
		if err != nil {
			return err
		}
		if err := a.ApplyEvent(e); err != nil {
			return fmt.Errorf("failed to apply event from stream: %w", err)
		}
	}
	return nil
}

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCustomer is returned when an order has no customer.
	ErrInvalidCustomer = errors.New("customer is required")
	// ErrInvalidAmount is returned when an order total is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// EventTypeOrderPlaced is the event type of a placed order.
const EventTypeOrderPlaced = "OrderPlaced"

// PlaceOrderParams represents parameters for placing a new order.
type PlaceOrderParams struct {
	Customer string `json:"customer"`
	Amount   int64  `json:"amount"`
}

// Validate validates the place order parameters.
func (p *PlaceOrderParams) Validate() error {
	if p.Customer == "" {
		return ErrInvalidCustomer
	}

	if p.Amount <= 0 {
		return ErrInvalidAmount
	}

	return nil
}

// OrderPlaced is the event data of a placed order.
type OrderPlaced struct {
	OrderID  string `json:"order_id"`
	Customer string `json:"customer"`
	Amount   int64  `json:"amount"`
}

// PlacedOrder is returned to the caller once the order is committed.
type PlacedOrder struct {
	OrderID  string `json:"order_id"`
	EventID  string `json:"event_id"`
	Stream   string `json:"stream"`
	Position int64  `json:"position"`
}

// OrderStream returns the stream holding the events of one order.
func OrderStream(orderID string) Stream {
	return NewStream(fmt.Sprintf("Order$%s", orderID))
}

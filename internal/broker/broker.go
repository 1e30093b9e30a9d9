package broker

import (
	"context"
	"time"
)

// Order is a market order for a single instrument.
type Order struct {
	Symbol        string
	Side          string // "buy" or "sell"
	Qty           int
	Type          string // always "market"
	TimeInForce   string // always "gtc"
	ClientOrderID string
}

// MarketOrder builds a one-unit good-till-canceled market order.
func MarketOrder(symbol, side string) Order {
	return Order{Symbol: symbol, Side: side, Qty: 1, Type: "market", TimeInForce: "gtc"}
}

// OrderAck is the venue's acknowledgement of an accepted order.
type OrderAck struct {
	ID            string
	ClientOrderID string
	Status        string
	SubmittedAt   time.Time
}

// Broker places orders and reports market hours.
type Broker interface {
	SubmitOrder(ctx context.Context, order Order) (OrderAck, error)
	IsOpen(ctx context.Context) (bool, error)
	Name() string
}

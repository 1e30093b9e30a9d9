package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaperBroker is an in-memory venue that accepts every order unless told to
// fail. It is used for dry runs and tests.
type PaperBroker struct {
	mu     sync.Mutex
	Open   bool
	Fail   error // returned by SubmitOrder when set
	Orders []Order
}

// NewPaperBroker creates a paper venue whose market is open.
func NewPaperBroker() *PaperBroker { return &PaperBroker{Open: true} }

func (p *PaperBroker) Name() string { return "paper" }

func (p *PaperBroker) SubmitOrder(_ context.Context, order Order) (OrderAck, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail != nil {
		return OrderAck{}, fmt.Errorf("paper submit %s %s: %w", order.Side, order.Symbol, p.Fail)
	}
	if order.ClientOrderID == "" {
		order.ClientOrderID = uuid.NewString()
	}
	p.Orders = append(p.Orders, order)
	return OrderAck{
		ID:            uuid.NewString(),
		ClientOrderID: order.ClientOrderID,
		Status:        "filled",
		SubmittedAt:   time.Now(),
	}, nil
}

func (p *PaperBroker) IsOpen(_ context.Context) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Open, nil
}

// Submitted returns a copy of accepted orders.
func (p *PaperBroker) Submitted() []Order {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Order, len(p.Orders))
	copy(out, p.Orders)
	return out
}

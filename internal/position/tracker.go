package position

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"BandTrader/internal/model"
)

// ErrStaleTransition is returned when a planned transition no longer matches
// the position it was planned against.
var ErrStaleTransition = errors.New("stale transition")

// Transition is a planned state change that has not been applied yet.
type Transition struct {
	Instrument string
	Action     model.Action
	Price      float64
	At         time.Time

	from model.Position
}

// Side returns the order side needed to carry out the transition.
func (t Transition) Side() string {
	if t.Action == model.ActionOpen {
		return "buy"
	}
	return "sell"
}

// Tracker holds one Flat/Long position per instrument. It is not safe for
// concurrent use; each tracker belongs to a single driver.
type Tracker struct {
	positions map[string]*model.Position
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*model.Position)}
}

func (t *Tracker) get(instrument string) *model.Position {
	p, ok := t.positions[instrument]
	if !ok {
		p = &model.Position{Instrument: instrument, State: model.StateFlat}
		t.positions[instrument] = p
	}
	return p
}

// Position returns a copy of the instrument's position, creating it flat on first use.
func (t *Tracker) Position(instrument string) model.Position {
	return *t.get(instrument)
}

// Positions returns every known position ordered by instrument.
func (t *Tracker) Positions() []model.Position {
	out := make([]model.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}

// Plan computes the transition for action without mutating state. ok is false
// when the action is a no-op: None, Open while Long, or Close while Flat.
func (t *Tracker) Plan(instrument string, action model.Action, price float64, at time.Time) (Transition, bool) {
	p := t.get(instrument)
	switch {
	case action == model.ActionOpen && !p.IsLong():
	case action == model.ActionClose && p.IsLong():
	default:
		return Transition{}, false
	}
	return Transition{Instrument: instrument, Action: action, Price: price, At: at, from: *p}, true
}

// Commit applies a planned transition and returns the trade it produces.
func (t *Tracker) Commit(tr Transition) (model.Trade, error) {
	p := t.get(tr.Instrument)
	if *p != tr.from {
		return model.Trade{}, fmt.Errorf("%s %s: %w", tr.Instrument, tr.Action, ErrStaleTransition)
	}

	switch tr.Action {
	case model.ActionOpen:
		p.State = model.StateLong
		p.EntryPrice = tr.Price
		p.OpenedAt = tr.At
		return model.Trade{Instrument: tr.Instrument, Kind: model.TradeBuy, Price: tr.Price, Time: tr.At}, nil
	case model.ActionClose:
		profit := tr.Price - p.EntryPrice
		*p = model.Position{Instrument: tr.Instrument, State: model.StateFlat}
		return model.Trade{Instrument: tr.Instrument, Kind: model.TradeSell, Price: tr.Price, Time: tr.At, Profit: &profit}, nil
	default:
		return model.Trade{}, fmt.Errorf("%s: cannot commit action %s", tr.Instrument, tr.Action)
	}
}

// Apply plans and commits in one step. It is used where execution cannot
// fail, such as simulated fills.
func (t *Tracker) Apply(instrument string, action model.Action, price float64, at time.Time) (model.Trade, bool) {
	tr, ok := t.Plan(instrument, action, price, at)
	if !ok {
		return model.Trade{}, false
	}
	trade, err := t.Commit(tr)
	if err != nil {
		return model.Trade{}, false
	}
	return trade, true
}

// Package notify pushes human-readable settlement alerts to operator
// channels. Senders are fan-out targets; a filter keyed on event type picks
// which engine events become alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/boxmeout/poolengine/internal/domain"
	"github.com/boxmeout/poolengine/internal/events"
)

// Sender delivers one formatted alert to a single channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier formats engine events and dispatches them to every configured
// sender. Only event types in the allowed set are forwarded; an empty set
// allows everything.
type Notifier struct {
	senders []Sender
	allowed map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier delivering to senders, filtered to the
// given event types.
func NewNotifier(senders []Sender, eventTypes []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(eventTypes))
	for _, e := range eventTypes {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		allowed: allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// PoolCreated alerts on a newly seeded pool.
func (n *Notifier) PoolCreated(ctx context.Context, pool domain.Pool) {
	msg := fmt.Sprintf("market %s seeded with %s YES / %s NO",
		shortID(pool.MarketID), pool.YesReserve.Dec(), pool.NoReserve.Dec())
	n.notify(ctx, events.TypePoolCreated, "Pool created", msg)
}

// TradeSettled alerts on a settled buy or sell.
func (n *Notifier) TradeSettled(ctx context.Context, t domain.Trade) {
	var event, title, msg string
	switch t.Side {
	case domain.TradeBuy:
		event = events.TypeSharesBought
		title = "Shares bought"
		msg = fmt.Sprintf("%s bought %s %s shares on %s for %s (fee %s)",
			t.Trader, t.AmountOut.Dec(), t.Outcome, shortID(t.MarketID), t.AmountIn.Dec(), t.Fee.Dec())
	case domain.TradeSell:
		event = events.TypeSharesSold
		title = "Shares sold"
		msg = fmt.Sprintf("%s sold %s %s shares on %s for %s net (fee %s)",
			t.Trader, t.AmountIn.Dec(), t.Outcome, shortID(t.MarketID), t.AmountOut.Dec(), t.Fee.Dec())
	default:
		return
	}
	n.notify(ctx, event, title, msg)
}

// notify applies the event filter and dispatches. Delivery failures are
// logged and swallowed; alerts never affect settlement outcomes.
func (n *Notifier) notify(ctx context.Context, event, title, message string) {
	if len(n.allowed) > 0 && !n.allowed[event] {
		return
	}
	if err := n.dispatch(ctx, title, message); err != nil {
		n.logger.ErrorContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}

// shortID truncates a market id for display.
func shortID(id domain.MarketID) string {
	s := id.String()
	return s[:8]
}

// Package kitchen projects order events into the order status cache the API
// answers GET /order/{id}/status from.
package kitchen

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkax "github.com/ariefcatur/go-takeout/internal/kafka"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/orders"
	"github.com/ariefcatur/go-takeout/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

type Projector struct {
	RDB     redis.Cmdable
	Service string
	Log     *slog.Logger
}

func NewProjector(rdb redis.Cmdable, service string, log *slog.Logger) *Projector {
	return &Projector{RDB: rdb, Service: service, Log: logx.OrDiscard(log)}
}

// Handle is the consumer handler for both order topics. Redelivered events
// are skipped by event id. A failed projection releases the dedup mark so
// the uncommitted message is processed again.
func (p *Projector) Handle(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return fmt.Errorf("decode envelope at %s/%d: %w", m.Topic, m.Offset, err)
	}
	snap, ok, err := snapshotOf(env)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	marks := redisx.NewStore(p.RDB)
	dkey := redisx.DedupKey(p.Service, env.EventID)
	fresh, err := marks.SetNX(ctx, dkey, []byte("1"), redisx.TTLDedup)
	if err != nil {
		return fmt.Errorf("dedup mark %s: %w", env.EventID, err)
	}
	if !fresh {
		p.Log.Debug("duplicate event skipped", "action", "project", "event_id", env.EventID)
		return nil
	}

	applied, err := p.store(ctx, snap)
	if err != nil {
		if derr := marks.Del(ctx, dkey); derr != nil {
			p.Log.Error("release dedup mark", "action", "project", "event_id", env.EventID, "error", derr)
		}
		return err
	}
	p.Log.Info("order status projected", "action", "project", "event_type", env.EventType,
		"order_id", snap.OrderID, "status", snap.Status.String(), "applied", applied)
	return nil
}

// store writes snap unless the cache already holds a later status. Status
// numbers only grow along legal transitions and the events of one order
// arrive on two topics, so they may interleave.
func (p *Projector) store(ctx context.Context, snap orders.StatusSnapshot) (bool, error) {
	applied, err := redisx.NewStore(p.RDB).SetIfHigher(ctx, redisx.OrderStatusKey(snap.OrderID),
		kafkax.MustMarshal(snap), int(snap.Status), redisx.TTLStatusCache)
	if err != nil {
		return false, fmt.Errorf("write status of order %d: %w", snap.OrderID, err)
	}
	return applied, nil
}

// snapshotOf maps an event to the status it implies. ok is false for event
// types the kitchen does not track.
func snapshotOf(env orders.Envelope) (orders.StatusSnapshot, bool, error) {
	switch env.EventType {
	case orders.EventOrderSubmitted:
		pl, err := kafkax.UnwrapPayload[orders.OrderSubmittedPayload](env.Payload)
		if err != nil {
			return orders.StatusSnapshot{}, false, err
		}
		return orders.StatusSnapshot{OrderID: pl.OrderID, UserID: pl.UserID, Status: orders.StatusAwaitingPayment, UpdatedAt: env.OccurredAt}, true, nil
	case orders.EventOrderStatusChanged:
		pl, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return orders.StatusSnapshot{}, false, err
		}
		return orders.StatusSnapshot{OrderID: pl.OrderID, UserID: pl.UserID, Status: pl.To, UpdatedAt: env.OccurredAt}, true, nil
	}
	return orders.StatusSnapshot{}, false, nil
}

package cart

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ariefcatur/go-takeout/internal/apperr"
	"github.com/ariefcatur/go-takeout/internal/logx"
	"github.com/ariefcatur/go-takeout/internal/validate"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = apperr.New(apperr.KindNotFound, "cart line not found")

type LineStore interface {
	Increment(ctx context.Context, l Line) (Line, error)
	Decrement(ctx context.Context, userID int64, item ItemRef) (line Line, removed, found bool, err error)
	ListByUser(ctx context.Context, userID int64) ([]Line, error)
	DeleteByUser(ctx context.Context, userID int64) error
}

type TxStore interface {
	LineStore
	InTx(ctx context.Context, fn func(LineStore) error) error
}

type AddRequest struct {
	Item   ItemRef         `json:"item" validate:"required"`
	Flavor *string         `json:"flavor" validate:"omitempty,max=50"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Name   string          `json:"name" validate:"max=50"`
	Image  string          `json:"image" validate:"max=100"`
}

// Service aggregates repeated adds into per-item quantity counters.
type Service struct {
	Store TxStore
	Log   *slog.Logger
}

func NewService(store TxStore, log *slog.Logger) *Service {
	return &Service{Store: store, Log: logx.OrDiscard(log)}
}

// Add increments the user's line for req.Item, creating it with quantity 1.
func (s *Service) Add(ctx context.Context, userID int64, req AddRequest) (Line, error) {
	if err := validate.Struct(req); err != nil {
		return Line{}, err
	}
	line, err := s.Store.Increment(ctx, Line{
		UserID: userID,
		Item:   req.Item,
		Flavor: req.Flavor,
		Amount: req.Amount,
		Name:   req.Name,
		Image:  req.Image,
	})
	if err != nil {
		return Line{}, fmt.Errorf("cart add %s: %w", req.Item, err)
	}
	s.Log.Debug("cart line incremented", "action", "cart_add", "user_id", userID, "item", req.Item.String(), "quantity", line.Quantity)
	return line, nil
}

// Reduce takes one unit off the line; a line at quantity 1 is removed and
// returned with Quantity 0.
func (s *Service) Reduce(ctx context.Context, userID int64, item ItemRef) (Line, error) {
	if err := validate.Struct(item); err != nil {
		return Line{}, err
	}
	var out Line
	err := s.Store.InTx(ctx, func(tx LineStore) error {
		line, removed, found, err := tx.Decrement(ctx, userID, item)
		if err != nil {
			return fmt.Errorf("cart reduce %s: %w", item, err)
		}
		if !found {
			return fmt.Errorf("%s: %w", item, ErrLineNotFound)
		}
		if removed {
			s.Log.Debug("cart line removed", "action", "cart_reduce", "user_id", userID, "item", item.String())
		}
		out = line
		return nil
	})
	return out, err
}

func (s *Service) List(ctx context.Context, userID int64) ([]Line, error) {
	lines, err := s.Store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("cart list: %w", err)
	}
	return lines, nil
}

func (s *Service) Clear(ctx context.Context, userID int64) error {
	if err := s.Store.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("cart clear: %w", err)
	}
	return nil
}

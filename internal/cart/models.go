package cart

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	KindDish    ItemKind = "dish"
	KindSetmeal ItemKind = "setmeal"
)

// ItemRef names exactly one catalog item: a dish or a setmeal.
type ItemRef struct {
	Kind ItemKind `json:"kind" validate:"required,oneof=dish setmeal"`
	ID   int64    `json:"id" validate:"required,gt=0"`
}

func Dish(id int64) ItemRef    { return ItemRef{Kind: KindDish, ID: id} }
func Setmeal(id int64) ItemRef { return ItemRef{Kind: KindSetmeal, ID: id} }

func (r ItemRef) Valid() bool {
	return (r.Kind == KindDish || r.Kind == KindSetmeal) && r.ID > 0
}

func (r ItemRef) String() string { return fmt.Sprintf("%s:%d", r.Kind, r.ID) }

// Line is one aggregated (user, item) entry. Flavor is not part of its key.
type Line struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Item      ItemRef         `json:"item"`
	Flavor    *string         `json:"flavor,omitempty"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	CreatedAt time.Time       `json:"created_at"`
}

// Subtotal is unit amount times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.Amount.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

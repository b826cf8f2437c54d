package orders

import (
	"time"

	"github.com/ariefcatur/go-takeout/internal/cart"
	"github.com/shopspring/decimal"
)

type PayMethod int

const (
	PayWeChat PayMethod = 1
	PayAlipay PayMethod = 2
)

// Order carries a copy of the recipient at submission time. Later edits to
// the address book do not reach it.
type Order struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	Status        Status          `json:"status"`
	UserID        int64           `json:"user_id"`
	AddressBookID int64           `json:"address_book_id"`
	OrderTime     time.Time       `json:"order_time"`
	CheckoutTime  time.Time       `json:"checkout_time"`
	PayMethod     PayMethod       `json:"pay_method"`
	Amount        decimal.Decimal `json:"amount"`
	Remark        string          `json:"remark"`
	Consignee     string          `json:"consignee"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
}

// Line is a cart line frozen into an order.
type Line struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"order_id"`
	Name     string          `json:"name"`
	Item     cart.ItemRef    `json:"item"`
	Flavor   *string         `json:"flavor,omitempty"`
	Quantity int             `json:"quantity"`
	Amount   decimal.Decimal `json:"amount"`
	Image    string          `json:"image"`
}

type View struct {
	Order Order  `json:"order"`
	Lines []Line `json:"lines"`
}

// Filter narrows the staff order search. Zero fields match everything.
type Filter struct {
	Number string
	Status Status
	From   time.Time
	To     time.Time
}

type SubmitRequest struct {
	AddressBookID int64     `json:"address_book_id" validate:"required,gt=0"`
	PayMethod     PayMethod `json:"pay_method" validate:"oneof=1 2"`
	Remark        string    `json:"remark" validate:"max=100"`
}

type SubmitResult struct {
	OrderID   int64           `json:"id"`
	Number    string          `json:"number"`
	Amount    decimal.Decimal `json:"amount"`
	OrderTime time.Time       `json:"order_time"`
}

// StatusSnapshot is what the kitchen projector caches per order.
type StatusSnapshot struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

func fromCart(orderID int64, l cart.Line) Line {
	return Line{
		OrderID:  orderID,
		Name:     l.Name,
		Item:     l.Item,
		Flavor:   l.Flavor,
		Quantity: l.Quantity,
		Amount:   l.Amount,
		Image:    l.Image,
	}
}

func (l Line) toCart(userID int64) cart.Line {
	return cart.Line{
		UserID:   userID,
		Item:     l.Item,
		Flavor:   l.Flavor,
		Quantity: l.Quantity,
		Amount:   l.Amount,
		Name:     l.Name,
		Image:    l.Image,
	}
}

package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the sale state shared by dishes and setmeals.
type Status int

const (
	StatusOffSale Status = 0
	StatusOnSale  Status = 1
)

func (s Status) Valid() bool { return s == StatusOffSale || s == StatusOnSale }

// Statuses lists every sale state; cache invalidation walks all of them.
var Statuses = []Status{StatusOffSale, StatusOnSale}

type CategoryType int

const (
	CategoryDish    CategoryType = 1
	CategorySetmeal CategoryType = 2
)

type Category struct {
	ID        int64        `json:"id"`
	Type      CategoryType `json:"type"`
	Name      string       `json:"name"`
	Sort      int          `json:"sort"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type Dish struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	CategoryID  int64           `json:"category_id"`
	Price       decimal.Decimal `json:"price"`
	Code        string          `json:"code"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Status      Status          `json:"status"`
	Sort        int             `json:"sort"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type Flavor struct {
	ID     int64  `json:"id"`
	DishID int64  `json:"dish_id"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

type Setmeal struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Status      Status          `json:"status"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SetmealDish is one component of a setmeal.
type SetmealDish struct {
	ID        int64           `json:"id"`
	SetmealID int64           `json:"setmeal_id"`
	DishID    int64           `json:"dish_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Copies    int             `json:"copies"`
	Sort      int             `json:"sort"`
}

type DishView struct {
	Dish         Dish     `json:"dish"`
	Flavors      []Flavor `json:"flavors"`
	CategoryName string   `json:"category_name,omitempty"`
}

type SetmealView struct {
	Setmeal      Setmeal       `json:"setmeal"`
	Dishes       []SetmealDish `json:"dishes"`
	CategoryName string        `json:"category_name,omitempty"`
}

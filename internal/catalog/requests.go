package catalog

import "github.com/shopspring/decimal"

type CategoryInput struct {
	Type CategoryType `json:"type" validate:"oneof=1 2"`
	Name string       `json:"name" validate:"required,max=64"`
	Sort int          `json:"sort" validate:"gte=0"`
}

type FlavorInput struct {
	Name  string `json:"name" validate:"required,max=64"`
	Value string `json:"value" validate:"required,max=500"`
}

type DishInput struct {
	Name        string          `json:"name" validate:"required,max=64"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Code        string          `json:"code" validate:"max=64"`
	Image       string          `json:"image" validate:"max=200"`
	Description string          `json:"description" validate:"max=400"`
	Status      Status          `json:"status" validate:"oneof=0 1"`
	Sort        int             `json:"sort" validate:"gte=0"`
	Flavors     []FlavorInput   `json:"flavors" validate:"dive"`
}

func (in DishInput) dish(id int64) Dish {
	return Dish{
		ID:          id,
		Name:        in.Name,
		CategoryID:  in.CategoryID,
		Price:       in.Price,
		Code:        in.Code,
		Image:       in.Image,
		Description: in.Description,
		Status:      in.Status,
		Sort:        in.Sort,
	}
}

func (in DishInput) flavors(dishID int64) []Flavor {
	out := make([]Flavor, 0, len(in.Flavors))
	for _, f := range in.Flavors {
		out = append(out, Flavor{DishID: dishID, Name: f.Name, Value: f.Value})
	}
	return out
}

type SetmealDishInput struct {
	DishID int64           `json:"dish_id" validate:"required,gt=0"`
	Name   string          `json:"name" validate:"required,max=32"`
	Price  decimal.Decimal `json:"price" validate:"gte=0"`
	Copies int             `json:"copies" validate:"gte=1"`
	Sort   int             `json:"sort" validate:"gte=0"`
}

type SetmealInput struct {
	CategoryID  int64              `json:"category_id" validate:"required,gt=0"`
	Name        string             `json:"name" validate:"required,max=64"`
	Price       decimal.Decimal    `json:"price" validate:"gte=0"`
	Status      Status             `json:"status" validate:"oneof=0 1"`
	Code        string             `json:"code" validate:"max=32"`
	Description string             `json:"description" validate:"max=512"`
	Image       string             `json:"image" validate:"max=255"`
	Dishes      []SetmealDishInput `json:"dishes" validate:"required,min=1,dive"`
}

func (in SetmealInput) setmeal(id int64) Setmeal {
	return Setmeal{
		ID:          id,
		CategoryID:  in.CategoryID,
		Name:        in.Name,
		Price:       in.Price,
		Status:      in.Status,
		Code:        in.Code,
		Description: in.Description,
		Image:       in.Image,
	}
}

func (in SetmealInput) components(setmealID int64) []SetmealDish {
	out := make([]SetmealDish, 0, len(in.Dishes))
	for _, d := range in.Dishes {
		out = append(out, SetmealDish{SetmealID: setmealID, DishID: d.DishID, Name: d.Name, Price: d.Price, Copies: d.Copies, Sort: d.Sort})
	}
	return out
}

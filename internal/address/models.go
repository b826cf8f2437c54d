package address

import (
	"strings"
	"time"
)

type Entry struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Consignee    string    `json:"consignee"`
	Phone        string    `json:"phone"`
	Sex          string    `json:"sex"`
	ProvinceCode string    `json:"province_code"`
	ProvinceName string    `json:"province_name"`
	CityCode     string    `json:"city_code"`
	CityName     string    `json:"city_name"`
	DistrictCode string    `json:"district_code"`
	DistrictName string    `json:"district_name"`
	Detail       string    `json:"detail"`
	Label        string    `json:"label"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullAddress joins the region names and the street detail, skipping blanks.
func (e Entry) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{e.ProvinceName, e.CityName, e.DistrictName, e.Detail} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Input is the writable part of an entry.
type Input struct {
	Consignee    string `json:"consignee" validate:"required,max=50"`
	Phone        string `json:"phone" validate:"required,numeric,min=6,max=11"`
	Sex          string `json:"sex" validate:"omitempty,oneof=0 1"`
	ProvinceCode string `json:"province_code" validate:"max=12"`
	ProvinceName string `json:"province_name" validate:"max=32"`
	CityCode     string `json:"city_code" validate:"max=12"`
	CityName     string `json:"city_name" validate:"max=32"`
	DistrictCode string `json:"district_code" validate:"max=12"`
	DistrictName string `json:"district_name" validate:"max=32"`
	Detail       string `json:"detail" validate:"required,max=200"`
	Label        string `json:"label" validate:"max=100"`
}

func (in Input) apply(e *Entry) {
	e.Consignee = in.Consignee
	e.Phone = in.Phone
	e.Sex = in.Sex
	e.ProvinceCode, e.ProvinceName = in.ProvinceCode, in.ProvinceName
	e.CityCode, e.CityName = in.CityCode, in.CityName
	e.DistrictCode, e.DistrictName = in.DistrictCode, in.DistrictName
	e.Detail = in.Detail
	e.Label = in.Label
}

package checkout

import (
	"strings"

	"github.com/dukerupert/atelier/internal/address"
	"github.com/dukerupert/atelier/internal/form"
)

// DefaultCountry is sent with every order.
const DefaultCountry = "Vietnam"

// AddressForm is the shipping form as submitted.
type AddressForm struct {
	FullName     string `form:"full_name" json:"full_name" validate:"required,min=2,max=200"`
	PhoneNumber  string `form:"phone_number" json:"phone_number" validate:"required,number,min=10,max=11"`
	Email        string `form:"email" json:"email" validate:"omitempty,email"`
	ProvinceCode int    `form:"province_code" json:"province_code" validate:"required"`
	DistrictCode int    `form:"district_code" json:"district_code" validate:"required"`
	WardCode     int    `form:"ward_code" json:"ward_code" validate:"required"`
	Detail       string `form:"detail" json:"detail" validate:"required,min=5,max=255"`
	PostalCode   string `form:"postal_code" json:"postal_code" validate:"omitempty,max=20"`
	Notes        string `form:"notes" json:"notes" validate:"max=500"`
}

// Validate trims and checks the form.
func (f *AddressForm) Validate() error {
	form.Trim(f)
	return form.Validate("checkout.address", f)
}

// ShippingAddress is a validated form plus the resolved division names.
type ShippingAddress struct {
	Form  AddressForm   `json:"form"`
	Names address.Names `json:"names"`
}

// FullAddress is "detail, ward, district, province".
func (a ShippingAddress) FullAddress() string {
	parts := []string{a.Form.Detail, a.Names.Ward, a.Names.District, a.Names.Province}
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// City is "ward, district, province", the form the order API stores.
func (a ShippingAddress) City() string {
	return strings.Join([]string{a.Names.Ward, a.Names.District, a.Names.Province}, ", ")
}

package checkout

import (
	"strings"
	"time"

	"github.com/MikeMC777/storefront/internal/apperr"
	"github.com/MikeMC777/storefront/internal/cart"
	"github.com/MikeMC777/storefront/internal/order"
	"github.com/MikeMC777/storefront/internal/user"
)

// Form is the shipping and payment form.
// swagger:model CheckoutForm
type Form struct {
	ReceiverName  string              `json:"receiver_name"  binding:"required,max=150" example:"Somchai Jaidee"`
	Phone         string              `json:"phone"          binding:"required,max=20"  example:"0812345678"`
	AddressLine   string              `json:"address_line"   binding:"required"         example:"99/1 Sukhumvit Rd"`
	City          string              `json:"city"           binding:"max=100"`
	Province      string              `json:"province"       binding:"max=100"`
	PostalCode    string              `json:"postal_code"    binding:"max=10"`
	PaymentMethod order.PaymentMethod `json:"payment_method" binding:"required,oneof=transfer cash credit_card" example:"transfer"`
}

func (f Form) normalized() Form {
	f.ReceiverName = strings.TrimSpace(f.ReceiverName)
	f.Phone = strings.TrimSpace(f.Phone)
	f.AddressLine = strings.TrimSpace(f.AddressLine)
	f.City = strings.TrimSpace(f.City)
	f.Province = strings.TrimSpace(f.Province)
	f.PostalCode = strings.TrimSpace(f.PostalCode)
	return f
}

// Validate repeats the binding rules so callers outside HTTP get the same
// field errors.
func (f Form) Validate() error {
	fields := map[string]string{}
	switch {
	case f.ReceiverName == "":
		fields["receiver_name"] = "receiver name is required"
	case len(f.ReceiverName) > 150:
		fields["receiver_name"] = "receiver name must be at most 150 characters"
	}
	switch {
	case f.Phone == "":
		fields["phone"] = "phone is required"
	case len(f.Phone) > 20:
		fields["phone"] = "phone must be at most 20 characters"
	}
	if f.AddressLine == "" {
		fields["address_line"] = "address is required"
	}
	if len(f.City) > 100 {
		fields["city"] = "city must be at most 100 characters"
	}
	if len(f.Province) > 100 {
		fields["province"] = "province must be at most 100 characters"
	}
	if len(f.PostalCode) > 10 {
		fields["postal_code"] = "postal code must be at most 10 characters"
	}
	if !f.PaymentMethod.Valid() {
		fields["payment_method"] = "payment method must be transfer, cash or credit_card"
	}
	if len(fields) > 0 {
		return apperr.InvalidFields("please correct the checkout form", fields)
	}
	return nil
}

func (f Form) address(userID int64) *user.Address {
	return &user.Address{
		UserID:       userID,
		ReceiverName: f.ReceiverName,
		Phone:        f.Phone,
		AddressLine:  f.AddressLine,
		City:         f.City,
		Province:     f.Province,
		PostalCode:   f.PostalCode,
	}
}

// shippingLine flattens the address into the order snapshot.
func (f Form) shippingLine() string {
	parts := []string{f.AddressLine}
	for _, p := range []string{f.City, f.Province, f.PostalCode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// FormFromAddress prefills the form with a saved address.
func FormFromAddress(a *user.Address) Form {
	if a == nil {
		return Form{}
	}
	return Form{
		ReceiverName: a.ReceiverName,
		Phone:        a.Phone,
		AddressLine:  a.AddressLine,
		City:         a.City,
		Province:     a.Province,
		PostalCode:   a.PostalCode,
	}
}

// Pending is the session-scoped record between submit and confirm.
type Pending struct {
	Form      Form      `json:"form"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Draft is what the checkout page shows before submit.
type Draft struct {
	Lines        []cart.Line `json:"lines"`
	Total        int64       `json:"total"`
	TotalDisplay string      `json:"total_display"`
	Form         Form        `json:"form"`
}

// Result of a submit: either the confirmation summary or the placed order.
type Result struct {
	Pending      *Pending     `json:"pending,omitempty"`
	Lines        []cart.Line  `json:"lines,omitempty"`
	TotalDisplay string       `json:"total_display,omitempty"`
	Order        *order.Order `json:"order,omitempty"`
}

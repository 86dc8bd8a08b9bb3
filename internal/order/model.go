package order

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipping  Status = "shipping"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var Statuses = []Status{StatusPending, StatusPaid, StatusShipping, StatusShipped, StatusDelivered, StatusCancelled}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodTransfer   PaymentMethod = "transfer"
	MethodCash       PaymentMethod = "cash"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodCreditCard || m == MethodTransfer || m == MethodCash
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSuccess   PaymentStatus = "success"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Order struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"user_id,omitempty"`
	TotalPrice   int64     `json:"total_price"`
	Status       Status    `json:"status"`
	ReceiverName string    `json:"receiver_name"`
	Phone        string    `json:"phone"`
	AddressLine  string    `json:"address_line"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Items        []Item    `json:"items"`
	Payments     []Payment `json:"payments,omitempty"`
}

// Item is the price and quantity snapshot taken at checkout.
type Item struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   *int64 `json:"product_id,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

func (it Item) Subtotal() int64 { return it.UnitPrice * int64(it.Quantity) }

type Payment struct {
	ID        int64         `json:"id"`
	OrderID   int64         `json:"order_id"`
	Amount    int64         `json:"amount"`
	Method    PaymentMethod `json:"method"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// Filter selects orders for listings. Zero values mean "any".
type Filter struct {
	UserID int64
	Status Status
	Limit  int
	Offset int
}

// Stats backs the admin dashboard.
type Stats struct {
	Users     int64  `json:"users"`
	Products  int64  `json:"products"`
	Orders    int64  `json:"orders"`
	PaidSales int64  `json:"paid_sales"`
	Display   string `json:"paid_sales_display"`
}

// StatusInput payload for admin status changes.
// swagger:model OrderStatusInput
type StatusInput struct {
	Status Status `json:"status" binding:"required" example:"paid"`
}

package cart

import (
	"fmt"
	"time"
)

// Identity names the owner of a cart: a registered user or an anonymous
// session, never both.
type Identity struct {
	UserID     int64
	SessionKey string
}

func ForUser(id int64) Identity { return Identity{UserID: id} }

func ForSession(key string) Identity { return Identity{SessionKey: key} }

func (id Identity) Valid() bool {
	return (id.UserID > 0) != (id.SessionKey != "")
}

func (id Identity) IsUser() bool { return id.UserID > 0 && id.SessionKey == "" }

func (id Identity) String() string {
	if id.UserID > 0 {
		return fmt.Sprintf("user:%d", id.UserID)
	}
	return "session:" + id.SessionKey
}

type Cart struct {
	ID         int64     `json:"id"`
	UserID     *int64    `json:"user_id,omitempty"`
	SessionKey *string   `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

type Item struct {
	ID        int64 `json:"id"`
	CartID    int64 `json:"cart_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Line is a cart item joined with the live product row.
type Line struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Price     int64   `json:"price"`
	Stock     int     `json:"stock"`
	ImageURL  *string `json:"image_url,omitempty"`
	Quantity  int     `json:"quantity"`
}

func (l Line) Subtotal() int64 { return l.Price * int64(l.Quantity) }

// Total sums live price × quantity over lines.
func Total(lines []Line) int64 {
	var t int64
	for _, l := range lines {
		t += l.Subtotal()
	}
	return t
}

type View struct {
	Lines []Line `json:"lines"`
	Total int64  `json:"total"`
	Count int    `json:"count"`
}

// Action is the step applied by SetQuantity.
type Action string

const (
	Increase Action = "increase"
	Decrease Action = "decrease"
)

// AddInput payload for adding a product.
// swagger:model AddItemInput
type AddInput struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0" example:"1"`
	Quantity  *int  `json:"quantity"   example:"1"`
}

// UpdateInput payload for increase/decrease.
// swagger:model UpdateItemInput
type UpdateInput struct {
	Action Action `json:"action" binding:"required,oneof=increase decrease" example:"increase"`
}

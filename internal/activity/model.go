package activity

import "time"

// Actions recorded by the back-office.
const (
	ActionProductCreated  = "product.created"
	ActionProductUpdated  = "product.updated"
	ActionProductDeleted  = "product.deleted"
	ActionCategoryCreated = "category.created"
	ActionCategoryUpdated = "category.updated"
	ActionCategoryDeleted = "category.deleted"
	ActionOrderStatus     = "order.status"
	ActionOrderCancelled  = "order.cancelled"
	ActionUserRole        = "user.role"
)

const (
	KindProduct  = "product"
	KindCategory = "category"
	KindOrder    = "order"
	KindUser     = "user"
)

type Entry struct {
	ID         int64     `json:"id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Action     string    `json:"action"`
	TargetKind string    `json:"target_kind,omitempty"`
	TargetID   *int64    `json:"target_id,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

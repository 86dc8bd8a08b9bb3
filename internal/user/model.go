package user

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	Phone        *string   `json:"phone,omitempty"`
	Age          *int      `json:"age,omitempty"`
	Role         Role      `json:"role"`
	IsStaff      bool      `json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports back-office capability: admin or owner role, or the staff flag.
func (u *User) IsAdmin() bool {
	return u.IsStaff || u.Role == RoleAdmin || u.Role == RoleOwner
}

// Address is the user's current shipping address.
type Address struct {
	UserID       int64     `json:"user_id"`
	ReceiverName string    `json:"receiver_name"`
	Phone        string    `json:"phone"`
	AddressLine  string    `json:"address_line"`
	City         string    `json:"city,omitempty"`
	Province     string    `json:"province,omitempty"`
	PostalCode   string    `json:"postal_code,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterInput payload of registration.
// swagger:model RegisterInput
type RegisterInput struct {
	Username        string `json:"username"         binding:"required,max=150" example:"somchai"`
	Email           string `json:"email"            binding:"omitempty,email,max=254"`
	Password        string `json:"password"         binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LoginInput payload of login.
// swagger:model LoginInput
type LoginInput struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

// ProfileInput payload of profile edit. Nil fields are left unchanged.
// swagger:model ProfileInput
type ProfileInput struct {
	Email     *string `json:"email"      binding:"omitempty,email,max=254"`
	FirstName *string `json:"first_name" binding:"omitempty,max=150"`
	LastName  *string `json:"last_name"  binding:"omitempty,max=150"`
	Phone     *string `json:"phone"      binding:"omitempty,max=20"`
	Age       *int    `json:"age"        binding:"omitempty,gte=0,lte=150"`
}

// RoleInput payload of the admin role edit.
// swagger:model RoleInput
type RoleInput struct {
	Role Role `json:"role" binding:"required,oneof=customer admin owner" example:"admin"`
}

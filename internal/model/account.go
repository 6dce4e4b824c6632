package model

import (
	"github.com/google/uuid"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

type Account struct {
	Base
	Email        string  `db:"email" json:"email"`
	Name         string  `db:"name" json:"name"`
	Phone        *string `db:"phone" json:"phone,omitempty"`
	PasswordHash string  `db:"password_hash" json:"-"`
	Role         Role    `db:"role" json:"role"`
	Active       bool    `db:"active" json:"active"`
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	AccountID uuid.UUID `json:"account_id"`
	Role      Role      `json:"role"`
	Email     string    `json:"email"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// RegisterRequest is a customer signing up.
type RegisterRequest struct {
	Email    string  `json:"email" binding:"required,email,max=254"`
	Name     string  `json:"name" binding:"required,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
}

// CreateAccountRequest is an administrator creating an account of any role.
type CreateAccountRequest struct {
	Email    string  `json:"email" binding:"required,email,max=254"`
	Name     string  `json:"name" binding:"required,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
	Password string  `json:"password" binding:"required,min=8,max=72"`
	Role     Role    `json:"role" binding:"required,oneof=customer staff admin"`
}

// UpdateAccountRequest changes the fields that are set.
type UpdateAccountRequest struct {
	Email    *string `json:"email" binding:"omitempty,email,max=254"`
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	Role     *Role   `json:"role" binding:"omitempty,oneof=customer staff admin"`
	Active   *bool   `json:"active"`
}

// UpdateProfileRequest is the subset of UpdateAccountRequest an account may
// change on itself.
type UpdateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone    *string `json:"phone" binding:"omitempty,max=30"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
}

type AccountFilters struct {
	Role   Role
	Active *bool
	Search string
	Pagination
}

package domain

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// Account is a credential record. Accounts are provisioned out of band.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:191;not null" json:"email" validate:"required,email"`
	PasswordHash string    `gorm:"size:100;not null" json:"-" validate:"required"`
	FullName     *string   `gorm:"size:128" json:"full_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Account) TableName() string { return "accounts" }

// DisplayName falls back to the email when no full name is set.
func (a *Account) DisplayName() string {
	if a.FullName != nil && *a.FullName != "" {
		return *a.FullName
	}
	return a.Email
}

// RoleBinding grants a role to an account. Kept apart from accounts so one
// account can hold several roles.
type RoleBinding struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	AccountID string `gorm:"size:36;not null;index;uniqueIndex:ux_role_binding" json:"account_id"`
	Role      Role   `gorm:"size:16;not null;uniqueIndex:ux_role_binding" json:"role" validate:"oneof=admin user"`
}

func (RoleBinding) TableName() string { return "role_bindings" }

// Models lists every persisted type, in migration order.
func Models() []any { return []any{&Listing{}, &Account{}, &RoleBinding{}} }

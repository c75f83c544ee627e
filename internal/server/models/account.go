// Package models defines server-side data models.
package models

import (
	"fmt"
	"time"
)

// Role is a closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole validates s as a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// RegistrationStatus is the registration lifecycle state of an account.
type RegistrationStatus string

const (
	StatusPending  RegistrationStatus = "pending"
	StatusApproved RegistrationStatus = "approved"
	StatusRejected RegistrationStatus = "rejected"
)

// ParseRegistrationStatus validates s as a RegistrationStatus.
func ParseRegistrationStatus(s string) (RegistrationStatus, error) {
	switch RegistrationStatus(s) {
	case StatusPending, StatusApproved, StatusRejected:
		return RegistrationStatus(s), nil
	default:
		return "", fmt.Errorf("unknown registration status %q", s)
	}
}

// Account is a persisted identity record.
//
// Invariants kept by the services layer: Email is trimmed and lower-cased,
// PasswordHash is a bcrypt hash, an admin is always approved, and
// RejectionReason is nil unless Status is rejected.
type Account struct {
	ID                  string
	Email               string
	PasswordHash        []byte
	Role                Role
	Status              RegistrationStatus
	RegistrationDetails string
	RejectionReason     *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AccountFilter narrows AccountDirectory.FindAll. Nil fields match anything.
type AccountFilter struct {
	Status *RegistrationStatus
	Role   *Role
}

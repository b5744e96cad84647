package models

import (
	"slices"
	"time"
)

// Role is the back-office role of a user.
type Role string

const (
	RoleAgent Role = "agent"
	RoleAdmin Role = "admin"
)

var Roles = []Role{RoleAgent, RoleAdmin}

func IsRole(v string) bool { return slices.Contains(Roles, Role(v)) }

const (
	UserFieldID        = "id"
	UserFieldEmail     = "email"
	UserFieldRole      = "role"
	UserFieldIsActive  = "is_active"
	UserFieldCreatedAt = "created_at"
)

// User is an agent or admin profile.
type User struct {
	ID        string     `db:"id" bson:"_id" json:"id"`
	Email     string     `db:"email" bson:"email" json:"email"`
	FullName  string     `db:"full_name" bson:"full_name" json:"full_name"`
	Phone     *string    `db:"phone" bson:"phone,omitempty" json:"phone"`
	AvatarURL *string    `db:"avatar_url" bson:"avatar_url,omitempty" json:"avatar_url"`
	Role      Role       `db:"role" bson:"role" json:"role"`
	IsActive  bool       `db:"is_active" bson:"is_active" json:"is_active"`
	LastLogin *time.Time `db:"last_login" bson:"last_login,omitempty" json:"last_login"`
	CreatedAt time.Time  `db:"created_at" bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" bson:"updated_at" json:"updated_at"`
}

// Summary is the compact form embedded in listings and enquiries.
func (u *User) Summary() *AgentSummary {
	return &AgentSummary{ID: u.ID, FullName: u.FullName, Email: u.Email, Phone: u.Phone, AvatarURL: u.AvatarURL}
}

// AgentSummary is a user reference embedded in other records.
type AgentSummary struct {
	ID        string  `json:"id"`
	FullName  string  `json:"full_name"`
	Email     string  `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// RosterEntry is a user with the number of listings and enquiries attributed to them.
type RosterEntry struct {
	User
	ListingCount int64 `json:"listing_count"`
	EnquiryCount int64 `json:"enquiry_count"`
}

// Credentials is the locally stored login secret of a user.
type Credentials struct {
	UserID       string `db:"user_id" bson:"_id"`
	Email        string `db:"email" bson:"email"`
	PasswordHash string `db:"password_hash" bson:"password_hash"`
}

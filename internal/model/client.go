package model

import "time"

type UserRole string

const (
	Student UserRole = "student"
	Admin   UserRole = "admin"
)

// Client is the minimal identity row the JWT middleware resolves against.
// Registration and login live in a separate identity service.
type Client struct {
	BaseModel
	Name       string     `gorm:"size:100" json:"name"`
	Email      string     `gorm:"size:255;uniqueIndex" json:"email"`
	Role       UserRole   `gorm:"size:20;default:'student'" json:"role"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

func (Client) TableName() string {
	return "clients"
}

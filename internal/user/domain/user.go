package domain

import (
	"strings"
	"time"
)

// DefaultRole is assigned when a user is created without one
const DefaultRole = "PLANTA"

// User is a person that can log into the warehouse backend
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	LastName     string    `json:"last_name" db:"last_name"`
	RUT          *string   `json:"rut,omitempty" db:"rut"`
	Phone        *string   `json:"phone,omitempty" db:"phone"`
	Role         string    `json:"role" db:"role"`
	Address      string    `json:"address" db:"address"`
	ComunaID     *int      `json:"comuna_id,omitempty" db:"comuna_id"`
	Position     string    `json:"position" db:"position"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns "first last", falling back to the username
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

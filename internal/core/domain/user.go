package domain

import "time"

// User is a row of the warehouse users table.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// RegistrationOutcome is the tri-state result of a registration:
// created, updated, or neither (unchanged).
type RegistrationOutcome struct {
	User    User   `json:"user"`
	Created bool   `json:"created"`
	Updated bool   `json:"updated"`
	Message string `json:"message"`
}

// UserUpdate carries the fields to change. Nil fields are left untouched.
type UserUpdate struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
}

// Empty reports whether no field is set.
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil
}

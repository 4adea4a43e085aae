package models

import "time"

type UserRequest struct {
	ID           *int    `json:"id" db:"id"`
	Name         *string `json:"name" db:"name"`
	Email        *string `json:"email" db:"email"`
	PasswordHash *string `json:"-" db:"password_hash"`
	Role         *string `json:"role" db:"role"`
	Password     *string `json:"password" db:"-"`
}

type User struct {
	ID           int       `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

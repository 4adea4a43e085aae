package models

import (
	"errors"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	RoleAdmin       = `admin`
	RoleParticipant = `participant`
)

type Claims struct {
	jwt.RegisteredClaims
	UserID int    `json:"userID"`
	Role   string `json:"role"`
}

type TokenResponse struct {
	Token string     `json:"token"`
	User  PublicUser `json:"user"`
}

type PublicUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Package users implements marketplace accounts.
//
// A user can act as a client (posting jobs) or a provider (working jobs) or
// both. Each role carries its own reputation score, maintained by the
// reviews layer as an unweighted mean of received ratings.
package users

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("users: user not found")
	ErrUserExists   = errors.New("users: user already exists")
	ErrInvalidEmail = errors.New("users: invalid email")
)

// Role identifies which side of a job a user is acting on.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleProvider Role = "PROVIDER"
)

// User is a marketplace account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	WalletAddress string    `json:"walletAddress"`

	// Reputation, one score per role. Zero with a zero count means unrated.
	ClientScore     float64 `json:"clientScore"`
	ClientReviews   int64   `json:"clientReviews"`
	ProviderScore   float64 `json:"providerScore"`
	ProviderReviews int64   `json:"providerReviews"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateUserRequest is the payload for account creation.
type CreateUserRequest struct {
	Email         string `json:"email" binding:"required"`
	Name          string `json:"name" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// Store defines the persistence interface for users.
type Store interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByWallet(ctx context.Context, address string) (*User, error)

	// UpdateScore replaces one role's reputation aggregate.
	UpdateScore(ctx context.Context, userID string, role Role, score float64, reviewCount int64) error
}

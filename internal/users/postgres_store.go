package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

const userColumns = `id, email, name, wallet_address,
	client_score, client_reviews, provider_score, provider_reviews,
	created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.WalletAddress,
		&u.ClientScore, &u.ClientReviews, &u.ProviderScore, &u.ProviderReviews,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (p *PostgresStore) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = idgen.WithPrefix("usr_")
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.WalletAddress = strings.ToLower(user.WalletAddress)
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, wallet_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, user.ID, user.Email, user.Name, user.WalletAddress, user.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (p *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (p *PostgresStore) GetByWallet(ctx context.Context, address string) (*User, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE wallet_address = $1`,
		strings.ToLower(address))
	return scanUser(row)
}

func (p *PostgresStore) UpdateScore(ctx context.Context, userID string, role Role, score float64, reviewCount int64) error {
	var query string
	switch role {
	case RoleClient:
		query = `UPDATE users SET client_score = $1, client_reviews = $2, updated_at = NOW() WHERE id = $3`
	case RoleProvider:
		query = `UPDATE users SET provider_score = $1, provider_reviews = $2, updated_at = NOW() WHERE id = $3`
	default:
		return fmt.Errorf("unknown role %q", role)
	}

	result, err := p.db.ExecContext(ctx, query, score, reviewCount, userID)
	if err != nil {
		return fmt.Errorf("update score: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

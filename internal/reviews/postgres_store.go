package reviews

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

const reviewColumns = `id, job_id, reviewer_id, reviewed_user_id, direction, rating, comment, created_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanReview(row scanner) (*Review, error) {
	var r Review
	var comment sql.NullString

	err := row.Scan(&r.ID, &r.JobID, &r.ReviewerID, &r.ReviewedUserID,
		&r.Direction, &r.Rating, &comment, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReviewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan review: %w", err)
	}

	r.Comment = comment.String
	return &r, nil
}

func (p *PostgresStore) Create(ctx context.Context, r *Review) error {
	if r.ID == "" {
		r.ID = idgen.WithPrefix("rev_")
	}
	r.CreatedAt = time.Now()

	var comment sql.NullString
	if r.Comment != "" {
		comment = sql.NullString{String: r.Comment, Valid: true}
	}

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO reviews (id, job_id, reviewer_id, reviewed_user_id, direction, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.JobID, r.ReviewerID, r.ReviewedUserID, r.Direction, r.Rating, comment, r.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateReview
		}
		return fmt.Errorf("create review: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetByJobReviewer(ctx context.Context, jobID, reviewerID string) (*Review, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE job_id = $1 AND reviewer_id = $2`, jobID, reviewerID)
	return scanReview(row)
}

func (p *PostgresStore) ListByUser(ctx context.Context, reviewedUserID string, limit int) ([]*Review, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+reviewColumns+` FROM reviews
		WHERE reviewed_user_id = $1 ORDER BY created_at DESC LIMIT $2
	`, reviewedUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, review)
	}
	return results, rows.Err()
}

func (p *PostgresStore) AverageFor(ctx context.Context, reviewedUserID string, direction Direction) (float64, int64, error) {
	var avg sql.NullFloat64
	var count int64

	err := p.db.QueryRowContext(ctx, `
		SELECT AVG(rating), COUNT(*) FROM reviews
		WHERE reviewed_user_id = $1 AND direction = $2
	`, reviewedUserID, direction).Scan(&avg, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("average rating: %w", err)
	}
	return avg.Float64, count, nil
}

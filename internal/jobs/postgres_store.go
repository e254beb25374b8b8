package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mbd888/jobchain/internal/idgen"
	"github.com/mbd888/jobchain/internal/pagination"
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

const jobColumns = `id, client_id, provider_id, title, description, category,
	amount_wei, status, contract_job_id, tx_hash, client_approved, provider_approved,
	created_at, updated_at, completed_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var providerID, contractJobID, txHash sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(&j.ID, &j.ClientID, &providerID, &j.Title, &j.Description, &j.Category,
		&j.AmountWei, &j.Status, &contractJobID, &txHash, &j.ClientApproved, &j.ProviderApproved,
		&j.CreatedAt, &j.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if providerID.Valid {
		j.ProviderID = &providerID.String
	}
	if contractJobID.Valid {
		j.ContractJobID = &contractJobID.String
	}
	if txHash.Valid {
		j.TxHash = &txHash.String
	}
	if completedAt.Valid {
		j.CompletedAt = &completedAt.Time
	}
	return &j, nil
}

func (p *PostgresStore) Create(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = idgen.WithPrefix("job_")
	}
	job.Status = StatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO jobs (id, client_id, title, description, category, amount_wei, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	`, job.ID, job.ClientID, job.Title, job.Description, job.Category, job.AmountWei, job.Status, job.CreatedAt)

	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Job, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

func (p *PostgresStore) List(ctx context.Context, q Query) ([]*Job, string, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}

	cursor, err := pagination.Decode(q.Cursor)
	if err != nil {
		return nil, "", err
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []interface{}
	var conditions []string

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if q.Status != "" {
		add("status = $%d", string(q.Status))
	}
	if q.Category != "" {
		add("category = $%d", q.Category)
	}
	if q.ClientID != "" {
		add("client_id = $%d", q.ClientID)
	}
	if q.ProviderID != "" {
		add("provider_id = $%d", q.ProviderID)
	}
	if cursor != nil {
		args = append(args, cursor.CreatedAt, cursor.ID)
		conditions = append(conditions,
			fmt.Sprintf("(created_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, q.Limit+1)
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("list jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, "", err
		}
		results = append(results, job)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate jobs: %w", err)
	}

	page, next, _ := pagination.ComputePage(results, q.Limit, func(j *Job) (time.Time, string) {
		return j.CreatedAt, j.ID
	})
	return page, next, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE id = $1 AND status = $2`, id, StatusPending)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing job from a job that already left PENDING.
		if _, getErr := p.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrJobNotPending
	}
	return nil
}

func (p *PostgresStore) Assign(ctx context.Context, a Assignment) error {
	query := `
		UPDATE jobs
		SET provider_id = $1, contract_job_id = $2, tx_hash = NULLIF($3, ''), status = $4, updated_at = NOW()`
	args := []interface{}{a.ProviderID, a.ContractJobID, a.TxHash, StatusInProgress}
	if a.FinalAmountWei != "" {
		args = append(args, a.FinalAmountWei)
		query += fmt.Sprintf(", amount_wei = $%d", len(args))
	}
	args = append(args, a.JobID, StatusPending)
	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d AND provider_id IS NULL", len(args)-1, len(args))

	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("assign provider: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		if _, getErr := p.Get(ctx, a.JobID); getErr != nil {
			return getErr
		}
		return ErrProviderAlreadyAssigned
	}
	return nil
}

func (p *PostgresStore) Approve(ctx context.Context, jobID string, byClient bool) (*Job, error) {
	// The flag set and the both-approved check happen in one statement so
	// two concurrent approvals cannot miss the COMPLETED transition.
	flag := "client_approved"
	other := "provider_approved"
	if !byClient {
		flag, other = other, flag
	}

	row := p.db.QueryRowContext(ctx, `
		UPDATE jobs
		SET `+flag+` = TRUE,
		    status = CASE WHEN `+other+` THEN $1 ELSE status END,
		    completed_at = CASE WHEN `+other+` THEN NOW() ELSE completed_at END,
		    updated_at = NOW()
		WHERE id = $2 AND status = $3 AND `+flag+` = FALSE
		RETURNING `+jobColumns,
		StatusCompleted, jobID, StatusInProgress)

	job, err := scanJob(row)
	if errors.Is(err, ErrJobNotFound) {
		// The guard failed. Read the row to report the precise reason.
		current, getErr := p.Get(ctx, jobID)
		if getErr != nil {
			return nil, getErr
		}
		if current.Status != StatusInProgress {
			return nil, ErrJobNotInProgress
		}
		return nil, ErrAlreadyApproved
	}
	return job, err
}

package proposals

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

const proposalColumns = `id, job_id, provider_id, amount_wei, message,
	counter_amount_wei, status, rejected_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row scanner) (*Proposal, error) {
	var p Proposal
	var amount, message, counter sql.NullString
	var rejectedAt sql.NullTime

	err := row.Scan(&p.ID, &p.JobID, &p.ProviderID, &amount, &message,
		&counter, &p.Status, &rejectedAt, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProposalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan proposal: %w", err)
	}

	p.AmountWei = amount.String
	p.Message = message.String
	p.CounterAmountWei = counter.String
	if rejectedAt.Valid {
		p.RejectedAt = &rejectedAt.Time
	}
	return &p, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (p *PostgresStore) Create(ctx context.Context, proposal *Proposal) error {
	if proposal.ID == "" {
		proposal.ID = idgen.WithPrefix("prop_")
	}
	proposal.Status = StatusPending
	proposal.CreatedAt = time.Now()
	proposal.UpdatedAt = proposal.CreatedAt

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO proposals (id, job_id, provider_id, amount_wei, message, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
	`, proposal.ID, proposal.JobID, proposal.ProviderID,
		nullStr(proposal.AmountWei), nullStr(proposal.Message), proposal.Status, proposal.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return ErrDuplicateProposal
		}
		return fmt.Errorf("create proposal: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Proposal, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE id = $1`, id)
	return scanProposal(row)
}

func (p *PostgresStore) Update(ctx context.Context, proposal *Proposal) error {
	proposal.UpdatedAt = time.Now()

	result, err := p.db.ExecContext(ctx, `
		UPDATE proposals
		SET amount_wei = $1, message = $2, counter_amount_wei = $3,
		    status = $4, rejected_at = $5, updated_at = $6
		WHERE id = $7
	`, nullStr(proposal.AmountWei), nullStr(proposal.Message), nullStr(proposal.CounterAmountWei),
		proposal.Status, nullTime(proposal.RejectedAt), proposal.UpdatedAt, proposal.ID)

	if err != nil {
		return fmt.Errorf("update proposal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrProposalNotFound
	}
	return nil
}

func (p *PostgresStore) ListByJob(ctx context.Context, jobID string) ([]*Proposal, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM proposals WHERE job_id = $1 ORDER BY created_at ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, proposal)
	}
	return results, rows.Err()
}

func (p *PostgresStore) GetActive(ctx context.Context, jobID, providerID string) (*Proposal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE job_id = $1 AND provider_id = $2 AND status IN ($3, $4)
		LIMIT 1
	`, jobID, providerID, StatusPending, StatusCounteroffered)
	return scanProposal(row)
}

func (p *PostgresStore) LatestRejection(ctx context.Context, jobID, providerID string) (*Proposal, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT `+proposalColumns+` FROM proposals
		WHERE job_id = $1 AND provider_id = $2 AND status = $3 AND rejected_at IS NOT NULL
		ORDER BY rejected_at DESC
		LIMIT 1
	`, jobID, providerID, StatusCounterofferRejected)
	return scanProposal(row)
}

func (p *PostgresStore) Accept(ctx context.Context, proposalID, jobID string) error {
	// Both writes ride one transaction so a crash cannot leave the accepted
	// proposal recorded with its rivals still active.
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE proposals SET status = $1, updated_at = NOW() WHERE id = $2
	`, StatusAccepted, proposalID)
	if err != nil {
		return fmt.Errorf("accept proposal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrProposalNotFound
	}

	// Every rival goes to REJECTED, including cooldown rows. The job is
	// leaving PENDING so their old statuses no longer mean anything.
	if _, err := tx.ExecContext(ctx, `
		UPDATE proposals SET status = $1, updated_at = NOW()
		WHERE job_id = $2 AND id <> $3 AND status <> $1
	`, StatusRejected, jobID, proposalID); err != nil {
		return fmt.Errorf("reject sibling proposals: %w", err)
	}

	return tx.Commit()
}

func (p *PostgresStore) DeleteByJob(ctx context.Context, jobID string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM proposals WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete proposals: %w", err)
	}
	return nil
}

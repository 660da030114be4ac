// Package repository persists lenders, their MIS records and aggregate
// statistics on PostgreSQL.
package repository

import (
	"context"
	"errors"

	"lending_crm_backend/internal/lenders/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrNotFound = errors.New("lender not found")

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func New(db DB) *Repository {
	return &Repository{db: db}
}

const lenderColumns = `id, code, name, active, pincode_whitelist, pincode_blacklist, created_at, updated_at`

func scanLender(row pgx.Row) (domain.Lender, error) {
	var l domain.Lender
	err := row.Scan(
		&l.ID, &l.Code, &l.Name, &l.Active,
		&l.PincodeWhitelist, &l.PincodeBlacklist,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lender{}, ErrNotFound
	}
	return l, err
}

// UpsertByCode writes a registry entry, keyed by the lowercase code.
// Existing runtime rows keep their ID so MIS records stay attached.
func (r *Repository) UpsertByCode(ctx context.Context, l domain.Lender) (domain.Lender, error) {
	return scanLender(r.db.QueryRow(ctx, `
		INSERT INTO lenders (code, name, active, pincode_whitelist, pincode_blacklist)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code) DO UPDATE SET
			name = EXCLUDED.name,
			active = EXCLUDED.active,
			pincode_whitelist = EXCLUDED.pincode_whitelist,
			pincode_blacklist = EXCLUDED.pincode_blacklist,
			updated_at = now()
		RETURNING `+lenderColumns,
		l.Code, l.Name, l.Active, l.PincodeWhitelist, l.PincodeBlacklist,
	))
}

func (r *Repository) GetByCode(ctx context.Context, code string) (domain.Lender, error) {
	return scanLender(r.db.QueryRow(ctx,
		`SELECT `+lenderColumns+` FROM lenders WHERE code = $1`, code))
}

func (r *Repository) List(ctx context.Context) ([]domain.Lender, error) {
	rows, err := r.db.Query(ctx, `SELECT `+lenderColumns+` FROM lenders ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Lender
	for rows.Next() {
		l, err := scanLender(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// InsertMISRecords stores a batch of MIS rows in one transaction and links
// each row to a lead by mobile number where one exists.
func (r *Repository) InsertMISRecords(ctx context.Context, lenderID int64, records []domain.MISRecord) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO lender_mis (lender_id, lender_lead_id, mobile, status, disbursed_amount, reported_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lender_id, lender_lead_id) DO UPDATE SET
				status = EXCLUDED.status,
				disbursed_amount = EXCLUDED.disbursed_amount,
				reported_at = EXCLUDED.reported_at
		`, lenderID, rec.LenderLeadID, rec.Mobile, rec.Status, rec.DisbursedAmount, rec.ReportedAt)
		if err != nil {
			return 0, err
		}
		inserted++
	}

	_, err = tx.Exec(ctx, `
		UPDATE lender_mis m SET lead_id = l.id
		FROM leads l
		WHERE m.lender_id = $1 AND m.lead_id IS NULL AND m.mobile = l.phone_number
	`, lenderID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return inserted, nil
}

// RecomputeStats rebuilds the aggregate row for one lender from its MIS
// records.
func (r *Repository) RecomputeStats(ctx context.Context, lenderID int64) (domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRow(ctx, `
		INSERT INTO lender_stats (lender_id, total_records, linked_records, disbursals, disbursed_amount, computed_at)
		SELECT
			$1,
			count(*),
			count(lead_id),
			count(*) FILTER (WHERE status = 'disbursed'),
			coalesce(sum(disbursed_amount) FILTER (WHERE status = 'disbursed'), 0),
			now()
		FROM lender_mis WHERE lender_id = $1
		ON CONFLICT (lender_id) DO UPDATE SET
			total_records = EXCLUDED.total_records,
			linked_records = EXCLUDED.linked_records,
			disbursals = EXCLUDED.disbursals,
			disbursed_amount = EXCLUDED.disbursed_amount,
			computed_at = EXCLUDED.computed_at
		RETURNING lender_id, total_records, linked_records, disbursals, disbursed_amount, computed_at
	`, lenderID).Scan(&s.LenderID, &s.TotalRecords, &s.LinkedRecords, &s.Disbursals, &s.DisbursedAmount, &s.ComputedAt)
	return s, err
}

// RecomputeAllStats refreshes the aggregates for every lender. Used by the
// scheduled maintenance task.
func (r *Repository) RecomputeAllStats(ctx context.Context) (int64, error) {
	lenders, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, l := range lenders {
		if _, err := r.RecomputeStats(ctx, l.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (r *Repository) GetStats(ctx context.Context, lenderID int64) (domain.Stats, error) {
	var s domain.Stats
	err := r.db.QueryRow(ctx, `
		SELECT lender_id, total_records, linked_records, disbursals, disbursed_amount, computed_at
		FROM lender_stats WHERE lender_id = $1
	`, lenderID).Scan(&s.LenderID, &s.TotalRecords, &s.LinkedRecords, &s.Disbursals, &s.DisbursedAmount, &s.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Stats{}, ErrNotFound
	}
	return s, err
}

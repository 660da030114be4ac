// Package repository implements the natural-key lead store on PostgreSQL.
// Leads are looked up, inserted and updated by phone_number only; every
// write runs in a single transaction together with the companion metadata
// touch so the "one meta row per lead" invariant holds.
package repository

import (
	"context"
	"errors"
	"time"

	"lending_crm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when no lead exists for the given phone number.
var ErrNotFound = errors.New("lead not found")

// DB is the narrow database surface the repository needs. *pgxpool.Pool
// satisfies it in production; pgxmock satisfies it in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

type Repository struct {
	db DB
}

func New(db DB) *Repository {
	return &Repository{db: db}
}

const leadColumns = `id, phone_number, first_name, last_name, email, pan_number, date_of_birth, age, gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode, consent_taken, status, created_at, updated_at`

const selectLeadByPhone = `SELECT ` + leadColumns + ` FROM leads WHERE phone_number = $1`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var lead domain.Lead
	err := row.Scan(
		&lead.ID, &lead.PhoneNumber, &lead.FirstName, &lead.LastName, &lead.Email,
		&lead.PANNumber, &lead.DateOfBirth, &lead.Age, &lead.Gender, &lead.City,
		&lead.State, &lead.PinCode, &lead.Profession, &lead.MonthlyIncome,
		&lead.BureauScore, &lead.IncomeMode, &lead.ConsentTaken, &lead.Status,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, ErrNotFound
	}
	return lead, err
}

// GetByPhone returns the lead stored under the given 10-digit phone number.
func (r *Repository) GetByPhone(ctx context.Context, phoneNumber string) (domain.Lead, error) {
	return scanLead(r.db.QueryRow(ctx, selectLeadByPhone, phoneNumber))
}

// Upsert creates or updates the lead stored under phoneNumber, applying
// every present field of the map over the existing record. Age is derived
// from the final date_of_birth as the last step before persisting. The
// companion meta row is touched in the same transaction. Returns the stored
// record and whether it was newly created.
func (r *Repository) Upsert(ctx context.Context, phoneNumber string, fields domain.FieldMap, source string) (domain.Lead, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Lead{}, false, err
	}
	defer tx.Rollback(ctx)

	existing, err := scanLead(tx.QueryRow(ctx, selectLeadByPhone+` FOR UPDATE`, phoneNumber))

	var lead domain.Lead
	var created bool
	switch {
	case err == nil:
		lead, err = update(ctx, tx, merge(existing, fields))
		if err != nil {
			return domain.Lead{}, false, err
		}
	case errors.Is(err, ErrNotFound):
		created = true
		lead, err = insert(ctx, tx, merge(domain.Lead{PhoneNumber: phoneNumber, Status: domain.StatusPending}, fields))
		if err != nil {
			return domain.Lead{}, false, err
		}
	default:
		return domain.Lead{}, false, err
	}

	if err := touchMeta(ctx, tx, lead.ID, source); err != nil {
		return domain.Lead{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Lead{}, false, err
	}
	return lead, created, nil
}

// merge overwrites every present field of the map onto the lead and
// recomputes the derived age. Absent fields keep their stored values.
func merge(lead domain.Lead, fields domain.FieldMap) domain.Lead {
	if fields.FirstName != nil {
		lead.FirstName = *fields.FirstName
	}
	if fields.LastName != nil {
		lead.LastName = *fields.LastName
	}
	if fields.Email != nil {
		lead.Email = fields.Email
	}
	if fields.PANNumber != nil {
		lead.PANNumber = *fields.PANNumber
	}
	if fields.DateOfBirth != nil {
		lead.DateOfBirth = fields.DateOfBirth
	}
	if fields.Gender != nil {
		lead.Gender = *fields.Gender
	}
	if fields.City != nil {
		lead.City = *fields.City
	}
	if fields.State != nil {
		lead.State = *fields.State
	}
	if fields.PinCode != nil {
		lead.PinCode = *fields.PinCode
	}
	if fields.Profession != nil {
		lead.Profession = *fields.Profession
	}
	if fields.MonthlyIncome != nil {
		lead.MonthlyIncome = fields.MonthlyIncome
	}
	if fields.BureauScore != nil {
		lead.BureauScore = fields.BureauScore
	}
	if fields.IncomeMode != nil {
		lead.IncomeMode = *fields.IncomeMode
	}
	if fields.ConsentTaken != nil {
		lead.ConsentTaken = *fields.ConsentTaken
	}
	if fields.Status != nil {
		lead.Status = domain.Status(*fields.Status)
	}

	// Derived, never supplied directly.
	lead.Age = domain.CalculateAge(lead.DateOfBirth, time.Now())
	return lead
}

func insert(ctx context.Context, tx pgx.Tx, lead domain.Lead) (domain.Lead, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO leads (
			phone_number, first_name, last_name, email, pan_number,
			date_of_birth, age, gender, city, state, pin_code, profession,
			monthly_income, bureau_score, income_mode, consent_taken, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, created_at, updated_at
	`,
		lead.PhoneNumber, lead.FirstName, lead.LastName, lead.Email, lead.PANNumber,
		lead.DateOfBirth, lead.Age, lead.Gender, lead.City, lead.State, lead.PinCode,
		lead.Profession, lead.MonthlyIncome, lead.BureauScore, lead.IncomeMode,
		lead.ConsentTaken, lead.Status,
	)
	if err := row.Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func update(ctx context.Context, tx pgx.Tx, lead domain.Lead) (domain.Lead, error) {
	row := tx.QueryRow(ctx, `
		UPDATE leads SET
			first_name = $2, last_name = $3, email = $4, pan_number = $5,
			date_of_birth = $6, age = $7, gender = $8, city = $9, state = $10,
			pin_code = $11, profession = $12, monthly_income = $13,
			bureau_score = $14, income_mode = $15, consent_taken = $16,
			status = $17, updated_at = now()
		WHERE phone_number = $1
		RETURNING updated_at
	`,
		lead.PhoneNumber, lead.FirstName, lead.LastName, lead.Email, lead.PANNumber,
		lead.DateOfBirth, lead.Age, lead.Gender, lead.City, lead.State, lead.PinCode,
		lead.Profession, lead.MonthlyIncome, lead.BureauScore, lead.IncomeMode,
		lead.ConsentTaken, lead.Status,
	)
	if err := row.Scan(&lead.UpdatedAt); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// touchMeta upserts the companion metadata row. Every lead has exactly one;
// first_seen_at is written once, last_seen_at and source on every write.
func touchMeta(ctx context.Context, tx pgx.Tx, leadID int64, source string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO lead_meta (lead_id, source, first_seen_at, last_seen_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (lead_id) DO UPDATE SET last_seen_at = now(), source = EXCLUDED.source
	`, leadID, source)
	return err
}

// RecomputeAges refreshes the derived age column for every lead with a
// date of birth and clears it for those without. Returns affected rows.
func (r *Repository) RecomputeAges(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE leads SET
			age = CASE
				WHEN date_of_birth IS NULL THEN NULL
				ELSE EXTRACT(YEAR FROM age(current_date, date_of_birth))::int
			END,
			updated_at = now()
	`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

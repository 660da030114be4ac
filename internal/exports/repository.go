// Package exports streams filtered lead data as CSV for the dashboard.
package exports

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"lending_crm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Filter narrows the lead export. Zero values mean "no constraint".
type Filter struct {
	Status         string
	City           string
	MinBureauScore *int
	MaxBureauScore *int
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	db DB
}

func NewRepository(db DB) *Repository {
	return &Repository{db: db}
}

const exportColumns = `phone_number, first_name, last_name, email, pan_number, date_of_birth, age, gender, city, state, pin_code, profession, monthly_income, bureau_score, income_mode, consent_taken, status, created_at`

// StreamLeads runs the filtered query and invokes fn once per lead, in
// created_at order. fn returning an error stops the scan.
func (r *Repository) StreamLeads(ctx context.Context, f Filter, fn func(domain.Lead) error) error {
	query, args := buildQuery(f)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var lead domain.Lead
		err := rows.Scan(
			&lead.PhoneNumber, &lead.FirstName, &lead.LastName, &lead.Email,
			&lead.PANNumber, &lead.DateOfBirth, &lead.Age, &lead.Gender,
			&lead.City, &lead.State, &lead.PinCode, &lead.Profession,
			&lead.MonthlyIncome, &lead.BureauScore, &lead.IncomeMode,
			&lead.ConsentTaken, &lead.Status, &lead.CreatedAt,
		)
		if err != nil {
			return err
		}
		if err := fn(lead); err != nil {
			return err
		}
	}
	return rows.Err()
}

func buildQuery(f Filter) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.City != "" {
		add("lower(city) = lower($%d)", f.City)
	}
	if f.MinBureauScore != nil {
		add("bureau_score >= $%d", *f.MinBureauScore)
	}
	if f.MaxBureauScore != nil {
		add("bureau_score <= $%d", *f.MaxBureauScore)
	}
	if f.CreatedFrom != nil {
		add("created_at >= $%d", *f.CreatedFrom)
	}
	if f.CreatedTo != nil {
		add("created_at < $%d", *f.CreatedTo)
	}

	query := `SELECT ` + exportColumns + ` FROM leads`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at`
	return query, args
}

// exportHeader is the column order of the exported CSV.
var exportHeader = []string{
	"phone_number", "first_name", "last_name", "email", "pan_number",
	"date_of_birth", "age", "gender", "city", "state", "pin_code",
	"profession", "monthly_income", "bureau_score", "income_mode",
	"consent_taken", "status", "created_at",
}

func leadToRecord(lead domain.Lead) []string {
	record := make([]string, 0, len(exportHeader))
	record = append(record, lead.PhoneNumber, lead.FirstName, lead.LastName)
	if lead.Email != nil {
		record = append(record, *lead.Email)
	} else {
		record = append(record, "")
	}
	record = append(record, lead.PANNumber)
	if lead.DateOfBirth != nil {
		record = append(record, lead.DateOfBirth.Format("2006-01-02"))
	} else {
		record = append(record, "")
	}
	if lead.Age != nil {
		record = append(record, strconv.Itoa(*lead.Age))
	} else {
		record = append(record, "")
	}
	record = append(record, lead.Gender, lead.City, lead.State, lead.PinCode, lead.Profession)
	if lead.MonthlyIncome != nil {
		record = append(record, strconv.FormatFloat(*lead.MonthlyIncome, 'f', 2, 64))
	} else {
		record = append(record, "")
	}
	if lead.BureauScore != nil {
		record = append(record, strconv.Itoa(*lead.BureauScore))
	} else {
		record = append(record, "")
	}
	record = append(record, lead.IncomeMode, strconv.FormatBool(lead.ConsentTaken),
		string(lead.Status), lead.CreatedAt.Format(time.RFC3339))
	return record
}

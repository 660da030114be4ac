package repository

import (
	"context"
	"testing"
	"time"

	"lending_crm_backend/internal/leads/domain"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leadRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "phone_number", "first_name", "last_name", "email", "pan_number",
		"date_of_birth", "age", "gender", "city", "state", "pin_code", "profession",
		"monthly_income", "bureau_score", "income_mode", "consent_taken", "status",
		"created_at", "updated_at",
	})
}

func TestRepository_GetByPhone(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM leads WHERE phone_number = \$1`).
		WithArgs("9876543210").
		WillReturnRows(leadRows().AddRow(
			int64(7), "9876543210", "Asha", "Verma", nil, "ABCPV1234K",
			nil, nil, "", "Pune", "", "", "", nil, nil, "", false,
			domain.StatusPending, now, now,
		))

	lead, err := repo.GetByPhone(context.Background(), "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(7), lead.ID)
	assert.Equal(t, "Asha", lead.FirstName)
	assert.Equal(t, "ABCPV1234K", lead.PANNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByPhone_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)

	mock.ExpectQuery(`SELECT .* FROM leads WHERE phone_number = \$1`).
		WithArgs("9999999999").
		WillReturnError(pgx.ErrNoRows)

	_, err = repo.GetByPhone(context.Background(), "9999999999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_Upsert_CreatesWhenAbsent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM leads WHERE phone_number = \$1 FOR UPDATE`).
		WithArgs("9876543210").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO leads`).
		WithArgs(
			"9876543210", "Asha", "", (*string)(nil), "", (*time.Time)(nil), pgxmock.AnyArg(), "", "", "",
			"", "", (*float64)(nil), (*int)(nil), "", false, domain.StatusPending,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(int64(1), now, now))
	mock.ExpectExec(`INSERT INTO lead_meta`).
		WithArgs(int64(1), "csv_upload").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	first := "Asha"
	lead, created, err := repo.Upsert(context.Background(), "9876543210",
		domain.FieldMap{FirstName: &first}, "csv_upload")

	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1), lead.ID)
	assert.Equal(t, "Asha", lead.FirstName)
	assert.Equal(t, domain.StatusPending, lead.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Upsert_UpdatesExisting(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT .* FROM leads WHERE phone_number = \$1 FOR UPDATE`).
		WithArgs("9876543210").
		WillReturnRows(leadRows().AddRow(
			int64(3), "9876543210", "Asha", "Verma", nil, "",
			nil, nil, "", "Pune", "", "", "", nil, nil, "", false,
			domain.StatusPending, now, now,
		))
	mock.ExpectQuery(`UPDATE leads SET`).
		WithArgs(
			"9876543210", "Asha", "Verma", (*string)(nil), "ABCPV1234K", (*time.Time)(nil),
			pgxmock.AnyArg(), "", "Mumbai", "", "", "", (*float64)(nil), (*int)(nil), "", false,
			domain.StatusPending,
		).
		WillReturnRows(pgxmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectExec(`INSERT INTO lead_meta`).
		WithArgs(int64(3), "api").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	pan := "ABCPV1234K"
	city := "Mumbai"
	lead, created, err := repo.Upsert(context.Background(), "9876543210",
		domain.FieldMap{PANNumber: &pan, City: &city}, "api")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(3), lead.ID)
	assert.Equal(t, "Asha", lead.FirstName, "absent fields keep their stored values")
	assert.Equal(t, "Mumbai", lead.City)
	assert.Equal(t, "ABCPV1234K", lead.PANNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMerge_RecomputesAge(t *testing.T) {
	dob := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)
	lead := merge(domain.Lead{PhoneNumber: "9876543210"}, domain.FieldMap{DateOfBirth: &dob})

	require.NotNil(t, lead.Age)
	want := domain.CalculateAge(&dob, time.Now())
	assert.Equal(t, *want, *lead.Age)
}

func TestMerge_ClearsAgeWithoutDOB(t *testing.T) {
	age := 33
	lead := merge(domain.Lead{PhoneNumber: "9876543210", Age: &age}, domain.FieldMap{})
	assert.Nil(t, lead.Age)
}

func TestRepository_RecomputeAges(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)

	mock.ExpectExec(`UPDATE leads SET`).
		WillReturnResult(pgxmock.NewResult("UPDATE", 42))

	n, err := repo.RecomputeAges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

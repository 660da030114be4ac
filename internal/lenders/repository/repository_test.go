package repository

import (
	"context"
	"testing"
	"time"

	"lending_crm_backend/internal/lenders/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_InsertMISRecords_NilDisbursedAmount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	reported := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	amount := 150000.0

	// Rows without a disbursed_amount value arrive with a nil pointer and
	// must persist as NULL, not fail the batch.
	records := []domain.MISRecord{
		{LenderLeadID: "0f2b7f2a-bd19-4a65-a32a-0c7f8d2f8f11", Mobile: "9876543210", Status: "approved", DisbursedAmount: nil, ReportedAt: reported},
		{LenderLeadID: "2cbb5f63-8a01-44a5-9f4e-9d5ce0a6d9a2", Mobile: "9123456789", Status: "disbursed", DisbursedAmount: &amount, ReportedAt: reported},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO lender_mis`).
		WithArgs(int64(4), "0f2b7f2a-bd19-4a65-a32a-0c7f8d2f8f11", "9876543210", "approved", (*float64)(nil), reported).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO lender_mis`).
		WithArgs(int64(4), "2cbb5f63-8a01-44a5-9f4e-9d5ce0a6d9a2", "9123456789", "disbursed", &amount, reported).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`UPDATE lender_mis m SET lead_id = l.id`).
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	inserted, err := repo.InsertMISRecords(context.Background(), 4, records)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RecomputeStats(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := New(mock)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO lender_stats`).
		WithArgs(int64(4)).
		WillReturnRows(pgxmock.NewRows([]string{
			"lender_id", "total_records", "linked_records", "disbursals", "disbursed_amount", "computed_at",
		}).AddRow(int64(4), int64(10), int64(6), int64(2), 300000.0, now))

	stats, err := repo.RecomputeStats(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stats.TotalRecords)
	assert.Equal(t, int64(2), stats.Disbursals)
	assert.Equal(t, 300000.0, stats.DisbursedAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

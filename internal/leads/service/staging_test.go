package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/validator"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStaging(t *testing.T, store Store) (*Staging, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	val := validator.New()
	require.NoError(t, RegisterDomainTags(val))
	svc := New(store, &recordingBus{}, val, logger.New("development"))
	return NewStaging(rdb, svc, 30*time.Minute, logger.New("development")), mr
}

const stagingCSV = "phone_number,first_name,city\n9876543210,Asha,Pune\n9123456789,Ravi,Delhi\n"

func TestStaging_StageThenConfirm(t *testing.T) {
	store := newFakeStore()
	staging, _ := newTestStaging(t, store)
	ctx := context.Background()

	staged, err := staging.Stage(ctx, "leads.csv", strings.NewReader(stagingCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, staged.StagingID)
	assert.Equal(t, 2, staged.RowCount)
	assert.Equal(t, []string{"phone_number", "first_name", "city"}, staged.Columns)
	require.Len(t, staged.Preview, 2)
	assert.Equal(t, "Asha", staged.Preview[0]["first_name"])

	assert.Equal(t, 0, store.upserts, "staging writes nothing to the database")

	summary, err := staging.Confirm(ctx, staged.StagingID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Created)

	// Confirming consumed the entry.
	_, err = staging.Confirm(ctx, staged.StagingID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStaging_Cancel(t *testing.T) {
	store := newFakeStore()
	staging, _ := newTestStaging(t, store)
	ctx := context.Background()

	staged, err := staging.Stage(ctx, "leads.csv", strings.NewReader(stagingCSV))
	require.NoError(t, err)

	require.NoError(t, staging.Cancel(ctx, staged.StagingID))
	assert.Equal(t, 0, store.upserts)

	err = staging.Cancel(ctx, staged.StagingID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStaging_ExpiredEntryIsGone(t *testing.T) {
	store := newFakeStore()
	staging, mr := newTestStaging(t, store)
	ctx := context.Background()

	staged, err := staging.Stage(ctx, "leads.csv", strings.NewReader(stagingCSV))
	require.NoError(t, err)

	mr.FastForward(time.Hour)

	_, err = staging.Confirm(ctx, staged.StagingID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestStaging_RejectsHeaderWithoutPhoneColumn(t *testing.T) {
	staging, _ := newTestStaging(t, newFakeStore())

	_, err := staging.Stage(context.Background(), "bad.csv",
		strings.NewReader("name,city\nAsha,Pune\n"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

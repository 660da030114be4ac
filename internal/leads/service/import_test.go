package service

import (
	"context"
	"strings"
	"testing"

	"lending_crm_backend/platform/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCSV_CreatesAndUpdates(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	csvData := strings.Join([]string{
		"Mobile,First_Name,City,Pin_Code",
		"9876543210,Asha,Pune,1001",
		"9123456789,Ravi,Delhi,110001",
		"98-765-43210,,Mumbai,", // same digits as row 2
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData), SourceLeadCSV)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.Failed)

	lead := store.leads["9876543210"]
	assert.Equal(t, "Asha", lead.FirstName, "update row without a name keeps the stored one")
	assert.Equal(t, "Mumbai", lead.City)
	assert.Equal(t, "001001", lead.PinCode, "short pincode is zero-padded on the CSV path")
}

func TestImportCSV_RowNumbersCountHeader(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	csvData := strings.Join([]string{
		"phone_number,first_name",
		"12345,Bad",
		"9876543210,Good",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData), SourceLeadCSV)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 2, summary.Errors[0].Row, "first data row is row 2")
}

func TestImportCSV_BadOptionalValuesAreDropped(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	csvData := strings.Join([]string{
		"phone_number,date_of_birth,monthly_income",
		"9876543210,not-a-date,garbage",
	}, "\n")

	summary, err := svc.ImportCSV(context.Background(), strings.NewReader(csvData), SourceLeadCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 0, summary.Failed, "lenient path drops bad optional values")

	lead := store.leads["9876543210"]
	assert.Nil(t, lead.DateOfBirth)
	assert.Nil(t, lead.MonthlyIncome)
}

func TestImportCSV_RejectsHeaderWithoutPhoneColumn(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	_, err := svc.ImportCSV(context.Background(),
		strings.NewReader("first_name,city\nAsha,Pune\n"), SourceLeadCSV)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestImportCSV_EmptyFile(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(""), SourceLeadCSV)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest))
}

package service

import (
	"context"
	"testing"

	"lending_crm_backend/internal/events"
	"lending_crm_backend/internal/leads/domain"
	"lending_crm_backend/internal/leads/repository"
	"lending_crm_backend/internal/leads/transport"
	"lending_crm_backend/platform/apperr"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore keeps leads in a map keyed by phone number and applies the same
// merge rule as the real repository: present fields overwrite.
type fakeStore struct {
	leads   map[string]domain.Lead
	nextID  int64
	upserts int
	failErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[string]domain.Lead)}
}

func (f *fakeStore) GetByPhone(_ context.Context, phoneNumber string) (domain.Lead, error) {
	lead, ok := f.leads[phoneNumber]
	if !ok {
		return domain.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) Upsert(_ context.Context, phoneNumber string, fields domain.FieldMap, _ string) (domain.Lead, bool, error) {
	f.upserts++
	if f.failErr != nil {
		return domain.Lead{}, false, f.failErr
	}
	lead, ok := f.leads[phoneNumber]
	if !ok {
		f.nextID++
		lead = domain.Lead{ID: f.nextID, PhoneNumber: phoneNumber, Status: domain.StatusPending}
	}
	apply(&lead, fields)
	f.leads[phoneNumber] = lead
	return lead, !ok, nil
}

func (f *fakeStore) RecomputeAges(context.Context) (int64, error) {
	return int64(len(f.leads)), nil
}

func apply(lead *domain.Lead, fields domain.FieldMap) {
	if fields.FirstName != nil {
		lead.FirstName = *fields.FirstName
	}
	if fields.LastName != nil {
		lead.LastName = *fields.LastName
	}
	if fields.PANNumber != nil {
		lead.PANNumber = *fields.PANNumber
	}
	if fields.City != nil {
		lead.City = *fields.City
	}
	if fields.PinCode != nil {
		lead.PinCode = *fields.PinCode
	}
	if fields.DateOfBirth != nil {
		lead.DateOfBirth = fields.DateOfBirth
	}
	if fields.MonthlyIncome != nil {
		lead.MonthlyIncome = fields.MonthlyIncome
	}
	if fields.Status != nil {
		lead.Status = domain.Status(*fields.Status)
	}
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService(store Store, bus events.Bus) *Service {
	val := validator.New()
	if err := RegisterDomainTags(val); err != nil {
		panic(err)
	}
	return New(store, bus, val, logger.New("development"))
}

func strp(s string) *string { return &s }

func TestService_Upsert_CreateThenUpdate(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	resp, created, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "98765 43210",
		FirstName:   strp("Asha"),
	}, SourceAPI)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "9876543210", resp.PhoneNumber, "phone stored as bare 10 digits")
	assert.Equal(t, "Asha", resp.FirstName)

	resp, created, err = svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "9876543210",
		City:        strp("Mumbai"),
	}, SourceAPI)
	require.NoError(t, err)
	assert.False(t, created, "same 10 digits address the same record")
	assert.Equal(t, "Asha", resp.FirstName, "earlier fields survive")
	assert.Equal(t, "Mumbai", resp.City)

	require.Len(t, bus.published, 2)
	first, ok := bus.published[0].(events.LeadUpserted)
	require.True(t, ok)
	assert.True(t, first.Created)
	assert.Equal(t, "9876543210", first.PhoneNumber)
}

func TestService_Upsert_RejectsBadPhone(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	_, _, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "12345",
	}, SourceAPI)
	require.Error(t, err)
	assert.Equal(t, 0, store.upserts, "nothing written on validation failure")
}

func TestService_Upsert_RejectsNonMobileNumber(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	// Ten digits, but not an assignable Indian mobile prefix.
	_, _, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "1234567890",
	}, SourceAPI)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, store.upserts)
}

func TestService_Upsert_RejectsBadPAN(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	_, _, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "9876543210",
		PANNumber:   strp("ABCQM1234Z"),
	}, SourceAPI)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, store.upserts)

	_, _, err = svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "9876543210",
		PANNumber:   strp("abcpm1234z"),
	}, SourceAPI)
	require.NoError(t, err, "case is normalized before the PAN structure check")
}

func TestService_Upsert_RejectsBadPinCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	_, _, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "9876543210",
		PinCode:     strp("1001"),
	}, SourceAPI)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, store.upserts)
}

func TestService_Upsert_StrictRejectsBadDOB(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	_, _, err := svc.Upsert(context.Background(), transport.UpsertLeadRequest{
		PhoneNumber: "9876543210",
		DateOfBirth: strp("15th June 1990"),
	}, SourceAPI)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Equal(t, 0, store.upserts)
}

func TestService_GetByPhone_NormalizesLookup(t *testing.T) {
	store := newFakeStore()
	store.leads["9876543210"] = domain.Lead{ID: 1, PhoneNumber: "9876543210", FirstName: "Asha", Status: domain.StatusPending}
	svc := newTestService(store, &recordingBus{})

	resp, err := svc.GetByPhone(context.Background(), "98765-43210")
	require.NoError(t, err)
	assert.Equal(t, "Asha", resp.FirstName)

	_, err = svc.GetByPhone(context.Background(), "9999999999")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

package item

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lostfound-api/internal/application/quota"
	"github.com/lostfound-api/internal/application/verify"
	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockItemRepo struct{ mock.Mock }

func (m *mockItemRepo) Put(ctx context.Context, it *domain.Item) error {
	return m.Called(ctx, it).Error(0)
}
func (m *mockItemRepo) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	args := m.Called(ctx, itemID)
	if it, _ := args.Get(0).(*domain.Item); it != nil {
		return it, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockItemRepo) Scan(ctx context.Context) ([]domain.Item, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Item), args.Error(1)
}
func (m *mockItemRepo) AppendSighting(ctx context.Context, itemID string, s domain.Sighting) error {
	return m.Called(ctx, itemID, s).Error(0)
}
func (m *mockItemRepo) AppendClaim(ctx context.Context, itemID string, c domain.Claim) error {
	return m.Called(ctx, itemID, c).Error(0)
}
func (m *mockItemRepo) MarkResolved(ctx context.Context, itemID string) error {
	return m.Called(ctx, itemID).Error(0)
}

type mockPhotoStore struct{ mock.Mock }

func (m *mockPhotoStore) UploadBase64(ctx context.Context, key, b64 string) (string, error) {
	args := m.Called(ctx, key, b64)
	return args.String(0), args.Error(1)
}
func (m *mockPhotoStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockPhotoStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, to, subject, body string) bool {
	return m.Called(ctx, to, subject, body).Bool(0)
}

// --- builder ---

type fixture struct {
	repo     *mockItemRepo
	photos   *mockPhotoStore
	notifier *mockNotifier
	verified verify.Set
	quota    quota.Tracker
	svc      Service
}

func newFixture(t *testing.T, claimConsumes bool) *fixture {
	t.Helper()
	f := &fixture{
		repo:     &mockItemRepo{},
		photos:   &mockPhotoStore{},
		notifier: &mockNotifier{},
		verified: verify.NewMemorySet(),
		quota:    quota.NewMemoryTracker(2),
	}
	f.svc = NewService(ServiceDeps{
		Repo:                      f.repo,
		Photos:                    f.photos,
		Gate:                      verify.NewGate(nil, f.verified, nil),
		Quota:                     f.quota,
		Notifier:                  f.notifier,
		EmailRule:                 domain.NewEmailRule("inst.edu"),
		ClaimConsumesVerification: claimConsumes,
	})
	return f
}

const (
	reporterEmail = "alice2020.beme21@inst.edu"
	memberEmail   = "bob2021.btechcse24@inst.edu"
)

func validCreate() domain.CreateItemRequest {
	return domain.CreateItemRequest{
		Name:          "Blue backpack",
		Description:   "Left near the gym",
		Location:      "Gym block",
		Status:        domain.StatusLost,
		ReporterName:  "Alice",
		ReporterEmail: reporterEmail,
	}
}

func openItem() *domain.Item {
	return &domain.Item{
		ItemID:        "item-1",
		Name:          "Blue backpack",
		Status:        domain.StatusLost,
		ReporterEmail: reporterEmail,
		Sightings:     []domain.Sighting{},
		Claims:        []domain.Claim{},
	}
}

// --- Create ---

func TestCreate_NotVerified(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Create(context.Background(), validCreate())
	assert.True(t, errors.Is(err, domain.ErrNotVerified))
}

func TestCreate_MissingFields_BadRequest(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)

	req := validCreate()
	req.Name = ""
	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))

	// The failed request did not burn the verification.
	assert.True(t, f.verified.Contains(reporterEmail))
}

func TestCreate_ResolvedInitialStatus_Rejected(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)

	req := validCreate()
	req.Status = domain.StatusResolved
	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestCreate_HappyPath_ConsumesVerification(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Item")).Return(nil)

	it, err := f.svc.Create(context.Background(), validCreate())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLost, it.Status)
	assert.NotEmpty(t, it.ItemID)

	// The verification is single-use: an immediate second create fails.
	_, err = f.svc.Create(context.Background(), validCreate())
	assert.True(t, errors.Is(err, domain.ErrNotVerified))
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreate_PhotoUploadFailure_AbortsWithStorageError(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.photos.On("UploadBase64", mock.Anything, mock.Anything, "Zm9v").Return("", errors.New("s3 down"))

	req := validCreate()
	req.PhotoName = "bag.jpg"
	req.PhotoBase64 = "Zm9v"
	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	f.repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_WithPhoto_StoresKeyAndURL(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.photos.On("UploadBase64", mock.Anything, mock.Anything, "Zm9v").Return("s3://bucket/key", nil)
	f.repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Item")).Return(nil)

	req := validCreate()
	req.PhotoName = "bag.jpg"
	req.PhotoBase64 = "Zm9v"
	it, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, it.PhotoKey, "bag.jpg")
	assert.Equal(t, "s3://bucket/key", it.PhotoURL)
}

func TestCreate_PersistFailure_CleansUpUploadedPhoto(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.photos.On("UploadBase64", mock.Anything, mock.Anything, "Zm9v").Return("s3://bucket/key", nil)
	f.repo.On("Put", mock.Anything, mock.AnythingOfType("*domain.Item")).Return(errors.New("dynamo down"))
	f.photos.On("Delete", mock.Anything, mock.Anything).Return(nil)

	req := validCreate()
	req.PhotoName = "bag.jpg"
	req.PhotoBase64 = "Zm9v"
	_, err := f.svc.Create(context.Background(), req)
	assert.True(t, errors.Is(err, domain.ErrStorage))
	f.photos.AssertCalled(t, "Delete", mock.Anything, mock.Anything)
}

// --- RecordSighting ---

func TestRecordSighting_InvalidEmail_NoQuotaMutated(t *testing.T) {
	f := newFixture(t, true)

	req := domain.SightingRequest{Name: "Bob", Contact: "123", Details: "saw it", Email: "bob@gmail.com"}
	_, err := f.svc.RecordSighting(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))

	// Quota untouched: both admits are still available.
	require.NoError(t, f.quota.TryReserve(quota.KindSighting, "bob@gmail.com"))
	require.NoError(t, f.quota.TryReserve(quota.KindSighting, "bob@gmail.com"))
}

func TestRecordSighting_ItemNotFound(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "nope").Return(nil, domain.ErrNotFound)

	req := domain.SightingRequest{Name: "Bob", Contact: "123", Details: "saw it", Email: memberEmail}
	_, err := f.svc.RecordSighting(context.Background(), "nope", req)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRecordSighting_ResolvedItem_Conflict(t *testing.T) {
	f := newFixture(t, true)
	resolved := openItem()
	resolved.Status = domain.StatusResolved
	f.repo.On("Get", mock.Anything, "item-1").Return(resolved, nil)

	req := domain.SightingRequest{Name: "Bob", Contact: "123", Details: "saw it", Email: memberEmail}
	_, err := f.svc.RecordSighting(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

func TestRecordSighting_QuotaAdmitsTwoThenRejects(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("AppendSighting", mock.Anything, "item-1", mock.AnythingOfType("domain.Sighting")).Return(nil)
	f.notifier.On("Notify", mock.Anything, reporterEmail, mock.Anything, mock.Anything).Return(true)

	req := domain.SightingRequest{Name: "Bob", Contact: "123", Details: "saw it", Email: memberEmail}

	for i := 0; i < 2; i++ {
		res, err := f.svc.RecordSighting(context.Background(), "item-1", req)
		require.NoError(t, err)
		assert.True(t, res.Notified)
	}

	_, err := f.svc.RecordSighting(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))

	// The quota rejection generated no notification.
	f.notifier.AssertNumberOfCalls(t, "Notify", 2)
}

func TestRecordSighting_NotifierFailure_SoftFlag(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("AppendSighting", mock.Anything, "item-1", mock.AnythingOfType("domain.Sighting")).Return(nil)
	f.notifier.On("Notify", mock.Anything, reporterEmail, mock.Anything, mock.Anything).Return(false)

	req := domain.SightingRequest{Name: "Bob", Contact: "123", Details: "saw it", Email: memberEmail}
	res, err := f.svc.RecordSighting(context.Background(), "item-1", req)
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Len(t, res.Item.Sightings, 1)
}

// --- RecordClaim ---

func TestRecordClaim_NotVerified(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)

	req := domain.ClaimRequest{Name: "Bob", Contact: "123", Details: "mine", Email: memberEmail}
	_, err := f.svc.RecordClaim(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrNotVerified))
}

func TestRecordClaim_ConsumePolicy_SpendsVerification(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(memberEmail)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("AppendClaim", mock.Anything, "item-1", mock.AnythingOfType("domain.Claim")).Return(nil)
	f.notifier.On("Notify", mock.Anything, reporterEmail, mock.Anything, mock.Anything).Return(true)

	req := domain.ClaimRequest{Name: "Bob", Contact: "123", Details: "mine", Email: memberEmail}
	res, err := f.svc.RecordClaim(context.Background(), "item-1", req)
	require.NoError(t, err)
	assert.True(t, res.Notified)
	assert.False(t, f.verified.Contains(memberEmail))

	// A second claim without re-verifying fails.
	_, err = f.svc.RecordClaim(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrNotVerified))
}

func TestRecordClaim_CheckOnlyPolicy_KeepsVerification(t *testing.T) {
	f := newFixture(t, false)
	f.verified.Add(memberEmail)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("AppendClaim", mock.Anything, "item-1", mock.AnythingOfType("domain.Claim")).Return(nil)
	f.notifier.On("Notify", mock.Anything, reporterEmail, mock.Anything, mock.Anything).Return(true)

	req := domain.ClaimRequest{Name: "Bob", Contact: "123", Details: "mine", Email: memberEmail}
	_, err := f.svc.RecordClaim(context.Background(), "item-1", req)
	require.NoError(t, err)
	assert.True(t, f.verified.Contains(memberEmail))
}

func TestRecordClaim_InvalidEmail(t *testing.T) {
	f := newFixture(t, true)

	req := domain.ClaimRequest{Name: "Bob", Contact: "123", Details: "mine", Email: "bob@gmail.com"}
	_, err := f.svc.RecordClaim(context.Background(), "item-1", req)
	assert.True(t, errors.Is(err, domain.ErrInvalidEmail))
}

// --- Resolve ---

func TestResolve_Unauthorized(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)

	_, err := f.svc.Resolve(context.Background(), "item-1", memberEmail)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
}

func TestResolve_NotVerified(t *testing.T) {
	f := newFixture(t, true)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)

	_, err := f.svc.Resolve(context.Background(), "item-1", reporterEmail)
	assert.True(t, errors.Is(err, domain.ErrNotVerified))
}

func TestResolve_HappyPath(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("MarkResolved", mock.Anything, "item-1").Return(nil)
	f.notifier.On("Notify", mock.Anything, reporterEmail, mock.Anything, mock.Anything).Return(true)

	res, err := f.svc.Resolve(context.Background(), "item-1", reporterEmail)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, res.Item.Status)
	assert.True(t, res.Notified)
	assert.False(t, f.verified.Contains(reporterEmail))
}

func TestResolve_AlreadyResolved_Conflict(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	resolved := openItem()
	resolved.Status = domain.StatusResolved
	f.repo.On("Get", mock.Anything, "item-1").Return(resolved, nil)

	_, err := f.svc.Resolve(context.Background(), "item-1", reporterEmail)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	// The early reject did not burn the verification.
	assert.True(t, f.verified.Contains(reporterEmail))
}

func TestResolve_RacingResolve_ConflictFromConditionalWrite(t *testing.T) {
	f := newFixture(t, true)
	f.verified.Add(reporterEmail)
	f.repo.On("Get", mock.Anything, "item-1").Return(openItem(), nil)
	f.repo.On("MarkResolved", mock.Anything, "item-1").Return(domain.ErrConflict)

	_, err := f.svc.Resolve(context.Background(), "item-1", reporterEmail)
	assert.True(t, errors.Is(err, domain.ErrConflict))
}

// --- List ---

func TestList_SortedByRecencyDesc(t *testing.T) {
	f := newFixture(t, true)
	old := domain.Item{ItemID: "old", CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	mid := domain.Item{ItemID: "mid", CreatedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)}
	now := domain.Item{ItemID: "new", CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	f.repo.On("Scan", mock.Anything).Return([]domain.Item{old, now, mid}, nil)

	items, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "new", items[0].ItemID)
	assert.Equal(t, "mid", items[1].ItemID)
	assert.Equal(t, "old", items[2].ItemID)
}

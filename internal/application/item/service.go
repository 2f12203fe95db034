package item

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/lostfound-api/internal/application/notify"
	"github.com/lostfound-api/internal/application/quota"
	"github.com/lostfound-api/internal/application/verify"
	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/pkg/id"
	"github.com/lostfound-api/internal/pkg/validate"
)

// ItemRepository is the persistence surface the lifecycle requires.
// AppendSighting, AppendClaim and MarkResolved must be conditional writes
// that fail Conflict once the item is resolved.
type ItemRepository interface {
	Put(ctx context.Context, it *domain.Item) error
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	Scan(ctx context.Context) ([]domain.Item, error)
	AppendSighting(ctx context.Context, itemID string, s domain.Sighting) error
	AppendClaim(ctx context.Context, itemID string, c domain.Claim) error
	MarkResolved(ctx context.Context, itemID string) error
}

// PhotoStore is the object storage surface for item photos.
type PhotoStore interface {
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// Result pairs the mutated item with whether the courtesy notification to
// the reporter was delivered.
type Result struct {
	Item     *domain.Item
	Notified bool
}

type Service interface {
	Create(ctx context.Context, req domain.CreateItemRequest) (*domain.Item, error)
	Get(ctx context.Context, itemID string) (*domain.Item, error)
	List(ctx context.Context) ([]domain.Item, error)
	PhotoURL(ctx context.Context, itemID string) (string, error)
	RecordSighting(ctx context.Context, itemID string, req domain.SightingRequest) (*Result, error)
	RecordClaim(ctx context.Context, itemID string, req domain.ClaimRequest) (*Result, error)
	Resolve(ctx context.Context, itemID, requesterEmail string) (*Result, error)
}

// ServiceDeps bundles the collaborators for NewService.
type ServiceDeps struct {
	Repo      ItemRepository
	Photos    PhotoStore
	Gate      verify.Gate
	Quota     quota.Tracker
	Notifier  notify.Notifier
	EmailRule *domain.EmailRule
	// ClaimConsumesVerification selects whether a claim spends the
	// claimant's verification or only checks it.
	ClaimConsumesVerification bool
}

type service struct {
	repo          ItemRepository
	photos        PhotoStore
	gate          verify.Gate
	quota         quota.Tracker
	notifier      notify.Notifier
	emailRule     *domain.EmailRule
	claimConsumes bool
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:          deps.Repo,
		photos:        deps.Photos,
		gate:          deps.Gate,
		quota:         deps.Quota,
		notifier:      deps.Notifier,
		emailRule:     deps.EmailRule,
		claimConsumes: deps.ClaimConsumesVerification,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateItemRequest) (*domain.Item, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	// Validation runs first so a malformed request does not burn the
	// reporter's single-use verification.
	if !s.gate.ConsumeVerification(req.ReporterEmail) {
		return nil, fmt.Errorf("reporter %s: %w", req.ReporterEmail, domain.ErrNotVerified)
	}

	now := time.Now().UTC()
	it := &domain.Item{
		ItemID:        id.New(),
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		Status:        req.Status,
		ReporterName:  req.ReporterName,
		ReporterEmail: req.ReporterEmail,
		Sightings:     []domain.Sighting{},
		Claims:        []domain.Claim{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.PhotoBase64 != "" {
		key := fmt.Sprintf("photos/%s/%s", it.ItemID, sanitizeFilename(req.PhotoName))
		url, err := s.photos.UploadBase64(ctx, key, req.PhotoBase64)
		if err != nil {
			return nil, fmt.Errorf("upload photo: %w", domain.ErrStorage)
		}
		it.PhotoKey = key
		it.PhotoURL = url
	}

	if err := s.repo.Put(ctx, it); err != nil {
		if it.PhotoKey != "" {
			if delErr := s.photos.Delete(ctx, it.PhotoKey); delErr != nil {
				slog.Warn("orphaned photo cleanup failed", "key", it.PhotoKey, "err", delErr)
			}
		}
		return nil, fmt.Errorf("persist item: %w", domain.ErrStorage)
	}
	// No notification on create; there is no prior party to notify.
	return it, nil
}

func (s *service) Get(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.repo.Get(ctx, itemID)
}

func (s *service) List(ctx context.Context) ([]domain.Item, error) {
	items, err := s.repo.Scan(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *service) PhotoURL(ctx context.Context, itemID string) (string, error) {
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return "", err
	}
	if it.PhotoKey == "" {
		return "", fmt.Errorf("item has no photo: %w", domain.ErrNotFound)
	}
	return s.photos.PresignedURL(ctx, it.PhotoKey, 15*time.Minute)
}

func (s *service) RecordSighting(ctx context.Context, itemID string, req domain.SightingRequest) (*Result, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if !s.emailRule.Match(req.Email) {
		return nil, fmt.Errorf("%s: %w", req.Email, domain.ErrInvalidEmail)
	}
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !it.Open() {
		return nil, fmt.Errorf("item %s is resolved: %w", itemID, domain.ErrConflict)
	}
	if err := s.quota.TryReserve(quota.KindSighting, req.Email); err != nil {
		return nil, err
	}

	sighting := domain.Sighting{
		Name:        req.Name,
		Contact:     req.Contact,
		Details:     req.Details,
		Email:       req.Email,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendSighting(ctx, itemID, sighting); err != nil {
		return nil, err
	}
	it.Sightings = append(it.Sightings, sighting)

	notified := s.notifier.Notify(ctx, it.ReporterEmail,
		fmt.Sprintf("Sighting reported for %q", it.Name),
		fmt.Sprintf("%s reported a sighting: %s (contact: %s)", sighting.Name, sighting.Details, sighting.Contact))
	return &Result{Item: it, Notified: notified}, nil
}

func (s *service) RecordClaim(ctx context.Context, itemID string, req domain.ClaimRequest) (*Result, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}
	if !s.emailRule.Match(req.Email) {
		return nil, fmt.Errorf("%s: %w", req.Email, domain.ErrInvalidEmail)
	}
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !it.Open() {
		return nil, fmt.Errorf("item %s is resolved: %w", itemID, domain.ErrConflict)
	}
	if s.claimConsumes {
		if !s.gate.ConsumeVerification(req.Email) {
			return nil, fmt.Errorf("claimant %s: %w", req.Email, domain.ErrNotVerified)
		}
	} else if !s.gate.IsVerified(req.Email) {
		return nil, fmt.Errorf("claimant %s: %w", req.Email, domain.ErrNotVerified)
	}
	if err := s.quota.TryReserve(quota.KindClaim, req.Email); err != nil {
		return nil, err
	}

	claim := domain.Claim{
		Name:        req.Name,
		Contact:     req.Contact,
		Details:     req.Details,
		Email:       req.Email,
		SubmittedAt: time.Now().UTC(),
	}
	if err := s.repo.AppendClaim(ctx, itemID, claim); err != nil {
		return nil, err
	}
	it.Claims = append(it.Claims, claim)

	notified := s.notifier.Notify(ctx, it.ReporterEmail,
		fmt.Sprintf("Ownership claim for %q", it.Name),
		fmt.Sprintf("%s claims this item: %s (contact: %s)", claim.Name, claim.Details, claim.Contact))
	return &Result{Item: it, Notified: notified}, nil
}

func (s *service) Resolve(ctx context.Context, itemID, requesterEmail string) (*Result, error) {
	it, err := s.repo.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if requesterEmail != it.ReporterEmail {
		return nil, fmt.Errorf("only the reporter may resolve: %w", domain.ErrUnauthorized)
	}
	if !it.Open() {
		return nil, fmt.Errorf("item %s already resolved: %w", itemID, domain.ErrConflict)
	}
	if !s.gate.ConsumeVerification(requesterEmail) {
		return nil, fmt.Errorf("requester %s: %w", requesterEmail, domain.ErrNotVerified)
	}
	// Conditional write: a racing resolve that slipped past the read above
	// still fails Conflict here.
	if err := s.repo.MarkResolved(ctx, itemID); err != nil {
		return nil, err
	}
	it.Status = domain.StatusResolved

	notified := s.notifier.Notify(ctx, requesterEmail,
		fmt.Sprintf("%q marked as resolved", it.Name),
		"Your item has been closed out. Thanks for updating the community.")
	return &Result{Item: it, Notified: notified}, nil
}

// sanitizeFilename strips directory components and keeps only safe characters
// (alphanumeric, dot, dash, underscore) to prevent path traversal in S3 keys.
func sanitizeFilename(name string) string {
	if name == "" {
		name = "photo.jpg"
	}
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if result := b.String(); result != "" && result != "." {
		return result
	}
	return "_"
}

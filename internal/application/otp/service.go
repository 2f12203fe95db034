package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/lostfound-api/internal/domain"
)

// Record is a live one-time code for an email address. At most one record
// exists per email; issuing a new code overwrites the previous one.
type Record struct {
	Email       string
	Code        string
	BoundItemID string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Store persists OTP records keyed by email. Implementations must execute
// each method as a single atomic step per email so concurrent requests for
// the same address cannot both pass a check that should admit only one.
type Store interface {
	// Put replaces any existing record for rec.Email.
	Put(rec Record)
	// Consume validates and removes the record for email. An expired record
	// is deleted on the way out; a mismatched code leaves the record in
	// place so the holder may retry until expiry.
	Consume(email, code string, now time.Time) (Record, error)
}

// memoryStore is the single-process Store implementation.
type memoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an in-memory Store guarded by a mutex.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Record)}
}

func (s *memoryStore) Put(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Email] = rec
}

func (s *memoryStore) Consume(email, code string, now time.Time) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return Record{}, fmt.Errorf("no code issued for %s: %w", email, domain.ErrNotFound)
	}
	if now.After(rec.ExpiresAt) || now.Equal(rec.ExpiresAt) {
		delete(s.records, email) // stale retries get NotFound, not Expired
		return Record{}, fmt.Errorf("code for %s expired: %w", email, domain.ErrExpired)
	}
	if rec.Code != code {
		return Record{}, fmt.Errorf("wrong code for %s: %w", email, domain.ErrMismatch)
	}
	delete(s.records, email)
	return rec, nil
}

// Service issues and consumes one-time codes.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	return &Service{store: store, ttl: ttl, now: time.Now}
}

// Issue generates a fresh six-digit code for email, bound to an optional
// item id, and stores it with the configured expiry. Any unconsumed code for
// the same email is invalidated.
func (s *Service) Issue(email, boundItemID string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%d", n.Int64()+100000)

	now := s.now()
	s.store.Put(Record{
		Email:       email,
		Code:        code,
		BoundItemID: boundItemID,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	})
	return code, nil
}

// Consume validates code for email and, on success, returns the bound item
// id (empty when the code was not item-bound). The record is gone afterwards;
// a second attempt with the same code fails NotFound.
func (s *Service) Consume(email, code string) (string, error) {
	rec, err := s.store.Consume(email, code, s.now())
	if err != nil {
		return "", err
	}
	return rec.BoundItemID, nil
}

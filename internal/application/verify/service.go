package verify

import (
	"context"
	"fmt"
	"sync"

	"github.com/lostfound-api/internal/domain"
	"github.com/lostfound-api/internal/infrastructure/smtp"
)

// OTPService is the code issue/consume surface the gate drives.
// Satisfied by *otp.Service.
type OTPService interface {
	Issue(email, boundItemID string) (string, error)
	Consume(email, code string) (boundItemID string, err error)
}

// Set tracks emails holding an unconsumed verification. Implementations must
// make Remove an atomic check-and-delete so two privileged actions cannot
// both spend the same verification.
type Set interface {
	Add(email string)
	Contains(email string) bool
	// Remove deletes email from the set and reports whether it was present.
	Remove(email string) bool
}

type memorySet struct {
	mu      sync.Mutex
	members map[string]struct{}
}

// NewMemorySet returns an in-memory Set guarded by a mutex.
func NewMemorySet() Set {
	return &memorySet{members: make(map[string]struct{})}
}

func (s *memorySet) Add(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.members[email] = struct{}{}
}

func (s *memorySet) Contains(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[email]
	return ok
}

func (s *memorySet) Remove(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.members[email]
	delete(s.members, email)
	return ok
}

// Gate runs the email verification protocol: request a code, validate it,
// then spend the resulting verification on exactly one privileged action.
type Gate interface {
	// RequestCode runs the caller-supplied authorization check, issues a
	// code (invalidating any previous one) and mails it. A mail failure is
	// ErrDelivery; the issued record stays live so a resend works cleanly.
	RequestCode(ctx context.Context, email, boundItemID string, authorize func() error) error
	// VerifyCode consumes the OTP and marks email verified for one
	// subsequent privileged action. Returns the bound item id, if any.
	VerifyCode(email, code string) (boundItemID string, err error)
	// IsVerified is a read-only membership check. It does not consume.
	IsVerified(email string) bool
	// ConsumeVerification atomically checks and removes the verification.
	// This is the only call that may gate a privileged state change.
	ConsumeVerification(email string) bool
}

type gate struct {
	otp      OTPService
	verified Set
	mailer   smtp.Mailer
}

func NewGate(otp OTPService, verified Set, mailer smtp.Mailer) Gate {
	return &gate{otp: otp, verified: verified, mailer: mailer}
}

func (g *gate) RequestCode(_ context.Context, email, boundItemID string, authorize func() error) error {
	if authorize != nil {
		if err := authorize(); err != nil {
			return err
		}
	}
	code, err := g.otp.Issue(email, boundItemID)
	if err != nil {
		return err
	}
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	if err := g.mailer.SendEmail(email, "Lost & Found verification code", body); err != nil {
		return fmt.Errorf("send verification code: %w", domain.ErrDelivery)
	}
	return nil
}

func (g *gate) VerifyCode(email, code string) (string, error) {
	boundItemID, err := g.otp.Consume(email, code)
	if err != nil {
		return "", err
	}
	g.verified.Add(email)
	return boundItemID, nil
}

func (g *gate) IsVerified(email string) bool {
	return g.verified.Contains(email)
}

func (g *gate) ConsumeVerification(email string) bool {
	return g.verified.Remove(email)
}

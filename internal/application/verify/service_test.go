package verify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lostfound-api/internal/application/otp"
	"github.com/lostfound-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

// --- builder ---

func newGate(ml *mockMailer) (Gate, *otp.Service) {
	svc := otp.NewService(otp.NewMemoryStore(), 10*time.Minute)
	return NewGate(svc, NewMemorySet(), ml), svc
}

type nopMailer struct{}

func (nopMailer) SendEmail(_, _, _ string) error { return nil }

func TestRequestCode_AuthorizeFailure_NothingSent(t *testing.T) {
	ml := &mockMailer{}
	g, _ := newGate(ml)

	err := g.RequestCode(context.Background(), "a@inst.edu", "item-1", func() error {
		return domain.ErrUnauthorized
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	ml.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestRequestCode_MailFailure_ReturnsDelivery_RecordStaysIssued(t *testing.T) {
	ml := &mockMailer{}
	ml.On("SendEmail", "a@inst.edu", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()
	ml.On("SendEmail", "a@inst.edu", mock.Anything, mock.Anything).Return(nil)
	g, _ := newGate(ml)

	err := g.RequestCode(context.Background(), "a@inst.edu", "", nil)
	assert.True(t, errors.Is(err, domain.ErrDelivery))

	// A resend after a delivery failure issues cleanly.
	err = g.RequestCode(context.Background(), "a@inst.edu", "", nil)
	assert.NoError(t, err)
}

func TestVerifyCode_AddsToVerifiedSet(t *testing.T) {
	m := nopMailer{}
	svc := otp.NewService(otp.NewMemoryStore(), 10*time.Minute)
	g := NewGate(svc, NewMemorySet(), m)

	code, err := svc.Issue("a@inst.edu", "item-9")
	require.NoError(t, err)

	boundID, err := g.VerifyCode("a@inst.edu", code)
	require.NoError(t, err)
	assert.Equal(t, "item-9", boundID)
	assert.True(t, g.IsVerified("a@inst.edu"))
}

func TestVerifyCode_BadCode_NotVerified(t *testing.T) {
	m := nopMailer{}
	svc := otp.NewService(otp.NewMemoryStore(), 10*time.Minute)
	g := NewGate(svc, NewMemorySet(), m)

	_, err := svc.Issue("a@inst.edu", "")
	require.NoError(t, err)

	_, err = g.VerifyCode("a@inst.edu", "999999x")
	assert.True(t, errors.Is(err, domain.ErrMismatch))
	assert.False(t, g.IsVerified("a@inst.edu"))
}

func TestIsVerified_DoesNotConsume(t *testing.T) {
	g := NewGate(nil, NewMemorySet(), nil)
	g.(*gate).verified.Add("a@inst.edu")

	assert.True(t, g.IsVerified("a@inst.edu"))
	assert.True(t, g.IsVerified("a@inst.edu"))
}

func TestConsumeVerification_SingleUse(t *testing.T) {
	g := NewGate(nil, NewMemorySet(), nil)
	g.(*gate).verified.Add("a@inst.edu")

	assert.True(t, g.ConsumeVerification("a@inst.edu"))
	assert.False(t, g.ConsumeVerification("a@inst.edu"))
	assert.False(t, g.IsVerified("a@inst.edu"))
}

func TestConsumeVerification_Concurrent_ExactlyOneWinner(t *testing.T) {
	g := NewGate(nil, NewMemorySet(), nil)
	g.(*gate).verified.Add("a@inst.edu")

	const n = 32
	var wg sync.WaitGroup
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- g.ConsumeVerification("a@inst.edu")
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for ok := range results {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

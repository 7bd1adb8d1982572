// Package verification issues and checks short-lived contact verification codes.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/notify"
	"github.com/myora/server/internal/repo"
)

const (
	codeLength = 6
	codeExpiry = 5 * time.Minute
)

// SendResult reports the outcome of issuing a code
type SendResult struct {
	// Code is populated only in dev mode so clients can complete the flow
	// without a real SMS/email channel.
	Code string
	// Dispatched is false when delivery failed; issuance still succeeds.
	Dispatched bool
}

// Service issues and checks verification codes
type Service struct {
	verificationRepo repo.VerificationRepo
	userRepo         repo.UserRepo
	dispatcher       *notify.Dispatcher
	devMode          bool
	now              func() time.Time
}

// NewService creates a verification service
func NewService(verificationRepo repo.VerificationRepo, userRepo repo.UserRepo, dispatcher *notify.Dispatcher, devMode bool) *Service {
	return &Service{
		verificationRepo: verificationRepo,
		userRepo:         userRepo,
		dispatcher:       dispatcher,
		devMode:          devMode,
		now:              time.Now,
	}
}

// Send issues a 6-digit code for (user, contact), superseding any previous code
// for the pair, and dispatches it best-effort. Dispatch failure does not fail
// the issuing flow.
func (s *Service) Send(ctx context.Context, userID uuid.UUID, contact, kind string) (SendResult, error) {
	code, err := generateCode()
	if err != nil {
		return SendResult{}, err
	}

	record := model.VerificationCode{
		UserID:    userID,
		Contact:   contact,
		Code:      code,
		Kind:      kind,
		ExpiresAt: s.now().Add(codeExpiry),
	}
	if err := s.verificationRepo.Upsert(ctx, &record); err != nil {
		return SendResult{}, fmt.Errorf("store verification code: %w", err)
	}

	result := SendResult{Dispatched: true}
	message := fmt.Sprintf("Your MyOra verification code is: %s. Valid for 5 minutes.", code)
	if err := s.dispatcher.Dispatch(ctx, kind, contact, message); err != nil {
		log.Printf("verification dispatch to %s failed: %v", notify.MaskContact(contact), err)
		result.Dispatched = false
	}
	if s.devMode {
		result.Code = code
	}
	return result, nil
}

// Check validates the submitted code. It returns true when the contact is (or
// already was) verified; a wrong kind, wrong code, expired code, or missing
// record all return false without error. Success marks the record verified and
// stamps the user's contact field.
func (s *Service) Check(ctx context.Context, userID uuid.UUID, contact, code, kind string) (bool, error) {
	record, err := s.verificationRepo.Get(ctx, userID, contact)
	if err != nil {
		if errors.Is(err, repo.ErrCodeNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load verification code: %w", err)
	}

	// Already verified: the code is single-use, so treat the check as satisfied
	if record.Verified {
		return true, nil
	}

	if record.Kind != kind {
		return false, nil
	}
	// Exact string match, no normalization
	if record.Code != code {
		return false, nil
	}
	if s.now().After(record.ExpiresAt) {
		return false, nil
	}

	if err := s.verificationRepo.MarkVerified(ctx, userID, contact); err != nil {
		return false, fmt.Errorf("mark code verified: %w", err)
	}
	if err := s.userRepo.MarkContactVerified(ctx, userID, kind, contact); err != nil {
		return false, fmt.Errorf("mark contact verified: %w", err)
	}
	return true, nil
}

// generateCode draws a uniform integer in [100000, 999999] and stringifies it,
// yielding exactly six ASCII digits.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

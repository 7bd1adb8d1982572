package lifescore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/myora/server/internal/apperr"
	"github.com/myora/server/internal/model"
	"github.com/myora/server/internal/repo"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// DefaultHistoryLimit is the number of snapshots returned when the caller doesn't ask for more
const DefaultHistoryLimit = 30

// Service computes and persists LifeScore snapshots
type Service struct {
	lifestyleRepo repo.LifestyleRepo
	scoreRepo     repo.LifeScoreRepo
	userRepo      repo.UserRepo
	now           func() time.Time
}

// NewService creates a LifeScore service
func NewService(lifestyleRepo repo.LifestyleRepo, scoreRepo repo.LifeScoreRepo, userRepo repo.UserRepo) *Service {
	return &Service{
		lifestyleRepo: lifestyleRepo,
		scoreRepo:     scoreRepo,
		userRepo:      userRepo,
		now:           time.Now,
	}
}

// Compute recalculates the user's score from the trailing seven days of logs and
// upserts today's snapshot. The four kind-filtered reads run concurrently; the
// snapshot is written once at the end, so a failed write leaves no partial state.
func (s *Service) Compute(ctx context.Context, userID uuid.UUID) (model.LifeScoreSnapshot, error) {
	since := s.now().AddDate(0, 0, -7)

	var activities, meals, sleepLogs, stressLogs []model.LifestyleLog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		activities, err = s.lifestyleRepo.ListByKindSince(gctx, userID, model.LogKindActivity, since)
		return err
	})
	g.Go(func() (err error) {
		meals, err = s.lifestyleRepo.ListByKindSince(gctx, userID, model.LogKindMeal, since)
		return err
	})
	g.Go(func() (err error) {
		sleepLogs, err = s.lifestyleRepo.ListByKindSince(gctx, userID, model.LogKindSleep, since)
		return err
	})
	g.Go(func() (err error) {
		stressLogs, err = s.lifestyleRepo.ListByKindSince(gctx, userID, model.LogKindStress, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.LifeScoreSnapshot{}, fmt.Errorf("load lifestyle logs: %w", err)
	}

	score := Calculate(activities, meals, sleepLogs, stressLogs)

	snapshot := model.LifeScoreSnapshot{
		UserID:   userID,
		Date:     s.now().Format("2006-01-02"),
		Move:     score.Move,
		Fuel:     score.Fuel,
		Recharge: score.Recharge,
		Overall:  score.Overall,
		Factors:  score.Factors,
	}
	if err := s.scoreRepo.Upsert(ctx, &snapshot); err != nil {
		return model.LifeScoreSnapshot{}, fmt.Errorf("persist snapshot: %w", err)
	}
	return snapshot, nil
}

// Current returns today's snapshot, computing a fresh one when none exists yet.
// A failed upsert during the fresh computation propagates.
func (s *Service) Current(ctx context.Context, userID uuid.UUID) (model.LifeScoreSnapshot, error) {
	today := s.now().Format("2006-01-02")
	snapshot, err := s.scoreRepo.GetByDate(ctx, userID, today)
	if err == nil {
		return snapshot, nil
	}
	if !errors.Is(err, repo.ErrSnapshotNotFound) {
		return model.LifeScoreSnapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.Compute(ctx, userID)
}

// History returns up to limit snapshots, most recent first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]model.LifeScoreSnapshot, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}
	return s.scoreRepo.History(ctx, userID, limit)
}

// RecomputeAll recomputes the score for every user. Per-user failures are
// isolated: the batch never aborts, and the aggregate error lists every user
// that failed.
func (s *Service) RecomputeAll(ctx context.Context) error {
	ids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "list users for recompute", err)
	}

	var (
		mu     sync.Mutex
		errs   error
		failed int
	)
	g := new(errgroup.Group)
	g.SetLimit(8)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if _, err := s.Compute(ctx, id); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("user %s: %w", id, err))
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if errs != nil {
		log.Printf("lifescore recompute: %d/%d users failed", failed, len(ids))
		return errs
	}
	log.Printf("lifescore recompute: %d users updated", len(ids))
	return nil
}

// Package store serialises game actions per user and persists the results.
//
// Every mutating call follows the same path: take the user's lock, load and
// migrate the profile, run the engine transition on a copy, save when
// something changed and publish events. A rejected transition returns the
// stored profile untouched.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// Publisher receives events after a transition has been persisted.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, models.Event) error { return nil }

// Options configures a Store. Zero values are usable.
type Options struct {
	// CompletionDelay is how long a ready achievement waits before it is
	// completed automatically.
	CompletionDelay time.Duration
	Publisher       Publisher
	Logger          *zap.Logger
	Now             func() time.Time
}

type Store struct {
	repo      Repository
	pub       Publisher
	log       *zap.Logger
	now       func() time.Time
	scheduler *Scheduler
	locks     keyedMutex
}

func New(repo Repository, opts Options) *Store {
	s := &Store{
		repo:      repo,
		pub:       opts.Publisher,
		log:       opts.Logger,
		now:       opts.Now,
		scheduler: NewScheduler(opts.CompletionDelay),
	}
	if s.pub == nil {
		s.pub = nopPublisher{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Close cancels pending automatic completions and waits for running ones.
func (s *Store) Close() {
	s.scheduler.Close()
}

// Now is the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// CompletionPending reports whether an automatic completion is queued.
func (s *Store) CompletionPending(userID, achID string) bool {
	return s.scheduler.Pending(completionKey(userID, achID))
}

// CreateProfile stores a fresh profile with daily and weekly lists. An
// existing profile is returned as is.
func (s *Store) CreateProfile(ctx context.Context, userID, username string) (*models.UserProfile, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	existing, err := s.repo.Get(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := s.now()
	p := models.NewUserProfile(userID, username, now)
	p.SchemaVersion = engine.CurrentSchemaVersion
	for _, period := range []string{engine.PeriodDaily, engine.PeriodWeekly} {
		if err := engine.ResetPeriod(p, period, now); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.log.Info("profile created", zap.String("user_id", userID))
	return p, nil
}

// Profile loads a profile, persisting any schema migration it needed.
func (s *Store) Profile(ctx context.Context, userID string) (*models.UserProfile, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()
	p, _, err := s.load(ctx, userID)
	return p, err
}

// DeleteProfile removes a profile and cancels its pending completions.
func (s *Store) DeleteProfile(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()
	p, err := s.repo.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if p != nil {
		for _, achID := range p.CurrentLifeAchievements {
			s.scheduler.Cancel(completionKey(userID, achID))
		}
	}
	return s.repo.Delete(ctx, userID)
}

func (s *Store) StartLifeAchievement(ctx context.Context, userID, achID string) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		var err error
		res, err = engine.StartLifeAchievement(p, achID, now)
		return true, err
	})
	if err != nil {
		return p, res, err
	}
	s.publishResult(ctx, userID, models.EventAchievementStarted, res, p)
	return p, res, nil
}

// CompleteTask completes a task and queues automatic completion for every
// achievement the task made ready.
func (s *Store) CompleteTask(ctx context.Context, userID, taskID, proofURL string) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		var err error
		res, err = engine.CompleteTask(p, taskID, proofURL, now)
		return true, err
	})
	if err != nil {
		return p, res, err
	}
	s.publishResult(ctx, userID, models.EventTaskCompleted, res, p)
	s.scheduleCompletions(ctx, userID, res.Ready)
	return p, res, nil
}

// CompleteLifeAchievement force-completes an achievement. The completion
// scheduler calls it once the achievement was found ready; user requests go
// through CompleteReadyAchievement.
func (s *Store) CompleteLifeAchievement(ctx context.Context, userID, achID string) (*models.UserProfile, engine.Result, error) {
	return s.complete(ctx, userID, achID, engine.CompleteLifeAchievement)
}

// CompleteReadyAchievement completes an achievement only if its tasks are
// done and its day gate has passed, re-checked under the user lock.
func (s *Store) CompleteReadyAchievement(ctx context.Context, userID, achID string) (*models.UserProfile, engine.Result, error) {
	return s.complete(ctx, userID, achID, engine.CompleteReadyAchievement)
}

func (s *Store) complete(ctx context.Context, userID, achID string,
	fn func(*models.UserProfile, string, time.Time) (engine.Result, error)) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		var err error
		res, err = fn(p, achID, now)
		return true, err
	})
	if err != nil {
		return p, res, err
	}
	s.scheduler.Cancel(completionKey(userID, achID))
	s.publishResult(ctx, userID, models.EventAchievementCompleted, res, p)
	return p, res, nil
}

func (s *Store) RemoveLifeAchievement(ctx context.Context, userID, achID string) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		var err error
		res, err = engine.RemoveLifeAchievement(p, achID, now)
		return true, err
	})
	if err != nil {
		return p, res, err
	}
	s.scheduler.Cancel(completionKey(userID, achID))
	s.publishResult(ctx, userID, models.EventAchievementRemoved, res, p)
	return p, res, nil
}

// Sync reconciles tasks with in-progress achievements and queues automatic
// completion for the ready ones. The profile is only written when the sync
// changed it.
func (s *Store) Sync(ctx context.Context, userID string) (*models.UserProfile, engine.SyncResult, error) {
	var res engine.SyncResult
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		res = engine.SyncTasksWithAchievements(p, now)
		return res.Changed, nil
	})
	if err != nil {
		return p, res, err
	}
	s.scheduleCompletions(ctx, userID, res.Ready)
	return p, res, nil
}

func (s *Store) ResetPeriod(ctx context.Context, userID, period string) (*models.UserProfile, error) {
	return s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		return true, engine.ResetPeriod(p, period, now)
	})
}

// UpdatePreferences replaces the preference block and optionally the age.
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs models.Preferences, age *int) (*models.UserProfile, error) {
	return s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		if prefs.Interests == nil {
			prefs.Interests = []string{}
		}
		p.Preferences = prefs
		if age != nil {
			if *age < 0 || *age > 150 {
				return false, fmt.Errorf("%w: age %d out of range", ErrInvalid, *age)
			}
			p.Age = *age
		}
		p.UpdatedAt = now
		return true, nil
	})
}

// UpdateCustomization merges avatar customisation keys; empty values delete.
func (s *Store) UpdateCustomization(ctx context.Context, userID string, custom map[string]string) (*models.UserProfile, error) {
	return s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		if p.Avatar.Customization == nil {
			p.Avatar.Customization = map[string]string{}
		}
		for k, v := range custom {
			if v == "" {
				delete(p.Avatar.Customization, k)
				continue
			}
			p.Avatar.Customization[k] = v
		}
		p.UpdatedAt = now
		return true, nil
	})
}

// AwardRewards applies an out-of-band bundle, such as a civic action bonus.
func (s *Store) AwardRewards(ctx context.Context, userID string, b models.RewardBundle) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		res = engine.AwardRewards(p, b, now)
		return true, nil
	})
	if err != nil {
		return p, res, err
	}
	s.publishResult(ctx, userID, models.EventRewardGranted, res, p)
	return p, res, nil
}

// SyncHealth records a daily health snapshot and rewards it once per date.
func (s *Store) SyncHealth(ctx context.Context, userID string, snap models.HealthSnapshot) (*models.UserProfile, engine.Result, error) {
	var res engine.Result
	p, err := s.update(ctx, userID, func(p *models.UserProfile, now time.Time) (bool, error) {
		var err error
		res, err = engine.ApplyHealthSnapshot(p, snap, now)
		return true, err
	})
	if err != nil {
		return p, res, err
	}
	s.publishResult(ctx, userID, models.EventRewardGranted, res, p)
	return p, res, nil
}

// LookupTask resolves a task ID for the user without changing the profile.
func (s *Store) LookupTask(ctx context.Context, userID, taskID string) (models.TaskItem, error) {
	p, err := s.Profile(ctx, userID)
	if err != nil {
		return models.TaskItem{}, err
	}
	t, ok := engine.LookupTask(p, taskID)
	if !ok {
		return models.TaskItem{}, fmt.Errorf("%w: %s", engine.ErrUnknownTask, taskID)
	}
	return t, nil
}

// load reads and migrates a profile. The caller must hold the user lock.
func (s *Store) load(ctx context.Context, userID string) (*models.UserProfile, bool, error) {
	p, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	migrated, err := engine.Migrate(p)
	if err != nil {
		return nil, false, err
	}
	if migrated {
		if err := s.repo.Save(ctx, p); err != nil {
			return nil, false, err
		}
		s.log.Info("profile migrated",
			zap.String("user_id", userID),
			zap.Int("schema_version", p.SchemaVersion))
	}
	return p, migrated, nil
}

// update runs fn on a copy of the profile under the user lock. The copy is
// saved when fn reports a change. On error the stored profile is returned.
func (s *Store) update(ctx context.Context, userID string, fn func(p *models.UserProfile, now time.Time) (bool, error)) (*models.UserProfile, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	p, _, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	work := p.Clone()
	changed, err := fn(work, s.now())
	if err != nil {
		return p, err
	}
	if !changed {
		return work, nil
	}
	if err := s.repo.Save(ctx, work); err != nil {
		return p, err
	}
	return work, nil
}

func (s *Store) scheduleCompletions(ctx context.Context, userID string, ready []string) {
	for _, achID := range ready {
		achID := achID
		queued := s.scheduler.Schedule(completionKey(userID, achID), func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, _, err := s.CompleteLifeAchievement(ctx, userID, achID)
			switch {
			case err == nil:
				s.log.Info("achievement completed automatically",
					zap.String("user_id", userID), zap.String("achievement_id", achID))
			case engine.IsRejection(err):
				// Already completed or removed in the meantime.
				s.log.Debug("automatic completion skipped",
					zap.String("user_id", userID), zap.String("achievement_id", achID), zap.Error(err))
			default:
				s.log.Error("automatic completion failed",
					zap.String("user_id", userID), zap.String("achievement_id", achID), zap.Error(err))
			}
		})
		if !queued {
			continue
		}
		s.log.Debug("automatic completion queued",
			zap.String("user_id", userID), zap.String("achievement_id", achID))
		ev := models.Event{Type: models.EventAchievementReady, UserID: userID, AchievementID: achID, Timestamp: s.now()}
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn("event publish failed",
				zap.String("user_id", userID), zap.String("type", ev.Type), zap.Error(err))
		}
	}
}

func (s *Store) publishResult(ctx context.Context, userID, eventType string, res engine.Result, p *models.UserProfile) {
	now := s.now()
	events := []models.Event{{
		Type:          eventType,
		UserID:        userID,
		AchievementID: res.AchievementID,
		TaskID:        res.TaskID,
		Rewards:       res.Rewards,
		Level:         p.Avatar.Level,
		Timestamp:     now,
	}}
	if res.LevelUp {
		events = append(events, models.Event{
			Type:      models.EventLevelUp,
			UserID:    userID,
			Level:     res.LevelAfter,
			Timestamp: now,
		})
	}
	for _, ev := range events {
		if err := s.pub.Publish(ctx, ev); err != nil {
			s.log.Warn("event publish failed",
				zap.String("user_id", userID), zap.String("type", ev.Type), zap.Error(err))
		}
	}
}

func completionKey(userID, achID string) string {
	return userID + "/" + achID
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

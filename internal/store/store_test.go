package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingPublisher) Publish(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recordingPublisher) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type countingRepo struct {
	Repository
	saves atomic.Int32
}

func (c *countingRepo) Save(ctx context.Context, p *models.UserProfile) error {
	c.saves.Add(1)
	return c.Repository.Save(ctx, p)
}

type fixture struct {
	store *Store
	repo  *MemoryRepository
	clock *manualClock
	pub   *recordingPublisher
}

func newFixture(t *testing.T, delay time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		repo:  NewMemoryRepository(),
		clock: &manualClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		pub:   &recordingPublisher{},
	}
	f.store = New(f.repo, Options{
		CompletionDelay: delay,
		Publisher:       f.pub,
		Logger:          zap.NewNop(),
		Now:             f.clock.Now,
	})
	t.Cleanup(f.store.Close)
	return f
}

func (f *fixture) completeAll(t *testing.T, userID, achID string) engine.Result {
	t.Helper()
	var last engine.Result
	for _, task := range engine.GenerateTasksForAchievement(achID, userID) {
		_, res, err := f.store.CompleteTask(context.Background(), userID, task.ID, "")
		require.NoError(t, err)
		last = res
	}
	return last
}

func TestCreateProfile(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()

	p, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	assert.Equal(t, engine.CurrentSchemaVersion, p.SchemaVersion)
	assert.Equal(t, 1, p.Avatar.Level)
	require.Len(t, p.TaskLists, 2)
	assert.Equal(t, models.TaskListDaily, p.TaskLists[0].Kind)
	assert.Equal(t, models.TaskListWeekly, p.TaskLists[1].Kind)
	assert.Len(t, p.CurrentTasks, 8)

	again, err := f.store.CreateProfile(ctx, "u1", "other-name")
	require.NoError(t, err)
	assert.Equal(t, "river", again.Username)
}

func TestProfileNotFound(t *testing.T) {
	f := newFixture(t, time.Hour)
	_, err := f.store.Profile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRejectionLeavesStoredProfile(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	before, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)

	got, _, err := f.store.StartLifeAchievement(ctx, "u1", "no-such-thing")
	assert.ErrorIs(t, err, engine.ErrUnknownAchievement)
	assert.Equal(t, before, got)

	_, _, err = f.store.CompleteTask(ctx, "u1", "ghost-task", "")
	assert.ErrorIs(t, err, engine.ErrUnknownTask)

	after, err := f.repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Empty(t, f.pub.types())
}

func TestReadyAchievementCompletesAutomatically(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = f.store.StartLifeAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Hour)
	res := f.completeAll(t, "u1", "civic-voice")
	assert.Equal(t, []string{"civic-voice"}, res.Ready)

	require.Eventually(t, func() bool {
		p, err := f.repo.Get(ctx, "u1")
		return err == nil && len(p.CompletedLifeAchievements) == 1
	}, 2*time.Second, 5*time.Millisecond)

	p, err := f.store.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"civic-voice"}, p.CompletedLifeAchievements)
	assert.NotContains(t, p.CurrentLifeAchievements, "civic-voice")
	assert.Contains(t, f.pub.types(), models.EventAchievementReady)
}

func TestCompletionWaitsForMinimumDays(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = f.store.StartLifeAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)

	res := f.completeAll(t, "u1", "civic-voice")
	assert.Empty(t, res.Ready)
	assert.False(t, f.store.CompletionPending("u1", "civic-voice"))

	f.clock.Advance(24 * time.Hour)
	_, synced, err := f.store.Sync(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"civic-voice"}, synced.Ready)

	require.Eventually(t, func() bool {
		p, err := f.repo.Get(ctx, "u1")
		return err == nil && len(p.CompletedLifeAchievements) == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRemoveCancelsPendingCompletion(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = f.store.StartLifeAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)
	f.completeAll(t, "u1", "civic-voice")
	require.True(t, f.store.CompletionPending("u1", "civic-voice"))

	_, _, err = f.store.RemoveLifeAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)
	assert.False(t, f.store.CompletionPending("u1", "civic-voice"))
}

func TestManualCompletionBeatsTimer(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = f.store.StartLifeAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)
	f.clock.Advance(48 * time.Hour)
	f.completeAll(t, "u1", "civic-voice")

	_, _, err = f.store.CompleteReadyAchievement(ctx, "u1", "civic-voice")
	require.NoError(t, err)
	assert.False(t, f.store.CompletionPending("u1", "civic-voice"))

	_, _, err = f.store.CompleteReadyAchievement(ctx, "u1", "civic-voice")
	assert.ErrorIs(t, err, engine.ErrAlreadyCompleted)
}

func TestCompleteReadyAchievementRefusesEarly(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = f.store.StartLifeAchievement(ctx, "u1", "civic-legend")
	require.NoError(t, err)
	published := len(f.pub.types())

	_, _, err = f.store.CompleteReadyAchievement(ctx, "u1", "civic-legend")
	assert.ErrorIs(t, err, engine.ErrNotReady)
	p, err := f.store.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"civic-legend"}, p.CurrentLifeAchievements)
	assert.Empty(t, p.CompletedLifeAchievements)
	assert.Zero(t, p.Avatar.Experience)
	assert.Len(t, f.pub.types(), published)
}

func TestConcurrentTaskCompletionAppliesOnce(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	taskID := engine.TaskID(engine.PeriodDaily, "hydrate", "u1")

	var wg sync.WaitGroup
	var ok, rejected atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.store.CompleteTask(ctx, "u1", taskID, "")
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, engine.ErrTaskAlreadyCompleted):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(19), rejected.Load())
	p, err := f.store.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.Avatar.Experience)
}

func TestLegacyProfileMigratedOnLoad(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	legacy := &models.UserProfile{
		ID:             "u9",
		Username:       "old",
		CurrentTasks:   []string{"daily_hydrate"},
		CompletedTasks: []string{"daily_hydrate", "daily_hydrate"},
	}
	require.NoError(t, f.repo.Save(ctx, legacy))

	p, err := f.store.Profile(ctx, "u9")
	require.NoError(t, err)
	assert.Equal(t, engine.CurrentSchemaVersion, p.SchemaVersion)
	assert.Equal(t, []string{"daily-hydrate-u9"}, p.CompletedTasks)
	assert.Equal(t, 1, p.Avatar.Level)

	stored, err := f.repo.Get(ctx, "u9")
	require.NoError(t, err)
	assert.Equal(t, engine.CurrentSchemaVersion, stored.SchemaVersion)
}

func TestSyncSavesOnlyOnChange(t *testing.T) {
	clock := &manualClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := &countingRepo{Repository: NewMemoryRepository()}
	s := New(repo, Options{CompletionDelay: time.Hour, Now: clock.Now})
	t.Cleanup(s.Close)
	ctx := context.Background()

	_, err := s.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	_, _, err = s.StartLifeAchievement(ctx, "u1", "home-cook")
	require.NoError(t, err)
	saves := repo.saves.Load()

	_, res, err := s.Sync(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, saves, repo.saves.Load())
}

func TestAwardRewardsPublishesLevelUp(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)

	p, res, err := f.store.AwardRewards(ctx, "u1", engine.Bundle(1200, 10, 0, 0, 0))
	require.NoError(t, err)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 2, p.Avatar.Level)
	assert.Equal(t, 10, p.Avatar.CivicScore)
	assert.Equal(t, []string{models.EventRewardGranted, models.EventLevelUp}, f.pub.types())
}

func TestSyncHealthOncePerDate(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)

	snap := models.HealthSnapshot{Date: "2025-03-01", Steps: 5000, SleepHours: 6}
	p, _, err := f.store.SyncHealth(ctx, "u1", snap)
	require.NoError(t, err)
	assert.Equal(t, 5, p.Avatar.HealthScore)
	assert.Equal(t, 50, p.Avatar.Experience)

	_, _, err = f.store.SyncHealth(ctx, "u1", snap)
	assert.ErrorIs(t, err, engine.ErrAlreadySynced)
}

func TestUpdatePreferences(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)

	age := 31
	p, err := f.store.UpdatePreferences(ctx, "u1", models.Preferences{Theme: "dark", ShareLocation: true}, &age)
	require.NoError(t, err)
	assert.Equal(t, "dark", p.Preferences.Theme)
	assert.Equal(t, 31, p.Age)

	bad := -4
	_, err = f.store.UpdatePreferences(ctx, "u1", models.Preferences{}, &bad)
	assert.ErrorIs(t, err, ErrInvalid)

	p, err = f.store.UpdateCustomization(ctx, "u1", map[string]string{"hat": "beanie"})
	require.NoError(t, err)
	assert.Equal(t, "beanie", p.Avatar.Customization["hat"])
	p, err = f.store.UpdateCustomization(ctx, "u1", map[string]string{"hat": ""})
	require.NoError(t, err)
	assert.NotContains(t, p.Avatar.Customization, "hat")
}

func TestLookupTask(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)

	task, err := f.store.LookupTask(ctx, "u1", engine.TaskID(engine.PeriodWeekly, "call-friend", "u1"))
	require.NoError(t, err)
	assert.NotEmpty(t, task.Title)

	_, err = f.store.LookupTask(ctx, "u1", "nope")
	assert.ErrorIs(t, err, engine.ErrUnknownTask)
}

func TestDeleteProfile(t *testing.T) {
	f := newFixture(t, time.Hour)
	ctx := context.Background()
	_, err := f.store.CreateProfile(ctx, "u1", "river")
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteProfile(ctx, "u1"))
	_, err = f.store.Profile(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachedRepositoryWithoutRedis(t *testing.T) {
	repo := NewCachedRepository(NewMemoryRepository(), services.NewCacheService(nil, 0), nil)
	ctx := context.Background()
	p := models.NewUserProfile("u1", "river", time.Now())

	require.NoError(t, repo.Save(ctx, p))
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "river", got.Username)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// flakyRedis keeps values in a map and can be told to fail writes.
type flakyRedis struct {
	redis.Cmdable
	mu      sync.Mutex
	data    map[string][]byte
	failSet bool
}

func (r *flakyRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if v, ok := r.data[key]; ok {
		cmd.SetVal(string(v))
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (r *flakyRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx, "set", key)
	if r.failSet {
		cmd.SetErr(errors.New("redis: connection pool timeout"))
		return cmd
	}
	r.data[key] = value.([]byte)
	cmd.SetVal("OK")
	return cmd
}

func (r *flakyRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "del")
	for _, k := range keys {
		delete(r.data, k)
	}
	cmd.SetVal(int64(len(keys)))
	return cmd
}

func TestCachedRepositoryEvictsOnFailedCacheWrite(t *testing.T) {
	rdb := &flakyRedis{data: make(map[string][]byte)}
	repo := NewCachedRepository(NewMemoryRepository(), services.NewCacheService(rdb, time.Minute), nil)
	ctx := context.Background()
	p := models.NewUserProfile("u1", "river", time.Now())

	require.NoError(t, repo.Save(ctx, p))
	require.Len(t, rdb.data, 1)

	rdb.failSet = true
	p.Avatar.Experience = 500
	require.NoError(t, repo.Save(ctx, p))
	assert.Empty(t, rdb.data)

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 500, got.Avatar.Experience)
}

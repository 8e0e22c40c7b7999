package engine

import (
	"fmt"
	"time"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// Result describes the effect of a state transition on the avatar.
type Result struct {
	AchievementID string
	TaskID        string
	Rewards       models.RewardBundle
	LevelBefore   int
	LevelAfter    int
	LevelUp       bool
	// Ready is set by CompleteTask: achievements that can now be completed.
	Ready []string
}

func newResult(p *models.UserProfile, achID, taskID string, b models.RewardBundle, levelBefore int) Result {
	return Result{
		AchievementID: achID,
		TaskID:        taskID,
		Rewards:       b,
		LevelBefore:   levelBefore,
		LevelAfter:    p.Avatar.Level,
		LevelUp:       p.Avatar.Level > levelBefore,
	}
}

// StartLifeAchievement moves an achievement from not started to in progress:
// its tasks are generated and tracked, the start date is stamped and the
// starting bonus is awarded.
func StartLifeAchievement(p *models.UserProfile, achID string, now time.Time) (Result, error) {
	a, ok := LookupAchievement(achID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAchievement, achID)
	}
	if contains(p.CompletedLifeAchievements, achID) {
		return Result{}, ErrAlreadyCompleted
	}
	if contains(p.CurrentLifeAchievements, achID) {
		return Result{}, ErrAlreadyStarted
	}
	if len(p.CurrentLifeAchievements) >= MaxActiveAchievements {
		return Result{}, CapacityError{Limit: MaxActiveAchievements}
	}

	ensureCollections(p)
	levelBefore := p.Avatar.Level

	tasks := GenerateTasksForAchievement(a.ID, p.ID)
	p.CurrentLifeAchievements = append(p.CurrentLifeAchievements, a.ID)
	p.AchievementStartDates[a.ID] = now
	for _, t := range tasks {
		if !contains(p.CurrentTasks, t.ID) {
			p.CurrentTasks = append(p.CurrentTasks, t.ID)
		}
	}
	if i := achievementListIndex(p, a.ID); i >= 0 {
		p.TaskLists[i] = newAchievementList(p, a.ID, tasks, now)
	} else {
		p.TaskLists = append(p.TaskLists, newAchievementList(p, a.ID, tasks, now))
	}

	bonus := Bundle(StartingBonusXP, 0, 0, 0, 0)
	p.Avatar = ApplyRewards(p.Avatar, bonus)
	p.UpdatedAt = now
	return newResult(p, a.ID, "", bonus, levelBefore), nil
}

// CompleteTask marks a task done and applies its reward. It reports which
// in-progress achievements became ready; completing them is left to the
// caller.
func CompleteTask(p *models.UserProfile, taskID, proofURL string, now time.Time) (Result, error) {
	if contains(p.CompletedTasks, taskID) {
		return Result{}, ErrTaskAlreadyCompleted
	}
	t, ok := LookupTask(p, taskID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}

	ensureCollections(p)
	levelBefore := p.Avatar.Level

	p.Avatar = ApplyRewards(p.Avatar, t.Rewards)
	p.CompletedTasks = append(p.CompletedTasks, taskID)
	markTasksCompleted(p, []string{taskID}, proofURL, now)
	p.UpdatedAt = now

	res := newResult(p, t.AchievementID, taskID, t.Rewards, levelBefore)
	res.Ready = ReadyAchievements(p, now)
	return res, nil
}

// CompleteReadyAchievement completes an achievement on the user's request.
// Unlike CompleteLifeAchievement it refuses until every task is done and the
// minimum-day gate has passed.
func CompleteReadyAchievement(p *models.UserProfile, achID string, now time.Time) (Result, error) {
	if contains(p.CompletedLifeAchievements, achID) {
		return Result{}, ErrAlreadyCompleted
	}
	if !contains(p.CurrentLifeAchievements, achID) {
		return Result{}, ErrNotInProgress
	}
	if !achievementReady(p, achID, now) {
		return Result{}, fmt.Errorf("%w: %s", ErrNotReady, achID)
	}
	return CompleteLifeAchievement(p, achID, now)
}

// CompleteLifeAchievement moves an in-progress achievement to completed. All
// of its canonical tasks are marked completed whether or not the user did
// them, and the full reward bundle is applied.
func CompleteLifeAchievement(p *models.UserProfile, achID string, now time.Time) (Result, error) {
	if contains(p.CompletedLifeAchievements, achID) {
		return Result{}, ErrAlreadyCompleted
	}
	if !contains(p.CurrentLifeAchievements, achID) {
		return Result{}, ErrNotInProgress
	}
	a, ok := LookupAchievement(achID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAchievement, achID)
	}

	ensureCollections(p)
	levelBefore := p.Avatar.Level

	ids := taskIDs(GenerateTasksForAchievement(a.ID, p.ID))
	for _, id := range ids {
		if !contains(p.CompletedTasks, id) {
			p.CompletedTasks = append(p.CompletedTasks, id)
		}
	}
	markTasksCompleted(p, ids, "", now)
	p.CurrentTasks = without(p.CurrentTasks, ids...)
	p.CurrentLifeAchievements = without(p.CurrentLifeAchievements, a.ID)
	p.CompletedLifeAchievements = append(p.CompletedLifeAchievements, a.ID)
	p.AchievementCompletedDates[a.ID] = now

	p.Avatar = ApplyRewards(p.Avatar, a.Rewards)
	p.UpdatedAt = now
	return newResult(p, a.ID, "", a.Rewards, levelBefore), nil
}

// RemoveLifeAchievement abandons an in-progress achievement. Its tasks stop
// being tracked and half of the current experience (rounded down) is lost.
// Completed task IDs are kept, so restarting the achievement keeps them.
func RemoveLifeAchievement(p *models.UserProfile, achID string, now time.Time) (Result, error) {
	if !contains(p.CurrentLifeAchievements, achID) {
		return Result{}, ErrNotInProgress
	}

	ensureCollections(p)
	levelBefore := p.Avatar.Level

	ids := taskIDs(GenerateTasksForAchievement(achID, p.ID))
	p.CurrentTasks = without(p.CurrentTasks, ids...)
	p.CurrentLifeAchievements = without(p.CurrentLifeAchievements, achID)
	delete(p.AchievementStartDates, achID)
	if i := achievementListIndex(p, achID); i >= 0 {
		p.TaskLists = append(p.TaskLists[:i], p.TaskLists[i+1:]...)
	}

	var penalty models.RewardBundle
	if p.Avatar.Experience > 0 {
		penalty = Bundle(-(p.Avatar.Experience / 2), 0, 0, 0, 0)
	}
	p.Avatar = ApplyRewards(p.Avatar, penalty)
	p.UpdatedAt = now
	return newResult(p, achID, "", penalty, levelBefore), nil
}

// ResetPeriod regenerates the daily or weekly list and clears its task IDs
// from CompletedTasks so they can be earned again. An existing list can only
// be replaced once its UTC day (daily) or ISO week (weekly) is over.
func ResetPeriod(p *models.UserProfile, period string, now time.Time) error {
	tasks := GenerateTasksForPeriod(period, p.ID)
	if len(tasks) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownPeriod, period)
	}
	if i := periodListIndex(p, period); i >= 0 && samePeriod(period, p.TaskLists[i].CreatedAt, now) {
		return fmt.Errorf("%w: %s", ErrPeriodNotOver, period)
	}

	ensureCollections(p)
	ids := taskIDs(tasks)
	p.CompletedTasks = without(p.CompletedTasks, ids...)
	for _, id := range ids {
		if !contains(p.CurrentTasks, id) {
			p.CurrentTasks = append(p.CurrentTasks, id)
		}
	}
	list := newPeriodList(p, period, tasks, now)
	if i := periodListIndex(p, period); i >= 0 {
		p.TaskLists[i] = list
	} else {
		p.TaskLists = append(p.TaskLists, list)
	}
	p.UpdatedAt = now
	return nil
}

func samePeriod(period string, created, now time.Time) bool {
	created, now = created.UTC(), now.UTC()
	if period == PeriodWeekly {
		cy, cw := created.ISOWeek()
		ny, nw := now.ISOWeek()
		return cy == ny && cw == nw
	}
	return created.Format("2006-01-02") == now.Format("2006-01-02")
}

// AwardRewards applies an out-of-band bundle (signs, civic actions).
func AwardRewards(p *models.UserProfile, b models.RewardBundle, now time.Time) Result {
	levelBefore := p.Avatar.Level
	p.Avatar = ApplyRewards(p.Avatar, b)
	p.UpdatedAt = now
	return newResult(p, "", "", b, levelBefore)
}

// OpenTasks returns the tracked task IDs that are not yet completed.
func OpenTasks(p *models.UserProfile) []string {
	var open []string
	for _, id := range p.CurrentTasks {
		if !contains(p.CompletedTasks, id) {
			open = append(open, id)
		}
	}
	return open
}

func markTasksCompleted(p *models.UserProfile, ids []string, proofURL string, now time.Time) {
	for li := range p.TaskLists {
		l := &p.TaskLists[li]
		touched := false
		for ti := range l.Tasks {
			t := &l.Tasks[ti]
			if t.Completed || !contains(ids, t.ID) {
				continue
			}
			at := now
			t.Completed = true
			t.CompletedAt = &at
			if proofURL != "" {
				t.ProofURL = proofURL
			}
			touched = true
		}
		if touched {
			l.RecomputeProgress()
		}
	}
}

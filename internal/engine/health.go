package engine

import (
	"fmt"
	"time"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

const (
	stepsPerHealthPoint = 1000
	maxStepPoints       = 15
	restfulSleepBonus   = 5
	xpPerHealthPoint    = 10
)

// HealthReward converts a daily snapshot into a reward bundle.
func HealthReward(steps int, sleepHours float64) models.RewardBundle {
	points := steps / stepsPerHealthPoint
	if points > maxStepPoints {
		points = maxStepPoints
	}
	if points < 0 {
		points = 0
	}
	if sleepHours >= 7 && sleepHours <= 9 {
		points += restfulSleepBonus
	}
	return Bundle(points*xpPerHealthPoint, 0, 0, points, 0)
}

// ApplyHealthSnapshot rewards one health sync per calendar date. Dates must
// move forward, so an older date is refused even if it was never synced.
func ApplyHealthSnapshot(p *models.UserProfile, snap models.HealthSnapshot, now time.Time) (Result, error) {
	if snap.Date == "" {
		snap.Date = now.UTC().Format("2006-01-02")
	}
	if p.Health != nil {
		// YYYY-MM-DD sorts lexically.
		switch {
		case snap.Date == p.Health.Date:
			return Result{}, ErrAlreadySynced
		case snap.Date < p.Health.Date:
			return Result{}, fmt.Errorf("%w: %s", ErrStaleHealthDate, p.Health.Date)
		}
	}
	snap.SyncedAt = now
	p.Health = &snap
	return AwardRewards(p, HealthReward(snap.Steps, snap.SleepHours), now), nil
}

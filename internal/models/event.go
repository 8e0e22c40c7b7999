package models

import "time"

// Event types pushed to a user's realtime channel.
const (
	EventAchievementStarted   = "achievement_started"
	EventAchievementReady     = "achievement_ready"
	EventAchievementCompleted = "achievement_completed"
	EventAchievementRemoved   = "achievement_removed"
	EventTaskCompleted        = "task_completed"
	EventRewardGranted        = "reward_granted"
	EventLevelUp              = "level_up"
)

// Event is a state change notification for one user.
type Event struct {
	Type          string       `json:"type"`
	UserID        string       `json:"userId"`
	AchievementID string       `json:"achievementId,omitempty"`
	TaskID        string       `json:"taskId,omitempty"`
	Rewards       RewardBundle `json:"rewards"`
	Level         int          `json:"level,omitempty"`
	Payload       interface{}  `json:"payload,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

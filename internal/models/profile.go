package models

import (
	"time"
)

// Avatar holds the player's scores. Level is derived from Experience.
type Avatar struct {
	Level         int               `bson:"level" json:"level"`
	Experience    int               `bson:"experience" json:"experience"`
	CivicScore    int               `bson:"civic_score" json:"civicScore"`
	LifeScore     int               `bson:"life_score" json:"lifeScore"`
	HealthScore   int               `bson:"health_score" json:"healthScore"`
	CareerScore   int               `bson:"career_score" json:"careerScore"`
	Customization map[string]string `bson:"customization,omitempty" json:"customization,omitempty"`
}

// Preferences are free-form client settings stored with the profile.
type Preferences struct {
	Theme         string   `bson:"theme,omitempty" json:"theme,omitempty"`
	Notifications bool     `bson:"notifications" json:"notifications"`
	Interests     []string `bson:"interests,omitempty" json:"interests,omitempty"`
	ShareLocation bool     `bson:"share_location" json:"shareLocation"`
}

// HealthSnapshot is the last ingested daily health summary.
type HealthSnapshot struct {
	Date       string    `bson:"date" json:"date"` // YYYY-MM-DD
	Steps      int       `bson:"steps" json:"steps"`
	SleepHours float64   `bson:"sleep_hours" json:"sleepHours"`
	SyncedAt   time.Time `bson:"synced_at" json:"syncedAt"`
}

// UserProfile is the single document that holds a user's game state.
// An achievement ID is in at most one of CurrentLifeAchievements and
// CompletedLifeAchievements.
type UserProfile struct {
	ID            string `bson:"_id" json:"id"`
	SchemaVersion int    `bson:"schema_version" json:"schemaVersion"`
	Username      string `bson:"username" json:"username"`
	Age           int    `bson:"age,omitempty" json:"age,omitempty"`

	Avatar      Avatar      `bson:"avatar" json:"avatar"`
	Preferences Preferences `bson:"preferences" json:"preferences"`

	CurrentLifeAchievements   []string             `bson:"current_life_achievements" json:"currentLifeAchievements"`
	CompletedLifeAchievements []string             `bson:"completed_life_achievements" json:"completedLifeAchievements"`
	AchievementStartDates     map[string]time.Time `bson:"achievement_start_dates" json:"achievementStartDates"`
	AchievementCompletedDates map[string]time.Time `bson:"achievement_completed_dates" json:"achievementCompletedDates"`

	CurrentTasks   []string   `bson:"current_tasks" json:"currentTasks"`
	CompletedTasks []string   `bson:"completed_tasks" json:"completedTasks"`
	TaskLists      []TaskList `bson:"task_lists" json:"taskLists"`

	Health *HealthSnapshot `bson:"health,omitempty" json:"health,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewUserProfile returns an empty level-1 profile.
func NewUserProfile(id, username string, now time.Time) *UserProfile {
	return &UserProfile{
		ID:                        id,
		Username:                  username,
		Avatar:                    Avatar{Level: 1},
		CurrentLifeAchievements:   []string{},
		CompletedLifeAchievements: []string{},
		AchievementStartDates:     map[string]time.Time{},
		AchievementCompletedDates: map[string]time.Time{},
		CurrentTasks:              []string{},
		CompletedTasks:            []string{},
		TaskLists:                 []TaskList{},
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (p *UserProfile) Clone() *UserProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.Avatar.Customization = cloneStringMap(p.Avatar.Customization)
	c.Preferences.Interests = cloneStrings(p.Preferences.Interests)
	c.CurrentLifeAchievements = cloneStrings(p.CurrentLifeAchievements)
	c.CompletedLifeAchievements = cloneStrings(p.CompletedLifeAchievements)
	c.AchievementStartDates = cloneTimeMap(p.AchievementStartDates)
	c.AchievementCompletedDates = cloneTimeMap(p.AchievementCompletedDates)
	c.CurrentTasks = cloneStrings(p.CurrentTasks)
	c.CompletedTasks = cloneStrings(p.CompletedTasks)
	if p.TaskLists != nil {
		c.TaskLists = make([]TaskList, len(p.TaskLists))
		for i, l := range p.TaskLists {
			c.TaskLists[i] = l.Clone()
		}
	}
	if p.Health != nil {
		h := *p.Health
		c.Health = &h
	}
	return &c
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneTimeMap(in map[string]time.Time) map[string]time.Time {
	if in == nil {
		return nil
	}
	out := make(map[string]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

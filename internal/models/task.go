package models

import (
	"time"
)

// Verification describes how a task completion is proven.
type Verification string

const (
	VerificationNone   Verification = "none"
	VerificationPhoto  Verification = "photo"
	VerificationSelfie Verification = "selfie"
)

// RewardBundle is a partial set of score deltas. Nil fields are absent.
type RewardBundle struct {
	Experience  *int `bson:"experience,omitempty" json:"experience,omitempty"`
	CivicScore  *int `bson:"civic_score,omitempty" json:"civicScore,omitempty"`
	LifeScore   *int `bson:"life_score,omitempty" json:"lifeScore,omitempty"`
	HealthScore *int `bson:"health_score,omitempty" json:"healthScore,omitempty"`
	CareerScore *int `bson:"career_score,omitempty" json:"careerScore,omitempty"`
}

// IsZero reports whether no field is present.
func (b RewardBundle) IsZero() bool {
	return b.Experience == nil && b.CivicScore == nil && b.LifeScore == nil &&
		b.HealthScore == nil && b.CareerScore == nil
}

// TaskItem is one unit of work inside a TaskList.
type TaskItem struct {
	ID            string       `bson:"id" json:"id"`
	Title         string       `bson:"title" json:"title"`
	Category      string       `bson:"category" json:"category"`
	Difficulty    string       `bson:"difficulty" json:"difficulty"`
	AchievementID string       `bson:"achievement_id,omitempty" json:"achievementId,omitempty"`
	Rewards       RewardBundle `bson:"rewards" json:"rewards"`
	Verification  Verification `bson:"verification" json:"verification"`
	Completed     bool         `bson:"completed" json:"completed"`
	CompletedAt   *time.Time   `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
	ProofURL      string       `bson:"proof_url,omitempty" json:"proofUrl,omitempty"`
}

// TaskListKind scopes a TaskList.
type TaskListKind string

const (
	TaskListDaily       TaskListKind = "daily"
	TaskListWeekly      TaskListKind = "weekly"
	TaskListAchievement TaskListKind = "achievement"
)

// TaskList groups TaskItems. Progress is completed/total as a percentage.
type TaskList struct {
	ID            string       `bson:"id" json:"id"`
	Name          string       `bson:"name" json:"name"`
	Kind          TaskListKind `bson:"kind" json:"kind"`
	AchievementID string       `bson:"achievement_id,omitempty" json:"achievementId,omitempty"`
	Tasks         []TaskItem   `bson:"tasks" json:"tasks"`
	Progress      int          `bson:"progress" json:"progress"`
	CreatedAt     time.Time    `bson:"created_at" json:"createdAt"`
}

// RecomputeProgress updates Progress from the task completion flags.
func (l *TaskList) RecomputeProgress() {
	if len(l.Tasks) == 0 {
		l.Progress = 0
		return
	}
	done := 0
	for _, t := range l.Tasks {
		if t.Completed {
			done++
		}
	}
	l.Progress = done * 100 / len(l.Tasks)
}

func (l TaskList) Clone() TaskList {
	c := l
	if l.Tasks != nil {
		c.Tasks = make([]TaskItem, len(l.Tasks))
		for i, t := range l.Tasks {
			if t.CompletedAt != nil {
				at := *t.CompletedAt
				t.CompletedAt = &at
			}
			c.Tasks[i] = t
		}
	}
	return c
}

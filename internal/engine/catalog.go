package engine

import (
	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

type Difficulty string

const (
	DifficultyEasy      Difficulty = "easy"
	DifficultyMedium    Difficulty = "medium"
	DifficultyHard      Difficulty = "hard"
	DifficultyLegendary Difficulty = "legendary"
)

// minimumDays is how long an achievement must have been in progress before
// it can complete, by tier.
var minimumDays = map[Difficulty]int{
	DifficultyEasy:      1,
	DifficultyMedium:    3,
	DifficultyHard:      7,
	DifficultyLegendary: 14,
}

// MinimumDays returns the elapsed-day gate for d. Unknown tiers use the
// legendary gate.
func (d Difficulty) MinimumDays() int {
	if n, ok := minimumDays[d]; ok {
		return n
	}
	return minimumDays[DifficultyLegendary]
}

func (d Difficulty) IsValid() bool {
	_, ok := minimumDays[d]
	return ok
}

// Achievement categories double as task categories.
const (
	CategoryHealth = "health"
	CategoryCareer = "career"
	CategoryCivic  = "civic"
	CategoryLife   = "life"
)

// MaxActiveAchievements caps how many achievements may be in progress at once.
const MaxActiveAchievements = 15

// StartingBonusXP is awarded when an achievement is started.
const StartingBonusXP = 50

// TaskTemplate is the static description a TaskItem is generated from.
type TaskTemplate struct {
	Type         string
	Title        string
	Category     string
	Difficulty   Difficulty
	Rewards      models.RewardBundle
	Verification models.Verification
}

// Achievement is a catalog entry for a long-running life goal.
type Achievement struct {
	ID          string
	Title       string
	Description string
	Category    string
	Difficulty  Difficulty
	Rewards     models.RewardBundle
	Tasks       []TaskTemplate
}

func intPtr(v int) *int { return &v }

// Bundle builds a reward bundle with only the non-zero fields present.
func Bundle(xp, civic, life, health, career int) models.RewardBundle {
	var b models.RewardBundle
	if xp != 0 {
		b.Experience = intPtr(xp)
	}
	if civic != 0 {
		b.CivicScore = intPtr(civic)
	}
	if life != 0 {
		b.LifeScore = intPtr(life)
	}
	if health != 0 {
		b.HealthScore = intPtr(health)
	}
	if career != 0 {
		b.CareerScore = intPtr(career)
	}
	return b
}

func task(typ, title, category string, d Difficulty, rewards models.RewardBundle, v models.Verification) TaskTemplate {
	return TaskTemplate{Type: typ, Title: title, Category: category, Difficulty: d, Rewards: rewards, Verification: v}
}

const (
	none   = models.VerificationNone
	photo  = models.VerificationPhoto
	selfie = models.VerificationSelfie
)

var catalog = []Achievement{
	// Health
	{
		ID: "fitness-routine-start", Title: "Fitness Routine", Description: "Build the habit of moving every day",
		Category: CategoryHealth, Difficulty: DifficultyEasy, Rewards: Bundle(300, 0, 10, 25, 0),
		Tasks: []TaskTemplate{
			task("first-workout", "Complete a 20 minute workout", CategoryHealth, DifficultyEasy, Bundle(50, 0, 0, 5, 0), selfie),
			task("stretch-session", "Stretch for 10 minutes", CategoryHealth, DifficultyEasy, Bundle(25, 0, 0, 3, 0), none),
			task("hydrate", "Drink 8 glasses of water", CategoryHealth, DifficultyEasy, Bundle(20, 0, 0, 2, 0), none),
		},
	},
	{
		ID: "morning-runner", Title: "Morning Runner", Description: "Run before breakfast three mornings",
		Category: CategoryHealth, Difficulty: DifficultyMedium, Rewards: Bundle(600, 0, 10, 40, 0),
		Tasks: []TaskTemplate{
			task("run-1k", "Run 1 km", CategoryHealth, DifficultyEasy, Bundle(40, 0, 0, 4, 0), none),
			task("run-3k", "Run 3 km", CategoryHealth, DifficultyMedium, Bundle(80, 0, 0, 8, 0), selfie),
			task("run-5k", "Run 5 km", CategoryHealth, DifficultyMedium, Bundle(120, 0, 0, 12, 0), photo),
		},
	},
	{
		ID: "sleep-hygiene", Title: "Sleep Hygiene", Description: "Reset your sleep schedule",
		Category: CategoryHealth, Difficulty: DifficultyMedium, Rewards: Bundle(500, 0, 15, 30, 0),
		Tasks: []TaskTemplate{
			task("screen-curfew", "No screens an hour before bed", CategoryHealth, DifficultyMedium, Bundle(60, 0, 2, 5, 0), none),
			task("consistent-bedtime", "Go to bed at the same time", CategoryHealth, DifficultyEasy, Bundle(40, 0, 0, 5, 0), none),
			task("sleep-journal", "Keep a sleep journal", CategoryHealth, DifficultyEasy, Bundle(30, 0, 3, 2, 0), photo),
		},
	},
	{
		ID: "marathon-ready", Title: "Marathon Ready", Description: "Train up to a full race",
		Category: CategoryHealth, Difficulty: DifficultyLegendary, Rewards: Bundle(2500, 0, 40, 150, 0),
		Tasks: []TaskTemplate{
			task("long-run-10k", "Run 10 km", CategoryHealth, DifficultyHard, Bundle(200, 0, 0, 20, 0), selfie),
			task("long-run-21k", "Run a half marathon", CategoryHealth, DifficultyLegendary, Bundle(400, 0, 5, 40, 0), photo),
			task("race-registration", "Register for a race", CategoryHealth, DifficultyEasy, Bundle(50, 0, 5, 0, 0), photo),
			task("taper-week", "Complete a taper week", CategoryHealth, DifficultyMedium, Bundle(150, 0, 0, 15, 0), none),
		},
	},

	// Civic
	{
		ID: "civic-voice", Title: "Civic Voice", Description: "Make yourself heard locally",
		Category: CategoryCivic, Difficulty: DifficultyEasy, Rewards: Bundle(350, 40, 10, 0, 0),
		Tasks: []TaskTemplate{
			task("attend-town-hall", "Attend a town hall meeting", CategoryCivic, DifficultyMedium, Bundle(80, 10, 0, 0, 0), selfie),
			task("contact-representative", "Contact your representative", CategoryCivic, DifficultyEasy, Bundle(40, 8, 0, 0, 0), none),
		},
	},
	{
		ID: "neighborhood-cleanup", Title: "Neighborhood Cleanup", Description: "Leave your block cleaner than you found it",
		Category: CategoryCivic, Difficulty: DifficultyMedium, Rewards: Bundle(700, 80, 10, 5, 0),
		Tasks: []TaskTemplate{
			task("report-litter-sign", "Report a litter hotspot on the map", CategoryCivic, DifficultyEasy, Bundle(30, 10, 0, 0, 0), photo),
			task("join-cleanup", "Join a cleanup event", CategoryCivic, DifficultyMedium, Bundle(100, 20, 0, 3, 0), photo),
			task("recruit-neighbor", "Bring a neighbor along", CategoryCivic, DifficultyMedium, Bundle(60, 15, 3, 0, 0), selfie),
		},
	},
	{
		ID: "community-volunteer", Title: "Community Volunteer", Description: "Give your time to a local organization",
		Category: CategoryCivic, Difficulty: DifficultyHard, Rewards: Bundle(1200, 150, 25, 0, 5),
		Tasks: []TaskTemplate{
			task("find-organization", "Find an organization to volunteer with", CategoryCivic, DifficultyEasy, Bundle(30, 5, 0, 0, 0), none),
			task("first-shift", "Complete your first shift", CategoryCivic, DifficultyMedium, Bundle(120, 25, 5, 0, 0), selfie),
			task("second-shift", "Complete a second shift", CategoryCivic, DifficultyMedium, Bundle(120, 25, 5, 0, 0), selfie),
			task("share-story", "Share what you learned", CategoryCivic, DifficultyEasy, Bundle(40, 10, 2, 0, 0), none),
		},
	},
	{
		ID: "green-commuter", Title: "Green Commuter", Description: "Swap the car for a week",
		Category: CategoryCivic, Difficulty: DifficultyHard, Rewards: Bundle(1000, 120, 10, 20, 0),
		Tasks: []TaskTemplate{
			task("bike-commute", "Bike to work or school", CategoryCivic, DifficultyMedium, Bundle(90, 15, 0, 8, 0), photo),
			task("transit-week", "Use public transit for a week", CategoryCivic, DifficultyHard, Bundle(150, 25, 0, 0, 0), photo),
			task("carpool", "Organize a carpool", CategoryCivic, DifficultyMedium, Bundle(70, 15, 3, 0, 0), none),
		},
	},
	{
		ID: "civic-legend", Title: "Civic Legend", Description: "Lead a neighborhood initiative end to end",
		Category: CategoryCivic, Difficulty: DifficultyLegendary, Rewards: Bundle(3000, 400, 40, 0, 20),
		Tasks: []TaskTemplate{
			task("start-petition", "Start a petition", CategoryCivic, DifficultyMedium, Bundle(120, 30, 0, 0, 0), none),
			task("gather-signatures", "Gather 100 signatures", CategoryCivic, DifficultyHard, Bundle(250, 60, 0, 0, 0), photo),
			task("present-council", "Present to the city council", CategoryCivic, DifficultyLegendary, Bundle(500, 120, 10, 0, 10), selfie),
		},
	},

	// Career
	{
		ID: "resume-refresh", Title: "Resume Refresh", Description: "Get your resume up to date",
		Category: CategoryCareer, Difficulty: DifficultyEasy, Rewards: Bundle(300, 0, 5, 0, 30),
		Tasks: []TaskTemplate{
			task("update-resume", "Update your resume", CategoryCareer, DifficultyEasy, Bundle(50, 0, 0, 0, 8), none),
			task("request-feedback", "Ask someone to review it", CategoryCareer, DifficultyEasy, Bundle(40, 0, 0, 0, 5), none),
		},
	},
	{
		ID: "skill-builder", Title: "Skill Builder", Description: "Learn something new and ship it",
		Category: CategoryCareer, Difficulty: DifficultyMedium, Rewards: Bundle(700, 0, 10, 0, 60),
		Tasks: []TaskTemplate{
			task("pick-course", "Pick a course", CategoryCareer, DifficultyEasy, Bundle(30, 0, 0, 0, 3), none),
			task("finish-module", "Finish the first module", CategoryCareer, DifficultyMedium, Bundle(90, 0, 0, 0, 10), none),
			task("build-project", "Build a small project with it", CategoryCareer, DifficultyHard, Bundle(160, 0, 3, 0, 20), photo),
		},
	},
	{
		ID: "network-builder", Title: "Network Builder", Description: "Grow your professional circle",
		Category: CategoryCareer, Difficulty: DifficultyHard, Rewards: Bundle(1100, 10, 15, 0, 90),
		Tasks: []TaskTemplate{
			task("coffee-chat", "Have a coffee chat", CategoryCareer, DifficultyEasy, Bundle(50, 0, 2, 0, 8), none),
			task("attend-meetup", "Attend a local meetup", CategoryCareer, DifficultyMedium, Bundle(90, 5, 0, 0, 12), selfie),
			task("follow-up", "Follow up with three contacts", CategoryCareer, DifficultyEasy, Bundle(40, 0, 0, 0, 6), none),
		},
	},
	{
		ID: "career-pivot", Title: "Career Pivot", Description: "Land a role in a new field",
		Category: CategoryCareer, Difficulty: DifficultyLegendary, Rewards: Bundle(3000, 0, 50, 0, 300),
		Tasks: []TaskTemplate{
			task("map-target-role", "Map your target role", CategoryCareer, DifficultyMedium, Bundle(80, 0, 0, 0, 10), none),
			task("portfolio-piece", "Publish a portfolio piece", CategoryCareer, DifficultyHard, Bundle(250, 0, 5, 0, 40), photo),
			task("apply-five", "Apply to five roles", CategoryCareer, DifficultyHard, Bundle(200, 0, 0, 0, 30), none),
			task("land-interview", "Land an interview", CategoryCareer, DifficultyLegendary, Bundle(400, 0, 10, 0, 60), none),
		},
	},

	// Life
	{
		ID: "home-cook", Title: "Home Cook", Description: "Cook for yourself this week",
		Category: CategoryLife, Difficulty: DifficultyEasy, Rewards: Bundle(300, 0, 30, 10, 0),
		Tasks: []TaskTemplate{
			task("meal-plan", "Plan your meals", CategoryLife, DifficultyEasy, Bundle(30, 0, 4, 0, 0), none),
			task("cook-meal", "Cook a meal from scratch", CategoryLife, DifficultyEasy, Bundle(50, 0, 6, 3, 0), photo),
		},
	},
	{
		ID: "digital-detox", Title: "Digital Detox", Description: "Take back your attention",
		Category: CategoryLife, Difficulty: DifficultyMedium, Rewards: Bundle(600, 0, 50, 10, 0),
		Tasks: []TaskTemplate{
			task("app-audit", "Delete three apps you don't need", CategoryLife, DifficultyEasy, Bundle(30, 0, 5, 0, 0), none),
			task("offline-evening", "Spend an evening offline", CategoryLife, DifficultyMedium, Bundle(80, 0, 10, 2, 0), none),
			task("outdoor-hour", "Spend an hour outside", CategoryLife, DifficultyEasy, Bundle(50, 0, 5, 5, 0), photo),
		},
	},
	{
		ID: "financial-foundation", Title: "Financial Foundation", Description: "Put your money on solid ground",
		Category: CategoryLife, Difficulty: DifficultyHard, Rewards: Bundle(1200, 0, 80, 0, 20),
		Tasks: []TaskTemplate{
			task("track-spending", "Track spending for a week", CategoryLife, DifficultyMedium, Bundle(90, 0, 10, 0, 0), none),
			task("build-budget", "Build a monthly budget", CategoryLife, DifficultyMedium, Bundle(100, 0, 12, 0, 3), none),
			task("emergency-fund", "Start an emergency fund", CategoryLife, DifficultyHard, Bundle(180, 0, 20, 0, 5), none),
		},
	},
	{
		ID: "world-explorer", Title: "World Explorer", Description: "See somewhere new",
		Category: CategoryLife, Difficulty: DifficultyLegendary, Rewards: Bundle(2500, 20, 150, 20, 0),
		Tasks: []TaskTemplate{
			task("visit-new-neighborhood", "Explore a new neighborhood", CategoryLife, DifficultyEasy, Bundle(50, 2, 5, 2, 0), selfie),
			task("visit-new-city", "Visit a new city", CategoryLife, DifficultyHard, Bundle(250, 5, 25, 5, 0), selfie),
			task("local-landmark", "Visit a local landmark", CategoryLife, DifficultyMedium, Bundle(90, 3, 10, 3, 0), photo),
		},
	},
}

var catalogIndex = func() map[string]int {
	idx := make(map[string]int, len(catalog))
	for i, a := range catalog {
		idx[a.ID] = i
	}
	return idx
}()

// Catalog returns every life achievement in display order.
func Catalog() []Achievement {
	out := make([]Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// LookupAchievement returns the catalog entry for id.
func LookupAchievement(id string) (Achievement, bool) {
	i, ok := catalogIndex[id]
	if !ok {
		return Achievement{}, false
	}
	return catalog[i], true
}

// Task periods for the recurring lists.
const (
	PeriodDaily  = string(models.TaskListDaily)
	PeriodWeekly = string(models.TaskListWeekly)
)

var periodTasks = map[string][]TaskTemplate{
	PeriodDaily: {
		task("hydrate", "Drink 8 glasses of water", CategoryHealth, DifficultyEasy, Bundle(15, 0, 0, 2, 0), none),
		task("walk-10-min", "Take a 10 minute walk", CategoryHealth, DifficultyEasy, Bundle(15, 0, 0, 2, 0), none),
		task("kind-act", "Do something kind for someone", CategoryCivic, DifficultyEasy, Bundle(15, 2, 1, 0, 0), none),
		task("reflect", "Write one line about your day", CategoryLife, DifficultyEasy, Bundle(10, 0, 2, 0, 0), none),
	},
	PeriodWeekly: {
		task("weekly-review", "Review your week", CategoryLife, DifficultyEasy, Bundle(40, 0, 5, 0, 2), none),
		task("try-new-place", "Try a new place nearby", CategoryLife, DifficultyMedium, Bundle(60, 2, 5, 0, 0), photo),
		task("call-friend", "Call a friend or family member", CategoryLife, DifficultyEasy, Bundle(30, 0, 5, 0, 0), none),
		task("civic-check-in", "Check the map for a civic action", CategoryCivic, DifficultyEasy, Bundle(40, 8, 0, 0, 0), none),
	},
}

// IsPeriod reports whether period names a recurring task list.
func IsPeriod(period string) bool {
	_, ok := periodTasks[period]
	return ok
}

package engine

import (
	"fmt"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
)

// CurrentSchemaVersion is the profile layout this package reads and writes.
const CurrentSchemaVersion = 2

// migrations[i] upgrades a profile from version i to i+1.
var migrations = []func(*models.UserProfile){
	migrateLegacyTaskIDs,
	normalizeCollections,
}

// Migrate upgrades p in place to CurrentSchemaVersion and reports whether
// anything ran. Profiles from a newer schema are rejected.
func Migrate(p *models.UserProfile) (bool, error) {
	if p.SchemaVersion > CurrentSchemaVersion {
		return false, fmt.Errorf("profile %s has schema version %d, newer than supported %d",
			p.ID, p.SchemaVersion, CurrentSchemaVersion)
	}
	if p.SchemaVersion < 0 {
		p.SchemaVersion = 0
	}
	ran := false
	for v := p.SchemaVersion; v < CurrentSchemaVersion; v++ {
		migrations[v](p)
		p.SchemaVersion = v + 1
		ran = true
	}
	return ran, nil
}

// migrateLegacyTaskIDs rewrites "<scope>_<type>" task IDs to the user-scoped
// "<scope>-<type>-<user>" format.
func migrateLegacyTaskIDs(p *models.UserProfile) {
	rename := legacyRenames(p)
	if len(rename) == 0 {
		return
	}
	remap := func(ids []string) []string {
		out := make([]string, len(ids))
		for i, id := range ids {
			if n, ok := rename[id]; ok {
				id = n
			}
			out[i] = id
		}
		return out
	}
	p.CurrentTasks = remap(p.CurrentTasks)
	p.CompletedTasks = remap(p.CompletedTasks)
	for li := range p.TaskLists {
		for ti := range p.TaskLists[li].Tasks {
			t := &p.TaskLists[li].Tasks[ti]
			if n, ok := rename[t.ID]; ok {
				t.ID = n
			}
		}
	}
}

func legacyRenames(p *models.UserProfile) map[string]string {
	rename := map[string]string{}
	scopes := append([]string{PeriodDaily, PeriodWeekly}, p.CurrentLifeAchievements...)
	scopes = append(scopes, p.CompletedLifeAchievements...)
	for _, scope := range scopes {
		var templates []TaskTemplate
		if a, ok := LookupAchievement(scope); ok {
			templates = a.Tasks
		} else {
			templates = periodTasks[scope]
		}
		for _, t := range templates {
			rename[legacyTaskID(scope, t.Type)] = TaskID(scope, t.Type, p.ID)
		}
	}
	return rename
}

// normalizeCollections initialises nil collections, collapses duplicates and
// enforces that an achievement is never both current and completed.
func normalizeCollections(p *models.UserProfile) {
	ensureCollections(p)
	p.CompletedLifeAchievements = dedupe(p.CompletedLifeAchievements)
	p.CurrentLifeAchievements = without(dedupe(p.CurrentLifeAchievements), p.CompletedLifeAchievements...)
	p.CurrentTasks = dedupe(p.CurrentTasks)
	p.CompletedTasks = dedupe(p.CompletedTasks)
	if p.Avatar.Level < 1 {
		p.Avatar.Level = LevelForExperience(p.Avatar.Experience)
	}
}

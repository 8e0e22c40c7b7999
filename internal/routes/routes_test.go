package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/engine"
	"github.com/AnshRaj112/civicquest-backend/internal/handlers"
	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
	"github.com/AnshRaj112/civicquest-backend/internal/store"
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

type testEnv struct {
	srv      *httptest.Server
	clock    *manualClock
	hub      *services.EventHub
	gen      *fakeGenerator
	presence *fakePresence
	proofs   *fakeProofs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := &testEnv{
		clock:    &manualClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		hub:      services.NewEventHub(nil, zap.NewNop()),
		gen:      &fakeGenerator{},
		presence: &fakePresence{online: make(map[string][2]float64)},
		proofs:   &fakeProofs{},
	}
	st := store.New(store.NewMemoryRepository(), store.Options{
		CompletionDelay: time.Hour,
		Publisher:       e.hub,
		Now:             e.clock.Now,
	})
	t.Cleanup(st.Close)

	h := handlers.New(handlers.Deps{
		Store:    st,
		Users:    newFakeUsers(),
		Sessions: newFakeSessions(),
		Signs:    newFakeSigns(),
		Coach:    services.NewCoachService(e.gen, "", nil),
		Keys:     &fakeKeys{keys: make(map[uuid.UUID]string)},
		Presence: e.presence,
		Proofs:   e.proofs,
		Leaderboard: fakeLeaderboard{profiles: []models.UserProfile{
			{ID: "a", Username: "ada", Avatar: models.Avatar{Level: 3, Experience: 2100}},
			{ID: "b", Username: "bo", Avatar: models.Avatar{Level: 1, Experience: 400}},
		}},
		Events: e.hub,
	})
	r := chi.NewRouter()
	SetupRoutes(r, h)
	e.srv = httptest.NewServer(r)
	t.Cleanup(e.srv.Close)
	return e
}

// call sends body as JSON and decodes the response into out when non-nil.
func (e *testEnv) call(t *testing.T, method, path, token string, body, out interface{}) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token, out)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string, out interface{}) int {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type authResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
	Profile models.UserProfile `json:"profile"`
}

type actionResponse struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Profile models.UserProfile `json:"profile"`
	Result  struct {
		Rewards models.RewardBundle `json:"rewards"`
		LevelUp bool                `json:"levelUp"`
		Ready   []string            `json:"ready"`
	} `json:"result"`
}

func (e *testEnv) signup(t *testing.T, username string) (token, userID string) {
	t.Helper()
	var resp authResponse
	status := e.call(t, http.MethodPost, "/api/auth/signup", "",
		handlers.Credentials{Username: username, Password: "correct-horse-1"}, &resp)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User.ID
}

func xp(b models.RewardBundle) int {
	if b.Experience == nil {
		return 0
	}
	return *b.Experience
}

func TestAuthFlow(t *testing.T) {
	e := newTestEnv(t)

	var created authResponse
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/api/auth/signup", "",
		handlers.Credentials{Username: "River_Song", Password: "correct-horse-1"}, &created))
	assert.Equal(t, "river_song", created.User.Username)
	assert.Equal(t, 1, created.Profile.Avatar.Level)
	assert.Len(t, created.Profile.TaskLists, 2)

	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/auth/signup", "",
		handlers.Credentials{Username: "river_song", Password: "correct-horse-1"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/auth/signup", "",
		handlers.Credentials{Username: "ab", Password: "correct-horse-1"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/auth/signup", "",
		handlers.Credentials{Username: "other", Password: "short"}, nil))

	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodPost, "/api/auth/signin", "",
		handlers.Credentials{Username: "river_song", Password: "wrong-password"}, nil))
	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodPost, "/api/auth/signin", "",
		handlers.Credentials{Username: "nobody", Password: "correct-horse-1"}, nil))

	var signedIn authResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/auth/signin", "",
		handlers.Credentials{Username: "RIVER_SONG", Password: "correct-horse-1"}, &signedIn))
	assert.NotEqual(t, created.Token, signedIn.Token)

	var me authResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/auth/me", signedIn.Token, nil, &me))
	assert.Equal(t, created.User.ID, me.User.ID)

	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodGet, "/api/auth/me", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodGet, "/api/auth/me", "bogus", nil, nil))

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/auth/signout", signedIn.Token, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, e.call(t, http.MethodGet, "/api/auth/me", signedIn.Token, nil, nil))
	assert.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/auth/me", created.Token, nil, nil))
}

func TestAchievementLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token, userID := e.signup(t, "river")
	const achID = "resume-refresh"

	var start actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": achID}, &start))
	assert.Equal(t, engine.StartingBonusXP, xp(start.Result.Rewards))
	assert.Contains(t, start.Profile.CurrentLifeAchievements, achID)
	experience := start.Profile.Avatar.Experience

	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": achID}, nil))
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": "no-such-thing"}, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{}, nil))

	var tasks struct {
		Tasks []models.TaskItem `json:"tasks"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/tasks", token, nil, &tasks))
	ids := make([]string, 0, len(tasks.Tasks))
	for _, task := range tasks.Tasks {
		ids = append(ids, task.ID)
	}
	updateID := engine.TaskID(achID, "update-resume", userID)
	feedbackID := engine.TaskID(achID, "request-feedback", userID)
	assert.Contains(t, ids, updateID)
	assert.Contains(t, ids, feedbackID)

	var done actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/complete", token,
		map[string]string{"taskId": updateID}, &done))
	assert.Equal(t, 50, xp(done.Result.Rewards))
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/tasks/complete", token,
		map[string]string{"taskId": updateID}, nil))
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/complete", token,
		map[string]string{"taskId": feedbackID}, &done))
	assert.Equal(t, experience+90, done.Profile.Avatar.Experience)

	// All tasks are done but the one-day minimum has not passed.
	var synced struct {
		Ready []string `json:"ready"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/sync", token, nil, &synced))
	assert.Empty(t, synced.Ready)
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/achievements/complete", token,
		map[string]string{"achievementId": achID}, nil))

	e.clock.Advance(25 * time.Hour)
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/sync", token, nil, &synced))
	assert.Equal(t, []string{achID}, synced.Ready)

	var list struct {
		Achievements []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Progress int    `json:"progress"`
			Ready    bool   `json:"ready"`
		} `json:"achievements"`
		MaxActive int `json:"maxActive"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/achievements?status=in_progress", token, nil, &list))
	require.Len(t, list.Achievements, 1)
	assert.Equal(t, achID, list.Achievements[0].ID)
	assert.Equal(t, 100, list.Achievements[0].Progress)
	assert.True(t, list.Achievements[0].Ready)
	assert.Equal(t, engine.MaxActiveAchievements, list.MaxActive)

	var complete actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/complete", token,
		map[string]string{"achievementId": achID}, &complete))
	assert.Equal(t, 300, xp(complete.Result.Rewards))
	assert.Contains(t, complete.Profile.CompletedLifeAchievements, achID)
	assert.NotContains(t, complete.Profile.CurrentLifeAchievements, achID)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/achievements?status=completed", token, nil, &list))
	require.Len(t, list.Achievements, 1)
	assert.Equal(t, "completed", list.Achievements[0].Status)

	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/achievements/remove", token,
		map[string]string{"achievementId": achID}, nil))
}

func TestRemoveAchievement(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "river")

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": "resume-refresh"}, nil))
	var removed actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/remove", token,
		map[string]string{"achievementId": "resume-refresh"}, &removed))
	assert.Empty(t, removed.Profile.CurrentLifeAchievements)
}

func TestPhotoTaskNeedsUpload(t *testing.T) {
	e := newTestEnv(t)
	token, userID := e.signup(t, "river")
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": "fitness-routine-start"}, nil))
	taskID := engine.TaskID("fitness-routine-start", "first-workout", userID)

	var failed actionResponse
	require.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/tasks/complete", token,
		map[string]string{"taskId": taskID}, &failed))
	assert.Equal(t, "This task needs a photo", failed.Message)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("taskId", taskID))
	part, err := mw.CreateFormFile("photo", "proof.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, e.srv.URL+"/api/tasks/complete", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	var done actionResponse
	require.Equal(t, http.StatusOK, e.send(t, req, token, &done))
	assert.Contains(t, done.Profile.CompletedTasks, taskID)
	assert.Equal(t, []string{taskID}, e.proofs.uploads)
}

func TestPeriodTasks(t *testing.T) {
	e := newTestEnv(t)
	token, userID := e.signup(t, "river")

	var period struct {
		TaskList models.TaskList `json:"taskList"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/tasks/period?period=daily", token, nil, &period))
	assert.Equal(t, models.TaskListKind("daily"), period.TaskList.Kind)
	require.NotEmpty(t, period.TaskList.Tasks)

	hydrate := engine.TaskID("daily", "hydrate", userID)
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/complete", token,
		map[string]string{"taskId": hydrate}, nil))

	// Same day: resetting would pay hydrate out twice.
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/tasks/reset?period=daily", token, nil, nil))

	e.clock.Advance(24 * time.Hour)
	var reset actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/tasks/reset?period=daily", token, nil, &reset))
	assert.NotContains(t, reset.Profile.CompletedTasks, hydrate)

	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/api/tasks/period?period=monthly", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/tasks/reset", token, nil, nil))
}

type signResponse struct {
	Sign    models.Sign        `json:"sign"`
	Profile models.UserProfile `json:"profile"`
	Result  struct {
		Rewards models.RewardBundle `json:"rewards"`
	} `json:"result"`
}

func TestSigns(t *testing.T) {
	e := newTestEnv(t)
	owner, _ := e.signup(t, "river")
	other, _ := e.signup(t, "ocean")

	in := map[string]interface{}{
		"title":       "Litter along the creek",
		"category":    "cleanup",
		"severity":    3,
		"latitude":    51.5007,
		"longitude":   -0.1246,
		"civicAction": map[string]string{"type": "cleanup", "goal": "Clear the creek bank"},
	}
	var created signResponse
	require.Equal(t, http.StatusCreated, e.call(t, http.MethodPost, "/api/signs", owner, in, &created))
	assert.Equal(t, 35, xp(created.Result.Rewards))
	assert.Equal(t, models.ZonePoint, created.Sign.Zone)
	signPath := "/api/signs/" + created.Sign.ID.String()

	in["title"] = "I will k1lll y0u"
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/signs", owner, in, nil))

	var nearby struct {
		Signs []models.Sign `json:"signs"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/signs?lat=51.501&lng=-0.125&radius=1000", other, nil, &nearby))
	require.Len(t, nearby.Signs, 1)
	assert.Equal(t, created.Sign.ID, nearby.Signs[0].ID)
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/signs?lat=51.501&lng=-0.125&category=hazard", other, nil, &nearby))
	assert.Empty(t, nearby.Signs)
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/signs?lat=48.85&lng=2.35", other, nil, &nearby))
	assert.Empty(t, nearby.Signs)
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/api/signs?lat=51.5", other, nil, nil))

	var got signResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, signPath, other, nil, &got))
	assert.Equal(t, "Litter along the creek", got.Sign.Title)
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/api/signs/not-a-uuid", other, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.call(t, http.MethodGet, "/api/signs/"+uuid.NewString(), other, nil, nil))

	var joined signResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, signPath+"/join", other, nil, &joined))
	assert.Equal(t, 40, xp(joined.Result.Rewards))
	require.NotNil(t, joined.Sign.CivicAction)
	assert.Equal(t, 1, joined.Sign.CivicAction.Participants)
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, signPath+"/join", other, nil, nil))

	assert.Equal(t, http.StatusForbidden, e.call(t, http.MethodDelete, signPath, other, nil, nil))
	require.Equal(t, http.StatusOK, e.call(t, http.MethodDelete, signPath, owner, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.call(t, http.MethodGet, signPath, owner, nil, nil))
}

func TestNearbyPlacesWithoutProvider(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "river")

	var resp struct {
		Places []models.Sign `json:"places"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/places/nearby?lat=51.5&lng=-0.12", token, nil, &resp))
	assert.NotNil(t, resp.Places)
	assert.Empty(t, resp.Places)
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/api/places/nearby?lat=95&lng=0", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodGet, "/api/places/nearby", token, nil, nil))
}

func TestHealthSync(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "river")

	body := map[string]interface{}{"date": "2025-03-01", "steps": 5000, "sleepHours": 8}
	var synced actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/health/sync", token, body, &synced))
	assert.Equal(t, 100, xp(synced.Result.Rewards))
	assert.Equal(t, 10, synced.Profile.Avatar.HealthScore)
	require.NotNil(t, synced.Profile.Health)
	assert.Equal(t, 5000, synced.Profile.Health.Steps)

	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/health/sync", token, body, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/health/sync", token,
		map[string]interface{}{"steps": -1}, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/health/sync", token,
		map[string]interface{}{"date": "03/02/2025", "steps": 10}, nil))

	e.clock.Advance(24 * time.Hour)
	next := map[string]interface{}{"date": "2025-03-02", "steps": 5000}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/health/sync", token, next, &synced))
	awarded := synced.Profile.Avatar.Experience
	assert.Equal(t, http.StatusConflict, e.call(t, http.MethodPost, "/api/health/sync", token, body, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/health/sync", token,
		map[string]interface{}{"date": "2025-02-20", "steps": 5000}, nil))
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/health/sync", token,
		map[string]interface{}{"date": "2025-03-04", "steps": 5000}, nil))

	var profile actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/profile", token, nil, &profile))
	assert.Equal(t, awarded, profile.Profile.Avatar.Experience)
}

func TestCoachUsesUserKey(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "river")

	var resp struct {
		Reply services.CoachReply `json:"reply"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/coach", token,
		map[string]string{"question": "How do I sleep better?"}, &resp))
	assert.Equal(t, services.CoachSourceFallback, resp.Reply.Source)
	assert.NotEmpty(t, resp.Reply.Text)

	var set struct {
		HasKey bool `json:"hasKey"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPut, "/api/settings/gemini-key", token,
		map[string]string{"apiKey": "user-key"}, &set))
	assert.True(t, set.HasKey)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/coach", token,
		map[string]string{"question": "How do I sleep better?"}, &resp))
	assert.Equal(t, services.CoachSourceGemini, resp.Reply.Source)
	assert.Equal(t, "Go for a walk.", resp.Reply.Text)
	assert.Equal(t, []string{"user-key"}, e.gen.keys)

	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPut, "/api/settings/gemini-key", token,
		map[string]string{"apiKey": strings.Repeat("k", 300)}, nil))
}

func TestPresenceRespectsSharing(t *testing.T) {
	e := newTestEnv(t)
	river, riverID := e.signup(t, "river")
	ocean, oceanID := e.signup(t, "ocean")
	pos := map[string]float64{"latitude": 51.5, "longitude": -0.12}

	var hb struct {
		Visible bool `json:"visible"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/presence", river, pos, &hb))
	assert.False(t, hb.Visible)
	assert.Equal(t, 1, e.presence.leaves)

	share := map[string]interface{}{"preferences": map[string]bool{"shareLocation": true}}
	for _, token := range []string{river, ocean} {
		require.Equal(t, http.StatusOK, e.call(t, http.MethodPut, "/api/profile/preferences", token, share, nil))
		require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/presence", token, pos, &hb))
		assert.True(t, hb.Visible)
	}

	var nearby struct {
		Players []services.NearbyPlayer `json:"players"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/presence/nearby?lat=51.5&lng=-0.12", river, nil, &nearby))
	require.Len(t, nearby.Players, 1)
	assert.Equal(t, oceanID, nearby.Players[0].UserID)
	assert.NotEqual(t, riverID, nearby.Players[0].UserID)

	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPost, "/api/presence", ocean,
		map[string]float64{"latitude": 91, "longitude": 0}, nil))
}

func TestProfileEndpoints(t *testing.T) {
	e := newTestEnv(t)
	token, _ := e.signup(t, "river")

	age := 200
	assert.Equal(t, http.StatusBadRequest, e.call(t, http.MethodPut, "/api/profile/preferences", token,
		map[string]interface{}{"preferences": map[string]string{"theme": "dark"}, "age": age}, nil))

	var updated actionResponse
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPut, "/api/profile/customization", token,
		map[string]interface{}{"customization": map[string]string{"hat": "beanie"}}, &updated))
	assert.Equal(t, "beanie", updated.Profile.Avatar.Customization["hat"])

	var board struct {
		Leaderboard []struct {
			Rank     int    `json:"rank"`
			Username string `json:"username"`
		} `json:"leaderboard"`
	}
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/leaderboard?limit=1", token, nil, &board))
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, 1, board.Leaderboard[0].Rank)
	assert.Equal(t, "ada", board.Leaderboard[0].Username)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodDelete, "/api/profile", token, nil, nil))
	assert.Equal(t, http.StatusNotFound, e.call(t, http.MethodGet, "/api/profile", token, nil, nil))
}

func TestEventsWebSocket(t *testing.T) {
	e := newTestEnv(t)
	token, userID := e.signup(t, "river")

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws/events?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return e.hub.Connections(userID) == 1 }, time.Second, 10*time.Millisecond)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/achievements/start", token,
		map[string]string{"achievementId": "resume-refresh"}, nil))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev models.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, models.EventAchievementStarted, ev.Type)
	assert.Equal(t, "resume-refresh", ev.AchievementID)
	assert.Equal(t, userID, ev.UserID)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(e.srv.URL, "http")+"/ws/events", nil)
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, e.srv.URL+"/health", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, e.send(t, req, "", nil))
}

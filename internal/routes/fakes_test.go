package routes

import (
	"context"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
)

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]uuid.UUID)}
}

func (s *fakeSessions) Create(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := "tok-" + uuid.NewString()
	s.tokens[token] = userID
	return token, nil
}

func (s *fakeSessions) Validate(_ context.Context, token string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.tokens[token]
	return id, ok, nil
}

func (s *fakeSessions) Invalidate(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

type fakeUsers struct {
	mu     sync.Mutex
	byName map[string]*models.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: make(map[string]*models.User)}
}

func (u *fakeUsers) Create(_ context.Context, username, hash string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if _, ok := u.byName[username]; ok {
		return nil, services.ErrUsernameTaken
	}
	user := &models.User{ID: uuid.New(), Username: username, PasswordHash: hash, CreatedAt: time.Now(), IsActive: true}
	u.byName[username] = user
	return user, nil
}

func (u *fakeUsers) ByUsername(_ context.Context, username string) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	user, ok := u.byName[strings.ToLower(username)]
	if !ok {
		return nil, services.ErrUserNotFound
	}
	return user, nil
}

func (u *fakeUsers) ByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, user := range u.byName {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, services.ErrUserNotFound
}

// fakeSigns mirrors SignService on a map, reusing its validation and
// distance filtering.
type fakeSigns struct {
	mu     sync.Mutex
	signs  map[uuid.UUID]*models.Sign
	joined map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeSigns() *fakeSigns {
	return &fakeSigns{signs: make(map[uuid.UUID]*models.Sign), joined: make(map[uuid.UUID]map[uuid.UUID]bool)}
}

func (f *fakeSigns) Create(_ context.Context, owner uuid.UUID, in models.SignInput) (*models.Sign, error) {
	now := time.Now().UTC()
	if err := services.ValidateSignInput(&in, now); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &models.Sign{
		ID: uuid.New(), OwnerID: owner, Title: in.Title, Description: in.Description,
		Category: in.Category, Severity: in.Severity, Zone: in.Zone,
		Latitude: in.Latitude, Longitude: in.Longitude, RadiusM: in.RadiusM,
		CivicAction: in.CivicAction, Source: models.SignSourceUser, CreatedAt: now,
	}
	f.signs[s.ID] = s
	f.joined[s.ID] = make(map[uuid.UUID]bool)
	cp := *s
	return &cp, nil
}

func (f *fakeSigns) Get(_ context.Context, id uuid.UUID) (*models.Sign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signs[id]
	if !ok {
		return nil, services.ErrSignNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSigns) Nearby(_ context.Context, lat, lng, radiusM float64, limit int) ([]models.Sign, error) {
	if !services.ValidCoordinates(lat, lng) {
		return nil, services.ErrInvalidLocation
	}
	f.mu.Lock()
	all := make([]models.Sign, 0, len(f.signs))
	for _, s := range f.signs {
		all = append(all, *s)
	}
	f.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	return services.FilterNearby(all, lat, lng, services.ClampSearchRadius(radiusM), limit), nil
}

func (f *fakeSigns) Delete(_ context.Context, id, owner uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signs[id]
	if !ok {
		return services.ErrSignNotFound
	}
	if s.OwnerID != owner {
		return services.ErrNotSignOwner
	}
	delete(f.signs, id)
	return nil
}

func (f *fakeSigns) Join(_ context.Context, id, user uuid.UUID) (*models.Sign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.signs[id]
	if !ok {
		return nil, services.ErrSignNotFound
	}
	if s.CivicAction == nil {
		return nil, services.ErrNoCivicAction
	}
	if f.joined[id][user] {
		return nil, services.ErrAlreadyJoined
	}
	f.joined[id][user] = true
	s.CivicAction.Participants++
	cp := *s
	return &cp, nil
}

type fakeProofs struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeProofs) UploadProof(_ context.Context, userID, taskID string, header *multipart.FileHeader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, taskID)
	return "https://res.cloudinary.com/demo/" + userID + "/" + taskID + ".jpg", nil
}

type fakeKeys struct {
	mu   sync.Mutex
	keys map[uuid.UUID]string
}

func (k *fakeKeys) SetGeminiKey(_ context.Context, userID uuid.UUID, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if key == "" {
		delete(k.keys, userID)
		return nil
	}
	k.keys[userID] = key
	return nil
}

func (k *fakeKeys) GeminiKey(_ context.Context, userID uuid.UUID) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keys[userID], nil
}

type fakeGenerator struct {
	mu   sync.Mutex
	keys []string
}

func (g *fakeGenerator) Generate(_ context.Context, apiKey, system, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, apiKey)
	return "Go for a walk.", nil
}

type fakePresence struct {
	mu     sync.Mutex
	online map[string][2]float64
	leaves int
}

func (p *fakePresence) Heartbeat(_ context.Context, userID string, lat, lng float64) error {
	if !services.ValidCoordinates(lat, lng) {
		return services.ErrInvalidLocation
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = [2]float64{lat, lng}
	return nil
}

func (p *fakePresence) Leave(_ context.Context, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.online, userID)
	p.leaves++
	return nil
}

func (p *fakePresence) Nearby(_ context.Context, userID string, lat, lng, radiusM float64, limit int) ([]services.NearbyPlayer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []services.NearbyPlayer{}
	for id, pos := range p.online {
		if id != userID {
			out = append(out, services.NearbyPlayer{UserID: id, Latitude: pos[0], Longitude: pos[1]})
		}
	}
	return out, nil
}

type fakeLeaderboard struct {
	profiles []models.UserProfile
}

func (f fakeLeaderboard) TopByExperience(_ context.Context, limit int64) ([]models.UserProfile, error) {
	if int64(len(f.profiles)) > limit {
		return f.profiles[:limit], nil
	}
	return f.profiles, nil
}

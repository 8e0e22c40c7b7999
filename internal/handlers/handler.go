package handlers

import (
	"context"
	"mime/multipart"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/internal/services"
	"github.com/AnshRaj112/civicquest-backend/internal/store"
)

// Sessions issues and checks bearer tokens.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	Validate(ctx context.Context, token string) (uuid.UUID, bool, error)
	Invalidate(ctx context.Context, token string) error
}

// Users is the account table.
type Users interface {
	Create(ctx context.Context, username, passwordHash string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Signs stores map signs and civic action participation.
type Signs interface {
	Create(ctx context.Context, ownerID uuid.UUID, in models.SignInput) (*models.Sign, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Sign, error)
	Nearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]models.Sign, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
	Join(ctx context.Context, id, userID uuid.UUID) (*models.Sign, error)
}

// Places looks up points of interest. It never fails.
type Places interface {
	Nearby(ctx context.Context, lat, lng, radiusM float64, placeType string) []models.Sign
}

type Coach interface {
	Ask(ctx context.Context, userKey string, p *models.UserProfile, question string) services.CoachReply
}

// GeminiKeys stores each user's own Gemini API key.
type GeminiKeys interface {
	SetGeminiKey(ctx context.Context, userID uuid.UUID, key string) error
	GeminiKey(ctx context.Context, userID uuid.UUID) (string, error)
}

type Presence interface {
	Heartbeat(ctx context.Context, userID string, lat, lng float64) error
	Leave(ctx context.Context, userID string) error
	Nearby(ctx context.Context, userID string, lat, lng, radiusM float64, limit int) ([]services.NearbyPlayer, error)
}

// ProofUploader stores verification photos and returns their URL.
type ProofUploader interface {
	UploadProof(ctx context.Context, userID, taskID string, header *multipart.FileHeader) (string, error)
}

// Leaderboard ranks profiles by experience.
type Leaderboard interface {
	TopByExperience(ctx context.Context, limit int64) ([]models.UserProfile, error)
}

// EventRegistry attaches websocket sinks to a user's event stream.
type EventRegistry interface {
	Register(userID string, sink services.EventSink) (unregister func())
}

// Deps are the collaborators of a Handler. Store, Users and Sessions are
// required; routes backed by a nil optional dependency answer 503.
type Deps struct {
	Store       *store.Store
	Users       Users
	Sessions    Sessions
	Signs       Signs
	Places      Places
	Coach       Coach
	Keys        GeminiKeys
	Presence    Presence
	Proofs      ProofUploader
	Leaderboard Leaderboard
	Events      EventRegistry
	Logger      *zap.Logger
}

// Handler serves the HTTP API.
type Handler struct {
	store       *store.Store
	users       Users
	sessions    Sessions
	signs       Signs
	places      Places
	coach       Coach
	keys        GeminiKeys
	presence    Presence
	proofs      ProofUploader
	leaderboard Leaderboard
	events      EventRegistry
	log         *zap.Logger
}

func New(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:       d.Store,
		users:       d.Users,
		sessions:    d.Sessions,
		signs:       d.Signs,
		places:      d.Places,
		coach:       d.Coach,
		keys:        d.Keys,
		presence:    d.Presence,
		proofs:      d.Proofs,
		leaderboard: d.Leaderboard,
		events:      d.Events,
		log:         log,
	}
}

package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/pkg/geo"
)

var (
	ErrInvalidSign    = errors.New("invalid sign")
	ErrSignNotFound   = errors.New("sign not found")
	ErrNotSignOwner   = errors.New("only the owner can delete this sign")
	ErrNoCivicAction  = errors.New("sign has no civic action")
	ErrActionClosed   = errors.New("civic action deadline has passed")
	ErrAlreadyJoined  = errors.New("already joined this civic action")
	ErrDuplicatePlace = errors.New("place already imported")
)

const (
	maxSignRadiusM     = 2000.0
	maxSearchRadiusM   = 25000.0
	defaultSearchM     = 1500.0
	maxSignTitle       = 120
	maxSignDescription = 1000
)

var civicActionTypes = map[string]bool{"cleanup": true, "petition": true, "volunteer": true, "report": true}

// SignService stores map signs and civic action participation in Postgres.
type SignService struct {
	db  *sql.DB
	now func() time.Time
}

func NewSignService(db *sql.DB) *SignService {
	return &SignService{db: db, now: time.Now}
}

// ValidateSignInput normalises in and rejects bad payloads with
// ErrInvalidSign.
func ValidateSignInput(in *models.SignInput, now time.Time) error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.ToLower(strings.TrimSpace(in.Category))
	if in.Zone == "" {
		in.Zone = models.ZonePoint
	}

	switch {
	case in.Title == "" || len(in.Title) > maxSignTitle:
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidSign, maxSignTitle)
	case len(in.Description) > maxSignDescription:
		return fmt.Errorf("%w: description must be at most %d characters", ErrInvalidSign, maxSignDescription)
	case CheckContent(in.Title + " " + in.Description).Blocked():
		return fmt.Errorf("%w: content is not allowed on the map", ErrInvalidSign)
	case !isSignCategory(in.Category):
		return fmt.Errorf("%w: unknown category %q", ErrInvalidSign, in.Category)
	case in.Severity < 1 || in.Severity > 5:
		return fmt.Errorf("%w: severity must be between 1 and 5", ErrInvalidSign)
	case !ValidCoordinates(in.Latitude, in.Longitude):
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidSign)
	}

	switch in.Zone {
	case models.ZonePoint:
		in.RadiusM = 0
	case models.ZoneArea:
		if in.RadiusM <= 0 || in.RadiusM > maxSignRadiusM {
			return fmt.Errorf("%w: area radius must be in (0, %.0f] metres", ErrInvalidSign, maxSignRadiusM)
		}
	default:
		return fmt.Errorf("%w: zone must be point or area", ErrInvalidSign)
	}

	if a := in.CivicAction; a != nil {
		a.Type = strings.ToLower(strings.TrimSpace(a.Type))
		if !civicActionTypes[a.Type] {
			return fmt.Errorf("%w: unknown civic action type %q", ErrInvalidSign, a.Type)
		}
		if a.Deadline != nil && !a.Deadline.After(now) {
			return fmt.Errorf("%w: civic action deadline must be in the future", ErrInvalidSign)
		}
		a.Participants = 0
	}
	return nil
}

func isSignCategory(c string) bool {
	for _, v := range models.SignCategories {
		if v == c {
			return true
		}
	}
	return false
}

// Create validates and stores a sign owned by ownerID.
func (s *SignService) Create(ctx context.Context, ownerID uuid.UUID, in models.SignInput) (*models.Sign, error) {
	now := s.now().UTC()
	if err := ValidateSignInput(&in, now); err != nil {
		return nil, err
	}

	sign := &models.Sign{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Severity:    in.Severity,
		Zone:        in.Zone,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		RadiusM:     in.RadiusM,
		CivicAction: in.CivicAction,
		Source:      models.SignSourceUser,
		PlaceID:     in.PlaceID,
		CreatedAt:   now,
	}
	if in.PlaceID != "" {
		sign.Source = models.SignSourcePlaces
	}

	var actionType, actionGoal sql.NullString
	var deadline sql.NullTime
	if a := sign.CivicAction; a != nil {
		actionType = sql.NullString{String: a.Type, Valid: true}
		actionGoal = sql.NullString{String: a.Goal, Valid: true}
		if a.Deadline != nil {
			deadline = sql.NullTime{Time: a.Deadline.UTC(), Valid: true}
		}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signs (id, owner_id, title, description, category, severity, zone,
			latitude, longitude, radius_m, action_type, action_goal, action_deadline,
			source, place_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, sign.ID, sign.OwnerID, sign.Title, sign.Description, sign.Category, sign.Severity, string(sign.Zone),
		sign.Latitude, sign.Longitude, sign.RadiusM, actionType, actionGoal, deadline,
		string(sign.Source), nullString(sign.PlaceID), sign.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, ErrDuplicatePlace
		}
		return nil, fmt.Errorf("insert sign: %w", err)
	}
	return sign, nil
}

const signColumns = `
	s.id, s.owner_id, s.title, COALESCE(s.description, ''), s.category, s.severity, s.zone,
	s.latitude, s.longitude, s.radius_m, s.action_type, COALESCE(s.action_goal, ''), s.action_deadline,
	s.source, COALESCE(s.place_id, ''), s.created_at,
	(SELECT COUNT(*) FROM sign_participants p WHERE p.sign_id = s.id)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSign(row rowScanner) (*models.Sign, error) {
	var (
		sg         models.Sign
		zone, src  string
		actionType sql.NullString
		goal       string
		deadline   sql.NullTime
		joined     int
	)
	err := row.Scan(&sg.ID, &sg.OwnerID, &sg.Title, &sg.Description, &sg.Category, &sg.Severity, &zone,
		&sg.Latitude, &sg.Longitude, &sg.RadiusM, &actionType, &goal, &deadline,
		&src, &sg.PlaceID, &sg.CreatedAt, &joined)
	if err != nil {
		return nil, err
	}
	sg.Zone = models.ZoneType(zone)
	sg.Source = models.SignSource(src)
	if actionType.Valid {
		sg.CivicAction = &models.CivicAction{Type: actionType.String, Goal: goal, Participants: joined}
		if deadline.Valid {
			d := deadline.Time
			sg.CivicAction.Deadline = &d
		}
	}
	return &sg, nil
}

func (s *SignService) Get(ctx context.Context, id uuid.UUID) (*models.Sign, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+signColumns+` FROM signs s WHERE s.id = $1`, id)
	sign, err := scanSign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSignNotFound
	}
	return sign, err
}

// Nearby returns signs within radiusM of a point, closest first. Area signs
// count as nearby when their zone overlaps the search circle.
func (s *SignService) Nearby(ctx context.Context, lat, lng, radiusM float64, limit int) ([]models.Sign, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, ErrInvalidLocation
	}
	radiusM = ClampSearchRadius(radiusM)
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	box := geo.BoundingBox(lat, lng, radiusM+maxSignRadiusM)
	rows, err := s.db.QueryContext(ctx, `SELECT `+signColumns+`
		FROM signs s
		WHERE s.latitude BETWEEN $1 AND $2 AND s.longitude BETWEEN $3 AND $4
		ORDER BY s.created_at DESC
		LIMIT 1000`, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
	if err != nil {
		return nil, fmt.Errorf("query nearby signs: %w", err)
	}
	defer rows.Close()

	var candidates []models.Sign
	for rows.Next() {
		sg, err := scanSign(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *sg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return FilterNearby(candidates, lat, lng, radiusM, limit), nil
}

// ClampSearchRadius bounds a nearby-search radius.
func ClampSearchRadius(radiusM float64) float64 {
	if radiusM <= 0 {
		return defaultSearchM
	}
	if radiusM > maxSearchRadiusM {
		return maxSearchRadiusM
	}
	return radiusM
}

// FilterNearby sets DistanceM, drops signs outside the circle and sorts by
// distance, then age.
func FilterNearby(signs []models.Sign, lat, lng, radiusM float64, limit int) []models.Sign {
	out := make([]models.Sign, 0, len(signs))
	for _, sg := range signs {
		d := geo.DistanceM(lat, lng, sg.Latitude, sg.Longitude)
		reach := radiusM
		if sg.Zone == models.ZoneArea {
			reach += sg.RadiusM
		}
		if d > reach {
			continue
		}
		sg.DistanceM = d
		out = append(out, sg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceM != out[j].DistanceM {
			return out[i].DistanceM < out[j].DistanceM
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes a sign owned by ownerID.
func (s *SignService) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	sign, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sign.OwnerID != ownerID {
		return ErrNotSignOwner
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM signs WHERE id = $1 AND owner_id = $2`, id, ownerID)
	return err
}

// Join records userID as a participant of the sign's civic action and
// returns the updated sign. Joining twice returns ErrAlreadyJoined.
func (s *SignService) Join(ctx context.Context, id, userID uuid.UUID) (*models.Sign, error) {
	sign, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sign.CivicAction == nil {
		return nil, ErrNoCivicAction
	}
	if d := sign.CivicAction.Deadline; d != nil && !d.After(s.now()) {
		return nil, ErrActionClosed
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sign_participants (sign_id, user_id, joined_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (sign_id, user_id) DO NOTHING
	`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("join civic action: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrAlreadyJoined
	}
	sign.CivicAction.Participants++
	return sign, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

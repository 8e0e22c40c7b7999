package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	presenceGeoKey      = "presence:geo"
	presenceAlivePrefix = "presence:alive:"
	// PresenceTTL is how long a heartbeat keeps a player visible.
	PresenceTTL       = 2 * time.Minute
	maxPresenceRadius = 5000.0
)

var ErrInvalidLocation = errors.New("invalid coordinates")

// NearbyPlayer is another online player near a point.
type NearbyPlayer struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	DistanceM float64 `json:"distanceM"`
}

// PresenceService tracks online players in a Redis GEO set. A player is
// online while their heartbeat key exists.
type PresenceService struct {
	client *redis.Client
}

func NewPresenceService(client *redis.Client) *PresenceService {
	return &PresenceService{client: client}
}

// ValidCoordinates reports whether lat/lng are on the globe.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Heartbeat records the player's position and refreshes their TTL.
func (s *PresenceService) Heartbeat(ctx context.Context, userID string, lat, lng float64) error {
	if !ValidCoordinates(lat, lng) {
		return ErrInvalidLocation
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.GeoAdd(ctx, presenceGeoKey, &redis.GeoLocation{Name: userID, Latitude: lat, Longitude: lng})
		pipe.Set(ctx, presenceAlivePrefix+userID, "1", PresenceTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("presence heartbeat: %w", err)
	}
	return nil
}

// Leave removes the player immediately.
func (s *PresenceService) Leave(ctx context.Context, userID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, presenceGeoKey, userID)
		pipe.Del(ctx, presenceAlivePrefix+userID)
		return nil
	})
	return err
}

// Nearby lists online players within radiusM of a point, closest first,
// excluding the caller. Expired members are pruned from the GEO set.
func (s *PresenceService) Nearby(ctx context.Context, userID string, lat, lng, radiusM float64, limit int) ([]NearbyPlayer, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, ErrInvalidLocation
	}
	if radiusM <= 0 || radiusM > maxPresenceRadius {
		radiusM = maxPresenceRadius
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	locs, err := s.client.GeoSearchLocation(ctx, presenceGeoKey, &redis.GeoSearchLocationQuery{
		GeoSearchQuery: redis.GeoSearchQuery{
			Latitude:   lat,
			Longitude:  lng,
			Radius:     radiusM,
			RadiusUnit: "m",
			Sort:       "ASC",
			Count:      limit + 1,
		},
		WithCoord: true,
		WithDist:  true,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("presence search: %w", err)
	}

	candidates := make([]redis.GeoLocation, 0, len(locs))
	for _, l := range locs {
		if l.Name != userID {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return []NearbyPlayer{}, nil
	}

	pipe := s.client.Pipeline()
	alive := make([]*redis.IntCmd, len(candidates))
	for i, l := range candidates {
		alive[i] = pipe.Exists(ctx, presenceAlivePrefix+l.Name)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("presence liveness: %w", err)
	}

	out := make([]NearbyPlayer, 0, len(candidates))
	var stale []interface{}
	for i, l := range candidates {
		if alive[i].Val() == 0 {
			stale = append(stale, l.Name)
			continue
		}
		if len(out) < limit {
			out = append(out, NearbyPlayer{UserID: l.Name, Latitude: l.Latitude, Longitude: l.Longitude, DistanceM: l.Dist})
		}
	}
	if len(stale) > 0 {
		s.client.ZRem(ctx, presenceGeoKey, stale...)
	}
	return out, nil
}

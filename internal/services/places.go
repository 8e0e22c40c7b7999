package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AnshRaj112/civicquest-backend/internal/models"
	"github.com/AnshRaj112/civicquest-backend/pkg/geo"
)

const defaultPlacesURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// PlacesService looks up points of interest with the Google Places Nearby
// Search API. Every failure degrades to an empty result.
type PlacesService struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewPlacesService(apiKey string, log *zap.Logger) *PlacesService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlacesService{
		apiKey:  apiKey,
		baseURL: defaultPlacesURL,
		http:    &http.Client{Timeout: 8 * time.Second},
		log:     log,
	}
}

// WithBaseURL points the service at another endpoint.
func (s *PlacesService) WithBaseURL(u string) *PlacesService {
	s.baseURL = u
	return s
}

type placesResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		PlaceID  string   `json:"place_id"`
		Name     string   `json:"name"`
		Vicinity string   `json:"vicinity"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Nearby returns places around a point as unsaved signs with
// source "places", sorted by distance.
func (s *PlacesService) Nearby(ctx context.Context, lat, lng, radiusM float64, placeType string) []models.Sign {
	if s.apiKey == "" || !ValidCoordinates(lat, lng) {
		return []models.Sign{}
	}
	radiusM = ClampSearchRadius(radiusM)

	q := url.Values{}
	q.Set("location", strconv.FormatFloat(lat, 'f', 6, 64)+","+strconv.FormatFloat(lng, 'f', 6, 64))
	q.Set("radius", strconv.Itoa(int(radiusM)))
	q.Set("key", s.apiKey)
	if placeType != "" {
		q.Set("type", placeType)
	}

	body, err := s.fetch(ctx, s.baseURL+"?"+q.Encode())
	if err != nil {
		s.log.Warn("places lookup failed", zap.Error(err))
		return []models.Sign{}
	}

	now := time.Now().UTC()
	out := make([]models.Sign, 0, len(body.Results))
	for _, r := range body.Results {
		loc := r.Geometry.Location
		category := "place"
		if len(r.Types) > 0 && r.Types[0] == "park" {
			category = "nature"
		}
		out = append(out, models.Sign{
			Title:       r.Name,
			Description: r.Vicinity,
			Category:    category,
			Severity:    1,
			Zone:        models.ZonePoint,
			Latitude:    loc.Lat,
			Longitude:   loc.Lng,
			Source:      models.SignSourcePlaces,
			PlaceID:     r.PlaceID,
			CreatedAt:   now,
			DistanceM:   geo.DistanceM(lat, lng, loc.Lat, loc.Lng),
		})
	}
	return FilterNearby(out, lat, lng, radiusM, len(out))
}

func (s *PlacesService) fetch(ctx context.Context, u string) (*placesResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("places api: http %d", resp.StatusCode)
	}

	var body placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("places api: decode: %w", err)
	}
	switch body.Status {
	case "OK", "ZERO_RESULTS":
		return &body, nil
	default:
		return nil, fmt.Errorf("places api: %s %s", body.Status, body.ErrorMessage)
	}
}

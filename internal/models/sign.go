package models

import (
	"time"

	"github.com/google/uuid"
)

// ZoneType is the geometry of a sign marker.
type ZoneType string

const (
	ZonePoint ZoneType = "point"
	ZoneArea  ZoneType = "area"
)

// SignSource records where a sign came from.
type SignSource string

const (
	SignSourceUser   SignSource = "user"
	SignSourcePlaces SignSource = "places"
)

// Sign categories shown as map layers.
var SignCategories = []string{"hazard", "cleanup", "infrastructure", "community", "nature", "event", "place"}

// CivicAction is optional call-to-action metadata on a sign.
type CivicAction struct {
	Type         string     `json:"type"` // cleanup, petition, volunteer, report
	Goal         string     `json:"goal"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Participants int        `json:"participants"`
}

// Sign is a geolocated marker on the map.
type Sign struct {
	ID          uuid.UUID    `json:"id"`
	OwnerID     uuid.UUID    `json:"ownerId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Category    string       `json:"category"`
	Severity    int          `json:"severity"`
	Zone        ZoneType     `json:"zone"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	RadiusM     float64      `json:"radiusM,omitempty"`
	CivicAction *CivicAction `json:"civicAction,omitempty"`
	Source      SignSource   `json:"source"`
	PlaceID     string       `json:"placeId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`

	// Set on nearby queries only
	DistanceM float64 `json:"distanceM,omitempty"`
}

// SignInput is the client payload for creating a sign.
type SignInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Severity    int          `json:"severity"`
	Zone        ZoneType     `json:"zone"`
	Latitude    float64      `json:"latitude"`
	Longitude   float64      `json:"longitude"`
	RadiusM     float64      `json:"radiusM"`
	CivicAction *CivicAction `json:"civicAction,omitempty"`
	PlaceID     string       `json:"placeId,omitempty"`
}

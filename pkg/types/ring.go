package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// Ring id bounds. UnassignedID marks a ring that receives an id on its next write.
const (
	MinRingID    = 1
	MaxRingID    = 99
	UnassignedID = 0
)

// DefaultRingName is the display name given to freshly created rings.
const DefaultRingName = "New Aura Ring"

// Visibility values, naming which viewers may see a ring.
const (
	VisibilityNone       = "NONE"
	VisibilityOwner      = "OWNER"
	VisibilityPlayer     = "PLAYER"
	VisibilityTrusted    = "TRUSTED"
	VisibilityAssistant  = "ASSISTANT"
	VisibilityGamemaster = "GAMEMASTER"
	VisibilityAll        = "ALL"
)

// validVisibility is the set of recognized visibility values.
var validVisibility = map[string]bool{
	VisibilityNone:       true,
	VisibilityOwner:      true,
	VisibilityPlayer:     true,
	VisibilityTrusted:    true,
	VisibilityAssistant:  true,
	VisibilityGamemaster: true,
	VisibilityAll:        true,
}

var hexColour = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Ring is a single aura ring configuration attached to a token.
type Ring struct {
	ID            int     `json:"id"`              // 1..99; UnassignedID until first write.
	Name          string  `json:"name"`            // Display label, not unique.
	Angle         float64 `json:"angle"`           // Arc width in degrees, 5..360.
	Direction     float64 `json:"direction"`       // Facing in degrees, -180..180.
	Radius        float64 `json:"radius"`          // Distance from the token, from 0.
	FillColour    string  `json:"fill_colour"`     // Hex colour.
	FillOpacity   float64 `json:"fill_opacity"`    // 0..1.
	Hide          bool    `json:"hide"`            // Whether the ring is hidden.
	RespectFog    bool    `json:"respect_fog"`     // Hide when the token cannot be seen.
	StrokeClose   bool    `json:"stroke_close"`    // Stroke the complete outline.
	StrokeColour  string  `json:"stroke_colour"`   // Hex colour.
	StrokeOpacity float64 `json:"stroke_opacity"`  // 0..1.
	StrokeWeight  float64 `json:"stroke_weight"`   // Pixels, from 0.
	UseGridShapes bool    `json:"use_grid_shapes"` // Follow grid shapes where enabled.
	Visibility    string  `json:"visibility"`      // One of the Visibility constants.
}

// DefaultRing returns an unsaved ring holding the schema defaults.
func DefaultRing() Ring {
	return Ring{
		ID:            UnassignedID,
		Name:          DefaultRingName,
		Angle:         360,
		Direction:     0,
		Radius:        20,
		FillColour:    "#000000",
		FillOpacity:   0,
		Hide:          false,
		RespectFog:    true,
		StrokeClose:   false,
		StrokeColour:  "#ffffff",
		StrokeOpacity: 0.75,
		StrokeWeight:  4,
		UseGridShapes: false,
		Visibility:    VisibilityAll,
	}
}

// ParseRing decodes a JSON ring record on top of DefaultRing, so absent
// fields keep their defaults. Range checks are left to Validate.
func ParseRing(data []byte) (Ring, error) {
	r := DefaultRing()
	if err := json.Unmarshal(data, &r); err != nil {
		return Ring{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return r, nil
}

// RingKey returns the container key for a ring id.
func RingKey(id int) string {
	return "ring" + strconv.Itoa(id)
}

// Key returns the container key derived from the ring's id.
func (r Ring) Key() string {
	return RingKey(r.ID)
}

// Assigned reports whether the ring carries a persisted id.
func (r Ring) Assigned() bool {
	return r.ID != UnassignedID
}

// Validate checks the ring against the schema domains. The returned error
// wraps ErrMalformedRecord and names the first offending field.
// An unassigned id is accepted; it is replaced before persistence.
func (r Ring) Validate() error {
	switch {
	case r.ID != UnassignedID && (r.ID < MinRingID || r.ID > MaxRingID):
		return malformed("id", r.ID)
	case r.Angle < 5 || r.Angle > 360:
		return malformed("angle", r.Angle)
	case r.Direction < -180 || r.Direction > 180:
		return malformed("direction", r.Direction)
	case r.Radius < 0:
		return malformed("radius", r.Radius)
	case !hexColour.MatchString(r.FillColour):
		return malformed("fill_colour", r.FillColour)
	case r.FillOpacity < 0 || r.FillOpacity > 1:
		return malformed("fill_opacity", r.FillOpacity)
	case !hexColour.MatchString(r.StrokeColour):
		return malformed("stroke_colour", r.StrokeColour)
	case r.StrokeOpacity < 0 || r.StrokeOpacity > 1:
		return malformed("stroke_opacity", r.StrokeOpacity)
	case r.StrokeWeight < 0:
		return malformed("stroke_weight", r.StrokeWeight)
	case !validVisibility[r.Visibility]:
		return malformed("visibility", r.Visibility)
	}
	return nil
}

func malformed(field string, value any) error {
	return fmt.Errorf("%w: %s out of range (%v)", ErrMalformedRecord, field, value)
}

// Package domain defines the core value types shared across tickermark:
// geometry used for overlay placement, user settings, watchlist membership,
// and alert requests.
package domain

import "time"

// ---------------------------------------------------------------------------
// Geometry
// ---------------------------------------------------------------------------

// Point is a pointer position in viewport coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a width/height pair, used for the viewport and overlay panels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an on-screen bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// BottomLeft returns the point directly below the rect's left edge.
func (r Rect) BottomLeft() Point {
	return Point{X: r.X, Y: r.Y + r.Height}
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// Settings are the user toggles read once when a page starts.
type Settings struct {
	AutoDetectEnabled bool `json:"autoDetectEnabled"`
	HighlightEnabled  bool `json:"highlightEnabled"`
}

// DefaultSettings is used whenever the settings provider cannot be read.
func DefaultSettings() Settings {
	return Settings{AutoDetectEnabled: true, HighlightEnabled: true}
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

// Membership reports whether a symbol is on the watchlist. EntryID is the
// identifier to pass to a remove call and is empty for non-members.
type Membership struct {
	Symbol  string `json:"symbol"`
	Member  bool   `json:"member"`
	EntryID string `json:"entryId,omitempty"`
}

// ---------------------------------------------------------------------------
// Alert requests
// ---------------------------------------------------------------------------

// AlertRequestStatus is the lifecycle state of an alert creation request.
type AlertRequestStatus string

const (
	AlertRequestPending      AlertRequestStatus = "pending"
	AlertRequestAcknowledged AlertRequestStatus = "acknowledged"
)

// AlertRequest asks the alert configuration surface to start creating an
// alert for Symbol.
type AlertRequest struct {
	ID        string             `json:"id"`
	Symbol    string             `json:"symbol"`
	Status    AlertRequestStatus `json:"status"`
	CreatedAt time.Time          `json:"createdAt"`
}

// ---------------------------------------------------------------------------
// News
// ---------------------------------------------------------------------------

// Article is a news item whose HTML content is annotated before display.
type Article struct {
	ID       string    `json:"id"`
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Symbols  []string  `json:"symbols"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
	Content  string    `json:"content,omitempty"`
	URL      string    `json:"url,omitempty"`
}

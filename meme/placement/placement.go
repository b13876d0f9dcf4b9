// Package placement holds the persisted record of an image dropped on the
// canvas, plus the in-memory store and the id-keyed set viewers use to merge a
// snapshot with live events.
package placement

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/memecanvas/memecanvas/meme/canvas"
)

const (
	DefaultLimit = 500
	MaxLimit     = 1000
)

// Placement is immutable once created. ID and CreatedAt are assigned by the
// store that inserts it.
type Placement struct {
	ID        string    `json:"id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	ImageURL  string    `json:"imageUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func (p Placement) Point() canvas.Point {
	return canvas.Point{X: p.X, Y: p.Y}
}

// Draft is a placement that has not been persisted yet.
type Draft struct {
	X        float64
	Y        float64
	ImageURL string
}

func (d Draft) Validate() error {
	if !(canvas.Point{X: d.X, Y: d.Y}).IsFinite() {
		return fmt.Errorf("invalid placement: coordinates must be finite, got (%v, %v)", d.X, d.Y)
	}
	if d.ImageURL == "" {
		return fmt.Errorf("invalid placement: missing image url")
	}
	return nil
}

// NewID returns a time ordered identifier; ids sort in creation order.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

type PageRequest struct {
	After string
	Limit int
}

func (r PageRequest) Normalize() PageRequest {
	switch {
	case r.Limit <= 0:
		r.Limit = DefaultLimit
	case r.Limit > MaxLimit:
		r.Limit = MaxLimit
	}
	return r
}

// Page is one slice of the ordered placement log. Next is empty on the last
// page.
type Page struct {
	Placements []Placement `json:"placements"`
	Next       string      `json:"next,omitempty"`
}

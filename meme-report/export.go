package memereport

import (
	"context"
	"fmt"
	"time"

	"github.com/memecanvas/memecanvas/meme/canvas"
	"github.com/memecanvas/memecanvas/meme/placement"
)

const ExportReportName = "canvas-export"

type Snapshotter interface {
	ListAll(ctx context.Context) ([]placement.Placement, error)
}

// Export is a full copy of the canvas at one point in time.
type Export struct {
	GeneratedAt time.Time             `json:"generatedAt"`
	Count       int                   `json:"count"`
	Bounds      canvas.Bounds         `json:"bounds"`
	Placements  []placement.Placement `json:"placements"`
}

// CanvasExport generates an Export from the placement store.
func CanvasExport(store Snapshotter, now func() time.Time) GenerateCallback {
	return func(ctx context.Context) (interface{}, error) {
		all, err := store.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read placements: %w", err)
		}
		if all == nil {
			all = []placement.Placement{}
		}
		points := make([]canvas.Point, 0, len(all))
		for _, p := range all {
			points = append(points, p.Point())
		}
		return Export{
			GeneratedAt: now().UTC(),
			Count:       len(all),
			Bounds:      canvas.BoundsOf(points...),
			Placements:  all,
		}, nil
	}
}

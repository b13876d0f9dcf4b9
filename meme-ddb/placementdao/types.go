package placementdao

import (
	"time"

	"github.com/memecanvas/memecanvas/meme/placement"
)

// Partition is the hash key shared by every placement. There is one canvas,
// and a single partition keeps the snapshot a single ordered Query.
const Partition = "canvas"

// Record is the DynamoDB shape of a placement. Ids are time ordered, so the
// range key order is insertion order.
type Record struct {
	Canvas    string  `dynamodbav:"pk" ddb:"hash"`
	ID        string  `dynamodbav:"sk" ddb:"range"`
	X         float64 `dynamodbav:"x"`
	Y         float64 `dynamodbav:"y"`
	ImageURL  string  `dynamodbav:"image_url"`
	CreatedAt int64   `dynamodbav:"created_at"` // unix millis
}

func (r Record) Placement() placement.Placement {
	return placement.Placement{
		ID:        r.ID,
		X:         r.X,
		Y:         r.Y,
		ImageURL:  r.ImageURL,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func fromPlacement(p placement.Placement) Record {
	return Record{
		Canvas:    Partition,
		ID:        p.ID,
		X:         p.X,
		Y:         p.Y,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt.UnixMilli(),
	}
}

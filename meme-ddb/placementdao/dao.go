package placementdao

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/savaki/ddb"
)

// DAO provides access to the placements table.
type DAO struct {
	Now func() time.Time

	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new placement DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		Now:       time.Now,
		table:     ddb.New(api).MustTable(tableName, Record{}),
		api:       api,
		tableName: tableName,
	}
}

// Table exposes the typed table, e.g. for CreateTableIfNotExists in tests and
// local setups.
func (d *DAO) Table() *ddb.Table {
	return d.table
}

// Insert assigns the id and creation time and writes the placement. The write
// is conditional on the key being new.
func (d *DAO) Insert(ctx context.Context, draft placement.Draft) (p placement.Placement, err error) {
	defer func(begin time.Time) {
		zerolog.Ctx(ctx).Debug().
			Dur("elapsed", time.Since(begin)).
			Err(err).
			Str("placement_id", p.ID).
			Msg("inserted placement")
	}(time.Now())

	if err := draft.Validate(); err != nil {
		return placement.Placement{}, err
	}
	p = placement.Placement{
		ID:        placement.NewID(),
		X:         draft.X,
		Y:         draft.Y,
		ImageURL:  draft.ImageURL,
		CreatedAt: d.Now().UTC().Truncate(time.Millisecond),
	}
	if err := d.table.Put(fromPlacement(p)).Condition("attribute_not_exists(#ID)").RunWithContext(ctx); err != nil {
		return placement.Placement{}, fmt.Errorf("failed to insert placement %v: %w", p.ID, err)
	}
	return p, nil
}

// Get returns a single placement. Returns nil if not found.
func (d *DAO) Get(ctx context.Context, id string) (*placement.Placement, error) {
	var r Record
	if err := d.table.Get(Partition).Range(id).ConsistentRead(true).ScanWithContext(ctx, &r); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get placement %v: %w", id, err)
	}
	p := r.Placement()
	return &p, nil
}

// ListAll returns every placement in insertion order.
func (d *DAO) ListAll(ctx context.Context) ([]placement.Placement, error) {
	var records []Record
	err := d.table.Query("#Canvas = ?", Partition).
		ConsistentRead(true).
		FindAllWithContext(ctx, &records)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	placements := make([]placement.Placement, 0, len(records))
	for _, r := range records {
		placements = append(placements, r.Placement())
	}
	return placements, nil
}

// List returns one ordered page starting after req.After.
func (d *DAO) List(ctx context.Context, req placement.PageRequest) (placement.Page, error) {
	req = req.Normalize()

	input := &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]*string{
			"#pk": aws.String("pk"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":pk": {S: aws.String(Partition)},
		},
		ConsistentRead: aws.Bool(true),
		Limit:          aws.Int64(int64(req.Limit)),
	}
	if req.After != "" {
		input.ExclusiveStartKey = map[string]*dynamodb.AttributeValue{
			"pk": {S: aws.String(Partition)},
			"sk": {S: aws.String(req.After)},
		}
	}

	out, err := d.api.QueryWithContext(ctx, input)
	if err != nil {
		return placement.Page{}, fmt.Errorf("failed to query placements after %q: %w", req.After, err)
	}

	var records []Record
	if err := dynamodbattribute.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return placement.Page{}, fmt.Errorf("failed to unmarshal placements: %w", err)
	}

	page := placement.Page{Placements: make([]placement.Placement, 0, len(records))}
	for _, r := range records {
		page.Placements = append(page.Placements, r.Placement())
	}
	if len(out.LastEvaluatedKey) > 0 && len(page.Placements) > 0 {
		page.Next = page.Placements[len(page.Placements)-1].ID
	}
	return page, nil
}

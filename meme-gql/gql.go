// Package memegql serves the read side of the canvas over GraphQL.
package memegql

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme/canvas"
	"github.com/memecanvas/memecanvas/meme/placement"
)

//go:embed schema.gql
var Schema string

type Store interface {
	Get(ctx context.Context, id string) (*placement.Placement, error)
	List(ctx context.Context, req placement.PageRequest) (placement.Page, error)
	ListAll(ctx context.Context) ([]placement.Placement, error)
}

type Resolver struct {
	Store Store
}

func AllowIntrospection() bool {
	return memecli.CommonOpts.Env != "prod" || memecli.CommonOpts.Console
}

// Handler constructs an http relay that handles graphql requests.
func Handler(resolver *Resolver) (*relay.Handler, error) {
	opts := []graphql.SchemaOpt{
		graphql.MaxDepth(8),
	}
	if !AllowIntrospection() {
		opts = append(opts, graphql.DisableIntrospection())
	}

	schema, err := graphql.ParseSchema(Schema, resolver, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse schema: %w", err)
	}
	return &relay.Handler{Schema: schema}, nil
}

type PlacementsArgs struct {
	After *string
	Limit *int32
}

func (r *Resolver) Placements(ctx context.Context, args PlacementsArgs) (*PageResolver, error) {
	var req placement.PageRequest
	if args.After != nil {
		req.After = *args.After
	}
	if args.Limit != nil {
		req.Limit = int(*args.Limit)
	}
	page, err := r.Store.List(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to list placements: %w", err)
	}
	return &PageResolver{page: page}, nil
}

func (r *Resolver) Placement(ctx context.Context, args struct{ ID graphql.ID }) (*PlacementResolver, error) {
	p, err := r.Store.Get(ctx, string(args.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to find placement %v: %w", args.ID, err)
	}
	if p == nil {
		return nil, nil
	}
	return &PlacementResolver{p: *p}, nil
}

func (r *Resolver) Bounds(ctx context.Context) (*BoundsResolver, error) {
	all, err := r.Store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute bounds: %w", err)
	}
	points := make([]canvas.Point, 0, len(all))
	for _, p := range all {
		points = append(points, p.Point())
	}
	b := canvas.BoundsOf(points...)
	if b.Empty {
		return nil, nil
	}
	return &BoundsResolver{b: b}, nil
}

type PageResolver struct {
	page placement.Page
}

func (r *PageResolver) Placements() []*PlacementResolver {
	rs := make([]*PlacementResolver, 0, len(r.page.Placements))
	for _, p := range r.page.Placements {
		rs = append(rs, &PlacementResolver{p: p})
	}
	return rs
}

func (r *PageResolver) Next() *string {
	if r.page.Next == "" {
		return nil
	}
	return &r.page.Next
}

type PlacementResolver struct {
	p placement.Placement
}

func (r *PlacementResolver) ID() graphql.ID { return graphql.ID(r.p.ID) }
func (r *PlacementResolver) X() float64 { return r.p.X }
func (r *PlacementResolver) Y() float64 { return r.p.Y }
func (r *PlacementResolver) ImageURL() string { return r.p.ImageURL }
func (r *PlacementResolver) CreatedAt() string { return r.p.CreatedAt.Format(time.RFC3339Nano) }

type BoundsResolver struct {
	b canvas.Bounds
}

func (r *BoundsResolver) MinX() float64 { return r.b.Min.X }
func (r *BoundsResolver) MinY() float64 { return r.b.Min.Y }
func (r *BoundsResolver) MaxX() float64 { return r.b.Max.X }
func (r *BoundsResolver) MaxY() float64 { return r.b.Max.Y }
func (r *BoundsResolver) Width() float64 { return r.b.Width() }
func (r *BoundsResolver) Height() float64 { return r.b.Height() }

// Package memeddb provides the DynamoDB client and the placements table
// stream handler, used to fan committed placements out when the API runs as a
// Lambda function and cannot hold viewer connections itself.
package memeddb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodbstreams"
	"github.com/aws/aws-sdk-go/service/dynamodbstreams/dynamodbstreamsiface"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme-ddb/placementdao"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/savaki/ddb"
	"golang.org/x/sync/errgroup"
)

const pollInterval = time.Second

type InsertCallback func(ctx context.Context, p placement.Placement) error

type Handler struct {
	service   memecli.Service
	Logger    zerolog.Logger
	tableName string

	onInsert InsertCallback
}

func NewHandler(service memecli.Service, tableName string, onInsert InsertCallback) *Handler {
	return &Handler{
		service:   service,
		Logger:    memecli.Logger(service),
		tableName: tableName,
		onInsert:  onInsert,
	}
}

func (h *Handler) Start(ctx context.Context, s *session.Session) error {
	switch {
	case memecli.CommonOpts.Console:
		return h.handleRealtime(ctx, dynamodbstreams.New(s))

	default:
		lambda.Start(h.HandleEvent)
	}
	return nil
}

func (h *Handler) HandleEvent(ctx context.Context, event ddb.Event) error {
	ctx = h.Logger.WithContext(ctx)
	h.Logger.Trace().Int("count", len(event.Records)).Msg("handling a batch of events")
	for _, record := range event.Records {
		if err := h.HandleSingleRecord(ctx, record); err != nil {
			h.Logger.Error().Err(err).Str("event", record.EventID).Msg("unable to handle record")
			return fmt.Errorf("unable to handle record: %w", err)
		}
	}
	return nil
}

// HandleSingleRecord forwards inserts. Placements are immutable, so updates
// and removals carry nothing a viewer needs.
func (h *Handler) HandleSingleRecord(ctx context.Context, record ddb.Record) error {
	if record.EventName != "INSERT" {
		h.Logger.Debug().Str("event", record.EventID).Str("name", record.EventName).Msg("ignoring non-insert record")
		return nil
	}
	if h.onInsert == nil {
		return nil
	}
	var r placementdao.Record
	if err := ParseItem(record.Change.NewImage, &r); err != nil {
		return err
	}
	return h.onInsert(ctx, r.Placement())
}

func (h *Handler) handleRealtime(ctx context.Context, streams dynamodbstreamsiface.DynamoDBStreamsAPI) error {
	ss, err := streams.ListStreamsWithContext(ctx, &dynamodbstreams.ListStreamsInput{
		TableName: aws.String(h.tableName),
	})
	if err != nil {
		return fmt.Errorf("unable to list streams for table %v: %w", h.tableName, err)
	}
	if len(ss.Streams) != 1 {
		return fmt.Errorf("too few or too many streams (%v) for table %v", len(ss.Streams), h.tableName)
	}
	stream := ss.Streams[0]

	var shards []*dynamodbstreams.Shard
	var lastShard *string
	for {
		ds, err := streams.DescribeStreamWithContext(ctx, &dynamodbstreams.DescribeStreamInput{
			StreamArn:             stream.StreamArn,
			ExclusiveStartShardId: lastShard,
		})
		if err != nil {
			return fmt.Errorf("unable to describe stream %v: %w", aws.StringValue(stream.StreamArn), err)
		}
		shards = append(shards, ds.StreamDescription.Shards...)
		if ds.StreamDescription.LastEvaluatedShardId == nil {
			break
		}
		lastShard = ds.StreamDescription.LastEvaluatedShardId
	}

	group, ctx := errgroup.WithContext(h.Logger.WithContext(ctx))
	group.SetLimit(256)

	h.Logger.Info().Str("tableName", h.tableName).Int("shardCount", len(shards)).Msg("responding to stream events")

	for _, shard := range shards {
		group.Go(func() error {
			return h.readShard(ctx, streams, stream.StreamArn, shard.ShardId)
		})
	}
	return group.Wait()
}

func (h *Handler) readShard(ctx context.Context, streams dynamodbstreamsiface.DynamoDBStreamsAPI, streamArn, shardID *string) error {
	it, err := streams.GetShardIteratorWithContext(ctx, &dynamodbstreams.GetShardIteratorInput{
		StreamArn:         streamArn,
		ShardId:           shardID,
		ShardIteratorType: aws.String(dynamodbstreams.ShardIteratorTypeLatest),
	})
	if err != nil {
		return fmt.Errorf("unable to get shard iterator: %w", err)
	}

	for iterator := it.ShardIterator; iterator != nil; {
		records, err := streams.GetRecordsWithContext(ctx, &dynamodbstreams.GetRecordsInput{
			ShardIterator: iterator,
		})
		if err != nil {
			return fmt.Errorf("unable to get records: %w", err)
		}
		for _, record := range records.Records {
			// reserialize to the ddb event type, shared with the lambda path
			raw, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("unable to marshal record: %w", err)
			}
			var ddbr ddb.Record
			if err := json.Unmarshal(raw, &ddbr); err != nil {
				return fmt.Errorf("unable to unmarshal record: %w", err)
			}
			if err := h.HandleSingleRecord(ctx, ddbr); err != nil {
				return fmt.Errorf("error processing record %v: %w", ddbr.EventID, err)
			}
		}
		iterator = records.NextShardIterator

		if len(records.Records) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(pollInterval):
			}
		}
	}
	return nil
}

func ParseItem(item map[string]*dynamodb.AttributeValue, v interface{}) error {
	if err := dynamodbattribute.UnmarshalMap(item, v); err != nil {
		return fmt.Errorf("unable to unmarshal item: %w", err)
	}
	return nil
}

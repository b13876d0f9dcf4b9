package memews

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go/aws"
	consumer "github.com/harlow/kinesis-consumer"
	"github.com/memecanvas/memecanvas/meme-ws/publish"
	"github.com/rs/zerolog"
)

// Relay republishes placements from the stream into the local hub.
type Relay struct {
	Hub        *Hub
	Logger     zerolog.Logger
	StreamName string
}

// HandleRecord decodes one stream record and publishes it locally.
func (r *Relay) HandleRecord(ctx context.Context, data []byte) error {
	p, ok, err := publish.Decode(data)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return r.Hub.Publish(ctx, p)
}

// HandleKinesisEvent handles a batch delivered by a Kinesis event source. Bad
// records are logged and skipped rather than failing the batch.
func (r *Relay) HandleKinesisEvent(ctx context.Context, event events.KinesisEvent) error {
	for _, record := range event.Records {
		if err := r.HandleRecord(ctx, record.Kinesis.Data); err != nil {
			r.Logger.Error().Err(err).Str("event_id", record.EventID).Msg("failed to relay kinesis record")
		}
	}
	return nil
}

// Run scans the stream from its tip until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	c, err := consumer.New(r.StreamName, consumer.WithShardIteratorType("LATEST"))
	if err != nil {
		return fmt.Errorf("failed to create consumer for stream %v: %w", r.StreamName, err)
	}

	ctx = r.Logger.WithContext(ctx)
	r.Logger.Info().Str("stream", r.StreamName).Msg("relaying placements")
	err = c.Scan(ctx, func(record *consumer.Record) error {
		if err := r.HandleRecord(ctx, record.Data); err != nil {
			r.Logger.Error().Err(err).Str("sequence", aws.StringValue(record.SequenceNumber)).Msg("failed to relay record")
		}
		return nil
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("relay scan failed: %w", err)
	}
	return nil
}

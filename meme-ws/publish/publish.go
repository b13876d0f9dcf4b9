// Package publish puts committed placements on the Kinesis stream every API
// instance relays to its own viewers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/memecanvas/memecanvas/meme/placement"
)

// Topic is the only topic; as the partition key it keeps placements in one
// shard and therefore in publish order.
const Topic = "placements"

// Envelope is the message format published to the placements stream.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Publisher publishes events to the placements Kinesis stream.
type Publisher struct {
	client     kinesisiface.KinesisAPI
	streamName string
}

func New(client kinesisiface.KinesisAPI, streamName string) *Publisher {
	return &Publisher{
		client:     client,
		streamName: streamName,
	}
}

// Build creates a Publisher using the standard stream name for the given
// environment.
func Build(s *session.Session, env string) *Publisher {
	return New(kinesis.New(s), StreamName(env))
}

// StreamName returns the Kinesis stream name for the given environment.
func StreamName(env string) string {
	return env + "-memecanvas-placements"
}

// Publish sends a committed placement to every instance.
func (p *Publisher) Publish(ctx context.Context, pl placement.Placement) error {
	return p.Send(ctx, Topic, pl)
}

// Send publishes an event. The topic is the partition key, preserving order
// within a topic.
func (p *Publisher) Send(ctx context.Context, topic string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling payload: %w", err)
	}

	data, err := json.Marshal(Envelope{
		Topic:   topic,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("marshalling envelope: %w", err)
	}

	_, err = p.client.PutRecordWithContext(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(p.streamName),
		PartitionKey: aws.String(topic),
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("publishing to kinesis stream %v: %w", p.streamName, err)
	}
	return nil
}

// Decode unpacks a placement from a stream record. ok is false for records of
// other topics.
func Decode(data []byte) (p placement.Placement, ok bool, err error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return placement.Placement{}, false, fmt.Errorf("unmarshalling envelope: %w", err)
	}
	if envelope.Topic != Topic {
		return placement.Placement{}, false, nil
	}
	if err := json.Unmarshal(envelope.Payload, &p); err != nil {
		return placement.Placement{}, false, fmt.Errorf("unmarshalling placement: %w", err)
	}
	return p, true, nil
}

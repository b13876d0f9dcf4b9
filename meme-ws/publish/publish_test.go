package publish

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/tj/assert"
)

type fakeKinesis struct {
	kinesisiface.KinesisAPI
	inputs []*kinesis.PutRecordInput
	err    error
}

func (f *fakeKinesis) PutRecordWithContext(_ aws.Context, input *kinesis.PutRecordInput, _ ...request.Option) (*kinesis.PutRecordOutput, error) {
	f.inputs = append(f.inputs, input)
	return &kinesis.PutRecordOutput{}, f.err
}

func TestPublisher(t *testing.T) {
	ctx := context.Background()
	p := placement.Placement{ID: "0190a", X: 1.5, Y: -2, ImageURL: "https://example.com/a.png", CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	t.Run("round trip through the stream", func(t *testing.T) {
		api := &fakeKinesis{}
		err := New(api, StreamName("local")).Publish(ctx, p)
		assert.Nil(t, err)
		assert.Len(t, api.inputs, 1)
		assert.Equal(t, "local-memecanvas-placements", aws.StringValue(api.inputs[0].StreamName))
		assert.Equal(t, Topic, aws.StringValue(api.inputs[0].PartitionKey))

		got, ok, err := Decode(api.inputs[0].Data)
		assert.Nil(t, err)
		assert.True(t, ok)
		assert.Equal(t, p, got)
	})

	t.Run("other topics are skipped", func(t *testing.T) {
		api := &fakeKinesis{}
		err := New(api, "s").Send(ctx, "other", map[string]string{"a": "b"})
		assert.Nil(t, err)
		_, ok, err := Decode(api.inputs[0].Data)
		assert.Nil(t, err)
		assert.False(t, ok)
	})

	t.Run("errors", func(t *testing.T) {
		api := &fakeKinesis{err: errors.New("throughput exceeded")}
		assert.NotNil(t, New(api, "s").Publish(ctx, p))

		_, _, err := Decode([]byte("{"))
		assert.NotNil(t, err)
	})
}

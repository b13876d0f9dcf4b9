package memews

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme-ws/publish"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func newPlacement(i int) placement.Placement {
	return placement.Placement{
		ID:        fmt.Sprintf("p-%03d", i),
		X:         float64(i),
		Y:         float64(-i),
		ImageURL:  fmt.Sprintf("https://example.com/%v.png", i),
		CreatedAt: time.Date(2024, 3, 1, 12, 0, i, 0, time.UTC),
	}
}

func drain(s *Session, n int) []placement.Placement {
	var got []placement.Placement
	for len(got) < n {
		got = append(got, <-s.Events())
	}
	return got
}

func TestHub(t *testing.T) {
	ctx := context.Background()

	t.Run("every session sees the same order", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 1000)
		a, b := hub.Subscribe(), hub.Subscribe()

		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 50; i++ {
					_ = hub.Publish(ctx, newPlacement(w*100+i))
				}
			}(w)
		}
		wg.Wait()

		gotA, gotB := drain(a, 200), drain(b, 200)
		assert.Equal(t, gotA, gotB)
	})

	t.Run("slow session is dropped, others unaffected", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 2)
		slow, fast := hub.Subscribe(), hub.Subscribe()

		for i := 0; i < 2; i++ {
			_ = hub.Publish(ctx, newPlacement(i))
		}
		assert.Equal(t, []placement.Placement{newPlacement(0), newPlacement(1)}, drain(fast, 2))

		assert.Nil(t, hub.Publish(ctx, newPlacement(2)))
		select {
		case <-slow.Done():
		default:
			t.Fatal("expected slow session to be dropped")
		}
		assert.Equal(t, 1, hub.Len())
		assert.Equal(t, newPlacement(2), <-fast.Events())
	})

	t.Run("unsubscribe", func(t *testing.T) {
		hub := NewHub(zerolog.Nop(), 0)
		s := hub.Subscribe()
		assert.Equal(t, 1, hub.Len())
		hub.Unsubscribe(s)
		hub.Unsubscribe(s)
		assert.Equal(t, 0, hub.Len())
		<-s.Done()
		assert.Nil(t, hub.Publish(ctx, newPlacement(1)))
	})
}

type fakeGauge struct {
	mu     sync.Mutex
	values []float64
}

func (f *fakeGauge) Gauge(_ context.Context, name memecli.MetricName, value float64, _ ...map[memecli.DimensionName]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, value)
}

func (f *fakeGauge) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.values)
}

func TestReportSessions(t *testing.T) {
	hub := NewHub(zerolog.Nop(), 0)
	hub.Subscribe()
	gauge := &fakeGauge{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() { done <- hub.ReportSessions(ctx, gauge, time.Millisecond) }()

	for gauge.count() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	assert.Nil(t, <-done)
	assert.EqualValues(t, 1, gauge.values[0])
}

func TestRelay(t *testing.T) {
	ctx := context.Background()
	hub := NewHub(zerolog.Nop(), 0)
	s := hub.Subscribe()
	relay := &Relay{Hub: hub, Logger: zerolog.Nop()}

	p := newPlacement(7)
	payload, _ := json.Marshal(p)
	data, _ := json.Marshal(publish.Envelope{Topic: publish.Topic, Payload: payload})
	other, _ := json.Marshal(publish.Envelope{Topic: "other", Payload: payload})

	err := relay.HandleKinesisEvent(ctx, events.KinesisEvent{
		Records: []events.KinesisEventRecord{
			{EventID: "1", Kinesis: events.KinesisRecord{Data: []byte("garbage")}},
			{EventID: "2", Kinesis: events.KinesisRecord{Data: other}},
			{EventID: "3", Kinesis: events.KinesisRecord{Data: data}},
		},
	})
	assert.Nil(t, err)
	assert.Equal(t, p, <-s.Events())
	assert.Len(t, s.Events(), 0)
}

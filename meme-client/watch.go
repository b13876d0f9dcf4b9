package memeclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	memews "github.com/memecanvas/memecanvas/meme-ws"
	"github.com/memecanvas/memecanvas/meme/placement"
)

type Event struct {
	Placement placement.Placement

	// Snapshot is set for placements that were on the canvas when the watch
	// started.
	Snapshot bool
}

// Watch follows the canvas until ctx is done or the connection fails. Every
// placement is merged into set and reported to fn exactly once, whether it
// arrived in the snapshot, live, or both.
func (c *Client) Watch(ctx context.Context, set *placement.Set, fn func(Event)) error {
	url := "ws" + strings.TrimPrefix(c.BaseURL, "http") + "/ws"
	conn, _, err := c.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %v: %w", url, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	for {
		_, body, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("watch interrupted: %w", err)
		}
		msg, err := memews.ParseMessage(body)
		if err != nil {
			return err
		}

		switch msg.Type {
		case memews.MsgSnapshot:
			var snapshot []placement.Placement
			if err := json.Unmarshal(msg.Payload, &snapshot); err != nil {
				return fmt.Errorf("invalid snapshot: %w", err)
			}
			for _, p := range set.Merge(snapshot...) {
				fn(Event{Placement: p, Snapshot: true})
			}

		case memews.MsgPlacementCreated, memews.MsgNewMeme:
			var p placement.Placement
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return fmt.Errorf("invalid placement: %w", err)
			}
			if set.Add(p) {
				fn(Event{Placement: p})
			}

		case memews.MsgError:
			var payload struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(msg.Payload, &payload)
			return fmt.Errorf("server closed the watch: %v", payload.Message)
		}
	}
}

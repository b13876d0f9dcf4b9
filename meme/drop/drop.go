// Package drop orchestrates a single image drop: cooldown, validation,
// moderation, asset upload, placement insert and fan-out.
//
// The sequence is all-or-nothing for the caller. Steps up to and including the
// placement insert are fatal; publication to viewers is best effort. Once the
// asset upload starts the work is detached from the request context so a
// client hanging up cannot leave a half committed drop.
package drop

import (
	"context"
	"fmt"
	"net/http"
	"time"

	memecli "github.com/memecanvas/memecanvas/meme-cli"
	"github.com/memecanvas/memecanvas/meme/canvas"
	"github.com/memecanvas/memecanvas/meme/cooldown"
	"github.com/memecanvas/memecanvas/meme/moderation"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
)

const DefaultMaxBytes = 5 << 20

// AcceptedTypes are the sniffed media types a drop may carry.
var AcceptedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

type Moderator interface {
	Moderate(ctx context.Context, filename string, image []byte) moderation.Verdict
}

// AssetStore durably stores image bytes and returns their public URL.
type AssetStore interface {
	Put(ctx context.Context, data []byte, contentType string) (string, error)
}

type PlacementStore interface {
	Insert(ctx context.Context, d placement.Draft) (placement.Placement, error)
}

type Broadcaster interface {
	Publish(ctx context.Context, p placement.Placement) error
}

type Metrics interface {
	Event(ctx context.Context, name memecli.MetricName, dimensions ...map[memecli.DimensionName]string)
	Timing(ctx context.Context, name memecli.MetricName, start time.Time, dimensions ...map[memecli.DimensionName]string)
}

type Timeouts struct {
	Storage     time.Duration
	Persistence time.Duration
	Publish     time.Duration
}

var DefaultTimeouts = Timeouts{
	Storage:     15 * time.Second,
	Persistence: 5 * time.Second,
	Publish:     5 * time.Second,
}

type Request struct {
	Origin   string
	Filename string
	Image    []byte
	X        float64
	Y        float64
}

type Service struct {
	Guard     *cooldown.Guard
	Moderator Moderator
	Assets    AssetStore
	Store     PlacementStore
	Fanout    Broadcaster
	Logger    zerolog.Logger
	Metrics   Metrics
	Timeouts  Timeouts
	MaxBytes  int64
}

// HandleDrop runs one drop to completion and returns the committed placement.
// Every failure is an *Error.
func (s *Service) HandleDrop(ctx context.Context, req Request) (p placement.Placement, err error) {
	begin := time.Now()
	logger := s.Logger.With().
		Str("origin", req.Origin).
		Str("filename", req.Filename).
		Int("size", len(req.Image)).
		Logger()
	ctx = logger.WithContext(ctx)
	defer func() { s.observe(ctx, begin, p, err) }()

	if s.Guard != nil {
		reservation, wait, ok := s.Guard.Reserve(req.Origin)
		if !ok {
			return placement.Placement{}, &Error{Kind: KindRateLimited, RetryAfter: wait}
		}
		// released unless the drop commits below
		defer reservation.Cancel()
		defer func() {
			if err == nil {
				reservation.Commit()
			}
		}()
	}

	contentType, err := s.validate(req)
	if err != nil {
		return placement.Placement{}, &Error{Kind: KindValidation, Err: err}
	}

	if err := s.moderate(ctx, req); err != nil {
		return placement.Placement{}, err
	}

	ctx = context.WithoutCancel(ctx)

	url, err := s.putAsset(ctx, req.Image, contentType)
	if err != nil {
		return placement.Placement{}, &Error{Kind: KindStorage, Err: err}
	}

	p, err = s.insert(ctx, placement.Draft{X: req.X, Y: req.Y, ImageURL: url})
	if err != nil {
		logger.Error().Err(err).Str("orphaned_url", url).Msg("placement insert failed, asset orphaned")
		return placement.Placement{}, &Error{Kind: KindPersistence, Err: err}
	}

	s.publish(ctx, p)
	return p, nil
}

func (s *Service) validate(req Request) (string, error) {
	if len(req.Image) == 0 {
		return "", ErrEmptyImage
	}
	maxBytes := s.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if int64(len(req.Image)) > maxBytes {
		return "", fmt.Errorf("%w: %v bytes, limit %v", ErrTooLarge, len(req.Image), maxBytes)
	}
	contentType := http.DetectContentType(req.Image)
	if !AcceptedTypes[contentType] {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedMedia, contentType)
	}
	if !(canvas.Point{X: req.X, Y: req.Y}).IsFinite() {
		return "", fmt.Errorf("%w: got (%v, %v)", ErrBadCoordinates, req.X, req.Y)
	}
	return contentType, nil
}

func (s *Service) moderate(ctx context.Context, req Request) error {
	if s.Moderator == nil {
		return &Error{Kind: KindModerationUnavailable, Reason: moderation.ReasonModerationUnavailable, Err: moderation.ErrNoClassifier}
	}
	v := s.Moderator.Moderate(ctx, req.Filename, req.Image)
	switch {
	case v.Allowed:
		return nil
	case v.Reason == moderation.ReasonProfaneFilename, v.Reason == moderation.ReasonUnsafeContent:
		return &Error{Kind: KindModerationRejected, Reason: v.Reason}
	default:
		err := v.Err
		if err == nil {
			err = fmt.Errorf("moderation failed: %v", v.Detail)
		}
		return &Error{Kind: KindModerationUnavailable, Reason: moderation.ReasonModerationUnavailable, Err: err}
	}
}

func (s *Service) putAsset(ctx context.Context, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts().Storage)
	defer cancel()
	url, err := s.Assets.Put(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to store asset: %w", err)
	}
	return url, nil
}

func (s *Service) insert(ctx context.Context, d placement.Draft) (placement.Placement, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeouts().Persistence)
	defer cancel()
	p, err := s.Store.Insert(ctx, d)
	if err != nil {
		return placement.Placement{}, fmt.Errorf("failed to insert placement: %w", err)
	}
	return p, nil
}

// publish never fails the drop; the placement is already committed.
func (s *Service) publish(ctx context.Context, p placement.Placement) {
	if s.Fanout == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeouts().Publish)
	defer cancel()
	if err := s.Fanout.Publish(ctx, p); err != nil {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Str("kind", string(KindDelivery)).
			Str("placement_id", p.ID).
			Msg("failed to publish placement")
	}
}

func (s *Service) observe(ctx context.Context, begin time.Time, p placement.Placement, err error) {
	logger := zerolog.Ctx(ctx)
	metrics := s.Metrics
	if metrics == nil {
		metrics = memecli.Metrics{}
	}
	defer metrics.Timing(ctx, memecli.DropDurationMetric, begin)

	if err == nil {
		logger.Info().
			Str("placement_id", p.ID).
			Float64("x", p.X).
			Float64("y", p.Y).
			Dur("elapsed", time.Since(begin)).
			Msg("drop accepted")
		metrics.Event(ctx, memecli.DropAcceptedMetric)
		return
	}

	var kind Kind
	var reason moderation.Reason
	event := logger.Info()
	if e, ok := err.(*Error); ok {
		kind, reason = e.Kind, e.Reason
		if e.StatusCode() >= http.StatusInternalServerError {
			event = logger.Error()
		}
	}
	event.Err(err).
		Str("kind", string(kind)).
		Str("reason", string(reason)).
		Dur("elapsed", time.Since(begin)).
		Msg("drop rejected")
	metrics.Event(ctx, memecli.DropRejectedMetric, map[memecli.DimensionName]string{
		memecli.KindDimension:   string(kind),
		memecli.ReasonDimension: string(reason),
	})
}

func (s *Service) timeouts() Timeouts {
	t := s.Timeouts
	if t.Storage <= 0 {
		t.Storage = DefaultTimeouts.Storage
	}
	if t.Persistence <= 0 {
		t.Persistence = DefaultTimeouts.Persistence
	}
	if t.Publish <= 0 {
		t.Publish = DefaultTimeouts.Publish
	}
	return t
}

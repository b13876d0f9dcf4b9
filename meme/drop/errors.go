package drop

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/memecanvas/memecanvas/meme/moderation"
)

type Kind string

const (
	KindRateLimited           Kind = "RateLimited"
	KindValidation            Kind = "ValidationError"
	KindModerationRejected    Kind = "ModerationRejected"
	KindModerationUnavailable Kind = "ModerationUnavailable"
	KindStorage               Kind = "StorageError"
	KindPersistence           Kind = "PersistenceError"
	KindDelivery              Kind = "DeliveryError"
)

var (
	ErrEmptyImage       = errors.New("no file uploaded")
	ErrTooLarge         = errors.New("file too large")
	ErrUnsupportedMedia = errors.New("unsupported image type")
	ErrBadCoordinates   = errors.New("coordinates must be finite numbers")
)

// Error is returned by HandleDrop for every failed drop. Reason is set for
// moderation rejections, RetryAfter for rate limiting.
type Error struct {
	Kind       Kind
	Reason     moderation.Reason
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Reason != moderation.ReasonNone {
		msg += "{" + string(e.Reason) + "}"
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%v: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode maps the kind onto an HTTP status: caller mistakes are 4xx,
// collaborator failures are 5xx.
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindValidation:
		if errors.Is(e.Err, ErrTooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		if errors.Is(e.Err, ErrUnsupportedMedia) {
			return http.StatusUnsupportedMediaType
		}
		return http.StatusBadRequest
	case KindModerationRejected:
		return http.StatusUnprocessableEntity
	case KindModerationUnavailable:
		return http.StatusServiceUnavailable
	case KindStorage:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Message is the text shown to the person who dropped the image.
func (e *Error) Message() string {
	switch e.Kind {
	case KindRateLimited:
		return "Cooldown, try again shortly."
	case KindValidation:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "invalid drop"
	case KindModerationRejected:
		if e.Reason == moderation.ReasonProfaneFilename {
			return "Inappropriate filename detected."
		}
		return "Inappropriate content detected."
	case KindModerationUnavailable:
		return "Moderation is unavailable, try again later."
	case KindStorage:
		return "Could not store the image, try again later."
	default:
		return "Could not save the drop, try again later."
	}
}

// KindOf returns the kind of a drop error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Package moderation decides whether an upload may be placed on the canvas.
//
// The pipeline runs two guards in order: a lexicon check over the filename and
// a content-safety classification of the image bytes. The classifier is only
// consulted when the filename passes. The pipeline fails closed: a classifier
// that errors, times out or returns an unusable answer rejects the upload with
// ReasonModerationUnavailable.
package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const DefaultTimeout = 10 * time.Second

// Classifier rates image bytes per safety category.
type Classifier interface {
	Classify(ctx context.Context, image []byte) (SafeSearch, error)
}

type ClassifierFunc func(ctx context.Context, image []byte) (SafeSearch, error)

func (fn ClassifierFunc) Classify(ctx context.Context, image []byte) (SafeSearch, error) {
	return fn(ctx, image)
}

var ErrNoClassifier = errors.New("no content-safety classifier configured")

type Pipeline struct {
	Lexicon    Lexicon
	Classifier Classifier
	Timeout    time.Duration
}

func (p *Pipeline) Moderate(ctx context.Context, filename string, image []byte) Verdict {
	logger := zerolog.Ctx(ctx)

	if v := p.checkFilename(filename); !v.Allowed {
		logger.Info().Str("filename", filename).Str("reason", string(v.Reason)).Msg("filename rejected")
		return v
	}

	v := p.checkContent(ctx, image)
	if !v.Allowed {
		logger.Info().
			Err(v.Err).
			Str("filename", filename).
			Str("reason", string(v.Reason)).
			Str("detail", v.Detail).
			Msg("content rejected")
	}
	return v
}

func (p *Pipeline) checkFilename(filename string) Verdict {
	if p.Lexicon == nil {
		return allow()
	}
	for _, token := range Tokenize(filename) {
		if p.Lexicon.IsListed(token) {
			return reject(ReasonProfaneFilename, fmt.Sprintf("listed token %q", token))
		}
	}
	return allow()
}

func (p *Pipeline) checkContent(ctx context.Context, image []byte) Verdict {
	if p.Classifier == nil {
		return unavailable(ErrNoClassifier)
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// the classifier may ignore ctx; never wait past the deadline
	type classified struct {
		result SafeSearch
		err    error
	}
	ch := make(chan classified, 1)
	go func() {
		result, err := p.Classifier.Classify(ctx, image)
		ch <- classified{result, err}
	}()

	var result SafeSearch
	select {
	case c := <-ch:
		if c.err != nil {
			return unavailable(fmt.Errorf("failed to classify image: %w", c.err))
		}
		result = c.result
	case <-ctx.Done():
		return unavailable(fmt.Errorf("failed to classify image: %w", ctx.Err()))
	}
	if !result.Valid() {
		return unavailable(fmt.Errorf("classifier returned incomplete verdict %+v", result))
	}
	if category, unsafe := result.Unsafe(); unsafe {
		return reject(ReasonUnsafeContent, category)
	}
	return allow()
}

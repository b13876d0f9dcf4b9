package memerest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/memecanvas/memecanvas/meme/drop"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
)

const (
	// room for the multipart envelope and the coordinate fields
	multipartOverhead = 1 << 20
	multipartMemory   = 8 << 20
)

type Dropper interface {
	HandleDrop(ctx context.Context, req drop.Request) (placement.Placement, error)
}

type Lister interface {
	List(ctx context.Context, req placement.PageRequest) (placement.Page, error)
	ListAll(ctx context.Context) ([]placement.Placement, error)
}

type DropResponse struct {
	Placement placement.Placement `json:"placement"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// DropHandler accepts a multipart form with an image file and x, y world
// coordinates. Missing or malformed fields are passed through as such so the
// drop service applies the cooldown before rejecting them.
func DropHandler(dropper Dropper, maxBytes int64, trustForwarded bool) http.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = drop.DefaultMaxBytes
	}
	return func(w http.ResponseWriter, req *http.Request) {
		req.Body = http.MaxBytesReader(w, req.Body, maxBytes+multipartOverhead)
		if err := req.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, req, &drop.Error{Kind: drop.KindValidation, Err: drop.ErrTooLarge})
				return
			}
			writeError(w, req, &drop.Error{Kind: drop.KindValidation, Err: fmt.Errorf("malformed upload: %w", err)})
			return
		}
		defer req.MultipartForm.RemoveAll()

		r := drop.Request{
			Origin: ClientIP(req, trustForwarded),
			X:      parseCoordinate(req.FormValue("x")),
			Y:      parseCoordinate(req.FormValue("y")),
		}
		if file, header, err := req.FormFile("image"); err == nil {
			data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
			file.Close()
			if err != nil {
				writeError(w, req, &drop.Error{Kind: drop.KindValidation, Err: fmt.Errorf("failed to read upload: %w", err)})
				return
			}
			// data was cut at the limit; never hand a truncated image on
			if int64(len(data)) > maxBytes {
				writeError(w, req, &drop.Error{Kind: drop.KindValidation, Err: fmt.Errorf("%w: limit %v bytes", drop.ErrTooLarge, maxBytes)})
				return
			}
			r.Filename = header.Filename
			r.Image = data
		}

		p, err := dropper.HandleDrop(req.Context(), r)
		if err != nil {
			writeError(w, req, err)
			return
		}
		writeJSON(w, req, http.StatusOK, DropResponse{Placement: p})
	}
}

// PlacementsHandler serves one ordered page: ?after=<id>&limit=<n>.
func PlacementsHandler(store Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		query := req.URL.Query()
		pr := placement.PageRequest{After: query.Get("after")}
		if v := query.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil || limit < 0 {
				writeJSON(w, req, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer", Kind: string(drop.KindValidation)})
				return
			}
			pr.Limit = limit
		}

		page, err := store.List(req.Context(), pr)
		if err != nil {
			zerolog.Ctx(req.Context()).Error().Err(err).Msg("failed to list placements")
			writeJSON(w, req, http.StatusInternalServerError, ErrorResponse{Error: "could not read placements"})
			return
		}
		writeJSON(w, req, http.StatusOK, page)
	}
}

// MemesHandler serves the full snapshot as a bare array.
func MemesHandler(store Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		all, err := store.ListAll(req.Context())
		if err != nil {
			zerolog.Ctx(req.Context()).Error().Err(err).Msg("failed to list placements")
			writeJSON(w, req, http.StatusInternalServerError, ErrorResponse{Error: "could not read placements"})
			return
		}
		if all == nil {
			all = []placement.Placement{}
		}
		writeJSON(w, req, http.StatusOK, all)
	}
}

func parseCoordinate(v string) float64 {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func writeError(w http.ResponseWriter, req *http.Request, err error) {
	var e *drop.Error
	if !errors.As(err, &e) {
		zerolog.Ctx(req.Context()).Error().Err(err).Msg("unexpected error")
		writeJSON(w, req, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}
	if e.Kind == drop.KindRateLimited {
		seconds := int(math.Ceil(e.RetryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	writeJSON(w, req, e.StatusCode(), ErrorResponse{
		Error:  e.Message(),
		Kind:   string(e.Kind),
		Reason: string(e.Reason),
	})
}

func writeJSON(w http.ResponseWriter, req *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(req.Context()).Debug().Err(err).Msg("failed to write response")
	}
}

// Package memeclient talks to a memecanvas API: it drops images at canvas
// positions and follows the canvas as it changes.
package memeclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memecanvas/memecanvas/meme/canvas"
	"github.com/memecanvas/memecanvas/meme/placement"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Dialer  *websocket.Dialer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		Dialer:  websocket.DefaultDialer,
	}
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status     int
	Message    string
	Kind       string
	Reason     string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%v %v", e.Status, e.Message)
	if e.Kind != "" {
		msg += " (" + e.Kind
		if e.Reason != "" {
			msg += "/" + e.Reason
		}
		msg += ")"
	}
	return msg
}

// Drop uploads an image to a world coordinate.
func (c *Client) Drop(ctx context.Context, filename string, image io.Reader, at canvas.Point) (placement.Placement, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return placement.Placement{}, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(fw, image); err != nil {
		return placement.Placement{}, fmt.Errorf("failed to read image %v: %w", filename, err)
	}
	_ = mw.WriteField("x", strconv.FormatFloat(at.X, 'g', -1, 64))
	_ = mw.WriteField("y", strconv.FormatFloat(at.Y, 'g', -1, 64))
	if err := mw.Close(); err != nil {
		return placement.Placement{}, fmt.Errorf("failed to build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/drop", &body)
	if err != nil {
		return placement.Placement{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var resp struct {
		Placement placement.Placement `json:"placement"`
	}
	if err := c.do(req, &resp); err != nil {
		return placement.Placement{}, err
	}
	return resp.Placement, nil
}

// DropAt uploads an image to the world point under a screen position in the
// given view, the way a click on the canvas does.
func (c *Client) DropAt(ctx context.Context, filename string, image io.Reader, screen canvas.Point, view canvas.View) (placement.Placement, error) {
	if err := view.Validate(); err != nil {
		return placement.Placement{}, err
	}
	return c.Drop(ctx, filename, image, canvas.ToWorld(screen, view))
}

// Snapshot returns every placement on the canvas.
func (c *Client) Snapshot(ctx context.Context) ([]placement.Placement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/memes", nil)
	if err != nil {
		return nil, err
	}
	var all []placement.Placement
	if err := c.do(req, &all); err != nil {
		return nil, err
	}
	return all, nil
}

func (c *Client) do(req *http.Request, v interface{}) error {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%v %v failed: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
		var body struct {
			Error  string `json:"error"`
			Kind   string `json:"kind"`
			Reason string `json:"reason"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
			apiErr.Message, apiErr.Kind, apiErr.Reason = body.Error, body.Kind, body.Reason
		}
		if seconds, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			apiErr.RetryAfter = time.Duration(seconds) * time.Second
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %v response: %w", req.URL.Path, err)
	}
	return nil
}

package memerest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/memecanvas/memecanvas/meme/cooldown"
	"github.com/memecanvas/memecanvas/meme/drop"
	"github.com/memecanvas/memecanvas/meme/moderation"
	"github.com/memecanvas/memecanvas/meme/placement"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type assets struct{ n int }

func (a *assets) Put(_ context.Context, _ []byte, _ string) (string, error) {
	a.n++
	return fmt.Sprintf("https://cdn.example.com/%v.png", a.n), nil
}

func newServer(t *testing.T) (*httptest.Server, *placement.MemoryStore) {
	store := placement.NewMemoryStore()
	service := &drop.Service{
		Guard: cooldown.New(10 * time.Second),
		Moderator: &moderation.Pipeline{
			Lexicon: moderation.NewWordList("bad"),
			Classifier: moderation.ClassifierFunc(func(context.Context, []byte) (moderation.SafeSearch, error) {
				return moderation.SafeSearch{Adult: moderation.VeryUnlikely, Violence: moderation.Unlikely, Racy: moderation.Possible}, nil
			}),
		},
		Assets: &assets{},
		Store:  store,
		Logger: zerolog.Nop(),
	}
	router := Routes(Config{
		Logger:         zerolog.Nop(),
		Drops:          service,
		Store:          store,
		MaxBytes:       1024,
		TrustForwarded: true,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, store
}

type upload struct {
	filename string
	image    []byte
	x, y     string
	origin   string
}

func post(t *testing.T, server *httptest.Server, u upload) (*http.Response, map[string]json.RawMessage) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if u.image != nil {
		fw, err := mw.CreateFormFile("image", u.filename)
		assert.Nil(t, err)
		_, _ = fw.Write(u.image)
	}
	if u.x != "" {
		_ = mw.WriteField("x", u.x)
	}
	if u.y != "" {
		_ = mw.WriteField("y", u.y)
	}
	assert.Nil(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/drop", &body)
	assert.Nil(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Forwarded-For", u.origin+", 10.0.0.1")

	resp, err := http.DefaultClient.Do(req)
	assert.Nil(t, err)
	defer resp.Body.Close()

	var decoded map[string]json.RawMessage
	assert.Nil(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestDrop(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		server, store := newServer(t)
		resp, body := post(t, server, upload{filename: "cat.png", image: pngBytes, x: "120.5", y: "-80", origin: "1.1.1.1"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var p placement.Placement
		assert.Nil(t, json.Unmarshal(body["placement"], &p))
		assert.Equal(t, 120.5, p.X)
		assert.Equal(t, -80.0, p.Y)
		assert.Equal(t, "https://cdn.example.com/1.png", p.ImageURL)

		all, _ := store.ListAll(context.Background())
		assert.Equal(t, []placement.Placement{p}, all)
	})

	t.Run("cooldown", func(t *testing.T) {
		server, _ := newServer(t)
		resp, _ := post(t, server, upload{filename: "cat.png", image: pngBytes, x: "1", y: "1", origin: "2.2.2.2"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, body := post(t, server, upload{filename: "cat.png", image: pngBytes, x: "1", y: "1", origin: "2.2.2.2"})
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "10", resp.Header.Get("Retry-After"))
		assert.Equal(t, `"RateLimited"`, string(body["kind"]))

		resp, _ = post(t, server, upload{filename: "cat.png", image: pngBytes, x: "1", y: "1", origin: "3.3.3.3"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("rejections", func(t *testing.T) {
		server, store := newServer(t)
		cases := map[string]struct {
			upload upload
			status int
			kind   string
		}{
			"profane filename": {upload{filename: "bad_word.png", image: pngBytes, x: "120", y: "80"}, http.StatusUnprocessableEntity, "ModerationRejected"},
			"no file":          {upload{x: "1", y: "1"}, http.StatusBadRequest, "ValidationError"},
			"bad coordinate":   {upload{filename: "a.png", image: pngBytes, x: "left", y: "1"}, http.StatusBadRequest, "ValidationError"},
			"not an image":     {upload{filename: "a.png", image: []byte("plain text"), x: "1", y: "1"}, http.StatusUnsupportedMediaType, "ValidationError"},
			"too large":        {upload{filename: "a.png", image: append(append([]byte{}, pngBytes...), make([]byte, 2048)...), x: "1", y: "1"}, http.StatusRequestEntityTooLarge, "ValidationError"},
		}
		i := 0
		for name, tc := range cases {
			i++
			tc.upload.origin = fmt.Sprintf("9.9.9.%v", i)
			t.Run(name, func(t *testing.T) {
				resp, body := post(t, server, tc.upload)
				assert.Equal(t, tc.status, resp.StatusCode)
				assert.Equal(t, `"`+tc.kind+`"`, string(body["kind"]))
				assert.NotEmpty(t, body["error"])
			})
		}
		all, _ := store.ListAll(context.Background())
		assert.Len(t, all, 0)
	})

	t.Run("upload over the route limit is refused, not truncated", func(t *testing.T) {
		server, store := newServer(t)
		image := append(append([]byte{}, pngBytes...), make([]byte, 2048)...)
		resp, body := post(t, server, upload{filename: "big.png", image: image, x: "1", y: "1", origin: "4.4.4.4"})
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
		assert.Equal(t, `"ValidationError"`, string(body["kind"]))

		all, _ := store.ListAll(context.Background())
		assert.Len(t, all, 0)

		// the refusal did not start a cooldown
		resp, _ = post(t, server, upload{filename: "cat.png", image: pngBytes, x: "1", y: "1", origin: "4.4.4.4"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("not multipart", func(t *testing.T) {
		server, _ := newServer(t)
		resp, err := http.Post(server.URL+"/api/drop", "application/json", bytes.NewReader([]byte(`{}`)))
		assert.Nil(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestReads(t *testing.T) {
	server, store := newServer(t)
	ctx := context.Background()
	var ids []string
	for i := 0; i < 3; i++ {
		p, err := store.Insert(ctx, placement.Draft{X: float64(i), Y: 0, ImageURL: "https://cdn.example.com/a.png"})
		assert.Nil(t, err)
		ids = append(ids, p.ID)
	}

	t.Run("page", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/placements?limit=2")
		assert.Nil(t, err)
		defer resp.Body.Close()
		var page placement.Page
		assert.Nil(t, json.NewDecoder(resp.Body).Decode(&page))
		assert.Len(t, page.Placements, 2)
		assert.Equal(t, ids[1], page.Next)

		resp2, err := http.Get(server.URL + "/api/placements?after=" + page.Next)
		assert.Nil(t, err)
		defer resp2.Body.Close()
		var rest placement.Page
		assert.Nil(t, json.NewDecoder(resp2.Body).Decode(&rest))
		assert.Equal(t, ids[2], rest.Placements[0].ID)
		assert.Equal(t, "", rest.Next)
	})

	t.Run("bad limit", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/api/placements?limit=lots")
		assert.Nil(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("memes", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/memes")
		assert.Nil(t, err)
		defer resp.Body.Close()
		var all []placement.Placement
		assert.Nil(t, json.NewDecoder(resp.Body).Decode(&all))
		assert.Len(t, all, 3)
	})

	t.Run("healthz", func(t *testing.T) {
		resp, err := http.Get(server.URL + "/healthz")
		assert.Nil(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/drop", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	assert.Equal(t, "192.0.2.1", ClientIP(req, false))
	assert.Equal(t, "203.0.113.7", ClientIP(req, true))

	req.Header.Del("X-Forwarded-For")
	assert.Equal(t, "192.0.2.1", ClientIP(req, true))
}

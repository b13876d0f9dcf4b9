package memes3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/tj/assert"
)

type fakeS3 struct {
	s3iface.S3API
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObjectWithContext(_ aws.Context, input *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.input = input
	f.body, _ = io.ReadAll(input.Body)
	return &s3.PutObjectOutput{}, f.err
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	data := []byte("\x89PNG\r\n\x1a\nimage")

	t.Run("put", func(t *testing.T) {
		api := &fakeS3{}
		store := New(api, "canvas-assets", "https://cdn.example.com/")
		store.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

		url, err := store.Put(ctx, data, "image/png")
		assert.Nil(t, err)

		key := aws.StringValue(api.input.Key)
		assert.True(t, strings.HasPrefix(key, "uploads/2024/03/01/"))
		assert.True(t, strings.HasSuffix(key, ".png"))
		assert.Equal(t, "https://cdn.example.com/"+key, url)
		assert.Equal(t, "canvas-assets", aws.StringValue(api.input.Bucket))
		assert.Equal(t, "image/png", aws.StringValue(api.input.ContentType))
		assert.Equal(t, data, api.body)
	})

	t.Run("default public url", func(t *testing.T) {
		api := &fakeS3{}
		url, err := New(api, "canvas-assets", "").Put(ctx, data, "image/jpeg")
		assert.Nil(t, err)
		assert.True(t, strings.HasPrefix(url, "https://canvas-assets.s3.amazonaws.com/uploads/"))
		assert.True(t, strings.HasSuffix(url, ".jpg"))
	})

	t.Run("failure", func(t *testing.T) {
		api := &fakeS3{err: errors.New("access denied")}
		_, err := New(api, "canvas-assets", "").Put(ctx, data, "image/png")
		assert.NotNil(t, err)
	})

	t.Run("names are unique", func(t *testing.T) {
		assert.NotEqual(t, ObjectName("image/gif"), ObjectName("image/gif"))
		assert.Equal(t, ".bin", Extension("text/plain"))
	})
}

func TestDirStore(t *testing.T) {
	dir := t.TempDir()
	store := NewDirStore(filepath.Join(dir, "uploads"), "http://localhost:3000/assets/")
	data := []byte("GIF89a-image")

	url, err := store.Put(context.Background(), data, "image/gif")
	assert.Nil(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:3000/assets/"))

	name := strings.TrimPrefix(url, "http://localhost:3000/assets/")
	saved, err := os.ReadFile(filepath.Join(dir, "uploads", name))
	assert.Nil(t, err)
	assert.Equal(t, data, saved)

	server := httptest.NewServer(http.StripPrefix("/assets", store.Handler()))
	defer server.Close()

	resp, err := http.Get(server.URL + "/assets/" + name)
	assert.Nil(t, err)
	defer resp.Body.Close()
	served, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, data, served)
}

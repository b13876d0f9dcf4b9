// Package memes3 stores dropped images and hands back the URL viewers load
// them from: S3 in production, a local directory in dry mode.
package memes3

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Extension returns the file extension for an image content type.
func Extension(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

// ObjectName is a fresh, collision free name for an image of the given type.
func ObjectName(contentType string) string {
	return uuid.NewString() + Extension(contentType)
}

type Store struct {
	Now func() time.Time

	s3        s3iface.S3API
	bucket    string
	publicURL string
}

// New creates an S3 backed asset store. When publicURL is empty, URLs point at
// the bucket's virtual hosted endpoint.
func New(api s3iface.S3API, bucket, publicURL string) *Store {
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%v.s3.amazonaws.com", bucket)
	}
	return &Store{
		Now:       time.Now,
		s3:        api,
		bucket:    bucket,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Key is the object key for a new image, partitioned by day.
func (s *Store) Key(contentType string) string {
	return fmt.Sprintf("uploads/%v/%v", s.Now().UTC().Format("2006/01/02"), ObjectName(contentType))
}

func (s *Store) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	key := s.Key(contentType)
	zerolog.Ctx(ctx).Debug().Str("bucket", s.bucket).Str("key", key).Int("size", len(data)).Msg("saving image to s3")

	_, err := s.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %v in bucket %v: %w", key, s.bucket, err)
	}
	return s.publicURL + "/" + key, nil
}

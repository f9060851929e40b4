package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/pageza/foodgram/backend/internal/logging"
)

// Image is a decoded upload.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ImageStore persists images and hands back the public URL they are served
// from.
type ImageStore interface {
	Save(ctx context.Context, folder string, img *Image) (string, error)
	Delete(ctx context.Context, url string) error
}

// DecodeImage parses a base64 data URI ("data:image/png;base64,...") or bare
// base64 payload and checks that the content really is an image. The declared
// media type is ignored in favour of content sniffing.
func DecodeImage(field, raw string, maxBytes int) (*Image, error) {
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		i := strings.Index(raw, ";base64,")
		if i < 0 {
			return nil, ValidationError(field, "image must be a base64 data URI")
		}
		payload = raw[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ValidationError(field, "image is not valid base64")
	}
	if len(data) == 0 {
		return nil, ValidationError(field, "image is empty")
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, ValidationError(field, fmt.Sprintf("image exceeds %d bytes", maxBytes))
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ValidationError(field, "upload a valid image")
	}
	return &Image{Data: data, ContentType: mt.String(), Extension: mt.Extension()}, nil
}

func objectKey(folder string, img *Image) string {
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), img.Extension)
}

// S3API is the subset of the S3 client used for image storage.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore uploads images to a bucket behind a circuit breaker so a
// failing S3 endpoint rejects uploads quickly instead of stalling requests.
type S3ImageStore struct {
	client  S3API
	bucket  string
	baseURL string
	breaker *gobreaker.CircuitBreaker[any]
}

// NewS3ImageStore creates a store for bucket. baseURL overrides the default
// virtual-hosted bucket URL, e.g. for a CDN or MinIO.
func NewS3ImageStore(client S3API, bucket, baseURL string) *S3ImageStore {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return &S3ImageStore{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		breaker: gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:    "s3-images",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("circuit breaker state changed")
			},
		}),
	}
}

// Save uploads img under folder and returns its public URL.
func (s *S3ImageStore) Save(ctx context.Context, folder string, img *Image) (string, error) {
	key := objectKey(folder, img)
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(s.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(img.Data),
			ContentType: aws.String(img.ContentType),
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes an object previously returned by Save. URLs outside the
// store's base are ignored.
func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok {
		return nil
	}
	_, err := s.breaker.Execute(func() (any, error) {
		return s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// LocalImageStore writes images under a directory served at baseURL.
type LocalImageStore struct {
	dir     string
	baseURL string
}

// NewLocalImageStore creates a new LocalImageStore instance
func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}
}

// Save writes img under folder and returns its URL below baseURL.
func (s *LocalImageStore) Save(_ context.Context, folder string, img *Image) (string, error) {
	key := objectKey(folder, img)
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return s.baseURL + "/" + key, nil
}

// Delete removes the file behind url. URLs outside baseURL are ignored.
func (s *LocalImageStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || strings.Contains(key, "..") {
		return nil
	}
	if err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(key))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

package service_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
)

func TestDecodeImage(t *testing.T) {
	img, err := service.DecodeImage("image", testhelpers.PNGDataURI, 0)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension)

	bare := strings.TrimPrefix(testhelpers.PNGDataURI, "data:image/png;base64,")
	_, err = service.DecodeImage("image", bare, 0)
	assert.NoError(t, err)

	tests := map[string]string{
		"not base64":     "data:image/png;base64,!!!",
		"missing marker": "data:image/png,abc",
		"not an image":   "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("plain text")),
		"empty":          "",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := service.DecodeImage("avatar", raw, 0)
			require.ErrorIs(t, err, service.ErrValidation)
			var se *service.Error
			require.ErrorAs(t, err, &se)
			assert.Contains(t, se.Fields, "avatar")
		})
	}
}

func TestDecodeImageTooLarge(t *testing.T) {
	_, err := service.DecodeImage("image", testhelpers.PNGDataURI, 16)
	assert.ErrorIs(t, err, service.ErrValidation)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.PutObjectOutput), args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*s3.DeleteObjectOutput), args.Error(1)
}

func pngImage(t *testing.T) *service.Image {
	t.Helper()
	img, err := service.DecodeImage("image", testhelpers.PNGDataURI, 0)
	require.NoError(t, err)
	return img
}

func TestS3ImageStore(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "foodgram", "https://cdn.example.com/")
	ctx := context.Background()

	var key string
	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		key = aws.ToString(in.Key)
		return aws.ToString(in.Bucket) == "foodgram" &&
			strings.HasPrefix(key, "recipes/") && strings.HasSuffix(key, ".png") &&
			aws.ToString(in.ContentType) == "image/png" && in.Body != nil
	})).Return(&s3.PutObjectOutput{}, nil).Once()

	url, err := store.Save(ctx, "recipes", pngImage(t))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+key, url)

	client.On("DeleteObject", ctx, &s3.DeleteObjectInput{Bucket: aws.String("foodgram"), Key: aws.String(key)}).
		Return(&s3.DeleteObjectOutput{}, nil).Once()
	require.NoError(t, store.Delete(ctx, url))

	// foreign URLs are left alone
	require.NoError(t, store.Delete(ctx, "https://elsewhere.example.com/x.png"))
	client.AssertExpectations(t)
}

func TestS3ImageStoreBreakerOpens(t *testing.T) {
	client := new(mockS3)
	store := service.NewS3ImageStore(client, "foodgram", "")
	ctx := context.Background()

	client.On("PutObject", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Times(5)

	for i := 0; i < 5; i++ {
		_, err := store.Save(ctx, "recipes", pngImage(t))
		require.Error(t, err)
	}
	_, err := store.Save(ctx, "recipes", pngImage(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	client.AssertNumberOfCalls(t, "PutObject", 5)
}

func TestLocalImageStore(t *testing.T) {
	dir := t.TempDir()
	store := service.NewLocalImageStore(dir, "http://localhost:8080/media/")
	ctx := context.Background()

	url, err := store.Save(ctx, "avatars", pngImage(t))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/media/avatars/"))

	path := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "http://localhost:8080/media/")))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngImage(t).Data, data)

	require.NoError(t, store.Delete(ctx, url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, store.Delete(ctx, url))
	assert.NoError(t, store.Delete(ctx, "http://localhost:8080/media/../secret"))
}

package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/polyva-3d/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	key, err := normalizeKey(`images\2026\01\a.png`)
	require.NoError(t, err)
	assert.Equal(t, "images/2026/01/a.png", key)

	key, err = normalizeKey("/avatar//b.webp")
	require.NoError(t, err)
	assert.Equal(t, "avatar/b.webp", key)

	for _, bad := range []string{"", "  ", "../etc/passwd", "a/../../b", "/"} {
		_, err := normalizeKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestLocalStoragePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store := NewLocalStorage(root, "")

	url, err := store.Put(context.Background(), "generation/2026/10/x.png", strings.NewReader("png-bytes"), 9, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/generation/2026/10/x.png", url)

	content, err := os.ReadFile(filepath.Join(root, "generation", "2026", "10", "x.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(content))

	require.NoError(t, store.Delete(context.Background(), "generation/2026/10/x.png"))
	require.NoError(t, store.Delete(context.Background(), "generation/2026/10/x.png"), "deleting twice is not an error")
	_, err = os.Stat(filepath.Join(root, "generation", "2026", "10", "x.png"))
	assert.True(t, os.IsNotExist(err))
}

type fakeS3 struct {
	putKeys     []string
	contentType string
	deleted     []string
	putErr      error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	_, _ = io.Copy(io.Discard, in.Body)
	f.putKeys = append(f.putKeys, aws.ToString(in.Key))
	f.contentType = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func stubS3(t *testing.T, fake *fakeS3) *s3.Options {
	t.Helper()
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	applied := &s3.Options{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		return aws.Config{Region: lo.Region}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		for _, fn := range optFns {
			fn(applied)
		}
		applied.Region = cfg.Region
		return fake
	}
	return applied
}

func TestNewS3StorageWithEndpoint(t *testing.T) {
	fake := &fakeS3{}
	applied := stubS3(t, fake)

	store, err := New(context.Background(), config.StorageConfig{
		Driver: "s3",
		S3: config.S3Config{
			Bucket:          "polyva",
			Region:          "eu-west-1",
			Endpoint:        "http://127.0.0.1:9000",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UsePathStyle:    true,
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", applied.Region)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(applied.BaseEndpoint))
	assert.True(t, applied.UsePathStyle)

	url, err := store.Put(context.Background(), "generation/a.png", strings.NewReader("x"), 1, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/polyva/generation/a.png", url)
	assert.Equal(t, []string{"generation/a.png"}, fake.putKeys)
	assert.Equal(t, "image/png", fake.contentType)

	require.NoError(t, store.Delete(context.Background(), "generation/a.png"))
	assert.Equal(t, []string{"generation/a.png"}, fake.deleted)
}

func TestS3StoragePutError(t *testing.T) {
	fake := &fakeS3{putErr: errors.New("access denied")}
	stubS3(t, fake)

	store, err := NewS3Storage(context.Background(), config.S3Config{Bucket: "polyva"}, "https://cdn.polyva.io")
	require.NoError(t, err)
	_, err = store.Put(context.Background(), "a.png", strings.NewReader("x"), 1, "image/png")
	assert.ErrorContains(t, err, "access denied")
}

func TestResolveS3BaseURL(t *testing.T) {
	assert.Equal(t, "https://cdn.polyva.io", resolveS3BaseURL("https://cdn.polyva.io", "", "b", "r"))
	assert.Equal(t, "https://b.s3.us-east-1.amazonaws.com", resolveS3BaseURL("", "", "b", "us-east-1"))
}

func TestNewStorageValidation(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"}, "")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = New(context.Background(), config.StorageConfig{Driver: "s3"}, "")
	assert.ErrorIs(t, err, ErrConfigInvalid)

	local, err := New(context.Background(), config.StorageConfig{}, "data")
	require.NoError(t, err)
	assert.Equal(t, "data", local.(*LocalStorage).Root())
}

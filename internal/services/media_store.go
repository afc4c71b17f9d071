package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ad/go-telegram-quiz/internal/models"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const DefaultMaxImageBytes = 10 << 20

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// MediaStore persists question images and returns their public URLs.
type MediaStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Upload is a file received from a client or read from disk.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// ValidateImage rejects uploads that are not whitelisted images or are too large.
func ValidateImage(u Upload, maxBytes int64) error {
	if _, ok := allowedImageTypes[u.ContentType]; !ok {
		return fmt.Errorf("%w: unsupported image type %q for %s", models.ErrValidation, u.ContentType, u.Filename)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if u.Size > maxBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", models.ErrValidation, u.Filename, maxBytes)
	}
	return nil
}

func imageExt(u Upload) string {
	if ext := strings.ToLower(filepath.Ext(u.Filename)); ext != "" {
		return ext
	}
	if ext, ok := allowedImageTypes[u.ContentType]; ok {
		return ext
	}
	return ".bin"
}

// ImageLabel names the i-th quiz image: A..Z, then extra_<i>.
func ImageLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("extra_%d", i)
}

func quizImageKey(quizID int64, name string) string {
	return path.Join("quizes", fmt.Sprint(quizID), name)
}

func randomImageName(u Upload) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16] + imageExt(u)
}

func saveUpload(ctx context.Context, store MediaStore, key string, u Upload) (string, error) {
	f, err := u.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return store.Save(ctx, key, f, u.Size, u.ContentType)
}

// LocalMediaStore writes files under a root directory served at urlPrefix.
type LocalMediaStore struct {
	root      string
	urlPrefix string
}

func NewLocalMediaStore(root, urlPrefix string) *LocalMediaStore {
	return &LocalMediaStore{root: root, urlPrefix: strings.TrimRight(urlPrefix, "/")}
}

func (s *LocalMediaStore) Root() string {
	return s.root
}

func (s *LocalMediaStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, r); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + key, nil
}

func (s *LocalMediaStore) Delete(_ context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q is not a local media url", models.ErrValidation, url)
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Secure    bool
	URLPrefix string
}

// MinioMediaStore keeps images in an S3 compatible bucket.
type MinioMediaStore struct {
	client    *minio.Client
	bucket    string
	urlPrefix string
}

func NewMinioMediaStore(ctx context.Context, cfg MinioConfig) (*MinioMediaStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, err
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	prefix := cfg.URLPrefix
	if prefix == "" {
		prefix = "/" + cfg.Bucket
	}
	return &MinioMediaStore{client: client, bucket: cfg.Bucket, urlPrefix: strings.TrimRight(prefix, "/")}, nil
}

func (s *MinioMediaStore) Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + key, nil
}

func (s *MinioMediaStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok {
		return fmt.Errorf("%w: %q is not a bucket url", models.ErrValidation, url)
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

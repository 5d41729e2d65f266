package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/revocity/revocity/api/config"
	"go.uber.org/zap"
)

// Image folders
const (
	FolderComplaints = "complaints"
	FolderCleanup    = "cleanup"
)

// ImageStore persists uploaded images and returns their public URL
type ImageStore interface {
	Save(ctx context.Context, folder string, img *Image) (string, error)
	// Delete removes an image by the URL Save returned.
	Delete(ctx context.Context, url string) error
}

// ErrForeignImageURL is returned by Delete for a URL the store did not issue
var ErrForeignImageURL = errors.New("image url does not belong to this store")

// LocalImageStore writes images under UPLOAD_DIR; they are served at /files
type LocalImageStore struct {
	uploadDir string
	baseURL   string
}

func NewLocalImageStore(cfg *config.Config) (*LocalImageStore, error) {
	uploadDir := cfg.UploadDir
	if uploadDir == "" {
		uploadDir = "/data/uploads"
	}

	// Create upload directory if it doesn't exist
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create upload directory: %w", err)
	}

	return &LocalImageStore{
		uploadDir: uploadDir,
		baseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Save writes the image to disk under folder
func (s *LocalImageStore) Save(ctx context.Context, folder string, img *Image) (string, error) {
	name := objectName(img)
	dir := filepath.Join(s.uploadDir, folder, filepath.Dir(name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create image directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.uploadDir, folder, name), img.Data, 0644); err != nil {
		return "", fmt.Errorf("failed to save image: %w", err)
	}

	return s.PublicURL(folder, name), nil
}

// Delete removes a file written by Save
func (s *LocalImageStore) Delete(ctx context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.baseURL+"/files/")
	if !ok {
		return ErrForeignImageURL
	}
	rel = filepath.Clean(filepath.FromSlash(rel))
	if rel == "." || filepath.IsAbs(rel) || strings.HasPrefix(rel, "..") {
		return ErrForeignImageURL
	}

	if err := os.Remove(filepath.Join(s.uploadDir, rel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

// PublicURL returns the public URL for a stored file
func (s *LocalImageStore) PublicURL(folder, name string) string {
	return fmt.Sprintf("%s/files/%s/%s", s.baseURL, folder, name)
}

// Dir returns the upload directory path
func (s *LocalImageStore) Dir() string {
	return s.uploadDir
}

// MinioImageStore writes images to a public-read S3 compatible bucket
type MinioImageStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	secure   bool
}

func NewMinioImageStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*MinioImageStore, error) {
	endpoint := strings.TrimPrefix(cfg.MinioEndpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MinIO server: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("Created image bucket", zap.String("bucket", cfg.MinioBucket))
	}

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [{
			"Effect": "Allow",
			"Principal": {"AWS": ["*"]},
			"Action": ["s3:GetObject"],
			"Resource": ["arn:aws:s3:::%s/*"]
		}]
	}`, cfg.MinioBucket)
	if err := client.SetBucketPolicy(ctx, cfg.MinioBucket, policy); err != nil {
		// Images stay readable through the API host if the policy cannot be set
		logger.Warn("Failed to set public read policy", zap.String("bucket", cfg.MinioBucket), zap.Error(err))
	}

	return &MinioImageStore{
		client:   client,
		bucket:   cfg.MinioBucket,
		endpoint: endpoint,
		secure:   cfg.MinioSecure,
	}, nil
}

// Save uploads the image as folder/<date>/<uuid>.<ext>
func (s *MinioImageStore) Save(ctx context.Context, folder string, img *Image) (string, error) {
	key := folder + "/" + objectName(img)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.MIMEType})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return s.objectURL(key), nil
}

// Delete removes an object uploaded by Save
func (s *MinioImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.objectURL(""))
	if !ok || key == "" {
		return ErrForeignImageURL
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func (s *MinioImageStore) objectURL(key string) string {
	scheme := "http"
	if s.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, s.endpoint, s.bucket, key)
}

func objectName(img *Image) string {
	return fmt.Sprintf("%s/%s.%s", time.Now().UTC().Format("2006-01-02"), uuid.NewString(), img.Extension())
}

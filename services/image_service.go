package services

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yunusmujadidi/purchase-order/config"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/utils"
)

// ImageService stores product pictures attached to orders
type ImageService interface {
	// UploadImage validates and stores a picture, returning its storage key
	UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error)

	// GetImageURL returns a URL the client can load the picture from
	GetImageURL(ctx context.Context, imageKey string) (string, error)

	// DeleteImage removes a picture from storage
	DeleteImage(ctx context.Context, imageKey string) error
}

// InitImageService picks S3 storage when a bucket is configured, otherwise the local upload directory
func InitImageService(ctx context.Context, cfg *config.Config) (ImageService, error) {
	if cfg.UsesS3() {
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Storing order pictures in S3 bucket %s", cfg.AWSS3Bucket)
		return NewS3ImageService(store), nil
	}

	log.Printf("Storing order pictures in %s", cfg.UploadDir)
	return NewLocalImageService(cfg.UploadDir), nil
}

// S3ImageService keeps pictures in an ObjectStore and serves them through presigned URLs
type S3ImageService struct {
	store ObjectStore
	now   func() time.Time
}

// NewS3ImageService creates an image service on top of store
func NewS3ImageService(store ObjectStore) *S3ImageService {
	return &S3ImageService{store: store, now: time.Now}
}

// UploadImage validates a picture and streams it to the store
func (s *S3ImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer file.Close()

	key := utils.NewPictureKey(fileHeader.Filename, s.now())
	if err := s.store.Put(ctx, key, utils.ImageContentType(fileHeader.Filename), file, fileHeader.Size); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// GetImageURL returns a presigned URL for a picture
func (s *S3ImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return s.store.PresignGet(ctx, imageKey)
}

// DeleteImage removes a picture from the store
func (s *S3ImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}
	return s.store.Delete(ctx, imageKey)
}

// LocalImageService keeps pictures in a directory served under /api/v1/uploads
type LocalImageService struct {
	dir string
	now func() time.Time
}

// NewLocalImageService creates a filesystem-backed image service rooted at dir
func NewLocalImageService(dir string) *LocalImageService {
	return &LocalImageService{dir: dir, now: time.Now}
}

// Dir is the directory pictures are written to
func (s *LocalImageService) Dir() string {
	return s.dir
}

// UploadImage validates and saves a picture to the upload directory
func (s *LocalImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	key := utils.NewPictureKey(fileHeader.Filename, s.now())
	if err := utils.SaveUploadedFile(fileHeader, s.dir, localName(key)); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	return key, nil
}

// GetImageURL returns the API path of a stored picture
func (s *LocalImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return utils.GetImageURL(localName(imageKey)), nil
}

// DeleteImage removes a picture file; a missing file is not an error
func (s *LocalImageService) DeleteImage(ctx context.Context, imageKey string) error {
	if imageKey == "" {
		return nil
	}

	err := os.Remove(filepath.Join(s.dir, localName(imageKey)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}

func localName(key string) string {
	return filepath.Base(strings.TrimPrefix(key, utils.PictureKeyPrefix))
}

// ResolvePictureURL fills order.PictureURL when the order owns an uploaded picture.
// References from imported spreadsheets are left as they are.
func ResolvePictureURL(ctx context.Context, images ImageService, order *models.Order) {
	if images == nil || !order.PictureUploaded || order.PictureRef == nil || !utils.IsStoredPicture(*order.PictureRef) {
		return
	}

	url, err := images.GetImageURL(ctx, *order.PictureRef)
	if err != nil {
		log.Printf("Failed to resolve picture for order %s: %v", order.OrderNumber, err)
		return
	}
	order.PictureURL = &url
}

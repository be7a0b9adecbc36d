package services

import (
	"bytes"
	"context"
	"mime/multipart"

	"github.com/yunusmujadidi/purchase-order/utils"
)

// MockImageService is an ImageService over a MemoryStore with predictable keys
// (pictures/mock_<filename>)
type MockImageService struct {
	store *MemoryStore

	// FailUploads, when set, is returned by every UploadImage call
	FailUploads error
}

// NewMockImageService creates a mock backed by an empty in-memory bucket
func NewMockImageService() *MockImageService {
	return &MockImageService{
		store: NewMemoryStore("test-bucket"),
	}
}

// UploadImage validates the picture and keeps it in memory
func (m *MockImageService) UploadImage(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	if m.FailUploads != nil {
		return "", m.FailUploads
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	key := utils.PictureKeyPrefix + "mock_" + fileHeader.Filename
	if err := m.store.Put(ctx, key, utils.ImageContentType(fileHeader.Filename), file, fileHeader.Size); err != nil {
		return "", err
	}
	return key, nil
}

// GetImageURL returns a fake presigned URL; unknown keys are an error
func (m *MockImageService) GetImageURL(ctx context.Context, imageKey string) (string, error) {
	if imageKey == "" {
		return "", nil
	}
	return m.store.PresignGet(ctx, imageKey)
}

// DeleteImage removes a picture
func (m *MockImageService) DeleteImage(ctx context.Context, imageKey string) error {
	return m.store.Delete(ctx, imageKey)
}

// Seed stores content under key as if it had been uploaded
func (m *MockImageService) Seed(key string, content []byte) {
	m.store.Put(context.Background(), key, utils.ImageContentType(key), bytes.NewReader(content), int64(len(content)))
}

// ImageExists reports whether key is stored
func (m *MockImageService) ImageExists(key string) bool {
	_, _, ok := m.store.Object(key)
	return ok
}

// Count returns the number of stored pictures
func (m *MockImageService) Count() int {
	return m.store.Len()
}

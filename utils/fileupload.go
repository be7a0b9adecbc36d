package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxFileSize is 10MB in bytes, for pictures and spreadsheets alike
	MaxFileSize = 10 * 1024 * 1024
	// PictureKeyPrefix marks a picture reference that names a stored upload
	PictureKeyPrefix = "pictures/"
)

// imageContentTypes maps accepted picture extensions to their MIME type
var imageContentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// spreadsheetExtensions are the accepted import file types
var spreadsheetExtensions = map[string]bool{
	".csv":  true,
	".xlsx": true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// ValidateImageFile checks a product picture's size and format (.png, .jpg, .jpeg)
func ValidateImageFile(fileHeader *multipart.FileHeader) error {
	if err := validateSize(fileHeader); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := imageContentTypes[ext]; !ok {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only .png, .jpg and .jpeg files are allowed",
		}
	}

	return nil
}

// ValidateSpreadsheetFile checks an import upload's size and format (.csv, .xlsx)
func ValidateSpreadsheetFile(fileHeader *multipart.FileHeader) error {
	if err := validateSize(fileHeader); err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !spreadsheetExtensions[ext] {
		return &FileUploadError{
			Code:    "INVALID_FILE",
			Message: "Only .csv and .xlsx files can be imported",
		}
	}

	return nil
}

func validateSize(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > MaxFileSize {
		return &FileUploadError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("File size exceeds maximum allowed size of %d MB", MaxFileSize/(1024*1024)),
		}
	}
	return nil
}

// ImageContentType returns the MIME type for a picture file name
func ImageContentType(filename string) string {
	if ct, ok := imageContentTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// NewPictureKey builds a storage key for an uploaded picture: pictures/<unix>_<name>
func NewPictureKey(filename string, now time.Time) string {
	name := strings.ReplaceAll(filepath.Base(filename), " ", "_")
	return fmt.Sprintf("%s%d_%s", PictureKeyPrefix, now.Unix(), name)
}

// IsStoredPicture reports whether a picture reference names an uploaded file
// rather than free text carried over from a spreadsheet
func IsStoredPicture(ref string) bool {
	return strings.HasPrefix(ref, PictureKeyPrefix) && len(ref) > len(PictureKeyPrefix)
}

// SaveUploadedFile saves the uploaded file as uploadDir/filename
func SaveUploadedFile(fileHeader *multipart.FileHeader, uploadDir, filename string) (err error) {
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	fullPath := filepath.Join(uploadDir, filepath.Base(filename))

	src, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if closeErr := dst.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", closeErr)
		}
	}()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	return nil
}

// GetImageURL returns the URL path for accessing a locally stored picture
func GetImageURL(filename string) string {
	if filename == "" {
		return ""
	}
	return fmt.Sprintf("/api/v1/uploads/%s", filename)
}

package controllers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/utils"
)

// GetUploadedImage returns the handler for GET /api/v1/uploads/:filename, serving
// order pictures kept by the local image service in dir
func GetUploadedImage(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename := c.Param("filename")

		if filename == "" {
			respondError(c, http.StatusBadRequest, "INVALID_REQUEST", "Filename is required", nil)
			return
		}

		// Security: Prevent directory traversal attacks
		if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
			respondError(c, http.StatusBadRequest, "INVALID_FILENAME", "Invalid filename", nil)
			return
		}

		contentType := utils.ImageContentType(filename)
		if !strings.HasPrefix(contentType, "image/") {
			respondError(c, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only PNG and JPG files are supported", nil)
			return
		}

		filePath := filepath.Join(dir, filename)
		if info, err := os.Stat(filePath); err != nil || info.IsDir() {
			respondError(c, http.StatusNotFound, "FILE_NOT_FOUND", "Image not found", nil)
			return
		}

		c.Header("Content-Type", contentType)
		c.Header("Cache-Control", "public, max-age=86400") // Cache for 24 hours
		c.File(filePath)
	}
}

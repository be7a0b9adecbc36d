package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/middleware"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/utils"
)

// respondError writes the error envelope. details is omitted when nil.
func respondError(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

// currentUser returns the user loaded by middleware.LoadCurrentUser, answering 401 when absent
func currentUser(c *gin.Context) (*models.User, bool) {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return nil, false
	}
	return user, true
}

// pathID parses the :id path parameter, answering 400 when it is not a UUID
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID format", nil)
		return uuid.Nil, false
	}
	return id, true
}

// respondOrderError maps order store errors to the envelope
func respondOrderError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		respondError(c, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found", nil)
	case repository.IsDuplicateError(err):
		respondError(c, http.StatusConflict, "ORDER_NUMBER_CONFLICT", "Order number already exists", nil)
	default:
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", message, nil)
	}
}

// respondFileError maps upload and spreadsheet errors to the envelope, reporting false for other errors
func respondFileError(c *gin.Context, err error) bool {
	var uploadErr *utils.FileUploadError
	if errors.As(err, &uploadErr) {
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
		return true
	}

	var fileErr *ingest.FileError
	if errors.As(err, &fileErr) {
		var details interface{}
		if fileErr.Err != nil {
			details = fileErr.Err.Error()
		}
		respondError(c, http.StatusBadRequest, "INVALID_FILE", fileErr.Message, gin.H{"reason": fileErr.Code, "cause": details})
		return true
	}
	return false
}

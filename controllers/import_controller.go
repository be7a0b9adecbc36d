package controllers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
	"github.com/yunusmujadidi/purchase-order/utils"
)

const (
	csvContentType  = "text/csv; charset=utf-8"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ImportController serves spreadsheet import and export
type ImportController struct {
	repo     repository.OrderRepository
	importer *services.ImportService
	now      func() time.Time
}

// NewImportController creates the import/export handlers
func NewImportController(repo repository.OrderRepository, importer *services.ImportService) *ImportController {
	return &ImportController{repo: repo, importer: importer, now: time.Now}
}

// PreviewImport handles POST /api/v1/orders/import/preview - parses without storing
func (ctl *ImportController) PreviewImport(c *gin.Context) {
	fileHeader, ok := spreadsheetUpload(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file", nil)
		return
	}
	defer file.Close()

	preview, err := ctl.importer.Preview(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		if !respondFileError(c, err) {
			respondError(c, http.StatusInternalServerError, "IMPORT_ERROR", "Failed to parse file", nil)
		}
		return
	}

	respondData(c, http.StatusOK, preview)
}

// ImportOrders handles POST /api/v1/orders/import - multipart "file" (.csv or .xlsx)
func (ctl *ImportController) ImportOrders(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	fileHeader, ok := spreadsheetUpload(c)
	if !ok {
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file", nil)
		return
	}
	defer file.Close()

	result, err := ctl.importer.Import(c.Request.Context(), user, fileHeader.Filename, file)
	if err != nil {
		if !respondFileError(c, err) {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to import orders", nil)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
		"message": result.Message,
	})
}

// ExportOrders handles GET /api/v1/orders/export?format=xlsx|csv. The file uses
// the import layout so it can be imported again. List filters apply.
func (ctl *ImportController) ExportOrders(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "xlsx"))
	if format != "xlsx" && format != "csv" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "format must be xlsx or csv", nil)
		return
	}

	filter, ok := orderFilterFromQuery(c)
	if !ok {
		return
	}

	orders, err := ctl.repo.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders", nil)
		return
	}

	layout := ctl.importer.Layout()
	loc := ctl.importer.Location()
	var buf bytes.Buffer
	contentType := xlsxContentType
	if format == "csv" {
		contentType = csvContentType
		err = ingest.WriteCSV(&buf, orders, layout, loc)
	} else {
		err = ingest.WriteXLSX(&buf, orders, layout, loc)
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "EXPORT_ERROR", "Failed to write export file", nil)
		return
	}

	filename := fmt.Sprintf("orders_%s.%s", ctl.now().In(loc).Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

// spreadsheetUpload returns the "file" form field, answering 400 when it is missing or not a spreadsheet
func spreadsheetUpload(c *gin.Context) (*multipart.FileHeader, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "A .csv or .xlsx file is required in the \"file\" field", nil)
		return nil, false
	}
	if err := utils.ValidateSpreadsheetFile(fileHeader); err != nil {
		respondFileError(c, err)
		return nil, false
	}
	return fileHeader, true
}

package controllers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
)

const legacySheet = `SW,Client,Qty,Size,Description,PO/ APPROVAL GB,IN,OUT,IN,OUT,IN,OUT,IN,OUT,IN,OUT,Delivery Date,Delivery Address
SW-1,Yophie 2,2,Dining Table,Teak with glass top,01/09/25,02/09/25,,,,,,,,,,30/09/25,Jakarta
SW-2,,1,Orphan,,,,,,,,,,,,,,
SW-3,Acme,1,Side Table,Veneer oak,,,,,,,,,,,,15/10/25,Bali
SW-4,Studio Kayu 7,1,Bench,Metal frame,01/08/25,01/08/25,03/08/25,,,04/08/25,06/08/25,07/08/25,09/08/25,10/08/25,12/08/25,15/08/25,Bandung
`

func setupImportRouter(t *testing.T) (*gin.Engine, *repository.GormOrderRepository) {
	t.Helper()
	db := setupTestDB(t)
	repo := repository.NewOrderRepository(db)
	user := createTestUser(t, db, "sari", models.RoleAdmin)

	ctl := NewImportController(repo, services.NewImportService(repo, ingest.DefaultLayout(), time.UTC, nil, nil))
	ctl.now = func() time.Time { return time.Date(2025, time.September, 18, 0, 0, 0, 0, time.UTC) }

	router := setupTestRouter()
	group := router.Group("/api/v1", mockCurrentUser(user))
	group.POST("/orders/import/preview", ctl.PreviewImport)
	group.POST("/orders/import", ctl.ImportOrders)
	group.GET("/orders/export", ctl.ExportOrders)
	return router, repo
}

func uploadSpreadsheet(t *testing.T, router http.Handler, path, field, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportOrders(t *testing.T) {
	router, repo := setupImportRouter(t)

	w := uploadSpreadsheet(t, router, "/api/v1/orders/import", "file", "orders.csv", []byte(legacySheet))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	response := decodeResponse(t, w)
	assert.True(t, response["success"].(bool))
	assert.Equal(t, "Imported 3 of 4 orders", response["message"])

	data := response["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["total"])
	assert.Equal(t, float64(3), data["imported"])
	assert.Equal(t, float64(0), data["duplicates"])
	assert.Equal(t, []interface{}{float64(3)}, data["skipped_rows"])

	orders, err := repo.List(t.Context(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}

// sheets typed by hand carry inch marks and out-of-range years; both import as plain data
func TestImportOrders_HandTypedCells(t *testing.T) {
	router, repo := setupImportRouter(t)
	sheet := "Client,Qty ,Size,Description,Delivery Date\n" +
		"Yophie 2,1,Table 60\" x 30\",Solid teak,01/01/99999\n"

	w := uploadSpreadsheet(t, router, "/api/v1/orders/import", "file", "orders.csv", []byte(sheet))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Imported 1 of 1 orders", decodeResponse(t, w)["message"])

	orders, err := repo.List(t.Context(), repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "Table 60\" x 30\"", *orders[0].Size)
	assert.Nil(t, orders[0].DeliveryDate)

	_, err = json.Marshal(orders[0])
	assert.NoError(t, err)
}

func TestImportOrders_FileErrors(t *testing.T) {
	router, _ := setupImportRouter(t)

	tests := []struct {
		name           string
		field          string
		filename       string
		content        string
		expectedStatus int
		expectedError  string
		expectedReason string
	}{
		{name: "Missing file field", field: "upload", filename: "orders.csv", content: legacySheet, expectedStatus: http.StatusBadRequest, expectedError: "MISSING_FILE"},
		{name: "Unsupported extension", field: "file", filename: "orders.pdf", content: legacySheet, expectedStatus: http.StatusBadRequest, expectedError: "INVALID_FILE"},
		{name: "No client column", field: "file", filename: "orders.csv", content: "SW,Qty\nSW-1,2\n", expectedStatus: http.StatusBadRequest, expectedError: "INVALID_FILE", expectedReason: ingest.ErrCodeMissingColumn},
		{name: "Broken workbook", field: "file", filename: "orders.xlsx", content: "not a zip", expectedStatus: http.StatusBadRequest, expectedError: "INVALID_FILE", expectedReason: ingest.ErrCodeMalformedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := uploadSpreadsheet(t, router, "/api/v1/orders/import", tt.field, tt.filename, []byte(tt.content))
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			response := decodeResponse(t, w)
			assert.Equal(t, tt.expectedError, errorCode(response))
			if tt.expectedReason != "" {
				details := response["error"].(map[string]interface{})["details"].(map[string]interface{})
				assert.Equal(t, tt.expectedReason, details["reason"])
			}
		})
	}
}

func TestPreviewImport(t *testing.T) {
	router, repo := setupImportRouter(t)

	w := uploadSpreadsheet(t, router, "/api/v1/orders/import/preview", "file", "orders.csv", []byte(legacySheet))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeResponse(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["total"])
	assert.Equal(t, float64(3), data["importable"])
	drafts := data["drafts"].([]interface{})
	require.Len(t, drafts, 3)
	first := drafts[0].(map[string]interface{})
	assert.Equal(t, float64(2), first["line"])
	assert.Equal(t, "Yophie", first["order"].(map[string]interface{})["client_name"])

	orders, err := repo.List(t.Context(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestExportOrders(t *testing.T) {
	router, _ := setupImportRouter(t)
	w := uploadSpreadsheet(t, router, "/api/v1/orders/import", "file", "orders.csv", []byte(legacySheet))
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("CSV re-imports", func(t *testing.T) {
		w := performJSON(router, http.MethodGet, "/api/v1/orders/export?format=csv", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, csvContentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "orders_20250918.csv")

		records, err := csv.NewReader(bytes.NewReader(w.Body.Bytes())).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)
		assert.Equal(t, ingest.ExportHeader(ingest.DefaultLayout()), records[0])

		preview := uploadSpreadsheet(t, router, "/api/v1/orders/import/preview", "file", "export.csv", w.Body.Bytes())
		require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())
		data := decodeResponse(t, preview)["data"].(map[string]interface{})
		assert.Equal(t, float64(3), data["importable"])
		assert.Empty(t, data["skipped_rows"])
	})

	t.Run("XLSX by default", func(t *testing.T) {
		w := performJSON(router, http.MethodGet, "/api/v1/orders/export", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))

		book, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer book.Close()
		rows, err := book.GetRows(ingest.ExportSheetName)
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})

	t.Run("Filters apply", func(t *testing.T) {
		w := performJSON(router, http.MethodGet, "/api/v1/orders/export?format=csv&search=acme", nil)
		require.Equal(t, http.StatusOK, w.Code)
		records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("Unknown format", func(t *testing.T) {
		w := performJSON(router, http.MethodGet, "/api/v1/orders/export?format=pdf", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(decodeResponse(t, w)))
	})
}

package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/models"
	"github.com/yunusmujadidi/purchase-order/repository"
	"github.com/yunusmujadidi/purchase-order/services"
	"gorm.io/datatypes"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// stageDateColumns are the stage timestamp columns a client may set
var stageDateColumns = map[string]bool{
	"metal_in": true, "metal_out": true,
	"veneer_in": true, "veneer_out": true,
	"assy_in": true, "assy_out": true,
	"finishing_in": true, "finishing_out": true,
	"packing_in": true, "packing_out": true,
}

// CreateOrderRequest represents the request body for creating an order.
// Dates accept DD/MM/YYYY or ISO 8601.
type CreateOrderRequest struct {
	ClientName      string          `json:"client_name" binding:"required"`
	ClientProject   *string         `json:"client_project"`
	SWCode          *string         `json:"sw_code"`
	ProductName     string          `json:"product_name" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required,gt=0"`
	Size            *string         `json:"size"`
	Description     *string         `json:"description"`
	Materials       []string        `json:"materials"`
	POApprovalDate  *string         `json:"po_approval_date"`
	DeliveryDate    *string         `json:"delivery_date"`
	DeliveryAddress *string         `json:"delivery_address"`
	Priority        models.Priority `json:"priority" binding:"omitempty,oneof=URGENT STANDARD LOW"`
	Notes           *string         `json:"notes"`
}

// UpdateOrderRequest is a partial update; absent fields are left alone and an
// empty date string clears the date. Stage and status have their own endpoints.
type UpdateOrderRequest struct {
	ClientName      *string            `json:"client_name" binding:"omitempty,min=1"`
	ClientProject   *string            `json:"client_project"`
	SWCode          *string            `json:"sw_code"`
	ProductName     *string            `json:"product_name" binding:"omitempty,min=1"`
	Quantity        *int               `json:"quantity" binding:"omitempty,gt=0"`
	Size            *string            `json:"size"`
	Description     *string            `json:"description"`
	Materials       *[]string          `json:"materials"`
	POApprovalDate  *string            `json:"po_approval_date"`
	DeliveryDate    *string            `json:"delivery_date"`
	DeliveryAddress *string            `json:"delivery_address"`
	Priority        *models.Priority   `json:"priority" binding:"omitempty,oneof=URGENT STANDARD LOW"`
	Notes           *string            `json:"notes"`
	StageDates      map[string]*string `json:"stage_dates"`
}

// UpdateStageRequest is the body of PATCH /orders/:id/stage
type UpdateStageRequest struct {
	Stage models.Stage `json:"stage" binding:"required"`
}

// UpdateStatusRequest is the body of PATCH /orders/:id/status
type UpdateStatusRequest struct {
	Status models.Status `json:"status" binding:"required"`
}

// CommentRequest is the body of POST /orders/:id/comments
type CommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// OrderController serves the order endpoints
type OrderController struct {
	repo    repository.OrderRepository
	service *services.OrderService
	images  services.ImageService
	loc     *time.Location
}

// NewOrderController creates the order handlers. images may be nil when picture storage is off.
func NewOrderController(repo repository.OrderRepository, service *services.OrderService, images services.ImageService, loc *time.Location) *OrderController {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderController{repo: repo, service: service, images: images, loc: loc}
}

// ListOrders handles GET /api/v1/orders - filters by stage, status, priority,
// material and search text. page/limit switch on pagination.
func (ctl *OrderController) ListOrders(c *gin.Context) {
	filter, ok := orderFilterFromQuery(c)
	if !ok {
		return
	}

	paged := c.Query("page") != "" || c.Query("limit") != ""
	page, limit := 1, defaultPageSize
	if paged {
		var err error
		if page, err = positiveQuery(c, "page", 1); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if limit, err = positiveQuery(c, "limit", defaultPageSize); err != nil {
			respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
		filter.Offset = (page - 1) * limit
		filter.Limit = limit
	}

	orders, total, err := ctl.repo.ListPage(c.Request.Context(), filter)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders", nil)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	for i := range orders {
		services.ResolvePictureURL(c.Request.Context(), ctl.images, &orders[i])
	}

	response := gin.H{
		"success": true,
		"data":    orders,
	}
	if paged {
		response["pagination"] = gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": int(math.Ceil(float64(total) / float64(limit))),
		}
	}
	c.JSON(http.StatusOK, response)
}

// orderFilterFromQuery reads the stage, status, priority, material and search
// query parameters, answering 400 for unknown enum values
func orderFilterFromQuery(c *gin.Context) (repository.OrderFilter, bool) {
	filter := repository.OrderFilter{
		Stage:    models.Stage(strings.ToUpper(c.Query("stage"))),
		Status:   models.Status(strings.ToUpper(c.Query("status"))),
		Priority: models.Priority(strings.ToUpper(c.Query("priority"))),
		Material: strings.TrimSpace(c.Query("material")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	if filter.Stage != "" && !filter.Stage.Valid() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid stage filter", gin.H{"allowed": models.Stages})
		return filter, false
	}
	if filter.Status != "" && !filter.Status.Valid() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status filter", gin.H{"allowed": models.Statuses})
		return filter, false
	}
	if filter.Priority != "" && !filter.Priority.Valid() {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid priority filter", gin.H{"allowed": []models.Priority{models.PriorityUrgent, models.PriorityStandard, models.PriorityLow}})
		return filter, false
	}
	return filter, true
}

func positiveQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return n, nil
}

// GetOrder handles GET /api/v1/orders/:id
func (ctl *OrderController) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := ctl.repo.Get(c.Request.Context(), id)
	if err != nil {
		respondOrderError(c, err, "Failed to fetch order")
		return
	}
	services.ResolvePictureURL(c.Request.Context(), ctl.images, order)

	respondData(c, http.StatusOK, order)
}

// CreateOrder handles POST /api/v1/orders - numbers the order and starts it PENDING
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.ProductName) == "" {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Client name and product name are required", nil)
		return
	}

	poDate, err := ctl.parseDate("po_approval_date", req.POApprovalDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	deliveryDate, err := ctl.parseDate("delivery_date", req.DeliveryDate)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	materials := req.Materials
	if len(materials) == 0 && req.Description != nil {
		materials = ingest.ExtractMaterials(*req.Description)
	}

	order := models.Order{
		ClientName:      strings.TrimSpace(req.ClientName),
		ClientProject:   trimmed(req.ClientProject),
		SWCode:          trimmed(req.SWCode),
		ProductName:     strings.TrimSpace(req.ProductName),
		Quantity:        req.Quantity,
		Size:            trimmed(req.Size),
		Description:     trimmed(req.Description),
		Materials:       models.NormalizeMaterials(materials),
		POApprovalDate:  poDate,
		DeliveryDate:    deliveryDate,
		DeliveryAddress: trimmed(req.DeliveryAddress),
		Priority:        req.Priority,
		Notes:           trimmed(req.Notes),
	}

	if err := ctl.service.Create(c.Request.Context(), user, &order); err != nil {
		respondOrderError(c, err, "Failed to create order")
		return
	}

	created, err := ctl.repo.Get(c.Request.Context(), order.ID)
	if err != nil {
		respondOrderError(c, err, "Failed to load order details")
		return
	}

	respondData(c, http.StatusCreated, created)
}

// UpdateOrder handles PUT /api/v1/orders/:id - partial update of the descriptive fields and stage dates
func (ctl *OrderController) UpdateOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	fields, err := ctl.updateFields(&req)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	order, err := ctl.service.Update(c.Request.Context(), id, fields)
	if err != nil {
		respondOrderError(c, err, "Failed to update order")
		return
	}
	services.ResolvePictureURL(c.Request.Context(), ctl.images, order)

	respondData(c, http.StatusOK, order)
}

func (ctl *OrderController) updateFields(req *UpdateOrderRequest) (map[string]interface{}, error) {
	fields := make(map[string]interface{})

	if req.ClientName != nil {
		if strings.TrimSpace(*req.ClientName) == "" {
			return nil, errors.New("client_name cannot be blank")
		}
		fields["client_name"] = strings.TrimSpace(*req.ClientName)
	}
	if req.ProductName != nil {
		if strings.TrimSpace(*req.ProductName) == "" {
			return nil, errors.New("product_name cannot be blank")
		}
		fields["product_name"] = strings.TrimSpace(*req.ProductName)
	}
	if req.Quantity != nil {
		fields["quantity"] = *req.Quantity
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}

	optionalText := map[string]*string{
		"client_project":   req.ClientProject,
		"sw_code":          req.SWCode,
		"size":             req.Size,
		"description":      req.Description,
		"delivery_address": req.DeliveryAddress,
		"notes":            req.Notes,
	}
	for column, value := range optionalText {
		if value != nil {
			fields[column] = trimmed(value)
		}
	}

	if req.Materials != nil {
		fields["materials"] = datatypes.JSONSlice[string](models.NormalizeMaterials(*req.Materials))
	}

	dates := map[string]*string{
		"po_approval_date": req.POApprovalDate,
		"delivery_date":    req.DeliveryDate,
	}
	for column, value := range req.StageDates {
		if !stageDateColumns[column] {
			return nil, fmt.Errorf("unknown stage date %q", column)
		}
		dates[column] = value
	}
	for column, value := range dates {
		if value == nil {
			continue
		}
		t, err := ctl.parseDate(column, value)
		if err != nil {
			return nil, err
		}
		fields[column] = t
	}

	return fields, nil
}

// parseDate reads an optional request date. Blank means "no date"; anything unreadable is an error.
func (ctl *OrderController) parseDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t := ingest.ParseDate(*raw, ctl.loc)
	if t == nil {
		return nil, fmt.Errorf("%s is not a valid date", field)
	}
	return t, nil
}

// UpdateStage handles PATCH /api/v1/orders/:id/stage - sets only the current stage
func (ctl *OrderController) UpdateStage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	order, err := ctl.service.ChangeStage(c.Request.Context(), user, id, models.Stage(strings.ToUpper(string(req.Stage))))
	if errors.Is(err, services.ErrInvalidStage) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid stage", gin.H{"allowed": models.Stages})
		return
	}
	if err != nil {
		respondOrderError(c, err, "Failed to update stage")
		return
	}

	respondData(c, http.StatusOK, order)
}

// UpdateStatus handles PATCH /api/v1/orders/:id/status - sets only the status
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	order, err := ctl.service.ChangeStatus(c.Request.Context(), user, id, models.Status(strings.ToUpper(string(req.Status))))
	if errors.Is(err, services.ErrInvalidStatus) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status", gin.H{"allowed": models.Statuses})
		return
	}
	if err != nil {
		respondOrderError(c, err, "Failed to update status")
		return
	}

	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id
func (ctl *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := ctl.service.Delete(c.Request.Context(), id); err != nil {
		respondOrderError(c, err, "Failed to delete order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}

// UploadPicture handles POST /api/v1/orders/:id/picture - multipart "image" field
func (ctl *OrderController) UploadPicture(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if ctl.images == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Picture storage is not configured", nil)
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "An image file is required in the \"image\" field", nil)
		return
	}

	order, err := ctl.service.AttachPicture(c.Request.Context(), id, func(ctx context.Context) (string, error) {
		return ctl.images.UploadImage(ctx, fileHeader)
	})
	if err != nil {
		if respondFileError(c, err) {
			return
		}
		if errors.Is(err, repository.ErrOrderNotFound) {
			respondOrderError(c, err, "")
			return
		}
		respondError(c, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to store picture", nil)
		return
	}
	services.ResolvePictureURL(c.Request.Context(), ctl.images, order)

	respondData(c, http.StatusOK, order)
}

// ListActivity handles GET /api/v1/orders/:id/activity - comments and changes, oldest first
func (ctl *OrderController) ListActivity(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if _, err := ctl.repo.Get(c.Request.Context(), id); err != nil {
		respondOrderError(c, err, "Failed to fetch order")
		return
	}

	activity, err := ctl.repo.ListActivity(c.Request.Context(), id)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch activity", nil)
		return
	}

	respondData(c, http.StatusOK, activity)
}

// AddComment handles POST /api/v1/orders/:id/comments
func (ctl *OrderController) AddComment(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", err.Error())
		return
	}

	activity, err := ctl.service.Comment(c.Request.Context(), user, id, req.Text)
	if errors.Is(err, services.ErrEmptyComment) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Comment text is required", nil)
		return
	}
	if err != nil {
		respondOrderError(c, err, "Failed to add comment")
		return
	}

	respondData(c, http.StatusCreated, activity)
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

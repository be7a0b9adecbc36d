// Package repository is the order store: list, lookup, single and bulk writes,
// narrow stage/status updates and the per-order activity log.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yunusmujadidi/purchase-order/ingest"
	"github.com/yunusmujadidi/purchase-order/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrOrderNotFound is returned when no order has the requested ID
var ErrOrderNotFound = errors.New("order not found")

// bulkBatchSize bounds the rows per INSERT statement during imports
const bulkBatchSize = 100

// OrderFilter narrows List and ListPage. Zero values mean "no filter".
type OrderFilter struct {
	Stage    models.Stage
	Status   models.Status
	Priority models.Priority
	Material string // case-insensitive tag match
	Search   string // order number, client or product substring
	Offset   int
	Limit    int // 0 returns every matching order
}

// OrderRepository is the order store used by handlers and services
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	ListPage(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Order, error)
	UpdateStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkCreate(ctx context.Context, orders []models.Order) (int64, error)
	MaxSequence(ctx context.Context, year int) (int, error)
	AddActivity(ctx context.Context, activity *models.OrderActivity) error
	ListActivity(ctx context.Context, orderID uuid.UUID) ([]models.OrderActivity, error)
}

// GormOrderRepository implements OrderRepository on GORM (PostgreSQL or SQLite)
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a repository backed by db
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// List returns matching orders, newest first, with their creator loaded
func (r *GormOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	orders, _, err := r.ListPage(ctx, filter)
	return orders, err
}

// ListPage is List plus the number of orders matching the filter before paging.
// The material filter runs after loading because materials live in a JSON column.
func (r *GormOrderRepository) ListPage(ctx context.Context, filter OrderFilter) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.Stage != "" {
		query = query.Where("current_stage = ?", filter.Stage)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(client_name) LIKE ? OR LOWER(product_name) LIKE ?", like, like, like)
	}
	base := query.Session(&gorm.Session{})

	if filter.Material == "" {
		var total int64
		if err := base.Count(&total).Error; err != nil {
			return nil, 0, fmt.Errorf("failed to count orders: %w", err)
		}
		paged := newestFirst(base)
		if filter.Offset > 0 {
			paged = paged.Offset(filter.Offset)
		}
		if filter.Limit > 0 {
			paged = paged.Limit(filter.Limit)
		}
		var orders []models.Order
		if err := paged.Find(&orders).Error; err != nil {
			return nil, 0, fmt.Errorf("failed to list orders: %w", err)
		}
		return orders, total, nil
	}

	var all []models.Order
	if err := newestFirst(base).Find(&all).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	matched := make([]models.Order, 0, len(all))
	for i := range all {
		if all[i].HasMaterial(filter.Material) {
			matched = append(matched, all[i])
		}
	}
	return page(matched, filter.Offset, filter.Limit), int64(len(matched)), nil
}

func newestFirst(query *gorm.DB) *gorm.DB {
	return query.Preload("CreatedBy").Order("created_at DESC").Order("order_number DESC")
}

func page(orders []models.Order, offset, limit int) []models.Order {
	if offset >= len(orders) {
		return []models.Order{}
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders
}

// Get returns one order with its creator
func (r *GormOrderRepository) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("CreatedBy").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// Create inserts one order. A duplicate order number surfaces as gorm.ErrDuplicatedKey.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	order.Materials = models.NormalizeMaterials(order.Materials)
	if err := r.db.WithContext(ctx).Omit("CreatedBy").Create(order).Error; err != nil {
		if IsDuplicateError(err) {
			return fmt.Errorf("order number %s already exists: %w", order.OrderNumber, gorm.ErrDuplicatedKey)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update applies a partial update given as column/value pairs and returns the fresh order
func (r *GormOrderRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Order, error) {
	if len(fields) == 0 {
		return r.Get(ctx, id)
	}

	result := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrOrderNotFound
	}
	return r.Get(ctx, id)
}

// UpdateStage sets only the current stage
func (r *GormOrderRepository) UpdateStage(ctx context.Context, id uuid.UUID, stage models.Stage) (*models.Order, error) {
	return r.Update(ctx, id, map[string]interface{}{"current_stage": stage})
}

// UpdateStatus sets only the status
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status) (*models.Order, error) {
	return r.Update(ctx, id, map[string]interface{}{"status": status})
}

// Delete removes an order and its activity log
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderActivity{}).Error; err != nil {
			return fmt.Errorf("failed to delete order activity: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Order{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrOrderNotFound
		}
		return nil
	})
}

// BulkCreate inserts a batch in one call, silently skipping rows whose order
// number already exists, and reports how many rows were actually inserted.
func (r *GormOrderRepository) BulkCreate(ctx context.Context, orders []models.Order) (int64, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	for i := range orders {
		orders[i].Materials = models.NormalizeMaterials(orders[i].Materials)
	}

	result := r.db.WithContext(ctx).Omit("CreatedBy").
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "order_number"}}, DoNothing: true}).
		CreateInBatches(&orders, bulkBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to import orders: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// MaxSequence returns the highest ORD-<year>-NNNN sequence in the store, 0 when none
func (r *GormOrderRepository) MaxSequence(ctx context.Context, year int) (int, error) {
	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("order_number LIKE ?", ingest.OrderNumberPrefix(year)+"%").
		Pluck("order_number", &numbers).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read order numbers: %w", err)
	}

	max := 0
	for _, n := range numbers {
		if seq, ok := ingest.ParseOrderSequence(n, year); ok && seq > max {
			max = seq
		}
	}
	return max, nil
}

// AddActivity appends an entry to an order's history
func (r *GormOrderRepository) AddActivity(ctx context.Context, activity *models.OrderActivity) error {
	if err := r.db.WithContext(ctx).Omit("Order", "Actor").Create(activity).Error; err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// ListActivity returns an order's history, oldest first, with actors loaded
func (r *GormOrderRepository) ListActivity(ctx context.Context, orderID uuid.UUID) ([]models.OrderActivity, error) {
	var activity []models.OrderActivity
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Preload("Actor").
		Order("created_at ASC").Order("id ASC").
		Find(&activity).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activity: %w", err)
	}
	return activity, nil
}

// IsDuplicateError reports whether err is a unique-constraint violation on PostgreSQL or SQLite
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

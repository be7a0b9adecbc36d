package models

import (
	"time"

	"github.com/google/uuid"
)

// Activity kinds
const (
	ActivityCreated       = "CREATED"
	ActivityImported      = "IMPORTED"
	ActivityComment       = "COMMENT"
	ActivityStageChanged  = "STAGE_CHANGED"
	ActivityStatusChanged = "STATUS_CHANGED"
)

// OrderActivity is one entry in an order's history: a comment or a stage/status change
type OrderActivity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"` // foreign key to orders table
	Order     Order     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"-"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;index" json:"actor_id"` // foreign key to users table
	Actor     User      `gorm:"foreignKey:ActorID" json:"actor"`
	Kind      string    `gorm:"not null" json:"kind"`
	Text      string    `gorm:"type:text" json:"text"`
	FromValue *string   `json:"from_value,omitempty"`
	ToValue   *string   `json:"to_value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for the OrderActivity model
func (OrderActivity) TableName() string {
	return "order_activities"
}

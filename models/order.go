package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Order represents a furniture production order in the system
type Order struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNumber     string                      `gorm:"uniqueIndex;not null" json:"order_number"` // ORD-<year>-<NNNN>
	SWCode          *string                     `json:"sw_code"`                                  // legacy spreadsheet SW column
	ClientName      string                      `gorm:"not null;index" json:"client_name"`
	ClientProject   *string                     `json:"client_project"`
	ProductName     string                      `gorm:"not null" json:"product_name"`
	Quantity        int                         `gorm:"not null;default:1;check:quantity > 0" json:"quantity"`
	Size            *string                     `json:"size"`
	Description     *string                     `gorm:"type:text" json:"description"`
	PictureRef      *string                     `json:"picture_ref"`
	PictureURL      *string                     `gorm:"-" json:"picture_url,omitempty"` // computed field, resolved from PictureRef
	PictureUploaded bool                        `gorm:"not null;default:false" json:"picture_uploaded"` // PictureRef is an upload this order owns
	Materials       datatypes.JSONSlice[string] `json:"materials"`
	POApprovalDate  *time.Time                  `json:"po_approval_date"`
	DeliveryDate    *time.Time                  `gorm:"index" json:"delivery_date"`
	DeliveryAddress *string                     `json:"delivery_address"`

	MetalIn      *time.Time `json:"metal_in"`
	MetalOut     *time.Time `json:"metal_out"`
	VeneerIn     *time.Time `json:"veneer_in"`
	VeneerOut    *time.Time `json:"veneer_out"`
	AssyIn       *time.Time `json:"assy_in"`
	AssyOut      *time.Time `json:"assy_out"`
	FinishingIn  *time.Time `json:"finishing_in"`
	FinishingOut *time.Time `json:"finishing_out"`
	PackingIn    *time.Time `json:"packing_in"`
	PackingOut   *time.Time `json:"packing_out"`

	CurrentStage Stage    `gorm:"not null;default:'PENDING';index" json:"current_stage"`
	Status       Status   `gorm:"not null;default:'PENDING';index" json:"status"`
	Priority     Priority `gorm:"not null;default:'STANDARD'" json:"priority"`
	Notes        *string  `gorm:"type:text" json:"notes"`

	CreatedByID uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by_id"` // never reassigned
	CreatedBy   *User     `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the identifier and fills defaults the store would otherwise leave empty
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.CurrentStage == "" {
		o.CurrentStage = StagePending
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	if o.Priority == "" {
		o.Priority = PriorityStandard
	}
	if o.Materials == nil {
		o.Materials = datatypes.JSONSlice[string]{}
	}
	return nil
}

// StageTimes returns the In/Out timestamps recorded for a production stage.
// Stages without timestamps (PENDING, COMPLETED) return nil, nil.
func (o *Order) StageTimes(stage Stage) (in, out *time.Time) {
	switch stage {
	case StageMetal:
		return o.MetalIn, o.MetalOut
	case StageVeneer:
		return o.VeneerIn, o.VeneerOut
	case StageAssy:
		return o.AssyIn, o.AssyOut
	case StageFinishing:
		return o.FinishingIn, o.FinishingOut
	case StagePacking:
		return o.PackingIn, o.PackingOut
	}
	return nil, nil
}

// SetStageTimes records the In/Out timestamps for a production stage
func (o *Order) SetStageTimes(stage Stage, in, out *time.Time) {
	switch stage {
	case StageMetal:
		o.MetalIn, o.MetalOut = in, out
	case StageVeneer:
		o.VeneerIn, o.VeneerOut = in, out
	case StageAssy:
		o.AssyIn, o.AssyOut = in, out
	case StageFinishing:
		o.FinishingIn, o.FinishingOut = in, out
	case StagePacking:
		o.PackingIn, o.PackingOut = in, out
	}
}

// HasMaterial reports whether the order carries the given material tag (case-insensitive)
func (o *Order) HasMaterial(material string) bool {
	for _, m := range o.Materials {
		if strings.EqualFold(m, material) {
			return true
		}
	}
	return false
}

// NormalizeMaterials trims tags, drops empties and repeats, and keeps first-seen order
func NormalizeMaterials(materials []string) []string {
	result := make([]string, 0, len(materials))
	seen := make(map[string]bool, len(materials))
	for _, m := range materials {
		m = strings.TrimSpace(m)
		key := strings.ToLower(m)
		if m == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, m)
	}
	return result
}

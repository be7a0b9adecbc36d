package config

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/yunusmujadidi/purchase-order/models"
	"gorm.io/gorm"
)

// Migrate brings the schema up to date
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "20251001_create_users",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.User{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("users")
			},
		},
		{
			ID: "20251001_create_orders",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Order{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("orders")
			},
		},
		{
			ID: "20251015_create_order_activities",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.OrderActivity{})
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("order_activities")
			},
		},
		{
			ID: "20251020_add_orders_picture_uploaded",
			Migrate: func(tx *gorm.DB) error {
				if tx.Migrator().HasColumn(&models.Order{}, "PictureUploaded") {
					return nil
				}
				return tx.Migrator().AddColumn(&models.Order{}, "PictureUploaded")
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropColumn(&models.Order{}, "PictureUploaded")
			},
		},
	})
	return m.Migrate()
}

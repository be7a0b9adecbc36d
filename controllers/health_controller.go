package controllers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/services"
	"gorm.io/gorm"
)

// HealthCheck handles GET /api/v1/health
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Purchase Order API is running",
	})
}

// DatabaseStatus returns the handler for GET /api/v1/database/status: connectivity and table list
func DatabaseStatus(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the underlying SQL database to check connection
		sqlDB, err := db.DB()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to get database instance", nil)
			return
		}

		if err := sqlDB.PingContext(c.Request.Context()); err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_CONNECTION_ERROR", "Database connection failed", nil)
			return
		}

		tables, err := db.WithContext(c.Request.Context()).Migrator().GetTables()
		if err != nil {
			respondError(c, http.StatusInternalServerError, "DATABASE_QUERY_ERROR", "Failed to query tables", nil)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Database connected",
			"dialect": db.Dialector.Name(),
			"tables":  tables,
		})
	}
}

// StreamEvents returns the handler for GET /api/v1/orders/events, upgrading to a
// WebSocket that receives order events
func StreamEvents(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := hub.ServeWS(c.Writer, c.Request); err != nil {
			// the upgrader has already written the HTTP error
			log.Printf("WebSocket upgrade failed: %v", err)
		}
	}
}

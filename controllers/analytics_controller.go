package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yunusmujadidi/purchase-order/analytics"
	"github.com/yunusmujadidi/purchase-order/metrics"
	"github.com/yunusmujadidi/purchase-order/repository"
)

// AnalyticsController serves the dashboard and the analytics report
type AnalyticsController struct {
	repo    repository.OrderRepository
	metrics *metrics.Collector
	loc     *time.Location
	now     func() time.Time
}

// NewAnalyticsController creates the analytics handlers. collector may be nil.
func NewAnalyticsController(repo repository.OrderRepository, collector *metrics.Collector, loc *time.Location) *AnalyticsController {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsController{repo: repo, metrics: collector, loc: loc, now: time.Now}
}

// GetDashboard handles GET /api/v1/dashboard
func (ctl *AnalyticsController) GetDashboard(c *gin.Context) {
	orders, err := ctl.repo.List(c.Request.Context(), repository.OrderFilter{})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders", nil)
		return
	}

	dashboard := analytics.BuildDashboard(orders, ctl.now().In(ctl.loc))
	if ctl.metrics != nil {
		ctl.metrics.SetStageDistribution(dashboard.Stages)
	}

	respondData(c, http.StatusOK, dashboard)
}

// GetAnalytics handles GET /api/v1/analytics
func (ctl *AnalyticsController) GetAnalytics(c *gin.Context) {
	orders, err := ctl.repo.List(c.Request.Context(), repository.OrderFilter{})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch orders", nil)
		return
	}

	respondData(c, http.StatusOK, analytics.BuildReport(orders, ctl.now().In(ctl.loc)))
}

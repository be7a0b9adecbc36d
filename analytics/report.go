package analytics

import (
	"time"

	"github.com/yunusmujadidi/purchase-order/models"
)

// Dashboard is the payload of the main dashboard screen
type Dashboard struct {
	Summary      StatusSummary  `json:"summary"`
	Stages       []StageCount   `json:"stages"`
	Upcoming     []Delivery     `json:"upcoming_deliveries"`
	OverdueCount int            `json:"overdue_count"`
	Recent       []models.Order `json:"recent_orders"`
	GeneratedAt  time.Time      `json:"generated_at"`
}

// BuildDashboard assembles the dashboard from one order snapshot
func BuildDashboard(orders []models.Order, ref time.Time) Dashboard {
	return Dashboard{
		Summary:      Summarize(orders),
		Stages:       StageDistribution(orders),
		Upcoming:     UpcomingDeliveries(orders, ref, DefaultUpcomingLimit),
		OverdueCount: len(Overdue(orders, ref)),
		Recent:       RecentOrders(orders, DefaultRecentLimit),
		GeneratedAt:  ref,
	}
}

// Report is the payload of the analytics screen
type Report struct {
	TotalOrders        int             `json:"total_orders"`
	CompletionRate     int             `json:"completion_rate"`
	AvgCycleTimeDays   int             `json:"avg_cycle_time_days"`
	OnTimeDeliveryRate int             `json:"on_time_delivery_rate"`
	Timeline           []MonthBucket   `json:"timeline"`
	Materials          []MaterialCount `json:"materials"`
	StagePerformance   []StageMetric   `json:"stage_performance"`
	TopClients         []ClientCount   `json:"top_clients"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// BuildReport assembles the analytics report from one order snapshot
func BuildReport(orders []models.Order, ref time.Time) Report {
	summary := Summarize(orders)
	return Report{
		TotalOrders:        summary.Total,
		CompletionRate:     summary.CompletionRate,
		AvgCycleTimeDays:   AverageCycleTime(orders),
		OnTimeDeliveryRate: OnTimeDeliveryRate(orders),
		Timeline:           MonthlyTimeline(orders, ref),
		Materials:          MaterialsBreakdown(orders),
		StagePerformance:   StagePerformance(orders),
		TopClients:         TopClients(orders, DefaultTopClients),
		GeneratedAt:        ref,
	}
}

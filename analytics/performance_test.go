package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yunusmujadidi/purchase-order/models"
)

func TestStagePerformance(t *testing.T) {
	orders := []models.Order{
		{MetalIn: day(2025, 9, 1), MetalOut: day(2025, 9, 4)}, // 3 days
		{MetalIn: day(2025, 9, 1), MetalOut: day(2025, 9, 5)}, // 4 days
		{MetalIn: day(2025, 9, 1)},                            // incomplete
		{PackingIn: day(2025, 9, 10)},
	}
	// a partial day rounds up to one day
	partial := time.Date(2025, 9, 10, 5, 0, 0, 0, time.UTC)
	orders[3].PackingOut = &partial

	got := StagePerformance(orders)

	require.Len(t, got, 5)
	assert.Equal(t, StageMetric{Stage: models.StageMetal, AvgDays: 4, Count: 2}, got[0]) // 3.5 rounds up
	assert.Equal(t, StageMetric{Stage: models.StageVeneer}, got[1])
	assert.Equal(t, StageMetric{Stage: models.StagePacking, AvgDays: 1, Count: 1}, got[4])
}

func TestAverageCycleTime(t *testing.T) {
	orders := []models.Order{
		{Status: models.StatusCompleted, POApprovalDate: day(2025, 8, 1), PackingOut: day(2025, 8, 21)}, // 20
		{Status: models.StatusCompleted, POApprovalDate: day(2025, 8, 1), PackingOut: day(2025, 8, 11)}, // 10
		{Status: models.StatusInProgress, POApprovalDate: day(2025, 1, 1), PackingOut: day(2025, 8, 1)},
		{Status: models.StatusCompleted, PackingOut: day(2025, 8, 1)},
	}

	assert.Equal(t, 15, AverageCycleTime(orders))
}

func TestOnTimeDeliveryRate(t *testing.T) {
	orders := []models.Order{
		{Status: models.StatusCompleted, DeliveryDate: day(2025, 9, 10), PackingOut: day(2025, 9, 10)}, // on time
		{Status: models.StatusCompleted, DeliveryDate: day(2025, 9, 10), PackingOut: day(2025, 9, 8)},  // on time
		{Status: models.StatusCompleted, DeliveryDate: day(2025, 9, 10), PackingOut: day(2025, 9, 12)}, // late
		{Status: models.StatusPending, DeliveryDate: day(2025, 9, 10), PackingOut: day(2025, 9, 1)},
		{Status: models.StatusCompleted, DeliveryDate: day(2025, 9, 10)},
	}

	assert.Equal(t, 67, OnTimeDeliveryRate(orders))
}

func TestOnTimeDeliveryRate_NoQualifyingOrders(t *testing.T) {
	orders := []models.Order{
		{Status: models.StatusCompleted},
		{Status: models.StatusInProgress, DeliveryDate: day(2025, 9, 10), PackingOut: day(2025, 9, 8)},
	}

	assert.Equal(t, 0, OnTimeDeliveryRate(orders))
}

func TestBuildReport(t *testing.T) {
	orders := []models.Order{
		{ClientName: "Acme", Status: models.StatusCompleted, CreatedAt: ref, Materials: []string{"Glass"},
			POApprovalDate: day(2025, 9, 1), DeliveryDate: day(2025, 9, 20), PackingOut: day(2025, 9, 11)},
		{ClientName: "Acme", Status: models.StatusPending, CreatedAt: ref},
	}

	report := BuildReport(orders, ref)

	assert.Equal(t, 2, report.TotalOrders)
	assert.Equal(t, 50, report.CompletionRate)
	assert.Equal(t, 10, report.AvgCycleTimeDays)
	assert.Equal(t, 100, report.OnTimeDeliveryRate)
	assert.Equal(t, 2, report.Timeline[5].Orders)
	assert.Equal(t, []ClientCount{{ClientName: "Acme", Count: 2}}, report.TopClients)
	assert.Equal(t, ref, report.GeneratedAt)
}

func TestBuildDashboard(t *testing.T) {
	orders := []models.Order{
		{OrderNumber: "A", CurrentStage: models.StageAssy, Status: models.StatusInProgress, DeliveryDate: day(2025, 9, 1), CreatedAt: ref},
		{OrderNumber: "B", CurrentStage: models.StagePending, Status: models.StatusPending, DeliveryDate: day(2025, 9, 22), CreatedAt: ref.Add(-time.Hour)},
	}

	dash := BuildDashboard(orders, ref)

	assert.Equal(t, 2, dash.Summary.Total)
	assert.Equal(t, 1, dash.OverdueCount)
	assert.Len(t, dash.Stages, 2)
	require.Len(t, dash.Upcoming, 2)
	assert.True(t, dash.Upcoming[0].Overdue)
	assert.Equal(t, "A", dash.Recent[0].OrderNumber)
}

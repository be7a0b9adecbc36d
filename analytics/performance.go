package analytics

import (
	"github.com/yunusmujadidi/purchase-order/models"
)

// StageMetric is the average dwell time of one production stage
type StageMetric struct {
	Stage   models.Stage `json:"stage"`
	AvgDays int          `json:"avg_days"`
	Count   int          `json:"count"` // orders with both In and Out recorded
}

// StagePerformance averages ceil(Out-In) in days per production stage.
// A stage without complete In/Out pairs reports zero.
func StagePerformance(orders []models.Order) []StageMetric {
	result := make([]StageMetric, 0, len(models.ProductionStages))
	for _, stage := range models.ProductionStages {
		total, n := 0, 0
		for i := range orders {
			in, out := orders[i].StageTimes(stage)
			if in == nil || out == nil {
				continue
			}
			total += ceilDays(*in, *out)
			n++
		}

		metric := StageMetric{Stage: stage, Count: n}
		if n > 0 {
			metric.AvgDays = roundHalfUp(float64(total) / float64(n))
		}
		result = append(result, metric)
	}
	return result
}

// AverageCycleTime is the mean number of days from PO approval to packing out
// over completed orders that have both dates.
func AverageCycleTime(orders []models.Order) int {
	total, n := 0, 0
	for i := range orders {
		o := &orders[i]
		if o.Status != models.StatusCompleted || o.POApprovalDate == nil || o.PackingOut == nil {
			continue
		}
		total += ceilDays(*o.POApprovalDate, *o.PackingOut)
		n++
	}
	if n == 0 {
		return 0
	}
	return roundHalfUp(float64(total) / float64(n))
}

// OnTimeDeliveryRate is the percentage of completed orders, among those with a
// delivery date and a packing out date, that were packed on or before delivery.
func OnTimeDeliveryRate(orders []models.Order) int {
	onTime, n := 0, 0
	for i := range orders {
		o := &orders[i]
		if o.Status != models.StatusCompleted || o.DeliveryDate == nil || o.PackingOut == nil {
			continue
		}
		n++
		if !o.PackingOut.After(*o.DeliveryDate) {
			onTime++
		}
	}
	return roundHalfUp(percent(onTime, n))
}

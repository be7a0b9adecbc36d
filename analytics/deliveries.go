package analytics

import (
	"sort"
	"time"

	"github.com/jinzhu/now"
	"github.com/yunusmujadidi/purchase-order/models"
)

// IsOverdue reports whether the order's delivery date lies before the start of
// ref's day while the order is still open.
func IsOverdue(o *models.Order, ref time.Time) bool {
	if o.DeliveryDate == nil || o.Status.Closed() {
		return false
	}
	return o.DeliveryDate.Before(now.With(ref).BeginningOfDay())
}

// Overdue returns the open orders whose delivery date has passed, in input order
func Overdue(orders []models.Order, ref time.Time) []models.Order {
	result := []models.Order{}
	for i := range orders {
		if IsOverdue(&orders[i], ref) {
			result = append(result, orders[i])
		}
	}
	return result
}

// Delivery is an entry of the upcoming-deliveries feed
type Delivery struct {
	Order   models.Order `json:"order"`
	Overdue bool         `json:"overdue"`
}

// UpcomingDeliveries lists open orders due within the next seven days, overdue
// ones included, earliest first and capped at limit.
func UpcomingDeliveries(orders []models.Order, ref time.Time, limit int) []Delivery {
	limit = limitOrDefault(limit, DefaultUpcomingLimit)
	horizon := ref.Add(UpcomingHorizon)

	result := []Delivery{}
	for i := range orders {
		o := &orders[i]
		if o.DeliveryDate == nil || o.Status.Closed() || o.DeliveryDate.After(horizon) {
			continue
		}
		result = append(result, Delivery{Order: *o, Overdue: IsOverdue(o, ref)})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Order.DeliveryDate.Before(*result[j].Order.DeliveryDate)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// MonthBucket is one month of the order timeline
type MonthBucket struct {
	Month     string `json:"month"` // 2006-01
	Label     string `json:"label"` // Jan
	Orders    int    `json:"orders"`
	Completed int    `json:"completed"`
}

// MonthlyTimeline counts orders created in each of the trailing six calendar
// months (current month last) and how many of those are COMPLETED.
func MonthlyTimeline(orders []models.Order, ref time.Time) []MonthBucket {
	current := now.With(ref).BeginningOfMonth()

	buckets := make([]MonthBucket, TimelineMonths)
	starts := make([]time.Time, TimelineMonths)
	for i := range buckets {
		start := current.AddDate(0, i-(TimelineMonths-1), 0)
		starts[i] = start
		buckets[i] = MonthBucket{Month: start.Format("2006-01"), Label: start.Format("Jan")}
	}

	for i := range orders {
		created := orders[i].CreatedAt
		for b, start := range starts {
			if created.Before(start) || created.After(now.With(start).EndOfMonth()) {
				continue
			}
			buckets[b].Orders++
			if orders[i].Status == models.StatusCompleted {
				buckets[b].Completed++
			}
			break
		}
	}
	return buckets
}

// RecentOrders returns the most recently created orders, newest first
func RecentOrders(orders []models.Order, limit int) []models.Order {
	limit = limitOrDefault(limit, DefaultRecentLimit)

	sorted := make([]models.Order, len(orders))
	copy(sorted, orders)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

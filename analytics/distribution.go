package analytics

import (
	"sort"

	"github.com/yunusmujadidi/purchase-order/models"
)

// OtherMaterial is the bucket for orders without any material tag
const OtherMaterial = "Other"

// StageCount is one bar of the stage distribution
type StageCount struct {
	Stage      models.Stage `json:"stage"`
	Count      int          `json:"count"`
	Percentage float64      `json:"percentage"`
}

// StageDistribution counts orders per stage in pipeline order and drops empty stages.
// Percentages are relative to all orders, unknown stages included.
func StageDistribution(orders []models.Order) []StageCount {
	counts := make(map[models.Stage]int, len(models.Stages))
	for i := range orders {
		counts[orders[i].CurrentStage]++
	}

	result := []StageCount{}
	for _, stage := range models.Stages {
		n := counts[stage]
		if n == 0 {
			continue
		}
		result = append(result, StageCount{
			Stage:      stage,
			Count:      n,
			Percentage: percent(n, len(orders)),
		})
	}
	return result
}

// MaterialCount is one slice of the materials breakdown
type MaterialCount struct {
	Material string `json:"material"`
	Count    int    `json:"count"`
}

// MaterialsBreakdown tallies material tags. An order without tags counts once as Other.
// The result is sorted by count descending; ties keep first-seen order.
func MaterialsBreakdown(orders []models.Order) []MaterialCount {
	result := []MaterialCount{}
	index := make(map[string]int)

	add := func(material string) {
		if i, ok := index[material]; ok {
			result[i].Count++
			return
		}
		index[material] = len(result)
		result = append(result, MaterialCount{Material: material, Count: 1})
	}

	for i := range orders {
		if len(orders[i].Materials) == 0 {
			add(OtherMaterial)
			continue
		}
		for _, m := range orders[i].Materials {
			add(m)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

// ClientCount is an order tally for one client
type ClientCount struct {
	ClientName string `json:"client_name"`
	Count      int    `json:"count"`
}

// TopClients groups orders by exact client name and returns the largest groups
func TopClients(orders []models.Order, limit int) []ClientCount {
	limit = limitOrDefault(limit, DefaultTopClients)

	result := []ClientCount{}
	index := make(map[string]int)
	for i := range orders {
		name := orders[i].ClientName
		if j, ok := index[name]; ok {
			result[j].Count++
			continue
		}
		index[name] = len(result)
		result = append(result, ClientCount{ClientName: name, Count: 1})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}

// StatusSummary holds the headline counters of the dashboard
type StatusSummary struct {
	Total          int `json:"total"`
	Pending        int `json:"pending"`
	InProgress     int `json:"in_progress"`
	Completed      int `json:"completed"`
	Cancelled      int `json:"cancelled"`
	OnHold         int `json:"on_hold"`
	CompletionRate int `json:"completion_rate"` // percent of all orders that are COMPLETED
}

// Summarize counts orders per status
func Summarize(orders []models.Order) StatusSummary {
	s := StatusSummary{Total: len(orders)}
	for i := range orders {
		switch orders[i].Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusCompleted:
			s.Completed++
		case models.StatusCancelled:
			s.Cancelled++
		case models.StatusOnHold:
			s.OnHold++
		}
	}
	s.CompletionRate = roundHalfUp(percent(s.Completed, s.Total))
	return s
}

package alert

import (
	"math"
	"time"
)

// Statistics summarises the current alert list.
type Statistics struct {
	// Total is the number of alerts.
	Total int
	// Unread is the number of unread alerts.
	Unread int
	// Critical is the number of critical alerts that are not dismissed.
	Critical int
	// ByType counts alerts per type.
	ByType map[Type]int
	// AvgResponseTime is the mean minutes between creation and read of acknowledged alerts.
	AvgResponseTime int
}

// ComputeStatistics recomputes statistics from the alert list.
func ComputeStatistics(alerts []Alert) Statistics {
	stats := Statistics{
		Total:  len(alerts),
		ByType: make(map[Type]int, len(Types)),
	}

	var (
		responseTotal time.Duration
		responded     int
	)

	for i := range alerts {
		a := &alerts[i]

		stats.ByType[a.Type]++

		if a.Status == StatusUnread {
			stats.Unread++
		}

		if a.IsCritical() && a.Status != StatusDismissed {
			stats.Critical++
		}

		if a.Type == TypeAcknowledged && a.ReadAt != nil {
			responseTotal += a.ReadAt.Sub(a.CreatedAt)
			responded++
		}
	}

	if responded > 0 {
		avg := responseTotal / time.Duration(responded)
		stats.AvgResponseTime = int(math.Round(avg.Minutes()))
	}

	return stats
}

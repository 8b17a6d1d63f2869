package service

import (
	"fmt"
	"math"
	"time"

	"github.com/TimUdinusYes/backend/internal/model"
)

// GenerateLearningSchedule expands per-node estimates into daily sessions.
//
// Nodes are walked in order. Each node is cut into sessions of at most
// dailyHours, one per calendar day; the day advances after every session,
// partial ones included, so the next node always starts on the following
// day. Weekends and holidays are not skipped. dailyHours <= 0 falls back to
// DefaultDailyHours and nodes with no hours produce no sessions.
func GenerateLearningSchedule(nodes []model.NodeTimeEstimate, start time.Time, dailyHours float64) []model.CalendarEvent {
	if dailyHours <= 0 || math.IsNaN(dailyHours) || math.IsInf(dailyHours, 0) {
		dailyHours = DefaultDailyHours
	}

	var events []model.CalendarEvent
	day := start

	for _, n := range nodes {
		if n.EstimatedHours <= 0 || math.IsNaN(n.EstimatedHours) || math.IsInf(n.EstimatedHours, 0) {
			continue
		}

		// The epsilon keeps 4.000000001/2 from becoming three sessions.
		parts := int(math.Ceil(n.EstimatedHours/dailyHours - 1e-9))
		if parts < 1 {
			parts = 1
		}

		for i := 1; i <= parts; i++ {
			hours := dailyHours
			if i == parts {
				hours = n.EstimatedHours - dailyHours*float64(parts-1)
			}

			title := n.NodeTitle
			if parts > 1 {
				title = fmt.Sprintf("%s (Part %d/%d)", n.NodeTitle, i, parts)
			}

			events = append(events, model.CalendarEvent{
				Title:         title,
				Description:   n.Description,
				StartDate:     day,
				DurationHours: hours,
			})
			day = day.AddDate(0, 0, 1)
		}
	}

	return events
}

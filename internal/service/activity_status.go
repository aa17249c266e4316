package service

import (
	"math"
	"time"

	"github.com/noah-isme/coursework-api/internal/dto"
	"github.com/noah-isme/coursework-api/internal/models"
)

const day = 24 * time.Hour

// ResolveActivityStatus maps an availability window and the current instant to a
// lifecycle state. Precedence is expired, then upcoming, then active. Both bounds
// are inclusive for the active state: now == due and now == start are active.
func ResolveActivityStatus(start *time.Time, due, now time.Time) models.ActivityStatus {
	if now.After(due) {
		return models.ActivityExpired
	}
	if start != nil && now.Before(*start) {
		return models.ActivityUpcoming
	}
	return models.ActivityActive
}

// DescribeActivityStatus resolves the status of activity at now and adds the
// display label, badge variant and day counters.
func DescribeActivityStatus(activity models.Activity, now time.Time) dto.ActivityStatusView {
	status := ResolveActivityStatus(activity.StartDate, activity.DueDate, now)
	view := dto.ActivityStatusView{Status: status}
	switch status {
	case models.ActivityExpired:
		view.Label = "Bloqueada (Vencida)"
		view.Variant = "destructive"
	case models.ActivityUpcoming:
		view.Label = "No Disponible"
		view.Variant = "secondary"
		days := ceilDays(activity.StartDate.Sub(now))
		view.DaysUntilAvailable = &days
	default:
		view.Label = "Activa"
		view.Variant = "success"
		view.CanSubmit = true
		days := ceilDays(activity.DueDate.Sub(now))
		view.DaysRemaining = &days
	}
	return view
}

// ceilDays rounds a duration up to whole days.
func ceilDays(d time.Duration) int {
	return int(math.Ceil(float64(d) / float64(day)))
}

package api

import (
	"fmt"
	"strings"
	"time"

	"tmsboard/internal/calendar"
	"tmsboard/internal/model"
)

// parseView validates the calendar view parameter, defaulting to month.
func parseView(v string) (calendar.View, error) {
	switch strings.ToLower(v) {
	case "":
		return calendar.ViewMonth, nil
	case "day":
		return calendar.ViewDay, nil
	case "week":
		return calendar.ViewWeek, nil
	case "month":
		return calendar.ViewMonth, nil
	default:
		return "", fmt.Errorf("invalid view: %s (allowed: day,week,month)", v)
	}
}

// parseDate parses a YYYY-MM-DD query parameter in local time, defaulting to
// today when empty.
func parseDate(v string, now time.Time) (time.Time, error) {
	if v == "" {
		return now, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %s (want YYYY-MM-DD)", v)
	}
	return t, nil
}

func parseResourceType(v string) (model.ResourceType, error) {
	switch strings.ToLower(v) {
	case "", "vehicle":
		return model.ResourceVehicle, nil
	case "driver":
		return model.ResourceDriver, nil
	default:
		return "", fmt.Errorf("invalid resourceType: %s (allowed: vehicle,driver)", v)
	}
}

// validateHourWidth bounds the pixel scale to something renderable.
func validateHourWidth(w int) error {
	if w < 8 || w > 1000 {
		return fmt.Errorf("hourWidth must be in [8,1000], got %d", w)
	}
	return nil
}

func validateDropTarget(t model.DropTarget) error {
	if t.Date == "" {
		return fmt.Errorf("target date required")
	}
	if _, err := time.ParseInLocation("2006-01-02", t.Date, time.Local); err != nil {
		return fmt.Errorf("invalid target date: %s", t.Date)
	}
	if t.Hour != nil {
		if *t.Hour < 0 || *t.Hour > 23 {
			return fmt.Errorf("target hour must be in [0,23], got %d", *t.Hour)
		}
		if t.ResourceID == "" {
			return fmt.Errorf("hour slot drops require resourceId")
		}
	}
	if t.ResourceID != "" && t.ResourceType != model.ResourceVehicle && t.ResourceType != model.ResourceDriver {
		return fmt.Errorf("invalid resourceType: %s", t.ResourceType)
	}
	return nil
}

// Package timeline computes the hour-grid geometry for the daily timeline
// and the per-day aggregates for the weekly Gantt.
package timeline

import (
    "time"

    "tmsboard/internal/calendar"
    "tmsboard/internal/model"
)

const (
    // DefaultHourWidth is the hour column width in pixels when the caller
    // does not specify one.
    DefaultHourWidth = 80
    // MinBarWidth keeps very short assignments visibly clickable.
    MinBarWidth = 32
    // barGutter is the horizontal gap subtracted from each bar.
    barGutter = 4
)

// BarGeometry is a bar's pixel placement on a fixed-width hour grid.
type BarGeometry struct {
    Left  float64 `json:"left"`
    Width float64 `json:"width"`
}

// Position places a window starting at start with the given duration on an
// hourWidth-pixel grid. Non-positive durations fall back to the default
// estimated duration.
func Position(start time.Time, durationHours float64, hourWidth int) BarGeometry {
    if hourWidth <= 0 {
        hourWidth = DefaultHourWidth
    }
    if durationHours <= 0 {
        durationHours = model.DefaultEstimatedHours
    }
    w := float64(hourWidth)
    left := (float64(start.Hour()) + float64(start.Minute())/60) * w
    width := durationHours*w - barGutter
    if width < MinBarWidth {
        width = MinBarWidth
    }
    return BarGeometry{Left: left, Width: width}
}

// NowOffset is the "now" indicator position. It is only as fresh as the call
// that produced it; there is no live timer.
func NowOffset(now time.Time, hourWidth int) float64 {
    if hourWidth <= 0 {
        hourWidth = DefaultHourWidth
    }
    return (float64(now.Hour()) + float64(now.Minute())/60) * float64(hourWidth)
}

// Bar is one positioned assignment on a resource's daily timeline.
type Bar struct {
    Order    model.ScheduledOrder `json:"order"`
    Geometry BarGeometry          `json:"geometry"`
}

// Row is a resource's laid-out day. HasData distinguishes "no assignments"
// from a zero-utilization day; rows without data render a placeholder, not
// an empty bar.
type Row struct {
    Resource model.Resource `json:"resource"`
    Bars     []Bar          `json:"bars"`
    HasData  bool           `json:"hasData"`
}

// Layout positions every assignment of a resource timeline.
func Layout(tl model.ResourceTimeline, hourWidth int) Row {
    row := Row{Resource: tl.Resource, HasData: len(tl.Assignments) > 0}
    for _, o := range tl.Assignments {
        row.Bars = append(row.Bars, Bar{Order: o, Geometry: Position(o.ScheduledAt, o.EstimatedHours, hourWidth)})
    }
    return row
}

// GanttCell aggregates one resource x day: utilization uses the shared
// clamp and level thresholds from the calendar package. Blocked days keep
// their utilization but are flagged so the caller disables click-to-assign.
type GanttCell struct {
    Date       time.Time      `json:"date"`
    BarPercent float64        `json:"barPercent"`
    Level      calendar.Level `json:"utilizationLevel"`
    OrderCount int            `json:"orderCount"`
    Blocked    bool           `json:"isBlocked"`
}

// AggregateGantt derives display cells for a resource's day slice.
func AggregateGantt(days []model.GanttDay) []GanttCell {
    cells := make([]GanttCell, 0, len(days))
    for _, d := range days {
        cells = append(cells, GanttCell{
            Date:       d.Date,
            BarPercent: calendar.BarPercent(d.Utilization),
            Level:      calendar.UtilizationLevel(d.Utilization),
            OrderCount: d.OrderCount,
            Blocked:    d.Blocked,
        })
    }
    return cells
}

// ResourceUtilization converts scheduled hours against a workday length to
// the 0-100 utilization scale. Over-commitment may exceed 100.
func ResourceUtilization(scheduledHours, workdayHours float64) float64 {
    if workdayHours <= 0 {
        return 0
    }
    return scheduledHours / workdayHours * 100
}

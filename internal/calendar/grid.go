// Package calendar builds the dense date grids behind the board's day, week
// and month views and derives per-cell display summaries.
package calendar

import (
    "time"

    "tmsboard/internal/model"
)

type View string

const (
    ViewDay   View = "day"
    ViewWeek  View = "week"
    ViewMonth View = "month"
)

// MonthCells is the fixed month grid size: 6 full weeks, independent of
// month length or leap years.
const MonthCells = 42

// MaxVisibleOrders is how many orders a day cell shows before collapsing the
// rest into a "+N" count.
const MaxVisibleOrders = 3

// SameDay reports local calendar-day equality (year, month, day triple).
// Instant equality is never used for grid placement.
func SameDay(a, b time.Time) bool {
    ay, am, ad := a.Date()
    by, bm, bd := b.Date()
    return ay == by && am == bm && ad == bd
}

// DayStart truncates t to local midnight.
func DayStart(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Sunday on or before t, at local midnight.
func WeekStart(t time.Time) time.Time {
    d := DayStart(t)
    return d.AddDate(0, 0, -int(d.Weekday()))
}

// monthGridStart returns the Sunday on or before the 1st of t's month.
func monthGridStart(t time.Time) time.Time {
    y, m, _ := t.Date()
    first := time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
    return first.AddDate(0, 0, -int(first.Weekday()))
}

// BuildGrid produces the dense cell sequence for the requested view. Cells
// with no data default to an empty, unblocked day at zero utilization.
func BuildGrid(ref time.Time, view View, data []model.CalendarDay) []model.CalendarDay {
    switch view {
    case ViewWeek:
        return buildRange(WeekStart(ref), 7, data)
    case ViewMonth:
        return buildRange(monthGridStart(ref), MonthCells, data)
    default:
        return buildRange(DayStart(ref), 1, data)
    }
}

func buildRange(start time.Time, n int, data []model.CalendarDay) []model.CalendarDay {
    cells := make([]model.CalendarDay, 0, n)
    for i := 0; i < n; i++ {
        date := start.AddDate(0, 0, i)
        cells = append(cells, findDay(date, data))
    }
    return cells
}

func findDay(date time.Time, data []model.CalendarDay) model.CalendarDay {
    for _, d := range data {
        if SameDay(d.Date, date) {
            d.Date = date
            return d
        }
    }
    return model.CalendarDay{Date: date}
}

// Level buckets a utilization percentage for display. The thresholds are
// shared by day cells, Gantt cells and resource capacity rows.
type Level string

const (
    LevelLow    Level = "low"    // < 50
    LevelMedium Level = "medium" // 50-80
    LevelHigh   Level = "high"   // > 80
)

func UtilizationLevel(u float64) Level {
    switch {
    case u < 50:
        return LevelLow
    case u <= 80:
        return LevelMedium
    default:
        return LevelHigh
    }
}

// BarPercent clamps utilization for rendering. Over-committed days still
// render, pinned at 100.
func BarPercent(u float64) float64 {
    if u < 0 {
        return 0
    }
    if u > 100 {
        return 100
    }
    return u
}

// DaySummary is the derived display state of one calendar cell.
type DaySummary struct {
    Date         time.Time              `json:"date"`
    Visible      []model.ScheduledOrder `json:"visibleOrders"`
    Hidden       int                    `json:"hiddenCount"`
    HasConflicts bool                   `json:"hasConflicts"`
    AllConfirmed bool                   `json:"allConfirmed"`
    BarPercent   float64                `json:"barPercent"`
    Level        Level                  `json:"utilizationLevel"`
    Blocked      bool                   `json:"isBlocked"`
}

// Summarize derives the visible/hidden split, conflict and confirmation
// flags, and the clamped utilization bar for a cell.
func Summarize(cell model.CalendarDay) DaySummary {
    s := DaySummary{
        Date:       cell.Date,
        BarPercent: BarPercent(cell.Utilization),
        Level:      UtilizationLevel(cell.Utilization),
        Blocked:    cell.Blocked,
    }
    n := len(cell.Orders)
    if n > MaxVisibleOrders {
        s.Visible = cell.Orders[:MaxVisibleOrders]
        s.Hidden = n - MaxVisibleOrders
    } else {
        s.Visible = cell.Orders
    }
    allConfirmed := n > 0
    for _, o := range cell.Orders {
        if o.HasConflict {
            s.HasConflicts = true
        }
        if !o.Status.Confirmed() {
            allConfirmed = false
        }
    }
    s.AllConfirmed = allConfirmed
    return s
}

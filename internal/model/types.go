package model

import "time"

// Core domain types for the dispatch board.

type Priority string

const (
    PriorityUrgent Priority = "urgent"
    PriorityHigh   Priority = "high"
    PriorityNormal Priority = "normal"
    PriorityLow    Priority = "low"
)

// ScheduleStatus tracks a scheduled order through its day.
type ScheduleStatus string

const (
    SchedulePending   ScheduleStatus = "pending"
    ScheduleReady     ScheduleStatus = "ready"
    ScheduleInTransit ScheduleStatus = "in_transit"
    ScheduleCompleted ScheduleStatus = "completed"
)

// Confirmed reports whether the status counts toward a fully confirmed day.
func (s ScheduleStatus) Confirmed() bool {
    return s == ScheduleReady || s == ScheduleCompleted
}

type Milestone struct {
    Type    string `json:"type"` // pickup, waypoint, destination
    Address string `json:"address,omitempty"`
    ETA     string `json:"eta,omitempty"`
}

// Order is a shippable unit awaiting assignment. Assignment fields are
// only mutated through the session confirm path.
type Order struct {
    ID          string      `json:"id"`
    TenantID    string      `json:"tenantId"`
    OrderNumber string      `json:"orderNumber,omitempty"`
    ExternalRef string      `json:"externalRef,omitempty"`
    Priority    Priority    `json:"priority,omitempty"`
    Customer    string      `json:"customer,omitempty"`
    VehicleID   string      `json:"vehicleId,omitempty"`
    DriverID    string      `json:"driverId,omitempty"`
    Milestones  []Milestone `json:"milestones,omitempty"`
    Notes       string      `json:"notes,omitempty"`
}

// Assigned reports whether the order already carries a resource assignment.
func (o Order) Assigned() bool { return o.VehicleID != "" && o.DriverID != "" }

// ScheduledOrder is an Order committed to a date/time window. ScheduledAt
// plus EstimatedHours define the occupied window; HasConflict is computed by
// the external planner and only displayed here.
type ScheduledOrder struct {
    Order
    ScheduledAt    time.Time      `json:"scheduledAt"`
    EstimatedHours float64        `json:"estimatedHours,omitempty"`
    Status         ScheduleStatus `json:"scheduleStatus"`
    HasConflict    bool           `json:"hasConflict,omitempty"`
}

// DefaultEstimatedHours is assumed when an order carries no duration.
const DefaultEstimatedHours = 2.0

// Duration returns the occupied window length in hours.
func (s ScheduledOrder) Duration() float64 {
    if s.EstimatedHours <= 0 {
        return DefaultEstimatedHours
    }
    return s.EstimatedHours
}

// CalendarDay is one calendar cell. Utilization is a percentage; values over
// 100 indicate over-commitment and are clamped only for display.
type CalendarDay struct {
    Date        time.Time        `json:"date"`
    Orders      []ScheduledOrder `json:"orders"`
    Utilization float64          `json:"utilization"`
    Blocked     bool             `json:"isBlocked"`
}

type ResourceType string

const (
    ResourceVehicle ResourceType = "vehicle"
    ResourceDriver  ResourceType = "driver"
)

// Resource is a vehicle or driver that can be assigned to orders.
type Resource struct {
    ID       string       `json:"id"`
    TenantID string       `json:"tenantId"`
    Type     ResourceType `json:"type"`
    Name     string       `json:"name"`
    Active   bool         `json:"active"`
}

// ResourceTimeline carries one resource's individual assignments across the
// hours of a single day.
type ResourceTimeline struct {
    Resource    Resource         `json:"resource"`
    Assignments []ScheduledOrder `json:"assignments"`
}

// GanttDay is one resource x day aggregate cell.
type GanttDay struct {
    Date        time.Time `json:"date"`
    Utilization float64   `json:"utilization"`
    Blocked     bool      `json:"isBlocked"`
    OrderCount  int       `json:"orderCount"`
}

// GanttRow is one resource's per-day utilization strip across a date range.
type GanttRow struct {
    Resource Resource   `json:"resource"`
    Days     []GanttDay `json:"days"`
}

// Suggestion is an ephemeral planner recommendation for an (order, date)
// pair. Never persisted.
type Suggestion struct {
    ResourceID string       `json:"resourceId"`
    Type       ResourceType `json:"type"`
    Name       string       `json:"name"`
    Score      int          `json:"score"` // 0-100
    Reason     string       `json:"reason,omitempty"`
}

type Severity string

const (
    SeverityHigh   Severity = "high"
    SeverityMedium Severity = "medium"
    SeverityLow    Severity = "low"
)

// Conflict is a planner-reported scheduling conflict. High severity gates
// submission; medium/low are advisory.
type Conflict struct {
    ID         string   `json:"id"`
    Severity   Severity `json:"severity"`
    Message    string   `json:"message"`
    Resolution string   `json:"suggestedResolution,omitempty"`
}

// HOSResult is the planner's hours-of-service verdict for a driver/day.
type HOSResult struct {
    IsValid             bool    `json:"isValid"`
    RemainingHoursToday float64 `json:"remainingHoursToday"`
    WeeklyHoursUsed     float64 `json:"weeklyHoursUsed"`
}

// FeatureFlags gate the suggestion and HOS subsystems.
type FeatureFlags struct {
    EnableAutoSuggestion bool `json:"enableAutoSuggestion"`
    EnableHOSValidation  bool `json:"enableHOSValidation"`
}

// AssignmentConfirm is the payload handed to the store when a session is
// confirmed.
type AssignmentConfirm struct {
    OrderID     string    `json:"orderId"`
    VehicleID   string    `json:"vehicleId"`
    DriverID    string    `json:"driverId"`
    ScheduledAt time.Time `json:"scheduledAt"`
    Notes       string    `json:"notes,omitempty"`
}

// DropTarget identifies where a dragged order landed: a bare calendar date,
// or a resource hour slot when Hour is set.
type DropTarget struct {
    Date         string       `json:"date"` // YYYY-MM-DD
    ResourceID   string       `json:"resourceId,omitempty"`
    ResourceType ResourceType `json:"resourceType,omitempty"`
    Hour         *int         `json:"hour,omitempty"`
}

// OrderIn is the import shape for POST /v1/orders.
type OrderIn struct {
    OrderNumber    string      `json:"orderNumber,omitempty"`
    ExternalRef    string      `json:"externalRef,omitempty"`
    Priority       Priority    `json:"priority,omitempty"`
    Customer       string      `json:"customer,omitempty"`
    Milestones     []Milestone `json:"milestones,omitempty"`
    ScheduledAt    string      `json:"scheduledAt,omitempty"` // RFC3339; empty = pending
    EstimatedHours float64     `json:"estimatedHours,omitempty"`
}

// SubscriptionRequest registers a webhook endpoint for board events.
type SubscriptionRequest struct {
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret"`
}

type Subscription struct {
    ID       string   `json:"id"`
    TenantID string   `json:"tenantId"`
    URL      string   `json:"url"`
    Events   []string `json:"events"`
    Secret   string   `json:"secret,omitempty"`
}

package store

import (
    "context"
    "errors"
    "time"

    "tmsboard/internal/model"
)

// Store is the persistence interface used by the board API.
type Store interface {
    // Orders
    CreateOrders(ctx context.Context, tenantID string, orders []model.OrderIn) (importID string, created, skipped int, err error)
    ListPendingOrders(ctx context.Context, tenantID, cursor string, limit int) ([]model.Order, string, error)
    GetOrder(ctx context.Context, tenantID, orderID string) (*model.Order, *model.ScheduledOrder, error)

    // Fleet resources
    UpsertResource(ctx context.Context, tenantID string, r model.Resource) (model.Resource, error)
    ListResources(ctx context.Context, tenantID string, typ model.ResourceType) ([]model.Resource, error)

    // Board read models. CalendarRange returns sparse days; the grid
    // builder densifies them.
    CalendarRange(ctx context.Context, tenantID string, from, to time.Time) ([]model.CalendarDay, error)
    ResourceTimelines(ctx context.Context, tenantID string, day time.Time, typ model.ResourceType) ([]model.ResourceTimeline, error)
    GanttRows(ctx context.Context, tenantID string, start time.Time, days int, typ model.ResourceType) ([]model.GanttRow, error)

    // Mutations
    ConfirmAssignment(ctx context.Context, tenantID string, c model.AssignmentConfirm) (model.ScheduledOrder, error)
    RescheduleOrder(ctx context.Context, tenantID, orderID string, at time.Time, resourceID string, typ model.ResourceType) (model.ScheduledOrder, error)
    SetDayBlocked(ctx context.Context, tenantID string, day time.Time, blocked bool) error
    UpdateScheduleStatus(ctx context.Context, tenantID, orderID string, status model.ScheduleStatus) (model.ScheduledOrder, error)
    SetConflictFlag(ctx context.Context, tenantID, orderID string, hasConflict bool) error

    // Webhook subscriptions
    CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error)
    GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error)
    ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error)
    DeleteSubscription(ctx context.Context, tenantID, id string) error

    // Webhook deliveries
    EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error)
    FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
    MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
    FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
    ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error)
    RetryWebhookDelivery(ctx context.Context, tenantID, id string) error
}

var (
    ErrNotFound      = errors.New("not found")
    ErrDayBlocked    = errors.New("day is blocked for scheduling")
    ErrOrderNotFound = errors.New("order not found")
)

// WorkdayHours is the utilization denominator per resource per day.
const WorkdayHours = 8.0

package webhooks

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "tmsboard/internal/model"
    "tmsboard/internal/store"
)

// Board event types carried over webhooks and the live feeds.
const (
    EventOrderDropped        = "order.dropped"
    EventAssignmentConfirmed = "assignment.confirmed"
    EventSessionOpened       = "session.opened"
    EventDayBlocked          = "day.blocked"
)

type Publisher struct {
    Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
    return &Publisher{Store: s}
}

// Emit sends an event to all subscriptions for the tenant and event type.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
    subs, err := p.Store.GetSubscriptionsForEvent(ctx, tenantID, eventType)
    if err != nil || len(subs) == 0 {
        return
    }
    payload := map[string]any{
        "id":       fmt.Sprintf("evt_%d", time.Now().UnixNano()),
        "type":     eventType,
        "tenantId": tenantID,
        "ts":       time.Now().UTC().Format(time.RFC3339),
        "data":     data,
    }
    body, _ := json.Marshal(payload)
    for _, s := range subs {
        _, _ = p.Store.EnqueueWebhook(ctx, tenantID, s.ID, eventType, s.URL, s.Secret, body)
    }
}

// OrderDropped emits the reassignment event for a completed drop.
func (p *Publisher) OrderDropped(ctx context.Context, tenantID string, o model.ScheduledOrder, target model.DropTarget) {
    p.Emit(ctx, tenantID, EventOrderDropped, map[string]any{"order": o, "target": target})
}

// AssignmentConfirmed emits the confirm event for a closed session.
func (p *Publisher) AssignmentConfirmed(ctx context.Context, tenantID, sessionID string, o model.ScheduledOrder) {
    p.Emit(ctx, tenantID, EventAssignmentConfirmed, map[string]any{"sessionId": sessionID, "order": o})
}

// DayBlocked emits a block/unblock toggle for a calendar day.
func (p *Publisher) DayBlocked(ctx context.Context, tenantID string, day time.Time, blocked bool) {
    p.Emit(ctx, tenantID, EventDayBlocked, map[string]any{"date": day.Format("2006-01-02"), "blocked": blocked})
}

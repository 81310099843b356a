package store

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/google/uuid"
    "tmsboard/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
    mu      sync.Mutex
    orders  map[string]*model.ScheduledOrder // id -> record; zero ScheduledAt = pending
    byTen   map[string][]string              // tenant -> order ids in insert order
    res     map[string]model.Resource        // id -> resource
    resTen  map[string][]string              // tenant -> resource ids
    blocked map[string]map[string]bool       // tenant -> YYYY-MM-DD -> blocked
    subs    map[string][]model.Subscription  // tenant -> subscriptions
    // Webhooks queue state
    deliveries         map[string]*memDelivery
    deliveriesByTenant map[string][]string
    workday float64
}

func NewMemory() *Memory {
    return &Memory{
        orders: map[string]*model.ScheduledOrder{},
        byTen: map[string][]string{},
        res: map[string]model.Resource{},
        resTen: map[string][]string{},
        blocked: map[string]map[string]bool{},
        subs: map[string][]model.Subscription{},
        deliveries: map[string]*memDelivery{},
        deliveriesByTenant: map[string][]string{},
        workday: WorkdayHours,
    }
}

// SetWorkday overrides the utilization denominator (hours per resource-day).
func (m *Memory) SetWorkday(h float64) {
    m.mu.Lock(); defer m.mu.Unlock()
    if h > 0 { m.workday = h }
}

// memDelivery augments WebhookDelivery with scheduling/metrics
type memDelivery struct {
    WebhookDelivery
    NextAttemptAt time.Time
    LastError     string
    ResponseCode  int
    LatencyMs     int
    DeliveredAt   *time.Time
}

const dayKeyLayout = "2006-01-02"

func dayKey(t time.Time) string { return t.Format(dayKeyLayout) }

func sameDay(a, b time.Time) bool {
    return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

func (m *Memory) CreateOrders(ctx context.Context, tenantID string, orders []model.OrderIn) (string, int, int, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    created, skipped := 0, 0
    for _, in := range orders {
        if in.ExternalRef != "" && m.findByRef(tenantID, in.ExternalRef) != "" { skipped++; continue }
        id := uuid.New().String()
        rec := &model.ScheduledOrder{Order: model.Order{
            ID: id, TenantID: tenantID, OrderNumber: in.OrderNumber, ExternalRef: in.ExternalRef,
            Priority: in.Priority, Customer: in.Customer, Milestones: in.Milestones,
        }, EstimatedHours: in.EstimatedHours, Status: model.SchedulePending}
        if in.ScheduledAt != "" {
            at, err := time.Parse(time.RFC3339, in.ScheduledAt)
            if err != nil { skipped++; continue }
            rec.ScheduledAt = at
        }
        m.orders[id] = rec
        m.byTen[tenantID] = append(m.byTen[tenantID], id)
        created++
    }
    return "imp_mem", created, skipped, nil
}

func (m *Memory) findByRef(tenantID, ref string) string {
    for _, id := range m.byTen[tenantID] {
        if o := m.orders[id]; o != nil && o.ExternalRef == ref { return id }
    }
    return ""
}

func (m *Memory) ListPendingOrders(ctx context.Context, tenantID, cursor string, limit int) ([]model.Order, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    ids := m.byTen[tenantID]
    start := 0
    if cursor != "" {
        for i, id := range ids {
            if id == cursor { start = i + 1; break }
        }
    }
    if limit <= 0 { limit = 100 }
    out := []model.Order{}
    var next string
    for i := start; i < len(ids) && len(out) < limit; i++ {
        o := m.orders[ids[i]]
        if o != nil && o.ScheduledAt.IsZero() { out = append(out, o.Order) }
        next = ids[i]
    }
    if len(out) < limit { next = "" }
    return out, next, nil
}

func (m *Memory) GetOrder(ctx context.Context, tenantID, orderID string) (*model.Order, *model.ScheduledOrder, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o := m.orders[orderID]
    if o == nil || o.TenantID != tenantID { return nil, nil, ErrOrderNotFound }
    cp := *o
    if cp.ScheduledAt.IsZero() {
        ord := cp.Order
        return &ord, nil, nil
    }
    return nil, &cp, nil
}

func (m *Memory) UpsertResource(ctx context.Context, tenantID string, r model.Resource) (model.Resource, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if r.ID == "" { r.ID = uuid.New().String() }
    r.TenantID = tenantID
    if _, ok := m.res[r.ID]; !ok { m.resTen[tenantID] = append(m.resTen[tenantID], r.ID) }
    m.res[r.ID] = r
    return r, nil
}

func (m *Memory) ListResources(ctx context.Context, tenantID string, typ model.ResourceType) ([]model.Resource, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.Resource{}
    for _, id := range m.resTen[tenantID] {
        r := m.res[id]
        if typ == "" || r.Type == typ { out = append(out, r) }
    }
    return out, nil
}

// CalendarRange groups scheduled orders by local day. Utilization is total
// scheduled hours over the active fleet's workday capacity.
func (m *Memory) CalendarRange(ctx context.Context, tenantID string, from, to time.Time) ([]model.CalendarDay, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    vehicles := 0
    for _, id := range m.resTen[tenantID] {
        if r := m.res[id]; r.Type == model.ResourceVehicle && r.Active { vehicles++ }
    }
    byDay := map[string]*model.CalendarDay{}
    for _, id := range m.byTen[tenantID] {
        o := m.orders[id]
        if o == nil || o.ScheduledAt.IsZero() { continue }
        if o.ScheduledAt.Before(from) || !o.ScheduledAt.Before(to) { continue }
        k := dayKey(o.ScheduledAt)
        d := byDay[k]
        if d == nil {
            day, _ := time.ParseInLocation(dayKeyLayout, k, o.ScheduledAt.Location())
            d = &model.CalendarDay{Date: day}
            byDay[k] = d
        }
        d.Orders = append(d.Orders, *o)
    }
    for k, d := range byDay {
        hours := 0.0
        for _, o := range d.Orders { hours += o.Duration() }
        capacity := float64(vehicles) * m.workday
        if capacity > 0 { d.Utilization = hours / capacity * 100 }
        d.Blocked = m.blocked[tenantID][k]
        sort.Slice(d.Orders, func(i, j int) bool { return d.Orders[i].ScheduledAt.Before(d.Orders[j].ScheduledAt) })
    }
    // Blocked days with no orders still surface as cells.
    for k, b := range m.blocked[tenantID] {
        if !b || byDay[k] != nil { continue }
        day, err := time.ParseInLocation(dayKeyLayout, k, time.Local)
        if err != nil || day.Before(from) || !day.Before(to) { continue }
        byDay[k] = &model.CalendarDay{Date: day, Blocked: true}
    }
    out := make([]model.CalendarDay, 0, len(byDay))
    for _, d := range byDay { out = append(out, *d) }
    sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out, nil
}

func (m *Memory) ResourceTimelines(ctx context.Context, tenantID string, day time.Time, typ model.ResourceType) ([]model.ResourceTimeline, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []model.ResourceTimeline{}
    for _, rid := range m.resTen[tenantID] {
        r := m.res[rid]
        if typ != "" && r.Type != typ { continue }
        row := model.ResourceTimeline{Resource: r}
        for _, id := range m.byTen[tenantID] {
            o := m.orders[id]
            if o == nil || o.ScheduledAt.IsZero() || !sameDay(o.ScheduledAt, day) { continue }
            if resourceMatches(r, o.Order) { row.Assignments = append(row.Assignments, *o) }
        }
        sort.Slice(row.Assignments, func(i, j int) bool { return row.Assignments[i].ScheduledAt.Before(row.Assignments[j].ScheduledAt) })
        out = append(out, row)
    }
    return out, nil
}

func resourceMatches(r model.Resource, o model.Order) bool {
    if r.Type == model.ResourceVehicle { return o.VehicleID == r.ID }
    return o.DriverID == r.ID
}

func (m *Memory) GanttRows(ctx context.Context, tenantID string, start time.Time, days int, typ model.ResourceType) ([]model.GanttRow, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    if days <= 0 { days = 7 }
    out := []model.GanttRow{}
    for _, rid := range m.resTen[tenantID] {
        r := m.res[rid]
        if typ != "" && r.Type != typ { continue }
        row := model.GanttRow{Resource: r, Days: make([]model.GanttDay, days)}
        for d := 0; d < days; d++ {
            day := start.AddDate(0, 0, d)
            cell := model.GanttDay{Date: day, Blocked: m.blocked[tenantID][dayKey(day)]}
            hours := 0.0
            for _, id := range m.byTen[tenantID] {
                o := m.orders[id]
                if o == nil || o.ScheduledAt.IsZero() || !sameDay(o.ScheduledAt, day) { continue }
                if !resourceMatches(r, o.Order) { continue }
                cell.OrderCount++
                hours += o.Duration()
            }
            if m.workday > 0 { cell.Utilization = hours / m.workday * 100 }
            row.Days[d] = cell
        }
        out = append(out, row)
    }
    return out, nil
}

func (m *Memory) ConfirmAssignment(ctx context.Context, tenantID string, c model.AssignmentConfirm) (model.ScheduledOrder, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o := m.orders[c.OrderID]
    if o == nil || o.TenantID != tenantID { return model.ScheduledOrder{}, ErrOrderNotFound }
    if m.blocked[tenantID][dayKey(c.ScheduledAt)] { return model.ScheduledOrder{}, ErrDayBlocked }
    o.VehicleID = c.VehicleID
    o.DriverID = c.DriverID
    o.ScheduledAt = c.ScheduledAt
    if c.Notes != "" { o.Notes = c.Notes }
    o.Status = model.ScheduleReady
    o.HasConflict = false
    return *o, nil
}

func (m *Memory) RescheduleOrder(ctx context.Context, tenantID, orderID string, at time.Time, resourceID string, typ model.ResourceType) (model.ScheduledOrder, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o := m.orders[orderID]
    if o == nil || o.TenantID != tenantID { return model.ScheduledOrder{}, ErrOrderNotFound }
    if m.blocked[tenantID][dayKey(at)] { return model.ScheduledOrder{}, ErrDayBlocked }
    o.ScheduledAt = at
    if resourceID != "" {
        if typ == model.ResourceDriver { o.DriverID = resourceID } else { o.VehicleID = resourceID }
    }
    if o.Status == "" { o.Status = model.SchedulePending }
    return *o, nil
}

func (m *Memory) SetDayBlocked(ctx context.Context, tenantID string, day time.Time, blocked bool) error {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.blocked[tenantID] == nil { m.blocked[tenantID] = map[string]bool{} }
    m.blocked[tenantID][dayKey(day)] = blocked
    return nil
}

func (m *Memory) UpdateScheduleStatus(ctx context.Context, tenantID, orderID string, status model.ScheduleStatus) (model.ScheduledOrder, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    o := m.orders[orderID]
    if o == nil || o.TenantID != tenantID || o.ScheduledAt.IsZero() { return model.ScheduledOrder{}, ErrOrderNotFound }
    o.Status = status
    return *o, nil
}

func (m *Memory) SetConflictFlag(ctx context.Context, tenantID, orderID string, hasConflict bool) error {
    m.mu.Lock(); defer m.mu.Unlock()
    o := m.orders[orderID]
    if o == nil || o.TenantID != tenantID { return ErrOrderNotFound }
    o.HasConflict = hasConflict
    return nil
}

func (m *Memory) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    s := model.Subscription{ID: uuid.New().String(), TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}
    m.subs[req.TenantID] = append(m.subs[req.TenantID], s)
    return s, nil
}

func (m *Memory) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    var out []model.Subscription
    for _, s := range m.subs[tenantID] {
        for _, e := range s.Events { if e == eventType { out = append(out, s); break } }
    }
    return out, nil
}

func (m *Memory) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    list := m.subs[tenantID]
    start := 0
    if cursor != "" {
        for i := range list { if list[i].ID == cursor { start = i+1; break } }
    }
    if limit <= 0 { limit = 100 }
    end := start + limit
    if end > len(list) { end = len(list) }
    items := append([]model.Subscription(nil), list[start:end]...)
    next := ""
    if end < len(list) { next = list[end-1].ID }
    return items, next, nil
}

func (m *Memory) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    arr := m.subs[tenantID]
    out := make([]model.Subscription, 0, len(arr))
    for _, s := range arr { if s.ID != id { out = append(out, s) } }
    m.subs[tenantID] = out
    return nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    id := uuid.New().String()
    d := &memDelivery{WebhookDelivery: WebhookDelivery{ID: id, TenantID: tenantID, SubscriptionID: subscriptionID, EventType: eventType, URL: url, Secret: secret, Payload: payload, Status: "pending", Attempts: 0}, NextAttemptAt: time.Now()}
    m.deliveries[id] = d
    m.deliveriesByTenant[tenantID] = append(m.deliveriesByTenant[tenantID], id)
    return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    now := time.Now()
    out := []WebhookDelivery{}
    for _, lst := range m.deliveriesByTenant {
        for _, id := range lst {
            d := m.deliveries[id]
            if d == nil { continue }
            if (d.Status == "pending" || d.Status == "retry") && !d.NextAttemptAt.After(now) {
                out = append(out, d.WebhookDelivery)
                if limit > 0 && len(out) >= limit { return out, nil }
            }
        }
    }
    return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d == nil { return nil }
    d.Attempts++
    d.ResponseCode = responseCode
    d.LatencyMs = latencyMs
    if success {
        d.Status = "delivered"
        now := time.Now()
        d.DeliveredAt = &now
    } else {
        d.Status = "retry"
        d.LastError = lastError
        if nextAttemptAt != nil { d.NextAttemptAt = *nextAttemptAt } else { d.NextAttemptAt = time.Now().Add(1 * time.Minute) }
    }
    return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil {
        d.Status = "failed"
        d.LastError = lastError
        d.ResponseCode = responseCode
        d.LatencyMs = latencyMs
    }
    return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    m.mu.Lock(); defer m.mu.Unlock()
    out := []map[string]any{}
    for _, id := range m.deliveriesByTenant[tenantID] {
        d := m.deliveries[id]
        if d == nil { continue }
        if status == "" || d.Status == status {
            item := map[string]any{"id": d.ID, "eventType": d.EventType, "status": d.Status, "attempts": d.Attempts, "url": d.URL}
            if !d.NextAttemptAt.IsZero() { item["nextAttemptAt"] = d.NextAttemptAt }
            if d.LastError != "" { item["lastError"] = d.LastError }
            out = append(out, item)
        }
    }
    return out, "", nil
}

func (m *Memory) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    m.mu.Lock(); defer m.mu.Unlock()
    d := m.deliveries[id]
    if d != nil && d.TenantID == tenantID {
        d.Status = "pending"
        d.NextAttemptAt = time.Now()
    }
    return nil
}

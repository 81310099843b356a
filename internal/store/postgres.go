package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sort"
    "strings"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "tmsboard/internal/model"
)

type Postgres struct {
    db      *sql.DB
    workday float64
}

func NewPostgres(dsn string) (*Postgres, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil {
        return nil, err
    }
    if err := db.Ping(); err != nil {
        return nil, err
    }
    return &Postgres{db: db, workday: WorkdayHours}, nil
}

// SetWorkday overrides the utilization denominator (hours per resource-day).
func (p *Postgres) SetWorkday(h float64) {
    if h > 0 { p.workday = h }
}

// Ping checks database connectivity for readiness probes.
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// MigrateDir applies the .sql files in dir in lexical order. Best-effort:
// statements are idempotent (CREATE TABLE IF NOT EXISTS).
func (p *Postgres) MigrateDir(dir string) error {
    entries, err := os.ReadDir(dir)
    if err != nil { return err }
    names := []string{}
    for _, e := range entries {
        if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") { names = append(names, e.Name()) }
    }
    sort.Strings(names)
    for _, n := range names {
        b, err := os.ReadFile(filepath.Join(dir, n))
        if err != nil { return err }
        if _, err := p.db.Exec(string(b)); err != nil {
            return fmt.Errorf("migrate %s: %w", n, err)
        }
    }
    return nil
}

// CreateOrders inserts orders. Dedup by (tenant_id, external_ref).
func (p *Postgres) CreateOrders(ctx context.Context, tenantID string, orders []model.OrderIn) (string, int, int, error) {
    importID := fmt.Sprintf("imp_%d", time.Now().UnixNano())
    tx, err := p.db.BeginTx(ctx, nil)
    if err != nil { return "", 0, 0, err }
    defer func(){ _ = tx.Rollback() }()

    created := 0
    skipped := 0
    for _, o := range orders {
        if o.ExternalRef != "" {
            var existsID string
            err = tx.QueryRowContext(ctx, `SELECT id::text FROM orders WHERE tenant_id=$1 AND external_ref=$2`, tenantID, o.ExternalRef).Scan(&existsID)
            if err == nil { skipped++; continue }
            if !errors.Is(err, sql.ErrNoRows) { return "", 0, 0, err }
        }
        var at any
        if o.ScheduledAt != "" {
            t, perr := time.Parse(time.RFC3339, o.ScheduledAt)
            if perr != nil { skipped++; continue }
            at = t
        }
        _, err = tx.ExecContext(ctx, `INSERT INTO orders (id, tenant_id, order_number, external_ref, priority, customer, milestones, scheduled_at, estimated_hours, schedule_status)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,'pending')`,
            uuid.New(), tenantID, nullIfEmpty(o.OrderNumber), nullIfEmpty(o.ExternalRef), string(o.Priority), nullIfEmpty(o.Customer), toJSON(o.Milestones), at, o.EstimatedHours)
        if err != nil { return "", 0, 0, err }
        created++
    }
    if err := tx.Commit(); err != nil { return "", 0, 0, err }
    return importID, created, skipped, nil
}

const orderCols = `id::text, tenant_id::text, COALESCE(order_number,''), COALESCE(external_ref,''), COALESCE(priority,''), COALESCE(customer,''),
    COALESCE(vehicle_id,''), COALESCE(driver_id,''), milestones, COALESCE(notes,''), scheduled_at, COALESCE(estimated_hours,0), COALESCE(schedule_status,'pending'), COALESCE(has_conflict,false)`

func scanOrder(sc interface{ Scan(...any) error }) (model.ScheduledOrder, error) {
    var o model.ScheduledOrder
    var milestones []byte
    var at sql.NullTime
    if err := sc.Scan(&o.ID, &o.TenantID, &o.OrderNumber, &o.ExternalRef, &o.Priority, &o.Customer,
        &o.VehicleID, &o.DriverID, &milestones, &o.Notes, &at, &o.EstimatedHours, &o.Status, &o.HasConflict); err != nil {
        return o, err
    }
    if len(milestones) > 0 { _ = json.Unmarshal(milestones, &o.Milestones) }
    if at.Valid { o.ScheduledAt = at.Time.In(time.Local) }
    return o, nil
}

func (p *Postgres) ListPendingOrders(ctx context.Context, tenantID, cursor string, limit int) ([]model.Order, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders WHERE tenant_id=$1 AND scheduled_at IS NULL AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders WHERE tenant_id=$1 AND scheduled_at IS NULL ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []model.Order{}
    var last string
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil { return nil, "", err }
        out = append(out, o.Order)
        last = o.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) GetOrder(ctx context.Context, tenantID, orderID string) (*model.Order, *model.ScheduledOrder, error) {
    row := p.db.QueryRowContext(ctx, `SELECT `+orderCols+` FROM orders WHERE tenant_id=$1 AND id=$2`, tenantID, orderID)
    o, err := scanOrder(row)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) { return nil, nil, ErrOrderNotFound }
        return nil, nil, err
    }
    if o.ScheduledAt.IsZero() {
        ord := o.Order
        return &ord, nil, nil
    }
    return nil, &o, nil
}

func (p *Postgres) UpsertResource(ctx context.Context, tenantID string, r model.Resource) (model.Resource, error) {
    if r.ID == "" { r.ID = uuid.New().String() }
    r.TenantID = tenantID
    _, err := p.db.ExecContext(ctx, `INSERT INTO resources (id, tenant_id, type, name, active) VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (id) DO UPDATE SET type=$3, name=$4, active=$5`, r.ID, tenantID, string(r.Type), r.Name, r.Active)
    if err != nil { return model.Resource{}, err }
    return r, nil
}

func (p *Postgres) ListResources(ctx context.Context, tenantID string, typ model.ResourceType) ([]model.Resource, error) {
    q := `SELECT id::text, tenant_id::text, type, name, active FROM resources WHERE tenant_id=$1`
    args := []any{tenantID}
    if typ != "" { q += ` AND type=$2`; args = append(args, string(typ)) }
    q += ` ORDER BY name`
    rows, err := p.db.QueryContext(ctx, q, args...)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Resource{}
    for rows.Next() {
        var r model.Resource
        if err := rows.Scan(&r.ID, &r.TenantID, &r.Type, &r.Name, &r.Active); err != nil { return nil, err }
        out = append(out, r)
    }
    return out, nil
}

func (p *Postgres) CalendarRange(ctx context.Context, tenantID string, from, to time.Time) ([]model.CalendarDay, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders
        WHERE tenant_id=$1 AND scheduled_at >= $2 AND scheduled_at < $3 ORDER BY scheduled_at`, tenantID, from, to)
    if err != nil { return nil, err }
    defer rows.Close()
    byDay := map[string]*model.CalendarDay{}
    keys := []string{}
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil { return nil, err }
        k := o.ScheduledAt.Format("2006-01-02")
        d := byDay[k]
        if d == nil {
            day, _ := time.ParseInLocation("2006-01-02", k, time.Local)
            d = &model.CalendarDay{Date: day}
            byDay[k] = d
            keys = append(keys, k)
        }
        d.Orders = append(d.Orders, o)
    }
    var vehicles int
    _ = p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM resources WHERE tenant_id=$1 AND type='vehicle' AND active`, tenantID).Scan(&vehicles)
    blocked, err := p.blockedDays(ctx, tenantID, from, to)
    if err != nil { return nil, err }
    for k, d := range byDay {
        hours := 0.0
        for _, o := range d.Orders { hours += o.Duration() }
        capacity := float64(vehicles) * p.workday
        if capacity > 0 { d.Utilization = hours / capacity * 100 }
        d.Blocked = blocked[k]
    }
    for k := range blocked {
        if byDay[k] != nil { continue }
        day, err := time.ParseInLocation("2006-01-02", k, time.Local)
        if err != nil || day.Before(from) || !day.Before(to) { continue }
        byDay[k] = &model.CalendarDay{Date: day, Blocked: true}
        keys = append(keys, k)
    }
    sort.Strings(keys)
    out := make([]model.CalendarDay, 0, len(keys))
    for _, k := range keys { out = append(out, *byDay[k]) }
    return out, nil
}

func (p *Postgres) blockedDays(ctx context.Context, tenantID string, from, to time.Time) (map[string]bool, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT day::text FROM blocked_days WHERE tenant_id=$1 AND blocked AND day >= $2::date AND day < $3::date`, tenantID, from.Format("2006-01-02"), to.Format("2006-01-02"))
    if err != nil { return nil, err }
    defer rows.Close()
    out := map[string]bool{}
    for rows.Next() {
        var d string
        if err := rows.Scan(&d); err != nil { return nil, err }
        if len(d) >= 10 { out[d[:10]] = true }
    }
    return out, nil
}

func (p *Postgres) ResourceTimelines(ctx context.Context, tenantID string, day time.Time, typ model.ResourceType) ([]model.ResourceTimeline, error) {
    res, err := p.ListResources(ctx, tenantID, typ)
    if err != nil { return nil, err }
    dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
    rows, err := p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders
        WHERE tenant_id=$1 AND scheduled_at >= $2 AND scheduled_at < $3 ORDER BY scheduled_at`, tenantID, dayStart, dayStart.AddDate(0, 0, 1))
    if err != nil { return nil, err }
    defer rows.Close()
    byRes := map[string][]model.ScheduledOrder{}
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil { return nil, err }
        byRes[o.VehicleID] = append(byRes[o.VehicleID], o)
        if o.DriverID != o.VehicleID { byRes[o.DriverID] = append(byRes[o.DriverID], o) }
    }
    out := make([]model.ResourceTimeline, 0, len(res))
    for _, r := range res {
        out = append(out, model.ResourceTimeline{Resource: r, Assignments: byRes[r.ID]})
    }
    return out, nil
}

func (p *Postgres) GanttRows(ctx context.Context, tenantID string, start time.Time, days int, typ model.ResourceType) ([]model.GanttRow, error) {
    if days <= 0 { days = 7 }
    res, err := p.ListResources(ctx, tenantID, typ)
    if err != nil { return nil, err }
    from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
    to := from.AddDate(0, 0, days)
    rows, err := p.db.QueryContext(ctx, `SELECT `+orderCols+` FROM orders
        WHERE tenant_id=$1 AND scheduled_at >= $2 AND scheduled_at < $3`, tenantID, from, to)
    if err != nil { return nil, err }
    defer rows.Close()
    type cellKey struct{ res, day string }
    counts := map[cellKey]int{}
    hours := map[cellKey]float64{}
    for rows.Next() {
        o, err := scanOrder(rows)
        if err != nil { return nil, err }
        dk := o.ScheduledAt.Format("2006-01-02")
        for _, rid := range []string{o.VehicleID, o.DriverID} {
            if rid == "" { continue }
            k := cellKey{rid, dk}
            counts[k]++
            hours[k] += o.Duration()
        }
    }
    blocked, err := p.blockedDays(ctx, tenantID, from, to)
    if err != nil { return nil, err }
    out := make([]model.GanttRow, 0, len(res))
    for _, r := range res {
        row := model.GanttRow{Resource: r, Days: make([]model.GanttDay, days)}
        for d := 0; d < days; d++ {
            day := from.AddDate(0, 0, d)
            dk := day.Format("2006-01-02")
            cell := model.GanttDay{Date: day, Blocked: blocked[dk], OrderCount: counts[cellKey{r.ID, dk}]}
            if p.workday > 0 { cell.Utilization = hours[cellKey{r.ID, dk}] / p.workday * 100 }
            row.Days[d] = cell
        }
        out = append(out, row)
    }
    return out, nil
}

func (p *Postgres) ConfirmAssignment(ctx context.Context, tenantID string, c model.AssignmentConfirm) (model.ScheduledOrder, error) {
    if blocked, err := p.isBlocked(ctx, tenantID, c.ScheduledAt); err != nil {
        return model.ScheduledOrder{}, err
    } else if blocked {
        return model.ScheduledOrder{}, ErrDayBlocked
    }
    res, err := p.db.ExecContext(ctx, `UPDATE orders SET vehicle_id=$1, driver_id=$2, scheduled_at=$3, notes=COALESCE(NULLIF($4,''), notes),
        schedule_status='ready', has_conflict=false WHERE tenant_id=$5 AND id=$6`, c.VehicleID, c.DriverID, c.ScheduledAt, c.Notes, tenantID, c.OrderID)
    if err != nil { return model.ScheduledOrder{}, err }
    if n, _ := res.RowsAffected(); n == 0 { return model.ScheduledOrder{}, ErrOrderNotFound }
    _, so, err := p.GetOrder(ctx, tenantID, c.OrderID)
    if err != nil { return model.ScheduledOrder{}, err }
    return *so, nil
}

func (p *Postgres) RescheduleOrder(ctx context.Context, tenantID, orderID string, at time.Time, resourceID string, typ model.ResourceType) (model.ScheduledOrder, error) {
    if blocked, err := p.isBlocked(ctx, tenantID, at); err != nil {
        return model.ScheduledOrder{}, err
    } else if blocked {
        return model.ScheduledOrder{}, ErrDayBlocked
    }
    q := `UPDATE orders SET scheduled_at=$1`
    args := []any{at}
    idx := 2
    if resourceID != "" {
        col := "vehicle_id"
        if typ == model.ResourceDriver { col = "driver_id" }
        q += fmt.Sprintf(", %s=$%d", col, idx)
        args = append(args, resourceID)
        idx++
    }
    q += fmt.Sprintf(` WHERE tenant_id=$%d AND id=$%d`, idx, idx+1)
    args = append(args, tenantID, orderID)
    res, err := p.db.ExecContext(ctx, q, args...)
    if err != nil { return model.ScheduledOrder{}, err }
    if n, _ := res.RowsAffected(); n == 0 { return model.ScheduledOrder{}, ErrOrderNotFound }
    _, so, err := p.GetOrder(ctx, tenantID, orderID)
    if err != nil { return model.ScheduledOrder{}, err }
    return *so, nil
}

func (p *Postgres) isBlocked(ctx context.Context, tenantID string, day time.Time) (bool, error) {
    var b bool
    err := p.db.QueryRowContext(ctx, `SELECT blocked FROM blocked_days WHERE tenant_id=$1 AND day=$2::date`, tenantID, day.Format("2006-01-02")).Scan(&b)
    if errors.Is(err, sql.ErrNoRows) { return false, nil }
    if err != nil { return false, err }
    return b, nil
}

func (p *Postgres) SetDayBlocked(ctx context.Context, tenantID string, day time.Time, blocked bool) error {
    _, err := p.db.ExecContext(ctx, `INSERT INTO blocked_days (tenant_id, day, blocked) VALUES ($1,$2::date,$3)
        ON CONFLICT (tenant_id, day) DO UPDATE SET blocked=$3`, tenantID, day.Format("2006-01-02"), blocked)
    return err
}

func (p *Postgres) UpdateScheduleStatus(ctx context.Context, tenantID, orderID string, status model.ScheduleStatus) (model.ScheduledOrder, error) {
    res, err := p.db.ExecContext(ctx, `UPDATE orders SET schedule_status=$1 WHERE tenant_id=$2 AND id=$3 AND scheduled_at IS NOT NULL`, string(status), tenantID, orderID)
    if err != nil { return model.ScheduledOrder{}, err }
    if n, _ := res.RowsAffected(); n == 0 { return model.ScheduledOrder{}, ErrOrderNotFound }
    _, so, err := p.GetOrder(ctx, tenantID, orderID)
    if err != nil { return model.ScheduledOrder{}, err }
    return *so, nil
}

func (p *Postgres) SetConflictFlag(ctx context.Context, tenantID, orderID string, hasConflict bool) error {
    res, err := p.db.ExecContext(ctx, `UPDATE orders SET has_conflict=$1 WHERE tenant_id=$2 AND id=$3`, hasConflict, tenantID, orderID)
    if err != nil { return err }
    if n, _ := res.RowsAffected(); n == 0 { return ErrOrderNotFound }
    return nil
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
    id := uuid.New().String()
    ev, _ := json.Marshal(req.Events)
    _, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, tenant_id, url, events, secret) VALUES ($1,$2,$3,$4,$5)`, id, req.TenantID, req.URL, ev, req.Secret)
    if err != nil { return model.Subscription{}, err }
    return model.Subscription{ID: id, TenantID: req.TenantID, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, tenantID, eventType string) ([]model.Subscription, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND events @> $2::jsonb`, tenantID, fmt.Sprintf("[%q]", eventType))
    if err != nil { return nil, err }
    defer rows.Close()
    out := []model.Subscription{}
    for rows.Next() {
        var s model.Subscription
        var events []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &events); err != nil { return nil, err }
        s.TenantID = tenantID
        _ = json.Unmarshal(events, &s.Events)
        out = append(out, s)
    }
    return out, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, tenantID, cursor string, limit int) ([]model.Subscription, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    var rows *sql.Rows
    var err error
    if cursor != "" {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 AND id::text > $2 ORDER BY id LIMIT $3`, tenantID, cursor, limit)
    } else {
        rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE tenant_id=$1 ORDER BY id LIMIT $2`, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    var out []model.Subscription
    var last string
    for rows.Next() {
        var s model.Subscription
        var ev []byte
        if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
        s.TenantID = tenantID
        _ = json.Unmarshal(ev, &s.Events)
        out = append(out, s)
        last = s.ID
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    return err
}

// Webhook deliveries
func (p *Postgres) EnqueueWebhook(ctx context.Context, tenantID, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
    id := uuid.New().String()
    _, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, tenant_id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,'pending',0,now())`, id, tenantID, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload)
    if err != nil { return "", err }
    return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
    rows, err := p.db.QueryContext(ctx, `SELECT id::text, tenant_id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
        FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()
    out := []WebhookDelivery{}
    for rows.Next() {
        var d WebhookDelivery
        if err := rows.Scan(&d.ID, &d.TenantID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &d.Payload, &d.Status, &d.Attempts); err != nil { return nil, err }
        out = append(out, d)
    }
    return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
    if !success {
        if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
        _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`, id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
        return err
    }
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`, id, responseCode, latencyMs)
    return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`, id, nullIfEmpty(lastError), responseCode, latencyMs)
    return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, tenantID, status, cursor string, limit int) ([]map[string]any, string, error) {
    if limit <= 0 || limit > 500 { limit = 100 }
    q := `SELECT id::text, event_type, status, attempts, next_attempt_at, COALESCE(last_error,''), url FROM webhook_deliveries WHERE tenant_id=$1`
    var rows *sql.Rows
    var err error
    if status != "" {
        q += ` AND status=$2 ORDER BY id LIMIT $3`
        rows, err = p.db.QueryContext(ctx, q, tenantID, status, limit)
    } else {
        q += ` ORDER BY id LIMIT $2`
        rows, err = p.db.QueryContext(ctx, q, tenantID, limit)
    }
    if err != nil { return nil, "", err }
    defer rows.Close()
    out := []map[string]any{}
    var last string
    for rows.Next() {
        var id, typ, st, lastErr, url string
        var attempts int
        var nextAt sql.NullTime
        if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
        m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
        if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
        if lastErr != "" { m["lastError"] = lastErr }
        out = append(out, m)
        last = id
    }
    next := ""
    if len(out) == limit { next = last }
    return out, next, nil
}

func (p *Postgres) RetryWebhookDelivery(ctx context.Context, tenantID, id string) error {
    _, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='pending', next_attempt_at=now() WHERE tenant_id=$1 AND id=$2`, tenantID, id)
    return err
}

func nullIfEmpty(s string) any {
    if s == "" { return nil }
    return s
}

func toJSON(v any) []byte {
    if v == nil { return []byte("null") }
    b, err := json.Marshal(v)
    if err != nil { return []byte("null") }
    return b
}

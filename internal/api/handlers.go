package api

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "net/http"
    "strings"
    "time"

    "tmsboard/internal/calendar"
    "tmsboard/internal/dragdrop"
    "tmsboard/internal/metrics"
    "tmsboard/internal/model"
    "tmsboard/internal/ordersource"
    "tmsboard/internal/store"
    "tmsboard/internal/timeline"
)

// OrdersHandler handles POST/GET /v1/orders
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
    switch r.Method {
    case http.MethodPost:
        var req struct {
            TenantID string          `json:"tenantId"`
            Orders   []model.OrderIn `json:"orders"`
        }
        if strings.HasPrefix(r.Header.Get("Content-Type"), "text/csv") {
            orders, err := ordersource.ParseCSV(r.Body)
            if err != nil {
                writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
                return
            }
            req.Orders = orders
        } else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" { _, req.TenantID = s.withTenant(r) }
        imp, created, skipped, err := s.Store.CreateOrders(r.Context(), req.TenantID, req.Orders)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create orders failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusAccepted, map[string]any{"importId": imp, "created": created, "skipped": skipped})
    case http.MethodGet:
        _, tenant := s.withTenant(r)
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListPendingOrders(r.Context(), tenant, cursor, limit)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "List orders failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// ResourcesHandler handles GET/POST /v1/resources
func (s *Server) ResourcesHandler(w http.ResponseWriter, r *http.Request) {
    _, tenant := s.withTenant(r)
    switch r.Method {
    case http.MethodGet:
        typ := model.ResourceType(strings.ToLower(r.URL.Query().Get("type")))
        if typ != "" && typ != model.ResourceVehicle && typ != model.ResourceDriver {
            writeProblem(w, http.StatusBadRequest, "Invalid type", "allowed: vehicle,driver", r.URL.Path)
            return
        }
        items, err := s.Store.ListResources(r.Context(), tenant, typ)
        if err != nil { writeProblem(w, 500, "List resources failed", err.Error(), r.URL.Path); return }
        writeJSON(w, http.StatusOK, map[string]any{"items": items})
    case http.MethodPost:
        pr := s.getPrincipal(r)
        if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
        var in model.Resource
        if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if in.Type != model.ResourceVehicle && in.Type != model.ResourceDriver {
            writeProblem(w, http.StatusBadRequest, "Invalid type", "allowed: vehicle,driver", r.URL.Path)
            return
        }
        res, err := s.Store.UpsertResource(r.Context(), tenant, in)
        if err != nil { writeProblem(w, 500, "Upsert resource failed", err.Error(), r.URL.Path); return }
        writeJSON(w, http.StatusCreated, res)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// BoardCalendarHandler handles GET /v1/board/calendar?view=&date=
func (s *Server) BoardCalendarHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    view, err := parseView(r.URL.Query().Get("view"))
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid view", err.Error(), r.URL.Path); return }
    ref, err := parseDate(r.URL.Query().Get("date"), time.Now())
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path); return }

    start, n := gridWindow(ref, view)
    data, err := s.Store.CalendarRange(r.Context(), tenant, start, start.AddDate(0, 0, n))
    if err != nil { writeProblem(w, 500, "Calendar query failed", err.Error(), r.URL.Path); return }
    cells := calendar.BuildGrid(ref, view, data)
    days := make([]calendar.DaySummary, 0, len(cells))
    for _, c := range cells { days = append(days, calendar.Summarize(c)) }
    writeJSON(w, http.StatusOK, map[string]any{
        "view": view,
        "date": ref.Format("2006-01-02"),
        "days": days,
    })
}

// gridWindow computes the dense fetch range backing a view.
func gridWindow(ref time.Time, view calendar.View) (time.Time, int) {
    switch view {
    case calendar.ViewDay:
        return calendar.DayStart(ref), 1
    case calendar.ViewWeek:
        return calendar.WeekStart(ref), 7
    default:
        y, m, _ := ref.Date()
        first := time.Date(y, m, 1, 0, 0, 0, 0, ref.Location())
        return calendar.WeekStart(first), calendar.MonthCells
    }
}

// BoardTimelineHandler handles GET /v1/board/timeline?date=&resourceType=&hourWidth=
func (s *Server) BoardTimelineHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    day, err := parseDate(r.URL.Query().Get("date"), time.Now())
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid date", err.Error(), r.URL.Path); return }
    typ, err := parseResourceType(r.URL.Query().Get("resourceType"))
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid resourceType", err.Error(), r.URL.Path); return }
    hourWidth := timeline.DefaultHourWidth
    if v := r.URL.Query().Get("hourWidth"); v != "" { fmt.Sscanf(v, "%d", &hourWidth) }
    if err := validateHourWidth(hourWidth); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid hourWidth", err.Error(), r.URL.Path)
        return
    }

    tls, err := s.Store.ResourceTimelines(r.Context(), tenant, day, typ)
    if err != nil { writeProblem(w, 500, "Timeline query failed", err.Error(), r.URL.Path); return }
    rows := make([]timeline.Row, 0, len(tls))
    for _, tl := range tls { rows = append(rows, timeline.Layout(tl, hourWidth)) }
    resp := map[string]any{
        "date":      day.Format("2006-01-02"),
        "hourWidth": hourWidth,
        "rows":      rows,
    }
    if now := time.Now(); calendar.SameDay(now, day) {
        resp["nowOffset"] = timeline.NowOffset(now, hourWidth)
    }
    writeJSON(w, http.StatusOK, resp)
}

// BoardGanttHandler handles GET /v1/board/gantt?start=&days=&resourceType=
func (s *Server) BoardGanttHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    ref, err := parseDate(r.URL.Query().Get("start"), time.Now())
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid start", err.Error(), r.URL.Path); return }
    typ, err := parseResourceType(r.URL.Query().Get("resourceType"))
    if err != nil { writeProblem(w, http.StatusBadRequest, "Invalid resourceType", err.Error(), r.URL.Path); return }
    days := 7
    if v := r.URL.Query().Get("days"); v != "" { fmt.Sscanf(v, "%d", &days) }
    if days < 1 || days > 31 {
        writeProblem(w, http.StatusBadRequest, "Invalid days", "days must be in [1,31]", r.URL.Path)
        return
    }

    start := calendar.WeekStart(ref)
    if r.URL.Query().Get("start") != "" { start = calendar.DayStart(ref) }
    rows, err := s.Store.GanttRows(r.Context(), tenant, start, days, typ)
    if err != nil { writeProblem(w, 500, "Gantt query failed", err.Error(), r.URL.Path); return }
    out := make([]map[string]any, 0, len(rows))
    for _, row := range rows {
        out = append(out, map[string]any{"resource": row.Resource, "cells": timeline.AggregateGantt(row.Days)})
    }
    writeJSON(w, http.StatusOK, map[string]any{
        "start": start.Format("2006-01-02"),
        "days":  days,
        "rows":  out,
    })
}

// BoardDropHandler handles POST /v1/board/drop: a drag payload landing on a
// calendar date or a resource hour slot.
func (s *Server) BoardDropHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    pr := s.getPrincipal(r)
    if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
    _, tenant := s.withTenant(r)

    var req struct {
        Payload json.RawMessage  `json:"payload"`
        Target  model.DropTarget `json:"target"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        metrics.RejectedDrops.WithLabelValues("body").Inc()
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    env, err := dragdrop.Decode(req.Payload)
    if err != nil {
        metrics.RejectedDrops.WithLabelValues(dropRejectReason(err)).Inc()
        writeProblem(w, http.StatusBadRequest, "Invalid drop payload", err.Error(), r.URL.Path)
        return
    }
    if err := validateDropTarget(req.Target); err != nil {
        metrics.RejectedDrops.WithLabelValues("target").Inc()
        writeProblem(w, http.StatusBadRequest, "Invalid drop target", err.Error(), r.URL.Path)
        return
    }

    day, _ := time.ParseInLocation("2006-01-02", req.Target.Date, time.Local)
    at := day
    switch {
    case req.Target.Hour != nil:
        at = day.Add(time.Duration(*req.Target.Hour) * time.Hour)
    case env.Kind == dragdrop.KindScheduled:
        // A bare date drop keeps the order's existing time of day.
        prev := env.Scheduled.ScheduledAt
        at = day.Add(time.Duration(prev.Hour())*time.Hour + time.Duration(prev.Minute())*time.Minute)
    }

    so, err := s.Store.RescheduleOrder(r.Context(), tenant, env.OrderID(), at, req.Target.ResourceID, req.Target.ResourceType)
    if err != nil {
        switch {
        case errors.Is(err, store.ErrDayBlocked):
            metrics.RejectedDrops.WithLabelValues("blocked_day").Inc()
            writeProblem(w, http.StatusConflict, "Day is blocked", err.Error(), r.URL.Path)
        case errors.Is(err, store.ErrOrderNotFound):
            metrics.RejectedDrops.WithLabelValues("unknown_order").Inc()
            writeProblem(w, http.StatusNotFound, "Order not found", err.Error(), r.URL.Path)
        default:
            writeProblem(w, http.StatusInternalServerError, "Drop failed", err.Error(), r.URL.Path)
        }
        return
    }
    s.Pub.OrderDropped(r.Context(), tenant, so, req.Target)
    s.Broker.Publish(tenant, SSEEvent{Type: "order.dropped", Data: map[string]any{
        "orderId": so.ID, "scheduledAt": so.ScheduledAt.Format(time.RFC3339), "target": req.Target,
    }})
    writeJSON(w, http.StatusOK, map[string]any{"order": so})
}

func dropRejectReason(err error) string {
    switch {
    case errors.Is(err, dragdrop.ErrVersion):
        return "version"
    case errors.Is(err, dragdrop.ErrKind):
        return "kind"
    case errors.Is(err, dragdrop.ErrEmpty):
        return "empty"
    default:
        return "malformed"
    }
}

// BoardEventsStreamHandler handles GET /v1/board/events/stream (SSE).
func (s *Server) BoardEventsStreamHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
    _, tenant := s.withTenant(r)
    flusher, ok := w.(http.Flusher)
    if !ok { writeProblem(w, 500, "Streaming unsupported", "", r.URL.Path); return }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("Connection", "keep-alive")
    ch := s.Broker.Subscribe(tenant)
    defer s.Broker.Unsubscribe(tenant, ch)
    // initial heartbeat
    fmt.Fprintf(w, "event: heartbeat\n")
    fmt.Fprintf(w, "data: {\"tenantId\":\"%s\",\"ts\":\"%s\"}\n\n", tenant, time.Now().Format(time.RFC3339))
    flusher.Flush()
    notify := r.Context().Done()
    for {
        select {
        case <-notify:
            return
        case evt := <-ch:
            b, _ := json.Marshal(evt.Data)
            fmt.Fprintf(w, "event: %s\n", evt.Type)
            fmt.Fprintf(w, "data: %s\n\n", string(b))
            flusher.Flush()
        case <-time.After(15 * time.Second):
            fmt.Fprintf(w, "event: heartbeat\n")
            fmt.Fprintf(w, "data: {\"tenantId\":\"%s\",\"ts\":\"%s\"}\n\n", tenant, time.Now().Format(time.RFC3339))
            flusher.Flush()
        }
    }
}

// DayBlockHandler handles POST /v1/days/{date}/block
func (s *Server) DayBlockHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/days/") || !strings.HasSuffix(r.URL.Path, "/block") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    pr := s.getPrincipal(r)
    if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
    dateStr := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/days/"), "/block")
    day, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
    if err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid date", "want YYYY-MM-DD", r.URL.Path)
        return
    }
    var body struct {
        Blocked *bool `json:"blocked"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    blocked := true
    if body.Blocked != nil { blocked = *body.Blocked }
    _, tenant := s.withTenant(r)
    if err := s.Store.SetDayBlocked(r.Context(), tenant, day, blocked); err != nil {
        writeProblem(w, http.StatusInternalServerError, "Block day failed", err.Error(), r.URL.Path)
        return
    }
    s.Pub.DayBlocked(r.Context(), tenant, day, blocked)
    s.Broker.Publish(tenant, SSEEvent{Type: "day.blocked", Data: map[string]any{"date": dateStr, "blocked": blocked}})
    writeJSON(w, http.StatusOK, map[string]any{"date": dateStr, "blocked": blocked})
}

// OrderStatusHandler handles POST /v1/orders/{id}/status
func (s *Server) OrderStatusHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/orders/") || !strings.HasSuffix(r.URL.Path, "/status") {
        writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        return
    }
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    pr := s.getPrincipal(r)
    if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/orders/"), "/status")
    var body struct {
        Status model.ScheduleStatus `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    switch body.Status {
    case model.SchedulePending, model.ScheduleReady, model.ScheduleInTransit, model.ScheduleCompleted:
    default:
        writeProblem(w, http.StatusBadRequest, "Invalid status", string(body.Status), r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)
    so, err := s.Store.UpdateScheduleStatus(r.Context(), tenant, id, body.Status)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Order not found", err.Error(), r.URL.Path)
        return
    }
    s.Broker.Publish(tenant, SSEEvent{Type: "order.status", Data: map[string]any{"orderId": so.ID, "status": so.Status}})
    writeJSON(w, http.StatusOK, so)
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    switch r.Method {
    case http.MethodPost:
        var req model.SubscriptionRequest
        if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        if req.TenantID == "" { req.TenantID = p.Tenant }
        if req.URL == "" || len(req.Events) == 0 {
            writeProblem(w, http.StatusBadRequest, "Missing fields", "url and events required", r.URL.Path)
            return
        }
        sub, err := s.Store.CreateSubscription(r.Context(), req)
        if err != nil {
            writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
            return
        }
        writeJSON(w, http.StatusCreated, sub)
    case http.MethodGet:
        cursor := r.URL.Query().Get("cursor")
        limit := 100
        if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
        items, next, err := s.Store.ListSubscriptions(r.Context(), p.Tenant, cursor, limit)
        if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
        writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodDelete { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
    if err := s.Store.DeleteSubscription(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path); return }
    w.WriteHeader(204)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
    if r.URL.Path != "/v1/admin/webhook-deliveries" { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    if r.Method != http.MethodGet { w.WriteHeader(405); return }
    status := r.URL.Query().Get("status")
    cursor := r.URL.Query().Get("cursor")
    limit := 100
    if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
    items, next, err := s.Store.ListWebhookDeliveries(r.Context(), p.Tenant, status, cursor, limit)
    if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
    if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
    if r.Method != http.MethodPost { w.WriteHeader(405); return }
    p := s.getPrincipal(r)
    if !p.IsAdmin() { writeProblem(w, 403, "Forbidden", "admin required", r.URL.Path); return }
    id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
    if err := s.Store.RetryWebhookDelivery(r.Context(), p.Tenant, id); err != nil { writeProblem(w, 500, "Retry delivery failed", err.Error(), r.URL.Path); return }
    writeJSON(w, 202, map[string]int{"accepted": 1})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
    // Check DB connectivity when using Postgres store
    type pinger interface{ Ping(ctx context.Context) error }
    if pg, ok := s.Store.(pinger); ok {
        ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
        defer cancel()
        if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
    }
    writeJSON(w, 200, map[string]string{"status": "ready"})
}

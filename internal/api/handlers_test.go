package api

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "tmsboard/internal/dragdrop"
    "tmsboard/internal/model"
    "tmsboard/internal/planner"
    "tmsboard/internal/session"
    "tmsboard/internal/store"
    "tmsboard/internal/webhooks"
)

func newTestServer() *Server {
    mem := store.NewMemory()
    flags := model.FeatureFlags{EnableAutoSuggestion: true, EnableHOSValidation: true}
    return &Server{
        Store:    mem,
        Pub:      webhooks.NewPublisher(mem),
        Broker:   NewBroker(),
        Sessions: session.NewManager(flags),
        Planner: planner.Static{Resources: func(ctx context.Context, tenantID string) ([]model.Resource, error) {
            return mem.ListResources(ctx, tenantID, "")
        }},
        Flags: flags,
    }
}

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body any) *httptest.ResponseRecorder {
    t.Helper()
    var rd *bytes.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { t.Fatalf("marshal: %v", err) }
        rd = bytes.NewReader(b)
    } else {
        rd = bytes.NewReader(nil)
    }
    req := httptest.NewRequest(method, path, rd)
    req.Header.Set("Content-Type", "application/json")
    rec := httptest.NewRecorder()
    h(rec, req)
    return rec
}

func TestHealthReady(t *testing.T) {
    s := newTestServer()
    if rec := doJSON(t, s.HealthHandler, http.MethodGet, "/healthz", nil); rec.Code != 200 {
        t.Fatalf("healthz = %d", rec.Code)
    }
    if rec := doJSON(t, s.ReadyHandler, http.MethodGet, "/readyz", nil); rec.Code != 200 {
        t.Fatalf("readyz = %d", rec.Code)
    }
}

func TestOrdersCreateListPending(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.OrdersHandler, http.MethodPost, "/v1/orders", map[string]any{
        "orders": []model.OrderIn{
            {OrderNumber: "ORD-1"},
            {OrderNumber: "ORD-2", ScheduledAt: "2025-06-02T09:00:00Z"},
        },
    })
    if rec.Code != http.StatusAccepted {
        t.Fatalf("create = %d body=%s", rec.Code, rec.Body.String())
    }
    rec = doJSON(t, s.OrdersHandler, http.MethodGet, "/v1/orders", nil)
    if rec.Code != 200 {
        t.Fatalf("list = %d", rec.Code)
    }
    var resp struct {
        Items []model.Order `json:"items"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if len(resp.Items) != 1 || resp.Items[0].OrderNumber != "ORD-1" {
        t.Fatalf("pending items = %+v", resp.Items)
    }
}

func TestOrdersCSVImport(t *testing.T) {
    s := newTestServer()
    csv := "orderNumber,externalRef,priority,customer,scheduledAt,estimatedHours,notes\n" +
        "ORD-9,ext-9,high,Acme,,3,\n"
    req := httptest.NewRequest(http.MethodPost, "/v1/orders", strings.NewReader(csv))
    req.Header.Set("Content-Type", "text/csv")
    rec := httptest.NewRecorder()
    s.OrdersHandler(rec, req)
    if rec.Code != http.StatusAccepted {
        t.Fatalf("csv import = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Created int `json:"created"`
    }
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if resp.Created != 1 {
        t.Fatalf("created = %d", resp.Created)
    }
}

func seedScheduled(t *testing.T, s *Server, orderNum string, at time.Time, hours float64) model.ScheduledOrder {
    t.Helper()
    ctx := context.Background()
    _, _, _, err := s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: orderNum, ScheduledAt: at.Format(time.RFC3339), EstimatedHours: hours}})
    if err != nil { t.Fatalf("seed: %v", err) }
    days, err := s.Store.CalendarRange(ctx, "t_demo", at.AddDate(0, 0, -1), at.AddDate(0, 0, 1))
    if err != nil || len(days) == 0 { t.Fatalf("seed lookup: %v", err) }
    for _, o := range days[len(days)-1].Orders {
        if o.OrderNumber == orderNum { return o }
    }
    t.Fatalf("seeded order not found")
    return model.ScheduledOrder{}
}

func TestCalendarEndpointMonthGrid(t *testing.T) {
    s := newTestServer()
    at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.Local)
    seedScheduled(t, s, "ORD-1", at, 4)
    rec := doJSON(t, s.BoardCalendarHandler, http.MethodGet, "/v1/board/calendar?view=month&date=2025-06-15", nil)
    if rec.Code != 200 {
        t.Fatalf("calendar = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Days []struct {
            Date          string                 `json:"date"`
            VisibleOrders []model.ScheduledOrder `json:"visibleOrders"`
        } `json:"days"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if len(resp.Days) != 42 {
        t.Fatalf("month grid = %d cells", len(resp.Days))
    }
    // June 1 2025 is a Sunday, so the grid starts on it.
    if !strings.HasPrefix(resp.Days[0].Date, "2025-06-01") {
        t.Fatalf("grid start = %s", resp.Days[0].Date)
    }
    found := false
    for _, d := range resp.Days {
        if len(d.VisibleOrders) > 0 && d.VisibleOrders[0].OrderNumber == "ORD-1" { found = true }
    }
    if !found { t.Fatalf("seeded order missing from grid") }
}

func TestCalendarEndpointRejectsBadView(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.BoardCalendarHandler, http.MethodGet, "/v1/board/calendar?view=year", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("bad view = %d", rec.Code)
    }
}

func TestTimelineEndpoint(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _ = s.Store.UpsertResource(ctx, "t_demo", model.Resource{ID: "v1", Type: model.ResourceVehicle, Name: "Truck 1", Active: true})
    at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    if _, err := s.Store.RescheduleOrder(ctx, "t_demo", so.ID, at, "v1", model.ResourceVehicle); err != nil {
        t.Fatalf("assign: %v", err)
    }
    rec := doJSON(t, s.BoardTimelineHandler, http.MethodGet, "/v1/board/timeline?date=2025-06-02&hourWidth=100", nil)
    if rec.Code != 200 {
        t.Fatalf("timeline = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Rows []struct {
            Bars []struct {
                Geometry struct {
                    Left  float64 `json:"left"`
                    Width float64 `json:"width"`
                } `json:"geometry"`
            } `json:"bars"`
            HasData bool `json:"hasData"`
        } `json:"rows"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if len(resp.Rows) != 1 || !resp.Rows[0].HasData || len(resp.Rows[0].Bars) != 1 {
        t.Fatalf("rows = %+v", resp.Rows)
    }
    g := resp.Rows[0].Bars[0].Geometry
    // 09:30 on a 100px grid -> 950px; 2h -> 196px after the gutter.
    if g.Left != 950 || g.Width != 196 {
        t.Fatalf("geometry = %+v", g)
    }
}

func TestTimelineRejectsBadHourWidth(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.BoardTimelineHandler, http.MethodGet, "/v1/board/timeline?hourWidth=4", nil)
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("hourWidth=4 -> %d", rec.Code)
    }
}

func TestGanttEndpoint(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _ = s.Store.UpsertResource(ctx, "t_demo", model.Resource{ID: "v1", Type: model.ResourceVehicle, Name: "Truck 1", Active: true})
    at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 4)
    if _, err := s.Store.RescheduleOrder(ctx, "t_demo", so.ID, at, "v1", model.ResourceVehicle); err != nil {
        t.Fatalf("assign: %v", err)
    }
    rec := doJSON(t, s.BoardGanttHandler, http.MethodGet, "/v1/board/gantt?start=2025-06-02&days=5", nil)
    if rec.Code != 200 {
        t.Fatalf("gantt = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Rows []struct {
            Cells []struct {
                BarPercent float64 `json:"barPercent"`
                Level      string  `json:"utilizationLevel"`
                OrderCount int     `json:"orderCount"`
            } `json:"cells"`
        } `json:"rows"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if len(resp.Rows) != 1 || len(resp.Rows[0].Cells) != 5 {
        t.Fatalf("rows = %+v", resp.Rows)
    }
    cell := resp.Rows[0].Cells[0]
    // 4h of an 8h workday -> 50%, medium.
    if cell.OrderCount != 1 || cell.BarPercent != 50 || cell.Level != "medium" {
        t.Fatalf("cell = %+v", cell)
    }
}

func TestDropReschedulesOrder(t *testing.T) {
    s := newTestServer()
    at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    payload, _ := dragdrop.EncodeScheduled(so)
    hour := 14
    rec := doJSON(t, s.BoardDropHandler, http.MethodPost, "/v1/board/drop", map[string]any{
        "payload": json.RawMessage(payload),
        "target":  model.DropTarget{Date: "2025-06-05", ResourceID: "v1", ResourceType: model.ResourceVehicle, Hour: &hour},
    })
    if rec.Code != 200 {
        t.Fatalf("drop = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Order model.ScheduledOrder `json:"order"`
    }
    if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil { t.Fatalf("decode: %v", err) }
    if resp.Order.ScheduledAt.Hour() != 14 || resp.Order.VehicleID != "v1" {
        t.Fatalf("rescheduled = %+v", resp.Order)
    }
}

func TestDropKeepsTimeOfDayOnBareDate(t *testing.T) {
    s := newTestServer()
    at := time.Date(2025, 6, 2, 9, 30, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    payload, _ := dragdrop.EncodeScheduled(so)
    rec := doJSON(t, s.BoardDropHandler, http.MethodPost, "/v1/board/drop", map[string]any{
        "payload": json.RawMessage(payload),
        "target":  model.DropTarget{Date: "2025-06-05"},
    })
    if rec.Code != 200 {
        t.Fatalf("drop = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Order model.ScheduledOrder `json:"order"`
    }
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if resp.Order.ScheduledAt.Hour() != 9 || resp.Order.ScheduledAt.Minute() != 30 {
        t.Fatalf("time of day not kept: %v", resp.Order.ScheduledAt)
    }
}

func TestDropRejectsBadEnvelopeVersion(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.BoardDropHandler, http.MethodPost, "/v1/board/drop", map[string]any{
        "payload": json.RawMessage(`{"v":2,"kind":"pending","order":{"id":"o1"}}`),
        "target":  model.DropTarget{Date: "2025-06-05"},
    })
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("bad version = %d", rec.Code)
    }
}

func TestDropOnBlockedDayConflicts(t *testing.T) {
    s := newTestServer()
    at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    day := time.Date(2025, 6, 5, 0, 0, 0, 0, time.Local)
    if err := s.Store.SetDayBlocked(context.Background(), "t_demo", day, true); err != nil {
        t.Fatalf("block: %v", err)
    }
    payload, _ := dragdrop.EncodeScheduled(so)
    rec := doJSON(t, s.BoardDropHandler, http.MethodPost, "/v1/board/drop", map[string]any{
        "payload": json.RawMessage(payload),
        "target":  model.DropTarget{Date: "2025-06-05"},
    })
    if rec.Code != http.StatusConflict {
        t.Fatalf("blocked drop = %d body=%s", rec.Code, rec.Body.String())
    }
}

func TestDayBlockEndpoint(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.DayBlockHandler, http.MethodPost, "/v1/days/2025-06-05/block", map[string]any{"blocked": true})
    if rec.Code != 200 {
        t.Fatalf("block = %d body=%s", rec.Code, rec.Body.String())
    }
    rec = doJSON(t, s.BoardCalendarHandler, http.MethodGet, "/v1/board/calendar?view=day&date=2025-06-05", nil)
    var resp struct {
        Days []struct {
            IsBlocked bool `json:"isBlocked"`
        } `json:"days"`
    }
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if len(resp.Days) != 1 || !resp.Days[0].IsBlocked {
        t.Fatalf("days = %+v", resp.Days)
    }
}

func openSession(t *testing.T, s *Server, orderID string) session.View {
    t.Helper()
    rec := doJSON(t, s.SessionsHandler, http.MethodPost, "/v1/assignment-sessions", map[string]string{"orderId": orderID})
    if rec.Code != http.StatusCreated {
        t.Fatalf("open session = %d body=%s", rec.Code, rec.Body.String())
    }
    var v session.View
    if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil { t.Fatalf("decode: %v", err) }
    return v
}

// waitCanSubmit polls until the async HOS result lands on the session.
func waitCanSubmit(t *testing.T, s *Server, id string) session.View {
    t.Helper()
    deadline := time.Now().Add(2 * time.Second)
    for time.Now().Before(deadline) {
        v, err := s.Sessions.Get(id)
        if err != nil { t.Fatalf("get session: %v", err) }
        if v.CanSubmit {
            return v
        }
        time.Sleep(10 * time.Millisecond)
    }
    v, _ := s.Sessions.Get(id)
    t.Fatalf("session never became submittable: %+v", v)
    return v
}

func TestSessionLifecycleConfirm(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _ = s.Store.UpsertResource(ctx, "t_demo", model.Resource{ID: "v1", Type: model.ResourceVehicle, Name: "Truck 1", Active: true})
    _, _ = s.Store.UpsertResource(ctx, "t_demo", model.Resource{ID: "d1", Type: model.ResourceDriver, Name: "Pat", Active: true})
    _, _, _, _ = s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: "ORD-1"}})
    pending, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10)

    v := openSession(t, s, pending[0].ID)
    if v.State != session.StateEditing || v.CanSubmit {
        t.Fatalf("opened view = %+v", v)
    }

    rec := doJSON(t, s.SessionByIDHandler, http.MethodPatch, "/v1/assignment-sessions/"+v.ID, map[string]any{
        "vehicleId": "v1", "driverId": "d1", "scheduledDate": "2025-06-05", "scheduledTime": "09:00",
    })
    if rec.Code != 200 {
        t.Fatalf("patch = %d body=%s", rec.Code, rec.Body.String())
    }

    waitCanSubmit(t, s, v.ID)
    rec = doJSON(t, s.SessionByIDHandler, http.MethodPost, "/v1/assignment-sessions/"+v.ID+"/confirm", nil)
    if rec.Code != 200 {
        t.Fatalf("confirm = %d body=%s", rec.Code, rec.Body.String())
    }
    var resp struct {
        Order model.ScheduledOrder `json:"order"`
    }
    _ = json.Unmarshal(rec.Body.Bytes(), &resp)
    if resp.Order.VehicleID != "v1" || resp.Order.DriverID != "d1" || resp.Order.Status != model.ScheduleReady {
        t.Fatalf("confirmed order = %+v", resp.Order)
    }
    if left, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10); len(left) != 0 {
        t.Fatalf("order still pending after confirm")
    }
}

func TestSessionConfirmGateRejectsIncomplete(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _, _, _ = s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: "ORD-1"}})
    pending, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10)
    v := openSession(t, s, pending[0].ID)
    rec := doJSON(t, s.SessionByIDHandler, http.MethodPost, "/v1/assignment-sessions/"+v.ID+"/confirm", nil)
    if rec.Code != http.StatusConflict {
        t.Fatalf("gated confirm = %d body=%s", rec.Code, rec.Body.String())
    }
}

func TestSessionApplySuggestion(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _, _, _ = s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: "ORD-1"}})
    pending, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10)
    v := openSession(t, s, pending[0].ID)
    rec := doJSON(t, s.SessionByIDHandler, http.MethodPost, "/v1/assignment-sessions/"+v.ID+"/suggestions/apply", model.Suggestion{
        ResourceID: "v7", Type: model.ResourceVehicle, Name: "Truck 7", Score: 90,
    })
    if rec.Code != 200 {
        t.Fatalf("apply = %d body=%s", rec.Code, rec.Body.String())
    }
    var got session.View
    _ = json.Unmarshal(rec.Body.Bytes(), &got)
    if got.VehicleID != "v7" {
        t.Fatalf("view = %+v", got)
    }
}

func TestSessionDeleteCloses(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _, _, _ = s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: "ORD-1"}})
    pending, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10)
    v := openSession(t, s, pending[0].ID)
    rec := doJSON(t, s.SessionByIDHandler, http.MethodDelete, "/v1/assignment-sessions/"+v.ID, nil)
    if rec.Code != http.StatusNoContent {
        t.Fatalf("delete = %d", rec.Code)
    }
    rec = doJSON(t, s.SessionByIDHandler, http.MethodGet, "/v1/assignment-sessions/"+v.ID, nil)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("get after delete = %d", rec.Code)
    }
}

func TestSessionTenantIsolation(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _, _, _ = s.Store.CreateOrders(ctx, "t_demo", []model.OrderIn{{OrderNumber: "ORD-1"}})
    pending, _, _ := s.Store.ListPendingOrders(ctx, "t_demo", "", 10)
    v := openSession(t, s, pending[0].ID)

    req := httptest.NewRequest(http.MethodGet, "/v1/assignment-sessions/"+v.ID, nil)
    req.Header.Set("X-Tenant-Id", "t_other")
    rec := httptest.NewRecorder()
    s.SessionByIDHandler(rec, req)
    if rec.Code != http.StatusNotFound {
        t.Fatalf("cross-tenant get = %d", rec.Code)
    }
}

func TestEventsStreamHeartbeat(t *testing.T) {
    s := newTestServer()
    srv := httptest.NewServer(http.HandlerFunc(s.BoardEventsStreamHandler))
    defer srv.Close()
    ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
    defer cancel()
    req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/board/events/stream", nil)
    resp, err := http.DefaultClient.Do(req)
    if err != nil { t.Fatalf("get: %v", err) }
    defer func() { _ = resp.Body.Close() }()
    if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
        t.Fatalf("content type = %s", ct)
    }
    buf := make([]byte, 256)
    n, _ := resp.Body.Read(buf)
    if !strings.Contains(string(buf[:n]), "event: heartbeat") {
        t.Fatalf("first frame = %q", string(buf[:n]))
    }
}

func TestSubscriptionsCRUD(t *testing.T) {
    s := newTestServer()
    rec := doJSON(t, s.SubscriptionsHandler, http.MethodPost, "/v1/subscriptions", model.SubscriptionRequest{
        URL: "http://example/hook", Events: []string{"order.dropped"}, Secret: "sec",
    })
    if rec.Code != http.StatusCreated {
        t.Fatalf("create = %d body=%s", rec.Code, rec.Body.String())
    }
    var sub model.Subscription
    _ = json.Unmarshal(rec.Body.Bytes(), &sub)
    rec = doJSON(t, s.SubscriptionsHandler, http.MethodGet, "/v1/subscriptions", nil)
    if rec.Code != 200 || !strings.Contains(rec.Body.String(), sub.ID) {
        t.Fatalf("list = %d body=%s", rec.Code, rec.Body.String())
    }
    rec = doJSON(t, s.SubscriptionByIDHandler, http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil)
    if rec.Code != http.StatusNoContent {
        t.Fatalf("delete = %d", rec.Code)
    }
}

func TestDropEnqueuesWebhook(t *testing.T) {
    s := newTestServer()
    ctx := context.Background()
    _, _ = s.Store.CreateSubscription(ctx, model.SubscriptionRequest{TenantID: "t_demo", URL: "http://example/hook", Events: []string{webhooks.EventOrderDropped}})
    at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    payload, _ := dragdrop.EncodeScheduled(so)
    rec := doJSON(t, s.BoardDropHandler, http.MethodPost, "/v1/board/drop", map[string]any{
        "payload": json.RawMessage(payload),
        "target":  model.DropTarget{Date: "2025-06-06"},
    })
    if rec.Code != 200 {
        t.Fatalf("drop = %d body=%s", rec.Code, rec.Body.String())
    }
    due, err := s.Store.FetchDueWebhookDeliveries(ctx, 10)
    if err != nil || len(due) != 1 || due[0].EventType != webhooks.EventOrderDropped {
        t.Fatalf("due = %+v err = %v", due, err)
    }
}

func TestOrderStatusEndpoint(t *testing.T) {
    s := newTestServer()
    at := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
    so := seedScheduled(t, s, "ORD-1", at, 2)
    rec := doJSON(t, s.OrderStatusHandler, http.MethodPost, fmt.Sprintf("/v1/orders/%s/status", so.ID), map[string]string{"status": "in_transit"})
    if rec.Code != 200 {
        t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
    }
    var got model.ScheduledOrder
    _ = json.Unmarshal(rec.Body.Bytes(), &got)
    if got.Status != model.ScheduleInTransit {
        t.Fatalf("status = %s", got.Status)
    }
}

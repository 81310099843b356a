package dragdrop

import (
    "errors"
    "reflect"
    "testing"
    "time"

    "tmsboard/internal/model"
)

func TestPendingRoundTrip(t *testing.T) {
    o := model.Order{
        ID:          "ord_1",
        TenantID:    "t_test",
        OrderNumber: "SO-1001",
        Priority:    model.PriorityUrgent,
        Customer:    "Acme Freight",
        Milestones:  []model.Milestone{{Type: "destination", Address: "12 Dock Rd"}},
        Notes:       "fragile",
    }
    b, err := EncodePending(o)
    if err != nil { t.Fatalf("encode: %v", err) }
    env, err := Decode(b)
    if err != nil { t.Fatalf("decode: %v", err) }
    if env.Kind != KindPending { t.Fatalf("kind: %s", env.Kind) }
    if !reflect.DeepEqual(*env.Pending, o) {
        t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *env.Pending, o)
    }
}

func TestScheduledRoundTrip(t *testing.T) {
    o := model.ScheduledOrder{
        Order:          model.Order{ID: "ord_2", TenantID: "t_test", VehicleID: "v1", DriverID: "d1"},
        ScheduledAt:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
        EstimatedHours: 2,
        Status:         model.ScheduleReady,
        HasConflict:    true,
    }
    b, err := EncodeScheduled(o)
    if err != nil { t.Fatalf("encode: %v", err) }
    env, err := Decode(b)
    if err != nil { t.Fatalf("decode: %v", err) }
    if !reflect.DeepEqual(*env.Scheduled, o) {
        t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *env.Scheduled, o)
    }
    if env.OrderID() != "ord_2" { t.Fatalf("order id: %s", env.OrderID()) }
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
    _, err := Decode([]byte(`{"v":2,"kind":"pending","order":{"id":"x","tenantId":"t"}}`))
    if !errors.Is(err, ErrVersion) {
        t.Fatalf("want ErrVersion, got %v", err)
    }
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
    _, err := Decode([]byte(`{"v":1,"kind":"mystery","order":{"id":"x","tenantId":"t"}}`))
    if !errors.Is(err, ErrKind) {
        t.Fatalf("want ErrKind, got %v", err)
    }
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
    if _, err := Decode([]byte(`{"v":1,`)); err == nil {
        t.Fatal("malformed payload must not decode")
    }
}

func TestDecodeRejectsMissingOrder(t *testing.T) {
    _, err := Decode([]byte(`{"v":1,"kind":"pending"}`))
    if !errors.Is(err, ErrEmpty) {
        t.Fatalf("want ErrEmpty, got %v", err)
    }
}

package session

import (
    "errors"
    "testing"
    "time"

    "tmsboard/internal/model"
)

func strp(s string) *string { return &s }

func openPending(t *testing.T, m *Manager) View {
    t.Helper()
    v, _, err := m.Open("t_test", &model.Order{ID: "ord_1", TenantID: "t_test", OrderNumber: "SO-1"}, nil, time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local))
    if err != nil { t.Fatalf("open: %v", err) }
    if v.State != StateEditing { t.Fatalf("state after open: %s", v.State) }
    return v
}

func TestOpenSeedsFromScheduledOrder(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    so := &model.ScheduledOrder{
        Order:          model.Order{ID: "ord_2", VehicleID: "v9", DriverID: "d9", Notes: "keep cold"},
        ScheduledAt:    time.Date(2025, 6, 3, 14, 30, 0, 0, time.Local),
        EstimatedHours: 3,
    }
    v, _, err := m.Open("t_test", nil, so, time.Now())
    if err != nil { t.Fatalf("open: %v", err) }
    if v.VehicleID != "v9" || v.DriverID != "d9" {
        t.Fatalf("assignment not seeded: %+v", v)
    }
    if v.Date != "2025-06-03" || v.Time != "14:30" {
        t.Fatalf("schedule not seeded: %s %s", v.Date, v.Time)
    }
    if v.EstimatedHours != 3 { t.Fatalf("duration: %v", v.EstimatedHours) }
}

func TestOpenPendingDefaultsToToday(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local)
    v, _, err := m.Open("t_test", &model.Order{ID: "ord_1"}, nil, now)
    if err != nil { t.Fatalf("open: %v", err) }
    if v.Date != "2025-06-01" { t.Fatalf("date default: %s", v.Date) }
    if v.EstimatedHours != model.DefaultEstimatedHours {
        t.Fatalf("duration default: %v", v.EstimatedHours)
    }
}

func TestHOSGateBlocksAndUnblocks(t *testing.T) {
    m := NewManager(model.FeatureFlags{EnableHOSValidation: true})
    v := openPending(t, m)
    _, _, err := m.Apply(v.ID, Update{VehicleID: strp("v1"), DriverID: strp("d1"), Date: strp("2025-06-01")})
    if err != nil { t.Fatalf("apply: %v", err) }

    m.SetHOS(v.ID, model.HOSResult{IsValid: false, RemainingHoursToday: 0, WeeklyHoursUsed: 60})
    got, _ := m.Get(v.ID)
    if got.CanSubmit { t.Fatal("invalid HOS must block submission") }

    m.SetHOS(v.ID, model.HOSResult{IsValid: true, RemainingHoursToday: 6, WeeklyHoursUsed: 40})
    got, _ = m.Get(v.ID)
    if !got.CanSubmit { t.Fatal("valid HOS with all fields set must allow submission") }
}

func TestHighSeverityConflictBlocks(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    _, _, _ = m.Apply(v.ID, Update{VehicleID: strp("v1"), DriverID: strp("d1"), Date: strp("2025-06-01")})

    m.SetConflicts(v.ID, []model.Conflict{{ID: "c1", Severity: model.SeverityHigh, Message: "double booked"}})
    got, _ := m.Get(v.ID)
    if got.CanSubmit { t.Fatal("high severity conflict must block") }

    m.SetConflicts(v.ID, []model.Conflict{{ID: "c2", Severity: model.SeverityLow, Message: "tight window"}})
    got, _ = m.Get(v.ID)
    if !got.CanSubmit { t.Fatal("low severity conflict is advisory only") }
}

func TestRequiredFieldsGate(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    got, _ := m.Get(v.ID)
    if got.CanSubmit { t.Fatal("no vehicle/driver yet") }
    _, _, _ = m.Apply(v.ID, Update{VehicleID: strp("v1")})
    if got, _ = m.Get(v.ID); got.CanSubmit { t.Fatal("driver missing") }
    _, _, _ = m.Apply(v.ID, Update{DriverID: strp("d1")})
    if got, _ = m.Get(v.ID); !got.CanSubmit { t.Fatal("all required fields set") }
}

func TestSuggestionDedup(t *testing.T) {
    m := NewManager(model.FeatureFlags{EnableAutoSuggestion: true})
    // Open issues the first request for (order, today)
    v, trig, err := m.Open("t_test", &model.Order{ID: "ord_1"}, nil, time.Now())
    if err != nil { t.Fatalf("open: %v", err) }
    if !trig.Suggest { t.Fatal("open must trigger the first suggestion fetch") }

    // Same (order, date): no second request
    _, trig, _ = m.Apply(v.ID, Update{VehicleID: strp("v1")})
    if trig.Suggest { t.Fatal("unchanged date must not re-trigger") }

    // Different date: new request
    _, trig, _ = m.Apply(v.ID, Update{Date: strp("2025-07-04")})
    if !trig.Suggest { t.Fatal("date change must trigger") }

    // Minute-level change moves the key too
    _, trig, _ = m.Apply(v.ID, Update{Time: strp("09:31")})
    if !trig.Suggest { t.Fatal("time change must trigger") }
    _, trig, _ = m.Apply(v.ID, Update{Time: strp("09:31")})
    if trig.Suggest { t.Fatal("identical time must not re-trigger") }
}

func TestHOSTriggerOnDriverScheduleChange(t *testing.T) {
    m := NewManager(model.FeatureFlags{EnableHOSValidation: true})
    v := openPending(t, m)
    _, trig, _ := m.Apply(v.ID, Update{DriverID: strp("d1")})
    if !trig.HOS || trig.DriverID != "d1" {
        t.Fatalf("driver change must trigger HOS probe: %+v", trig)
    }
    if trig.Hours != model.DefaultEstimatedHours {
        t.Fatalf("probe hours: %v", trig.Hours)
    }
    // Unrelated edit: no re-probe
    _, trig, _ = m.Apply(v.ID, Update{Notes: strp("call ahead")})
    if trig.HOS { t.Fatal("notes change must not trigger HOS") }
    // Time change: re-probe
    _, trig, _ = m.Apply(v.ID, Update{Time: strp("13:00")})
    if !trig.HOS { t.Fatal("time change must trigger HOS") }
}

func TestConfirmPackagesAssignment(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    _, _, _ = m.Apply(v.ID, Update{
        VehicleID: strp("v1"), DriverID: strp("d1"),
        Date: strp("2025-06-01"), Time: strp("09:30"), Notes: strp("dock 4"),
    })
    pkg, err := m.Confirm(v.ID)
    if err != nil { t.Fatalf("confirm: %v", err) }
    want := time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local)
    if !pkg.ScheduledAt.Equal(want) {
        t.Fatalf("scheduledAt: %v want %v", pkg.ScheduledAt, want)
    }
    if pkg.OrderID != "ord_1" || pkg.VehicleID != "v1" || pkg.DriverID != "d1" || pkg.Notes != "dock 4" {
        t.Fatalf("package: %+v", pkg)
    }
    got, _ := m.Get(v.ID)
    if got.State != StateConfirmed { t.Fatalf("state: %s", got.State) }
    // Confirmed sessions do not confirm twice
    if _, err := m.Confirm(v.ID); !errors.Is(err, ErrNotOpen) {
        t.Fatalf("second confirm: %v", err)
    }
}

func TestConfirmGateError(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    if _, err := m.Confirm(v.ID); !errors.Is(err, ErrGate) {
        t.Fatalf("want gate error, got %v", err)
    }
}

func TestReopenAfterSaveFailure(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    _, _, _ = m.Apply(v.ID, Update{VehicleID: strp("v1"), DriverID: strp("d1"), Date: strp("2025-06-01")})
    if _, err := m.Confirm(v.ID); err != nil { t.Fatalf("confirm: %v", err) }
    m.Reopen(v.ID, "store rejected assignment")
    got, _ := m.Get(v.ID)
    if got.State != StateEditing || got.LastError == "" {
        t.Fatalf("reopen: %+v", got)
    }
}

func TestApplySuggestionShortcut(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    got, _, err := m.ApplySuggestion(v.ID, model.Suggestion{ResourceID: "v7", Type: model.ResourceVehicle})
    if err != nil { t.Fatalf("apply suggestion: %v", err) }
    if got.VehicleID != "v7" { t.Fatalf("vehicle: %s", got.VehicleID) }
    got, _, _ = m.ApplySuggestion(v.ID, model.Suggestion{ResourceID: "d7", Type: model.ResourceDriver})
    if got.DriverID != "d7" { t.Fatalf("driver: %s", got.DriverID) }
}

func TestCloseEvicts(t *testing.T) {
    m := NewManager(model.FeatureFlags{})
    v := openPending(t, m)
    if m.Count() != 1 { t.Fatalf("count: %d", m.Count()) }
    m.Close(v.ID)
    if m.Count() != 0 { t.Fatalf("count after close: %d", m.Count()) }
    if _, err := m.Get(v.ID); !errors.Is(err, ErrNotFound) {
        t.Fatalf("closed session still present: %v", err)
    }
}

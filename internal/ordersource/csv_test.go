package ordersource

import (
    "strings"
    "testing"

    "tmsboard/internal/model"
)

func TestParseCSVSkipsHeader(t *testing.T) {
    in := "orderNumber,externalRef,priority,customer,scheduledAt,estimatedHours,notes\n" +
        "ORD-1,ext-1,urgent,Acme,2025-06-02T09:00:00Z,4,\n" +
        "ORD-2,,normal,Globex,,,\n"
    orders, err := ParseCSV(strings.NewReader(in))
    if err != nil { t.Fatalf("parse: %v", err) }
    if len(orders) != 2 {
        t.Fatalf("want 2 orders, got %d", len(orders))
    }
    if orders[0].OrderNumber != "ORD-1" || orders[0].Priority != model.PriorityUrgent || orders[0].EstimatedHours != 4 {
        t.Fatalf("first = %+v", orders[0])
    }
    if orders[1].ScheduledAt != "" || orders[1].EstimatedHours != 0 {
        t.Fatalf("second = %+v", orders[1])
    }
}

func TestParseCSVRejectsShortRow(t *testing.T) {
    if _, err := ParseCSV(strings.NewReader("ORD-1,ext-1\n")); err == nil {
        t.Fatalf("want error for short row")
    }
}

func TestParseCSVRejectsBadHours(t *testing.T) {
    if _, err := ParseCSV(strings.NewReader("ORD-1,ext-1,normal,Acme,,abc,\n")); err == nil {
        t.Fatalf("want error for bad estimatedHours")
    }
}

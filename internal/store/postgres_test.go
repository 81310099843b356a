package store

import (
    "testing"
)

func TestNullIfEmpty(t *testing.T) {
    if v := nullIfEmpty(""); v != nil {
        t.Fatalf("empty string -> nil expected")
    }
    if v := nullIfEmpty("x"); v != "x" {
        t.Fatalf("want x, got %v", v)
    }
}

func TestToJSON(t *testing.T) {
    if got := string(toJSON(nil)); got != "null" {
        t.Fatalf("nil -> null, got %s", got)
    }
    if got := string(toJSON(map[string]int{"a": 1})); got != `{"a":1}` {
        t.Fatalf("got %s", got)
    }
}

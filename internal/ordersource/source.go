// Package ordersource ingests orders from external carrier feeds. Each
// source normalizes its rows into the shared import shape; dedup against
// prior imports happens in the store via externalRef.
package ordersource

import "tmsboard/internal/model"

// Source is an external order feed. Fetch returns one batch plus a cursor
// for the next call; an empty cursor means the feed is drained.
type Source interface {
    Name() string
    Fetch(cursor string) ([]model.OrderIn, string, error)
}

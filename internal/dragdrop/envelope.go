// Package dragdrop defines the versioned transfer envelope carried by board
// drag gestures. The payload is tagged with a schema version and an order
// kind so a drop handler never probes an untyped object.
package dragdrop

import (
    "encoding/json"
    "errors"
    "fmt"

    "tmsboard/internal/model"
)

// Version is the current envelope schema version. Decoding rejects any
// other value.
const Version = 1

type Kind string

const (
    KindPending   Kind = "pending"
    KindScheduled Kind = "scheduled"
)

var (
    ErrVersion = errors.New("dragdrop: unsupported envelope version")
    ErrKind    = errors.New("dragdrop: unknown order kind")
    ErrEmpty   = errors.New("dragdrop: envelope carries no order")
)

// Envelope is the wire form. Exactly one of Pending/Scheduled is set,
// selected by Kind.
type Envelope struct {
    V         int                   `json:"v"`
    Kind      Kind                  `json:"kind"`
    Pending   *model.Order          `json:"order,omitempty"`
    Scheduled *model.ScheduledOrder `json:"scheduledOrder,omitempty"`
}

// EncodePending serializes a pending order for a drag gesture.
func EncodePending(o model.Order) ([]byte, error) {
    return json.Marshal(Envelope{V: Version, Kind: KindPending, Pending: &o})
}

// EncodeScheduled serializes an already scheduled order.
func EncodeScheduled(o model.ScheduledOrder) ([]byte, error) {
    return json.Marshal(Envelope{V: Version, Kind: KindScheduled, Scheduled: &o})
}

// Decode parses and validates a transfer payload. Unknown versions and
// kinds are rejected rather than best-effort parsed.
func Decode(data []byte) (Envelope, error) {
    var env Envelope
    if err := json.Unmarshal(data, &env); err != nil {
        return Envelope{}, fmt.Errorf("dragdrop: malformed payload: %w", err)
    }
    if env.V != Version {
        return Envelope{}, fmt.Errorf("%w: %d", ErrVersion, env.V)
    }
    switch env.Kind {
    case KindPending:
        if env.Pending == nil || env.Pending.ID == "" {
            return Envelope{}, ErrEmpty
        }
    case KindScheduled:
        if env.Scheduled == nil || env.Scheduled.ID == "" {
            return Envelope{}, ErrEmpty
        }
    default:
        return Envelope{}, fmt.Errorf("%w: %q", ErrKind, env.Kind)
    }
    return env, nil
}

// OrderID returns the carried order's id regardless of kind.
func (e Envelope) OrderID() string {
    if e.Kind == KindScheduled && e.Scheduled != nil {
        return e.Scheduled.ID
    }
    if e.Pending != nil {
        return e.Pending.ID
    }
    return ""
}

// Package planner is the boundary to the external scheduling intelligence.
// Suggestion scoring, conflict detection and HOS math are consumed through
// these interfaces, never implemented in this service.
package planner

import (
    "context"
    "time"

    "tmsboard/internal/model"
)

// SuggestionProvider ranks candidate resources for an (order, date) pair.
type SuggestionProvider interface {
    Suggest(ctx context.Context, tenantID, orderID string, date time.Time) ([]model.Suggestion, error)
}

// ConflictChecker reports conflicts for a proposed assignment.
type ConflictChecker interface {
    Check(ctx context.Context, tenantID string, c model.AssignmentConfirm, durationHours float64) ([]model.Conflict, error)
}

// HOSValidator validates a driver's hours of service for a probe window.
type HOSValidator interface {
    Validate(ctx context.Context, tenantID, driverID string, date time.Time, durationHours float64) (model.HOSResult, error)
}

// Planner bundles the three provider roles.
type Planner interface {
    SuggestionProvider
    ConflictChecker
    HOSValidator
}

// Static is the dev fallback when no PLANNER_URL is configured: every
// assignment is conflict-free and HOS-valid, and suggestions echo the
// tenant's active resources with a flat score.
type Static struct {
    Resources func(ctx context.Context, tenantID string) ([]model.Resource, error)
}

func (s Static) Suggest(ctx context.Context, tenantID, orderID string, date time.Time) ([]model.Suggestion, error) {
    if s.Resources == nil {
        return []model.Suggestion{}, nil
    }
    rs, err := s.Resources(ctx, tenantID)
    if err != nil {
        return nil, err
    }
    out := []model.Suggestion{}
    for _, r := range rs {
        if !r.Active {
            continue
        }
        out = append(out, model.Suggestion{ResourceID: r.ID, Type: r.Type, Name: r.Name, Score: 50, Reason: "available"})
    }
    return out, nil
}

func (s Static) Check(ctx context.Context, tenantID string, c model.AssignmentConfirm, durationHours float64) ([]model.Conflict, error) {
    return []model.Conflict{}, nil
}

func (s Static) Validate(ctx context.Context, tenantID, driverID string, date time.Time, durationHours float64) (model.HOSResult, error) {
    return model.HOSResult{IsValid: true, RemainingHoursToday: 11, WeeklyHoursUsed: 0}, nil
}

package api

import (
    "context"
    "encoding/json"
    "errors"
    "net/http"
    "strings"
    "time"

    "tmsboard/internal/metrics"
    "tmsboard/internal/model"
    "tmsboard/internal/session"
    "tmsboard/internal/store"
)

// plannerTimeout bounds each background planner fetch.
const plannerTimeout = 5 * time.Second

// SessionsHandler handles POST /v1/assignment-sessions
func (s *Server) SessionsHandler(w http.ResponseWriter, r *http.Request) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    pr := s.getPrincipal(r)
    if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
    var req struct {
        OrderID string `json:"orderId"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if req.OrderID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing orderId", "", r.URL.Path)
        return
    }
    _, tenant := s.withTenant(r)
    pending, scheduled, err := s.Store.GetOrder(r.Context(), tenant, req.OrderID)
    if err != nil {
        writeProblem(w, http.StatusNotFound, "Order not found", err.Error(), r.URL.Path)
        return
    }
    view, trig, err := s.Sessions.Open(tenant, pending, scheduled, time.Now())
    if err != nil {
        writeProblem(w, http.StatusInternalServerError, "Open session failed", err.Error(), r.URL.Path)
        return
    }
    s.runTriggers(tenant, view, trig)
    metrics.ActiveSessions.Set(float64(s.Sessions.Count()))
    s.Pub.Emit(r.Context(), tenant, "session.opened", map[string]any{"sessionId": view.ID, "orderId": view.OrderID})
    s.Broker.Publish(tenant, SSEEvent{Type: "session.opened", Data: map[string]any{"sessionId": view.ID, "orderId": view.OrderID}})
    writeJSON(w, http.StatusCreated, view)
}

// SessionByIDHandler handles /v1/assignment-sessions/{id} and its subpaths:
// GET/PATCH/DELETE on the session, POST {id}/confirm, GET {id}/suggestions,
// POST {id}/suggestions/apply.
func (s *Server) SessionByIDHandler(w http.ResponseWriter, r *http.Request) {
    rest := strings.TrimPrefix(r.URL.Path, "/v1/assignment-sessions/")
    if rest == r.URL.Path || rest == "" {
        writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
        return
    }
    pr := s.getPrincipal(r)
    if !pr.CanDispatch() { writeProblem(w, 403, "Forbidden", "dispatcher or admin required", r.URL.Path); return }
    _, tenant := s.withTenant(r)
    parts := strings.Split(rest, "/")
    id := parts[0]

    // Sessions are tenant-scoped; a foreign id is indistinguishable from a
    // missing one.
    if v, err := s.Sessions.Get(id); err != nil || v.TenantID != tenant {
        writeProblem(w, http.StatusNotFound, "Session not found", "", r.URL.Path)
        return
    }

    if len(parts) > 1 {
        switch strings.Join(parts[1:], "/") {
        case "confirm":
            s.confirmSession(w, r, tenant, id)
        case "suggestions":
            if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
            v, _ := s.Sessions.Get(id)
            writeJSON(w, http.StatusOK, map[string]any{"items": v.Suggestions})
        case "suggestions/apply":
            s.applySuggestion(w, r, tenant, id)
        default:
            writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
        }
        return
    }

    switch r.Method {
    case http.MethodGet:
        v, err := s.Sessions.Get(id)
        if err != nil { writeProblem(w, http.StatusNotFound, "Session not found", "", r.URL.Path); return }
        writeJSON(w, http.StatusOK, v)
    case http.MethodPatch:
        var upd session.Update
        if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
            writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
            return
        }
        v, trig, err := s.Sessions.Apply(id, upd)
        if err != nil {
            status := http.StatusConflict
            if errors.Is(err, session.ErrNotFound) { status = http.StatusNotFound }
            writeProblem(w, status, "Update session failed", err.Error(), r.URL.Path)
            return
        }
        s.runTriggers(tenant, v, trig)
        writeJSON(w, http.StatusOK, v)
    case http.MethodDelete:
        s.Sessions.Close(id)
        metrics.ActiveSessions.Set(float64(s.Sessions.Count()))
        w.WriteHeader(http.StatusNoContent)
    default:
        w.WriteHeader(http.StatusMethodNotAllowed)
    }
}

func (s *Server) confirmSession(w http.ResponseWriter, r *http.Request, tenant, id string) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    conf, err := s.Sessions.Confirm(id)
    if err != nil {
        switch {
        case errors.Is(err, session.ErrGate), errors.Is(err, session.ErrNotOpen):
            writeProblem(w, http.StatusConflict, "Cannot confirm", err.Error(), r.URL.Path)
        case errors.Is(err, session.ErrBadTime):
            writeProblem(w, http.StatusBadRequest, "Invalid schedule time", err.Error(), r.URL.Path)
        default:
            writeProblem(w, http.StatusNotFound, "Session not found", err.Error(), r.URL.Path)
        }
        return
    }
    so, err := s.Store.ConfirmAssignment(r.Context(), tenant, conf)
    if err != nil {
        // Persistence failed: reopen the session so the user keeps the form.
        s.Sessions.Reopen(id, err.Error())
        if errors.Is(err, store.ErrDayBlocked) {
            writeProblem(w, http.StatusConflict, "Day is blocked", err.Error(), r.URL.Path)
            return
        }
        writeProblem(w, http.StatusInternalServerError, "Confirm failed", err.Error(), r.URL.Path)
        return
    }
    metrics.ActiveSessions.Set(float64(s.Sessions.Count()))

    // Post-confirm conflict check is advisory: the assignment stands, the
    // flag just surfaces on the board.
    if conflicts, cerr := s.Planner.Check(r.Context(), tenant, conf, so.Duration()); cerr == nil {
        metrics.PlannerCalls.WithLabelValues("check", "ok").Inc()
        if len(conflicts) > 0 {
            _ = s.Store.SetConflictFlag(r.Context(), tenant, so.ID, true)
            so.HasConflict = true
        }
    } else {
        metrics.PlannerCalls.WithLabelValues("check", "error").Inc()
    }

    s.Pub.AssignmentConfirmed(r.Context(), tenant, id, so)
    s.Broker.Publish(tenant, SSEEvent{Type: "assignment.confirmed", Data: map[string]any{
        "sessionId": id, "orderId": so.ID, "scheduledAt": so.ScheduledAt.Format(time.RFC3339),
    }})
    writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "order": so})
}

func (s *Server) applySuggestion(w http.ResponseWriter, r *http.Request, tenant, id string) {
    if r.Method != http.MethodPost { w.WriteHeader(http.StatusMethodNotAllowed); return }
    var sug model.Suggestion
    if err := json.NewDecoder(r.Body).Decode(&sug); err != nil {
        writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
        return
    }
    if sug.ResourceID == "" {
        writeProblem(w, http.StatusBadRequest, "Missing resourceId", "", r.URL.Path)
        return
    }
    v, trig, err := s.Sessions.ApplySuggestion(id, sug)
    if err != nil {
        status := http.StatusConflict
        if errors.Is(err, session.ErrNotFound) { status = http.StatusNotFound }
        writeProblem(w, status, "Apply suggestion failed", err.Error(), r.URL.Path)
        return
    }
    s.runTriggers(tenant, v, trig)
    writeJSON(w, http.StatusOK, v)
}

// runTriggers launches the planner fetches a session update owes. Results
// land on the session asynchronously; last write wins.
func (s *Server) runTriggers(tenant string, v session.View, trig session.Triggers) {
    if trig.Suggest {
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), plannerTimeout)
            defer cancel()
            date, err := time.ParseInLocation("2006-01-02", v.Date, time.Local)
            if err != nil { return }
            sugs, err := s.Planner.Suggest(ctx, tenant, v.OrderID, date)
            if err != nil {
                metrics.PlannerCalls.WithLabelValues("suggest", "error").Inc()
                return
            }
            metrics.PlannerCalls.WithLabelValues("suggest", "ok").Inc()
            s.Sessions.SetSuggestions(v.ID, sugs)
        }()
    }
    if trig.HOS {
        go func() {
            ctx, cancel := context.WithTimeout(context.Background(), plannerTimeout)
            defer cancel()
            hos, err := s.Planner.Validate(ctx, tenant, trig.DriverID, trig.At, trig.Hours)
            if err != nil {
                metrics.PlannerCalls.WithLabelValues("hos", "error").Inc()
                return
            }
            metrics.PlannerCalls.WithLabelValues("hos", "ok").Inc()
            s.Sessions.SetHOS(v.ID, hos)
        }()
    }
}

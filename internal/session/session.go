// Package session owns the assignment workflow state: one session per open
// assignment dialog, driven through an explicit state machine instead of
// render-time resets. The manager is the single controller; callers receive
// read-only views plus trigger hints for the planner fetches they owe.
package session

import (
    "errors"
    "fmt"
    "strconv"
    "sync"
    "time"

    "github.com/google/uuid"
    "tmsboard/internal/model"
)

type State string

const (
    StateInitializing State = "initializing"
    StateEditing      State = "editing"
    StateConfirmed    State = "confirmed"
    StateCancelled    State = "cancelled"
)

var (
    ErrNotFound  = errors.New("session not found")
    ErrNotOpen   = errors.New("session is not editing")
    ErrGate      = errors.New("submission gate not satisfied")
    ErrBadTime   = errors.New("invalid scheduled date/time")
)

const (
    dateLayout = "2006-01-02"
    timeLayout = "15:04"
)

// session is the internal mutable state. Only views leave the manager.
type session struct {
    id       string
    tenantID string

    orderID        string
    orderNumber    string
    estimatedHours float64

    state State

    vehicleID string
    driverID  string
    date      string // YYYY-MM-DD
    timeOfDay string // HH:MM
    notes     string

    flags model.FeatureFlags

    suggestions []model.Suggestion
    conflicts   []model.Conflict
    hos         *model.HOSResult

    lastError string

    // dedup keys; reset by Close/order identity change
    lastSuggestKey string
    lastHOSKey     string
}

// View is the read-only projection returned to callers.
type View struct {
    ID             string             `json:"id"`
    TenantID       string             `json:"tenantId"`
    OrderID        string             `json:"orderId"`
    OrderNumber    string             `json:"orderNumber,omitempty"`
    EstimatedHours float64            `json:"estimatedHours"`
    State          State              `json:"state"`
    VehicleID      string             `json:"vehicleId,omitempty"`
    DriverID       string             `json:"driverId,omitempty"`
    Date           string             `json:"scheduledDate,omitempty"`
    Time           string             `json:"scheduledTime,omitempty"`
    Notes          string             `json:"notes,omitempty"`
    Suggestions    []model.Suggestion `json:"suggestions"`
    Conflicts      []model.Conflict   `json:"conflicts"`
    HOS            *model.HOSResult   `json:"hosValidation,omitempty"`
    CanSubmit      bool               `json:"canSubmit"`
    LastError      string             `json:"lastError,omitempty"`
}

// Triggers tells the caller which planner fetches an update owes. Results
// arrive later via SetSuggestions / SetHOS; last write wins.
type Triggers struct {
    Suggest bool
    HOS     bool
    // HOS probe inputs, valid when HOS is set
    DriverID string
    At       time.Time
    Hours    float64
}

// Update is a partial edit; nil fields are untouched.
type Update struct {
    VehicleID *string `json:"vehicleId"`
    DriverID  *string `json:"driverId"`
    Date      *string `json:"scheduledDate"`
    Time      *string `json:"scheduledTime"`
    Notes     *string `json:"notes"`
}

// Manager owns all open sessions behind one mutex.
type Manager struct {
    mu       sync.Mutex
    sessions map[string]*session
    flags    model.FeatureFlags
}

func NewManager(flags model.FeatureFlags) *Manager {
    return &Manager{sessions: map[string]*session{}, flags: flags}
}

// Count reports open (non-terminal) sessions, for the metrics gauge.
func (m *Manager) Count() int {
    m.mu.Lock()
    defer m.mu.Unlock()
    n := 0
    for _, s := range m.sessions {
        if s.state == StateEditing || s.state == StateInitializing {
            n++
        }
    }
    return n
}

// Open starts a session for an order. A scheduled order seeds the form from
// its existing assignment; a pending order starts blank with today's date.
func (m *Manager) Open(tenantID string, pending *model.Order, scheduled *model.ScheduledOrder, now time.Time) (View, Triggers, error) {
    s := &session{
        id:       uuid.New().String(),
        tenantID: tenantID,
        state:    StateInitializing,
        flags:    m.flags,
    }
    switch {
    case scheduled != nil:
        s.orderID = scheduled.ID
        s.orderNumber = scheduled.OrderNumber
        s.estimatedHours = scheduled.Duration()
        s.vehicleID = scheduled.VehicleID
        s.driverID = scheduled.DriverID
        s.date = scheduled.ScheduledAt.Format(dateLayout)
        s.timeOfDay = scheduled.ScheduledAt.Format(timeLayout)
        s.notes = scheduled.Notes
    case pending != nil:
        s.orderID = pending.ID
        s.orderNumber = pending.OrderNumber
        s.estimatedHours = model.DefaultEstimatedHours
        s.vehicleID = pending.VehicleID
        s.driverID = pending.DriverID
        s.date = now.Format(dateLayout)
        s.notes = pending.Notes
    default:
        return View{}, Triggers{}, errors.New("session: no order supplied")
    }
    s.state = StateEditing
    m.mu.Lock()
    m.sessions[s.id] = s
    trig := s.pendingTriggers()
    v := s.view()
    m.mu.Unlock()
    return v, trig, nil
}

// Get returns the session view.
func (m *Manager) Get(id string) (View, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return View{}, ErrNotFound
    }
    return s.view(), nil
}

// Apply edits the session and reports which planner fetches are due.
func (m *Manager) Apply(id string, upd Update) (View, Triggers, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return View{}, Triggers{}, ErrNotFound
    }
    if s.state != StateEditing {
        return View{}, Triggers{}, ErrNotOpen
    }
    if upd.VehicleID != nil {
        s.vehicleID = *upd.VehicleID
    }
    if upd.DriverID != nil {
        s.driverID = *upd.DriverID
    }
    if upd.Date != nil {
        s.date = *upd.Date
    }
    if upd.Time != nil {
        s.timeOfDay = *upd.Time
    }
    if upd.Notes != nil {
        s.notes = *upd.Notes
    }
    return s.view(), s.pendingTriggers(), nil
}

// ApplySuggestion is the one-click shortcut from a planner suggestion.
func (m *Manager) ApplySuggestion(id string, sug model.Suggestion) (View, Triggers, error) {
    v := ""
    d := ""
    switch sug.Type {
    case model.ResourceVehicle:
        v = sug.ResourceID
    case model.ResourceDriver:
        d = sug.ResourceID
    }
    upd := Update{}
    if v != "" {
        upd.VehicleID = &v
    }
    if d != "" {
        upd.DriverID = &d
    }
    return m.Apply(id, upd)
}

// SetSuggestions stores planner results. Last write wins.
func (m *Manager) SetSuggestions(id string, sugs []model.Suggestion) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok {
        s.suggestions = sugs
    }
}

// SetConflicts stores planner conflict results.
func (m *Manager) SetConflicts(id string, conflicts []model.Conflict) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok {
        s.conflicts = conflicts
    }
}

// SetHOS stores the HOS verdict.
func (m *Manager) SetHOS(id string, hos model.HOSResult) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok {
        h := hos
        s.hos = &h
    }
}

// Confirm validates the submission gate and transitions to confirmed,
// returning the assignment package for persistence. A later store failure
// is reported back via Reopen.
func (m *Manager) Confirm(id string) (model.AssignmentConfirm, error) {
    m.mu.Lock()
    defer m.mu.Unlock()
    s, ok := m.sessions[id]
    if !ok {
        return model.AssignmentConfirm{}, ErrNotFound
    }
    if s.state != StateEditing {
        return model.AssignmentConfirm{}, ErrNotOpen
    }
    if !s.canSubmit() {
        return model.AssignmentConfirm{}, fmt.Errorf("%w: %s", ErrGate, s.gateReason())
    }
    at, ok2 := s.scheduledAt()
    if !ok2 {
        return model.AssignmentConfirm{}, ErrBadTime
    }
    s.state = StateConfirmed
    s.lastError = ""
    return model.AssignmentConfirm{
        OrderID:     s.orderID,
        VehicleID:   s.vehicleID,
        DriverID:    s.driverID,
        ScheduledAt: at,
        Notes:       s.notes,
    }, nil
}

// Reopen returns a confirmed session to editing after a downstream save
// failure, recording the error for display.
func (m *Manager) Reopen(id, lastError string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok && s.state == StateConfirmed {
        s.state = StateEditing
        s.lastError = lastError
    }
}

// Close cancels and evicts the session; the dedup keys die with it so a
// reopened dialog always re-fetches.
func (m *Manager) Close(id string) {
    m.mu.Lock()
    defer m.mu.Unlock()
    if s, ok := m.sessions[id]; ok {
        if s.state == StateEditing || s.state == StateInitializing {
            s.state = StateCancelled
        }
        delete(m.sessions, id)
    }
}

func (s *session) view() View {
    v := View{
        ID:             s.id,
        TenantID:       s.tenantID,
        OrderID:        s.orderID,
        OrderNumber:    s.orderNumber,
        EstimatedHours: s.estimatedHours,
        State:          s.state,
        VehicleID:      s.vehicleID,
        DriverID:       s.driverID,
        Date:           s.date,
        Time:           s.timeOfDay,
        Notes:          s.notes,
        Suggestions:    s.suggestions,
        Conflicts:      s.conflicts,
        HOS:            s.hos,
        CanSubmit:      s.canSubmit(),
        LastError:      s.lastError,
    }
    if v.Suggestions == nil {
        v.Suggestions = []model.Suggestion{}
    }
    if v.Conflicts == nil {
        v.Conflicts = []model.Conflict{}
    }
    return v
}

// pendingTriggers computes which planner fetches are owed for the current
// form state, consuming the dedup keys.
func (s *session) pendingTriggers() Triggers {
    var t Triggers
    if s.flags.EnableAutoSuggestion {
        if at, ok := s.scheduledAt(); ok {
            key := s.orderID + "-" + strconv.FormatInt(at.UnixMilli(), 10)
            if key != s.lastSuggestKey {
                s.lastSuggestKey = key
                t.Suggest = true
            }
        }
    }
    if s.flags.EnableHOSValidation && s.driverID != "" {
        if at, ok := s.scheduledAt(); ok {
            key := s.driverID + "|" + s.date + "|" + s.timeOfDay
            if key != s.lastHOSKey {
                s.lastHOSKey = key
                t.HOS = true
                t.DriverID = s.driverID
                t.At = at
                t.Hours = s.estimatedHours
            }
        }
    }
    return t
}

// canSubmit is the submission gate: required fields, HOS validity when the
// flag is on, and no high-severity conflict. Medium/low conflicts are
// advisory only.
func (s *session) canSubmit() bool {
    if s.state != StateEditing {
        return false
    }
    if s.vehicleID == "" || s.driverID == "" || s.date == "" {
        return false
    }
    if s.flags.EnableHOSValidation {
        if s.hos == nil || !s.hos.IsValid {
            return false
        }
    }
    for _, c := range s.conflicts {
        if c.Severity == model.SeverityHigh {
            return false
        }
    }
    return true
}

func (s *session) gateReason() string {
    switch {
    case s.vehicleID == "":
        return "vehicle not selected"
    case s.driverID == "":
        return "driver not selected"
    case s.date == "":
        return "date not set"
    case s.flags.EnableHOSValidation && (s.hos == nil || !s.hos.IsValid):
        return "HOS validation failed"
    default:
        return "unresolved high-severity conflict"
    }
}

// scheduledAt combines the date and time fields into a local instant.
// An empty time means start of day.
func (s *session) scheduledAt() (time.Time, bool) {
    if s.date == "" {
        return time.Time{}, false
    }
    d, err := time.ParseInLocation(dateLayout, s.date, time.Local)
    if err != nil {
        return time.Time{}, false
    }
    if s.timeOfDay == "" {
        return d, true
    }
    tt, err := time.Parse(timeLayout, s.timeOfDay)
    if err != nil {
        return time.Time{}, false
    }
    return d.Add(time.Duration(tt.Hour())*time.Hour + time.Duration(tt.Minute())*time.Minute), true
}

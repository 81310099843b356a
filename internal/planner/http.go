package planner

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "tmsboard/internal/model"
)

// HTTPAdapter talks to an external planner service. Endpoints mirror the
// provider roles: POST {base}/v1/suggestions, /v1/conflicts, /v1/hos.
type HTTPAdapter struct {
    BaseURL string
    HTTP    *http.Client
}

func NewHTTPAdapter(baseURL string) *HTTPAdapter {
    return &HTTPAdapter{BaseURL: baseURL, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

func (a *HTTPAdapter) post(ctx context.Context, path string, in, out any) error {
    body, err := json.Marshal(in)
    if err != nil {
        return err
    }
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+path, bytes.NewReader(body))
    if err != nil {
        return err
    }
    req.Header.Set("Content-Type", "application/json")
    resp, err := a.HTTP.Do(req)
    if err != nil {
        return err
    }
    defer func() { _ = resp.Body.Close() }()
    if resp.StatusCode < 200 || resp.StatusCode >= 300 {
        return fmt.Errorf("planner: %s returned %d", path, resp.StatusCode)
    }
    return json.NewDecoder(resp.Body).Decode(out)
}

func (a *HTTPAdapter) Suggest(ctx context.Context, tenantID, orderID string, date time.Time) ([]model.Suggestion, error) {
    in := map[string]any{"tenantId": tenantID, "orderId": orderID, "date": date.Format(time.RFC3339)}
    var out struct {
        Suggestions []model.Suggestion `json:"suggestions"`
    }
    if err := a.post(ctx, "/v1/suggestions", in, &out); err != nil {
        return nil, err
    }
    return out.Suggestions, nil
}

func (a *HTTPAdapter) Check(ctx context.Context, tenantID string, c model.AssignmentConfirm, durationHours float64) ([]model.Conflict, error) {
    in := map[string]any{
        "tenantId":    tenantID,
        "orderId":     c.OrderID,
        "vehicleId":   c.VehicleID,
        "driverId":    c.DriverID,
        "scheduledAt": c.ScheduledAt.Format(time.RFC3339),
        "hours":       durationHours,
    }
    var out struct {
        Conflicts []model.Conflict `json:"conflicts"`
    }
    if err := a.post(ctx, "/v1/conflicts", in, &out); err != nil {
        return nil, err
    }
    return out.Conflicts, nil
}

func (a *HTTPAdapter) Validate(ctx context.Context, tenantID, driverID string, date time.Time, durationHours float64) (model.HOSResult, error) {
    in := map[string]any{"tenantId": tenantID, "driverId": driverID, "date": date.Format(time.RFC3339), "hours": durationHours}
    var out model.HOSResult
    if err := a.post(ctx, "/v1/hos", in, &out); err != nil {
        return model.HOSResult{}, err
    }
    return out, nil
}

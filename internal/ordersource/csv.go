package ordersource

import (
    "encoding/csv"
    "fmt"
    "io"
    "strconv"
    "strings"

    "tmsboard/internal/model"
)

// csvHeader is the accepted column set. Order is fixed; a header row is
// detected and skipped.
var csvHeader = []string{"orderNumber", "externalRef", "priority", "customer", "scheduledAt", "estimatedHours", "notes"}

// ParseCSV reads carrier CSV rows into import orders. Rows shorter than the
// header are rejected; trailing columns are ignored.
func ParseCSV(r io.Reader) ([]model.OrderIn, error) {
    cr := csv.NewReader(r)
    cr.FieldsPerRecord = -1
    out := []model.OrderIn{}
    line := 0
    for {
        rec, err := cr.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return nil, fmt.Errorf("csv row %d: %w", line+1, err)
        }
        line++
        if line == 1 && isHeaderRow(rec) {
            continue
        }
        if len(rec) < len(csvHeader) {
            return nil, fmt.Errorf("csv row %d: want %d columns, got %d", line, len(csvHeader), len(rec))
        }
        o := model.OrderIn{
            OrderNumber: strings.TrimSpace(rec[0]),
            ExternalRef: strings.TrimSpace(rec[1]),
            Priority:    model.Priority(strings.ToLower(strings.TrimSpace(rec[2]))),
            Customer:    strings.TrimSpace(rec[3]),
            ScheduledAt: strings.TrimSpace(rec[4]),
        }
        if v := strings.TrimSpace(rec[5]); v != "" {
            f, err := strconv.ParseFloat(v, 64)
            if err != nil {
                return nil, fmt.Errorf("csv row %d: bad estimatedHours %q", line, v)
            }
            o.EstimatedHours = f
        }
        out = append(out, o)
    }
    return out, nil
}

func isHeaderRow(rec []string) bool {
    return len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), csvHeader[0])
}

// CSVSource adapts a static reader into a one-shot Source, mainly for tests
// and manual imports.
type CSVSource struct {
    Reader io.Reader
}

func (c CSVSource) Name() string { return "csv" }

func (c CSVSource) Fetch(cursor string) ([]model.OrderIn, string, error) {
    if cursor != "" {
        return nil, "", nil
    }
    orders, err := ParseCSV(c.Reader)
    return orders, "", err
}

package api

import (
    "context"
    "net/http"
    "os"
    "strconv"
    "strings"

    "tmsboard/internal/auth"
    "tmsboard/internal/model"
    "tmsboard/internal/planner"
    "tmsboard/internal/session"
    "tmsboard/internal/store"
    "tmsboard/internal/webhooks"
)

type Server struct {
    Store    store.Store
    Pub      *webhooks.Publisher
    Auth     *auth.Verifier
    Broker   EventBroker
    Sessions *session.Manager
    Planner  planner.Planner
    Flags    model.FeatureFlags
}

// NewServer creates a Server. If DATABASE_URL is unset, uses in-memory store.
func NewServer() (*Server, error) {
    dsn := os.Getenv("DATABASE_URL")
    workday := 0.0
    if v := os.Getenv("WORKDAY_HOURS"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil { workday = f }
    }
    var s store.Store
    if strings.TrimSpace(dsn) == "" {
        mem := store.NewMemory()
        mem.SetWorkday(workday)
        s = mem
    } else {
        sp, err := store.NewPostgres(dsn)
        if err != nil {
            return nil, err
        }
        sp.SetWorkday(workday)
        // Run migrations (dev helper)
        if os.Getenv("DB_MIGRATE") != "false" {
            _ = sp.MigrateDir("db/migrations")
        }
        s = sp
    }
    // Broker selection
    var broker EventBroker
    if os.Getenv("REDIS_URL") != "" {
        if rb, err := NewRedisBroker(); err == nil { broker = rb } else { broker = NewBroker() }
    } else {
        broker = NewBroker()
    }
    flags := model.FeatureFlags{
        EnableAutoSuggestion: os.Getenv("ENABLE_AUTO_SUGGESTION") != "false",
        EnableHOSValidation:  os.Getenv("ENABLE_HOS_VALIDATION") != "false",
    }
    var pl planner.Planner
    if url := os.Getenv("PLANNER_URL"); url != "" {
        pl = planner.NewHTTPAdapter(url)
    } else {
        pl = planner.Static{Resources: func(ctx context.Context, tenantID string) ([]model.Resource, error) {
            return s.ListResources(ctx, tenantID, "")
        }}
    }
    return &Server{
        Store:    s,
        Pub:      webhooks.NewPublisher(s),
        Auth:     auth.NewVerifierFromEnv(),
        Broker:   broker,
        Sessions: session.NewManager(flags),
        Planner:  pl,
        Flags:    flags,
    }, nil
}

func (s *Server) withTenant(r *http.Request) (context.Context, string) {
    tenant := s.getPrincipal(r).Tenant
    ctx := context.WithValue(r.Context(), ctxKeyTenant{}, tenant)
    return ctx, tenant
}

// normalizeTenantID maps header aliases to canonical tenant ids. Stores key
// everything by the raw string, so trimming is all that's needed here.
func (s *Server) normalizeTenantID(t string) string { return strings.TrimSpace(t) }

type ctxKeyTenant struct{}

// NewWebhookWorker creates a background worker for webhook deliveries.
func (s *Server) NewWebhookWorker() *webhooks.Worker {
    return webhooks.NewWorker(s.Store)
}

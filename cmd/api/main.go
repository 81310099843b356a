package main

import (
    "log"
    "net/http"
    "os"
    "time"

    "github.com/prometheus/client_golang/prometheus/promhttp"

    "tmsboard/internal/api"
    "tmsboard/internal/metrics"
)

func main() {
    srvDeps, err := api.NewServer()
    if err != nil {
        log.Fatalf("failed to init server: %v", err)
    }

    mux := http.NewServeMux()

    // Orders
    mux.HandleFunc("/v1/orders", srvDeps.OrdersHandler)
    mux.HandleFunc("/v1/orders/", srvDeps.OrderStatusHandler) // /{id}/status

    // Fleet resources
    mux.HandleFunc("/v1/resources", srvDeps.ResourcesHandler)

    // Board views
    mux.HandleFunc("/v1/board/calendar", srvDeps.BoardCalendarHandler)
    mux.HandleFunc("/v1/board/timeline", srvDeps.BoardTimelineHandler)
    mux.HandleFunc("/v1/board/gantt", srvDeps.BoardGanttHandler)
    mux.HandleFunc("/v1/board/drop", srvDeps.BoardDropHandler)
    mux.HandleFunc("/v1/board/events/stream", srvDeps.BoardEventsStreamHandler)

    // Day blocking
    mux.HandleFunc("/v1/days/", srvDeps.DayBlockHandler) // /{date}/block

    // Assignment sessions
    mux.HandleFunc("/v1/assignment-sessions", srvDeps.SessionsHandler)
    mux.HandleFunc("/v1/assignment-sessions/", srvDeps.SessionByIDHandler) // includes /confirm, /suggestions

    // Webhook subscriptions
    mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
    mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

    // Health
    mux.HandleFunc("/healthz", srvDeps.HealthHandler)
    mux.HandleFunc("/readyz", srvDeps.ReadyHandler)

    // Admin
    mux.HandleFunc("/v1/admin/webhook-deliveries", srvDeps.WebhookDeliveriesHandler)
    mux.HandleFunc("/v1/admin/webhook-deliveries/", srvDeps.WebhookDeliveryRetryHandler)

    // WebSocket board event feed
    mux.HandleFunc("/board/ws", srvDeps.BoardWSHandler)

    // Docs, console, debug
    mux.HandleFunc("/openapi.yaml", srvDeps.OpenAPIHandler)
    mux.HandleFunc("/docs", srvDeps.DocsHandler)
    mux.HandleFunc("/console", srvDeps.SwaggerHandler)
    mux.HandleFunc("/static/", srvDeps.StaticHandler)
    mux.HandleFunc("/debug", srvDeps.DebugJSON)

    // Prometheus metrics on a dedicated registry
    metrics.RegisterDefault()
    mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

    addr := ":8080"
    if v := os.Getenv("PORT"); v != "" {
        addr = ":" + v
    }

    srv := &http.Server{
        Addr:              addr,
        Handler:           api.RateLimitMiddleware(api.LogMiddleware(mux)),
        ReadHeaderTimeout: 5 * time.Second,
    }

    log.Printf("API listening on %s", addr)
    // Start webhook worker
    if srvDeps.Pub != nil {
        worker := srvDeps.NewWebhookWorker()
        worker.Start()
    }
    if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
        log.Fatalf("server error: %v", err)
    }
}

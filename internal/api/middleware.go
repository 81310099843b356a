package api

import (
    "log"
    "net/http"
    "os"
    "strconv"
    "strings"
    "time"

    "golang.org/x/time/rate"

    "tmsboard/internal/metrics"
)

type statusRecorder struct {
    http.ResponseWriter
    status int
}

func (r *statusRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

// Flush passes through so SSE keeps working behind the middleware chain.
func (r *statusRecorder) Flush() {
    if f, ok := r.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

// LogMiddleware logs requests and records Prometheus counters/durations.
func LogMiddleware(next http.Handler) http.Handler {
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        start := time.Now()
        rec := &statusRecorder{ResponseWriter: w, status: 200}
        next.ServeHTTP(rec, r)
        dur := time.Since(start)
        path := metricPath(r.URL.Path)
        status := strconv.Itoa(rec.status)
        metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
        metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
        log.Printf("%s %s %s %d %v", r.RemoteAddr, r.Method, r.URL.Path, rec.status, dur)
    })
}

// metricPath collapses id segments to keep label cardinality bounded.
// Ids and dates carry digits; route words never do.
func metricPath(p string) string {
    parts := strings.Split(p, "/")
    for i, seg := range parts {
        if i > 1 && (len(seg) >= 20 || strings.ContainsAny(seg, "0123456789")) {
            parts[i] = ":id"
        }
    }
    return strings.Join(parts, "/")
}

// RateLimitMiddleware applies a global token bucket. RATE_RPS=0 disables it.
func RateLimitMiddleware(next http.Handler) http.Handler {
    rps := 0.0
    if v := os.Getenv("RATE_RPS"); v != "" {
        if f, err := strconv.ParseFloat(v, 64); err == nil { rps = f }
    }
    if rps <= 0 {
        return next
    }
    burst := int(rps)
    if v := os.Getenv("RATE_BURST"); v != "" {
        if n, err := strconv.Atoi(v); err == nil && n > 0 { burst = n }
    }
    if burst <= 0 { burst = 1 }
    lim := rate.NewLimiter(rate.Limit(rps), burst)
    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if !lim.Allow() {
            writeProblem(w, http.StatusTooManyRequests, "Rate limit exceeded", "", r.URL.Path)
            return
        }
        next.ServeHTTP(w, r)
    })
}

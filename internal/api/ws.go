package api

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/gorilla/websocket"
)

// Board event feed over WebSocket, mirroring the SSE stream for clients that
// prefer a bidirectional transport.

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type wsMessage struct {
    Type    string          `json:"type"`
    ID      string          `json:"id,omitempty"`
    Payload json.RawMessage `json:"payload,omitempty"`
}

type wsSubscribePayload struct {
    Events []string `json:"events"`
}

// BoardWSHandler handles /board/ws. Protocol: connection_init -> ack, then
// subscribe messages carrying an optional event-type filter; matching board
// events are pushed as "next" frames until the client sends complete.
func (s *Server) BoardWSHandler(w http.ResponseWriter, r *http.Request) {
    conn, err := upgrader.Upgrade(w, r, nil)
    if err != nil {
        return
    }
    defer func() { _ = conn.Close() }()

    _, tenant := s.withTenant(r)

    type sub struct {
        ch chan SSEEvent
    }
    subs := map[string]sub{}

    conn.SetReadLimit(1 << 20)
    _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
    conn.SetPongHandler(func(string) error { _ = conn.SetReadDeadline(time.Now().Add(60 * time.Second)); return nil })

    write := func(v any) error { return conn.WriteJSON(v) }

    for {
        var msg wsMessage
        if err := conn.ReadJSON(&msg); err != nil {
            break
        }
        switch msg.Type {
        case "connection_init":
            _ = write(wsMessage{Type: "connection_ack"})
            go func() {
                ticker := time.NewTicker(20 * time.Second)
                defer ticker.Stop()
                for range ticker.C {
                    if err := write(wsMessage{Type: "ping"}); err != nil {
                        return
                    }
                }
            }()
        case "ping":
            _ = write(wsMessage{Type: "pong"})
        case "subscribe":
            var pl wsSubscribePayload
            _ = json.Unmarshal(msg.Payload, &pl)
            ch := s.Broker.Subscribe(tenant)
            subs[msg.ID] = sub{ch: ch}
            go func(id string, c chan SSEEvent, events []string) {
                for evt := range c {
                    if !wsEventMatches(evt.Type, events) {
                        continue
                    }
                    payload, _ := json.Marshal(map[string]any{"event": evt.Type, "data": evt.Data})
                    _ = write(wsMessage{Type: "next", ID: id, Payload: payload})
                }
                _ = write(wsMessage{Type: "complete", ID: id})
            }(msg.ID, ch, pl.Events)
        case "complete":
            if s0, ok := subs[msg.ID]; ok {
                s.Broker.Unsubscribe(tenant, s0.ch)
                delete(subs, msg.ID)
            }
        default:
            // ignore
        }
    }
    for id, s0 := range subs {
        s.Broker.Unsubscribe(tenant, s0.ch)
        delete(subs, id)
    }
}

// wsEventMatches applies the subscribe filter; an empty filter means all.
func wsEventMatches(evt string, events []string) bool {
    if len(events) == 0 {
        return true
    }
    for _, e := range events {
        if e == evt {
            return true
        }
    }
    return false
}

package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
	"github.com/GoSimplicity/AI-CloudOps-sub000/pkg/types"
)

// WebSocket message types streamed during one analysis run.
const (
	MessageTypePhase     = "phase"
	MessageTypeResult    = "result"
	MessageTypeError     = "error"
	MessageTypeHeartbeat = "heartbeat"
)

// WSMessage is one frame sent to the client.
type WSMessage struct {
	Type      string      `json:"type"`
	Phase     string      `json:"phase,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// defaultOrigins are the development frontends allowed when no explicit
// origin list is configured.
var defaultOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// newUpgrader builds a websocket upgrader enforcing the configured origin
// allow list. Requests without an Origin header (CLI clients, same-host
// tools) are always allowed; "*" allows every origin.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := allowedOrigins
	if len(allowed) == 0 {
		allowed = defaultOrigins
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, candidate := range allowed {
				if candidate == "*" || strings.EqualFold(candidate, origin) {
					return true
				}
			}
			return false
		},
	}
}

// wsConn serializes writes to one client connection.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg *WSMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(msg)
}

func (c *wsConn) sendError(msg string) {
	c.send(&WSMessage{Type: MessageTypeError, Error: msg, Timestamp: time.Now().UTC()})
}

// handleAnalyzeStream runs one analysis per connection, streaming pipeline
// phase events as they begin and the final result when done.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	upgrader := newUpgrader(s.config.Server.AllowedOrigins)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	client := &wsConn{conn: conn}
	go heartbeat(ctx, client)

	var req types.AnalyzeRequest
	if err := conn.ReadJSON(&req); err != nil {
		client.sendError("invalid analyze request: " + err.Error())
		return
	}

	series, err := s.buildSeries(ctx, &req)
	if err != nil {
		client.sendError(err.Error())
		return
	}

	streaming := s.coordinator.WithProgress(func(phase string) {
		client.send(&WSMessage{
			Type:      MessageTypePhase,
			Phase:     phase,
			Timestamp: time.Now().UTC(),
		})
	})

	result, err := streaming.Analyze(ctx, series)
	if err != nil {
		if errors.Is(err, rca.ErrNoData) {
			client.sendError(err.Error())
		} else {
			client.sendError("analysis failed: " + err.Error())
		}
		return
	}

	s.persist(ctx, result)
	client.send(&WSMessage{
		Type:      MessageTypeResult,
		Result:    result,
		Timestamp: time.Now().UTC(),
	})

	// Let the client read the result before the deferred close tears the
	// connection down.
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(5*time.Second))
}

// heartbeat keeps the connection alive during long analyses.
func heartbeat(ctx context.Context, client *wsConn) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.send(&WSMessage{
				Type:      MessageTypeHeartbeat,
				Timestamp: time.Now().UTC(),
			}); err != nil {
				return
			}
		}
	}
}

package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GoSimplicity/AI-CloudOps-sub000/internal/rca"
	"github.com/GoSimplicity/AI-CloudOps-sub000/pkg/types"
)

// dialAnalyze opens a websocket against a test server's analyze stream.
func dialAnalyze(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/analyze"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until a message of the wanted type arrives,
// collecting phase names along the way.
func readUntil(t *testing.T, conn *websocket.Conn, wantType string) (WSMessage, []string) {
	t.Helper()

	var phases []string
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		conn.SetReadDeadline(time.Now().Add(10 * time.Second))
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("websocket read: %v (phases so far: %v)", err, phases)
		}
		switch msg.Type {
		case MessageTypePhase:
			phases = append(phases, msg.Phase)
		case MessageTypeHeartbeat:
			// ignore
		default:
			if msg.Type == wantType {
				return msg, phases
			}
			t.Fatalf("Unexpected message type %q: %+v", msg.Type, msg)
		}
	}
	t.Fatal("Timed out waiting for the final frame")
	return WSMessage{}, nil
}

func TestAnalyzeStream(t *testing.T) {
	srv := newTestServer(t)
	conn := dialAnalyze(t, srv)

	if err := conn.WriteJSON(types.AnalyzeRequest{Metrics: incidentMetrics()}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	msg, phases := readUntil(t, conn, MessageTypeResult)

	want := []string{rca.PhaseDetection, rca.PhaseCorrelation, rca.PhaseRanking, rca.PhaseSummary}
	if len(phases) != len(want) {
		t.Fatalf("Expected %d phase events, got %d: %v", len(want), len(phases), phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Errorf("Phase %d: expected %s, got %s", i, want[i], phases[i])
		}
	}

	payload, err := json.Marshal(msg.Result)
	if err != nil {
		t.Fatalf("re-encode result: %v", err)
	}
	var result rca.AnalysisResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.RootCauseCandidates) == 0 || result.RootCauseCandidates[0].Metric != "cpu_usage" {
		t.Errorf("Expected cpu_usage ranked first, got %+v", result.RootCauseCandidates)
	}
}

func TestAnalyzeStream_EmptyInput(t *testing.T) {
	srv := newTestServer(t)
	conn := dialAnalyze(t, srv)

	if err := conn.WriteJSON(types.AnalyzeRequest{}); err != nil {
		t.Fatalf("write request: %v", err)
	}

	msg, _ := readUntil(t, conn, MessageTypeError)
	if msg.Error == "" {
		t.Error("Expected an error message for an empty request")
	}
}

func TestAnalyzeStream_MalformedRequest(t *testing.T) {
	srv := newTestServer(t)
	conn := dialAnalyze(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	msg, _ := readUntil(t, conn, MessageTypeError)
	if !strings.Contains(msg.Error, "invalid analyze request") {
		t.Errorf("Expected a decode error, got %q", msg.Error)
	}
}

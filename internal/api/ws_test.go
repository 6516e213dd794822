package api

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"swarm-relay/internal/config"
	"swarm-relay/internal/relay"
)

func newWSTestServer(t *testing.T) (*httptest.Server, *relay.Relay) {
	t.Helper()
	log := zap.NewNop().Sugar()
	core := relay.NewRelay(log)
	gateway := NewGateway(core, config.DefaultTransport(), log)
	router := NewRouter(RouterConfig{
		Relay:          core,
		Gateway:        gateway,
		RateLimiter:    permissiveRateLimiter(t),
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, core
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("invalid JSON from relay: %v", err)
	}
	return m
}

func sendConnect(t *testing.T, conn *websocket.Conn, id string, x float64) {
	t.Helper()
	payload := fmt.Sprintf(
		`{"event_type":"connect","player_id":%q,"player_name":%q,"position":{"x":%g,"y":0,"z":0}}`,
		id, id, x)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// TestWebSocketJoinFlow runs the join handshake over a real socket pair:
// catch-up snapshot to the joiner, announcement to the peer.
func TestWebSocketJoinFlow(t *testing.T) {
	ts, _ := newWSTestServer(t)

	a := dialWS(t, ts)
	sendConnect(t, a, "a", 0)

	snapshot := readEvent(t, a)
	if snapshot["event_type"] != "all_players" {
		t.Fatalf("first message to joiner was %v", snapshot["event_type"])
	}
	if players := snapshot["players"].([]interface{}); len(players) != 0 {
		t.Errorf("first joiner's snapshot not empty: %v", players)
	}

	b := dialWS(t, ts)
	sendConnect(t, b, "b", 1)

	bSnapshot := readEvent(t, b)
	players := bSnapshot["players"].([]interface{})
	if len(players) != 1 || players[0].(map[string]interface{})["player_id"] != "a" {
		t.Errorf("b's snapshot wrong: %v", players)
	}

	announce := readEvent(t, a)
	if announce["event_type"] != "new_player" || announce["player_id"] != "b" {
		t.Errorf("a's announcement wrong: %v", announce)
	}
}

// TestWebSocketDepartureBroadcast: closing one socket produces exactly one
// player_left on the peer.
func TestWebSocketDepartureBroadcast(t *testing.T) {
	ts, core := newWSTestServer(t)

	a := dialWS(t, ts)
	sendConnect(t, a, "a", 0)
	readEvent(t, a) // all_players

	b := dialWS(t, ts)
	sendConnect(t, b, "b", 1)
	readEvent(t, b) // all_players
	readEvent(t, a) // new_player b

	a.Close()

	left := readEvent(t, b)
	if left["event_type"] != "player_left" || left["player_id"] != "a" {
		t.Errorf("expected player_left for a, got %v", left)
	}

	// The record is gone once the departure has been observed
	for _, rec := range core.Snapshot() {
		if rec.ID == "a" {
			t.Error("departed player still in snapshot")
		}
	}
}

// TestWebSocketGarbageKeepsStreamOpen: hostile frames are discarded without
// closing the connection or disturbing peers.
func TestWebSocketGarbageKeepsStreamOpen(t *testing.T) {
	ts, _ := newWSTestServer(t)

	a := dialWS(t, ts)
	sendConnect(t, a, "a", 0)
	readEvent(t, a)

	b := dialWS(t, ts)
	sendConnect(t, b, "b", 1)
	readEvent(t, b)
	readEvent(t, a)

	if err := a.WriteMessage(websocket.TextMessage, []byte("garbage {{{")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	// A valid event after the garbage still goes through
	if err := a.WriteMessage(websocket.TextMessage, []byte(`{"event_type":"fire","player_id":"a","player_fireType":"laser"}`)); err != nil {
		t.Fatalf("write fire: %v", err)
	}

	fire := readEvent(t, b)
	if fire["event_type"] != "fire" {
		t.Errorf("peer got %v, want the fire event", fire)
	}
}

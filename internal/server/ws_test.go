package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"Fireworks/internal/firework"
	"Fireworks/internal/game"
	"Fireworks/internal/wire"

	"github.com/gorilla/websocket"
)

func startTestServer(t *testing.T) (*game.Hub, string) {
	t.Helper()
	hub := game.NewHub(nil)
	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	return conn
}

func waitForPeers(t *testing.T, room *game.Room, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for room.PeerCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d peers, have %d", n, room.PeerCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRelayAcrossCodecs(t *testing.T) {
	hub, base := startTestServer(t)
	sender := dial(t, base+"/ws?room=party")
	receiver := dial(t, base+"/ws?room=party&codec=msgpack")
	waitForPeers(t, hub.GetRoom("party"), 2)

	ev := wire.NewLaunch(4, 7, -3, "#ffcc00", firework.Crossette)
	data, _ := json.Marshal(ev)
	if err := sender.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}

	msgType, payload, err := receiver.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Errorf("expected binary msgpack frame, got type %d", msgType)
	}
	got, err := wire.Msgpack.Unmarshal(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != ev {
		t.Errorf("expected %+v, got %+v", ev, got)
	}
	if n := hub.GetRoom("party").LiveCount(); n != 1 {
		t.Errorf("expected 1 server-side instance, got %d", n)
	}
}

func TestMalformedLaunchIsNotRelayed(t *testing.T) {
	hub, base := startTestServer(t)
	sender := dial(t, base+"/ws?room=quiet")
	receiver := dial(t, base+"/ws?room=quiet")
	room := hub.GetRoom("quiet")
	waitForPeers(t, room, 2)

	_ = sender.WriteMessage(websocket.TextMessage, []byte(`{"type":"CURSOR_MOVE","x":1}`))
	_ = sender.WriteMessage(websocket.TextMessage, []byte(`not json`))
	good := wire.NewLaunch(0, 5, 0, "#00ffaa", firework.Peony)
	data, _ := json.Marshal(good)
	_ = sender.WriteMessage(websocket.TextMessage, data)

	_, payload, err := receiver.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got, err := wire.JSON.Unmarshal(payload)
	if err != nil || got != good {
		t.Fatalf("expected only the valid launch to arrive, got %s", payload)
	}
}

func TestFrameSubscriberReceivesFrames(t *testing.T) {
	hub, base := startTestServer(t)
	viewer := dial(t, base+"/ws?room=frames&frames=1")
	room := hub.GetRoom("frames")
	waitForPeers(t, room, 1)
	if _, err := room.Launch("", wire.NewLaunch(0, 3, 0, "#ff0000", firework.Peony)); err != nil {
		t.Fatal(err)
	}
	room.Tick()

	for i := 0; i < 10; i++ {
		msgType, payload, err := viewer.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		f, err := wire.DecodeFrame(payload)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if len(f.Bursts) == 1 && f.Bursts[0].Frame.Len() > 0 {
			return
		}
	}
	t.Fatal("no frame carried the live burst")
}

func TestRoomFullClosesConnection(t *testing.T) {
	hub, base := startTestServer(t)
	room := hub.GetRoom("packed")
	for i := 0; i < game.RoomMaxPeers; i++ {
		if err := room.Join(game.NewPeer(nil, false)); err != nil {
			t.Fatal(err)
		}
	}

	conn := dial(t, base+"/ws?room=packed")
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("expected error frame, got %v", err)
	}
	var msg errorMsg
	if err := json.Unmarshal(payload, &msg); err != nil || msg.Message != "room full" {
		t.Fatalf("expected room full error, got %s", payload)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection closed after room full")
	}
}

func TestUnknownCodecRejected(t *testing.T) {
	_, base := startTestServer(t)
	_, resp, err := websocket.DefaultDialer.Dial(base+"/ws?codec=xml", nil)
	if err == nil {
		t.Fatal("expected handshake failure")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("expected 400, got %v", resp)
	}
}

func TestDecodeInbound(t *testing.T) {
	ev := wire.NewLaunch(1, 4, -2, "#00ff88", firework.Crossette)
	jsonData, _ := wire.JSON.Marshal(ev)
	protoData, _ := wire.Proto.Marshal(ev)
	packData, _ := wire.Msgpack.Marshal(ev)

	if got, err := decodeInbound(wire.Msgpack, websocket.TextMessage, jsonData); err != nil || got != ev {
		t.Errorf("text frame on msgpack peer: got %+v (%v)", got, err)
	}
	if got, err := decodeInbound(wire.Msgpack, websocket.BinaryMessage, packData); err != nil || got != ev {
		t.Errorf("msgpack frame: got %+v (%v)", got, err)
	}
	if got, err := decodeInbound(wire.Proto, websocket.BinaryMessage, protoData); err != nil || got != ev {
		t.Errorf("proto frame: got %+v (%v)", got, err)
	}
	if _, err := decodeInbound(wire.JSON, websocket.BinaryMessage, protoData); !errors.Is(err, errBinaryOnText) {
		t.Errorf("expected binary frame on json peer to be rejected, got %v", err)
	}
}

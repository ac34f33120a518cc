package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"Fireworks/internal/game"
	"Fireworks/internal/wire"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	maxEventSize = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// errorMsg is sent as a text frame before the server closes a connection.
type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type liveConn struct {
	conn      *websocket.Conn
	frameTick *time.Ticker
}

func (lc *liveConn) write(msgType int, data []byte) error {
	_ = lc.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return lc.conn.WriteMessage(msgType, data)
}

func serveWS(h *game.Hub, w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	roomID := query.Get("room")
	if roomID == "" {
		roomID = "default"
	}
	codec, err := wire.CodecByName(query.Get("codec"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	frames := query.Get("frames") == "1"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}
	conn.SetReadLimit(maxEventSize)
	lc := &liveConn{conn: conn}

	peer := game.NewPeer(codec, frames)
	room, err := h.Join(roomID, peer)
	if err != nil {
		if errors.Is(err, game.ErrRoomFull) {
			data, _ := json.Marshal(errorMsg{Type: "ERROR", Message: "room full"})
			_ = lc.write(websocket.TextMessage, data)
		}
		log.Printf("ws: room %s: %v", roomID, err)
		conn.Close()
		return
	}
	log.Printf("ws: peer %s joined room %s (codec %s, frames %v)", peer.ID, roomID, codec.Name(), frames)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			ev, err := decodeInbound(codec, msgType, data)
			if err != nil {
				log.Printf("ws: peer %s: %v", peer.ID, err)
				continue
			}
			if _, err := room.Launch(peer.ID, ev); err != nil {
				log.Printf("ws: peer %s: ignoring launch: %v", peer.ID, err)
			}
		}
	}()

	var frameC <-chan time.Time
	if frames {
		lc.frameTick = time.NewTicker(game.FrameInterval)
		frameC = lc.frameTick.C
	}

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case msg := <-peer.Send:
			msgType := websocket.TextMessage
			if msg.Binary {
				msgType = websocket.BinaryMessage
			}
			if err := lc.write(msgType, msg.Data); err != nil {
				log.Printf("ws: peer %s: send error: %v", peer.ID, err)
				break loop
			}
		case <-frameC:
			if err := lc.write(websocket.BinaryMessage, room.Frame()); err != nil {
				log.Printf("ws: peer %s: send frame error: %v", peer.ID, err)
				break loop
			}
		}
	}

	if lc.frameTick != nil {
		lc.frameTick.Stop()
	}
	conn.Close()
	room.Leave(peer.ID)
	log.Printf("ws: peer %s left room %s", peer.ID, roomID)
}

// errBinaryOnText is returned for binary messages from a peer that
// negotiated a text codec.
var errBinaryOnText = errors.New("binary message on text codec")

// decodeInbound accepts text frames as JSON regardless of the negotiated
// codec so browser tooling can always inject launches. Binary frames must
// match a binary codec.
func decodeInbound(codec wire.Codec, msgType int, data []byte) (wire.LaunchEvent, error) {
	if msgType == websocket.TextMessage {
		return wire.JSON.Unmarshal(data)
	}
	if !codec.Binary() {
		return wire.LaunchEvent{}, fmt.Errorf("%w (%s)", errBinaryOnText, codec.Name())
	}
	return codec.Unmarshal(data)
}

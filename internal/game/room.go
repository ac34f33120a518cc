package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"Fireworks/internal/firework"
	"Fireworks/internal/wire"
)

var ErrRoomFull = errors.New("room full")

// Outbound is one websocket message queued for a peer.
type Outbound struct {
	Binary bool
	Data   []byte
}

// Peer is a connected viewer. The connection's writer drains Send.
type Peer struct {
	ID     string
	Codec  wire.Codec
	Frames bool
	Send   chan Outbound
}

func NewPeer(codec wire.Codec, frames bool) *Peer {
	if codec == nil {
		codec = wire.JSON
	}
	return &Peer{
		ID:     NewID(),
		Codec:  codec,
		Frames: frames,
		Send:   make(chan Outbound, PeerSendBuffer),
	}
}

// Room relays launches between its peers and keeps a server-side simulation
// of the same fireworks for frame subscribers.
type Room struct {
	ID    string
	Now   float64
	Peers map[string]*Peer
	Mu    sync.Mutex

	spawner *Spawner
	frame   []byte
}

func newRoom(id string, tuning firework.Tuning) *Room {
	reg := NewRegistry(RegistryOptions{Tuning: tuning})
	return &Room{
		ID:      id,
		Peers:   map[string]*Peer{},
		spawner: NewSpawner(reg, nil, nil),
	}
}

// Join adds a peer unless the room is full.
func (r *Room) Join(p *Peer) error {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	if len(r.Peers) >= RoomMaxPeers {
		return fmt.Errorf("%w (%d peers)", ErrRoomFull, RoomMaxPeers)
	}
	r.Peers[p.ID] = p
	return nil
}

func (r *Room) Leave(id string) {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	delete(r.Peers, id)
}

func (r *Room) PeerCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return len(r.Peers)
}

func (r *Room) LiveCount() int {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	return r.spawner.Registry().Len()
}

// Launch validates an event from peer from, spawns it into the room's
// simulation and relays it to every other peer.
func (r *Room) Launch(from string, ev wire.LaunchEvent) (string, error) {
	if err := ev.Validate(); err != nil {
		return "", err
	}
	r.Mu.Lock()
	defer r.Mu.Unlock()
	id, _ := r.spawner.FromEvent(ev)
	r.broadcastLocked(from, ev)
	return id, nil
}

// broadcastLocked encodes ev once per codec and queues it for every peer
// except from. Peers whose queue is full miss the event.
func (r *Room) broadcastLocked(from string, ev wire.LaunchEvent) {
	encoded := map[string][]byte{}
	for id, p := range r.Peers {
		if id == from {
			continue
		}
		data, ok := encoded[p.Codec.Name()]
		if !ok {
			var err error
			data, err = p.Codec.Marshal(ev)
			if err != nil {
				log.Printf("room %s: encode %s: %v", r.ID, p.Codec.Name(), err)
				continue
			}
			encoded[p.Codec.Name()] = data
		}
		select {
		case p.Send <- Outbound{Binary: p.Codec.Binary(), Data: data}:
		default:
			log.Printf("room %s: peer %s send queue full, dropping launch", r.ID, id)
		}
	}
}

func (r *Room) Tick() {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	r.Now += Dt
	r.spawner.Registry().Tick(Dt)
}

// Frame encodes the current render state of every live instance.
func (r *Room) Frame() []byte {
	r.Mu.Lock()
	defer r.Mu.Unlock()
	f := wire.RenderFrame{Now: r.Now}
	r.spawner.Registry().Each(func(fw *firework.Firework) {
		f.Bursts = append(f.Bursts, wire.Burst{ID: fw.ID(), Frame: fw.Frame()})
	})
	r.frame = wire.EncodeFrame(r.frame[:0], f)
	return append([]byte(nil), r.frame...)
}

type Hub struct {
	Rooms  map[string]*Room
	Mu     sync.Mutex
	tuning firework.Tuning
}

func NewHub(tuning firework.Tuning) *Hub {
	if tuning == nil {
		tuning = firework.DefaultTuning()
	}
	return &Hub{Rooms: map[string]*Room{}, tuning: tuning}
}

func (h *Hub) GetRoom(id string) *Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	return h.roomLocked(id)
}

func (h *Hub) roomLocked(id string) *Room {
	r, ok := h.Rooms[id]
	if !ok {
		r = newRoom(id, h.tuning)
		h.Rooms[id] = r
	}
	return r
}

// Join finds or creates room id and adds p to it. The hub lock is held
// throughout so CleanupEmptyRooms cannot drop the room in between.
func (h *Hub) Join(id string, p *Peer) (*Room, error) {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	r := h.roomLocked(id)
	if err := r.Join(p); err != nil {
		return nil, err
	}
	return r, nil
}

func (h *Hub) snapshot() []*Room {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	rooms := make([]*Room, 0, len(h.Rooms))
	for _, r := range h.Rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// CleanupEmptyRooms drops rooms with no peers and no live fireworks and
// returns how many were removed.
func (h *Hub) CleanupEmptyRooms() int {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	removed := 0
	for id, r := range h.Rooms {
		r.Mu.Lock()
		empty := len(r.Peers) == 0 && r.spawner.Registry().Len() == 0
		r.Mu.Unlock()
		if empty {
			delete(h.Rooms, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("hub: cleaned up %d empty rooms", removed)
	}
	return removed
}

// Run ticks every room at SimHz until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(SimTick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, r := range h.snapshot() {
				r.Tick()
			}
		}
	}
}

// Close tears down every room's simulation.
func (h *Hub) Close() {
	h.Mu.Lock()
	defer h.Mu.Unlock()
	for id, r := range h.Rooms {
		r.Mu.Lock()
		r.spawner.Registry().Clear()
		r.Mu.Unlock()
		delete(h.Rooms, id)
	}
}

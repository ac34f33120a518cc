package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"Fireworks/internal/wire"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 10 * time.Second
	writeWait  = 5 * time.Second
	queueSize  = 32
)

var (
	ErrClosed    = errors.New("peer closed")
	ErrQueueFull = errors.New("publish queue full")
)

// Peer keeps a connection to a relay room, publishing local launches and
// collecting launches from other viewers. It reconnects until closed.
type Peer struct {
	url    string
	codec  wire.Codec
	dialer *websocket.Dialer

	out    chan wire.LaunchEvent
	in     chan wire.LaunchEvent
	closed chan struct{}
	once   sync.Once

	mu        sync.Mutex
	connected bool
}

// NewPeer targets addr, either host:port or a ws:// / wss:// base URL.
func NewPeer(addr, room string, codec wire.Codec) (*Peer, error) {
	if codec == nil {
		codec = wire.JSON
	}
	u, err := relayURL(addr, room, codec.Name())
	if err != nil {
		return nil, err
	}
	return &Peer{
		url:    u,
		codec:  codec,
		dialer: websocket.DefaultDialer,
		out:    make(chan wire.LaunchEvent, queueSize),
		in:     make(chan wire.LaunchEvent, queueSize),
		closed: make(chan struct{}),
	}, nil
}

func relayURL(addr, room, codec string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("relay address %q: %w", addr, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("relay address %q: unsupported scheme %q", addr, u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	if room != "" {
		q.Set("room", room)
	}
	q.Set("codec", codec)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Publish queues ev for the relay. It never blocks the frame loop.
func (p *Peer) Publish(ev wire.LaunchEvent) error {
	select {
	case <-p.closed:
		return ErrClosed
	default:
	}
	select {
	case p.out <- ev:
		return nil
	default:
		return ErrQueueFull
	}
}

// Events delivers launches received from other viewers.
func (p *Peer) Events() <-chan wire.LaunchEvent { return p.in }

func (p *Peer) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

func (p *Peer) Close() {
	p.once.Do(func() { close(p.closed) })
}

// Run dials the relay and serves the connection, backing off between
// attempts, until ctx is done or Close is called.
func (p *Peer) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	backoff := minBackoff
	for {
		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err == nil {
			backoff = minBackoff
			log.Printf("client: connected to %s", p.url)
			p.serve(ctx, conn)
		} else if ctx.Err() == nil {
			log.Printf("client: dial %s: %v (retrying in %v)", p.url, err, backoff)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (p *Peer) setConnected(v bool) {
	p.mu.Lock()
	p.connected = v
	p.mu.Unlock()
}

func (p *Peer) serve(ctx context.Context, conn *websocket.Conn) {
	p.setConnected(true)
	defer p.setConnected(false)
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("client: read: %v", err)
				}
				return
			}
			ev, err := p.decode(msgType, data)
			if err != nil {
				log.Printf("client: %v", err)
				continue
			}
			if ev.Type != wire.TypeLaunch {
				log.Printf("client: relay says %s", data)
				continue
			}
			select {
			case p.in <- ev:
			default:
				log.Printf("client: inbound queue full, dropping launch")
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case ev := <-p.out:
			data, err := p.codec.Marshal(ev)
			if err != nil {
				log.Printf("client: encode: %v", err)
				continue
			}
			msgType := websocket.TextMessage
			if p.codec.Binary() {
				msgType = websocket.BinaryMessage
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(msgType, data); err != nil {
				log.Printf("client: write: %v", err)
				return
			}
		}
	}
}

func (p *Peer) decode(msgType int, data []byte) (wire.LaunchEvent, error) {
	if msgType == websocket.TextMessage {
		return wire.JSON.Unmarshal(data)
	}
	return p.codec.Unmarshal(data)
}

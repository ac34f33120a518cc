package audio

import (
	"log"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
)

// SpeedOfSound in world units (metres) per second.
const SpeedOfSound = 343.0

// Sink is the output device. Resume must succeed before Play is called; it is
// retried on every cue until it does.
type Sink interface {
	Resume() error
	Play(s beep.Streamer)
}

// Options tune positional playback.
type Options struct {
	RefDistance float64 // distance at which gain is 1
	Rolloff     float64
	Detune      float64 // max random detune in cents, either direction
	Volume      float64
	Delayed     bool // delay playback by sound travel time
}

func DefaultOptions() Options {
	return Options{
		RefDistance: 10,
		Rolloff:     1,
		Detune:      300,
		Volume:      0.8,
		Delayed:     true,
	}
}

type stopper interface {
	Stop() bool
}

func afterFunc(d time.Duration, fn func()) stopper {
	return time.AfterFunc(d, fn)
}

type cueState int

const (
	cuePending cueState = iota
	cuePlayed
	cueStopped
)

// Cue is one scheduled explosion sound.
type Cue struct {
	player *Player
	at     mgl64.Vec3
	ratio  float64
	delay  time.Duration
	timer  stopper
	state  cueState
}

// Delay reports how long after scheduling the cue plays.
func (c *Cue) Delay() time.Duration { return c.delay }

// Stop cancels the cue. It reports whether the cue was still pending; a
// stopped cue never plays.
func (c *Cue) Stop() bool {
	p := c.player
	p.mu.Lock()
	defer p.mu.Unlock()
	if c.state != cuePending {
		return false
	}
	c.state = cueStopped
	delete(p.cues, c)
	if c.timer != nil {
		c.timer.Stop()
	}
	return true
}

// Player positions explosion sounds relative to a listener and schedules
// them by sound travel time.
type Player struct {
	mu       sync.Mutex
	sink     Sink
	buf      *beep.Buffer
	opts     Options
	rng      *rand.Rand
	listener mgl64.Vec3
	cues     map[*Cue]struct{}
	after    func(time.Duration, func()) stopper
	closed   bool
	warned   bool
}

// NewPlayer builds a player around a pre-rendered explosion buffer.
func NewPlayer(sink Sink, buf *beep.Buffer, opts Options, rng *rand.Rand) *Player {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if opts.RefDistance <= 0 {
		opts.RefDistance = 1
	}
	if opts.Rolloff < 0 {
		opts.Rolloff = 0
	}
	return &Player{
		sink:  sink,
		buf:   buf,
		opts:  opts,
		rng:   rng,
		cues:  make(map[*Cue]struct{}),
		after: afterFunc,
	}
}

// SetListener moves the listener, typically with the camera.
func (p *Player) SetListener(pos mgl64.Vec3) {
	p.mu.Lock()
	p.listener = pos
	p.mu.Unlock()
}

// Pending returns the number of cues waiting for their timer.
func (p *Player) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.cues)
}

// Schedule cues an explosion heard from at. It plays at once when delays are
// disabled or the source is at the listener.
func (p *Player) Schedule(at mgl64.Vec3) *Cue {
	p.mu.Lock()
	c := &Cue{
		player: p,
		at:     at,
		ratio:  math.Pow(2, (p.rng.Float64()*2-1)*p.opts.Detune/1200),
	}
	if p.closed {
		c.state = cueStopped
		p.mu.Unlock()
		return c
	}
	if p.opts.Delayed {
		c.delay = time.Duration(at.Sub(p.listener).Len() / SpeedOfSound * float64(time.Second))
	}
	if c.delay <= 0 {
		c.state = cuePlayed
		p.mu.Unlock()
		p.play(c)
		return c
	}
	p.cues[c] = struct{}{}
	c.timer = p.after(c.delay, func() { p.fire(c) })
	p.mu.Unlock()
	return c
}

// Explode satisfies the firework audio hook.
func (p *Player) Explode(at mgl64.Vec3) func() {
	c := p.Schedule(at)
	return func() { c.Stop() }
}

func (p *Player) fire(c *Cue) {
	p.mu.Lock()
	if c.state != cuePending {
		p.mu.Unlock()
		return
	}
	c.state = cuePlayed
	delete(p.cues, c)
	p.mu.Unlock()
	p.play(c)
}

func (p *Player) play(c *Cue) {
	if p.sink == nil || p.buf == nil {
		return
	}
	if err := p.sink.Resume(); err != nil {
		p.mu.Lock()
		if !p.warned {
			log.Printf("audio: output unavailable, skipping sounds: %v", err)
			p.warned = true
		}
		p.mu.Unlock()
		return
	}

	p.mu.Lock()
	rel := c.at.Sub(p.listener)
	p.mu.Unlock()
	dist := rel.Len()

	var s beep.Streamer = p.buf.Streamer(0, p.buf.Len())
	if c.ratio != 1 {
		s = beep.ResampleRatio(4, c.ratio, s)
	}
	s = newVolume(s, p.opts.Volume*Gain(dist, p.opts.RefDistance, p.opts.Rolloff))
	pan := 0.0
	if dist > 0 {
		pan = clamp(rel.X()/(dist+p.opts.RefDistance), -1, 1)
	}
	p.sink.Play(&effects.Pan{Streamer: s, Pan: pan})
}

// Close cancels every pending cue; later cues are dropped.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for c := range p.cues {
		c.state = cueStopped
		if c.timer != nil {
			c.timer.Stop()
		}
	}
	clear(p.cues)
}

// Gain is the inverse-distance attenuation used by positional audio.
func Gain(dist, ref, rolloff float64) float64 {
	if ref <= 0 {
		ref = 1
	}
	d := math.Max(dist, ref)
	return ref / (ref + rolloff*(d-ref))
}

// newVolume maps linear gain onto effects.Volume; zero gain is silent.
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

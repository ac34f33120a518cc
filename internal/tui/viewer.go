package tui

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"Fireworks/internal/firework"
	"Fireworks/internal/game"
	"Fireworks/internal/wire"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	orbitStep    = math.Pi / 8
	launchSpread = 15.0
	groundExtent = 30.0
	groundStep   = 3.0
	maxFrameDt   = 0.1
)

type Options struct {
	FPS      int
	Events   <-chan wire.LaunchEvent // launches from other viewers
	Listener func(eye mgl64.Vec3)    // called each frame with the camera position
	Status   func() string
	Rand     *rand.Rand
}

// Viewer is the terminal front end. It is also the render target the
// registry gates on: instances only tick once the screen has a size.
type Viewer struct {
	screen  tcell.Screen
	cam     *Camera
	canvas  *Canvas
	spawner *game.Spawner
	opts    Options
	rng     *rand.Rand
	buttons tcell.ButtonMask
}

func New(screen tcell.Screen, opts Options) *Viewer {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	rng := opts.Rand
	if rng == nil {
		rng = game.NewRand()
	}
	v := &Viewer{
		screen: screen,
		cam:    NewCamera(opts.FPS),
		canvas: NewCanvas(0, 0),
		opts:   opts,
		rng:    rng,
	}
	v.resize()
	return v
}

// Bind attaches the spawner that pointer and key launches go through.
func (v *Viewer) Bind(s *game.Spawner) { v.spawner = s }

func (v *Viewer) Camera() *Camera { return v.cam }

func (v *Viewer) Ready() bool {
	w, h := v.canvas.Size()
	return w > 0 && h > 0
}

// Upload is a no-op; Render reads every instance's frame in one pass.
func (v *Viewer) Upload(firework.Frame) {}

func (v *Viewer) resize() {
	w, h := v.screen.Size()
	v.canvas.Resize(w, h)
}

// HandleEvent applies one input event and reports whether to quit.
func (v *Viewer) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		v.screen.Sync()
		v.resize()
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyLeft:
			v.cam.Orbit(-orbitStep)
		case tcell.KeyRight:
			v.cam.Orbit(orbitStep)
		case tcell.KeyRune:
			switch r := ev.Rune(); r {
			case 'q':
				return true
			case 'c':
				if v.spawner != nil {
					v.spawner.Registry().Clear()
				}
			case '1', '2', '3':
				v.launchKind(firework.Kinds()[r-'1'])
			}
		}
	case *tcell.EventMouse:
		pressed := ev.Buttons()&tcell.Button1 != 0 && v.buttons&tcell.Button1 == 0
		v.buttons = ev.Buttons()
		if pressed {
			x, y := ev.Position()
			v.click(x, y)
		}
	}
	return false
}

func (v *Viewer) click(x, y int) {
	if v.spawner == nil {
		return
	}
	w, h := v.canvas.Size()
	if hit, ok := v.cam.GroundHit(x, y, w, h); ok {
		v.spawner.FromPointer(hit)
	}
}

func (v *Viewer) launchKind(k firework.Kind) {
	if v.spawner == nil {
		return
	}
	pos := mgl64.Vec3{
		(v.rng.Float64()*2 - 1) * launchSpread,
		game.GroundY + game.SpawnLift + v.rng.Float64()*8,
		(v.rng.Float64()*2 - 1) * launchSpread,
	}
	v.spawner.Launch(pos, game.RandomColor(v.rng), k)
}

// Step drains remote launches, advances the camera and every instance by dt
// and redraws.
func (v *Viewer) Step(dt float64) {
	v.drainEvents()
	v.cam.Update()
	if v.opts.Listener != nil {
		v.opts.Listener(v.cam.Eye())
	}
	if v.spawner != nil {
		v.spawner.Registry().Tick(dt)
	}
	v.Render()
}

func (v *Viewer) drainEvents() {
	if v.opts.Events == nil || v.spawner == nil {
		return
	}
	for {
		select {
		case ev := <-v.opts.Events:
			v.spawner.FromEvent(ev)
		default:
			return
		}
	}
}

func (v *Viewer) Render() {
	v.canvas.Clear()
	v.canvas.PlotGround(v.cam, groundExtent, groundStep)
	live := 0
	if v.spawner != nil {
		reg := v.spawner.Registry()
		live = reg.Len()
		reg.Each(func(fw *firework.Firework) { v.canvas.Plot(v.cam, fw.Frame()) })
	}
	v.screen.Clear()
	v.canvas.Draw(v.screen)
	status := fmt.Sprintf(" %d live | click ground or 1/2/3 to launch, ←/→ orbit, c clear, q quit", live)
	if v.opts.Status != nil {
		status += " | " + v.opts.Status()
	}
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for i, r := range []rune(status) {
		v.screen.SetContent(i, 0, r, nil, style)
	}
	v.screen.Show()
}

// Run drives the frame loop until quit or ctx is done.
func (v *Viewer) Run(ctx context.Context) {
	events := make(chan tcell.Event, 16)
	go func() {
		defer close(events)
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(time.Second / time.Duration(v.opts.FPS))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok || v.HandleEvent(ev) {
				return
			}
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			v.Step(math.Min(dt, maxFrameDt))
		}
	}
}

package tui

import (
	"math"

	"Fireworks/internal/game"

	"github.com/charmbracelet/harmonica"
	"github.com/go-gl/mathgl/mgl64"
)

// cellAspect is the height of a terminal cell relative to its width.
const cellAspect = 2.0

const (
	nearPlane = 0.1
	farPlane  = 500.0
)

// Camera orbits a look-at point. Orbit requests are eased in with a
// critically damped spring.
type Camera struct {
	Target   mgl64.Vec3
	Distance float64
	Height   float64
	FovY     float64

	yaw, yawVel, yawGoal float64
	spring               harmonica.Spring
}

func NewCamera(fps int) *Camera {
	return &Camera{
		Target:   mgl64.Vec3{0, 5, 0},
		Distance: 40,
		Height:   8,
		FovY:     mgl64.DegToRad(60),
		spring:   harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Orbit turns the goal yaw by delta radians.
func (c *Camera) Orbit(delta float64) { c.yawGoal += delta }

// Update moves the yaw one frame toward its goal.
func (c *Camera) Update() {
	c.yaw, c.yawVel = c.spring.Update(c.yaw, c.yawVel, c.yawGoal)
}

func (c *Camera) Yaw() float64 { return c.yaw }

func (c *Camera) Eye() mgl64.Vec3 {
	return mgl64.Vec3{
		c.Target.X() + c.Distance*math.Sin(c.yaw),
		c.Height,
		c.Target.Z() + c.Distance*math.Cos(c.yaw),
	}
}

func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Eye(), c.Target, mgl64.Vec3{0, 1, 0})
}

// Projection maps view space onto a w×h cell viewport.
func (c *Camera) Projection(w, h int) mgl64.Mat4 {
	aspect := 1.0
	if h > 0 {
		aspect = float64(w) / (float64(h) * cellAspect)
	}
	return mgl64.Perspective(c.FovY, aspect, nearPlane, farPlane)
}

// Project returns the cell a world point lands in and its distance from the
// eye. ok is false for points behind the camera or outside the viewport.
func (c *Camera) Project(p mgl64.Vec3, w, h int) (x, y int, depth float64, ok bool) {
	clip := c.Projection(w, h).Mul4(c.View()).Mul4x1(p.Vec4(1))
	if clip.W() <= nearPlane {
		return 0, 0, 0, false
	}
	ndcX := clip.X() / clip.W()
	ndcY := clip.Y() / clip.W()
	if ndcX < -1 || ndcX >= 1 || ndcY <= -1 || ndcY > 1 {
		return 0, 0, 0, false
	}
	x = int((ndcX + 1) / 2 * float64(w))
	y = int((1 - ndcY) / 2 * float64(h))
	return x, y, clip.W(), true
}

// GroundHit casts the ray through the centre of cell (col, row) onto the
// launch surface.
func (c *Camera) GroundHit(col, row, w, h int) (mgl64.Vec3, bool) {
	view, proj := c.View(), c.Projection(w, h)
	winX := float64(col) + 0.5
	winY := float64(h-row) - 0.5
	near, err := mgl64.UnProject(mgl64.Vec3{winX, winY, 0}, view, proj, 0, 0, w, h)
	if err != nil {
		return mgl64.Vec3{}, false
	}
	far, err := mgl64.UnProject(mgl64.Vec3{winX, winY, 1}, view, proj, 0, 0, w, h)
	if err != nil {
		return mgl64.Vec3{}, false
	}
	dir := far.Sub(near)
	if dir.Y() >= 0 {
		return mgl64.Vec3{}, false
	}
	t := (game.GroundY - near.Y()) / dir.Y()
	if t < 0 {
		return mgl64.Vec3{}, false
	}
	return near.Add(dir.Mul(t)), true
}

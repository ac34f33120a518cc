package wire

import (
	"errors"
	"fmt"
	"math"

	"Fireworks/internal/firework"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// TypeLaunch is the only event type peers exchange.
const TypeLaunch = "LAUNCH_FIREWORK"

var (
	ErrUnknownType = errors.New("unknown event type")
	ErrBadEvent    = errors.New("malformed event")
)

// LaunchEvent announces a firework launch to the other viewers in a room.
type LaunchEvent struct {
	Type         string  `json:"type" msgpack:"type"`
	X            float64 `json:"x" msgpack:"x"`
	Y            float64 `json:"y" msgpack:"y"`
	Z            float64 `json:"z" msgpack:"z"`
	Color        string  `json:"color" msgpack:"color"`
	FireworkType string  `json:"fireworkType" msgpack:"fireworkType"`
}

// NewLaunch builds a launch event.
func NewLaunch(x, y, z float64, color string, kind firework.Kind) LaunchEvent {
	return LaunchEvent{Type: TypeLaunch, X: x, Y: y, Z: z, Color: color, FireworkType: kind.String()}
}

// Validate checks an inbound event before it reaches a spawner.
func (e LaunchEvent) Validate() error {
	if e.Type != TypeLaunch {
		return fmt.Errorf("%w: %q", ErrUnknownType, e.Type)
	}
	for _, v := range [...]float64{e.X, e.Y, e.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate", ErrBadEvent)
		}
	}
	if _, err := colorful.Hex(e.Color); err != nil {
		return fmt.Errorf("%w: color %q", ErrBadEvent, e.Color)
	}
	if _, err := firework.ParseKind(e.FireworkType); err != nil {
		return err
	}
	return nil
}

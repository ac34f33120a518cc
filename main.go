package main

import (
	"flag"
	"math"

	"Fireworks/internal/server"
)

func main() {
	addr := flag.String("addr", ":8080", "address to listen on (e.g., 127.0.0.1:8080)")
	tuningPath := flag.String("tuning", "configs/fireworks.json", "path to firework tuning JSON")
	kind := flag.String("tune-kind", "", "restrict overrides to one firework kind (peony, willow, crossette)")
	count := flag.Int("count", -1, "override particle count")
	gravity := flag.Float64("gravity", math.NaN(), "override burst gravity")
	drag := flag.Float64("drag", math.NaN(), "override per-frame drag factor")
	life := flag.Float64("life", math.NaN(), "override burst life span in seconds")
	flag.Parse()

	cfg := server.DefaultAppConfig()
	cfg.TuningPath = *tuningPath

	overrides := server.TuningOverrides{Kind: *kind}
	if *count >= 0 {
		val := *count
		overrides.Count = &val
	}
	if !math.IsNaN(*gravity) {
		val := *gravity
		overrides.Gravity = &val
	}
	if !math.IsNaN(*drag) {
		val := *drag
		overrides.Drag = &val
	}
	if !math.IsNaN(*life) {
		val := *life
		overrides.LifeSpan = &val
	}
	cfg.Overrides = overrides

	server.StartApp(*addr, cfg)
}

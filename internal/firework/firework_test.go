package firework

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	colorful "github.com/lucasb-eyer/go-colorful"
)

type recorder struct {
	ready   bool
	uploads int
	last    Frame
}

func (r *recorder) Ready() bool { return r.ready }
func (r *recorder) Upload(f Frame) {
	r.uploads++
	r.last = f.Clone()
}

type fakeAudio struct {
	cues      []mgl64.Vec3
	cancelled int
}

func (a *fakeAudio) Explode(at mgl64.Vec3) func() {
	a.cues = append(a.cues, at)
	return func() { a.cancelled++ }
}

func mustHex(t *testing.T, s string) colorful.Color {
	t.Helper()
	c, err := colorful.Hex(s)
	if err != nil {
		t.Fatalf("bad colour %q: %v", s, err)
	}
	return c
}

func newTestFirework(t *testing.T, kind Kind, cfg Config, pos mgl64.Vec3) (*Firework, *recorder, *int) {
	t.Helper()
	rec := &recorder{ready: true}
	completions := new(int)
	fw := New(Params{ID: "fw-test", Position: pos, Color: mustHex(t, "#ff0000"), Kind: kind}, Options{
		Config:     cfg,
		Rand:       testRand(42),
		Target:     rec,
		OnComplete: func(string) { *completions++ },
	})
	return fw, rec, completions
}

func TestPeonyCompletesAfterLifeSpan(t *testing.T) {
	cfg := DefaultConfig(Peony)
	fw, _, completions := newTestFirework(t, Peony, cfg, mgl64.Vec3{0, 3, 0})
	if fw.Phase() != PhaseExplode {
		t.Fatalf("expected peony to start exploded, got %s", fw.Phase())
	}

	ticks := int(cfg.LifeSpan*60 + 0.5)
	for i := 0; i < ticks; i++ {
		if i == ticks-1 && *completions != 0 {
			t.Fatalf("completion fired early at tick %d", i)
		}
		fw.Tick(1.0 / 60)
	}
	if *completions != 1 {
		t.Fatalf("expected completion after %d ticks, got %d signals", ticks, *completions)
	}
	for i, p := range fw.Particles() {
		if p.Alpha > 0 {
			t.Fatalf("particle %d still has alpha %f", i, p.Alpha)
		}
	}
}

func TestCompletionSignalledOnce(t *testing.T) {
	fw, rec, completions := newTestFirework(t, Peony, DefaultConfig(Peony), mgl64.Vec3{0, 3, 0})
	for i := 0; i < 300; i++ {
		fw.Tick(1.0 / 60)
	}
	if *completions != 1 {
		t.Errorf("expected exactly one completion, got %d", *completions)
	}
	if !fw.Completed() {
		t.Error("expected Completed to report true")
	}
	uploads := rec.uploads
	fw.Tick(1.0 / 60)
	if rec.uploads != uploads {
		t.Error("completed firework must not upload frames")
	}
}

func TestNoCompletionDuringLaunch(t *testing.T) {
	fw, _, completions := newTestFirework(t, Willow, DefaultConfig(Willow), mgl64.Vec3{0, 20, 0})
	if fw.Phase() != PhaseLaunch {
		t.Fatalf("expected willow to start in launch phase")
	}
	for fw.Phase() == PhaseLaunch {
		fw.Tick(1.0 / 60)
		if *completions != 0 {
			t.Fatal("completion fired during launch")
		}
	}
	if *completions != 0 {
		t.Fatal("completion fired on the burst tick")
	}
}

func TestExplosionTickRendersBurstNotRocket(t *testing.T) {
	cfg := DefaultConfig(Willow)
	fw, rec, _ := newTestFirework(t, Willow, cfg, mgl64.Vec3{0, 6, 0})
	for fw.Phase() == PhaseLaunch {
		fw.Tick(1.0 / 60)
		if fw.Phase() == PhaseLaunch && rec.last.Len() > 1+TrailLength {
			t.Fatalf("launch frame too large: %d", rec.last.Len())
		}
	}
	if rec.last.Len() != cfg.ParentCount {
		t.Errorf("expected burst frame of %d particles, got %d", cfg.ParentCount, rec.last.Len())
	}
	if len(rec.last.Positions) != 3*rec.last.Len() || len(rec.last.Colors) != 3*rec.last.Len() {
		t.Errorf("frame buffers misaligned: %d positions, %d colours, %d entries",
			len(rec.last.Positions), len(rec.last.Colors), rec.last.Len())
	}
}

func TestBurstOriginatesAtRocket(t *testing.T) {
	fw, _, _ := newTestFirework(t, Willow, DefaultConfig(Willow), mgl64.Vec3{2, 8, -1})
	var last mgl64.Vec3
	for fw.Phase() == PhaseLaunch {
		last = fw.Rocket().Pos
		fw.Tick(1.0 / 60)
	}
	origin := fw.Origin()
	if origin.X() != 2 || origin.Z() != -1 {
		t.Errorf("expected burst above launch point, got %v", origin)
	}
	if origin.Y() < last.Y() {
		t.Errorf("burst origin %.3f below previous rocket height %.3f", origin.Y(), last.Y())
	}
}

func TestCrossetteSplitCounts(t *testing.T) {
	cfg := DefaultConfig(Crossette)
	fw, _, _ := newTestFirework(t, Crossette, cfg, mgl64.Vec3{0, 10, 0})
	for !fw.SplitTriggered() {
		fw.Tick(1.0 / 60)
		if fw.Completed() {
			t.Fatal("completed before split")
		}
	}
	if fw.LifeRatio() >= cfg.SplitRatio {
		t.Errorf("split fired at life ratio %.3f", fw.LifeRatio())
	}

	parentsOff := 0
	for i := 0; i < cfg.ParentCount; i++ {
		if !fw.Particles()[i].Active {
			parentsOff++
		}
	}
	if parentsOff != cfg.ParentCount {
		t.Errorf("expected %d parents deactivated, got %d", cfg.ParentCount, parentsOff)
	}

	want := min(cfg.ParentCount*cfg.SplitChildren, cfg.Count-cfg.ParentCount)
	children := 0
	for _, p := range fw.Particles() {
		if p.Active && p.Generation == 1 {
			children++
		}
	}
	if children != want {
		t.Errorf("expected %d generation-1 particles, got %d", want, children)
	}
}

func TestCrossetteSplitsOnce(t *testing.T) {
	cfg := DefaultConfig(Crossette)
	cfg.Launch = false
	fw, _, _ := newTestFirework(t, Crossette, cfg, mgl64.Vec3{0, 10, 0})

	// Creep up to the threshold with tiny steps.
	for fw.LifeRatio() > cfg.SplitRatio+0.001 {
		fw.Tick(0.01)
	}
	for i := 0; i < 500 && !fw.Completed(); i++ {
		fw.Tick(0.0001)
	}
	if !fw.SplitTriggered() {
		t.Fatal("expected split to have fired")
	}
	for _, p := range fw.Particles() {
		if p.Generation > 1 {
			t.Fatalf("found generation %d particle; split ran more than once", p.Generation)
		}
	}
	active := 0
	for _, p := range fw.Particles() {
		if p.Active {
			active++
		}
	}
	if active != cfg.Count-cfg.ParentCount {
		t.Errorf("expected %d active children, got %d", cfg.Count-cfg.ParentCount, active)
	}
}

func TestSplitWithInsufficientSlots(t *testing.T) {
	cfg := DefaultConfig(Crossette)
	cfg.Launch = false
	cfg.Count = 300
	cfg.ParentCount = 200
	fw, _, _ := newTestFirework(t, Crossette, cfg, mgl64.Vec3{0, 10, 0})
	for !fw.SplitTriggered() {
		fw.Tick(1.0 / 60)
	}
	if len(fw.Particles()) != 300 {
		t.Fatalf("slot pool resized to %d", len(fw.Particles()))
	}
	active, gen1 := 0, 0
	for _, p := range fw.Particles() {
		if p.Active {
			active++
			if p.Generation == 1 {
				gen1++
			}
		}
	}
	if gen1 != 100 {
		t.Errorf("expected 100 children to fill the reserve, got %d", gen1)
	}
	if active > cfg.Count {
		t.Errorf("active %d exceeds capacity %d", active, cfg.Count)
	}
}

func TestSkipTickWithoutTarget(t *testing.T) {
	rec := &recorder{ready: false}
	fw := New(Params{ID: "x", Position: mgl64.Vec3{0, 3, 0}, Color: mustHex(t, "#00ff00"), Kind: Peony},
		Options{Config: DefaultConfig(Peony), Rand: testRand(1), Target: rec})
	fw.Tick(0.5)
	if rec.uploads != 0 {
		t.Error("expected no upload while target is not ready")
	}
	if fw.Particles()[0].Age != 0 {
		t.Error("expected no mutation while target is not ready")
	}

	fw.SetTarget(nil)
	fw.Tick(0.5)
	if fw.Particles()[0].Age != 0 {
		t.Error("expected no mutation without a target")
	}

	rec.ready = true
	fw.SetTarget(rec)
	fw.Tick(0.5)
	if rec.uploads != 1 || fw.Particles()[0].Age != 0.5 {
		t.Errorf("expected tick to run once target is ready (uploads %d, age %f)", rec.uploads, fw.Particles()[0].Age)
	}
}

func TestDestroyCancelsAudioAndStopsTicking(t *testing.T) {
	audio := &fakeAudio{}
	rec := &recorder{ready: true}
	fw := New(Params{ID: "x", Position: mgl64.Vec3{0, 3, 0}, Color: mustHex(t, "#0000ff"), Kind: Peony},
		Options{Config: DefaultConfig(Peony), Rand: testRand(2), Target: rec, Audio: audio})
	if len(audio.cues) != 1 {
		t.Fatalf("expected one explosion cue, got %d", len(audio.cues))
	}
	fw.Destroy()
	fw.Destroy()
	if audio.cancelled != 1 {
		t.Errorf("expected pending cue cancelled once, got %d", audio.cancelled)
	}
	if fw.Particles() != nil {
		t.Error("expected particle storage released")
	}
	fw.Tick(1.0 / 60)
	if rec.uploads != 0 {
		t.Error("destroyed firework must not upload")
	}
}

func TestInstancedModeKeepsSlots(t *testing.T) {
	cfg := DefaultConfig(Crossette)
	cfg.Launch = false
	rec := &recorder{ready: true}
	fw := New(Params{ID: "x", Position: mgl64.Vec3{0, 5, 0}, Color: mustHex(t, "#ffffff"), Kind: Crossette},
		Options{Config: cfg, Rand: testRand(3), Target: rec, Mode: ModeInstanced})
	fw.Tick(1.0 / 60)
	if rec.last.Len() != cfg.Count {
		t.Fatalf("expected %d instanced entries, got %d", cfg.Count, rec.last.Len())
	}
	for i := cfg.ParentCount; i < cfg.Count; i++ {
		if rec.last.Scales[i] != 0 {
			t.Fatalf("reserved slot %d rendered with scale %f", i, rec.last.Scales[i])
		}
	}
	if rec.last.Scales[0] <= 0 {
		t.Error("expected live slot to have positive scale")
	}
}

func TestInstancedLaunchFrameMatchesSlotCount(t *testing.T) {
	cfg := DefaultConfig(Willow)
	rec := &recorder{ready: true}
	fw := New(Params{ID: "x", Position: mgl64.Vec3{0, 12, 0}, Color: mustHex(t, "#ffaa00"), Kind: Willow},
		Options{Config: cfg, Rand: testRand(5), Target: rec, Mode: ModeInstanced})
	fw.Tick(1.0 / 60)
	if fw.Phase() != PhaseLaunch {
		t.Fatalf("expected launch phase, got %s", fw.Phase())
	}
	if rec.last.Len() != cfg.Count {
		t.Fatalf("expected %d launch entries, got %d", cfg.Count, rec.last.Len())
	}
	if rec.last.Scales[0] != 1 {
		t.Errorf("expected rocket head at full scale, got %f", rec.last.Scales[0])
	}
	if rec.last.Scales[cfg.Count-1] != 0 {
		t.Error("expected padding entries to be hidden")
	}
	for i := 0; i < 600 && fw.Phase() == PhaseLaunch; i++ {
		fw.Tick(1.0 / 60)
	}
	if fw.Phase() != PhaseExplode {
		t.Fatal("rocket never burst")
	}
	if rec.last.Len() != cfg.Count {
		t.Errorf("entry count changed at the burst: %d", rec.last.Len())
	}
}

func TestPointColoursPremultiplied(t *testing.T) {
	cfg := DefaultConfig(Peony)
	cfg.Flicker = false
	fw, rec, _ := newTestFirework(t, Peony, cfg, mgl64.Vec3{0, 3, 0})
	fw.Tick(0.6)
	p := fw.Particles()[0]
	got := float64(rec.last.Colors[0])
	want := p.Color.R * p.Alpha
	if d := got - want; d > 1e-6 || d < -1e-6 {
		t.Errorf("expected premultiplied red %.6f, got %.6f", want, got)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"peony":     Peony,
		"classic":   Peony,
		"Willow":    Willow,
		" crossette": Crossette,
	}
	for input, expected := range cases {
		k, err := ParseKind(input)
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", input, err)
			continue
		}
		if k != expected {
			t.Errorf("ParseKind(%q) = %s, expected %s", input, k, expected)
		}
	}
	if _, err := ParseKind("rocket"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestSanitizeConfig(t *testing.T) {
	c := SanitizeConfig(Config{Count: 0, ParentCount: 5, Drag: 2, LifeSpan: -1, SpeedMin: 5, SpeedMax: 1})
	if c.Count != 1 || c.ParentCount != 1 {
		t.Errorf("expected count/parents 1/1, got %d/%d", c.Count, c.ParentCount)
	}
	if c.Drag != 1 || c.LifeSpan != 1 || c.SpeedMax != 5 {
		t.Errorf("unexpected sanitized config %+v", c)
	}
	b := SanitizeConfig(Config{Count: 100, ParentCount: 10, Branches: true, Drag: 0.9, LifeSpan: 1})
	if b.SplitRatio != 0.6 || b.SplitChildren != 4 || b.SplitInherit != 0.6 {
		t.Errorf("expected split defaults, got %+v", b)
	}
	if b.SplitSpeedMin != 2 || b.SplitSpeedMax != 5 {
		t.Errorf("expected split burst speed 2..5, got %f..%f", b.SplitSpeedMin, b.SplitSpeedMax)
	}
	kept := SanitizeConfig(Config{Count: 100, ParentCount: 10, Branches: true, Drag: 0.9, LifeSpan: 1,
		SplitInherit: 0.3, SplitSpeedMin: 1, SplitSpeedMax: 3})
	if kept.SplitInherit != 0.3 || kept.SplitSpeedMin != 1 || kept.SplitSpeedMax != 3 {
		t.Errorf("explicit split tuning overwritten: %+v", kept)
	}
}

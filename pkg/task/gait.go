package task

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// FootCommand is a foot target offset relative to the hip's ground
// projection, in the body frame (+Z forward).
type FootCommand struct {
	Offset   mgl64.Vec3
	Grounded bool
	Phase    float64
}

// FootSource produces a foot command for the current time.
type FootSource interface {
	Foot(now time.Duration) FootCommand
}

// Stand keeps the foot planted under the hip.
type Stand struct{}

// Foot implements FootSource.
func (Stand) Foot(time.Duration) FootCommand {
	return FootCommand{Grounded: true}
}

// Gait is a continuous walking oscillator. The first half of each cycle is
// swing (foot forward along a Bézier, lifted by a sine), the second half is
// stance (foot back along the ground).
type Gait struct {
	CycleTime   time.Duration
	PhaseOffset float64 // 0 for one leg, 0.5 for the other
	StepLength  float64
	StepHeight  float64
}

// DefaultGait returns the biped walking gait.
func DefaultGait() Gait {
	return Gait{
		CycleTime:  time.Second,
		StepLength: 0.3,
		StepHeight: 0.15,
	}
}

// WithPhase returns a copy of g offset by phase.
func (g Gait) WithPhase(phase float64) Gait {
	g.PhaseOffset = phase
	return g
}

// Phase returns the cycle position in [0, 1).
func (g Gait) Phase(now time.Duration) float64 {
	if g.CycleTime <= 0 {
		return 0
	}
	p := math.Mod(now.Seconds()/g.CycleTime.Seconds()+g.PhaseOffset, 1)
	if p < 0 {
		p++
	}
	return p
}

// Foot implements FootSource.
func (g Gait) Foot(now time.Duration) FootCommand {
	phase := g.Phase(now)
	half := g.StepLength / 2

	if phase < 0.5 {
		t := phase * 2
		return FootCommand{
			Offset: mgl64.Vec3{0, math.Sin(math.Pi*t) * g.StepHeight, bezier(-half, -half, half, half, t)},
			Phase:  phase,
		}
	}

	t := (phase - 0.5) * 2
	return FootCommand{
		Offset:   mgl64.Vec3{0, 0, lerp(half, -half, t)},
		Grounded: true,
		Phase:    phase,
	}
}

// Kick lifts and extends the foot, then brings it back to rest.
type Kick struct {
	Duration  time.Duration
	Return    time.Duration
	Height    float64
	Extension float64
}

// DefaultKick returns the humanoid demo kick.
func DefaultKick() Kick {
	return Kick{
		Duration:  2 * time.Second,
		Return:    time.Second,
		Height:    0.3,
		Extension: 0.4,
	}
}

// Foot implements FootSource.
func (k Kick) Foot(now time.Duration) FootCommand {
	cycle := k.Duration + k.Return
	if cycle <= 0 || k.Duration <= 0 {
		return FootCommand{Grounded: true}
	}
	t := now % cycle
	if t < 0 {
		t += cycle
	}
	phase := float64(t) / float64(cycle)

	if t < k.Duration {
		p := float64(t) / float64(k.Duration)
		return FootCommand{
			Offset: mgl64.Vec3{0, math.Sin(math.Pi*p) * k.Height, math.Sin(math.Pi*p/2) * k.Extension},
			Phase:  phase,
		}
	}

	r := 1.0
	if k.Return > 0 {
		r = float64(t-k.Duration) / float64(k.Return)
	}
	return FootCommand{
		Offset:   mgl64.Vec3{0, 0, k.Extension * (1 - r)},
		Grounded: true,
		Phase:    phase,
	}
}

func bezier(p0, p1, p2, p3, t float64) float64 {
	u := 1 - t
	return u*u*u*p0 + 3*u*u*t*p1 + 3*u*t*t*p2 + t*t*t*p3
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

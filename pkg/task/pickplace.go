package task

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Command is what the state machine wants from the rig this frame.
type Command struct {
	Target       mgl64.Vec3 // wrist target in world space
	GripperWidth float64
	Grip         bool    // object follows the effector
	SpeedScale   float64 // multiplier on body smoothing speed
	State        State

	// ResetObject asks the driver to put the object back at Rest.
	ResetObject bool
}

// PickPlace is the per-arm pick-and-place state machine. It is initialised
// lazily on the first Update and owned by exactly one rig.
type PickPlace struct {
	cfg     Config
	origin  mgl64.Vec3
	heading float64
	rng     *rand.Rand

	started bool
	state   State
	entered time.Duration
	rest    mgl64.Vec3
	place   mgl64.Vec3
	cycles  int
}

// NewPickPlace creates a state machine for an arm standing at origin and
// facing heading. rng drives place target generation; nil uses a fixed seed.
func NewPickPlace(cfg Config, origin mgl64.Vec3, heading float64, rng *rand.Rand) *PickPlace {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 1))
	}
	return &PickPlace{
		cfg:     cfg,
		origin:  origin,
		heading: heading,
		rng:     rng,
	}
}

// State returns the current state.
func (p *PickPlace) State() State { return p.state }

// Cycles returns the number of completed cycles.
func (p *PickPlace) Cycles() int { return p.cycles }

// Rest returns the object's cached resting position.
func (p *PickPlace) Rest() mgl64.Vec3 { return p.rest }

// Place returns the current place target.
func (p *PickPlace) Place() mgl64.Vec3 { return p.place }

// Started reports whether Update has been called.
func (p *PickPlace) Started() bool { return p.started }

// InState returns how long the machine has been in its current state.
func (p *PickPlace) InState(now time.Duration) time.Duration {
	return now - p.entered
}

// Update advances the machine given the effector and object positions in
// world space and returns the command for this frame.
func (p *PickPlace) Update(effector, object mgl64.Vec3, now time.Duration) Command {
	if !p.started {
		p.started = true
		p.rest = mgl64.Vec3{object.X(), math.Max(object.Y(), p.cfg.MinHeight), object.Z()}
		p.restart(now)
	}

	var reset bool
	if now-p.entered > p.cfg.StateTimeout {
		// Stuck: start the cycle over.
		p.restart(now)
		reset = true
	} else {
		reset = p.advance(effector, now)
	}

	cmd := p.command(effector, now)
	cmd.ResetObject = reset
	return cmd
}

// advance applies at most one transition. It reports whether the cycle
// completed.
func (p *PickPlace) advance(effector mgl64.Vec3, now time.Duration) bool {
	elapsed := now - p.entered

	switch p.state {
	case MoveToObject:
		if effector.Sub(p.rest).Len() < p.cfg.GraspDistance {
			p.enter(GraspObject, now)
		}
	case GraspObject:
		if elapsed > p.cfg.GraspDwell {
			p.enter(LiftObject, now)
		}
	case LiftObject:
		if effector.Y() > p.rest.Y()+p.cfg.LiftHeight {
			p.enter(MoveToPlace, now)
		}
	case MoveToPlace:
		if planar(effector, p.place) < p.cfg.PlaceDistance {
			p.enter(PlaceObject, now)
		}
	case PlaceObject:
		done := p.descent(elapsed) >= 1
		settled := planar(effector, p.place) < p.cfg.SettleDistance &&
			math.Abs(effector.Y()-p.placeHeight(1)) < p.cfg.SettleHeight
		if done && settled {
			p.enter(ReleaseObject, now)
		}
	case ReleaseObject:
		if elapsed > p.cfg.ReleaseDwell {
			p.enter(ResetPosition, now)
		}
	case ResetPosition:
		if elapsed > p.cfg.ResetDwell {
			p.cycles++
			p.restart(now)
			return true
		}
	}
	return false
}

func (p *PickPlace) command(effector mgl64.Vec3, now time.Duration) Command {
	cfg := p.cfg
	cmd := Command{
		GripperWidth: cfg.GripClosed,
		Grip:         p.state.Grips(),
		SpeedScale:   1,
		State:        p.state,
	}

	var target mgl64.Vec3
	switch p.state {
	case MoveToObject:
		target = p.rest
		target[1] = math.Max(target.Y(), cfg.MinHeight+cfg.ApproachClearance)
		cmd.GripperWidth = cfg.GripOpen
	case GraspObject:
		target = p.rest
	case LiftObject:
		target = p.rest.Add(mgl64.Vec3{0, cfg.SafeLift, 0})
	case MoveToPlace:
		target = p.place.Add(mgl64.Vec3{0, cfg.SafeLift, 0})
		if d := planar(effector, p.place); d < cfg.SlowdownDistance {
			cmd.SpeedScale = math.Max(cfg.MinSpeedScale, d/cfg.SlowdownDistance)
		}
	case PlaceObject:
		target = p.place
		target[1] = p.placeHeight(p.descent(now - p.entered))
	case ReleaseObject:
		target = p.place
		target[1] = p.placeHeight(1)
		cmd.GripperWidth = cfg.GripOpen
	case ResetPosition:
		fwd := mgl64.Vec3{math.Sin(p.heading), 0, math.Cos(p.heading)}
		target = p.origin.Add(fwd.Mul(cfg.ResetReach))
		target[1] = cfg.SafeLift
		cmd.GripperWidth = cfg.GripOpen
	}

	target[1] = math.Max(target.Y(), cfg.MinHeight)
	target[1] = math.Max(target.Y(), cfg.WristFloor())
	cmd.Target = target
	return cmd
}

// placeHeight is the unfloored wrist height over the place target at the
// given descent progress.
func (p *PickPlace) placeHeight(progress float64) float64 {
	low := p.cfg.MinHeight + p.cfg.ApproachClearance
	h := p.place.Y() + p.cfg.SafeLift*(1-progress) + low*progress
	return math.Max(h, p.cfg.WristFloor())
}

func (p *PickPlace) descent(elapsed time.Duration) float64 {
	if p.cfg.Descent <= 0 {
		return 1
	}
	return math.Min(1, float64(elapsed)/float64(p.cfg.Descent))
}

func (p *PickPlace) enter(s State, now time.Duration) {
	p.state = s
	p.entered = now
}

func (p *PickPlace) restart(now time.Duration) {
	p.enter(MoveToObject, now)
	p.place = p.newPlace()
}

// newPlace picks a point within PlaceArc of the arm's forward direction at
// PlaceMinRatio..1 of PlaceRadius, just above the floor.
func (p *PickPlace) newPlace() mgl64.Vec3 {
	cfg := p.cfg
	bearing := p.heading + (p.rng.Float64()*2-1)*cfg.PlaceArc
	radius := cfg.PlaceRadius * (cfg.PlaceMinRatio + (1-cfg.PlaceMinRatio)*p.rng.Float64())
	return mgl64.Vec3{
		p.origin.X() + math.Sin(bearing)*radius,
		cfg.MinHeight + cfg.PlaceClearance,
		p.origin.Z() + math.Cos(bearing)*radius,
	}
}

func planar(a, b mgl64.Vec3) float64 {
	return math.Hypot(a.X()-b.X(), a.Z()-b.Z())
}

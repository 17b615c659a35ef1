// Package kinematics solves closed-form 2-link inverse kinematics for the
// arm and leg rigs.
//
// Angles use the rig-local frame: +Y up, +Z forward. Base is yaw about +Y
// (0 faces +Z). Shoulder is the elevation of the upper segment above the
// horizontal. Elbow is the downward bend of the lower segment relative to
// the upper one (0 = straight). Wrist is the pitch of the end-effector
// relative to the lower segment, chosen so the effector's absolute pitch
// stays at Config.EffectorPitch.
package kinematics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// bearingDeadZone is the horizontal distance below which yaw is undefined.
const bearingDeadZone = 1e-6

// Angles is one joint-space pose in radians.
type Angles struct {
	Base     float64 `json:"base"`
	Shoulder float64 `json:"shoulder"`
	Elbow    float64 `json:"elbow"`
	Wrist    float64 `json:"wrist"`
}

// IsFinite reports whether every angle is a finite number.
func (a Angles) IsFinite() bool {
	return finite(a.Base) && finite(a.Shoulder) && finite(a.Elbow) && finite(a.Wrist)
}

// EffectorPitch returns the absolute pitch of the end-effector.
func (a Angles) EffectorPitch() float64 {
	return a.Shoulder - a.Elbow + a.Wrist
}

// Chain holds joint positions derived by forward kinematics.
type Chain struct {
	Shoulder mgl64.Vec3
	Elbow    mgl64.Vec3
	Wrist    mgl64.Vec3
}

// Lowest returns the smallest joint height in the chain.
func (c Chain) Lowest() float64 {
	return math.Min(c.Shoulder.Y(), math.Min(c.Elbow.Y(), c.Wrist.Y()))
}

// Solve maps a target in the rig's local frame to joint angles.
//
// The result always lies inside cfg.Limits and is never NaN. With the floor
// guard enabled no joint ends below the floor: the target is raised and
// re-solved up to cfg.Floor.MaxRetries times, after which SafePose is used.
func Solve(target mgl64.Vec3, cfg Config) Angles {
	if !finite(target.X()) || !finite(target.Y()) || !finite(target.Z()) {
		return cfg.SafePose
	}
	if !cfg.Floor.Enabled {
		return solve(target, cfg)
	}

	for attempt := 0; attempt <= cfg.Floor.MaxRetries; attempt++ {
		a := solve(target, cfg)
		if Forward(a, cfg.Segments).Lowest() >= cfg.Floor.Height {
			return a
		}
		target[1] = math.Max(target.Y()+cfg.Floor.Margin, cfg.Floor.Height+cfg.Floor.Lift)
	}
	return cfg.SafePose
}

func solve(target mgl64.Vec3, cfg Config) Angles {
	seg := cfg.Segments
	lim := cfg.Limits

	rel := target.Sub(mgl64.Vec3{0, seg.BaseHeight, 0})
	if maxLen := seg.Reach() * cfg.MaxReachRatio; rel.Len() > maxLen {
		rel = rel.Mul(maxLen / rel.Len())
	}

	base := bearing(rel.X(), rel.Z(), lim.Base)
	// Signed distance along the base ray; negative when reaching backwards.
	horizontal := rel.X()*math.Sin(base) + rel.Z()*math.Cos(base)
	height := rel.Y()

	minReach := math.Abs(seg.Upper-seg.Lower) + cfg.ReachMargin
	maxReach := seg.Reach() - cfg.ReachMargin
	reach := clamp(math.Hypot(horizontal, height), minReach, maxReach)

	u, l := seg.Upper, seg.Lower
	cosKnee := (u*u + l*l - reach*reach) / (2 * u * l)
	elbow := math.Pi - math.Acos(clamp(cosKnee, -1, 1))

	cosInner := (u*u + reach*reach - l*l) / (2 * u * reach)
	shoulder := math.Atan2(height, horizontal) + math.Acos(clamp(cosInner, -1, 1))

	shoulder = lim.Shoulder.Clamp(shoulder)
	elbow = lim.Elbow.Clamp(elbow)
	wrist := lim.Wrist.Clamp(cfg.EffectorPitch - shoulder + elbow)

	return Angles{Base: base, Shoulder: shoulder, Elbow: elbow, Wrist: wrist}
}

// bearing returns the base yaw facing (x, z). When that yaw is outside the
// limits but its opposite is not, the rig keeps facing forward and reaches
// backwards instead. Targets straight above or below the pivot face forward.
func bearing(x, z float64, r Range) float64 {
	if math.Hypot(x, z) < bearingDeadZone {
		return r.Clamp(0)
	}
	b := math.Atan2(x, z)
	if r.Contains(b) {
		return b
	}
	if alt := WrapAngle(b + math.Pi); r.Contains(alt) {
		return alt
	}
	return r.Clamp(b)
}

// Forward computes joint positions in the rig's local frame.
func Forward(a Angles, seg Segments) Chain {
	heading := mgl64.Vec3{math.Sin(a.Base), 0, math.Cos(a.Base)}
	shoulder := mgl64.Vec3{0, seg.BaseHeight, 0}
	elbow := shoulder.Add(link(heading, a.Shoulder, seg.Upper))
	wrist := elbow.Add(link(heading, a.Shoulder-a.Elbow, seg.Lower))
	return Chain{Shoulder: shoulder, Elbow: elbow, Wrist: wrist}
}

func link(heading mgl64.Vec3, pitch, length float64) mgl64.Vec3 {
	return heading.Mul(math.Cos(pitch) * length).Add(mgl64.Vec3{0, math.Sin(pitch) * length, 0})
}

// Guard validates a pose produced outside the solver. The pose is clamped to
// the limits; non-finite or floor-penetrating poses become SafePose.
func Guard(a Angles, cfg Config) Angles {
	if !a.IsFinite() {
		return cfg.SafePose
	}
	a = cfg.Limits.Clamp(a)
	if cfg.Floor.Enabled && Forward(a, cfg.Segments).Lowest() < cfg.Floor.Height {
		return cfg.SafePose
	}
	return a
}

// WrapAngle maps a to [-Pi, Pi].
func WrapAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}

// LerpAngle blends from a toward b along the shortest arc.
func LerpAngle(a, b, t float64) float64 {
	return a + WrapAngle(b-a)*t
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

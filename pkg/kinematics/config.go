package kinematics

import "math"

// Range is an inclusive [Min, Max] interval in radians.
type Range struct {
	Min float64
	Max float64
}

// Clamp restricts v to the range.
func (r Range) Clamp(v float64) float64 {
	return clamp(v, r.Min, r.Max)
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Limits holds per-joint-class rotation limits.
type Limits struct {
	Base     Range // yaw about +Y
	Shoulder Range // shoulder / hip pitch
	Elbow    Range // elbow / knee bend
	Wrist    Range // wrist / ankle pitch
}

// Clamp returns a with every angle clamped to its joint limits.
func (l Limits) Clamp(a Angles) Angles {
	return Angles{
		Base:     l.Base.Clamp(a.Base),
		Shoulder: l.Shoulder.Clamp(a.Shoulder),
		Elbow:    l.Elbow.Clamp(a.Elbow),
		Wrist:    l.Wrist.Clamp(a.Wrist),
	}
}

// Segments are the fixed link lengths of a 2-link chain.
type Segments struct {
	Upper      float64 // upper arm / thigh
	Lower      float64 // forearm / shin
	BaseHeight float64 // base origin to shoulder pivot
}

// Reach returns the fully extended length of the chain.
func (s Segments) Reach() float64 {
	return s.Upper + s.Lower
}

// Floor configures the floor guard. Heights are in the rig's local frame.
type Floor struct {
	Enabled    bool
	Height     float64 // floor plane
	Lift       float64 // minimum retry target height above the floor
	Margin     float64 // raise per retry
	MaxRetries int
}

// Config holds everything the solver needs for one rig type.
type Config struct {
	Segments Segments
	Limits   Limits

	// ReachMargin keeps the reach strictly inside the solvable triangle.
	ReachMargin float64

	// MaxReachRatio pre-clamps targets beyond the chain's length.
	MaxReachRatio float64

	// EffectorPitch is the absolute pitch the end-effector is held at.
	// -Pi/2 points a gripper straight down, 0 keeps a foot level.
	EffectorPitch float64

	Floor Floor

	// SafePose is returned when no floor-safe solution is found.
	SafePose Angles
}

// ArmConfig returns the configuration for the pick-and-place arm.
func ArmConfig() Config {
	return Config{
		Segments: Segments{
			Upper:      1.2,
			Lower:      0.8,
			BaseHeight: 0.3,
		},
		Limits: Limits{
			Base:     Range{Min: -math.Pi, Max: math.Pi},
			Shoulder: Range{Min: -math.Pi / 2, Max: math.Pi / 2},
			Elbow:    Range{Min: -math.Pi / 8, Max: math.Pi * 0.9},
			Wrist:    Range{Min: -math.Pi / 2, Max: math.Pi / 2},
		},
		ReachMargin:   0.1,
		MaxReachRatio: 0.99,
		EffectorPitch: -math.Pi / 2,
		Floor: Floor{
			Enabled:    true,
			Height:     0,
			Lift:       0.24,
			Margin:     0.1,
			MaxRetries: 3,
		},
		SafePose: Angles{Shoulder: math.Pi / 4, Elbow: math.Pi / 4},
	}
}

// LegConfig returns the configuration for a biped leg. The hip pitch range
// keeps the thigh within 60 degrees of vertical.
func LegConfig() Config {
	return Config{
		Segments: Segments{
			Upper: 0.4,
			Lower: 0.45,
		},
		Limits: Limits{
			Base:     Range{Min: -math.Pi / 3, Max: math.Pi / 3},
			Shoulder: Range{Min: -math.Pi * 5 / 6, Max: -math.Pi / 6},
			Elbow:    Range{Min: 0, Max: math.Pi * 0.7},
			Wrist:    Range{Min: math.Pi / 4, Max: math.Pi * 3 / 4},
		},
		ReachMargin:   0.05,
		MaxReachRatio: 0.99,
		EffectorPitch: 0,
		SafePose:      Angles{Shoulder: -math.Pi / 2, Wrist: math.Pi / 2},
	}
}

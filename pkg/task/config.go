package task

import (
	"math"
	"time"
)

// Config holds all tunables for the pick-and-place cycle. Distances are in
// world units, heights are absolute.
type Config struct {
	// Heights
	MinHeight         float64 // objects never rest below this
	SafeLift          float64 // carry height above rest / place
	ApproachClearance float64 // hover above MinHeight on approach and release
	GripperLength     float64 // wrist to fingertip
	WristClearance    float64 // extra wrist margin above a gripped object

	// Transition thresholds
	GraspDistance    float64 // effector to object for GRASP
	LiftHeight       float64 // rise above rest before MOVE_TO_PLACE
	PlaceDistance    float64 // planar distance for PLACE
	SlowdownDistance float64 // start decelerating within this planar distance
	MinSpeedScale    float64
	SettleDistance   float64 // planar tolerance before RELEASE
	SettleHeight     float64 // height tolerance before RELEASE

	// Timing
	Descent      time.Duration
	GraspDwell   time.Duration
	ReleaseDwell time.Duration
	ResetDwell   time.Duration
	StateTimeout time.Duration

	// Place target generation
	PlaceRadius    float64
	PlaceMinRatio  float64 // fraction of PlaceRadius
	PlaceArc       float64 // half-width of the bearing window, radians
	PlaceClearance float64 // place height above MinHeight

	// Reset pose
	ResetReach float64 // forward distance of the parked wrist

	// Gripper
	GripOpen   float64
	GripClosed float64
}

// DefaultConfig returns the tuning used by the hero scene arms.
func DefaultConfig() Config {
	return Config{
		MinHeight:         0.15,
		SafeLift:          1.0,
		ApproachClearance: 0.1,
		GripperLength:     0.2,
		WristClearance:    0.1,

		GraspDistance:    0.4,
		LiftHeight:       0.8,
		PlaceDistance:    0.4,
		SlowdownDistance: 1.0,
		MinSpeedScale:    0.3,
		SettleDistance:   0.2,
		SettleHeight:     0.1,

		Descent:      time.Second,
		GraspDwell:   500 * time.Millisecond,
		ReleaseDwell: 500 * time.Millisecond,
		ResetDwell:   500 * time.Millisecond,
		StateTimeout: 5 * time.Second,

		PlaceRadius:    1.5,
		PlaceMinRatio:  0.7,
		PlaceArc:       math.Pi / 4,
		PlaceClearance: 0.05,

		ResetReach: 1.0,

		GripOpen:   0.4,
		GripClosed: 0.1,
	}
}

// WristFloor is the lowest height the wrist is ever sent to.
func (c Config) WristFloor() float64 {
	return c.MinHeight + c.GripperLength + c.WristClearance
}

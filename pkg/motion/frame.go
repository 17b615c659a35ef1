// Package motion drives rigs frame by frame: it asks the task layer for a
// target, solves it, and eases the joint tree toward the solution.
package motion

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
)

// Frame is the time context for one update, sampled once per tick.
type Frame struct {
	Now   time.Duration // monotonic time since the scene started
	Delta time.Duration // time since the previous frame
}

// Clock turns monotonic readings into frames.
type Clock struct {
	last    time.Duration
	started bool
}

// Frame returns the frame for now. The first frame has zero Delta.
func (c *Clock) Frame(now time.Duration) Frame {
	f := Frame{Now: now}
	if c.started && now > c.last {
		f.Delta = now - c.last
	}
	if !c.started || now > c.last {
		c.last = now
	}
	c.started = true
	return f
}

// Config holds the smoothing rates shared by all drivers.
type Config struct {
	BodySpeed   float64 // arm joint easing rate, per second
	LegSpeed    float64 // leg joint easing rate, per second
	GripperRate float64 // gripper easing relative to the body
	DropRate    float64 // fall speed of released objects, units per second
}

// DefaultConfig returns the standard easing rates.
func DefaultConfig() Config {
	return Config{
		BodySpeed:   5,
		LegSpeed:    20,
		GripperRate: 2,
		DropRate:    20,
	}
}

// Prop is an externally owned object an arm can carry.
type Prop struct {
	Position mgl64.Vec3
}

// blend eases joint angles from toward to by k. Base yaw takes the short
// way around.
func blend(from, to kinematics.Angles, k float64) kinematics.Angles {
	return kinematics.Angles{
		Base:     kinematics.WrapAngle(kinematics.LerpAngle(from.Base, to.Base, k)),
		Shoulder: lerp(from.Shoulder, to.Shoulder, k),
		Elbow:    lerp(from.Elbow, to.Elbow, k),
		Wrist:    lerp(from.Wrist, to.Wrist, k),
	}
}

// easing returns the per-frame blend factor for a rate in 1/s.
func easing(delta time.Duration, rate float64) float64 {
	return clamp(delta.Seconds()*rate, 0, 1)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp(v, min, max float64) float64 {
	return math.Max(min, math.Min(max, v))
}

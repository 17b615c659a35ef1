package task

import (
	"math"
	"time"

	"github.com/teslashibe/go-rigmotion/pkg/kinematics"
)

// Ready pose the scripted programs move around.
const (
	ReadyShoulder = math.Pi / 3
	ReadyElbow    = math.Pi / 3
)

// Program is one of the training routines an arm can run. Pick-and-place is
// driven by PickPlace; the others are scripted functions of time.
type Program struct {
	Name     string
	Title    string
	Duration time.Duration // one learning cycle
	Shoulder kinematics.Range
	Elbow    kinematics.Range

	// pose returns base, shoulder delta, elbow delta and wrist for time t
	// (seconds), rig index i and learning progress.
	pose func(t float64, i int, progress float64) (base, shoulder, elbow, wrist float64)
	grip func(t float64) float64
}

// Scripted reports whether the program is a pure function of time.
func (p Program) Scripted() bool {
	return p.pose != nil
}

// Pose evaluates a scripted program. Deltas are clamped to the program's
// ranges and applied around the ready pose; the caller still clamps to the
// rig's joint limits.
func (p Program) Pose(now time.Duration, index int) (kinematics.Angles, float64) {
	if p.pose == nil {
		return kinematics.Angles{Shoulder: ReadyShoulder, Elbow: ReadyElbow}, 0
	}
	t := now.Seconds()
	progress := Progress(now, p.Duration)
	base, s, e, w := p.pose(t, index, progress)
	a := kinematics.Angles{
		Base:     base,
		Shoulder: ReadyShoulder + p.Shoulder.Clamp(s),
		Elbow:    ReadyElbow - p.Elbow.Clamp(e),
		Wrist:    w,
	}
	return a, p.grip(t)
}

// Progress returns how far through its current learning cycle a program of
// the given duration is, in [0, 1).
func Progress(now, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	d := now % duration
	if d < 0 {
		d += duration
	}
	return float64(d) / float64(duration)
}

// Program names.
const (
	ProgramPickPlace         = "pick_place"
	ProgramPathPlanning      = "path_planning"
	ProgramObjectRecognition = "object_recognition"
	ProgramPrecisionControl  = "precision_control"
)

var programs = []Program{
	{
		Name:     ProgramPickPlace,
		Title:    "Basic Pick and Place",
		Duration: 5000 * time.Millisecond,
		Shoulder: kinematics.Range{Min: -math.Pi / 2, Max: math.Pi / 2},
		Elbow:    kinematics.Range{Min: 0, Max: math.Pi},
	},
	{
		Name:     ProgramPathPlanning,
		Title:    "Path Planning",
		Duration: 4000 * time.Millisecond,
		Shoulder: kinematics.Range{Min: -0.5, Max: 0.5},
		Elbow:    kinematics.Range{Min: -0.7, Max: 0.3},
		pose: func(t float64, i int, ph float64) (float64, float64, float64, float64) {
			base := math.Sin(t*0.4)*math.Pi*0.8 + math.Cos(t*0.2+float64(i))*0.3
			return base,
				-0.3 + math.Cos(ph*math.Pi*2)*0.4,
				-0.4 + math.Sin(ph*math.Pi*2)*0.3,
				math.Cos(ph*math.Pi) * 0.5
		},
		grip: func(t float64) float64 { return 0.3 + math.Sin(t)*0.2 },
	},
	{
		Name:     ProgramObjectRecognition,
		Title:    "Object Recognition",
		Duration: 2500 * time.Millisecond,
		Shoulder: kinematics.Range{Min: -0.4, Max: 0.6},
		Elbow:    kinematics.Range{Min: -0.5, Max: 0.4},
		pose: func(t float64, i int, ph float64) (float64, float64, float64, float64) {
			base := math.Cos(t*0.2)*math.Pi*0.6 + math.Sin(t*3+float64(i))*0.1
			scan := math.Sin(ph * math.Pi * 2)
			return base,
				-0.2 + scan*0.3,
				-0.3 + math.Cos(scan*math.Pi)*0.4,
				math.Sin(ph*math.Pi)*0.7 + math.Cos(ph*2)*0.3
		},
		grip: func(t float64) float64 { return 0.2 + math.Abs(math.Sin(t*2))*0.3 },
	},
	{
		Name:     ProgramPrecisionControl,
		Title:    "Precision Control",
		Duration: 3500 * time.Millisecond,
		Shoulder: kinematics.Range{Min: -0.3, Max: 0.3},
		Elbow:    kinematics.Range{Min: -0.4, Max: 0.4},
		pose: func(t float64, i int, ph float64) (float64, float64, float64, float64) {
			base := math.Sin(t*0.15)*math.Pi*0.3 + math.Sin(t*4+float64(i))*0.05
			precision := math.Sin(ph * math.Pi * 4)
			return base,
				-0.1 + precision*0.2,
				-0.2 + math.Cos(precision*math.Pi)*0.3,
				math.Cos(ph*math.Pi)*0.4 + math.Sin(ph*3)*0.1
		},
		grip: func(t float64) float64 { return 0.1 + math.Abs(math.Sin(t*3))*0.2 },
	},
}

// Programs returns the program catalog in assignment order.
func Programs() []Program {
	out := make([]Program, len(programs))
	copy(out, programs)
	return out
}

// LookupProgram finds a program by name.
func LookupProgram(name string) (Program, bool) {
	for _, p := range programs {
		if p.Name == name {
			return p, true
		}
	}
	return Program{}, false
}

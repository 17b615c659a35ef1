// Package task sequences what each rig is trying to do: the pick-and-place
// cycle for arms, gait and kick oscillators for legs, and scripted motion
// programs. Everything here takes the current time as a parameter and never
// reads the clock.
package task

// State is one step of the pick-and-place cycle.
type State int

const (
	MoveToObject State = iota
	GraspObject
	LiftObject
	MoveToPlace
	PlaceObject
	ReleaseObject
	ResetPosition
)

var stateNames = [...]string{
	MoveToObject:  "move_to_object",
	GraspObject:   "grasp_object",
	LiftObject:    "lift_object",
	MoveToPlace:   "move_to_place",
	PlaceObject:   "place_object",
	ReleaseObject: "release_object",
	ResetPosition: "reset_position",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Grips reports whether the gripper holds the object in this state.
func (s State) Grips() bool {
	switch s {
	case GraspObject, LiftObject, MoveToPlace, PlaceObject:
		return true
	}
	return false
}

// Drops reports whether a released object falls in this state.
func (s State) Drops() bool {
	return s == ReleaseObject || s == ResetPosition
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState looks a state up by name.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return State(s), true
		}
	}
	return 0, false
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-rigmotion/pkg/task"
)

// Humanoid modes.
const (
	ModeWalk  = "walk"
	ModeKick  = "kick"
	ModeStand = "stand"
)

// Scene describes what a scene contains and how fast it ticks.
type Scene struct {
	Seed      uint64   `yaml:"seed"`
	Hz        int      `yaml:"hz"`
	PublishHz int      `yaml:"publish_hz"`
	Arms      ArmGrid  `yaml:"arms"`
	Humanoid  Humanoid `yaml:"humanoid"`
}

// ArmGrid lays arms out on a rows x cols grid centred on the origin.
type ArmGrid struct {
	Rows    int     `yaml:"rows"`
	Cols    int     `yaml:"cols"`
	Spacing float64 `yaml:"spacing"`

	// Programs are assigned round-robin in grid order.
	Programs []string `yaml:"programs"`

	// Props rest within this planar distance band in front of each arm.
	PropMinReach float64 `yaml:"prop_min_reach"`
	PropMaxReach float64 `yaml:"prop_max_reach"`
}

// Humanoid places a two-legged walker in the scene.
type Humanoid struct {
	Enabled   bool       `yaml:"enabled"`
	Position  [3]float64 `yaml:"position"`
	Heading   float64    `yaml:"heading"`
	HipHeight float64    `yaml:"hip_height"`
	Mode      string     `yaml:"mode"`
}

// Default returns the hero scene: a 6x6 grid of arms cycling through every
// training program, with a walking humanoid behind it.
func Default() Scene {
	programs := make([]string, 0, 4)
	for _, p := range task.Programs() {
		programs = append(programs, p.Name)
	}
	return Scene{
		Seed:      1,
		Hz:        60,
		PublishHz: 20,
		Arms: ArmGrid{
			Rows:         6,
			Cols:         6,
			Spacing:      4,
			Programs:     programs,
			PropMinReach: 0.6,
			PropMaxReach: 1.4,
		},
		Humanoid: Humanoid{
			Enabled:   true,
			Position:  [3]float64{0, 0, -14},
			HipHeight: 0.78,
			Mode:      ModeWalk,
		},
	}
}

// Load reads a scene file. Keys missing from the file keep their defaults.
func Load(path string) (Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scene{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return Scene{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes a YAML scene over the defaults and validates it.
func Parse(data []byte) (Scene, error) {
	sc := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
		return Scene{}, fmt.Errorf("parse: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return Scene{}, err
	}
	return sc, nil
}

// Validate checks the scene for values the engine cannot run with.
func (s Scene) Validate() error {
	var errs []error
	if s.Hz < 1 || s.Hz > 1000 {
		errs = append(errs, fmt.Errorf("hz %d out of range [1, 1000]", s.Hz))
	}
	if s.PublishHz < 0 || s.PublishHz > s.Hz {
		errs = append(errs, fmt.Errorf("publish_hz %d out of range [0, %d]", s.PublishHz, s.Hz))
	}
	if s.Arms.Rows < 0 || s.Arms.Cols < 0 {
		errs = append(errs, fmt.Errorf("arms: negative grid %dx%d", s.Arms.Rows, s.Arms.Cols))
	}
	if s.Arms.Rows*s.Arms.Cols > 0 {
		if s.Arms.Spacing <= 0 {
			errs = append(errs, fmt.Errorf("arms: spacing %v must be positive", s.Arms.Spacing))
		}
		if len(s.Arms.Programs) == 0 {
			errs = append(errs, errors.New("arms: no programs"))
		}
		if s.Arms.PropMinReach <= 0 || s.Arms.PropMaxReach < s.Arms.PropMinReach {
			errs = append(errs, fmt.Errorf("arms: prop reach [%v, %v] invalid", s.Arms.PropMinReach, s.Arms.PropMaxReach))
		}
	}
	for _, name := range s.Arms.Programs {
		if _, ok := task.LookupProgram(name); !ok {
			errs = append(errs, fmt.Errorf("arms: unknown program %q", name))
		}
	}
	if s.Humanoid.Enabled {
		switch s.Humanoid.Mode {
		case ModeWalk, ModeKick, ModeStand:
		default:
			errs = append(errs, fmt.Errorf("humanoid: unknown mode %q", s.Humanoid.Mode))
		}
		if s.Humanoid.HipHeight <= 0 {
			errs = append(errs, fmt.Errorf("humanoid: hip_height %v must be positive", s.Humanoid.HipHeight))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid scene: %w", errors.Join(errs...))
	}
	return nil
}

// rigsim runs a scene in simulated time, as fast as the CPU allows, and
// reports what every rig got done.
//
// Usage:
//
//	rigsim -seconds 120 -scene hero.yaml -sketch out.webp
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/teslashibe/go-rigmotion/internal/config"
	"github.com/teslashibe/go-rigmotion/internal/log"
	"github.com/teslashibe/go-rigmotion/pkg/scene"
	"github.com/teslashibe/go-rigmotion/pkg/sketch"
)

var (
	seconds   = flag.Float64("seconds", 60, "simulated seconds to run")
	hz        = flag.Int("hz", 0, "tick rate override (0 keeps the scene's)")
	seed      = flag.Uint64("seed", 0, "seed override (0 keeps the scene's)")
	scenePath = flag.String("scene", "", "scene YAML file (default: built-in hero scene)")
	sketchOut = flag.String("sketch", "", "write a picture of the final frame (.png or .webp)")
	view      = flag.String("view", "top", "sketch view: top or side")
	backdrop  = flag.String("backdrop", "", "floor image under the sketch (.png, .jpg or .tga)")
	width     = flag.Int("width", 960, "sketch width")
	height    = flag.Int("height", 720, "sketch height")
	verbose   = flag.Bool("v", false, "log every cycle")
)

func main() {
	flag.Parse()

	level := config.LogLevel()
	if *verbose {
		level = "debug"
	}
	log.Init(log.Options{Level: level, Output: os.Stderr})

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "rigsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	sc := config.Default()
	if *scenePath != "" {
		var err error
		if sc, err = config.Load(*scenePath); err != nil {
			return err
		}
	}
	if *hz > 0 {
		sc.Hz = *hz
	}
	if *seed > 0 {
		sc.Seed = *seed
	}
	if err := sc.Validate(); err != nil {
		return err
	}
	if *sketchOut != "" {
		if _, err := sketch.FormatFor(*sketchOut); err != nil {
			return err
		}
	}

	s := scene.New(sc)
	step := time.Second / time.Duration(sc.Hz)
	end := time.Duration(*seconds * float64(time.Second))

	fmt.Printf("🤖 rigsim: %d ticks at %d Hz (%.0fs simulated)\n", int(end/step)+1, sc.Hz, *seconds)

	started := time.Now()
	var snap scene.Snapshot
	for now := time.Duration(0); now <= end; now += step {
		snap = s.Tick(now)
	}
	wall := time.Since(started)

	report(snap, s.Stats(), wall)

	if *sketchOut != "" {
		if err := writeSketch(snap); err != nil {
			return err
		}
		fmt.Printf("\n🖼  sketch written to %s\n", *sketchOut)
	}
	return nil
}

func report(snap scene.Snapshot, st scene.Stats, wall time.Duration) {
	fmt.Printf("\n%-10s %-20s %-16s %6s\n", "RIG", "PROGRAM", "STATE", "CYCLES")
	for _, r := range snap.Rigs {
		program := r.Program
		if r.Kind == "leg" {
			program = "leg/" + r.Side
		}
		state := r.State
		if state == "" {
			state = "-"
		}
		fmt.Printf("%-10s %-20s %-16s %6d\n", r.ID[:min(8, len(r.ID))], program, state, r.Cycles)
	}

	fmt.Printf("\n%d arms, %d legs, %d ticks in %v (%.0f ticks/s)\n",
		st.Arms, st.Legs, st.Ticks, wall.Round(time.Millisecond), float64(st.Ticks)/wall.Seconds())
	fmt.Printf("cycles: %d  recoveries: %d\n", st.Cycles, st.Recoveries)

	if len(st.CycleTimes) == 0 {
		return
	}
	times := slices.Clone(st.CycleTimes)
	slices.Sort(times)
	mean, std := stat.MeanStdDev(times, nil)
	if len(times) < 2 {
		std = 0
	}
	fmt.Printf("cycle time: mean %.2fs  sd %.2fs  median %.2fs  p95 %.2fs  max %.2fs\n",
		mean, std,
		stat.Quantile(0.5, stat.Empirical, times, nil),
		stat.Quantile(0.95, stat.Empirical, times, nil),
		times[len(times)-1])
}

func writeSketch(snap scene.Snapshot) error {
	v, err := sketch.ParseView(*view)
	if err != nil {
		return err
	}
	opts := sketch.DefaultOptions()
	opts.Width, opts.Height, opts.View = *width, *height, v
	if *backdrop != "" {
		if opts.Backdrop, err = sketch.LoadBackdrop(*backdrop); err != nil {
			return err
		}
	}

	img, err := sketch.Render(snap, opts)
	if err != nil {
		return err
	}
	return sketch.WriteFile(*sketchOut, img)
}

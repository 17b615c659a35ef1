// Package config provides configuration for go-rigmotion commands: a YAML
// scene description plus environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults for settings that come from the environment.
const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
)

// Addr returns the listen address from RIG_ADDR or the default.
func Addr() string {
	if addr := os.Getenv("RIG_ADDR"); addr != "" {
		return addr
	}
	return DefaultAddr
}

// ScenePath returns the scene file from RIG_SCENE. Empty means the built-in
// scene.
func ScenePath() string {
	return os.Getenv("RIG_SCENE")
}

// LogLevel returns the log level from RIG_LOG_LEVEL or the default.
func LogLevel() string {
	if level := os.Getenv("RIG_LOG_LEVEL"); level != "" {
		return level
	}
	return DefaultLogLevel
}

// FromEnv loads the scene named by RIG_SCENE (or the default scene) and
// applies RIG_SEED and RIG_HZ overrides.
func FromEnv() (Scene, error) {
	sc := Default()
	if path := ScenePath(); path != "" {
		var err error
		if sc, err = Load(path); err != nil {
			return Scene{}, err
		}
	}

	if v := os.Getenv("RIG_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Scene{}, fmt.Errorf("config: RIG_SEED: %w", err)
		}
		sc.Seed = seed
	}
	if v := os.Getenv("RIG_HZ"); v != "" {
		hz, err := strconv.Atoi(v)
		if err != nil {
			return Scene{}, fmt.Errorf("config: RIG_HZ: %w", err)
		}
		sc.Hz = hz
	}
	return sc, sc.Validate()
}

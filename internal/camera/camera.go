// Package camera applies motion descriptors to mounted nodes.
package camera

import (
	"math"
	"time"

	"panelreel/internal/anim"
	"panelreel/internal/loop"
	"panelreel/internal/scene"
	"panelreel/internal/view"
)

// DefaultDuration applies when neither the action nor the caller supplies one.
const DefaultDuration = time.Second

const shakeCycles = 6

var defaultMagnitude = map[scene.CameraKind]float64{
	scene.CameraZoom:  0.2,
	scene.CameraPan:   10,
	scene.CameraShake: 2,
	scene.CameraTilt:  5,
	scene.CameraFocus: 4,
}

// Duration picks the motion length: the action's own duration, else fallback
// (typically the owning cue's estimated duration), else DefaultDuration.
func Duration(action scene.CameraAction, fallback time.Duration) time.Duration {
	if action.DurationMS > 0 {
		return time.Duration(action.DurationMS) * time.Millisecond
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultDuration
}

// Apply animates node according to action, starting from its current
// transform. Unknown kinds are ignored and return nil.
func Apply(sched loop.Scheduler, node view.Node, action scene.CameraAction, fallback, tick time.Duration, done func()) *anim.Tween {
	if node == nil {
		return nil
	}
	shape, ok := shapeFor(action)
	if !ok {
		return nil
	}
	base := node.Transform()
	return anim.Ramp(sched, 0, 1, Duration(action, fallback), tick, func(p float64) {
		node.SetTransform(shape(base, p))
	}, done)
}

// Reset returns node to the neutral transform.
func Reset(node view.Node) {
	if node != nil {
		node.SetTransform(view.Neutral())
	}
}

type shapeFunc func(base view.Transform, progress float64) view.Transform

func shapeFor(action scene.CameraAction) (shapeFunc, bool) {
	mag := action.Magnitude
	if mag == 0 {
		mag = defaultMagnitude[action.Kind]
	}
	switch action.Kind {
	case scene.CameraZoom:
		if action.Direction == "out" {
			mag = -mag
		}
		return func(b view.Transform, p float64) view.Transform {
			b.Scale += mag * p
			return b
		}, true
	case scene.CameraPan:
		dx, dy := panVector(action.Direction)
		return func(b view.Transform, p float64) view.Transform {
			b.TranslateX += dx * mag * p
			b.TranslateY += dy * mag * p
			return b
		}, true
	case scene.CameraShake:
		return func(b view.Transform, p float64) view.Transform {
			if p >= 1 {
				return b
			}
			amp := mag * (1 - p)
			b.TranslateX += amp * math.Sin(p*2*math.Pi*shakeCycles)
			b.TranslateY += amp * math.Cos(p*2*math.Pi*shakeCycles) * 0.5
			return b
		}, true
	case scene.CameraTilt:
		if action.Direction == "left" {
			mag = -mag
		}
		return func(b view.Transform, p float64) view.Transform {
			b.Rotate += mag * p
			return b
		}, true
	case scene.CameraFocus:
		return func(b view.Transform, p float64) view.Transform {
			b.Blur = mag * (1 - p)
			return b
		}, true
	}
	return nil, false
}

func panVector(direction string) (float64, float64) {
	switch direction {
	case "left":
		return -1, 0
	case "up":
		return 0, -1
	case "down":
		return 0, 1
	default:
		return 1, 0
	}
}

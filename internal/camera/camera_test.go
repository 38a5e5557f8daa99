package camera

import (
	"testing"
	"time"

	"panelreel/internal/loop"
	"panelreel/internal/scene"
	"panelreel/internal/view"
	"panelreel/internal/view/memview"
)

func TestApplyMotionKinds(t *testing.T) {
	tests := []struct {
		name   string
		action scene.CameraAction
		check  func(view.Transform) bool
	}{
		{"zoom in", scene.CameraAction{Kind: scene.CameraZoom, Magnitude: 0.5}, func(tr view.Transform) bool { return tr.Scale == 1.5 }},
		{"zoom out", scene.CameraAction{Kind: scene.CameraZoom, Magnitude: 0.25, Direction: "out"}, func(tr view.Transform) bool { return tr.Scale == 0.75 }},
		{"pan left", scene.CameraAction{Kind: scene.CameraPan, Direction: "left"}, func(tr view.Transform) bool { return tr.TranslateX == -10 }},
		{"tilt", scene.CameraAction{Kind: scene.CameraTilt, Magnitude: 3}, func(tr view.Transform) bool { return tr.Rotate == 3 }},
		{"shake settles", scene.CameraAction{Kind: scene.CameraShake}, func(tr view.Transform) bool { return tr.IsNeutral() }},
		{"focus clears blur", scene.CameraAction{Kind: scene.CameraFocus}, func(tr view.Transform) bool { return tr.Blur == 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := loop.NewManual(time.Unix(0, 0))
			node := memview.New(m, memview.Options{}).NewImage("a.png")
			done := false
			if Apply(m, node, tc.action, 0, 0, func() { done = true }) == nil {
				t.Fatal("expected a tween")
			}
			m.Advance(DefaultDuration)
			if !done {
				t.Fatal("motion did not complete")
			}
			if !tc.check(node.Transform()) {
				t.Fatalf("unexpected transform %+v", node.Transform())
			}
		})
	}
}

func TestDurationFallsBackToCueEstimate(t *testing.T) {
	if d := Duration(scene.CameraAction{DurationMS: 250}, time.Second); d != 250*time.Millisecond {
		t.Fatalf("explicit duration ignored: %v", d)
	}
	if d := Duration(scene.CameraAction{}, 3300*time.Millisecond); d != 3300*time.Millisecond {
		t.Fatalf("fallback ignored: %v", d)
	}
	if d := Duration(scene.CameraAction{}, 0); d != DefaultDuration {
		t.Fatalf("default ignored: %v", d)
	}
}

func TestResetAndUnknownKind(t *testing.T) {
	m := loop.NewManual(time.Unix(0, 0))
	node := memview.New(m, memview.Options{}).NewImage("a.png")
	node.SetTransform(view.Transform{Scale: 2, Rotate: 4})
	Reset(node)
	if !node.Transform().IsNeutral() {
		t.Fatalf("Reset left %+v", node.Transform())
	}
	if Apply(m, node, scene.CameraAction{Kind: "spin"}, 0, 0, nil) != nil {
		t.Fatal("unknown kind should be ignored")
	}
}

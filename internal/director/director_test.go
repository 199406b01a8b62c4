package director

import (
	"image"
	"path/filepath"
	"testing"
)

func TestBuildSlide(t *testing.T) {
	director := NewDirector(1280, 720)

	regions := []image.Rectangle{
		image.Rect(50, 150, 300, 250),
		image.Rect(400, 55, 600, 100),
		image.Rect(50, 50, 200, 100),
	}

	slide, err := director.BuildSlide(3, "test.png", regions)
	if err != nil {
		t.Fatalf("BuildSlide failed: %v", err)
	}

	if slide.ID != 3 || slide.Input != "test.png" {
		t.Errorf("Unexpected slide header: %+v", slide)
	}

	// full view + 3 regions
	if len(slide.Keyframes) != 4 {
		t.Fatalf("Expected 4 keyframes, got %d", len(slide.Keyframes))
	}

	if slide.Keyframes[0].Focus != "full_view" || slide.Keyframes[0].Zoom != 1.0 {
		t.Errorf("First keyframe should be the full view, got %+v", slide.Keyframes[0])
	}

	// Reading order: the two regions on the first row left to right, then the second row.
	wantX := []int{50, 400, 50}
	for i, x := range wantX {
		kf := slide.Keyframes[i+1]
		if kf.Rect.X != x {
			t.Errorf("Keyframe %d: expected x=%d, got %d", i+1, x, kf.Rect.X)
		}
		if kf.ID != int64(i+2) || kf.Position != i+2 {
			t.Errorf("Keyframe %d: id/position = %d/%d", i+1, kf.ID, kf.Position)
		}
		if kf.Zoom < 1.0 || kf.Zoom > director.MaxZoom {
			t.Errorf("Keyframe %d: zoom %.2f out of range", i+1, kf.Zoom)
		}
	}

	if _, err := director.BuildSlide(1, "x.png", nil); err == nil {
		t.Error("Expected error for no regions")
	}
}

func TestOrdered(t *testing.T) {
	slide := Slide{ID: 1, Keyframes: []Keyframe{
		{ID: 7, Position: 20},
		{ID: 3, Position: 10},
		{ID: 2, Position: 20},
	}}

	got := slide.Ordered()
	want := []int64{3, 2, 7}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Ordered()[%d] = %d, want %d", i, got[i].ID, id)
		}
	}
	if slide.Keyframes[0].ID != 7 {
		t.Error("Ordered must not reorder the slide in place")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		wantErr  bool
	}{
		{"ok", Scenario{Slides: []Slide{{ID: 1, Keyframes: []Keyframe{{ID: 1}, {ID: 2}}}}}, false},
		{"zero slide id", Scenario{Slides: []Slide{{ID: 0}}}, true},
		{"duplicate slide", Scenario{Slides: []Slide{{ID: 1}, {ID: 1}}}, true},
		{"duplicate keyframe", Scenario{Slides: []Slide{{ID: 1, Keyframes: []Keyframe{{ID: 4}, {ID: 4}}}}}, true},
		{"negative keyframe", Scenario{Slides: []Slide{{ID: 1, Keyframes: []Keyframe{{ID: -1}}}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.scenario.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestScenarioWriteRead(t *testing.T) {
	scenario := NewScenario(Slide{
		ID:    1,
		Input: "test.png",
		Keyframes: []Keyframe{
			{ID: 1, Position: 1, Focus: "full", Rect: Rectangle{W: 1280, H: 720}, Zoom: 1.0},
			{ID: 2, Position: 2, Focus: "block1", Rect: Rectangle{X: 100, Y: 100, W: 200, H: 150}, Zoom: 1.5},
		},
	})

	tmpFile := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := WriteScenario(scenario, tmpFile); err != nil {
		t.Fatalf("WriteScenario failed: %v", err)
	}

	readScenario, err := ReadScenario(tmpFile)
	if err != nil {
		t.Fatalf("ReadScenario failed: %v", err)
	}

	if readScenario.Version != scenario.Version {
		t.Errorf("Version mismatch: expected %s, got %s", scenario.Version, readScenario.Version)
	}

	slide, err := readScenario.Slide(1)
	if err != nil {
		t.Fatalf("Slide(1): %v", err)
	}
	if len(slide.Keyframes) != 2 || slide.Keyframes[1].Rect.W != 200 {
		t.Errorf("Keyframes not preserved: %+v", slide.Keyframes)
	}

	if _, err := readScenario.Slide(9); err == nil {
		t.Error("Expected error for a missing slide")
	}
}

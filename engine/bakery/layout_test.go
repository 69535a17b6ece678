package bakery

import (
	"math"
	"testing"
)

func TestRowIndex(t *testing.T) {
	tests := []struct {
		start, frame, bone, bones int
		expected                  int
	}{
		{0, 0, 0, 1, 0},
		{0, 0, 1, 2, 3},
		{0, 1, 0, 2, 6},
		{10, 0, 0, 33, 990},
		{10, 2, 5, 33, 990 + 198 + 15},
	}
	for _, tt := range tests {
		if got := RowIndex(tt.start, tt.frame, tt.bone, tt.bones); got != tt.expected {
			t.Errorf("RowIndex(%d, %d, %d, %d): expected %d, got %d", tt.start, tt.frame, tt.bone, tt.bones, tt.expected, got)
		}
	}
}

func TestFrameIndex(t *testing.T) {
	tests := []struct {
		frames     uint32
		normalized float32
		expected   uint32
	}{
		{60, 0, 0},
		{60, 0.05, 2},
		{60, 0.5, 29},
		{60, 1, 59},
		{60, 1.5, 59},
		{60, -0.2, 0},
		{60, float32(math.NaN()), 0},
		{1, 0.7, 0},
		{0, 0.7, 0},
		{2, 0.99, 0},
		{2, 1, 1},
	}
	for _, tt := range tests {
		if got := FrameIndex(tt.frames, tt.normalized); got != tt.expected {
			t.Errorf("FrameIndex(%d, %v): expected %d, got %d", tt.frames, tt.normalized, tt.expected, got)
		}
	}
}

func TestFrameOffset(t *testing.T) {
	desc := ClipDescriptor{StartFrame: 40, FrameCount: 60, Duration: 2}
	if got := FrameOffset(desc, 0, 4); got != 40*4*3 {
		t.Errorf("expected start offset %d, got %d", 40*4*3, got)
	}
	if got := FrameOffset(desc, 1, 4); got != (40+59)*4*3 {
		t.Errorf("expected last frame offset %d, got %d", (40+59)*4*3, got)
	}
}

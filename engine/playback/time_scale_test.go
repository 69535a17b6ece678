package playback

import "testing"

func TestAssignTimeScalesReproducible(t *testing.T) {
	r := TimeScaleRange{Min: -0.5, Max: 0.5}

	a, err := AssignTimeScales([]uint64{5, 1, 9, 3}, r, DefaultSeed)
	if err != nil {
		t.Fatalf("AssignTimeScales failed: %v", err)
	}
	b, err := AssignTimeScales([]uint64{9, 3, 5, 1, 3}, r, DefaultSeed)
	if err != nil {
		t.Fatalf("AssignTimeScales failed: %v", err)
	}

	if len(a) != 4 || len(b) != 4 {
		t.Fatalf("expected 4 scales each, got %d and %d", len(a), len(b))
	}
	for id, scale := range a {
		if b[id] != scale {
			t.Errorf("id %d: expected %v regardless of input order, got %v", id, scale, b[id])
		}
		if scale < 0.5 || scale > 1.5 {
			t.Errorf("id %d: scale %v outside [0.5, 1.5]", id, scale)
		}
	}

	c, _ := AssignTimeScales([]uint64{5, 1, 9, 3}, r, DefaultSeed+1)
	same := true
	for id := range a {
		if a[id] != c[id] {
			same = false
		}
	}
	if same {
		t.Error("expected a different seed to change the scales")
	}
}

func TestAssignTimeScalesZeroRange(t *testing.T) {
	scales, err := AssignTimeScales([]uint64{1, 2}, TimeScaleRange{}, DefaultSeed)
	if err != nil {
		t.Fatalf("AssignTimeScales failed: %v", err)
	}
	for id, s := range scales {
		if s != 1 {
			t.Errorf("id %d: expected 1, got %v", id, s)
		}
	}
}

func TestTimeScaleRangeValidate(t *testing.T) {
	bad := []TimeScaleRange{{Min: -1.5}, {Min: 0.2}, {Max: 1.2}, {Max: -0.1}}
	for _, r := range bad {
		if _, err := AssignTimeScales([]uint64{1}, r, 0); err == nil {
			t.Errorf("expected %+v to be rejected", r)
		}
	}
	if err := (TimeScaleRange{Min: -1, Max: 1}).Validate(); err != nil {
		t.Errorf("expected full range to be valid, got %v", err)
	}
}

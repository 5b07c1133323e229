package reuseagent

import "testing"

func TestAlphaSchedule(t *testing.T) {
	c := DefaultConfig()
	cases := []struct {
		totalDistri int64
		want        float64
	}{
		{0, 0.5},
		{19999, 0.5},
		{20000, 0.4},
		{50000, 0.3},
		{100000, 0.2},
		{250000, 0.2}, // saturates at AlphaFloor
	}
	for _, tc := range cases {
		if got := c.Alpha(tc.totalDistri); got < tc.want-1e-9 || got > tc.want+1e-9 {
			t.Errorf("Alpha(%d) = %f, want %f", tc.totalDistri, got, tc.want)
		}
	}
}

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	c := Config{}.withDefaults()
	d := DefaultConfig()
	if c.BufferLen != d.BufferLen || c.Gamma != d.Gamma || c.Epsilon != d.Epsilon {
		t.Errorf("withDefaults() = %+v, want defaults %+v", c, d)
	}
}

func TestWithDefaultsPreservesSetFields(t *testing.T) {
	c := Config{Epsilon: 0.3}.withDefaults()
	if c.Epsilon != 0.3 {
		t.Errorf("Epsilon = %f, want preserved 0.3", c.Epsilon)
	}
	if c.Gamma != DefaultConfig().Gamma {
		t.Errorf("Gamma = %f, want default", c.Gamma)
	}
}

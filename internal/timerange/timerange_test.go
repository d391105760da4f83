package timerange

import (
	"errors"
	"testing"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"10:00", 600, false},
		{"15:30", 930, false},
		{"23:59", 1439, false},
		{"24:00", 0, true},
		{"10:60", 0, true},
		{"9:00", 0, true},
		{"10-00", 0, true},
		{"", 0, true},
		{"ab:cd", 0, true},
		{"10:00:00", 0, true},
	}

	for _, c := range cases {
		got, err := ParseClock(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseClock(%q): expected error, got %d", c.in, got)
			} else if !errors.Is(err, ErrInvalidTimeFormat) {
				t.Errorf("ParseClock(%q): error %v is not ErrInvalidTimeFormat", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseClock(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseClock(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 int
		want           bool
	}{
		{"identical", 600, 660, 600, 660, true},
		{"partial", 600, 660, 630, 690, true},
		{"contained", 600, 720, 630, 660, true},
		{"back to back", 600, 660, 660, 720, false},
		{"back to back reversed", 660, 720, 600, 660, false},
		{"disjoint", 600, 660, 720, 780, false},
		{"one minute overlap", 600, 661, 660, 720, true},
	}

	for _, c := range cases {
		if got := Overlaps(c.s1, c.e1, c.s2, c.e2); got != c.want {
			t.Errorf("%s: Overlaps(%d,%d,%d,%d) = %v, want %v", c.name, c.s1, c.e1, c.s2, c.e2, got, c.want)
		}
		// overlap is symmetric
		if got := Overlaps(c.s2, c.e2, c.s1, c.e1); got != c.want {
			t.Errorf("%s: Overlaps not symmetric", c.name)
		}
	}
}

func TestOverlapsClock(t *testing.T) {
	got, err := OverlapsClock("10:00", "11:00", "10:30", "11:30")
	if err != nil || !got {
		t.Errorf("OverlapsClock: got %v, %v; want overlap", got, err)
	}

	got, err = OverlapsClock("10:00", "11:00", "11:00", "12:00")
	if err != nil || got {
		t.Errorf("OverlapsClock back-to-back: got %v, %v; want no overlap", got, err)
	}

	if _, err = OverlapsClock("10:00", "11:00", "bad", "12:00"); !errors.Is(err, ErrInvalidTimeFormat) {
		t.Errorf("OverlapsClock malformed: expected ErrInvalidTimeFormat, got %v", err)
	}
}

func TestValidOrder(t *testing.T) {
	ok, err := ValidOrder("10:00", "11:00")
	if err != nil || !ok {
		t.Errorf("ValidOrder(10:00, 11:00) = %v, %v", ok, err)
	}

	ok, err = ValidOrder("11:00", "10:00")
	if err != nil || ok {
		t.Errorf("ValidOrder(11:00, 10:00) = %v, %v", ok, err)
	}

	ok, err = ValidOrder("10:00", "10:00")
	if err != nil || ok {
		t.Errorf("ValidOrder(10:00, 10:00) = %v, %v", ok, err)
	}
}

package scopedb

import (
	"testing"
	"time"
)

func TestFormatDBTime(t *testing.T) {
	ts := time.Date(2020, 1, 1, 6, 23, 45, 123456000, time.UTC)
	want := "2020-01-01 06:23:45.123456"
	if got := formatDBTime(ts); got != want {
		t.Errorf("formatDBTime() = %q, want %q", got, want)
	}

	// Non-UTC input is converted, not reinterpreted
	est := time.FixedZone("EST", -5*3600)
	local := time.Date(2020, 1, 1, 1, 23, 45, 123456000, est)
	if got := formatDBTime(local); got != want {
		t.Errorf("formatDBTime(EST) = %q, want %q", got, want)
	}
}

func TestParseDBTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "microsecond precision",
			input: "2020-01-01 06:23:45.123456",
			want:  time.Date(2020, 1, 1, 6, 23, 45, 123456000, time.UTC),
		},
		{
			name:  "no fractional second",
			input: "2020-01-01 06:23:45",
			want:  time.Date(2020, 1, 1, 6, 23, 45, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDBTime(tt.input)
			if err != nil {
				t.Fatalf("parseDBTime(%q) failed: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseDBTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Errorf("parseDBTime(%q) location = %v, want UTC", tt.input, got.Location())
			}
		})
	}
}

func TestParseDBTimeInvalid(t *testing.T) {
	for _, input := range []string{"", "not a time", "2020-13-45 99:99:99"} {
		if _, err := parseDBTime(input); err == nil {
			t.Errorf("parseDBTime(%q) should fail", input)
		}
	}
}

func TestDBTimeRoundTrip(t *testing.T) {
	ts := time.Date(2024, 6, 15, 12, 30, 45, 999999000, time.UTC)

	got, err := parseDBTime(formatDBTime(ts))
	if err != nil {
		t.Fatalf("round trip failed: %v", err)
	}
	if !got.Equal(ts) {
		t.Errorf("round trip = %v, want %v", got, ts)
	}
}

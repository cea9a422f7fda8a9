package charts

import (
	"bytes"
	"image/color"
	"image/png"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"

	"justapengu.in/f1bot/pkg/telemetry"
)

func syntheticLap(driver string, speedOffset float64) []telemetry.Sample {
	samples := make([]telemetry.Sample, 200)

	for i := range samples {
		phase := float64(i) / float64(len(samples)) * 2 * math.Pi

		samples[i] = telemetry.Sample{
			Driver:   driver,
			Time:     time.Duration(i) * 400 * time.Millisecond,
			Speed:    200 + 100*math.Sin(phase) + speedOffset,
			Throttle: math.Min(100, 60+50*math.Sin(phase)),
			Brake:    math.Sin(phase) < -0.7,
			Gear:     3 + i%6,
		}
	}

	telemetry.AddDistance(samples)

	return samples
}

func laps(driver string, compound string, seconds ...float64) []telemetry.Lap {
	out := make([]telemetry.Lap, len(seconds))

	for i, s := range seconds {
		out[i] = telemetry.Lap{
			Driver:   driver,
			Number:   i + 1,
			Duration: time.Duration(s * float64(time.Second)),
			Compound: compound,
		}
	}

	return out
}

func assertPNG(t *testing.T, buf *bytes.Buffer) {
	t.Helper()

	config, err := png.DecodeConfig(buf)

	if err != nil {
		t.Fatalf("output is not a png: %s", err)
	}

	if config.Width <= config.Height || config.Height == 0 {
		t.Errorf("unexpected image size %dx%d", config.Width, config.Height)
	}
}

func TestSpeedTrace(t *testing.T) {
	buf := new(bytes.Buffer)

	err := SpeedTrace(buf, SpeedTraceInput{
		Title: "Fastest Lap Comparison\nMonaco Grand Prix 2023",
		Traces: []Trace{
			{Driver: "VER", Label: "VER - 1:11.365", Colour: color.RGBA{R: 54, G: 113, B: 198, A: 255}, Samples: syntheticLap("VER", 0)},
			{Driver: "PER", Label: "PER - 1:12.102", Colour: color.RGBA{R: 54, G: 113, B: 198, A: 255}, Samples: syntheticLap("PER", -3)},
		},
	})

	if err != nil {
		t.Fatal(err)
	}

	assertPNG(t, buf)

	if err := SpeedTrace(new(bytes.Buffer), SpeedTraceInput{Traces: []Trace{{Driver: "VER"}}}); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for empty traces, got %v", err)
	}
}

func TestRacePace(t *testing.T) {
	buf := new(bytes.Buffer)

	err := RacePace(buf, PaceInput{
		Title: "Race Pace Comparison\nBahrain Grand Prix 2023",
		Groups: []PaceGroup{
			{Name: "VER", Colour: color.RGBA{B: 255, A: 255}, Laps: append(laps("VER", "SOFT", 97.1, 97.4, 97.2), laps("VER", "HARD", 96.2, 96.0)...)},
			{Name: "ALO", Colour: color.RGBA{G: 128, A: 255}, Laps: laps("ALO", "MEDIUM", 97.9, 98.0, 98.4)},
			{Name: "SAR"},
		},
	})

	if err != nil {
		t.Fatal(err)
	}

	assertPNG(t, buf)

	if err := RacePace(new(bytes.Buffer), PaceInput{}); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData, got %v", err)
	}
}

func TestTeamPace(t *testing.T) {
	groups := []PaceGroup{
		{Name: "Ferrari", Laps: laps("LEC", "HARD", 98.0, 98.2, 98.1)},
		{Name: "Red Bull Racing", Laps: laps("VER", "HARD", 96.5, 96.9, 99.9)},
		{Name: "Mercedes", Laps: laps("HAM", "HARD", 97.4, 97.5, 97.6, 97.9)},
	}

	ordered := OrderByMedian(groups)

	var names []string

	for _, group := range ordered {
		names = append(names, group.Name)
	}

	if len(names) != 3 || names[0] != "Red Bull Racing" || names[1] != "Mercedes" || names[2] != "Ferrari" {
		t.Logf("unexpected order: %v", names)
		t.Fail()
	}

	if groups[0].Name != "Ferrari" {
		t.Errorf("OrderByMedian modified its input")
	}

	buf := new(bytes.Buffer)

	if err := TeamPace(buf, PaceInput{Title: "Race Pace Visualization", Groups: groups}); err != nil {
		t.Fatal(err)
	}

	assertPNG(t, buf)
}

func TestLapSections(t *testing.T) {
	buf := new(bytes.Buffer)

	err := LapSections(buf, LapSectionsInput{
		Title: "Lap Sections for Monaco Grand Prix 2023",
		Traces: []Trace{
			{Driver: "VER", Samples: syntheticLap("VER", 0)},
			{Driver: "ALO", Samples: syntheticLap("ALO", 2)},
			{Driver: "HAM"},
		},
	})

	if err != nil {
		t.Fatal(err)
	}

	assertPNG(t, buf)
}

func TestFormatLapTime(t *testing.T) {
	tests := map[time.Duration]string{
		71365 * time.Millisecond:                 "1:11.365",
		59999 * time.Millisecond:                 "0:59.999",
		2*time.Minute + 500*time.Microsecond:     "2:00.001",
		90*time.Second + 123456*time.Microsecond: "1:30.123",
		0:                                        "-",
	}

	for in, want := range tests {
		if got := FormatLapTime(in); got != want {
			t.Errorf("FormatLapTime(%s): expected %s, got %s", in, want, got)
		}
	}
}

func TestCompoundColour(t *testing.T) {
	if CompoundColour("SOFT") == CompoundColour("HARD") {
		t.Errorf("soft and hard compounds share a colour")
	}

	if CompoundColour("UNKNOWN") != unknownCompoundColour {
		t.Errorf("expected the fallback colour for an unknown compound")
	}
}

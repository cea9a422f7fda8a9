// Package minisectors splits laps into a fixed number of mini-sectors and finds
// which driver was fastest through each of them.
package minisectors

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"justapengu.in/f1bot/pkg/telemetry"
)

var (
	ErrInvalidAxis        = errors.New("minisectors: invalid axis")
	ErrInvalidSectorCount = errors.New("minisectors: number of sectors must be positive")
	ErrInsufficientData   = errors.New("minisectors: at least two samples are required")
	ErrEmptyInput         = errors.New("minisectors: no telemetry supplied")
)

// Axis is the quantity a lap is partitioned along.
type Axis int

const (
	AxisDistance Axis = iota
	AxisTime
	AxisAngle
)

var axisNames = map[Axis]string{
	AxisDistance: "distance",
	AxisTime:     "time",
	AxisAngle:    "angle",
}

func ParseAxis(s string) (Axis, error) {
	for axis, name := range axisNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return axis, nil
		}
	}

	return 0, errors.Wrapf(ErrInvalidAxis, "%q", s)
}

func (a Axis) String() string {
	if name, ok := axisNames[a]; ok {
		return name
	}

	return "unknown"
}

func (a *Axis) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string

	if err := unmarshal(&s); err != nil {
		return err
	}

	axis, err := ParseAxis(s)

	if err != nil {
		return err
	}

	*a = axis

	return nil
}

// Sample is a telemetry sample annotated with the mini-sector it falls in.
type Sample struct {
	telemetry.Sample

	MiniSector int
}

// SectorTime is the time a driver spent inside a mini-sector.
type SectorTime struct {
	Driver     string
	MiniSector int
	TimeSpent  time.Duration
}

// SectorLeader is the fastest driver through a mini-sector.
type SectorLeader struct {
	Driver     string
	MiniSector int
	TimeSpent  time.Duration
}

// AssignMiniSectors bins samples into numSectors equal-width mini-sectors spanning
// the observed range of the axis. The input is not modified.
func AssignMiniSectors(samples []telemetry.Sample, numSectors int, axis Axis) ([]Sample, error) {
	if numSectors <= 0 {
		return nil, errors.Wrapf(ErrInvalidSectorCount, "got %d", numSectors)
	}

	values, err := axisValues(samples, axis)

	if err != nil {
		return nil, err
	}

	if len(values) < 2 {
		return nil, errors.Wrapf(ErrInsufficientData, "got %d", len(values))
	}

	lo, hi := valueRange(values)

	out := make([]Sample, len(samples))

	for i, sample := range samples {
		out[i] = Sample{Sample: sample, MiniSector: bin(values[i], lo, hi, numSectors)}
	}

	return out, nil
}

// AssignAcrossDrivers bins every driver's samples using one range shared by all
// drivers, so that a given mini-sector index covers the same part of the lap for
// each of them.
func AssignAcrossDrivers(perDriver map[string][]telemetry.Sample, numSectors int, axis Axis) (map[string][]Sample, error) {
	if numSectors <= 0 {
		return nil, errors.Wrapf(ErrInvalidSectorCount, "got %d", numSectors)
	}

	values := make(map[string][]float64, len(perDriver))

	var all []float64

	for driver, samples := range perDriver {
		v, err := axisValues(samples, axis)

		if err != nil {
			return nil, err
		}

		values[driver] = v
		all = append(all, v...)
	}

	if len(all) < 2 {
		return nil, errors.Wrapf(ErrInsufficientData, "got %d", len(all))
	}

	lo, hi := valueRange(all)

	out := make(map[string][]Sample, len(perDriver))

	for driver, samples := range perDriver {
		annotated := make([]Sample, len(samples))

		for i, sample := range samples {
			annotated[i] = Sample{Sample: sample, MiniSector: bin(values[driver][i], lo, hi, numSectors)}
		}

		out[driver] = annotated
	}

	return out, nil
}

// SectorTimes sums, per driver and mini-sector, the time between consecutive
// samples that both lie in the mini-sector. Time spent crossing a boundary is
// not attributed to either side. Results are ordered by mini-sector then driver.
func SectorTimes(perDriver map[string][]Sample) []SectorTime {
	type key struct {
		driver     string
		miniSector int
	}

	totals := make(map[key]time.Duration)

	for driver, samples := range perDriver {
		for i, sample := range samples {
			k := key{driver: driver, miniSector: sample.MiniSector}

			if _, ok := totals[k]; !ok {
				totals[k] = 0
			}

			if i == 0 {
				continue
			}

			prev := samples[i-1]

			if prev.MiniSector == sample.MiniSector {
				totals[k] += sample.Time - prev.Time
			}
		}
	}

	out := make([]SectorTime, 0, len(totals))

	for k, spent := range totals {
		out = append(out, SectorTime{Driver: k.driver, MiniSector: k.miniSector, TimeSpent: spent})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].MiniSector == out[j].MiniSector {
			return out[i].Driver < out[j].Driver
		}

		return out[i].MiniSector < out[j].MiniSector
	})

	return out
}

// FastestPerMiniSector returns the driver with the least time in each populated
// mini-sector, ordered by mini-sector. Equal times go to the driver whose code
// sorts first.
func FastestPerMiniSector(perDriver map[string][]Sample) ([]SectorLeader, error) {
	empty := true

	for _, samples := range perDriver {
		if len(samples) > 0 {
			empty = false
			break
		}
	}

	if empty {
		return nil, ErrEmptyInput
	}

	var leaders []SectorLeader

	// SectorTimes is ordered by mini-sector then driver, so the first entry seen
	// for a mini-sector wins ties.
	for _, entry := range SectorTimes(perDriver) {
		n := len(leaders)

		if n == 0 || leaders[n-1].MiniSector != entry.MiniSector {
			leaders = append(leaders, SectorLeader(entry))
			continue
		}

		if entry.TimeSpent < leaders[n-1].TimeSpent {
			leaders[n-1] = SectorLeader(entry)
		}
	}

	return leaders, nil
}

// Leaders indexes the result of FastestPerMiniSector by mini-sector.
func Leaders(leaders []SectorLeader) map[int]string {
	out := make(map[int]string, len(leaders))

	for _, leader := range leaders {
		out[leader.MiniSector] = leader.Driver
	}

	return out
}

func axisValues(samples []telemetry.Sample, axis Axis) ([]float64, error) {
	values := make([]float64, len(samples))

	switch axis {
	case AxisDistance:
		for i, sample := range samples {
			values[i] = sample.Distance
		}
	case AxisTime:
		for i, sample := range samples {
			values[i] = sample.Time.Seconds()
		}
	case AxisAngle:
		for i, sample := range samples {
			var delta telemetry.Vector2

			if i > 0 {
				delta = sample.Position.Sub(samples[i-1].Position)
			}

			// the first sample has no previous position, so it is treated as a zero delta
			values[i] = normaliseAngle(delta.Heading())
		}
	default:
		return nil, errors.Wrapf(ErrInvalidAxis, "%d", int(axis))
	}

	return values, nil
}

// normaliseAngle maps an angle in [-π, π] to [0, 2π).
func normaliseAngle(a float64) float64 {
	a = math.Mod(a+2*math.Pi, 2*math.Pi)

	if a >= 2*math.Pi || a < 0 {
		return 0
	}

	return a
}

func valueRange(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]

	for _, v := range values {
		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return lo, hi
}

func bin(v, lo, hi float64, numSectors int) int {
	if hi <= lo {
		return 0
	}

	i := int(math.Floor((v - lo) / (hi - lo) * float64(numSectors)))

	if i < 0 {
		return 0
	}

	if i >= numSectors {
		return numSectors - 1
	}

	return i
}

// Package telemetry models Formula 1 sessions, laps and per-lap car telemetry
// independently of the service they are loaded from.
package telemetry

import (
	"context"
	"image/color"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrSessionNotFound = errors.New("telemetry: session does not exist")
	ErrDriverNotFound  = errors.New("telemetry: driver not found")
	ErrNoLaps          = errors.New("telemetry: no timed laps")
	ErrNoTelemetry     = errors.New("telemetry: no telemetry for lap")
)

// Provider loads sessions and lap telemetry. Loading can be slow on a cold cache,
// so implementations must honour context cancellation.
type Provider interface {
	LoadSession(ctx context.Context, year int, event string, sessionType SessionType) (*Session, error)
	LapTelemetry(ctx context.Context, session *Session, lap Lap) ([]Sample, error)
}

// DriverResolver resolves a short driver code (e.g. VER) to the driver's identity.
type DriverResolver interface {
	Resolve(code string) (Driver, error)
}

// Sample is a single observation of a car during a lap.
type Sample struct {
	Driver   string
	Time     time.Duration // since lap start
	Distance float64       // metres since lap start
	Position Vector2

	Speed    float64 // km/h
	Throttle float64 // percent
	Brake    bool
	Gear     int
	RPM      int
	DRS      int
}

type Driver struct {
	Number int
	Code   string
	Name   string
	Team   string
	Colour color.Color
}

type Lap struct {
	Driver   string
	Number   int
	Start    time.Time
	Duration time.Duration

	Sector1, Sector2, Sector3 time.Duration

	PitOut   bool
	Compound string
}

// End is the wall clock time at which the lap was completed.
func (l Lap) End() time.Time {
	return l.Start.Add(l.Duration)
}

func (l Lap) Timed() bool {
	return l.Duration > 0 && !l.Start.IsZero()
}

type Session struct {
	Key       int
	Year      int
	EventName string
	Location  string
	Country   string
	Type      SessionType
	Start     time.Time
	// End is zero when the provider does not know it.
	End       time.Time

	// Drivers is in classification order when the provider knows the result,
	// otherwise in the provider's natural order.
	Drivers []Driver
	Laps    []Lap
}

func (s *Session) Resolve(code string) (Driver, error) {
	code = strings.TrimSpace(code)

	for _, driver := range s.Drivers {
		if strings.EqualFold(driver.Code, code) || strconv.Itoa(driver.Number) == code {
			return driver, nil
		}
	}

	return Driver{}, errors.Wrapf(ErrDriverNotFound, "code %q", code)
}

// DriverLaps returns the timed laps of the given driver, ordered by lap number.
func (s *Session) DriverLaps(code string) ([]Lap, error) {
	driver, err := s.Resolve(code)

	if err != nil {
		return nil, err
	}

	var laps []Lap

	for _, lap := range s.Laps {
		if lap.Driver == driver.Code && lap.Timed() {
			laps = append(laps, lap)
		}
	}

	sort.Slice(laps, func(i, j int) bool {
		return laps[i].Number < laps[j].Number
	})

	return laps, nil
}

// FastestLap returns the driver's personal best lap.
func (s *Session) FastestLap(code string) (Lap, error) {
	laps, err := s.DriverLaps(code)

	if err != nil {
		return Lap{}, err
	}

	if len(laps) == 0 {
		return Lap{}, errors.Wrapf(ErrNoLaps, "driver %s", code)
	}

	fastest := laps[0]

	for _, lap := range laps[1:] {
		if lap.Duration < fastest.Duration {
			fastest = lap
		}
	}

	return fastest, nil
}

// QuickLaps returns the timed laps no slower than threshold times the session's
// fastest lap. Out laps from the pit lane are excluded.
func (s *Session) QuickLaps(threshold float64) []Lap {
	var fastest time.Duration

	for _, lap := range s.Laps {
		if !lap.Timed() || lap.PitOut {
			continue
		}

		if fastest == 0 || lap.Duration < fastest {
			fastest = lap.Duration
		}
	}

	if fastest == 0 {
		return nil
	}

	limit := time.Duration(float64(fastest) * threshold)

	var out []Lap

	for _, lap := range s.Laps {
		if lap.Timed() && !lap.PitOut && lap.Duration <= limit {
			out = append(out, lap)
		}
	}

	return out
}

// FastestDrivers returns up to n driver codes ordered by their best quick lap.
func (s *Session) FastestDrivers(n int, threshold float64) []string {
	best := make(map[string]time.Duration)

	for _, lap := range s.QuickLaps(threshold) {
		if current, ok := best[lap.Driver]; !ok || lap.Duration < current {
			best[lap.Driver] = lap.Duration
		}
	}

	codes := make([]string, 0, len(best))

	for code := range best {
		codes = append(codes, code)
	}

	sort.Slice(codes, func(i, j int) bool {
		if best[codes[i]] == best[codes[j]] {
			return codes[i] < codes[j]
		}

		return best[codes[i]] < best[codes[j]]
	})

	if len(codes) > n {
		codes = codes[:n]
	}

	return codes
}

// AddDistance fills in the Distance of each sample by integrating speed over time.
func AddDistance(samples []Sample) {
	var distance float64

	for i := range samples {
		if i > 0 {
			dt := (samples[i].Time - samples[i-1].Time).Seconds()

			if dt > 0 {
				// trapezoidal, km/h to m/s
				distance += (samples[i].Speed + samples[i-1].Speed) / 2 / 3.6 * dt
			}
		}

		samples[i].Distance = distance
	}
}

// ParseHexColour parses a team colour such as "3671C6" or "#3671C6".
// Invalid input yields white.
func ParseHexColour(hex string) color.Color {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")

	if len(hex) != 6 {
		return color.White
	}

	v, err := strconv.ParseUint(hex, 16, 32)

	if err != nil {
		return color.White
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

package openf1

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"justapengu.in/f1bot/pkg/telemetry"
)

// LapTelemetry loads car data and positions for a lap and merges them into one
// series keyed on the car data timestamps.
func (c *Client) LapTelemetry(ctx context.Context, session *telemetry.Session, lap telemetry.Lap) ([]telemetry.Sample, error) {
	driver, err := session.Resolve(lap.Driver)

	if err != nil {
		return nil, err
	}

	if !lap.Timed() {
		return nil, errors.Wrapf(telemetry.ErrNoLaps, "lap %d of %s has no timing", lap.Number, lap.Driver)
	}

	var (
		carData   []CarData
		locations []Location
	)

	policy := c.sessionPolicy(session.Start, session.End)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		filters := append([]filter{eq("session_key", session.Key), eq("driver_number", driver.Number)}, between("date", lap.Start, lap.End())...)

		return c.get(gctx, "car_data", &carData, policy, filters...)
	})

	g.Go(func() error {
		filters := append([]filter{eq("session_key", session.Key), eq("driver_number", driver.Number)}, between("date", lap.Start, lap.End())...)

		return c.get(gctx, "location", &locations, policy, filters...)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(carData) == 0 {
		return nil, errors.Wrapf(telemetry.ErrNoTelemetry, "%s lap %d", lap.Driver, lap.Number)
	}

	return mergeTelemetry(lap, carData, locations), nil
}

func mergeTelemetry(lap telemetry.Lap, carData []CarData, locations []Location) []telemetry.Sample {
	sort.Slice(carData, func(i, j int) bool {
		return carData[i].Date.Before(carData[j].Date)
	})

	sort.Slice(locations, func(i, j int) bool {
		return locations[i].Date.Before(locations[j].Date)
	})

	samples := make([]telemetry.Sample, 0, len(carData))

	j := 0

	for _, data := range carData {
		for j+1 < len(locations) && !locations[j+1].Date.After(data.Date) {
			j++
		}

		samples = append(samples, telemetry.Sample{
			Driver:   lap.Driver,
			Time:     data.Date.Sub(lap.Start),
			Position: interpolatePosition(locations, j, data.Date),
			Speed:    data.Speed,
			Throttle: data.Throttle,
			Brake:    data.Brake > 0,
			Gear:     data.NGear,
			RPM:      data.RPM,
			DRS:      data.DRS,
		})
	}

	telemetry.AddDistance(samples)

	return samples
}

// interpolatePosition linearly interpolates between locations[i] and
// locations[i+1] at time t, clamping outside the recorded range.
func interpolatePosition(locations []Location, i int, t time.Time) telemetry.Vector2 {
	if len(locations) == 0 {
		return telemetry.Vector2{}
	}

	a := locations[i]

	if i+1 >= len(locations) || !t.After(a.Date) {
		return telemetry.Vector2{X: a.X, Y: a.Y}
	}

	b := locations[i+1]
	span := b.Date.Sub(a.Date)

	if span <= 0 {
		return telemetry.Vector2{X: a.X, Y: a.Y}
	}

	f := float64(t.Sub(a.Date)) / float64(span)

	if f > 1 {
		f = 1
	}

	return telemetry.Vector2{
		X: a.X + (b.X-a.X)*f,
		Y: a.Y + (b.Y-a.Y)*f,
	}
}

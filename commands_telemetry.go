package f1bot

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"justapengu.in/f1bot/pkg/charts"
	"justapengu.in/f1bot/pkg/minisectors"
	"justapengu.in/f1bot/pkg/telemetry"
	"justapengu.in/f1bot/pkg/trackmap"
)

const (
	maxDominanceDrivers = 3
	maxSectionsDrivers  = 5
	racePaceDrivers     = 10
)

// analysisCommands are the commands that load session telemetry and reply with a chart.
type analysisCommands struct {
	provider  telemetry.Provider
	artifacts *Artifacts
	config    AnalysisConfig
}

// loadSession loads the session named by the year, race and session arguments.
func (a *analysisCommands) loadSession(ctx context.Context, command *Command, args []string) (*telemetry.Session, error) {
	year, err := parseYear(command, args[0])

	if err != nil {
		return nil, err
	}

	sessionType, err := telemetry.ParseSessionType(args[2])

	if err != nil {
		return nil, &ArgumentError{Command: command, Reason: "Unknown session type: " + args[2]}
	}

	return a.provider.LoadSession(ctx, year, args[1], sessionType)
}

type driverLap struct {
	driver  telemetry.Driver
	lap     telemetry.Lap
	samples []telemetry.Sample
}

// fastestLaps loads the telemetry of each driver's fastest lap concurrently.
func (a *analysisCommands) fastestLaps(ctx context.Context, session *telemetry.Session, codes []string) ([]driverLap, error) {
	laps := make([]driverLap, len(codes))

	for i, code := range codes {
		driver, err := session.Resolve(code)

		if err != nil {
			return nil, err
		}

		lap, err := session.FastestLap(driver.Code)

		if err != nil {
			return nil, err
		}

		laps[i] = driverLap{driver: driver, lap: lap}
	}

	g, ctx := errgroup.WithContext(ctx)

	for i := range laps {
		g.Go(func() error {
			samples, err := a.provider.LapTelemetry(ctx, session, laps[i].lap)

			if err != nil {
				return err
			}

			laps[i].samples = samples

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return laps, nil
}

// driverCodes returns the requested drivers, or the n fastest drivers of the
// session when none were given.
func (a *analysisCommands) driverCodes(session *telemetry.Session, requested []string, n int) ([]string, error) {
	codes := make([]string, 0, len(requested))

	for _, code := range requested {
		codes = append(codes, strings.ToUpper(code))
	}

	if len(codes) == 0 {
		codes = session.FastestDrivers(n, a.config.QuickLapThreshold)
	}

	if len(codes) == 0 {
		return nil, errors.Wrapf(telemetry.ErrNoLaps, "%d %s", session.Year, session.EventName)
	}

	if len(codes) > n {
		codes = codes[:n]
	}

	return codes, nil
}

func (a *analysisCommands) render(r Responder, command string, render func(w io.Writer) error) error {
	artifact, err := a.artifacts.Render(command, render)

	if err != nil {
		return err
	}

	return artifact.Send(r)
}

func (a *analysisCommands) speedTrace() *Command {
	command := &Command{
		Name:        "speedtrace",
		Category:    "Telemetry",
		Description: "Compare speed traces between two drivers",
		Usage:       "speedtrace [year] [race] [session] [driver1] [driver2]",
		Examples:    []string{"speedtrace 2023 Monaco Q VER HAM"},
		MinArgs:     5,
		MaxArgs:     5,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadSession(ctx, command, args)

		if err != nil {
			return err
		}

		laps, err := a.fastestLaps(ctx, session, args[3:5])

		if err != nil {
			return err
		}

		colours := distinctColours(laps)
		traces := make([]charts.Trace, len(laps))

		for i, lap := range laps {
			traces[i] = charts.Trace{
				Driver:  lap.driver.Code,
				Label:   fmt.Sprintf("%s - %s", lap.driver.Code, charts.FormatLapTime(lap.lap.Duration)),
				Colour:  colours[lap.driver.Code],
				Samples: lap.samples,
			}
		}

		return a.render(r, command.Name, func(w io.Writer) error {
			return charts.SpeedTrace(w, charts.SpeedTraceInput{
				Title:  fmt.Sprintf("Fastest Lap Comparison\n%s %d", session.EventName, session.Year),
				Traces: traces,
			})
		})
	}

	return command
}

func (a *analysisCommands) gearShifts() *Command {
	command := &Command{
		Name:        "gearshifts",
		Category:    "Telemetry",
		Description: "Show gear shifts on a track map",
		Usage:       "gearshifts [year] [race] [session] [driver]",
		Examples:    []string{"gearshifts 2023 Monaco Q VER"},
		MinArgs:     4,
		MaxArgs:     4,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadSession(ctx, command, args)

		if err != nil {
			return err
		}

		laps, err := a.fastestLaps(ctx, session, args[3:4])

		if err != nil {
			return err
		}

		lap := laps[0]

		return a.render(r, command.Name, func(w io.Writer) error {
			return trackmap.RenderGears(w, lap.samples, fmt.Sprintf("Fastest Lap Gear Shift Visualization\n%s - %s %d", lap.driver.Code, session.EventName, session.Year))
		})
	}

	return command
}

func (a *analysisCommands) trackDominance() *Command {
	command := &Command{
		Name:        "trackdominance",
		Category:    "Telemetry",
		Description: "Show which driver is fastest in each mini-sector",
		Usage:       "trackdominance [year] [race] [session] [driver1] [driver2] [driver3]",
		Examples:    []string{"trackdominance 2023 Monaco Q VER HAM PER", "trackdominance 2023 Monaco Q"},
		Note:        "Drivers are optional. If not provided, the top 3 fastest drivers will be used.",
		MinArgs:     3,
		MaxArgs:     -1,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadSession(ctx, command, args)

		if err != nil {
			return err
		}

		codes, err := a.driverCodes(session, args[3:], maxDominanceDrivers)

		if err != nil {
			return err
		}

		laps, err := a.fastestLaps(ctx, session, codes)

		if err != nil {
			return err
		}

		perDriver := make(map[string][]telemetry.Sample, len(laps))

		for _, lap := range laps {
			perDriver[lap.driver.Code] = lap.samples
		}

		assigned, err := minisectors.AssignAcrossDrivers(perDriver, a.config.MiniSectors, a.config.MiniSectorAxis)

		if err != nil {
			return err
		}

		leaders, err := minisectors.FastestPerMiniSector(assigned)

		if err != nil {
			return err
		}

		colours := distinctColours(laps)
		reference := assigned[laps[0].driver.Code]

		outline := make([]telemetry.Vector2, len(reference))

		for i, sample := range reference {
			outline[i] = sample.Position
		}

		legend := make([]trackmap.LegendEntry, len(laps))
		info := make([]driverLapInfo, len(laps))

		for i, lap := range laps {
			legend[i] = trackmap.LegendEntry{Label: lap.driver.Code, Colour: colours[lap.driver.Code]}
			info[i] = driverLapInfo{
				Code:    lap.driver.Code,
				Number:  lap.driver.Number,
				Sectors: [3]time.Duration{lap.lap.Sector1, lap.lap.Sector2, lap.lap.Sector3},
			}
		}

		segments := trackmap.DominanceSegments(reference, minisectors.Leaders(leaders), colours)

		err = a.render(r, command.Name, func(w io.Writer) error {
			return trackmap.RenderDominance(w, outline, segments, legend, fmt.Sprintf("%d %s - Track Dominance by Mini-Sectors", session.Year, session.EventName))
		})

		if err != nil {
			return err
		}

		return r.SendEmbed(driverInfoEmbed(info))
	}

	return command
}

var fallbackColours = []color.Color{
	color.RGBA{R: 255, G: 255, B: 255, A: 255},
	color.RGBA{R: 255, G: 215, B: 0, A: 255},
	color.RGBA{R: 0, G: 210, B: 190, A: 255},
	color.RGBA{R: 230, G: 0, B: 126, A: 255},
}

// distinctColours assigns each driver their team colour, unless a teammate
// already uses it.
func distinctColours(laps []driverLap) map[string]color.Color {
	colours := make(map[string]color.Color, len(laps))

	var used []color.Color

	isUsed := func(c color.Color) bool {
		for _, u := range used {
			if sameRGBA(u, c) {
				return true
			}
		}

		return false
	}

	for _, lap := range laps {
		c := lap.driver.Colour

		if c == nil || isUsed(c) {
			c = nil

			for _, fallback := range fallbackColours {
				if !isUsed(fallback) {
					c = fallback
					break
				}
			}

			if c == nil {
				c = lap.driver.Colour
			}
		}

		colours[lap.driver.Code] = c
		used = append(used, c)
	}

	return colours
}

func sameRGBA(a, b color.Color) bool {
	if a == nil || b == nil {
		return a == b
	}

	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()

	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

package f1bot

import (
	"context"
	"fmt"
	"io"

	"justapengu.in/f1bot/pkg/charts"
	"justapengu.in/f1bot/pkg/telemetry"
)

// loadRace loads the race session of the year and race arguments.
func (a *analysisCommands) loadRace(ctx context.Context, command *Command, args []string) (*telemetry.Session, error) {
	year, err := parseYear(command, args[0])

	if err != nil {
		return nil, err
	}

	return a.provider.LoadSession(ctx, year, args[1], telemetry.SessionTypeRace)
}

// quickLapsByDriver groups the session's quick laps by driver code.
func (a *analysisCommands) quickLapsByDriver(session *telemetry.Session) map[string][]telemetry.Lap {
	laps := make(map[string][]telemetry.Lap)

	for _, lap := range session.QuickLaps(a.config.QuickLapThreshold) {
		laps[lap.Driver] = append(laps[lap.Driver], lap)
	}

	return laps
}

// RacePaceGroups returns one group per driver for the first n classified
// drivers, in finishing order.
func RacePaceGroups(session *telemetry.Session, laps map[string][]telemetry.Lap, n int) []charts.PaceGroup {
	drivers := session.Drivers

	if len(drivers) > n {
		drivers = drivers[:n]
	}

	groups := make([]charts.PaceGroup, 0, len(drivers))

	for _, driver := range drivers {
		groups = append(groups, charts.PaceGroup{
			Name:   driver.Code,
			Colour: driver.Colour,
			Laps:   laps[driver.Code],
		})
	}

	return groups
}

// TeamPaceGroups returns one group per team holding the laps of all its drivers.
func TeamPaceGroups(session *telemetry.Session, laps map[string][]telemetry.Lap) []charts.PaceGroup {
	var groups []charts.PaceGroup

	index := make(map[string]int)

	for _, driver := range session.Drivers {
		team := driver.Team

		if team == "" {
			team = driver.Code
		}

		i, ok := index[team]

		if !ok {
			i = len(groups)
			index[team] = i

			groups = append(groups, charts.PaceGroup{Name: team, Colour: driver.Colour})
		}

		groups[i].Laps = append(groups[i].Laps, laps[driver.Code]...)
	}

	return groups
}

func (a *analysisCommands) racePace() *Command {
	command := &Command{
		Name:        "racepace",
		Category:    "Race Analysis",
		Description: "Show race pace comparison for the top 10 drivers",
		Usage:       "racepace [year] [race]",
		Examples:    []string{"racepace 2023 Monaco"},
		MinArgs:     2,
		MaxArgs:     2,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadRace(ctx, command, args)

		if err != nil {
			return err
		}

		groups := RacePaceGroups(session, a.quickLapsByDriver(session), racePaceDrivers)

		return a.render(r, command.Name, func(w io.Writer) error {
			return charts.RacePace(w, charts.PaceInput{
				Title:  fmt.Sprintf("Race Pace Comparison\n%s %d", session.EventName, session.Year),
				Groups: groups,
			})
		})
	}

	return command
}

func (a *analysisCommands) teamPace() *Command {
	command := &Command{
		Name:        "teampace",
		Category:    "Race Analysis",
		Description: "Show team pace comparison",
		Usage:       "teampace [year] [race]",
		Examples:    []string{"teampace 2023 Monaco"},
		MinArgs:     2,
		MaxArgs:     2,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadRace(ctx, command, args)

		if err != nil {
			return err
		}

		groups := TeamPaceGroups(session, a.quickLapsByDriver(session))

		return a.render(r, command.Name, func(w io.Writer) error {
			return charts.TeamPace(w, charts.PaceInput{
				Title:  fmt.Sprintf("Race Pace Visualization\n%s %d", session.EventName, session.Year),
				Groups: groups,
			})
		})
	}

	return command
}

func (a *analysisCommands) lapSections() *Command {
	command := &Command{
		Name:        "lapsections",
		Category:    "Race Analysis",
		Description: "Analyze different sections of laps",
		Usage:       "lapsections [year] [race] [session] [driver1] [driver2] ...",
		Examples:    []string{"lapsections 2023 Monaco Q VER HAM PER", "lapsections 2023 Monaco Q"},
		Note:        "Up to 5 drivers. If none are provided, the top 5 fastest drivers will be used. Cornering is approximated as gears 1-4 above 100 km/h.",
		MinArgs:     3,
		MaxArgs:     -1,
		Slow:        true,
	}

	command.Run = func(ctx context.Context, r Responder, args []string) error {
		session, err := a.loadSession(ctx, command, args)

		if err != nil {
			return err
		}

		codes, err := a.driverCodes(session, args[3:], maxSectionsDrivers)

		if err != nil {
			return err
		}

		laps, err := a.fastestLaps(ctx, session, codes)

		if err != nil {
			return err
		}

		traces := make([]charts.Trace, len(laps))

		for i, lap := range laps {
			traces[i] = charts.Trace{
				Driver:  lap.driver.Code,
				Colour:  lap.driver.Colour,
				Samples: lap.samples,
			}
		}

		return a.render(r, command.Name, func(w io.Writer) error {
			return charts.LapSections(w, charts.LapSectionsInput{
				Title:  fmt.Sprintf("Lap Sections for %s %d", session.EventName, session.Year),
				Traces: traces,
			})
		})
	}

	return command
}

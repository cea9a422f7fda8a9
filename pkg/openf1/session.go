package openf1

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"justapengu.in/f1bot/pkg/telemetry"
)

// Meetings returns the season's race weekends in calendar order. Pre-season
// testing is excluded so that indices line up with round numbers.
func (c *Client) Meetings(ctx context.Context, year int) ([]Meeting, error) {
	return c.meetings(ctx, year, cacheDefault)
}

func (c *Client) meetings(ctx context.Context, year int, policy cachePolicy) ([]Meeting, error) {
	var meetings []Meeting

	if err := c.get(ctx, "meetings", &meetings, policy, eq("year", year)); err != nil {
		return nil, err
	}

	out := meetings[:0]

	for _, meeting := range meetings {
		if strings.Contains(strings.ToLower(meeting.Name), "testing") {
			continue
		}

		out = append(out, meeting)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateStart.Before(out[j].DateStart)
	})

	return out, nil
}

// FindMeeting resolves an event given either as a round number or as (part of) a
// name, location, country or circuit.
func FindMeeting(meetings []Meeting, event string) (Meeting, bool) {
	event = strings.TrimSpace(event)

	if round, err := strconv.Atoi(event); err == nil {
		if round < 1 || round > len(meetings) {
			return Meeting{}, false
		}

		return meetings[round-1], true
	}

	needle := fold(event)

	if needle == "" {
		return Meeting{}, false
	}

	// exact matches take precedence over partial ones, e.g. "Austria" should not
	// match a meeting that happens to mention Austria in its official title.
	for _, exact := range []bool{true, false} {
		for _, meeting := range meetings {
			for _, candidate := range []string{meeting.Name, meeting.Location, meeting.CountryName, meeting.CircuitShortName, meeting.OfficialName} {
				candidate = fold(candidate)

				if candidate == "" {
					continue
				}

				if (exact && candidate == needle) || (!exact && strings.Contains(candidate, needle)) {
					return meeting, true
				}
			}
		}
	}

	return Meeting{}, false
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// fold lowercases s and strips diacritics, so "Sao Paulo" matches "São Paulo".
func fold(s string) string {
	out, _, err := transform.String(foldTransformer, s)

	if err != nil {
		out = s
	}

	return strings.ToLower(strings.TrimSpace(out))
}

func (c *Client) LoadSession(ctx context.Context, year int, event string, sessionType telemetry.SessionType) (*telemetry.Session, error) {
	c.logger.Infof("Loading session data for %d %s %s", year, event, sessionType)

	meeting, err := c.findMeeting(ctx, year, event)

	if err != nil {
		return nil, err
	}

	session, err := c.findSession(ctx, meeting, sessionType)

	if err != nil {
		return nil, err
	}

	policy := c.sessionPolicy(session.DateStart, session.DateEnd)

	var (
		drivers []Driver
		laps    []Lap
		stints  []Stint
		results []SessionResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.get(gctx, "drivers", &drivers, policy, eq("session_key", session.Key))
	})

	g.Go(func() error {
		return c.get(gctx, "laps", &laps, policy, eq("session_key", session.Key))
	})

	g.Go(func() error {
		return c.get(gctx, "stints", &stints, policy, eq("session_key", session.Key))
	})

	g.Go(func() error {
		return c.get(gctx, "session_result", &results, policy, eq("session_key", session.Key))
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(drivers) == 0 {
		return nil, errors.Wrapf(telemetry.ErrSessionNotFound, "no drivers in session %d", session.Key)
	}

	return buildSession(meeting, *session, sessionType, drivers, laps, stints, results), nil
}

// findMeeting looks the event up in the cached calendar first, going back to
// OpenF1 when the cached copy predates the event being published.
func (c *Client) findMeeting(ctx context.Context, year int, event string) (Meeting, error) {
	for _, policy := range []cachePolicy{cacheDefault, cacheRefresh} {
		meetings, err := c.meetings(ctx, year, policy)

		if err != nil {
			return Meeting{}, err
		}

		if meeting, ok := FindMeeting(meetings, event); ok {
			return meeting, nil
		}

		if len(meetings) == 0 {
			// empty lists are never cached, so the first request already went upstream
			break
		}
	}

	return Meeting{}, errors.Wrapf(telemetry.ErrSessionNotFound, "no event %q in %d", event, year)
}

func (c *Client) findSession(ctx context.Context, meeting Meeting, sessionType telemetry.SessionType) (*Session, error) {
	for _, policy := range []cachePolicy{cacheDefault, cacheRefresh} {
		var sessions []Session

		if err := c.get(ctx, "sessions", &sessions, policy, eq("meeting_key", meeting.Key)); err != nil {
			return nil, err
		}

		for i := range sessions {
			if sessionType.Matches(sessions[i].Name) {
				return &sessions[i], nil
			}
		}

		if len(sessions) == 0 {
			break
		}
	}

	return nil, errors.Wrapf(telemetry.ErrSessionNotFound, "no %s session at %s %d", sessionType.Name(), meeting.Name, meeting.Year)
}

func buildSession(meeting Meeting, session Session, sessionType telemetry.SessionType, drivers []Driver, laps []Lap, stints []Stint, results []SessionResult) *telemetry.Session {
	out := &telemetry.Session{
		Key:       session.Key,
		Year:      session.Year,
		EventName: meeting.Name,
		Location:  meeting.Location,
		Country:   meeting.CountryName,
		Type:      sessionType,
		Start:     session.DateStart,
		End:       session.DateEnd,
	}

	if out.Year == 0 {
		out.Year = meeting.Year
	}

	codes := make(map[int]string)

	for _, driver := range drivers {
		if _, seen := codes[driver.DriverNumber]; seen {
			continue
		}

		codes[driver.DriverNumber] = driver.NameAcronym

		name := strings.TrimSpace(driver.FirstName + " " + driver.LastName)

		if name == "" {
			name = driver.FullName
		}

		out.Drivers = append(out.Drivers, telemetry.Driver{
			Number: driver.DriverNumber,
			Code:   driver.NameAcronym,
			Name:   name,
			Team:   driver.TeamName,
			Colour: telemetry.ParseHexColour(driver.TeamColour),
		})
	}

	positions := make(map[int]int)

	for _, result := range results {
		if result.Position != nil {
			positions[result.DriverNumber] = *result.Position
		}
	}

	sort.SliceStable(out.Drivers, func(i, j int) bool {
		pi, iok := positions[out.Drivers[i].Number]
		pj, jok := positions[out.Drivers[j].Number]

		switch {
		case iok && jok:
			return pi < pj
		case iok != jok:
			// classified drivers first
			return iok
		default:
			return out.Drivers[i].Number < out.Drivers[j].Number
		}
	})

	for _, lap := range laps {
		code, ok := codes[lap.DriverNumber]

		if !ok {
			continue
		}

		l := telemetry.Lap{
			Driver:   code,
			Number:   lap.LapNumber,
			Duration: seconds(lap.LapDuration),
			Sector1:  seconds(lap.DurationSector1),
			Sector2:  seconds(lap.DurationSector2),
			Sector3:  seconds(lap.DurationSector3),
			PitOut:   lap.IsPitOutLap,
			Compound: compoundForLap(stints, lap.DriverNumber, lap.LapNumber),
		}

		if lap.DateStart != nil {
			l.Start = *lap.DateStart
		}

		out.Laps = append(out.Laps, l)
	}

	return out
}

func compoundForLap(stints []Stint, driverNumber, lapNumber int) string {
	for _, stint := range stints {
		if stint.DriverNumber == driverNumber && lapNumber >= stint.LapStart && (stint.LapEnd == 0 || lapNumber <= stint.LapEnd) {
			return strings.ToUpper(stint.Compound)
		}
	}

	return "UNKNOWN"
}

package f1bot

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dimchansky/utfbom"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	scheduleTimeFormat = "2006-01-02 15:04:05"

	// each schedule row is country, location, race name followed by up to
	// five (event type, start time) pairs
	scheduleFixedColumns = 3
	maxEventsPerRow      = 5
)

// Event is a single session of a race weekend, e.g. the qualifying of a Grand Prix.
type Event struct {
	RaceName string
	Type     string
	Start    time.Time
	Location string
	Country  string
}

// ScheduleService reads the season schedule and country flags from disk. Files
// are read on first use and cached for the lifetime of the service.
type ScheduleService struct {
	scheduleFile, flagsFile string
	defaultFlagURL          string

	mutex  sync.Mutex
	events []Event
	flags  map[string]string
}

func NewScheduleService(config DataConfig) *ScheduleService {
	return &ScheduleService{
		scheduleFile:   config.ScheduleFile,
		flagsFile:      config.FlagsFile,
		defaultFlagURL: config.DefaultFlagURL,
	}
}

func (s *ScheduleService) load() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.events != nil {
		return nil
	}

	f, err := os.Open(s.scheduleFile)

	if err != nil {
		return errors.Wrapf(err, "f1bot: could not open schedule %s", s.scheduleFile)
	}

	defer f.Close()

	events, err := ParseSchedule(f)

	if err != nil {
		return err
	}

	logrus.Infof("Loaded %d events from schedule file", len(events))

	s.events = events

	return nil
}

// ParseSchedule reads schedule rows. Start times that cannot be parsed are
// logged and skipped.
func ParseSchedule(r io.Reader) ([]Event, error) {
	reader := csv.NewReader(utfbom.SkipOnly(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	events := make([]Event, 0)

	for {
		row, err := reader.Read()

		if err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, "f1bot: could not read schedule")
		}

		if len(row) < scheduleFixedColumns {
			continue
		}

		country, location, raceName := row[0], row[1], row[2]

		for i := 0; i < maxEventsPerRow; i++ {
			column := scheduleFixedColumns + i*2

			if column+1 >= len(row) {
				break
			}

			start, err := time.Parse(scheduleTimeFormat, strings.TrimSpace(row[column+1]))

			if err != nil {
				logrus.WithError(err).Errorf("Error parsing date %q for %s", row[column+1], raceName)
				continue
			}

			events = append(events, Event{
				RaceName: raceName,
				Type:     row[column],
				Start:    start,
				Location: location,
				Country:  country,
			})
		}
	}

	return events, nil
}

func (s *ScheduleService) loadFlags() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.flags != nil {
		return nil
	}

	f, err := os.Open(s.flagsFile)

	if err != nil {
		return errors.Wrapf(err, "f1bot: could not open country flags %s", s.flagsFile)
	}

	defer f.Close()

	flags := make(map[string]string)

	if err := json.NewDecoder(utfbom.SkipOnly(f)).Decode(&flags); err != nil {
		return errors.Wrapf(err, "f1bot: could not decode country flags %s", s.flagsFile)
	}

	logrus.Infof("Loaded %d country flags", len(flags))

	s.flags = flags

	return nil
}

// NextEvent returns the first event starting after now. ok is false when the
// schedule has no upcoming events.
func (s *ScheduleService) NextEvent(now time.Time) (event Event, ok bool, err error) {
	if err := s.load(); err != nil {
		return Event{}, false, err
	}

	var upcoming []Event

	for _, event := range s.events {
		if event.Start.After(now) {
			upcoming = append(upcoming, event)
		}
	}

	if len(upcoming) == 0 {
		logrus.Warn("No upcoming events found")
		return Event{}, false, nil
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Start.Before(upcoming[j].Start)
	})

	return upcoming[0], true, nil
}

func (s *ScheduleService) EventsByRace(raceName string) ([]Event, error) {
	return s.filter(func(event Event) bool {
		return strings.EqualFold(event.RaceName, raceName)
	})
}

func (s *ScheduleService) EventsByCountry(country string) ([]Event, error) {
	return s.filter(func(event Event) bool {
		return strings.EqualFold(event.Country, country)
	})
}

func (s *ScheduleService) filter(fn func(event Event) bool) ([]Event, error) {
	if err := s.load(); err != nil {
		return nil, err
	}

	var out []Event

	for _, event := range s.events {
		if fn(event) {
			out = append(out, event)
		}
	}

	return out, nil
}

// FlagURL returns the flag image for a country, or the default flag when the
// country is unknown or the flags file cannot be read.
func (s *ScheduleService) FlagURL(country string) string {
	if err := s.loadFlags(); err != nil {
		logrus.WithError(err).Error("Error loading country flags")
		return s.defaultFlagURL
	}

	if url, ok := s.flags[country]; ok {
		return url
	}

	return s.defaultFlagURL
}

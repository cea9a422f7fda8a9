package f1bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
)

func TestNextEventCommand(t *testing.T) {
	t.Run("Upcoming event", func(t *testing.T) {
		schedule := dummySchedule{
			ok: true,
			event: Event{
				RaceName: "Monaco Grand Prix",
				Type:     "Race",
				Start:    time.Now().Add(50 * time.Hour),
				Location: "Monte Carlo",
				Country:  "Monaco",
			},
		}

		r := newDummyResponder()

		testCommands(t, nil, schedule, nil).Handle(context.Background(), r, "+f1")

		if len(r.embeds) != 1 {
			t.Logf("Expected an embed, got messages %v", r.messages)
			t.FailNow()
		}

		embed := r.embeds[0]

		if embed.Title != "Next F1 Event" || embed.Fields[0].Value != "Monaco Grand Prix" {
			t.Logf("Unexpected embed: %s %v", embed.Title, embed.Fields)
			t.Fail()
		}

		if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://example.com/monaco.png" {
			t.Log("Expected the country flag as thumbnail")
			t.Fail()
		}

		if len(r.messages) != 0 {
			t.Logf("Expected no loading message for a quick command, got %v", r.messages)
			t.Fail()
		}
	})

	t.Run("No upcoming events", func(t *testing.T) {
		r := newDummyResponder()

		testCommands(t, nil, dummySchedule{}, nil).Handle(context.Background(), r, "+f1")

		if r.lastMessage() != "No upcoming F1 events found." {
			t.Logf("Unexpected reply: %q", r.lastMessage())
			t.Fail()
		}
	})

	t.Run("Schedule unavailable", func(t *testing.T) {
		r := newDummyResponder()

		testCommands(t, nil, dummySchedule{err: errors.New("no such file")}, nil).Handle(context.Background(), r, "+f1")

		if r.lastMessage() != "Could not retrieve the schedule." {
			t.Logf("Unexpected reply: %q", r.lastMessage())
			t.Fail()
		}
	})
}

func TestStandingsCommands(t *testing.T) {
	standings := &dummyStandings{
		drivers: []Standing{
			{Position: 1, Name: "Max Verstappen", Team: "Red Bull", Points: 575},
			{Position: 2, Name: "Sergio Perez", Team: "Red Bull", Points: 285},
		},
		constructors: []Standing{
			{Position: 1, Name: "Red Bull", Team: "Red Bull", Points: 860},
		},
	}

	commands := testCommands(t, nil, nil, standings)

	r := newDummyResponder()

	commands.Handle(context.Background(), r, "+drivers 2023")
	commands.Handle(context.Background(), r, "+constructors")

	if len(r.embeds) != 2 {
		t.Logf("Expected two embeds, got %d (%v)", len(r.embeds), r.messages)
		t.FailNow()
	}

	if r.embeds[0].Title != "Drivers' Standings 2023" {
		t.Logf("Unexpected title: %s", r.embeds[0].Title)
		t.Fail()
	}

	if want := "1st Max Verstappen\n2nd Sergio Perez"; r.embeds[0].Fields[0].Value != want {
		t.Logf("Unexpected drivers: %q", r.embeds[0].Fields[0].Value)
		t.Fail()
	}

	if r.embeds[1].Title != "Constructors' Standings 2024" {
		t.Logf("Expected the current season by default, got %s", r.embeds[1].Title)
		t.Fail()
	}

	if diff := cmp.Diff([]int{2023, 2024}, standings.years); diff != "" {
		t.Errorf("years mismatch (-want +got):\n%s", diff)
	}
}

func TestStandingsUnavailable(t *testing.T) {
	testCases := []struct {
		name      string
		standings *dummyStandings
		content   string
		want      string
	}{
		{"Driver error", &dummyStandings{err: errors.New("status 500")}, "+drivers", "Could not retrieve driver standings."},
		{"Constructor error", &dummyStandings{err: ErrNoStandingsTable}, "+constructors 2020", "Could not retrieve constructor standings."},
		{"Empty", &dummyStandings{}, "+drivers 2023", "Could not retrieve driver standings."},
		{"Bad year", &dummyStandings{}, "+drivers next", "Invalid year: next\nUsage: `+drivers [year]`\nExample: `+drivers`\nNote: Defaults to the current season."},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := newDummyResponder()

			testCommands(t, nil, nil, tc.standings).Handle(context.Background(), r, tc.content)

			if r.lastMessage() != tc.want {
				t.Logf("Expected %q, got %q", tc.want, r.lastMessage())
				t.Fail()
			}
		})
	}
}

func TestHelpCommand(t *testing.T) {
	commands := testCommands(t, nil, nil, nil)

	t.Run("All commands", func(t *testing.T) {
		r := newDummyResponder()

		commands.Handle(context.Background(), r, "+bhelp")

		embed := r.embeds[0]

		var names []string

		for _, field := range embed.Fields {
			names = append(names, field.Name)
		}

		if diff := cmp.Diff([]string{"Telemetry Commands", "Race Analysis Commands", "Info Commands", "Help"}, names); diff != "" {
			t.Errorf("help sections mismatch (-want +got):\n%s", diff)
		}

		if !strings.Contains(embed.Fields[0].Value, "`trackdominance` - ") {
			t.Logf("Expected trackdominance in telemetry commands: %q", embed.Fields[0].Value)
			t.Fail()
		}
	})

	t.Run("One command", func(t *testing.T) {
		r := newDummyResponder()

		commands.Handle(context.Background(), r, "+bhelp lapsections")

		embed := r.embeds[0]

		if embed.Title != "Help: lapsections" {
			t.Logf("Unexpected title: %s", embed.Title)
			t.Fail()
		}

		if embed.Fields[0].Value != "`+lapsections [year] [race] [session] [driver1] [driver2] ...`" {
			t.Logf("Unexpected usage: %s", embed.Fields[0].Value)
			t.Fail()
		}

		if len(embed.Fields) != 3 || embed.Fields[2].Name != "Note" {
			t.Log("Expected a note field")
			t.Fail()
		}
	})

	t.Run("Unknown command", func(t *testing.T) {
		r := newDummyResponder()

		commands.Handle(context.Background(), r, "+bhelp nope")

		if r.embeds[0].Title != "Command Not Found" || r.embeds[0].Description != "Command `nope` not found." {
			t.Logf("Unexpected embed: %s", r.embeds[0].Title)
			t.Fail()
		}
	})
}

package openf1

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"justapengu.in/f1bot/internal/cache"
	"justapengu.in/f1bot/pkg/telemetry"
)

const (
	meetingsJSON = `[
		{"meeting_key": 1140, "meeting_name": "Pre-Season Testing", "location": "Sakhir", "country_name": "Bahrain", "circuit_short_name": "Sakhir", "date_start": "2023-02-23T07:00:00+00:00", "year": 2023},
		{"meeting_key": 1208, "meeting_name": "Monaco Grand Prix", "meeting_official_name": "FORMULA 1 GRAND PRIX DE MONACO 2023", "location": "Monaco", "country_name": "Monaco", "circuit_short_name": "Monte Carlo", "date_start": "2023-05-26T11:30:00+00:00", "year": 2023},
		{"meeting_key": 1141, "meeting_name": "Bahrain Grand Prix", "location": "Sakhir", "country_name": "Bahrain", "circuit_short_name": "Sakhir", "date_start": "2023-03-03T11:30:00+00:00", "year": 2023},
		{"meeting_key": 1152, "meeting_name": "São Paulo Grand Prix", "location": "São Paulo", "country_name": "Brazil", "circuit_short_name": "Interlagos", "date_start": "2023-11-03T14:30:00+00:00", "year": 2023}
	]`

	sessionsJSON = `[
		{"session_key": 9089, "session_name": "Practice 1", "meeting_key": 1208, "year": 2023, "date_start": "2023-05-26T11:30:00+00:00"},
		{"session_key": 9094, "session_name": "Qualifying", "meeting_key": 1208, "year": 2023, "date_start": "2023-05-27T14:00:00+00:00"}
	]`

	driversJSON = `[
		{"driver_number": 1, "first_name": "Max", "last_name": "Verstappen", "full_name": "Max VERSTAPPEN", "name_acronym": "VER", "team_name": "Red Bull Racing", "team_colour": "3671C6"},
		{"driver_number": 14, "first_name": "Fernando", "last_name": "Alonso", "full_name": "Fernando ALONSO", "name_acronym": "ALO", "team_name": "Aston Martin", "team_colour": "358C75"},
		{"driver_number": 16, "first_name": "Charles", "last_name": "Leclerc", "full_name": "Charles LECLERC", "name_acronym": "LEC", "team_name": "Ferrari", "team_colour": "F91536"}
	]`

	lapsJSON = `[
		{"driver_number": 1, "lap_number": 1, "date_start": null, "lap_duration": null, "is_pit_out_lap": true},
		{"driver_number": 1, "lap_number": 2, "date_start": "2023-05-27T14:10:00.000+00:00", "lap_duration": 71.365, "duration_sector_1": 19.1, "duration_sector_2": 33.2, "duration_sector_3": 19.065, "is_pit_out_lap": false},
		{"driver_number": 14, "lap_number": 2, "date_start": "2023-05-27T14:11:00.000+00:00", "lap_duration": 71.449, "is_pit_out_lap": false}
	]`

	stintsJSON = `[
		{"driver_number": 1, "stint_number": 1, "compound": "SOFT", "lap_start": 1, "lap_end": 3},
		{"driver_number": 14, "stint_number": 1, "compound": "soft", "lap_start": 1, "lap_end": 4}
	]`

	resultsJSON = `[
		{"driver_number": 14, "position": 2},
		{"driver_number": 1, "position": 1}
	]`

	carDataJSON = `[
		{"date": "2023-05-27T14:10:00.000+00:00", "driver_number": 1, "speed": 36, "throttle": 100, "brake": 0, "n_gear": 3, "rpm": 10000, "drs": 0},
		{"date": "2023-05-27T14:10:02.000+00:00", "driver_number": 1, "speed": 72, "throttle": 50, "brake": 100, "n_gear": 4, "rpm": 11000, "drs": 0},
		{"date": "2023-05-27T14:10:01.000+00:00", "driver_number": 1, "speed": 36, "throttle": 100, "brake": 0, "n_gear": 3, "rpm": 10500, "drs": 0}
	]`

	locationJSON = `[
		{"date": "2023-05-27T14:10:00.000+00:00", "driver_number": 1, "x": 0, "y": 0, "z": 0},
		{"date": "2023-05-27T14:10:02.000+00:00", "driver_number": 1, "x": 100, "y": 50, "z": 0}
	]`
)

type fakeAPI struct {
	mutex    sync.Mutex
	requests []string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
	f.mutex.Unlock()

	var body string

	switch r.URL.Path {
	case "/v1/meetings":
		body = meetingsJSON
	case "/v1/sessions":
		body = sessionsJSON
	case "/v1/drivers":
		body = driversJSON
	case "/v1/laps":
		body = lapsJSON
	case "/v1/stints":
		body = stintsJSON
	case "/v1/session_result":
		body = resultsJSON
	case "/v1/car_data":
		body = carDataJSON
	case "/v1/location":
		body = locationJSON
	default:
		http.Error(w, `{"detail":"No results found."}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

func (f *fakeAPI) count(path string) int {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	n := 0

	for _, request := range f.requests {
		if strings.HasPrefix(request, path+"?") {
			n++
		}
	}

	return n
}

func newTestClient(t *testing.T, api http.Handler, opts ...Option) *Client {
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	return New(server.URL+"/v1", append([]Option{WithLogger(logger)}, opts...)...)
}

func TestFindMeeting(t *testing.T) {
	meetings := []Meeting{
		{Key: 1, Name: "Bahrain Grand Prix", Location: "Sakhir", CountryName: "Bahrain"},
		{Key: 2, Name: "Austrian Grand Prix", Location: "Spielberg", CountryName: "Austria", OfficialName: "FORMULA 1 GROSSER PREIS VON ÖSTERREICH"},
		{Key: 3, Name: "São Paulo Grand Prix", Location: "São Paulo", CountryName: "Brazil"},
		{Key: 4, Name: "Emilia Romagna Grand Prix", Location: "Imola", CountryName: "Italy"},
		{Key: 5, Name: "Italian Grand Prix", Location: "Monza", CountryName: "Italy"},
	}

	tests := map[string]int{
		"1":          1,
		"5":          5,
		"bahrain":    1,
		"Spielberg":  2,
		"sao paulo":  3,
		"Brazil":     3,
		"imola":      4,
		"Italy":      4,
		"monza":      5,
		"italian":    5,
		"österreich": 2,
	}

	for event, want := range tests {
		meeting, ok := FindMeeting(meetings, event)

		if !ok {
			t.Errorf("%q: not found", event)
			continue
		}

		if meeting.Key != want {
			t.Errorf("%q: expected meeting %d, got %d", event, want, meeting.Key)
		}
	}

	for _, event := range []string{"0", "6", "Las Vegas", ""} {
		if _, ok := FindMeeting(meetings, event); ok {
			t.Errorf("%q: expected no match", event)
		}
	}
}

func TestLoadSession(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	for _, event := range []string{"Monaco", "2", "monte carlo"} {
		session, err := client.LoadSession(context.Background(), 2023, event, telemetry.SessionTypeQualifying)

		if err != nil {
			t.Fatalf("%s: %s", event, err)
		}

		if session.Key != 9094 || session.EventName != "Monaco Grand Prix" {
			t.Errorf("%s: unexpected session %d %s", event, session.Key, session.EventName)
		}

		var codes []string

		for _, driver := range session.Drivers {
			codes = append(codes, driver.Code)
		}

		if diff := cmp.Diff([]string{"VER", "ALO", "LEC"}, codes); diff != "" {
			t.Errorf("%s: driver order mismatch (-want +got):\n%s", event, diff)
		}

		lap, err := session.FastestLap("VER")

		if err != nil {
			t.Fatal(err)
		}

		if lap.Duration != 71365*time.Millisecond || lap.Compound != "SOFT" || lap.Sector1 != 19100*time.Millisecond {
			t.Errorf("%s: unexpected fastest lap %+v", event, lap)
		}

		if driver, _ := session.Resolve("LEC"); driver.Name != "Charles Leclerc" || driver.Team != "Ferrari" {
			t.Errorf("%s: unexpected driver %+v", event, driver)
		}
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	client := newTestClient(t, &fakeAPI{})

	_, err := client.LoadSession(context.Background(), 2023, "Las Vegas", telemetry.SessionTypeRace)

	if !errors.Is(err, telemetry.ErrSessionNotFound) {
		t.Errorf("unknown event: expected ErrSessionNotFound, got %v", err)
	}

	_, err = client.LoadSession(context.Background(), 2023, "Monaco", telemetry.SessionTypeSprint)

	if !errors.Is(err, telemetry.ErrSessionNotFound) {
		t.Errorf("unknown session: expected ErrSessionNotFound, got %v", err)
	}

	empty := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"No results found."}`, http.StatusNotFound)
	})

	_, err = newTestClient(t, empty).LoadSession(context.Background(), 1950, "Silverstone", telemetry.SessionTypeRace)

	if !errors.Is(err, telemetry.ErrSessionNotFound) {
		t.Errorf("empty season: expected ErrSessionNotFound, got %v", err)
	}
}

func TestLapTelemetry(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	session, err := client.LoadSession(context.Background(), 2023, "Monaco", telemetry.SessionTypeQualifying)

	if err != nil {
		t.Fatal(err)
	}

	lap, err := session.FastestLap("VER")

	if err != nil {
		t.Fatal(err)
	}

	samples, err := client.LapTelemetry(context.Background(), session, lap)

	if err != nil {
		t.Fatal(err)
	}

	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}

	want := []telemetry.Sample{
		{Driver: "VER", Time: 0, Distance: 0, Position: telemetry.Vector2{}, Speed: 36, Throttle: 100, Gear: 3, RPM: 10000},
		{Driver: "VER", Time: time.Second, Distance: 10, Position: telemetry.Vector2{X: 50, Y: 25}, Speed: 36, Throttle: 100, Gear: 3, RPM: 10500},
		{Driver: "VER", Time: 2 * time.Second, Distance: 25, Position: telemetry.Vector2{X: 100, Y: 50}, Speed: 72, Throttle: 50, Brake: true, Gear: 4, RPM: 11000},
	}

	if diff := cmp.Diff(want, samples); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}

	for _, request := range api.requests {
		if strings.HasPrefix(request, "/v1/car_data?") && !strings.Contains(request, "date>=2023-05-27T14%3A10%3A00.000") {
			t.Errorf("expected an unescaped date filter, got %s", request)
		}
	}
}

func TestClientUsesCache(t *testing.T) {
	api := &fakeAPI{}

	c, err := cache.Open(t.TempDir(), 0)

	if err != nil {
		t.Fatal(err)
	}

	defer c.Close()

	client := newTestClient(t, api, WithCache(c))

	for i := 0; i < 3; i++ {
		if _, err := client.LoadSession(context.Background(), 2023, "Monaco", telemetry.SessionTypeQualifying); err != nil {
			t.Fatal(err)
		}
	}

	for _, path := range []string{"/v1/meetings", "/v1/sessions", "/v1/drivers", "/v1/laps"} {
		if n := api.count(path); n != 1 {
			t.Errorf("%s: expected 1 upstream request, got %d", path, n)
		}
	}
}

func TestClientDoesNotCacheEmptyResponses(t *testing.T) {
	var (
		mutex sync.Mutex
		calls int
	)

	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mutex.Lock()
		defer mutex.Unlock()

		calls++

		if calls == 1 {
			fmt.Fprint(w, "[]")
			return
		}

		fmt.Fprint(w, meetingsJSON)
	})

	c, err := cache.Open(t.TempDir(), 168*time.Hour)

	if err != nil {
		t.Fatal(err)
	}

	defer c.Close()

	client := newTestClient(t, api, WithCache(c))

	for i, want := range []int{0, 3, 3} {
		meetings, err := client.Meetings(context.Background(), 2023)

		if err != nil {
			t.Fatal(err)
		}

		if len(meetings) != want {
			t.Errorf("call %d: expected %d meetings, got %d", i, want, len(meetings))
		}
	}

	mutex.Lock()
	defer mutex.Unlock()

	if calls != 2 {
		t.Errorf("expected 2 upstream requests, got %d", calls)
	}
}

func TestClientRefreshesStaleCalendar(t *testing.T) {
	api := &fakeAPI{}

	c, err := cache.Open(t.TempDir(), 168*time.Hour)

	if err != nil {
		t.Fatal(err)
	}

	defer c.Close()

	client := newTestClient(t, api, WithCache(c))

	// a calendar cached before Monaco was published
	if err := c.Put(client.requestURL("meetings", []filter{eq("year", 2023)}), []byte(`[{"meeting_key": 1141, "meeting_name": "Bahrain Grand Prix", "year": 2023}]`)); err != nil {
		t.Fatal(err)
	}

	session, err := client.LoadSession(context.Background(), 2023, "Monaco", telemetry.SessionTypeQualifying)

	if err != nil {
		t.Fatal(err)
	}

	if session.EventName != "Monaco Grand Prix" {
		t.Errorf("unexpected event %s", session.EventName)
	}

	if n := api.count("/v1/meetings"); n != 1 {
		t.Errorf("expected 1 upstream meetings request, got %d", n)
	}
}

func TestClientSkipsCacheForRecentSessions(t *testing.T) {
	api := &fakeAPI{}

	c, err := cache.Open(t.TempDir(), 168*time.Hour)

	if err != nil {
		t.Fatal(err)
	}

	defer c.Close()

	client := newTestClient(t, api, WithCache(c))

	// qualifying started at 14:00 and has no end time yet
	client.now = func() time.Time {
		return time.Date(2023, 5, 27, 14, 30, 0, 0, time.UTC)
	}

	var session *telemetry.Session

	for i := 0; i < 2; i++ {
		session, err = client.LoadSession(context.Background(), 2023, "Monaco", telemetry.SessionTypeQualifying)

		if err != nil {
			t.Fatal(err)
		}
	}

	lap, err := session.FastestLap("VER")

	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := client.LapTelemetry(context.Background(), session, lap); err != nil {
			t.Fatal(err)
		}
	}

	for path, want := range map[string]int{
		"/v1/meetings": 1,
		"/v1/sessions": 1,
		"/v1/drivers":  2,
		"/v1/laps":     2,
		"/v1/car_data": 2,
		"/v1/location": 2,
	} {
		if n := api.count(path); n != want {
			t.Errorf("%s: expected %d upstream requests, got %d", path, want, n)
		}
	}
}

func TestSessionPolicy(t *testing.T) {
	now := time.Date(2023, 5, 27, 20, 0, 0, 0, time.UTC)
	client := New("", func(c *Client) { c.now = func() time.Time { return now } })

	testCases := []struct {
		name       string
		start, end time.Time
		want       cachePolicy
	}{
		{"finished", now.Add(-6 * time.Hour), now.Add(-4 * time.Hour), cacheDefault},
		{"just finished", now.Add(-3 * time.Hour), now.Add(-time.Hour), cacheBypass},
		{"in progress", now.Add(-time.Hour), now.Add(time.Hour), cacheBypass},
		{"no end, long ago", now.Add(-48 * time.Hour), time.Time{}, cacheDefault},
		{"no end, today", now.Add(-2 * time.Hour), time.Time{}, cacheBypass},
		{"unknown", time.Time{}, time.Time{}, cacheBypass},
	}

	for _, tc := range testCases {
		if got := client.sessionPolicy(tc.start, tc.end); got != tc.want {
			t.Logf("%s: expected policy %d, got %d", tc.name, tc.want, got)
			t.Fail()
		}
	}
}

func TestEmptyList(t *testing.T) {
	testCases := map[string]bool{
		"[]":         true,
		" [ \n ] ":   true,
		"null":       true,
		`[{"a": 1}]`: false,
		`{}`:         false,
		"":           false,
	}

	for body, want := range testCases {
		if got := emptyList([]byte(body)); got != want {
			t.Logf("emptyList(%q): expected %t, got %t", body, want, got)
			t.Fail()
		}
	}
}

func TestClientRateLimited(t *testing.T) {
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := newTestClient(t, limited).Meetings(context.Background(), 2023)

	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClientHonoursContext(t *testing.T) {
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(t, slow).Meetings(ctx, 2023)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

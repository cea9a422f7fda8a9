package openf1

import (
	"math"
	"time"
)

type Meeting struct {
	Key              int       `json:"meeting_key"`
	Name             string    `json:"meeting_name"`
	OfficialName     string    `json:"meeting_official_name"`
	Location         string    `json:"location"`
	CountryName      string    `json:"country_name"`
	CircuitShortName string    `json:"circuit_short_name"`
	DateStart        time.Time `json:"date_start"`
	Year             int       `json:"year"`
}

type Session struct {
	Key              int       `json:"session_key"`
	Name             string    `json:"session_name"`
	Type             string    `json:"session_type"`
	MeetingKey       int       `json:"meeting_key"`
	DateStart        time.Time `json:"date_start"`
	DateEnd          time.Time `json:"date_end"`
	Location         string    `json:"location"`
	CountryName      string    `json:"country_name"`
	CircuitShortName string    `json:"circuit_short_name"`
	Year             int       `json:"year"`
}

type Driver struct {
	DriverNumber  int    `json:"driver_number"`
	BroadcastName string `json:"broadcast_name"`
	FullName      string `json:"full_name"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	NameAcronym   string `json:"name_acronym"`
	TeamName      string `json:"team_name"`
	TeamColour    string `json:"team_colour"`
}

type Lap struct {
	DriverNumber    int        `json:"driver_number"`
	LapNumber       int        `json:"lap_number"`
	DateStart       *time.Time `json:"date_start"`
	LapDuration     *float64   `json:"lap_duration"`
	DurationSector1 *float64   `json:"duration_sector_1"`
	DurationSector2 *float64   `json:"duration_sector_2"`
	DurationSector3 *float64   `json:"duration_sector_3"`
	IsPitOutLap     bool       `json:"is_pit_out_lap"`
}

type Stint struct {
	DriverNumber int    `json:"driver_number"`
	StintNumber  int    `json:"stint_number"`
	Compound     string `json:"compound"`
	LapStart     int    `json:"lap_start"`
	LapEnd       int    `json:"lap_end"`
}

type SessionResult struct {
	DriverNumber int  `json:"driver_number"`
	Position     *int `json:"position"`
	DNF          bool `json:"dnf"`
	DNS          bool `json:"dns"`
	DSQ          bool `json:"dsq"`
}

type CarData struct {
	Date         time.Time `json:"date"`
	DriverNumber int       `json:"driver_number"`
	Speed        float64   `json:"speed"`
	Throttle     float64   `json:"throttle"`
	Brake        float64   `json:"brake"`
	NGear        int       `json:"n_gear"`
	RPM          int       `json:"rpm"`
	DRS          int       `json:"drs"`
}

type Location struct {
	Date         time.Time `json:"date"`
	DriverNumber int       `json:"driver_number"`
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Z            float64   `json:"z"`
}

func seconds(f *float64) time.Duration {
	if f == nil {
		return 0
	}

	return time.Duration(math.Round(*f * float64(time.Second)))
}

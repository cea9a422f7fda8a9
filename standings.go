package f1bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const DefaultStandingsURL = "https://www.formula1.com/en/results.html"

var ErrNoStandingsTable = errors.New("f1bot: could not find standings table on the page")

// Standing is a row of the drivers' or constructors' championship. For
// constructors Name and Team are both the team name.
type Standing struct {
	Position int
	Name     string
	Team     string
	Points   int
}

// StandingsService scrapes championship standings from the formula1.com results pages.
type StandingsService struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func NewStandingsService(config StandingsConfig) *StandingsService {
	return &StandingsService{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
	}
}

// Year returns year, or the current year when year is zero.
func (s *StandingsService) Year(year int) int {
	if year == 0 {
		return s.now().Year()
	}

	return year
}

func (s *StandingsService) DriverStandings(ctx context.Context, year int) ([]Standing, error) {
	rows, err := s.fetchTable(ctx, fmt.Sprintf("%s/%d/drivers.html", s.baseURL, s.Year(year)))

	if err != nil {
		return nil, err
	}

	var standings []Standing

	for i, columns := range rows {
		if len(columns) < 5 {
			continue
		}

		points, err := parsePoints(columns[4])

		if err != nil {
			return nil, err
		}

		standings = append(standings, Standing{
			Position: parsePosition(columns[0], i+1),
			Name:     driverName(columns[1]),
			Team:     normalizeTeamName(columns[3]),
			Points:   points,
		})
	}

	return standings, nil
}

func (s *StandingsService) ConstructorStandings(ctx context.Context, year int) ([]Standing, error) {
	rows, err := s.fetchTable(ctx, fmt.Sprintf("%s/%d/team.html", s.baseURL, s.Year(year)))

	if err != nil {
		return nil, err
	}

	var standings []Standing

	for i, columns := range rows {
		if len(columns) < 3 {
			continue
		}

		points, err := parsePoints(columns[2])

		if err != nil {
			return nil, err
		}

		team := normalizeTeamName(columns[1])

		standings = append(standings, Standing{
			Position: parsePosition(columns[0], i+1),
			Name:     team,
			Team:     team,
			Points:   points,
		})
	}

	return standings, nil
}

// fetchTable returns the cell text of each row of the first table on the page,
// excluding the header.
func (s *StandingsService) fetchTable(ctx context.Context, url string) ([][]string, error) {
	logrus.Infof("Fetching standings from %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	resp, err := s.http.Do(req)

	if err != nil {
		return nil, errors.Wrapf(err, "f1bot: could not fetch %s", url)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("f1bot: unexpected status %d from %s", resp.StatusCode, url)
	}

	return parseTable(resp.Body)
}

func parseTable(r io.Reader) ([][]string, error) {
	doc, err := html.Parse(r)

	if err != nil {
		return nil, errors.Wrap(err, "f1bot: could not parse standings page")
	}

	table := findFirst(doc, atom.Table)

	if table == nil {
		return nil, ErrNoStandingsTable
	}

	var rows [][]string

	walk(table, func(n *html.Node) bool {
		if n.DataAtom != atom.Tr {
			return true
		}

		var columns []string

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Td {
				columns = append(columns, strings.TrimSpace(textContent(c)))
			}
		}

		rows = append(rows, columns)

		return false
	})

	// the first row is the header
	if len(rows) > 0 {
		rows = rows[1:]
	}

	return rows, nil
}

// walk visits n and its descendants depth first. fn returns false to skip a node's children.
func walk(n *html.Node, fn func(n *html.Node) bool) {
	if n.Type == html.ElementNode && !fn(n) {
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	var found *html.Node

	walk(n, func(n *html.Node) bool {
		if found != nil {
			return false
		}

		if n.DataAtom == a {
			found = n
			return false
		}

		return true
	})

	return found
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}

	var b strings.Builder

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}

	return b.String()
}

// driverName strips the three letter driver code the results page appends to
// each name, e.g. "Max Verstappen VER".
func driverName(cell string) string {
	if len(cell) > 3 {
		cell = cell[:len(cell)-3]
	}

	return strings.Join(strings.Fields(cell), " ")
}

func parsePoints(cell string) (int, error) {
	points, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)

	if err != nil {
		return 0, errors.Wrapf(err, "f1bot: invalid points %q", cell)
	}

	return int(points), nil
}

func parsePosition(cell string, fallback int) int {
	position, err := strconv.Atoi(strings.TrimSpace(cell))

	if err != nil {
		return fallback
	}

	return position
}

var teamNames = []struct {
	contains, name string
}{
	{"Red", "Red Bull"},
	{"Alpine", "Alpine"},
	{"Aston", "Aston Martin"},
	{"McLaren", "McLaren"},
	{"Williams", "Williams"},
	{"RB", "Visa CashApp RB"},
	{"Kick", "Kick Sauber"},
	{"Haas", "Haas"},
	{"Ferrari", "Ferrari"},
	{"Mercedes", "Mercedes"},
}

// normalizeTeamName maps the full entrant names used on the results pages to
// short team names. Order matters: "Red Bull Racing RBPT" must not match "RB".
func normalizeTeamName(team string) string {
	team = strings.Join(strings.Fields(team), " ")

	for _, t := range teamNames {
		if strings.Contains(team, t.contains) {
			return t.name
		}
	}

	if team == strings.ToUpper(team) {
		return cases.Title(language.English).String(strings.ToLower(team))
	}

	return team
}

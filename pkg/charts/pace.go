package charts

import (
	"image/color"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"justapengu.in/f1bot/pkg/telemetry"
)

// PaceGroup is a set of laps drawn as one box, e.g. a driver or a team.
type PaceGroup struct {
	Name   string
	Colour color.Color
	Laps   []telemetry.Lap
}

func (g PaceGroup) seconds() plotter.Values {
	values := make(plotter.Values, 0, len(g.Laps))

	for _, lap := range g.Laps {
		values = append(values, lap.Duration.Seconds())
	}

	return values
}

// Median is the group's median lap time in seconds.
func (g PaceGroup) Median() float64 {
	values := g.seconds()

	if len(values) == 0 {
		return 0
	}

	sort.Float64s(values)

	return stat.Quantile(0.5, stat.Empirical, values, nil)
}

type PaceInput struct {
	Title  string
	Groups []PaceGroup
}

func (in PaceInput) populated() []PaceGroup {
	var out []PaceGroup

	for _, group := range in.Groups {
		if len(group.Laps) > 0 {
			out = append(out, group)
		}
	}

	return out
}

const boxWidth = 28

// RacePace draws the lap time distribution of each group in the given order,
// with the individual laps scattered on top coloured by tyre compound.
func RacePace(w io.Writer, in PaceInput) error {
	groups := in.populated()

	if len(groups) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = in.Title
	p.X.Label.Text = "Driver"
	p.Y.Label.Text = "Lap Time (s)"
	p.Legend.Top = true

	names := make([]string, len(groups))
	byCompound := make(map[string]plotter.XYs)

	for i, group := range groups {
		names[i] = group.Name

		box, err := plotter.NewBoxPlot(vg.Points(boxWidth), float64(i), group.seconds())

		if err != nil {
			return errors.Wrapf(err, "charts: box plot for %s", group.Name)
		}

		box.FillColor = visible(group.Colour)
		p.Add(box)

		for k, lap := range group.Laps {
			byCompound[lap.Compound] = append(byCompound[lap.Compound], plotter.XY{
				X: float64(i) + jitter(k),
				Y: lap.Duration.Seconds(),
			})
		}
	}

	for _, compound := range compounds(byCompound) {
		scatter, err := plotter.NewScatter(byCompound[compound])

		if err != nil {
			return errors.Wrapf(err, "charts: %s laps", compound)
		}

		scatter.GlyphStyle = draw.GlyphStyle{
			Color:  CompoundColour(compound),
			Radius: vg.Points(2.5),
			Shape:  draw.CircleGlyph{},
		}

		p.Add(scatter)
		p.Legend.Add(compound, scatter)
	}

	p.NominalX(names...)

	return writePlot(w, p)
}

// TeamPace draws one box per group, fastest median first.
func TeamPace(w io.Writer, in PaceInput) error {
	groups := OrderByMedian(in.populated())

	if len(groups) == 0 {
		return ErrNoData
	}

	p := plot.New()
	p.Title.Text = in.Title
	p.Y.Label.Text = "Lap Time (s)"

	names := make([]string, len(groups))

	for i, group := range groups {
		names[i] = group.Name

		box, err := plotter.NewBoxPlot(vg.Points(boxWidth), float64(i), group.seconds())

		if err != nil {
			return errors.Wrapf(err, "charts: box plot for %s", group.Name)
		}

		box.FillColor = visible(group.Colour)
		box.MedianStyle.Color = color.Gray{Y: 128}
		p.Add(box)
	}

	p.NominalX(names...)

	return writePlot(w, p)
}

// OrderByMedian returns the groups sorted by median lap time, fastest first.
func OrderByMedian(groups []PaceGroup) []PaceGroup {
	out := make([]PaceGroup, len(groups))
	copy(out, groups)

	medians := make(map[string]float64, len(out))

	for _, group := range out {
		medians[group.Name] = group.Median()
	}

	sort.SliceStable(out, func(i, j int) bool {
		return medians[out[i].Name] < medians[out[j].Name]
	})

	return out
}

// jitter spreads the laps of one box sideways so they do not overlap completely.
func jitter(k int) float64 {
	return float64(k%7-3) * 0.04
}

func compounds(byCompound map[string]plotter.XYs) []string {
	var out []string

	for _, compound := range CompoundOrder {
		if _, ok := byCompound[compound]; ok {
			out = append(out, compound)
		}
	}

	var rest []string

	for compound := range byCompound {
		if _, known := compoundColours[compound]; !known {
			rest = append(rest, compound)
		}
	}

	sort.Strings(rest)

	return append(out, rest...)
}

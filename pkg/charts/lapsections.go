package charts

import (
	"io"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"justapengu.in/f1bot/pkg/telemetry"
)

type LapSectionsInput struct {
	Title  string
	Traces []Trace
}

// LapSections draws a 2x2 grid with one panel per lap section, plotting the
// speed of each driver's samples within that section against lap time.
func LapSections(w io.Writer, in LapSectionsInput) error {
	if len(in.Traces) == 0 {
		return ErrNoData
	}

	plots := make([][]*plot.Plot, 2)

	for row := range plots {
		plots[row] = make([]*plot.Plot, 2)
	}

	for i, section := range telemetry.Sections {
		p := plot.New()
		p.Title.Text = section.Label
		p.X.Label.Text = "Time (s)"
		p.Y.Label.Text = "Speed (km/h)"
		p.Legend.Top = true

		for j, trace := range in.Traces {
			samples := section.Filter(trace.Samples)

			if len(samples) == 0 {
				continue
			}

			xys := make(plotter.XYs, len(samples))

			for k, sample := range samples {
				xys[k] = plotter.XY{X: sample.Time.Seconds(), Y: sample.Speed}
			}

			scatter, err := plotter.NewScatter(xys)

			if err != nil {
				return errors.Wrapf(err, "charts: %s samples for %s", section.Name, trace.Driver)
			}

			scatter.GlyphStyle = draw.GlyphStyle{
				Color:  plotutil.Color(j),
				Radius: vg.Points(1.5),
				Shape:  plotutil.Shape(j),
			}

			p.Add(scatter)
			p.Legend.Add(trace.label(), scatter)
		}

		plots[i/2][i%2] = p
	}

	img := vgimg.New(Width, Height)
	dc := draw.New(img)

	heading(dc, in.Title)

	tiles := draw.Tiles{
		Rows:      2,
		Cols:      2,
		PadX:      vg.Points(20),
		PadY:      vg.Points(20),
		PadTop:    vg.Points(30),
		PadBottom: vg.Points(5),
		PadLeft:   vg.Points(5),
		PadRight:  vg.Points(10),
	}

	canvases := plot.Align(plots, tiles, dc)

	for row := range plots {
		for col := range plots[row] {
			plots[row][col].Draw(canvases[row][col])
		}
	}

	return writeCanvas(w, img)
}

package charts

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

type SpeedTraceInput struct {
	Title  string
	Traces []Trace
}

// the speed panel takes 10 parts of the figure height, the throttle panel 3
const (
	speedPanelRatio    = 10
	throttlePanelRatio = 3
)

// SpeedTrace draws speed over distance with a throttle panel underneath.
func SpeedTrace(w io.Writer, in SpeedTraceInput) error {
	speed := plot.New()
	speed.Title.Text = in.Title
	speed.X.Label.Text = "Distance (m)"
	speed.Y.Label.Text = "Speed (km/h)"
	speed.Legend.Top = true
	speed.Add(plotter.NewGrid())

	throttle := plot.New()
	throttle.X.Label.Text = "Distance (m)"
	throttle.Y.Label.Text = "Throttle %"
	throttle.Y.Min = 0
	throttle.Y.Max = 105
	throttle.Legend.Top = true

	minSpeed, maxSpeed := math.Inf(1), math.Inf(-1)
	drawn := 0

	for i, trace := range in.Traces {
		if len(trace.Samples) == 0 {
			continue
		}

		speedXYs := make(plotter.XYs, len(trace.Samples))
		throttleXYs := make(plotter.XYs, len(trace.Samples))

		for j, sample := range trace.Samples {
			speedXYs[j] = plotter.XY{X: sample.Distance, Y: sample.Speed}
			throttleXYs[j] = plotter.XY{X: sample.Distance, Y: sample.Throttle}

			minSpeed = math.Min(minSpeed, sample.Speed)
			maxSpeed = math.Max(maxSpeed, sample.Speed)
		}

		speedLine, err := plotter.NewLine(speedXYs)

		if err != nil {
			return errors.Wrapf(err, "charts: speed line for %s", trace.Driver)
		}

		speedLine.Color = visible(trace.Colour)
		speedLine.Width = vg.Points(1.5)
		// teammates share a colour, so tell them apart by dash pattern
		speedLine.Dashes = plotutil.Dashes(i)

		throttleLine, err := plotter.NewLine(throttleXYs)

		if err != nil {
			return errors.Wrapf(err, "charts: throttle line for %s", trace.Driver)
		}

		throttleLine.Color = speedLine.Color
		throttleLine.Width = vg.Points(1.5)
		throttleLine.Dashes = speedLine.Dashes

		speed.Add(speedLine)
		speed.Legend.Add(trace.label(), speedLine)
		throttle.Add(throttleLine)
		throttle.Legend.Add(trace.Driver, throttleLine)

		drawn++
	}

	if drawn == 0 {
		return ErrNoData
	}

	speed.Y.Min = minSpeed - 40
	speed.Y.Max = maxSpeed + 5

	img := vgimg.New(Width, Height)
	dc := draw.New(img)

	total := vg.Length(speedPanelRatio + throttlePanelRatio)

	speed.Draw(draw.Crop(dc, 0, 0, Height*throttlePanelRatio/total, 0))
	throttle.Draw(draw.Crop(dc, 0, 0, 0, -Height*speedPanelRatio/total))

	return writeCanvas(w, img)
}

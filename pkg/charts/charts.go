// Package charts renders lap and race comparisons as PNG images using gonum/plot.
package charts

import (
	"fmt"
	"image/color"
	"io"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"justapengu.in/f1bot/pkg/telemetry"
)

var ErrNoData = errors.New("charts: nothing to plot")

const (
	Width  = 12 * vg.Inch
	Height = 8 * vg.Inch
)

// Trace is one driver's lap telemetry as drawn on a chart.
type Trace struct {
	Driver string

	// Label is the legend text, the driver code when empty.
	Label   string
	Colour  color.Color
	Samples []telemetry.Sample
}

func (t Trace) label() string {
	if t.Label != "" {
		return t.Label
	}

	return t.Driver
}

var compoundColours = map[string]color.Color{
	"SOFT":         color.RGBA{R: 218, G: 41, B: 28, A: 255},
	"MEDIUM":       color.RGBA{R: 255, G: 200, B: 0, A: 255},
	"HARD":         color.RGBA{R: 150, G: 150, B: 150, A: 255},
	"INTERMEDIATE": color.RGBA{R: 67, G: 176, B: 42, A: 255},
	"WET":          color.RGBA{R: 0, G: 103, B: 173, A: 255},
}

var unknownCompoundColour = color.RGBA{R: 0, G: 0, B: 0, A: 255}

// CompoundOrder is the order compounds appear in chart legends.
var CompoundOrder = []string{"SOFT", "MEDIUM", "HARD", "INTERMEDIATE", "WET"}

// CompoundColour returns the conventional colour of a tyre compound.
func CompoundColour(compound string) color.Color {
	if c, ok := compoundColours[compound]; ok {
		return c
	}

	return unknownCompoundColour
}

// FormatLapTime formats a lap time as m:ss.mmm.
func FormatLapTime(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	d = d.Round(time.Millisecond)

	minutes := d / time.Minute
	d -= minutes * time.Minute
	seconds := d / time.Second
	d -= seconds * time.Second

	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, d/time.Millisecond)
}

// visible returns c with a full alpha channel, replacing missing colours with grey.
func visible(c color.Color) color.Color {
	if c == nil {
		return color.Gray{Y: 128}
	}

	r, g, b, _ := c.RGBA()

	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 255}
}

func writePlot(w io.Writer, p *plot.Plot) error {
	wt, err := p.WriterTo(Width, Height, "png")

	if err != nil {
		return errors.Wrap(err, "charts: could not create png writer")
	}

	_, err = wt.WriteTo(w)

	return err
}

func writeCanvas(w io.Writer, img *vgimg.Canvas) error {
	_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)

	return err
}

// heading draws a figure title centred at the top of the canvas.
func heading(dc draw.Canvas, title string) {
	style := text.Style{
		Color:   color.Black,
		Font:    font.From(plot.DefaultFont, 14),
		Handler: plot.DefaultTextHandler,
		XAlign:  text.XCenter,
		YAlign:  text.YTop,
	}

	dc.FillText(style, vg.Point{X: (dc.Min.X + dc.Max.X) / 2, Y: dc.Max.Y - vg.Points(6)}, title)
}

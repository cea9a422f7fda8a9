// Package trackmap draws a lap's racing line as a track map, coloured by
// mini-sector dominance or by gear.
package trackmap

import (
	"image"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/mitchellh/go-wordwrap"
	"golang.org/x/image/font/basicfont"

	"justapengu.in/f1bot/pkg/minisectors"
	"justapengu.in/f1bot/pkg/telemetry"
)

var (
	backgroundColor  = color.RGBA{R: 16, G: 16, B: 16, A: 255}
	trackBorderColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	textColor        = color.White

	// NeutralColor marks mini-sectors nobody set a time in.
	NeutralColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

const (
	padding      = 40
	maxTrackSize = 800
	trackWidth   = 6
	legendWidth  = 120
	lineHeight   = 16
	swatchSize   = 12
)

// Segment is a stretch of the racing line drawn in a single colour.
type Segment struct {
	From, To telemetry.Vector2
	Colour   color.Color
}

type LegendEntry struct {
	Label  string
	Colour color.Color
}

// Renderer maps track coordinates onto an image. Track coordinates have Y
// pointing up, so the map is flipped vertically.
type Renderer struct {
	outline []telemetry.Vector2

	scale   float64
	min     telemetry.Vector2
	offsetY int
	bounds  image.Rectangle
}

func NewRenderer(outline []telemetry.Vector2) *Renderer {
	return &Renderer{outline: outline}
}

// Rect returns the size of the track area of the image, including padding, and
// sets up the scale used to project track coordinates onto it.
func (r *Renderer) Rect() image.Rectangle {
	min, max := telemetry.Bounds(r.outline)

	width, height := max.X-min.X, max.Y-min.Y
	longest := math.Max(width, height)

	r.min = min
	r.scale = 1

	if longest > 0 {
		r.scale = maxTrackSize / longest
	}

	return image.Rect(0, 0, int(width*r.scale)+padding*2, int(height*r.scale)+padding*2)
}

func (r *Renderer) project(p telemetry.Vector2) (x, y float64) {
	trackHeight := float64(r.bounds.Dy() - r.offsetY)

	x = (p.X-r.min.X)*r.scale + padding
	y = float64(r.offsetY) + trackHeight - padding - (p.Y-r.min.Y)*r.scale

	return x, y
}

// newContext lays out an image with a wrapped title above the track and room
// for a legend on the right.
func (r *Renderer) newContext(title string) (*gg.Context, []string) {
	track := r.Rect()

	width := track.Dx() + legendWidth
	lines := wrapTitle(title, width-padding*2)

	r.offsetY = len(lines)*lineHeight + padding/2
	r.bounds = image.Rect(0, 0, width, track.Dy()+r.offsetY)

	img := image.NewRGBA(r.bounds)
	ctx := gg.NewContextForRGBA(img)

	ctx.SetColor(backgroundColor)
	ctx.Clear()
	ctx.SetFontFace(basicfont.Face7x13)

	return ctx, lines
}

func (r *Renderer) drawTitle(ctx *gg.Context, lines []string) {
	ctx.Push()
	ctx.SetColor(textColor)

	for i, line := range lines {
		ctx.DrawStringAnchored(line, float64(r.bounds.Dx())/2, float64(padding/2+i*lineHeight), 0.5, 0.5)
	}

	ctx.Pop()
}

func (r *Renderer) drawOutline(ctx *gg.Context, fill color.Color) {
	ctx.Push()
	for _, point := range r.outline {
		ctx.LineTo(r.project(point))
	}
	ctx.SetLineCapRound()
	ctx.SetLineJoinRound()
	ctx.SetColor(trackBorderColor)
	ctx.SetLineWidth(trackWidth + 4)
	ctx.StrokePreserve()
	ctx.SetColor(fill)
	ctx.SetLineWidth(trackWidth)
	ctx.Stroke()
	ctx.Pop()
}

// drawSegments strokes consecutive segments of the same colour as one path so
// joins between them stay smooth.
func (r *Renderer) drawSegments(ctx *gg.Context, segments []Segment) {
	ctx.Push()
	ctx.SetLineCapRound()
	ctx.SetLineJoinRound()
	ctx.SetLineWidth(trackWidth)

	for i := 0; i < len(segments); {
		j := i + 1

		for j < len(segments) && sameColour(segments[j].Colour, segments[i].Colour) && segments[j].From == segments[j-1].To {
			j++
		}

		ctx.MoveTo(r.project(segments[i].From))

		for _, segment := range segments[i:j] {
			ctx.LineTo(r.project(segment.To))
		}

		ctx.SetColor(segments[i].Colour)
		ctx.Stroke()

		i = j
	}

	ctx.Pop()
}

func (r *Renderer) drawLegend(ctx *gg.Context, heading string, entries []LegendEntry) {
	x := float64(r.bounds.Dx() - legendWidth + padding/2)
	y := float64(r.offsetY + padding)

	ctx.Push()

	if heading != "" {
		ctx.SetColor(textColor)
		ctx.DrawStringAnchored(heading, x, y, 0, 0.5)
		y += lineHeight * 1.5
	}

	for _, entry := range entries {
		ctx.SetColor(entry.Colour)
		ctx.DrawRectangle(x, y-swatchSize/2, swatchSize, swatchSize)
		ctx.Fill()

		ctx.SetColor(textColor)
		ctx.DrawStringAnchored(entry.Label, x+swatchSize+6, y, 0, 0.5)

		y += lineHeight * 1.5
	}

	ctx.Pop()
}

func wrapTitle(title string, width int) []string {
	// basicfont.Face7x13 advances 7 pixels per glyph
	limit := width / 7

	if limit < 1 {
		limit = 1
	}

	var lines []string

	for _, paragraph := range strings.Split(title, "\n") {
		lines = append(lines, strings.Split(wordwrap.WrapString(paragraph, uint(limit)), "\n")...)
	}

	return lines
}

func sameColour(a, b color.Color) bool {
	if a == nil || b == nil {
		return a == b
	}

	r1, g1, b1, a1 := a.RGBA()
	r2, g2, b2, a2 := b.RGBA()

	return r1 == r2 && g1 == g2 && b1 == b2 && a1 == a2
}

// RenderDominance draws the outline in the neutral colour with the segments on
// top, and a legend of the compared drivers.
func RenderDominance(w io.Writer, outline []telemetry.Vector2, segments []Segment, legend []LegendEntry, title string) error {
	r := NewRenderer(outline)
	ctx, lines := r.newContext(title)

	r.drawTitle(ctx, lines)
	r.drawOutline(ctx, NeutralColor)
	r.drawSegments(ctx, segments)
	r.drawLegend(ctx, "", legend)

	return ctx.EncodePNG(w)
}

// DominanceSegments colours each step of the reference lap by the leader of the
// mini-sector it falls in. Steps that cross a mini-sector boundary take the
// colour of the sector they start in.
func DominanceSegments(reference []minisectors.Sample, leaders map[int]string, colours map[string]color.Color) []Segment {
	if len(reference) < 2 {
		return nil
	}

	segments := make([]Segment, 0, len(reference)-1)

	for i := 1; i < len(reference); i++ {
		colour := color.Color(NeutralColor)

		if driver, ok := leaders[reference[i-1].MiniSector]; ok {
			if c, ok := colours[driver]; ok && c != nil {
				colour = c
			}
		}

		segments = append(segments, Segment{
			From:   reference[i-1].Position,
			To:     reference[i].Position,
			Colour: colour,
		})
	}

	return segments
}

package trackmap

import (
	"image/color"
	"io"
	"strconv"

	"justapengu.in/f1bot/pkg/telemetry"
)

const maxGear = 8

// gearPalette is the qualitative "Paired" palette, one colour per gear.
var gearPalette = []color.RGBA{
	{R: 0xa6, G: 0xce, B: 0xe3, A: 0xff},
	{R: 0x1f, G: 0x78, B: 0xb4, A: 0xff},
	{R: 0xb2, G: 0xdf, B: 0x8a, A: 0xff},
	{R: 0x33, G: 0xa0, B: 0x2c, A: 0xff},
	{R: 0xfb, G: 0x9a, B: 0x99, A: 0xff},
	{R: 0xe3, G: 0x1a, B: 0x1c, A: 0xff},
	{R: 0xfd, G: 0xbf, B: 0x6f, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x00, A: 0xff},
}

// GearColour returns the colour used for a gear. Neutral and out of range
// gears are clamped to 1 and 8.
func GearColour(gear int) color.Color {
	if gear < 1 {
		gear = 1
	}

	if gear > maxGear {
		gear = maxGear
	}

	return gearPalette[gear-1]
}

// GearSegments colours each step of the lap by the gear engaged at its start.
func GearSegments(samples []telemetry.Sample) []Segment {
	if len(samples) < 2 {
		return nil
	}

	segments := make([]Segment, 0, len(samples)-1)

	for i := 1; i < len(samples); i++ {
		segments = append(segments, Segment{
			From:   samples[i-1].Position,
			To:     samples[i].Position,
			Colour: GearColour(samples[i-1].Gear),
		})
	}

	return segments
}

// RenderGears draws the lap coloured by gear with a gear legend.
func RenderGears(w io.Writer, samples []telemetry.Sample, title string) error {
	outline := make([]telemetry.Vector2, len(samples))

	for i, sample := range samples {
		outline[i] = sample.Position
	}

	legend := make([]LegendEntry, maxGear)

	for gear := 1; gear <= maxGear; gear++ {
		legend[gear-1] = LegendEntry{Label: strconv.Itoa(gear), Colour: GearColour(gear)}
	}

	r := NewRenderer(outline)
	ctx, lines := r.newContext(title)

	r.drawTitle(ctx, lines)
	r.drawOutline(ctx, trackBorderColor)
	r.drawSegments(ctx, GearSegments(samples))
	r.drawLegend(ctx, "Gear", legend)

	return ctx.EncodePNG(w)
}

package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
)

const (
	dpi             = 120.0
	fontSize        = 10.0
	tickMarkLength  = 5
	pixelsPerLabel  = 150.0
	defaultBandSize = 40

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 90
	defaultBottomBorder = 40
	defaultRightBorder  = 40
)

var neutralPlaneColor = color.Black

// BorderConfig defines the sizes of white space around the map
type BorderConfig struct {
	Top    int // Space for time scale
	Left   int // Space for height scale
	Bottom int // Space for information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for velocity map visualisation
type RenderConfig struct {
	FontSize      float64    // Font size in points
	ColorTheme    ColorTheme // Colour scheme for velocities
	BandHeight    int        // Pixels per door height band
	NoAnnotations bool

	BorderConfig BorderConfig
}

// Caption describes the rendered experiment in the information bar.
type Caption struct {
	Experiment string
	RunID      string
}

// MapRenderer draws a velocity map: time runs left to right, one pixel per profile,
// and door heights bottom to top.
type MapRenderer struct {
	config RenderConfig
}

// NewMapRenderer creates a renderer, filling zero configuration values with defaults.
func NewMapRenderer(config RenderConfig) *MapRenderer {
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.BandHeight <= 0 {
		config.BandHeight = defaultBandSize
	}
	if config.NoAnnotations {
		config.BorderConfig = BorderConfig{}
	} else {
		if config.BorderConfig.Top == 0 {
			config.BorderConfig.Top = defaultTopBorder
		}
		if config.BorderConfig.Left == 0 {
			config.BorderConfig.Left = defaultLeftBorder
		}
		if config.BorderConfig.Bottom == 0 {
			config.BorderConfig.Bottom = defaultBottomBorder
		}
		if config.BorderConfig.Right == 0 {
			config.BorderConfig.Right = defaultRightBorder
		}
	}

	return &MapRenderer{config: config}
}

// Render creates an image of the velocity map coloured over bounds.
func (r *MapRenderer) Render(m *VelocityMap, bounds VelocityBounds, caption Caption) (*image.RGBA, error) {
	if m.Width() == 0 || len(m.Heights) == 0 {
		return nil, fmt.Errorf("empty velocity map")
	}

	b := r.config.BorderConfig
	width := m.Width()
	height := len(m.Heights) * r.config.BandHeight

	img := image.NewRGBA(image.Rect(0, 0, width+b.Left+b.Right, height+b.Top+b.Bottom))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(b.Left, b.Top, b.Left+width, b.Top+height)

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(r.config.FontSize, b)
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, area, m, bounds, caption, r.config.BandHeight); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderVelocities(img, area, m, NewColorMapper(r.config.ColorTheme, bounds))
	r.renderNeutralPlane(img, area, m)

	return img, nil
}

func (r *MapRenderer) renderVelocities(img *image.RGBA, area image.Rectangle, m *VelocityMap, cm *ColorMapper) {
	band := r.config.BandHeight
	top := len(m.Heights) - 1

	for x, column := range m.Columns {
		imgX := area.Min.X + x
		for i, v := range column {
			c := cm.GetColor(v)
			y0 := area.Min.Y + (top-i)*band
			for y := y0; y < y0+band; y++ {
				img.Set(imgX, y, c)
			}
		}
	}
}

func (r *MapRenderer) renderNeutralPlane(img *image.RGBA, area image.Rectangle, m *VelocityMap) {
	for x, np := range m.NeutralPlane {
		if np == nil {
			continue
		}
		y := heightToY(*np*100, m.Heights, area, r.config.BandHeight)
		img.Set(area.Min.X+x, y, neutralPlaneColor)
		if y+1 < area.Max.Y {
			img.Set(area.Min.X+x, y+1, neutralPlaneColor)
		}
	}
}

// heightToY maps a height in cm to an image row, linear between the centres of the
// lowest and highest bands and clamped to the map area.
func heightToY(cm float64, heights []int, area image.Rectangle, band int) int {
	bottom := float64(area.Max.Y) - float64(band)/2
	if len(heights) < 2 {
		return int(bottom)
	}

	top := float64(area.Min.Y) + float64(band)/2
	lo, hi := float64(heights[0]), float64(heights[len(heights)-1])
	y := bottom - (cm-lo)/(hi-lo)*(bottom-top)

	return min(max(int(math.Round(y)), area.Min.Y), area.Max.Y-1)
}

type annotator struct {
	context  *freetype.Context
	fontFace font.Face
	borders  BorderConfig
}

func newAnnotator(size float64, borders BorderConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(size)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		borders: borders,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    size,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, area image.Rectangle, m *VelocityMap, bounds VelocityBounds, caption Caption, band int) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawTimeScale(img, area, m); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawHeightScale(img, area, m, band); err != nil {
		return fmt.Errorf("drawing height scale: %w", err)
	}
	if err := a.drawInfoBar(img, m, bounds, caption); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}
	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawTimeScale(img *image.RGBA, area image.Rectangle, m *VelocityMap) error {
	span := m.TimeEnd - m.TimeStart
	if span <= 0 {
		return nil
	}

	step := calculateNiceTimeStep(span, m.Width())
	textY := a.borders.Top - tickMarkLength - a.fontHeight()/2

	for ts := math.Ceil(m.TimeStart/step) * step; ts <= m.TimeEnd; ts += step {
		x := area.Min.X + int(math.Round((ts-m.TimeStart)/span*float64(m.Width()-1)))

		for y := area.Min.Y - tickMarkLength; y < area.Min.Y; y++ {
			img.Set(x, y, color.Black)
		}

		label := formatTestingTime(ts)
		width := font.MeasureString(a.fontFace, label)
		if _, err := a.context.DrawString(label, freetype.Pt(x-width.Round()/2, textY)); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawHeightScale(img *image.RGBA, area image.Rectangle, m *VelocityMap, band int) error {
	descent := a.fontFace.Metrics().Descent.Round()

	for i, h := range m.Heights {
		y := area.Max.Y - i*band - band/2

		for x := area.Min.X - tickMarkLength; x < area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := fmt.Sprintf("%d cm", h)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(area.Min.X-tickMarkLength-3-width.Round(), y+a.fontHeight()/2-descent)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing height label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, m *VelocityMap, bounds VelocityBounds, caption Caption) error {
	var sb strings.Builder

	sb.WriteString("Experiment: " + caption.Experiment)
	if caption.RunID != "" {
		sb.WriteString(" (run " + caption.RunID + ")")
	}
	sb.WriteString(fmt.Sprintf("; Time: %s - %s", formatTestingTime(m.TimeStart), formatTestingTime(m.TimeEnd)))
	sb.WriteString(fmt.Sprintf("; Profiles: %s", humanize.Comma(int64(m.Width()))))
	sb.WriteString(fmt.Sprintf("; V: ±%s m/s", humanize.FtoaWithDigits(bounds.Max, 2)))
	if m.Width() > 1 {
		sb.WriteString(fmt.Sprintf("; 1px = %s s", humanize.FtoaWithDigits((m.TimeEnd-m.TimeStart)/float64(m.Width()-1), 2)))
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - (a.borders.Bottom-a.fontHeight())/2 - metrics.Descent.Round()

	if _, err := a.context.DrawString(sb.String(), freetype.Pt(a.borders.Left, textY)); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}
	return nil
}

// calculateNiceTimeStep picks a label interval in seconds giving roughly one label per
// pixelsPerLabel pixels.
func calculateNiceTimeStep(span float64, width int) float64 {
	niceIntervals := []float64{
		1, 5, 10, 15, 30, // seconds
		60, 120, 300, 600, 900, 1800, // minutes
		3600, 7200, // hours
	}

	labels := max(float64(width)/pixelsPerLabel, 1)
	roughStep := span / labels

	for _, interval := range niceIntervals {
		if roughStep <= interval {
			return interval
		}
	}
	return niceIntervals[len(niceIntervals)-1]
}

// formatTestingTime formats seconds since ignition as [-]m:ss.
func formatTestingTime(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	total := int(math.Round(seconds))
	return fmt.Sprintf("%s%d:%02d", sign, total/60, total%60)
}

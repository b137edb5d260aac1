package app

import (
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorTheme represents a predefined colour scheme for velocity visualisation.
type ColorTheme string

const (
	CoolWarmTheme  ColorTheme = "coolwarm"  // Blue (outflow) through grey to red (inflow)
	SpectralTheme  ColorTheme = "spectral"  // Blue through green to red
	GrayscaleTheme ColorTheme = "grayscale" // Black to white

	DefaultColorMapSize = 255 // odd, so that zero velocity has its own colour
)

// NoDataColor marks cells without a velocity.
var NoDataColor = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}

var (
	coolEnd = colorful.Color{R: 0.230, G: 0.299, B: 0.754}
	coolMid = colorful.Color{R: 0.865, G: 0.865, B: 0.865}
	warmEnd = colorful.Color{R: 0.706, G: 0.016, B: 0.150}
)

// ColorMapper provides velocity-to-colour mapping over fixed bounds with a
// pre-computed colour map.
type ColorMapper struct {
	colorMap         []color.Color
	theme            func(float64) colorful.Color
	size             int
	bounds           VelocityBounds
	velocityPerIndex float64
}

// NewColorMapper creates a new colour mapper with the default size.
func NewColorMapper(theme ColorTheme, bounds VelocityBounds) *ColorMapper {
	return NewColorMapperWithSize(theme, bounds, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a new colour mapper with size pre-computed colours.
func NewColorMapperWithSize(theme ColorTheme, bounds VelocityBounds, size int) *ColorMapper {
	if size <= 1 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap: make([]color.Color, size),
		theme:    getColorTheme(theme),
		size:     size,
	}
	cm.UpdateBounds(bounds)
	return cm
}

// UpdateBounds sets the velocity range and recomputes the colour map
func (cm *ColorMapper) UpdateBounds(bounds VelocityBounds) {
	cm.bounds = bounds
	cm.velocityPerIndex = (bounds.Max - bounds.Min) / float64(cm.size-1)

	for i := 0; i < cm.size; i++ {
		normalized := float64(i) / float64(cm.size-1)
		cm.colorMap[i] = cm.theme(normalized).Clamped()
	}
}

// GetColor returns the colour of a velocity; values outside the bounds saturate.
func (cm *ColorMapper) GetColor(velocity *float64) color.Color {
	if velocity == nil || math.IsNaN(*velocity) {
		return NoDataColor
	}

	index := int(math.Round((*velocity - cm.bounds.Min) / cm.velocityPerIndex))
	index = min(max(index, 0), cm.size-1)
	return cm.colorMap[index]
}

// Size returns the colour map size
func (cm *ColorMapper) Size() int {
	return cm.size
}

func getColorTheme(theme ColorTheme) func(float64) colorful.Color {
	switch theme {
	case SpectralTheme:
		return func(v float64) colorful.Color {
			return colorful.Hsv(240*(1-v), 0.85, 0.9)
		}

	case GrayscaleTheme:
		return func(v float64) colorful.Color {
			return colorful.Color{R: v, G: v, B: v}
		}

	default: // diverging, blended in Lab for perceptually even steps
		return func(v float64) colorful.Color {
			if v < 0.5 {
				return coolEnd.BlendLab(coolMid, v*2)
			}
			return coolMid.BlendLab(warmEnd, (v-0.5)*2)
		}
	}
}

package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// overlayTheme renders window and widget backgrounds with a caller-set
// alpha while keeping text fully opaque, so lowering the opacity fades
// the pane, not the lyrics.
type overlayTheme struct {
	alpha uint8
}

// newOverlayTheme creates a theme for an opacity in [0,1].
func newOverlayTheme(opacity float64) fyne.Theme {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return &overlayTheme{alpha: uint8(opacity * 255)}
}

func withAlpha(c color.Color, alpha uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: alpha}
}

// Color returns theme colors, substituting the translucent background.
func (t *overlayTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	base := theme.DefaultTheme().Color(name, variant)
	switch name {
	case theme.ColorNameBackground, theme.ColorNameOverlayBackground, theme.ColorNameMenuBackground:
		return withAlpha(base, t.alpha)
	case theme.ColorNameForeground:
		return withAlpha(base, 255)
	}
	return base
}

// Font returns the default fonts.
func (t *overlayTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// Icon returns the default icons.
func (t *overlayTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size returns theme sizes, with lyric-friendly text sizing.
func (t *overlayTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameText:
		return 14
	case theme.SizeNameHeadingText:
		return 18
	}
	return theme.DefaultTheme().Size(name)
}

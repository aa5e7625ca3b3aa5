package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	colorBg       = color.NRGBA{R: 0x0a, G: 0x0a, B: 0x0a, A: 0xff} // #0a0a0a
	colorInputBg  = color.NRGBA{R: 0x14, G: 0x14, B: 0x14, A: 0xff} // #141414
	colorInputBdr = color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xff} // #333333
	colorText     = color.NRGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff} // #e0e0e0
	colorMuted    = color.NRGBA{R: 0x88, G: 0x88, B: 0x88, A: 0xff} // #888888
	colorAccent   = color.NRGBA{R: 0x00, G: 0xe5, B: 0xff, A: 0xff} // #00e5ff cyan
	colorError    = color.NRGBA{R: 0xe1, G: 0x56, B: 0x47, A: 0xff} // #e15647
)

// darkTheme overrides the palette of the default dark variant and keeps
// its fonts, icons and sizes.
type darkTheme struct{}

var _ fyne.Theme = darkTheme{}

func (darkTheme) Color(name fyne.ThemeColorName, _ fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return colorBg
	case theme.ColorNameInputBackground:
		return colorInputBg
	case theme.ColorNameInputBorder, theme.ColorNameSeparator:
		return colorInputBdr
	case theme.ColorNameForeground:
		return colorText
	case theme.ColorNamePlaceHolder, theme.ColorNameDisabled:
		return colorMuted
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorAccent
	case theme.ColorNameError:
		return colorError
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (darkTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (darkTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
